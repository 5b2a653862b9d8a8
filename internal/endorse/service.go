package endorse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remedykit/bill-endorser/internal/apperrors"
	"github.com/remedykit/bill-endorser/internal/billing"
	"github.com/remedykit/bill-endorser/internal/doctext"
	"github.com/remedykit/bill-endorser/internal/overlay"
	"github.com/remedykit/bill-endorser/internal/remedy"
)

// Messages returned by the endorse operation.
const (
	MsgEndorsed        = "Bill endorsed successfully"
	MsgNoEndorsements  = "Bill processed, but no applicable endorsements found in config."
	chainHeading       = "Endorsement Chain Attached"
	chainNextPayee     = "Original Creditor"
	signatureCapacity  = "Payer"
	endorsedNamePrefix = "endorsed_"
)

// Result is the outcome of a successful endorsement run.
type Result struct {
	Message       string   `json:"message"`
	EndorsedFiles []string `json:"endorsed_files,omitempty"`
}

// Service drives the endorsement pipeline: extract text, parse the bill,
// then per configured rule sign, log and stamp. A failure in any rule aborts
// the whole run; artifacts already written for earlier rules stay on disk.
type Service struct {
	uploadsDir        string
	overlayConfigPath string
	endorserID        string

	extractor *doctext.Extractor
	parser    *billing.Parser
	composer  *overlay.Composer
	signer    *Signer // nil until a key is configured
	remedyLog *remedy.Logger

	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the pipeline. signer may be nil; the endorse operation
// then fails with a configuration error instead of the process crashing.
func NewService(uploadsDir, overlayConfigPath, endorserID string,
	extractor *doctext.Extractor, signer *Signer, remedyLog *remedy.Logger,
	logger *slog.Logger,
) *Service {
	return &Service{
		uploadsDir:        uploadsDir,
		overlayConfigPath: overlayConfigPath,
		endorserID:        endorserID,
		extractor:         extractor,
		parser:            billing.NewParser(),
		composer:          overlay.NewComposer(),
		signer:            signer,
		remedyLog:         remedyLog,
		logger:            logger,
		now:               time.Now,
	}
}

// BillData extracts and parses a bill without endorsing it.
func (s *Service) BillData(ctx context.Context, data []byte) (*billing.Record, error) {
	extracted, err := s.extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, err
	}

	rec, err := s.parser.Parse(extracted.Text)
	if err != nil {
		return nil, err
	}
	if rec.BillNumber == "" {
		return nil, fmt.Errorf("%w: could not parse bill number from PDF", apperrors.ErrParse)
	}
	return rec, nil
}

// EndorseBill runs the full pipeline over one uploaded bill and returns the
// produced artifact filenames.
func (s *Service) EndorseBill(ctx context.Context, filename string, data []byte) (*Result, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: server is not configured with a private key", apperrors.ErrConfiguration)
	}

	rec, err := s.BillData(ctx, data)
	if err != nil {
		return nil, err
	}

	rules, err := LoadRules(s.overlayConfigPath)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return &Result{Message: MsgNoEndorsements}, nil
	}

	// The upload is persisted only once endorsements will actually be
	// produced. Same-name uploads overwrite; accepted weak guarantee.
	baseName := filepath.Base(filename)
	uploadPath := filepath.Join(s.uploadsDir, baseName)
	if err := os.WriteFile(uploadPath, data, 0o640); err != nil {
		return nil, fmt.Errorf("%w: save upload %s: %v", apperrors.ErrFileIO, uploadPath, err)
	}

	pageCount, err := overlay.PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
	}

	endorsedFiles := make([]string, 0, len(rules))
	for _, rule := range rules {
		outName, err := s.applyRule(ctx, rule, rec, data, baseName, pageCount)
		if err != nil {
			return nil, err
		}
		endorsedFiles = append(endorsedFiles, outName)
	}

	return &Result{Message: MsgEndorsed, EndorsedFiles: endorsedFiles}, nil
}

// applyRule signs, logs and stamps one endorsement rule, returning the
// output filename.
func (s *Service) applyRule(ctx context.Context, rule Rule, rec *billing.Record,
	data []byte, baseName string, pageCount int,
) (string, error) {
	endorsementText := rule.EndorsementText()

	payload := BuildPayload(rec, endorsementText, s.endorserID, s.now())
	signed, err := s.signer.Sign(payload)
	if err != nil {
		return "", err
	}

	logRec := remedy.Record{
		InstrumentID: rec.BillNumber,
		Issuer:       orDefault(rec.Issuer, "Unknown"),
		Recipient:    rec.CustomerName,
		Amount:       rec.TotalAmount,
		Currency:     rec.Currency,
		Description:  orDefault(rec.Description, "N/A"),
		Endorsements: []remedy.Endorsement{{
			EndorserName: signed.EndorserID,
			Text:         endorsementText,
			NextPayee:    chainNextPayee,
			Signature:    signed.Signature,
		}},
		SignatureBlock: remedy.SignatureBlock{
			SignedBy:  signed.EndorserID,
			Capacity:  signatureCapacity,
			Signature: signed.Signature,
			Date:      signed.EndorsementDate,
		},
	}

	jsonPath, _, err := s.remedyLog.Log(logRec)
	if err != nil {
		return "", err
	}
	s.logger.Info("remedy log saved",
		slog.String("instrument_id", logRec.InstrumentID),
		slog.String("path", jsonPath))

	spec := overlay.Spec{
		Annotations: chainAnnotations(logRec),
		InkColor:    strings.ToLower(rule.InkColor),
		PageIndex:   rule.PageIndexFor(pageCount),
	}
	stamped, diags, err := s.composer.Apply(data, spec)
	if err != nil {
		return "", err
	}
	for _, d := range diags {
		if !d.Drawn {
			s.logger.Warn("overlay entry skipped",
				slog.String("text", d.Text),
				slog.String("reason", d.Reason))
		}
	}

	outName := fmt.Sprintf("%s%s_%s.pdf",
		endorsedNamePrefix,
		strings.TrimSuffix(baseName, filepath.Ext(baseName)),
		rule.ArtifactSuffix())
	outPath := filepath.Join(s.uploadsDir, outName)
	if err := os.WriteFile(outPath, stamped, 0o640); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", apperrors.ErrFileIO, outPath, err)
	}

	s.logger.Info("endorsement attached",
		slog.String("trigger", rule.Trigger),
		slog.String("output", outName))
	return outName, nil
}

// Stamp places a single endorsement line at an explicit coordinate on the
// first page and returns the stamped document bytes.
func (s *Service) Stamp(_ context.Context, data []byte, x, y float64, endorsementText, qualifier string) ([]byte, error) {
	stamped, diags, err := s.composer.StampText(data, x, y, endorsementText, qualifier)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		if !d.Drawn {
			s.logger.Warn("stamp entry skipped",
				slog.String("text", d.Text),
				slog.String("reason", d.Reason))
		}
	}
	return stamped, nil
}

// chainAnnotations lays out the endorsement chain block the way it appears
// on stamped bills: a heading, one entry per endorsement, then the signature
// block.
func chainAnnotations(rec remedy.Record) []overlay.Annotation {
	anns := []overlay.Annotation{
		{Text: chainHeading, X: 50, Y: 750, Bold: true, Size: 12},
	}

	y := 730.0
	for i, e := range rec.Endorsements {
		anns = append(anns,
			overlay.Annotation{Text: fmt.Sprintf("%d. %s -> %s", i+1, e.EndorserName, e.NextPayee), X: 50, Y: y},
			overlay.Annotation{Text: fmt.Sprintf("Text: %s", e.Text), X: 60, Y: y - 15},
			overlay.Annotation{Text: fmt.Sprintf("Signature: %s...", truncate(e.Signature, 60)), X: 60, Y: y - 30},
		)
		y -= 55
	}

	sig := rec.SignatureBlock
	anns = append(anns,
		overlay.Annotation{Text: fmt.Sprintf("Signed by: %s (%s)", sig.SignedBy, sig.Capacity), X: 50, Y: y},
		overlay.Annotation{Text: fmt.Sprintf("Signature: %s", sig.Signature), X: 60, Y: y - 15},
		overlay.Annotation{Text: fmt.Sprintf("Date: %s", sig.Date), X: 60, Y: y - 30},
	)
	return anns
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
