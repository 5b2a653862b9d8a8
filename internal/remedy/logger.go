package remedy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remedykit/bill-endorser/internal/apperrors"
	"github.com/remedykit/bill-endorser/internal/billing"
)

// Endorsement is one endorsement entry in a remedy record.
type Endorsement struct {
	EndorserName string `json:"endorser_name"`
	Text         string `json:"text"`
	NextPayee    string `json:"next_payee"`
	Signature    string `json:"signature"`
}

// SignatureBlock closes a remedy record with the signing identity.
type SignatureBlock struct {
	SignedBy  string `json:"signed_by"`
	Capacity  string `json:"capacity"`
	Signature string `json:"signature"`
	Date      string `json:"date"`
}

// Record is the persisted trace of one endorsement run over one instrument.
type Record struct {
	InstrumentID   string         `json:"instrument_id"`
	Issuer         string         `json:"issuer"`
	Recipient      string         `json:"recipient"`
	Amount         billing.Amount `json:"amount"`
	Currency       string         `json:"currency"`
	Description    string         `json:"description"`
	Endorsements   []Endorsement  `json:"endorsements"`
	SignatureBlock SignatureBlock `json:"signature_block"`
}

// Logger persists remedy records as a machine-readable JSON file plus a
// human-readable text file, both named by date and instrument id. Files are
// only ever written whole; a same-name collision is last-write-wins.
type Logger struct {
	dir string
	now func() time.Time
}

// NewLogger creates a logger writing into dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Log writes the JSON/text pair for a record and returns both paths.
func (l *Logger) Log(rec Record) (jsonPath, txtPath string, err error) {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return "", "", fmt.Errorf("%w: create log dir: %v", apperrors.ErrFileIO, err)
	}

	name := rec.InstrumentID
	if name == "" {
		name = "unnamed_bill"
	}
	dateStr := l.now().Format("2006-01-02")
	base := fmt.Sprintf("%s_%s", dateStr, name)

	jsonPath = filepath.Join(l.dir, base+".json")
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return "", "", fmt.Errorf("marshal remedy record: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o640); err != nil {
		return "", "", fmt.Errorf("%w: write %s: %v", apperrors.ErrFileIO, jsonPath, err)
	}

	txtPath = filepath.Join(l.dir, base+".txt")
	if err := os.WriteFile(txtPath, []byte(l.renderText(rec, dateStr)), 0o640); err != nil {
		return "", "", fmt.Errorf("%w: write %s: %v", apperrors.ErrFileIO, txtPath, err)
	}

	return jsonPath, txtPath, nil
}

func (l *Logger) renderText(rec Record, dateStr string) string {
	name := rec.InstrumentID
	if name == "" {
		name = "unnamed_bill"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Remedy Log for %s - %s\n\n", name, dateStr)
	fmt.Fprintf(&b, "Issuer: %s\n", orNA(rec.Issuer))
	fmt.Fprintf(&b, "Recipient: %s\n", orNA(rec.Recipient))
	fmt.Fprintf(&b, "Amount: %s %s\n", rec.Amount.String(), orNA(rec.Currency))
	fmt.Fprintf(&b, "Description: %s\n\n", orNA(rec.Description))

	for i, e := range rec.Endorsements {
		fmt.Fprintf(&b, "Endorsement %d:\n", i+1)
		fmt.Fprintf(&b, "  Endorser: %s\n", e.EndorserName)
		fmt.Fprintf(&b, "  Text: %s\n", e.Text)
		fmt.Fprintf(&b, "  Next Payee: %s\n", e.NextPayee)
		fmt.Fprintf(&b, "  Signature: %s...\n\n", truncate(e.Signature, 60))
	}

	sig := rec.SignatureBlock
	fmt.Fprintf(&b, "Signed by: %s (%s)\n", sig.SignedBy, sig.Capacity)
	fmt.Fprintf(&b, "Signature: %s\n", sig.Signature)
	fmt.Fprintf(&b, "Date: %s\n", sig.Date)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
