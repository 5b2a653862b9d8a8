package overlay

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

// Letter page size in points, used when media box introspection fails.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// Signature image box in points.
const (
	signatureWidth  = 100.0
	signatureHeight = 50.0
)

// Annotation is one string drawn at a literal (x, y) coordinate. Coordinates
// use PDF conventions: origin at the bottom-left of the page, units in
// points.
type Annotation struct {
	Text string
	X    float64
	Y    float64
	Bold bool
	Size float64 // font size in points; 10 when zero
}

// Signature optionally renders a signature on the overlay: an image file
// composited at the given coordinates, or typed text in a distinguishing
// color when no image path is set.
type Signature struct {
	ImagePath string
	Text      string
	X         float64
	Y         float64
}

// Diagnostic records the outcome of placing a single overlay entry. Failed
// placements are reported here instead of aborting the page.
type Diagnostic struct {
	Text   string `json:"text"`
	Drawn  bool   `json:"drawn"`
	Reason string `json:"reason,omitempty"`
}

// Spec describes one overlay application: the annotations, an optional
// signature, the ink color, and the target page.
type Spec struct {
	Annotations []Annotation
	Signature   *Signature
	InkColor    string
	PageIndex   int
}

type rgb struct{ r, g, b int }

// Fixed ink palette; unrecognized names fall back to black.
var colorMap = map[string]rgb{
	"black": {0, 0, 0},
	"red":   {255, 0, 0},
	"blue":  {0, 0, 255},
	"green": {0, 255, 0},
	"white": {255, 255, 255},
}

var signatureTextColor = rgb{0, 0, 255}

// Composer builds one-page vector overlays and merges them onto existing
// documents.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// PageCount returns the number of pages in the document.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx.PageCount, nil
}

// Apply renders the overlay described by spec and merges it onto the target
// page, returning the new document. All pages keep their original order; only
// the target page gains content. Per-annotation placement failures are
// collected into the returned diagnostics rather than aborting the run.
func (c *Composer) Apply(data []byte, spec Spec) ([]byte, []Diagnostic, error) {
	pageCount, err := PageCount(data)
	if err != nil {
		return nil, nil, err
	}
	if spec.PageIndex < 0 || spec.PageIndex >= pageCount {
		return nil, nil, fmt.Errorf("%w: page %d, PDF has %d pages",
			apperrors.ErrInvalidPageIndex, spec.PageIndex, pageCount)
	}

	width, height := c.pageSize(data, spec.PageIndex)

	overlayPDF, diags, err := c.renderOverlay(spec, width, height)
	if err != nil {
		return nil, diags, err
	}

	merged, err := c.merge(data, overlayPDF, spec.PageIndex)
	if err != nil {
		return nil, diags, err
	}
	return merged, diags, nil
}

// pageSize returns the media box dimensions of the target page, falling back
// to letter when introspection fails.
func (c *Composer) pageSize(data []byte, pageIndex int) (float64, float64) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return letterWidth, letterHeight
	}
	// PageDims sizes its result by the page count, which is 0 until
	// EnsurePageCount has run.
	if err := ctx.EnsurePageCount(); err != nil {
		return letterWidth, letterHeight
	}
	dims, err := ctx.PageDims()
	if err != nil || pageIndex >= len(dims) {
		return letterWidth, letterHeight
	}

	d := dims[pageIndex]
	if d.Width <= 0 || d.Height <= 0 {
		return letterWidth, letterHeight
	}
	return d.Width, d.Height
}

// renderOverlay draws the annotations and optional signature into a fresh
// one-page PDF of the given size.
func (c *Composer) renderOverlay(spec Spec, width, height float64) ([]byte, []Diagnostic, error) {
	ink, ok := colorMap[spec.InkColor]
	if !ok {
		ink = colorMap["black"]
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	diags := make([]Diagnostic, 0, len(spec.Annotations))
	for _, a := range spec.Annotations {
		diags = append(diags, c.drawAnnotation(doc, a, ink, height))
	}

	if spec.Signature != nil {
		diags = append(diags, c.drawSignature(doc, spec.Signature, height))
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, diags, fmt.Errorf("failed to render overlay page: %w", err)
	}
	return buf.Bytes(), diags, nil
}

// drawAnnotation places a single string; a malformed entry is reported as
// skipped without affecting the rest of the page.
func (c *Composer) drawAnnotation(doc *gofpdf.Fpdf, a Annotation, ink rgb, pageHeight float64) Diagnostic {
	if a.Text == "" {
		return Diagnostic{Text: a.Text, Drawn: false, Reason: "empty text"}
	}
	if !coordFinite(a.X) || !coordFinite(a.Y) {
		return Diagnostic{Text: a.Text, Drawn: false, Reason: "non-finite coordinates"}
	}

	size := a.Size
	if size == 0 {
		size = 10
	}
	style := ""
	if a.Bold {
		style = "B"
	}

	doc.SetFont("Helvetica", style, size)
	doc.SetTextColor(ink.r, ink.g, ink.b)
	// gofpdf places text from a top-left origin; the annotation coordinate
	// is bottom-left per PDF convention.
	doc.Text(a.X, pageHeight-a.Y, a.Text)

	if doc.Err() {
		reason := doc.Error().Error()
		doc.ClearError()
		return Diagnostic{Text: a.Text, Drawn: false, Reason: reason}
	}
	return Diagnostic{Text: a.Text, Drawn: true}
}

// drawSignature composites the signature image, or types the signature text
// when no image is configured. A missing image file is skipped, not fatal.
func (c *Composer) drawSignature(doc *gofpdf.Fpdf, sig *Signature, pageHeight float64) Diagnostic {
	if sig.ImagePath != "" {
		if _, err := os.Stat(sig.ImagePath); err != nil {
			return Diagnostic{Text: "signature image", Drawn: false,
				Reason: fmt.Sprintf("signature file not found at %s", sig.ImagePath)}
		}
		opts := gofpdf.ImageOptions{ImageType: imageType(sig.ImagePath), ReadDpi: true}
		doc.ImageOptions(sig.ImagePath, sig.X, pageHeight-sig.Y-signatureHeight,
			signatureWidth, signatureHeight, false, opts, 0, "")
		if doc.Err() {
			reason := doc.Error().Error()
			doc.ClearError()
			return Diagnostic{Text: "signature image", Drawn: false, Reason: reason}
		}
		return Diagnostic{Text: "signature image", Drawn: true}
	}

	if sig.Text == "" {
		return Diagnostic{Text: "signature", Drawn: false, Reason: "no signature image or text"}
	}

	doc.SetFont("Helvetica", "I", 12)
	doc.SetTextColor(signatureTextColor.r, signatureTextColor.g, signatureTextColor.b)
	doc.Text(sig.X, pageHeight-sig.Y, sig.Text)
	if doc.Err() {
		reason := doc.Error().Error()
		doc.ClearError()
		return Diagnostic{Text: "signature", Drawn: false, Reason: reason}
	}
	return Diagnostic{Text: "signature", Drawn: true}
}

// merge stamps the overlay page onto pageIndex of the original document.
func (c *Composer) merge(original, overlayPDF []byte, pageIndex int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "endorse-overlay-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %v", apperrors.ErrFileIO, err)
	}
	defer os.RemoveAll(tmpDir)

	overlayPath := filepath.Join(tmpDir, "overlay.pdf")
	if err := os.WriteFile(overlayPath, overlayPDF, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write overlay: %v", apperrors.ErrFileIO, err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	// Absolute 1:1 placement at the bottom-left corner keeps overlay
	// coordinates aligned with the target page.
	wm, err := api.PDFWatermark(overlayPath, "scalefactor:1 abs, pos:bl, rot:0", true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build overlay watermark: %w", err)
	}

	var out bytes.Buffer
	pages := []string{strconv.Itoa(pageIndex + 1)}
	if err := api.AddWatermarks(bytes.NewReader(original), &out, pages, wm, conf); err != nil {
		return nil, fmt.Errorf("failed to merge overlay onto page %d: %w", pageIndex, err)
	}
	return out.Bytes(), nil
}

func coordFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func imageType(path string) string {
	switch filepath.Ext(path) {
	case ".png":
		return "PNG"
	case ".jpg", ".jpeg":
		return "JPG"
	case ".gif":
		return "GIF"
	default:
		return ""
	}
}
