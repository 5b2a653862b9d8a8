package doctext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

// Extraction methods recorded on results.
const (
	MethodText = "text"
	MethodOCR  = "ocr"
)

// ExtractResult carries the plain text pulled out of a document and how it
// was obtained.
type ExtractResult struct {
	Text   string
	Method string
	Pages  int
}

// Extractor obtains plain text from PDF byte streams. Direct text-layer
// extraction is attempted page by page first; when that yields nothing but
// whitespace, the document's page images are run through OCR.
type Extractor struct {
	maxTextSize int
	ocr         OCREngine
}

// NewExtractor creates an extractor. A nil engine disables the OCR fallback.
func NewExtractor(ocr OCREngine) *Extractor {
	return &Extractor{
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
		ocr:         ocr,
	}
}

// ExtractText extracts plain text from an in-memory PDF. It fails with an
// extraction error when both the direct pass and OCR produce only
// whitespace.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (*ExtractResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", apperrors.ErrExtraction, err)
	}

	text := e.extractTextContent(reader)
	if strings.TrimSpace(text) != "" {
		return &ExtractResult{Text: text, Method: MethodText, Pages: reader.NumPage()}, nil
	}

	if e.ocr == nil {
		return nil, fmt.Errorf("%w: no text content could be extracted from PDF", apperrors.ErrExtraction)
	}

	ocrText, err := e.extractViaOCR(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: direct extraction empty, OCR failed: %v", apperrors.ErrExtraction, err)
	}
	if strings.TrimSpace(ocrText) == "" {
		return nil, fmt.Errorf("%w: direct extraction and OCR both produced no text", apperrors.ErrExtraction)
	}

	return &ExtractResult{Text: ocrText, Method: MethodOCR, Pages: reader.NumPage()}, nil
}

// extractTextContent concatenates the text layer of every page. Pages that
// fail to decode are skipped rather than failing the whole document.
func (e *Extractor) extractTextContent(reader *pdf.Reader) string {
	var builder strings.Builder
	totalLength := 0

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if totalLength+len(content) > e.maxTextSize {
			remaining := e.maxTextSize - totalLength
			if remaining > 0 {
				builder.WriteString(content[:remaining])
			}
			break
		}

		builder.WriteString(content)
		totalLength += len(content)
	}

	return builder.String()
}

// extractViaOCR pulls the page images out of the document and runs each
// through the OCR engine, concatenating recognized text in page order.
func (e *Extractor) extractViaOCR(ctx context.Context, data []byte) (string, error) {
	images, err := extractPageImages(data)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("document contains no page images to recognize")
	}

	var builder strings.Builder
	for _, img := range images {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		text, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			// Best effort per image; a single undecodable image does not
			// abort the others.
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	return builder.String(), nil
}
