package doctext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ValidateUpload performs basic validation on an uploaded document before
// the pipeline touches it: extension, size bounds, and a PDF open check.
func ValidateUpload(filename string, data []byte, maxFileSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return fmt.Errorf("unsupported file type: %s, please upload a PDF", filename)
	}

	if len(data) == 0 {
		return fmt.Errorf("file is empty: %s", filename)
	}

	if int64(len(data)) > maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(data), maxFileSize)
	}

	if _, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}

	return nil
}
