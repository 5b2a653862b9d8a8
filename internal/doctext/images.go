package doctext

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPageImages returns the encoded image XObjects of the document in
// page order. Scanned documents typically carry one full-page image per
// page, which is exactly what the OCR fallback needs.
func extractPageImages(data []byte) ([][]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var images [][]byte
	digest := func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		buf, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read image stream: %w", err)
		}
		images = append(images, buf)
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, conf); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	return images, nil
}
