package overlay

import "fmt"

// StampText places a single endorsement line on the first page at an
// explicit coordinate. The y value arrives in screen coordinates (origin at
// the top-left, as reported by browser PDF viewers) and is flipped to PDF
// coordinates against the page height.
func (c *Composer) StampText(data []byte, x, y float64, endorsementText, qualifier string) ([]byte, []Diagnostic, error) {
	_, height := c.pageSize(data, 0)

	text := endorsementText
	if qualifier != "" {
		text = fmt.Sprintf("%s - %s", endorsementText, qualifier)
	}

	spec := Spec{
		Annotations: []Annotation{
			{Text: text, X: x, Y: height - y, Size: 10},
		},
		InkColor:  "black",
		PageIndex: 0,
	}
	return c.Apply(data, spec)
}
