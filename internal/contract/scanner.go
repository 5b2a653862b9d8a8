package contract

import (
	"context"
	"strings"

	"github.com/remedykit/bill-endorser/internal/doctext"
)

// Match is one occurrence of a scanned tag in the contract text.
type Match struct {
	Tag  string `json:"tag"`
	Line int    `json:"line"` // 1-based line number
	Text string `json:"text"`
}

// Scanner searches contract documents for keyword tags.
type Scanner struct {
	extractor *doctext.Extractor
}

// NewScanner creates a scanner using the given text extractor.
func NewScanner(extractor *doctext.Extractor) *Scanner {
	return &Scanner{extractor: extractor}
}

// Scan extracts the contract text and returns every line containing one of
// the tags, case-insensitively. Blank tags are ignored. No matches is not an
// error; the result is just empty.
func (s *Scanner) Scan(ctx context.Context, data []byte, tags []string) ([]Match, error) {
	extracted, err := s.extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, err
	}

	var matches []Match
	lines := strings.Split(extracted.Text, "\n")
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		needle := strings.ToLower(tag)
		for i, line := range lines {
			if strings.Contains(strings.ToLower(line), needle) {
				matches = append(matches, Match{
					Tag:  tag,
					Line: i + 1,
					Text: strings.TrimSpace(line),
				})
			}
		}
	}

	return matches, nil
}
