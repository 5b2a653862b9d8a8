package billing

import (
	"regexp"
	"strings"
)

// Document types recorded on parsed bills.
const (
	DocTypeUtilityBill = "utility_bill"
	DocTypeInvoice     = "invoice"
	DocTypeStatement   = "statement"
	DocTypeUnknown     = "Unknown"
)

// docTypeRule scores one document type by keyword hits and pattern matches.
type docTypeRule struct {
	docType  string
	keywords []string
	patterns []*regexp.Regexp
	weight   float64
}

// DocTypeClassifier performs rule-based classification of bill text into a
// coarse document type. Scoring is additive: each keyword hit counts once,
// each pattern match counts double, both scaled by the rule weight.
type DocTypeClassifier struct {
	rules []docTypeRule
}

// NewDocTypeClassifier returns a classifier with the default rule set.
func NewDocTypeClassifier() *DocTypeClassifier {
	return &DocTypeClassifier{rules: defaultDocTypeRules()}
}

func defaultDocTypeRules() []docTypeRule {
	return []docTypeRule{
		{
			docType: DocTypeUtilityBill,
			keywords: []string{
				"utility", "electricity", "electric", "gas", "water", "sewer",
				"meter", "kwh", "usage", "service period", "service address",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)meter\s*(?:no|number|reading)`),
				regexp.MustCompile(`(?i)\d+\s*kwh`),
			},
			weight: 1.0,
		},
		{
			docType: DocTypeInvoice,
			keywords: []string{
				"invoice", "purchase order", "bill to", "ship to", "vendor",
				"quantity", "unit price", "subtotal", "payment terms", "net 30",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)invoice\s*#?\s*[\w-]+`),
				regexp.MustCompile(`(?i)payment\s+terms`),
			},
			weight: 1.0,
		},
		{
			docType: DocTypeStatement,
			keywords: []string{
				"statement", "account summary", "previous balance", "new balance",
				"minimum payment", "statement period", "closing date",
			},
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)statement\s+(?:date|period)`),
				regexp.MustCompile(`(?i)previous\s+balance`),
			},
			weight: 1.0,
		},
	}
}

// Classify returns the best-scoring document type, or Unknown when nothing
// scores.
func (c *DocTypeClassifier) Classify(text string) string {
	lower := strings.ToLower(text)

	best := DocTypeUnknown
	bestScore := 0.0
	for _, rule := range c.rules {
		score := 0.0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				score += rule.weight
			}
		}
		for _, pat := range rule.patterns {
			if pat.MatchString(text) {
				score += 2 * rule.weight
			}
		}
		if score > bestScore {
			bestScore = score
			best = rule.docType
		}
	}
	return best
}
