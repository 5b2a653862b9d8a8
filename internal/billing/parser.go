package billing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

// Record is the structured result of parsing one bill document. It is
// immutable after parse; the endorsement pipeline reads it but never writes
// back into it.
type Record struct {
	BillNumber   string `json:"bill_number,omitempty"`
	TotalAmount  Amount `json:"total_amount"`
	Currency     string `json:"currency"`
	CustomerName string `json:"customer_name,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Issuer       string `json:"issuer,omitempty"`
	Description  string `json:"description,omitempty"`

	// Free-text instruments carry a payee and due date instead of labels.
	Payee   string `json:"payee,omitempty"`
	DueDate string `json:"due_date,omitempty"`

	// RemittanceCoupon is the detachable payment-stub region, when the
	// bill carries one.
	RemittanceCoupon string `json:"remittance_coupon,omitempty"`
}

// DefaultCustomerName is recorded when no labeled name is found.
const DefaultCustomerName = "Valued Customer"

// Label alternations for common bill data fields. Broken into pieces to keep
// the composed patterns readable.
const (
	billNumberAlts  = `Account Number|Account No|Invoice Number|Bill No|Reference No`
	totalAmountAlts = `Total Amount|Amount Due|Balance Due`
	customerAlts    = `Customer Name|Client Name|Name|To`
	remittanceAlts  = `Remittance Coupon|Payment Stub|Please Detach|Return with Payment` +
		`|please return bottom portion with your payment`
)

var symbolToCurrency = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// Parser extracts bill data from plain document text. It tries a structured
// label:value pass first and falls back to narrative free-text phrasing when
// the structured pass finds no bill number.
type Parser struct {
	billNumber *regexp.Regexp
	amount     *regexp.Regexp
	customer   *regexp.Regexp
	remittance *regexp.Regexp

	ftPayee    *regexp.Regexp
	ftAmount   *regexp.Regexp
	ftCurrency *regexp.Regexp
	ftDueDate  *regexp.Regexp

	classifier *DocTypeClassifier
}

// NewParser compiles the field patterns and returns a ready parser.
func NewParser() *Parser {
	return &Parser{
		billNumber: regexp.MustCompile(`(?i)(?:` + billNumberAlts + `)[:\s]*([\w-]+)`),
		amount:     regexp.MustCompile(`(?i)(?:` + totalAmountAlts + `)[:\s]*([$€£¥]?)\s*([\d.,]+)`),
		// Label is case-insensitive, the captured name keeps its casing.
		// Name words are joined by spaces only so a capture never crosses
		// into the next line.
		customer:   regexp.MustCompile(`(?i:` + customerAlts + `)[:\s]*([A-Z][a-z]+(?:[ \t][A-Z][a-z]+){1,3})`),
		remittance: regexp.MustCompile(`(?i)(?:` + remittanceAlts + `)`),

		ftPayee:    regexp.MustCompile(`(?i)Pay to the order of (.*?)(?: the sum| on or before)`),
		ftAmount:   regexp.MustCompile(`(?i)the sum of [$€£¥]?\s*([\d,.]+)`),
		ftCurrency: regexp.MustCompile(`(?i)the sum of ([$€£¥])`),
		ftDueDate:  regexp.MustCompile(`(?i)on or before (.*)`),

		classifier: NewDocTypeClassifier(),
	}
}

// Parse turns extracted bill text into a Record. The structured pass is
// authoritative when it finds a bill number; otherwise the free-text pass is
// consulted. When neither pass yields anything, parsing fails. A record
// without a bill number may still be returned (free-text instruments carry
// none); callers that require one enforce that precondition themselves.
func (p *Parser) Parse(text string) (*Record, error) {
	rec := p.parseStructured(text)
	if rec.BillNumber == "" {
		ft := p.parseFreeText(text)
		if ft == nil {
			return nil, fmt.Errorf("%w: could not identify bill number", apperrors.ErrParse)
		}
		rec = ft
	}

	rec.DocumentType = p.classifier.Classify(text)
	rec.RemittanceCoupon = p.FindRemittanceCoupon(text)
	return rec, nil
}

// parseStructured searches for labeled fields (bill number, amount with an
// optional currency symbol, customer name).
func (p *Parser) parseStructured(text string) *Record {
	rec := &Record{
		TotalAmount: NA(),
		Currency:    "N/A",
	}

	if m := p.billNumber.FindStringSubmatch(text); m != nil {
		rec.BillNumber = strings.TrimSpace(m[1])
	}

	if m := p.amount.FindStringSubmatch(text); m != nil {
		rec.TotalAmount = ParseAmount(m[2])
		if iso, ok := symbolToCurrency[m[1]]; ok {
			rec.Currency = iso
		}
	}

	if m := p.customer.FindStringSubmatch(text); m != nil {
		rec.CustomerName = strings.TrimSpace(m[1])
	} else {
		rec.CustomerName = DefaultCustomerName
	}

	return rec
}

// parseFreeText matches narrative phrasing of the form "Pay to the order of
// X the sum of Y on or before Z". Returns nil when nothing matches.
func (p *Parser) parseFreeText(text string) *Record {
	rec := &Record{
		TotalAmount:  NA(),
		Currency:     "N/A",
		CustomerName: DefaultCustomerName,
	}
	found := false

	if m := p.ftPayee.FindStringSubmatch(text); m != nil {
		rec.Payee = strings.TrimSpace(m[1])
		found = true
	}
	if m := p.ftAmount.FindStringSubmatch(text); m != nil {
		rec.TotalAmount = ParseAmount(m[1])
		found = true
	}
	if m := p.ftCurrency.FindStringSubmatch(text); m != nil {
		if iso, ok := symbolToCurrency[m[1]]; ok {
			rec.Currency = iso
			found = true
		}
	}
	if m := p.ftDueDate.FindStringSubmatch(text); m != nil {
		rec.DueDate = strings.ReplaceAll(strings.TrimSpace(m[1]), ".", "")
		found = true
	}

	if !found {
		return nil
	}
	return rec
}

// FindRemittanceCoupon locates the payment-stub region of the bill text with
// a line heuristic: the first line matching a remittance keyword plus the
// following lines, capped at ten.
func (p *Parser) FindRemittanceCoupon(text string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if p.remittance.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start + 10
	if end > len(lines) {
		end = len(lines)
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}
