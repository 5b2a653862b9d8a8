package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value extracted from a bill. Extraction is best
// effort: when the captured string cannot be read as a number the amount is
// recorded as the "N/A" sentinel rather than failing the parse.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NA returns the not-available sentinel amount.
func NA() Amount {
	return Amount{}
}

// AmountFrom wraps a decimal value in a valid Amount.
func AmountFrom(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// ParseAmount normalizes a captured amount string and parses it.
//
// When both "," and "." appear, the earlier separator is the thousands
// separator: "1,234.56" is US formatted, "1.234,56" European. With a single
// comma, a trailing three-digit group ("1,234") reads as thousands;
// anything else ("12,5") reads as a European decimal.
func ParseAmount(raw string) Amount {
	s := normalizeAmountString(strings.TrimSpace(raw))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return NA()
	}
	return AmountFrom(d)
}

func normalizeAmountString(s string) string {
	commaIdx := strings.Index(s, ",")
	dotIdx := strings.Index(s, ".")

	switch {
	case commaIdx >= 0 && dotIdx >= 0:
		if commaIdx < dotIdx {
			// US format: "," groups thousands
			return strings.ReplaceAll(s, ",", "")
		}
		// European format: "." groups thousands, "," is the decimal mark
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)

	case commaIdx >= 0:
		if strings.Count(s, ",") == 1 && len(s)-commaIdx-1 != 3 {
			// "12,5" reads as a decimal, "1,234" as thousands
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	default:
		return s
	}
}

// String renders the amount the way it appears in log records.
func (a Amount) String() string {
	if !a.Valid {
		return "N/A"
	}
	return a.Value.String()
}

// Float64 returns the amount as a float, valid only when Valid is true.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// Equal reports whether two amounts carry the same value and validity.
func (a Amount) Equal(b Amount) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Value.Equal(b.Value)
}

// MarshalJSON renders a number for valid amounts and the "N/A" sentinel
// otherwise, matching the shape consumers of the bill record expect.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte(`"N/A"`), nil
	}
	return []byte(a.Value.String()), nil
}

// UnmarshalJSON accepts either a number or the "N/A" sentinel.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "N/A" || s == "null" {
		*a = NA()
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*a = AmountFrom(d)
	return nil
}
