package billing

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedykit/bill-endorser/internal/apperrors"
)

func TestParser_StructuredBill(t *testing.T) {
	parser := NewParser()

	text := "Acme Power & Light\n" +
		"Customer Name: Jane Rivers\n" +
		"Account Number: ABC-123\n" +
		"Total Amount: $1,200.00\n" +
		"Due immediately\n"

	rec, err := parser.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "ABC-123", rec.BillNumber)
	assert.Equal(t, "Jane Rivers", rec.CustomerName)
	assert.Equal(t, "USD", rec.Currency)
	require.True(t, rec.TotalAmount.Valid)
	assert.True(t, rec.TotalAmount.Value.Equal(decimal.NewFromFloat(1200.00)),
		"expected 1200.00, got %s", rec.TotalAmount.Value)
}

func TestParser_LabelSynonyms(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "account number", text: "Account Number: A-1", want: "A-1"},
		{name: "account no", text: "Account No: B2", want: "B2"},
		{name: "invoice number", text: "Invoice Number: INV-77", want: "INV-77"},
		{name: "bill no", text: "Bill No: 9931", want: "9931"},
		{name: "reference no", text: "Reference No: REF_5", want: "REF_5"},
		{name: "case insensitive label", text: "aCCouNT nUMBer: MX-1", want: "MX-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parser.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.BillNumber)
		})
	}
}

func TestParser_AmountFormats(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name         string
		line         string
		wantAmount   string
		wantCurrency string
		wantValid    bool
	}{
		{name: "us format dollars", line: "Total Amount: $1,234.56", wantAmount: "1234.56", wantCurrency: "USD", wantValid: true},
		{name: "european format euros", line: "Amount Due: €1.234,56", wantAmount: "1234.56", wantCurrency: "EUR", wantValid: true},
		{name: "pounds", line: "Balance Due: £99.95", wantAmount: "99.95", wantCurrency: "GBP", wantValid: true},
		{name: "yen no decimals", line: "Total Amount: ¥15000", wantAmount: "15000", wantCurrency: "JPY", wantValid: true},
		{name: "no symbol", line: "Total Amount: 42.50", wantAmount: "42.5", wantCurrency: "N/A", wantValid: true},
		{name: "single comma thousands", line: "Total Amount: $1,234", wantAmount: "1234", wantCurrency: "USD", wantValid: true},
		{name: "single comma decimal", line: "Total Amount: €12,5", wantAmount: "12.5", wantCurrency: "EUR", wantValid: true},
		{name: "garbage amount", line: "Total Amount: $..,,", wantCurrency: "USD", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parser.Parse("Account Number: X-1\n" + tt.line + "\n")
			require.NoError(t, err)

			assert.Equal(t, tt.wantCurrency, rec.Currency)
			assert.Equal(t, tt.wantValid, rec.TotalAmount.Valid)
			if tt.wantValid {
				want, derr := decimal.NewFromString(tt.wantAmount)
				require.NoError(t, derr)
				assert.True(t, rec.TotalAmount.Value.Equal(want),
					"expected %s, got %s", want, rec.TotalAmount.Value)
			}
		})
	}
}

func TestParser_MissingAmountIsSentinel(t *testing.T) {
	parser := NewParser()

	rec, err := parser.Parse("Account Number: NO-AMT\nNothing else here\n")
	require.NoError(t, err)

	assert.False(t, rec.TotalAmount.Valid)
	assert.Equal(t, "N/A", rec.TotalAmount.String())
	assert.Equal(t, "N/A", rec.Currency)
}

func TestParser_CustomerNameDefault(t *testing.T) {
	parser := NewParser()

	rec, err := parser.Parse("Account Number: D-1\nTotal Amount: $5.00\n")
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomerName, rec.CustomerName)
}

func TestParser_CustomerNameRequiresCapitalizedWords(t *testing.T) {
	parser := NewParser()

	// The name capture is case-sensitive even though the label is not. An
	// all-lowercase value is treated as absent rather than captured.
	rec, err := parser.Parse("Account Number: LC-1\ncustomer name: jane rivers\n")
	require.NoError(t, err)
	assert.Equal(t, DefaultCustomerName, rec.CustomerName)

	rec, err = parser.Parse("Account Number: LC-2\ncustomer name: Jane Rivers\n")
	require.NoError(t, err)
	assert.Equal(t, "Jane Rivers", rec.CustomerName)
}

func TestParser_BillNumberTrimmed(t *testing.T) {
	parser := NewParser()

	rec, err := parser.Parse("Account Number:   TRIM-42  \n")
	require.NoError(t, err)
	assert.Equal(t, "TRIM-42", rec.BillNumber)
}

func TestParser_FreeTextBill(t *testing.T) {
	parser := NewParser()

	text := "Pay to the order of Northwind Utilities the sum of $2,450.00 on or before 2025-11-01."

	rec, err := parser.Parse(text)
	require.NoError(t, err)

	assert.Empty(t, rec.BillNumber, "free-text instruments carry no bill number")
	assert.Equal(t, "Northwind Utilities", rec.Payee)
	assert.Equal(t, "USD", rec.Currency)
	require.True(t, rec.TotalAmount.Valid)
	assert.True(t, rec.TotalAmount.Value.Equal(decimal.NewFromFloat(2450.00)))
	assert.Equal(t, "2025-11-01", rec.DueDate)
}

func TestParser_StructuredPassIsAuthoritative(t *testing.T) {
	parser := NewParser()

	// Both shapes present: the labeled bill number wins.
	text := "Account Number: AUTH-1\nTotal Amount: $10.00\n" +
		"Pay to the order of Someone Else the sum of $99.00 on or before tomorrow"

	rec, err := parser.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "AUTH-1", rec.BillNumber)
	assert.Empty(t, rec.Payee)
}

func TestParser_NoBillNumberFails(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse("just some unrelated prose with no labels at all")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrParse))
	assert.Contains(t, err.Error(), "could not identify bill number")
}

func TestParser_FindRemittanceCoupon(t *testing.T) {
	parser := NewParser()

	lines := []string{
		"Acme Water",
		"Account Number: W-9",
		"Please Detach and return bottom portion with your payment",
		"Amount Due: $42.00",
		"Account: W-9",
	}
	coupon := parser.FindRemittanceCoupon(strings.Join(lines, "\n"))

	assert.Contains(t, coupon, "Please Detach")
	assert.Contains(t, coupon, "Amount Due: $42.00")
	assert.NotContains(t, coupon, "Acme Water")
}

func TestParser_FindRemittanceCoupon_None(t *testing.T) {
	parser := NewParser()
	assert.Empty(t, parser.FindRemittanceCoupon("no coupon markers here"))
}

func TestParser_Parse_SurfacesRemittanceCoupon(t *testing.T) {
	parser := NewParser()

	text := "Account Number: W-9\n" +
		"Total Amount: $42.00\n" +
		"Payment Stub\n" +
		"Return with Payment: $42.00\n"

	rec, err := parser.Parse(text)
	require.NoError(t, err)
	assert.Contains(t, rec.RemittanceCoupon, "Payment Stub")
	assert.Contains(t, rec.RemittanceCoupon, "Return with Payment")

	rec, err = parser.Parse("Account Number: W-9\nTotal Amount: $42.00\n")
	require.NoError(t, err)
	assert.Empty(t, rec.RemittanceCoupon)
}
