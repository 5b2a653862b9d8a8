package billing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		wantValid bool
	}{
		{in: "1,234.56", want: "1234.56", wantValid: true},
		{in: "1.234,56", want: "1234.56", wantValid: true},
		{in: "1,234,567.89", want: "1234567.89", wantValid: true},
		{in: "1,234", want: "1234", wantValid: true},
		{in: "12,5", want: "12.5", wantValid: true},
		{in: "42.50", want: "42.5", wantValid: true},
		{in: "15000", want: "15000", wantValid: true},
		{in: "  7.00 ", want: "7", wantValid: true},
		{in: "", wantValid: false},
		{in: "..,,", wantValid: false},
		{in: "abc", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAmount(tt.in)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				want, err := decimal.NewFromString(tt.want)
				require.NoError(t, err)
				assert.True(t, got.Value.Equal(want), "expected %s, got %s", want, got.Value)
			}
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "N/A", NA().String())
	assert.Equal(t, "1200", AmountFrom(decimal.NewFromInt(1200)).String())
}

func TestAmount_Equal(t *testing.T) {
	a := AmountFrom(decimal.NewFromFloat(10.50))
	b := AmountFrom(decimal.NewFromFloat(10.5))

	assert.True(t, a.Equal(b))
	assert.True(t, NA().Equal(NA()))
	assert.False(t, a.Equal(NA()))
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	valid := AmountFrom(decimal.RequireFromString("1234.56"))

	data, err := json.Marshal(valid)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(valid))

	data, err = json.Marshal(NA())
	require.NoError(t, err)
	assert.Equal(t, `"N/A"`, string(data))

	var na Amount
	require.NoError(t, json.Unmarshal(data, &na))
	assert.False(t, na.Valid)
}
