package pharmacy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"5.99":        "$5.99",
		"1234.5":      "$1,234.50",
		"100":         "$100.00",
		"0":           "$0.00",
		"12.05":       "$12.05",
		"1234567.891": "$1,234,567.89",
		"-5":          "-$5.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Jun 15, 2025", FormatDate(mustDate("2025-06-15")))
	assert.Equal(t, "Oct 5, 2023", FormatDate(mustDate("2023-10-05")))
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2023-10-05", ISODate(mustDate("2023-10-05")))
}

func TestMatcher(t *testing.T) {
	m := newMatcher("PARA")
	assert.False(t, m.empty())
	assert.True(t, m.fold("Paracetamol"))
	assert.False(t, m.exact("Paracetamol"))
	assert.False(t, m.name(OptionalName{Value: "Paracetamol"}))
	assert.True(t, m.name(ResolvedName("Paracetamol")))

	assert.True(t, newMatcher("").empty())
	assert.True(t, newMatcher("pfizer").fold("PFIZER Inc."))
}
