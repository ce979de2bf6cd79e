package pharmacy

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayDateLayout renders dates as abbreviated month, day and year.
const DisplayDateLayout = "Jan 2, 2006"

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount as a US dollar string, for example
// 1234.5 -> "$1,234.50".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	units := rounded.IntPart()
	cents := rounded.Sub(decimal.NewFromInt(units)).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, usPrinter.Sprintf("%d", units), cents)
}

// FormatDate renders a calendar date, for example "Oct 15, 2023".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayDateLayout)
}

// ISODate renders the raw stored form of a date.
func ISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

var folder = cases.Fold()

// fold returns the case-folded form used for case-insensitive matching.
func fold(s string) string {
	return folder.String(s)
}

// matcher reports whether a record field contains the search query.
type matcher struct {
	raw    string
	folded string
}

func newMatcher(query string) matcher {
	return matcher{raw: query, folded: fold(query)}
}

func (m matcher) empty() bool {
	return m.raw == ""
}

// fold matches case-insensitively.
func (m matcher) fold(field string) bool {
	return strings.Contains(fold(field), m.folded)
}

// exact matches the raw query against the raw field.
func (m matcher) exact(field string) bool {
	return strings.Contains(field, m.raw)
}

// name matches a joined name; an unresolved name never matches.
func (m matcher) name(n OptionalName) bool {
	return n.Valid && m.fold(n.Value)
}
