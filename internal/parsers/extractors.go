package parsers

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/lottery"
	"lottery-reconciliation-service/internal/models"
)

// PhoneLength is the fixed length of local subscriber numbers.
const PhoneLength = 8

var (
	digitRunPattern = regexp.MustCompile(`\d+`)
	nonDigitPattern = regexp.MustCompile(`\D`)

	dateTimePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`)
	datePattern     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

	// Cells shaped like a calendar date or a clock time carry no amount.
	dateShapedPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}[./]\d{2}[./]\d{4}|^\d{1,2}:\d{2}(?::\d{2})?$`)
	// Hyphens and brackets may split a phone inside one token, e.g. 9911-2233.
	phoneSeparators = strings.NewReplacer("-", "", "(", "", ")", "")

	// A bare run of 7+ digits is a reference number, never an amount.
	referencePattern = regexp.MustCompile(`^\d{7,}$`)
	// First signed or unsigned decimal in a cleaned cell.
	amountPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

	prosePattern = regexp.MustCompile(`[^\d\s.,:+\-]`)

	minAmount    = decimal.NewFromInt(10)
	amountShaped = decimal.NewFromInt(1000)
)

// ExtractPhone returns the first 8 digits of the first digit run in the
// joined row that is at least 8 digits long. A longer run such as an
// account number still yields its 8-digit prefix. Within a space-separated
// token hyphens and brackets are ignored, except in dates.
func ExtractPhone(row models.Row) *string {
	for _, token := range strings.Fields(row.Joined()) {
		if !dateShapedPattern.MatchString(token) {
			token = phoneSeparators.Replace(token)
		}
		for _, run := range digitRunPattern.FindAllString(token, -1) {
			if len(run) >= PhoneLength {
				phone := run[:PhoneLength]
				return &phone
			}
		}
	}
	return nil
}

// ExtractTxID scans from the last cell backwards. A cell that is a bare
// reference (only digits, at least 7, and not phone-shaped) wins first;
// otherwise the first cell whose digits alone number 9 or more.
func ExtractTxID(row models.Row) *string {
	for i := len(row) - 1; i >= 0; i-- {
		c := row[i]
		if referencePattern.MatchString(c) && len(c) != PhoneLength {
			id := c
			return &id
		}
	}
	for i := len(row) - 1; i >= 0; i-- {
		digits := nonDigitPattern.ReplaceAllString(row[i], "")
		if len(digits) >= 9 {
			return &digits
		}
	}
	return nil
}

// ExtractTimestamp returns the instant in the first cell that carries a
// date, using the time of day when the cell has one. The wall clock is
// read in loc. An impossible calendar date is absent.
func ExtractTimestamp(row models.Row, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	for _, c := range row {
		if m := dateTimePattern.FindString(c); m != "" {
			wall := m[:10] + " " + m[len(m)-8:]
			return parseInstant("2006-01-02 15:04:05", wall, loc)
		}
		if m := datePattern.FindString(c); m != "" {
			return parseInstant("2006-01-02", m, loc)
		}
	}
	return nil
}

func parseInstant(layout, value string, loc *time.Location) *time.Time {
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// ExtractAmount scans cells in order and reads the first number of each.
// Cells holding a phone, a bare reference id, a date or a time are not
// amounts. Values below 10 are ignored. The scan keeps the first accepted
// value and stops early at the first one that has a decimal point or is
// at least 1000.
func ExtractAmount(row models.Row) decimal.NullDecimal {
	var result decimal.NullDecimal
	for _, c := range row {
		v, ok := parseAmountCell(c)
		if !ok || v.LessThan(minAmount) {
			continue
		}
		if strings.Contains(c, ".") || v.GreaterThanOrEqual(amountShaped) {
			return decimal.NewNullDecimal(v)
		}
		if !result.Valid {
			result = decimal.NewNullDecimal(v)
		}
	}
	return result
}

// ParseAmount parses a single free-form amount such as "50,000.00" or "₮ 50 000".
// Unlike statement cells, long bare digit strings are accepted.
func ParseAmount(s string) (decimal.Decimal, bool) {
	return parseAmountText(strings.TrimSpace(s))
}

func parseAmountCell(c string) (decimal.Decimal, bool) {
	if referencePattern.MatchString(c) || dateShapedPattern.MatchString(c) {
		return decimal.Zero, false
	}
	if ExtractPhone(models.Row{c}) != nil {
		return decimal.Zero, false
	}
	return parseAmountText(c)
}

func parseAmountText(c string) (decimal.Decimal, bool) {
	if c == "" {
		return decimal.Zero, false
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, c)

	m := amountPattern.FindString(cleaned)
	if m == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.TrimPrefix(m, "+"))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// ExtractLotteryID looks the uppercased joined row up in the catalog.
func ExtractLotteryID(row models.Row, catalog *lottery.Catalog) *string {
	if catalog == nil {
		catalog = lottery.DefaultCatalog()
	}
	code, ok := catalog.Lookup(strings.ToUpper(row.Joined()))
	if !ok {
		return nil
	}
	return &code
}

// ExtractDescription prefers the longest prose-looking cell, one with a
// character outside digits, whitespace and . , : + -. Otherwise the
// longest cell. Ties keep the first.
func ExtractDescription(row models.Row) string {
	desc, descLen := "", 0
	for _, c := range row {
		if n := utf8.RuneCountInString(c); n > descLen && prosePattern.MatchString(c) {
			desc, descLen = c, n
		}
	}
	if desc != "" {
		return desc
	}
	for _, c := range row {
		if n := utf8.RuneCountInString(c); n > descLen {
			desc, descLen = c, n
		}
	}
	return desc
}
