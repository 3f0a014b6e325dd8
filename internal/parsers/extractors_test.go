package parsers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/lottery"
	"lottery-reconciliation-service/internal/models"
)

var tieBreakRow = models.Row{"5", "99112233 L200", "50000.00", "2026-01-12 23:26:56", "5890791"}

func strValue(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"tie break row", tieBreakRow, "99112233"},
		{"embedded in text", models.Row{"tolbor 95975944 HILUX"}, "95975944"},
		{"phone with punctuation", models.Row{"9911-2233"}, "99112233"},
		{"bracketed prefix", models.Row{"(9911)2233 L200"}, "99112233"},
		{"dates are not joined", models.Row{"2026-01-12 23:26:56", "12.01.2026"}, "<nil>"},
		{"separate tokens are not joined", models.Row{"9911 2233"}, "<nil>"},
		{"longer run yields prefix", models.Row{"acct 1234567890"}, "12345678"},
		{"short runs only", models.Row{"12", "2026-01-12", "5890791"}, "<nil>"},
		{"empty", models.Row{""}, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strValue(ExtractPhone(tt.row)); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestExtractTxID(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"tie break row", tieBreakRow, "5890791"},
		{"leading reference", models.Row{"5890767", "2026-01-12 23:29:14", "50000.00", "95975944 HILUX"}, "5890767"},
		{"last reference wins", models.Row{"2205246300", "x", "5890791"}, "5890791"},
		{"bare phone is not a reference", models.Row{"99112233", "50000"}, "<nil>"},
		{"digits of a formatted id", models.Row{"Ref 2205-246-300", "note"}, "2205246300"},
		{"nothing long enough", models.Row{"12345", "abc"}, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strValue(ExtractTxID(tt.row)); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestExtractTimestamp(t *testing.T) {
	ub := time.FixedZone("UB", 8*60*60)

	tests := []struct {
		name     string
		row      models.Row
		loc      *time.Location
		expected string
	}{
		{"datetime", tieBreakRow, time.UTC, "2026-01-12T23:26:56.000Z"},
		{"date only", models.Row{"x", "2026-01-12"}, time.UTC, "2026-01-12T00:00:00.000Z"},
		{"first dated cell wins", models.Row{"2026-01-10", "2026-01-12 10:00:00"}, time.UTC, "2026-01-10T00:00:00.000Z"},
		{"extra spaces", models.Row{"2026-01-12   08:30:00"}, time.UTC, "2026-01-12T08:30:00.000Z"},
		{"location offset", models.Row{"2026-01-12 08:00:00"}, ub, "2026-01-12T00:00:00.000Z"},
		{"impossible date", models.Row{"2026-02-30 10:00:00"}, time.UTC, ""},
		{"no date", models.Row{"50000.00"}, time.UTC, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTimestamp(tt.row, tt.loc)
			if tt.expected == "" {
				if got != nil {
					t.Errorf("expected absent, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got absent", tt.expected)
			}
			if s := models.FormatTimestamp(*got); s != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, s)
			}
		})
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"tie break row", tieBreakRow, "50000"},
		{"reference cells skipped", models.Row{"5890791", "2026-01-12 23:26:56", "50000.00", "99112233 L200"}, "50000"},
		{"thousands separators", models.Row{"50,000"}, "50000"},
		{"currency sign", models.Row{"₮ 50 000.00"}, "50000"},
		{"currency code", models.Row{"MNT 1 500 000"}, "1500000"},
		{"first accepted kept", models.Row{"12", "30"}, "12"},
		{"shaped value overrides", models.Row{"12", "30", "2000"}, "2000"},
		{"decimal point is shaped", models.Row{"15", "12.5", "4000"}, "12.5"},
		{"below ten rejected", models.Row{"5", "9.99"}, ""},
		{"negative rejected", models.Row{"-500.00"}, ""},
		{"labelled amount", models.Row{"Дүн: 50,000.00", "99112233"}, "50000"},
		{"trailing currency word", models.Row{"50000.00 төг", "99112233"}, "50000"},
		{"dotted date skipped", models.Row{"12.01.2026", "50000"}, "50000"},
		{"clock time skipped", models.Row{"23:26", "30"}, "30"},
		{"phone cell is not an amount", models.Row{"99112233 L200"}, ""},
		{"hyphenated phone is not an amount", models.Row{"9911-2233"}, ""},
		{"text without digits", models.Row{"CASH DEPOSIT"}, ""},
		{"empty", models.Row{""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractAmount(tt.row)
			if tt.expected == "" {
				if got.Valid {
					t.Errorf("expected absent, got %s", got.Decimal)
				}
				return
			}
			if !got.Valid {
				t.Fatalf("expected %s, got absent", tt.expected)
			}
			if !got.Decimal.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, got.Decimal)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	if v, ok := ParseAmount(" 1500000 "); !ok || !v.Equal(decimal.NewFromInt(1500000)) {
		t.Errorf("expected bare digits accepted, got %v %v", v, ok)
	}
	if _, ok := ParseAmount("abc"); ok {
		t.Error("expected text rejected")
	}
}

func TestExtractLotteryID(t *testing.T) {
	catalog := lottery.DefaultCatalog()

	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"tie break row", tieBreakRow, "L200"},
		{"lowercase alias", models.Row{"land200 tolbor"}, "L200"},
		{"prius alias", models.Row{"prius30", "99112233"}, "P30"},
		{"fallback pattern", models.Row{"XY7 payment"}, "XY7"},
		{"none", models.Row{"50000.00", "2026-01-12"}, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strValue(ExtractLotteryID(tt.row, catalog)); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name     string
		row      models.Row
		expected string
	}{
		{"tie break row", tieBreakRow, "99112233 L200"},
		{"longest prose", models.Row{"abc", "hello world", "12345678901234"}, "hello world"},
		{"fallback to longest", models.Row{"123", "45678", "2026-01-12"}, "2026-01-12"},
		{"tie keeps first", models.Row{"ab", "cd"}, "ab"},
		{"empty cells", models.Row{"", ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDescription(tt.row); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
