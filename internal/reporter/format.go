package reporter

import (
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/models"
)

// FormatAmount renders an amount with thousands separators. Whole values
// have no decimals, anything else is shown with two.
func FormatAmount(d decimal.Decimal) string {
	var s string
	if d.Equal(d.Truncate(0)) {
		s = d.StringFixed(0)
	} else {
		s = d.StringFixed(2)
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, ch := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// badgeSet colors classification labels for terminals.
type badgeSet struct {
	matched *color.Color
	wrong   *color.Color
	missing *color.Color
	warning *color.Color
}

func newBadgeSet(enabled bool) *badgeSet {
	b := &badgeSet{
		matched: color.New(color.BgGreen, color.FgBlack),
		wrong:   color.New(color.BgYellow, color.FgBlack),
		missing: color.New(color.BgRed, color.FgWhite),
		warning: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{b.matched, b.wrong, b.missing, b.warning} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return b
}

func (b *badgeSet) render(class models.Classification) string {
	switch class {
	case models.ClassificationMatched:
		return b.matched.Sprint(class.String())
	case models.ClassificationWrongAmount:
		return b.wrong.Sprint(class.String())
	default:
		return b.missing.Sprint(class.String())
	}
}

func (b *badgeSet) warn(s string) string {
	return b.warning.Sprint(s)
}
