// Package statementgen generates synthetic bank statement exports for
// lottery ticket payments. Output is deterministic for a given seed, and
// every generated row records what a parser should recover from it.
package statementgen

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Format is the export layout of a generated statement.
type Format string

const (
	FormatTab Format = "tab"
	FormatCSV Format = "csv"
)

// Generator builds statements
type Generator struct {
	Count int
	Fee   decimal.Decimal

	// MatchRatio is the share of payments that pay exactly Fee.
	MatchRatio float64
	// PhonelessRatio is the share of payments without a phone number.
	PhonelessRatio float64
	// Players bounds the number of distinct phones.
	Players int

	Format    Format
	Start     time.Time
	Seed      int64
	Lotteries []string

	// Header and trailer text rows, carrying no phone, id or amount.
	Header  []string
	Trailer []string
}

// Payment is one generated transaction row and the fields it encodes.
type Payment struct {
	Line       int
	TxID       string
	Phone      string
	Amount     decimal.Decimal
	OccurredAt time.Time
	Lottery    string
	Matches    bool
}

// Statement is the generated export plus its expected contents.
type Statement struct {
	Text     string
	Payments []Payment
	Noise    int
}

// NewGenerator returns a generator with lottery site defaults
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Count:          100,
		Fee:            decimal.NewFromInt(50000),
		MatchRatio:     0.8,
		PhonelessRatio: 0.05,
		Players:        60,
		Format:         FormatTab,
		Start:          time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
		Seed:           seed,
		Lotteries:      []string{"L200", "HILUX", "P30"},
		Header:         []string{"Statement of account", "Reference", "Date", "Amount", "Description"},
		Trailer:        []string{"End of statement"},
	}
}

// Validate checks the generator settings
func (g *Generator) Validate() error {
	if g.Count < 0 {
		return fmt.Errorf("count cannot be negative, got %d", g.Count)
	}
	if !g.Fee.IsPositive() {
		return fmt.Errorf("fee must be positive, got %s", g.Fee)
	}
	if g.MatchRatio < 0 || g.MatchRatio > 1 {
		return fmt.Errorf("match ratio must be between 0.0 and 1.0, got %f", g.MatchRatio)
	}
	if g.PhonelessRatio < 0 || g.PhonelessRatio > 1 {
		return fmt.Errorf("phoneless ratio must be between 0.0 and 1.0, got %f", g.PhonelessRatio)
	}
	if g.Players < 1 {
		return fmt.Errorf("players must be positive, got %d", g.Players)
	}
	if g.Format != FormatTab && g.Format != FormatCSV {
		return fmt.Errorf("unsupported format: %s", g.Format)
	}
	if len(g.Lotteries) == 0 {
		return fmt.Errorf("at least one lottery code is required")
	}
	return nil
}

// Generate renders a statement. Header rows come first, then payments in
// time order, then the trailer.
func (g *Generator) Generate() (*Statement, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(g.Seed))

	players := make([]string, g.Players)
	for i := range players {
		players[i] = fmt.Sprintf("%08d", 80000000+rng.Intn(20000000))
	}

	var (
		b    strings.Builder
		line int
		stmt = &Statement{Payments: make([]Payment, 0, g.Count)}
	)

	writeHeader := func(cells []string) {
		if len(cells) == 0 {
			return
		}
		line++
		stmt.Noise++
		b.WriteString(strings.Join(cells, g.separator()))
		b.WriteByte('\n')
	}

	// The title is its own line; column names share one.
	if len(g.Header) > 0 {
		writeHeader(g.Header[:1])
		writeHeader(g.Header[1:])
	}

	for i := 0; i < g.Count; i++ {
		line++
		p := Payment{
			Line:       line,
			TxID:       fmt.Sprintf("%07d", 5890000+i),
			OccurredAt: g.Start.Add(time.Duration(i) * 37 * time.Second),
			Lottery:    g.Lotteries[rng.Intn(len(g.Lotteries))],
			Amount:     g.Fee,
		}
		if rng.Float64() >= g.PhonelessRatio {
			p.Phone = players[rng.Intn(len(players))]
		}
		if rng.Float64() >= g.MatchRatio {
			// Short or over payments in whole thousands, never below 1000.
			delta := decimal.NewFromInt(int64(1+rng.Intn(9)) * 1000)
			if rng.Intn(2) == 0 && g.Fee.GreaterThan(delta.Add(decimal.NewFromInt(1000))) {
				p.Amount = g.Fee.Sub(delta)
			} else {
				p.Amount = g.Fee.Add(delta)
			}
		}
		p.Matches = p.Phone != "" && p.Amount.Equal(g.Fee)

		b.WriteString(g.render(p))
		b.WriteByte('\n')
		stmt.Payments = append(stmt.Payments, p)
	}

	for _, t := range g.Trailer {
		writeHeader([]string{t})
	}

	stmt.Text = b.String()
	return stmt, nil
}

func (g *Generator) separator() string {
	if g.Format == FormatCSV {
		return ","
	}
	return "\t"
}

func (g *Generator) render(p Payment) string {
	description := "CASH DEPOSIT " + p.Lottery
	if p.Phone != "" {
		description = p.Phone + " " + p.Lottery
	}

	amount := p.Amount.StringFixed(2)
	if g.Format == FormatTab && p.Line%3 == 0 {
		amount = "MNT" + amount
	}

	cells := []string{
		p.TxID,
		p.OccurredAt.Format("2006-01-02 15:04:05"),
		amount,
		description,
	}
	return strings.Join(cells, g.separator())
}

// Matched counts payments that pay the fee from a known phone
func (s *Statement) Matched() int {
	n := 0
	for _, p := range s.Payments {
		if p.Matches {
			n++
		}
	}
	return n
}

// DistinctPhones counts the phones that actually appear
func (s *Statement) DistinctPhones() int {
	seen := make(map[string]struct{})
	for _, p := range s.Payments {
		if p.Phone != "" {
			seen[p.Phone] = struct{}{}
		}
	}
	return len(seen)
}

// Rows is the number of non-empty lines in Text
func (s *Statement) Rows() int {
	return len(s.Payments) + s.Noise
}
