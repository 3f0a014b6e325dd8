// Package lottery holds the table of known lottery codes used to tag
// statement rows. A Catalog is immutable once built and safe to share.
package lottery

import (
	"fmt"
	"regexp"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fallbackPattern catches codes the table does not know yet.
var fallbackPattern = regexp.MustCompile(`\b[A-Z]{1,8}\d{1,4}\b`)

// Code is a canonical lottery code with the raw spellings that map to it.
type Code struct {
	Code    string   `koanf:"code" json:"code"`
	Aliases []string `koanf:"aliases" json:"aliases"`
}

type token struct {
	raw       string
	canonical string
}

// Catalog matches free text against known codes in a fixed order:
// canonical codes first, then aliases, each in declaration order.
type Catalog struct {
	tokens []token
	codes  []string
}

// DefaultCatalog returns the built-in code table.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog([]Code{
		{Code: "L200", Aliases: []string{"LAND200", "LC200"}},
		{Code: "HILUX"},
		{Code: "P30", Aliases: []string{"PRIUS30"}},
	})
	return c
}

// NewCatalog builds a catalog from code definitions.
func NewCatalog(codes []Code) (*Catalog, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("catalog needs at least one code")
	}

	c := &Catalog{}
	seen := make(map[string]bool)
	add := func(raw, canonical string) error {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			return fmt.Errorf("empty code for %q", canonical)
		}
		if seen[raw] {
			return fmt.Errorf("duplicate code %q", raw)
		}
		seen[raw] = true
		c.tokens = append(c.tokens, token{raw: raw, canonical: canonical})
		return nil
	}

	for _, code := range codes {
		canonical := strings.ToUpper(strings.TrimSpace(code.Code))
		if err := add(canonical, canonical); err != nil {
			return nil, err
		}
		c.codes = append(c.codes, canonical)
	}
	for _, code := range codes {
		canonical := strings.ToUpper(strings.TrimSpace(code.Code))
		for _, alias := range code.Aliases {
			if err := add(alias, canonical); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// LoadCatalog reads a JSON code table of the form
// {"codes":[{"code":"L200","aliases":["LAND200"]}]}.
func LoadCatalog(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("loading lottery catalog: %w", err)
	}

	var codes []Code
	if err := k.Unmarshal("codes", &codes); err != nil {
		return nil, fmt.Errorf("decoding lottery catalog: %w", err)
	}

	return NewCatalog(codes)
}

// Lookup returns the canonical code for the first known token contained
// in text, falling back to the generic letters-then-digits pattern.
// text is expected to be uppercased already.
func (c *Catalog) Lookup(text string) (string, bool) {
	for _, t := range c.tokens {
		if strings.Contains(text, t.raw) {
			return t.canonical, true
		}
	}
	if m := fallbackPattern.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

// Codes returns the canonical codes in declaration order
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.codes))
	copy(out, c.codes)
	return out
}
