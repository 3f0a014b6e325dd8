package parsers

import (
	"fmt"
	"time"

	"lottery-reconciliation-service/internal/lottery"
)

// DelimiterSampleLines is how many non-empty lines delimiter detection reads.
const DelimiterSampleLines = 20

// Config holds what the classifier needs beyond the row itself
type Config struct {
	// Location interprets wall-clock statement timestamps. Bank portals
	// export local time without an offset.
	Location *time.Location `json:"-"`

	// Catalog is the lottery code table used for tagging rows.
	Catalog *lottery.Catalog `json:"-"`
}

// DefaultConfig returns UTC timestamps and the built-in lottery codes
func DefaultConfig() *Config {
	return &Config{
		Location: time.UTC,
		Catalog:  lottery.DefaultCatalog(),
	}
}

// Validate checks if the parser configuration is usable
func (c *Config) Validate() error {
	if c.Location == nil {
		return fmt.Errorf("location cannot be nil")
	}
	if c.Catalog == nil {
		return fmt.Errorf("lottery catalog cannot be nil")
	}
	return nil
}

// LoadLocation resolves an IANA zone name, treating "" as UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
