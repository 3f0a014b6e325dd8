package ledger

import (
	"fmt"
	"net/url"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the PostgreSQL connection settings. URL, when set, wins
// over the individual fields.
type Config struct {
	URL      string `koanf:"DATABASE_URL"`
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int `koanf:"POSTGRES_MAX_POOL_SIZE"`

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration `koanf:"-"`
	// WriteAttempts is how often a transient write fault is tried.
	WriteAttempts uint `koanf:"-"`
	// RetryDelay is the base delay between write attempts.
	RetryDelay time.Duration `koanf:"-"`
}

// ConfigFromEnv reads the connection settings from the process environment.
func ConfigFromEnv() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("decoding store config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 5
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.WriteAttempts == 0 {
		c.WriteAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
}

// Validate checks that enough is set to reach a database
func (c *Config) Validate() error {
	if c.URL != "" {
		if _, err := url.Parse(c.URL); err != nil {
			return fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("POSTGRES_HOST or DATABASE_URL must be set")
	}
	if c.Database == "" {
		return fmt.Errorf("POSTGRES_DB must be set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("POSTGRES_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxPoolSize < 1 {
		return fmt.Errorf("POSTGRES_MAX_POOL_SIZE must be positive, got %d", c.MaxPoolSize)
	}
	return nil
}

// ConnString renders the settings in libpq form
func (c *Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Redacted describes the target without credentials, for logs
func (c *Config) Redacted() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "<invalid url>"
		}
		return u.Redacted()
	}
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
}
