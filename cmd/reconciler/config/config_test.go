package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/reconciler"
	"lottery-reconciliation-service/internal/reporter"
	"lottery-reconciliation-service/pkg/logger"
)

func TestCreateLoggerConfig(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		verbose     bool
		expectLevel logger.Level
		expectFmt   logger.Format
	}{
		{"defaults", "", "", false, logger.InfoLevel, logger.TextFormat},
		{"explicit", "WARN", "json", false, logger.WarnLevel, logger.JSONFormat},
		{"verbose wins", "error", "", true, logger.DebugLevel, logger.TextFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := CreateLoggerConfig(tt.level, tt.format, tt.verbose)
			if config.Level != tt.expectLevel {
				t.Errorf("expected level %s, got %s", tt.expectLevel, config.Level)
			}
			if config.Format != tt.expectFmt {
				t.Errorf("expected format %s, got %s", tt.expectFmt, config.Format)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("logger config should be valid: %v", err)
			}
		})
	}
}

func TestCreateParserConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := CreateParserConfig("", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Location != time.UTC {
			t.Errorf("expected UTC, got %s", config.Location)
		}
		if code, ok := config.Catalog.Lookup("99112233 L200"); !ok || code != "L200" {
			t.Errorf("expected built-in catalog, got %q", code)
		}
	})

	t.Run("unknown timezone", func(t *testing.T) {
		if _, err := CreateParserConfig("Mars/Olympus", ""); err == nil {
			t.Error("expected error for unknown timezone")
		}
	})

	t.Run("catalog override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codes.json")
		content := `{"codes":[{"code":"TUNDRA","aliases":["TND"]}]}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write catalog: %v", err)
		}

		config, err := CreateParserConfig("UTC", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if code, ok := config.Catalog.Lookup("PAID TND"); !ok || code != "TUNDRA" {
			t.Errorf("expected alias to resolve, got %q", code)
		}
		if codes := config.Catalog.Codes(); len(codes) != 1 || codes[0] != "TUNDRA" {
			t.Errorf("expected the override to replace the built-in codes, got %v", codes)
		}
	})

	t.Run("missing catalog", func(t *testing.T) {
		if _, err := CreateParserConfig("", "/non/existent/codes.json"); err == nil {
			t.Error("expected error for missing catalog file")
		}
	})
}

func TestCreateServiceConfig(t *testing.T) {
	config := CreateServiceConfig(0, 0, false)
	if config.MaxInputBytes != reconciler.DefaultMaxInputBytes {
		t.Errorf("expected default limit, got %d", config.MaxInputBytes)
	}

	config = CreateServiceConfig(1024, 8, true)
	if config.MaxInputBytes != 1024 {
		t.Errorf("expected limit 1024, got %d", config.MaxInputBytes)
	}
	if config.Merger.Workers != 8 || !config.Merger.ProgressEnabled {
		t.Errorf("unexpected merger config %+v", config.Merger)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("service config should be valid: %v", err)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format      string
		colors      bool
		expectFmt   reporter.OutputFormat
		expectColor bool
		expectError bool
	}{
		{"console", true, reporter.FormatConsole, true, false},
		{"", false, reporter.FormatConsole, false, false},
		{"JSON", true, reporter.FormatJSON, false, false},
		{"csv", true, reporter.FormatCSV, false, false},
		{"xml", true, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format, tt.colors, true)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expectFmt {
				t.Errorf("expected format %s, got %s", tt.expectFmt, config.Format)
			}
			if config.UseColors != tt.expectColor {
				t.Errorf("expected colors %v, got %v", tt.expectColor, config.UseColors)
			}
			if !config.MaskPhones {
				t.Error("expected phone masking to carry through")
			}
			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}

func TestCreateAuditOptions(t *testing.T) {
	opts, err := CreateAuditOptions("50,000", "latest", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.Fee.Valid || !opts.Fee.Decimal.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected fee 50000, got %v", opts.Fee)
	}
	if opts.Dedupe != auditor.DedupeLatest || !opts.OnlyMatched {
		t.Errorf("unexpected options %+v", opts)
	}

	opts, err = CreateAuditOptions("abc", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Fee.Valid {
		t.Error("expected unparseable fee to disable the filter")
	}

	if _, err := CreateAuditOptions("", "sometimes", false); err == nil {
		t.Error("expected error for unknown dedupe mode")
	}
}

func TestValidateConfig(t *testing.T) {
	parserConfig, _ := CreateParserConfig("", "")
	serviceConfig := CreateServiceConfig(0, 0, false)
	reportConfig, _ := CreateReportConfig("json", false, false)

	if err := ValidateConfig(parserConfig, serviceConfig, reportConfig); err != nil {
		t.Errorf("expected valid configs, got %v", err)
	}

	serviceConfig.MaxInputBytes = -1
	if err := ValidateConfig(parserConfig, serviceConfig, nil); err == nil {
		t.Error("expected error for negative input limit")
	}

	parserConfig.Location = nil
	if err := ValidateConfig(parserConfig, CreateServiceConfig(0, 0, false), nil); err == nil {
		t.Error("expected error for missing location")
	}
}
