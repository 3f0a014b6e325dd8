package config

import (
	"fmt"
	"strings"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/lottery"
	"lottery-reconciliation-service/internal/parsers"
	"lottery-reconciliation-service/internal/reconciler"
	"lottery-reconciliation-service/internal/reporter"
	"lottery-reconciliation-service/pkg/logger"
)

// CreateLoggerConfig creates a logger configuration. verbose forces debug.
func CreateLoggerConfig(level, format string, verbose bool) *logger.Config {
	config := logger.DefaultConfig()

	if level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if verbose {
		config.Level = logger.DebugLevel
	}

	return config
}

// CreateParserConfig creates the classifier configuration. An empty
// catalogPath keeps the built-in lottery codes.
func CreateParserConfig(timezone, catalogPath string) (*parsers.Config, error) {
	config := parsers.DefaultConfig()

	loc, err := parsers.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	config.Location = loc

	if catalogPath != "" {
		catalog, err := lottery.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		config.Catalog = catalog
	}

	return config, nil
}

// CreateServiceConfig creates a service configuration
func CreateServiceConfig(maxInputBytes, workers int, showProgress bool) *reconciler.Config {
	config := reconciler.DefaultConfig()

	// Apply CLI overrides
	if maxInputBytes > 0 {
		config.MaxInputBytes = maxInputBytes
	}
	if workers > 0 {
		config.Merger.Workers = workers
	}
	config.Merger.ProgressEnabled = showProgress

	return config
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, useColors, maskPhones bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.MaskPhones = maskPhones

	switch reporter.OutputFormat(strings.ToLower(format)) {
	case reporter.FormatConsole, "":
		config.Format = reporter.FormatConsole
		config.UseColors = useColors
	case reporter.FormatJSON:
		config.Format = reporter.FormatJSON
		config.UseColors = false
	case reporter.FormatCSV:
		config.Format = reporter.FormatCSV
		config.UseColors = false
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	default:
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}

	return config, nil
}

// CreateAuditOptions turns the audit flags into auditor options. A fee
// that does not parse as a positive amount disables amount comparison.
func CreateAuditOptions(fee, dedupe string, onlyMatched bool) (auditor.Options, error) {
	mode, err := auditor.ParseDedupeMode(dedupe)
	if err != nil {
		return auditor.Options{}, err
	}
	return auditor.Options{
		Fee:         auditor.ParseFee(fee),
		Dedupe:      mode,
		OnlyMatched: onlyMatched,
	}, nil
}

// ValidateConfig validates that all required configurations are valid
func ValidateConfig(parserConfig *parsers.Config, serviceConfig *reconciler.Config, reportConfig *reporter.ReportConfig) error {
	if err := parserConfig.Validate(); err != nil {
		return fmt.Errorf("invalid parser config: %w", err)
	}
	if err := serviceConfig.Validate(); err != nil {
		return fmt.Errorf("invalid service config: %w", err)
	}
	if reportConfig != nil {
		if err := reportConfig.Validate(); err != nil {
			return fmt.Errorf("invalid report config: %w", err)
		}
	}
	return nil
}
