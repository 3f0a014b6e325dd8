// Package reconciler is the entry point for imports and audits. It guards
// the engine with input checks, wires the classifier to the ledger and
// the auditor, and turns structural failures into incidents.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/ledger"
	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/internal/parsers"
	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

// Config holds configuration options for the service
type Config struct {
	MaxInputBytes int                  `json:"max_input_bytes"`
	Merger        *ledger.MergerConfig `json:"merger"`
}

// DefaultConfig returns the default limits
func DefaultConfig() *Config {
	return &Config{
		MaxInputBytes: DefaultMaxInputBytes,
		Merger:        ledger.DefaultMergerConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxInputBytes <= 0 {
		return fmt.Errorf("max input bytes must be positive, got %d", c.MaxInputBytes)
	}
	if c.Merger != nil && c.Merger.Workers < 0 {
		return fmt.Errorf("merge workers cannot be negative, got %d", c.Merger.Workers)
	}
	return nil
}

// LedgerQuery selects stored entries to audit. A set Phone lists that
// phone's entries, otherwise the most recent ones.
type LedgerQuery struct {
	Phone string `json:"phone,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ProcessingStats describes the last operation the service ran
type ProcessingStats struct {
	Operation string              `json:"operation"`
	Parse     *parsers.ParseStats `json:"parse,omitempty"`
	Merge     *models.MergeResult `json:"merge,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// Service runs imports and audits.
type Service struct {
	classifier *parsers.Classifier
	merger     *ledger.Merger
	store      ledger.Store
	checker    *InputChecker
	config     *Config
	logger     logger.Logger

	mu    sync.Mutex
	stats *ProcessingStats
}

// NewService creates a service. store may be nil when only Preview is used.
func NewService(classifier *parsers.Classifier, store ledger.Store, config *Config, log logger.Logger) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	s := &Service{
		classifier: classifier,
		store:      store,
		checker:    NewInputChecker(config.MaxInputBytes),
		config:     config,
		logger:     log.WithComponent("reconciler"),
		stats:      &ProcessingStats{},
	}
	if store != nil {
		s.merger = ledger.NewMerger(store, config.Merger, log)
	}
	return s, nil
}

// Import parses text and merges the records into the ledger.
func (s *Service) Import(ctx context.Context, text string) (*models.MergeResult, error) {
	if err := s.checker.CheckText(text); err != nil {
		return nil, s.fail("import", err)
	}
	return s.importText(ctx, text)
}

// ImportBytes decodes uploaded bytes, honoring byte-order marks, then imports.
func (s *Service) ImportBytes(ctx context.Context, data []byte) (*models.MergeResult, error) {
	text, err := s.checker.CheckBytes(data)
	if err != nil {
		return nil, s.fail("import", err)
	}
	return s.importText(ctx, text)
}

func (s *Service) importText(ctx context.Context, text string) (*models.MergeResult, error) {
	if s.merger == nil {
		return nil, s.fail("import", errors.ConfigurationError(errors.CodeMissingConfig, "ledger store", nil, nil))
	}

	start := time.Now()
	op := logger.NewOperationLogger("import", s.logger).WithField("bytes", len(text))

	records, parseStats, err := s.classifier.ParseStatement(text)
	if err != nil {
		return nil, s.fail("import", err)
	}
	op.WithField("rows", parseStats.Rows).Step("parsed")

	result, err := s.merger.Merge(ctx, records)
	if err != nil {
		return nil, s.fail("import", err)
	}

	s.record(&ProcessingStats{
		Operation: "import",
		Parse:     parseStats,
		Merge:     result,
		Duration:  time.Since(start),
	})
	op.WithFields(logger.Fields{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"total":    result.Total,
	}).Success("Import completed")

	return result, nil
}

// Preview parses and audits text without touching storage.
func (s *Service) Preview(text string, opts auditor.Options) (*auditor.Report, error) {
	if err := s.checker.CheckText(text); err != nil {
		return nil, s.fail("preview", err)
	}

	start := time.Now()
	records, parseStats, err := s.classifier.ParseStatement(text)
	if err != nil {
		return nil, s.fail("preview", err)
	}

	report := auditor.Audit(records, opts)
	s.record(&ProcessingStats{Operation: "preview", Parse: parseStats, Duration: time.Since(start)})

	s.logger.WithFields(logger.Fields{
		"rows":            report.TotalRows,
		"matched":         report.MatchedCount,
		"distinct_phones": report.DistinctPhones,
	}).Debug("Preview completed")
	return report, nil
}

// PreviewBytes decodes uploaded bytes and previews them.
func (s *Service) PreviewBytes(data []byte, opts auditor.Options) (*auditor.Report, error) {
	text, err := s.checker.CheckBytes(data)
	if err != nil {
		return nil, s.fail("preview", err)
	}
	return s.Preview(text, opts)
}

// AuditLedger audits entries read back from the store.
func (s *Service) AuditLedger(ctx context.Context, query LedgerQuery, opts auditor.Options) (*auditor.Report, []*models.LedgerEntry, error) {
	if s.store == nil {
		return nil, nil, s.fail("ledger audit", errors.ConfigurationError(errors.CodeMissingConfig, "ledger store", nil, nil))
	}

	var (
		entries []*models.LedgerEntry
		err     error
	)
	if query.Phone != "" {
		if !ledger.ValidPhone(query.Phone) {
			return nil, nil, s.fail("ledger audit", errors.ValidationError(errors.CodeInvalidValue, "phone", query.Phone, nil).
				WithSuggestion("phones are exactly 8 digits"))
		}
		entries, err = s.store.ByPhone(ctx, query.Phone, query.Limit)
	} else {
		entries, err = s.store.Recent(ctx, query.Limit)
	}
	if err != nil {
		return nil, nil, s.fail("ledger audit", errors.StoreError(errors.CodeStoreUnavailable, "ledger query", err))
	}

	records := make([]*models.CandidateRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Record()
	}
	return auditor.Audit(records, opts), entries, nil
}

// GetStats returns statistics for the last completed operation
func (s *Service) GetStats() *ProcessingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.stats
	return &c
}

func (s *Service) record(stats *ProcessingStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

// fail attaches an incident reference to structural failures and logs the
// full cause. Caller mistakes are logged without one.
func (s *Service) fail(operation string, err error) error {
	rerr := errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, operation+" failed")

	log := s.logger.WithFields(logger.Fields{
		logger.FieldOperation: operation,
		"code":                string(rerr.Code),
	})
	if !needsIncident(rerr) {
		log.Warn(rerr.Message)
		return rerr
	}

	if rerr.Incident == "" {
		rerr.WithIncident()
	}
	log.WithIncident(rerr.Incident).WithError(rerr.Unwrap()).Error(rerr.Message)
	return rerr
}

func needsIncident(err *errors.ReconcilerError) bool {
	switch err.Category {
	case errors.CategoryStore:
		return err.IsStructural()
	case errors.CategoryInternal:
		return true
	case errors.CategoryValidation:
		return err.Code == errors.CodeInvariantViolation
	default:
		return false
	}
}
