package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

// DefaultWorkers bounds concurrent store writes per Merge call.
const DefaultWorkers = 4

// MergerConfig tunes a Merger
type MergerConfig struct {
	Workers         int  `json:"workers"`
	MaxRowErrors    int  `json:"max_row_errors"`
	ProgressEnabled bool `json:"progress_enabled"`
}

// DefaultMergerConfig returns the default worker count and error retention
func DefaultMergerConfig() *MergerConfig {
	return &MergerConfig{
		Workers:      DefaultWorkers,
		MaxRowErrors: 20,
	}
}

// Merger writes candidate records into a Store.
type Merger struct {
	store  Store
	config *MergerConfig
	logger logger.Logger

	mu        sync.Mutex
	rowErrors []*errors.RowError
}

// NewMerger creates a merger over store
func NewMerger(store Store, config *MergerConfig, log logger.Logger) *Merger {
	if config == nil {
		config = DefaultMergerConfig()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Merger{
		store:  store,
		config: config,
		logger: log.WithComponent("merger"),
	}
}

// task is one unit of work for the pool: every candidate sharing a tx id,
// in input order, or a single append.
type task struct {
	txID    string
	records []*models.CandidateRecord
}

// Merge persists candidates and returns exact counts. Noise is skipped.
// A negative amount anywhere aborts before the first write. Store faults
// caused by a row's data are counted as failed; any other store fault
// aborts the call with store_unavailable.
func (m *Merger) Merge(ctx context.Context, candidates []*models.CandidateRecord) (*models.MergeResult, error) {
	result := &models.MergeResult{
		Total:   len(candidates),
		BatchID: uuid.NewString(),
	}
	log := m.logger.WithBatch(result.BatchID)

	for i, rec := range candidates {
		if rec == nil || rec.IsNoise() {
			continue
		}
		if err := rec.Validate(); err != nil {
			return nil, errors.ValidationError(errors.CodeInvariantViolation, "record", lineOf(rec, i), err).
				WithContext("batch_id", result.BatchID).
				WithIncident()
		}
	}

	tasks, skipped := plan(candidates)
	result.Skipped = skipped

	op := logger.NewOperationLogger("merge", log).WithFields(logger.Fields{
		"candidates": len(candidates),
		"tasks":      len(tasks),
		"workers":    m.config.Workers,
	})

	var progress *logger.ProgressTracker
	if m.config.ProgressEnabled {
		progress = logger.NewProgressTracker(logger.ProgressConfig{
			Operation: "merge",
			Total:     int64(len(candidates) - skipped),
			Logger:    log,
		})
	}

	collector := errors.NewRowErrorCollector(m.config.MaxRowErrors)
	var (
		countMu  sync.Mutex
		inserted int
		failed   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Workers)

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			for _, rec := range t.records {
				affected, err := m.apply(gctx, rec)
				if err != nil {
					if !stderrors.Is(err, ErrRowRejected) {
						return err
					}
					collector.Add(errors.NewRowError(&errors.RowContext{
						Line:  rec.Line,
						TxID:  t.txID,
						Cells: rec.Raw,
					}, "merge", err))
				}

				countMu.Lock()
				switch {
				case err != nil:
					failed++
				case affected:
					inserted++
				default:
					result.Skipped++
				}
				countMu.Unlock()

				if progress != nil {
					progress.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		serr := errors.StoreError(errors.CodeStoreUnavailable, "merge", err).
			WithContext("batch_id", result.BatchID).
			WithIncident()
		op.Error(err, fmt.Sprintf("Merge aborted (incident %s)", serr.Incident))
		return nil, serr
	}

	result.Inserted = inserted
	result.Failed = failed
	if progress != nil {
		progress.Finish()
	}

	m.mu.Lock()
	m.rowErrors = collector.GetErrors()
	m.mu.Unlock()

	if failed > 0 {
		summary := collector.GetSummary()
		log.WithFields(logger.Fields{
			"failed":  failed,
			"by_code": summary.ByCode,
		}).Warn(errors.FormatRowErrorsForUser(collector.GetErrors(), failed))
	}
	op.WithFields(logger.Fields{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	}).Success("Merge completed")

	return result, nil
}

// RowErrors returns the row faults retained from the last Merge call
func (m *Merger) RowErrors() []*errors.RowError {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*errors.RowError, len(m.rowErrors))
	copy(out, m.rowErrors)
	return out
}

func (m *Merger) apply(ctx context.Context, rec *models.CandidateRecord) (bool, error) {
	if rec.TxID != nil {
		return m.store.UpsertByTxID(ctx, rec)
	}
	if err := m.store.Append(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// plan groups candidates by tx id in first-seen order. Records without an
// id each get their own task. It returns the noise count alongside.
func plan(candidates []*models.CandidateRecord) ([]*task, int) {
	var (
		tasks   []*task
		byTxID  = make(map[string]*task)
		skipped int
	)
	for _, rec := range candidates {
		if rec == nil || rec.IsNoise() {
			skipped++
			continue
		}
		if rec.TxID == nil {
			tasks = append(tasks, &task{records: []*models.CandidateRecord{rec}})
			continue
		}
		if t, ok := byTxID[*rec.TxID]; ok {
			t.records = append(t.records, rec)
			continue
		}
		t := &task{txID: *rec.TxID, records: []*models.CandidateRecord{rec}}
		byTxID[t.txID] = t
		tasks = append(tasks, t)
	}
	return tasks, skipped
}

func lineOf(rec *models.CandidateRecord, index int) int {
	if rec.Line > 0 {
		return rec.Line
	}
	return index + 1
}
