package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker logs row throughput for long running work. Add may be
// called from many goroutines.
type ProgressTracker struct {
	logger   Logger
	total    int64
	interval time.Duration

	mu      sync.Mutex
	done    int64
	started time.Time
	logged  time.Time
}

// ProgressConfig configures a ProgressTracker
type ProgressConfig struct {
	Operation string `json:"operation"`
	// Total is the expected row count, or zero when unknown.
	Total       int64         `json:"total"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewProgressTracker starts the clock. The interval defaults to 5s.
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval <= 0 {
		config.LogInterval = 5 * time.Second
	}

	now := time.Now()
	return &ProgressTracker{
		logger:   config.Logger.WithField(FieldOperation, config.Operation),
		total:    config.Total,
		interval: config.LogInterval,
		started:  now,
		logged:   now,
	}
}

// Add records n processed rows and logs if the interval has passed
func (p *ProgressTracker) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += n
	if now := time.Now(); now.Sub(p.logged) >= p.interval {
		p.log(now, "Progress update")
		p.logged = now
	}
}

// Current returns the number of processed rows
func (p *ProgressTracker) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish logs the final count regardless of the interval
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log(time.Now(), "Progress complete")
}

func (p *ProgressTracker) log(now time.Time, msg string) {
	elapsed := now.Sub(p.started)
	fields := Fields{"processed": p.done}

	if secs := elapsed.Seconds(); secs > 0 {
		rate := float64(p.done) / secs
		fields["rate"] = fmt.Sprintf("%.1f rows/s", rate)
		if p.total > p.done && rate > 0 {
			eta := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
			fields["eta"] = eta.Round(time.Second).String()
		}
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percent"] = fmt.Sprintf("%.1f%%", float64(p.done)/float64(p.total)*100)
	}

	p.logger.WithFields(fields).Info(msg)
}

// OperationLogger times one operation and logs its start, steps and outcome
// with a shared set of fields.
type OperationLogger struct {
	logger  Logger
	started time.Time

	mu     sync.Mutex
	fields Fields
}

// NewOperationLogger logs the start of operation at debug level
func NewOperationLogger(operation string, log Logger) *OperationLogger {
	if log == nil {
		log = GetGlobalLogger()
	}
	log = log.WithField(FieldOperation, operation)
	log.Debug("Starting operation")

	return &OperationLogger{
		logger:  log,
		started: time.Now(),
		fields:  make(Fields),
	}
}

// WithField adds a field to every later entry
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	return ol.WithFields(Fields{key: value})
}

// WithFields adds fields to every later entry
func (ol *OperationLogger) WithFields(fields Fields) *OperationLogger {
	ol.mu.Lock()
	defer ol.mu.Unlock()
	for k, v := range fields {
		ol.fields[k] = v
	}
	return ol
}

// Step logs an intermediate step at debug level
func (ol *OperationLogger) Step(step string) {
	ol.entry(Fields{"step": step}).Debug("Operation step")
}

// Success logs completion with the elapsed time
func (ol *OperationLogger) Success(message string) {
	ol.entry(ol.outcome("success")).Info(message)
}

// Error logs failure with the elapsed time
func (ol *OperationLogger) Error(err error, message string) {
	ol.entry(ol.outcome("error")).WithError(err).Error(message)
}

// Warning logs a warning carrying the operation fields
func (ol *OperationLogger) Warning(message string) {
	ol.entry(nil).Warn(message)
}

func (ol *OperationLogger) outcome(status string) Fields {
	return Fields{
		"duration": time.Since(ol.started).Round(time.Microsecond).String(),
		"status":   status,
	}
}

func (ol *OperationLogger) entry(extra Fields) Logger {
	ol.mu.Lock()
	merged := make(Fields, len(ol.fields)+len(extra))
	for k, v := range ol.fields {
		merged[k] = v
	}
	ol.mu.Unlock()

	for k, v := range extra {
		merged[k] = v
	}
	return ol.logger.WithFields(merged)
}

// TimedOperation runs fn and logs how it went
func TimedOperation(operation string, log Logger, fn func() error) error {
	ol := NewOperationLogger(operation, log)
	if err := fn(); err != nil {
		ol.Error(err, "Operation failed")
		return err
	}
	ol.Success("Operation completed")
	return nil
}
