// Package logger wraps logrus behind a small interface. Entries carry the
// fields the reconciler correlates on: component, batch id and incident.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Field keys shared across packages so log queries stay stable.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldBatchID   = "batch_id"
	FieldIncident  = "incident"
)

// Logger is the logging contract used throughout the service
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger

	// WithBatch tags entries with the import batch they belong to.
	WithBatch(batchID string) Logger
	// WithIncident tags entries with an incident id. An empty id is a no-op.
	WithIncident(id string) Logger
}

// Fields is a set of structured key-value pairs
type Fields map[string]interface{}

// Config holds configuration options for the logger
type Config struct {
	Level            Level  `json:"level"`
	Format           Format `json:"format"`
	Output           Output `json:"output"`
	File             string `json:"file,omitempty"`
	DisableTimestamp bool   `json:"disable_timestamp,omitempty"`
	CallerInfo       bool   `json:"caller_info,omitempty"`

	// Writer overrides Output when set.
	Writer io.Writer `json:"-"`
}

// Level is a log severity
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format is a log encoding
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// Output is a log destination
type Output string

const (
	StdoutOutput Output = "stdout"
	StderrOutput Output = "stderr"
	FileOutput   Output = "file"
)

// ParseLevel accepts a level name in any case; "warning" means warn.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return l, nil
	case "warning":
		return WarnLevel, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

// ParseFormat accepts a format name in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSONFormat, TextFormat:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format: %s", s)
	}
}

// DefaultConfig logs text at info level to stderr, keeping stdout free
// for reports.
func DefaultConfig() *Config {
	return &Config{
		Level:  InfoLevel,
		Format: TextFormat,
		Output: StderrOutput,
	}
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	if _, err := ParseLevel(string(c.Level)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.Writer != nil {
		return nil
	}

	switch c.Output {
	case StdoutOutput, StderrOutput:
		return nil
	case FileOutput:
		if strings.TrimSpace(c.File) == "" {
			return fmt.Errorf("log file path is required for file output")
		}
		return nil
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger from config. A nil config uses DefaultConfig.
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	level, _ := ParseLevel(string(config.Level))
	lvl, err := logrus.ParseLevel(string(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}

	writer, err := openOutput(config)
	if err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetOutput(writer)
	l.SetFormatter(newFormatter(config))
	l.SetReportCaller(config.CallerInfo)

	return &logrusLogger{entry: logrus.NewEntry(l)}, nil
}

func openOutput(config *Config) (io.Writer, error) {
	if config.Writer != nil {
		return config.Writer, nil
	}
	switch config.Output {
	case StdoutOutput:
		return os.Stdout, nil
	case FileOutput:
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	default:
		return os.Stderr, nil
	}
}

func callerFile(f *runtime.Frame) string {
	return fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

func newFormatter(config *Config) logrus.Formatter {
	if config.Format == JSONFormat {
		return &logrus.JSONFormatter{
			DisableTimestamp: config.DisableTimestamp,
			TimestampFormat:  time.RFC3339Nano,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return f.Function, callerFile(f)
			},
		}
	}
	return &logrus.TextFormatter{
		DisableTimestamp: config.DisableTimestamp,
		FullTimestamp:    !config.DisableTimestamp,
		TimestampFormat:  "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", callerFile(f)
		},
	}
}

func (l *logrusLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

func (l *logrusLogger) WithComponent(component string) Logger {
	return l.WithField(FieldComponent, component)
}

func (l *logrusLogger) WithBatch(batchID string) Logger {
	return l.WithField(FieldBatchID, batchID)
}

func (l *logrusLogger) WithIncident(id string) Logger {
	if id == "" {
		return l
	}
	return l.WithField(FieldIncident, id)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger

	discardOnce   sync.Once
	discardLogger Logger
)

// SetGlobalLogger replaces the process-wide logger
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger returns the process-wide logger, creating the default
// one on first use.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		// The default config always validates.
		globalLogger, _ = NewLogger(DefaultConfig())
	}
	return globalLogger
}

// Discard returns a shared logger that drops everything
func Discard() Logger {
	discardOnce.Do(func() {
		discardLogger, _ = NewLogger(&Config{Level: ErrorLevel, Format: TextFormat, Writer: io.Discard})
	})
	return discardLogger
}
