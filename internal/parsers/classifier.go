package parsers

import (
	"fmt"
	"time"

	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/logger"
)

// ParseStats describes one ParseStatement call
type ParseStats struct {
	Rows       int           `json:"rows"`
	NoiseRows  int           `json:"noise_rows"`
	Delimiter  string        `json:"delimiter"`
	Duration   time.Duration `json:"duration"`
	WithPhone  int           `json:"with_phone"`
	WithTxID   int           `json:"with_tx_id"`
	WithAmount int           `json:"with_amount"`
}

// Classifier turns rows into candidate records. It holds no mutable
// state and can be shared between goroutines.
type Classifier struct {
	config *Config
	logger logger.Logger
}

// NewClassifier creates a classifier with the given configuration
func NewClassifier(config *Config, log logger.Logger) (*Classifier, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parser configuration: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Classifier{
		config: config,
		logger: log.WithComponent("classifier"),
	}, nil
}

// Classify runs every extractor over the row independently. No field
// depends on another.
func (c *Classifier) Classify(row models.Row) *models.CandidateRecord {
	raw := make(models.Row, len(row))
	copy(raw, row)

	return &models.CandidateRecord{
		TxID:        ExtractTxID(row),
		OccurredAt:  ExtractTimestamp(row, c.config.Location),
		Amount:      ExtractAmount(row),
		Phone:       ExtractPhone(row),
		LotteryID:   ExtractLotteryID(row, c.config.Catalog),
		Description: ExtractDescription(row),
		Raw:         raw,
	}
}

// ParseStatement tokenizes text and classifies every row in order.
func (c *Classifier) ParseStatement(text string) ([]*models.CandidateRecord, *ParseStats, error) {
	start := time.Now()

	rows, delim, err := tokenize(text)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{Rows: len(rows)}
	if len(rows) > 0 {
		stats.Delimiter = delimiterName(delim)
	}

	records := make([]*models.CandidateRecord, 0, len(rows))
	for i, row := range rows {
		rec := c.Classify(row)
		rec.Line = i + 1
		records = append(records, rec)

		if rec.IsNoise() {
			stats.NoiseRows++
		}
		if rec.Phone != nil {
			stats.WithPhone++
		}
		if rec.TxID != nil {
			stats.WithTxID++
		}
		if rec.Amount.Valid {
			stats.WithAmount++
		}
	}
	stats.Duration = time.Since(start)

	c.logger.WithFields(logger.Fields{
		"rows":       stats.Rows,
		"noise_rows": stats.NoiseRows,
		"delimiter":  stats.Delimiter,
		"with_phone": stats.WithPhone,
		"with_tx_id": stats.WithTxID,
	}).Debug("Statement parsed")

	return records, stats, nil
}

func delimiterName(d rune) string {
	switch d {
	case '\t':
		return "tab"
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '|':
		return "pipe"
	default:
		return string(d)
	}
}
