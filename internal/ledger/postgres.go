package ledger

import (
	"context"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/logger"
)

//go:embed 001_create_transactions.sql
var migrationSQL string

const upsertSQL = `
	INSERT INTO transactions (tx_id, occurred_at, amount, phone, description, lottery_id, raw, imported_at)
	VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::jsonb, NOW())
	ON CONFLICT (tx_id) DO UPDATE SET
		occurred_at = COALESCE(EXCLUDED.occurred_at, transactions.occurred_at),
		amount      = COALESCE(EXCLUDED.amount, transactions.amount),
		phone       = COALESCE(EXCLUDED.phone, transactions.phone),
		description = COALESCE(EXCLUDED.description, transactions.description),
		lottery_id  = COALESCE(EXCLUDED.lottery_id, transactions.lottery_id),
		raw         = EXCLUDED.raw,
		imported_at = NOW()
`

const appendSQL = `
	INSERT INTO transactions (tx_id, occurred_at, amount, phone, description, lottery_id, raw, imported_at)
	VALUES (NULL, $1, $2::numeric, $3, $4, $5, $6::jsonb, NOW())
`

const selectEntries = `
	SELECT id, tx_id, occurred_at, amount::text, phone, description, lottery_id, raw::text, imported_at
	FROM transactions
`

const recentOrder = ` ORDER BY occurred_at DESC NULLS LAST, imported_at DESC, id DESC LIMIT `

// PostgresStore keeps the ledger in a PostgreSQL transactions table.
type PostgresStore struct {
	pool     *pgxpool.Pool
	logger   logger.Logger
	attempts uint
	delay    time.Duration
}

// NewPostgresStore opens a pool and verifies the connection. It does not
// migrate; call Migrate or use the migrate command.
func NewPostgresStore(ctx context.Context, cfg *Config, log logger.Logger) (*PostgresStore, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if cfg == nil {
		return nil, fmt.Errorf("store config is required")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	err = retry.Do(
		func() error { return pool.Ping(pingCtx) },
		retry.Context(pingCtx),
		retry.Attempts(cfg.WriteAttempts),
		retry.Delay(cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("attempt", n+1).Debug("Ping failed, retrying")
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log = log.WithComponent("ledger")
	log.WithFields(logger.Fields{
		"target":    cfg.Redacted(),
		"max_conns": cfg.MaxPoolSize,
	}).Info("Connected to PostgreSQL")

	return &PostgresStore{
		pool:     pool,
		logger:   log,
		attempts: cfg.WriteAttempts,
		delay:    cfg.RetryDelay,
	}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	s.logger.Info("Running database migrations")

	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	s.logger.Info("Migrations completed")
	return nil
}

// UpsertByTxID implements Store.
func (s *PostgresStore) UpsertByTxID(ctx context.Context, rec *models.CandidateRecord) (bool, error) {
	if rec.TxID == nil {
		return false, fmt.Errorf("upsert requires a transaction id")
	}
	raw, err := rawJSON(rec.Raw)
	if err != nil {
		return false, err
	}

	var affected bool
	err = s.withRetry(ctx, func() error {
		tag, err := s.pool.Exec(ctx, upsertSQL,
			*rec.TxID,
			rec.OccurredAt,
			amountParam(rec.Amount),
			rec.Phone,
			models.StringPtr(rec.Description),
			rec.LotteryID,
			raw,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, classify(err)
	}
	return affected, nil
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, rec *models.CandidateRecord) error {
	raw, err := rawJSON(rec.Raw)
	if err != nil {
		return err
	}

	// Not retried: a lost acknowledgement would insert the row twice.
	_, err = s.pool.Exec(ctx, appendSQL,
		rec.OccurredAt,
		amountParam(rec.Amount),
		rec.Phone,
		models.StringPtr(rec.Description),
		rec.LotteryID,
		raw,
	)
	return classify(err)
}

// Recent implements Store.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	return s.query(ctx, selectEntries+recentOrder+"$1", NormalizeLimit(limit))
}

// ByPhone implements Store.
func (s *PostgresStore) ByPhone(ctx context.Context, phone string, limit int) ([]*models.LedgerEntry, error) {
	if !ValidPhone(phone) {
		return nil, fmt.Errorf("phone must be exactly 8 digits")
	}
	return s.query(ctx, selectEntries+" WHERE phone = $1"+recentOrder+"$2", phone, NormalizeLimit(limit))
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*models.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Debug("Closed PostgreSQL connection pool")
	}
}

// withRetry repeats fn while the failure happened before the server saw
// the statement.
func (s *PostgresStore) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if pgconn.SafeToRetry(err) {
				s.logger.WithError(err).Warn("Transient store error, retrying")
				return true
			}
			return false
		}),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
	)
}

func scanEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var (
		entry  models.LedgerEntry
		amount *string
		desc   *string
		raw    string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.TxID,
		&entry.OccurredAt,
		&amount,
		&entry.Phone,
		&desc,
		&entry.LotteryID,
		&raw,
		&entry.ImportedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning ledger row: %w", err)
	}

	if amount != nil {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return nil, fmt.Errorf("decoding amount %q: %w", *amount, err)
		}
		entry.Amount = decimal.NewNullDecimal(d)
	}
	if desc != nil {
		entry.Description = *desc
	}
	if err := json.Unmarshal([]byte(raw), &entry.Raw); err != nil {
		return nil, fmt.Errorf("decoding raw row: %w", err)
	}
	if entry.OccurredAt != nil {
		t := entry.OccurredAt.UTC()
		entry.OccurredAt = &t
	}
	entry.ImportedAt = entry.ImportedAt.UTC()
	return &entry, nil
}

func amountParam(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func rawJSON(raw models.Row) (string, error) {
	if raw == nil {
		raw = models.Row{}
	}
	b, err := json.Marshal([]string(raw))
	if err != nil {
		return "", fmt.Errorf("encoding raw row: %w", err)
	}
	return string(b), nil
}

// classify maps SQLSTATE data exceptions (22) and integrity violations
// (23) to ErrRowRejected. Everything else is left for the caller to treat
// as a store outage.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return fmt.Errorf("%w: %s (SQLSTATE %s)", ErrRowRejected, pgErr.Message, pgErr.Code)
	}
	return err
}
