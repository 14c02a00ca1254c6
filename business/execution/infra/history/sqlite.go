// Package history persists finalized execution records in SQLite.
package history

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"

	"github.com/sumitrevolt/flasharb/business/execution/app"
	"github.com/sumitrevolt/flasharb/business/execution/domain"
	"github.com/sumitrevolt/flasharb/internal/apperror"
	"github.com/sumitrevolt/flasharb/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id                  TEXT PRIMARY KEY,
	opportunity_id      TEXT NOT NULL,
	state               TEXT NOT NULL,
	outcome             TEXT,
	reason              TEXT,
	profit              TEXT,
	profit_usd          TEXT,
	profit_event        TEXT,
	gas_used            INTEGER,
	effective_gas_price TEXT,
	tx_hash             TEXT,
	attempts            INTEGER NOT NULL DEFAULT 0,
	error               TEXT,
	created_at          TIMESTAMP NOT NULL,
	finalized_at        TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_executions_created ON executions (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_executions_opportunity ON executions (opportunity_id);
`

// SQLiteStore implements app.HistoryStore on a local SQLite file. The
// in-memory tracker stays authoritative for the running process; this store
// is the durable copy that survives restarts.
type SQLiteStore struct {
	db  *sql.DB
	log logger.LoggerInterface
}

var _ app.HistoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(path string, log logger.LoggerInterface) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperror.New(apperror.CodeStorageOpenFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to open history database"))
	}
	// SQLite allows one writer; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperror.New(apperror.CodeStorageOperationFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to apply history schema"))
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// Save upserts a finalized record.
func (s *SQLiteStore) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	var (
		outcome, reason, profit, profitUSD, profitEvent, effectivePrice string
		gasUsed                                                         uint64
	)
	if record.Outcome != nil {
		outcome = string(record.Outcome.Kind)
		reason = record.Outcome.Reason
		profitUSD = record.Outcome.ProfitUSD.String()
		profitEvent = record.Outcome.ProfitEvent
		gasUsed = record.Outcome.GasUsed
		if record.Outcome.Profit != nil {
			profit = record.Outcome.Profit.String()
		}
		if record.Outcome.EffectiveGasPrice != nil {
			effectivePrice = record.Outcome.EffectiveGasPrice.String()
		}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO executions (
	id, opportunity_id, state, outcome, reason, profit, profit_usd,
	profit_event, gas_used, effective_gas_price, tx_hash, attempts, error,
	created_at, finalized_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state = excluded.state,
	outcome = excluded.outcome,
	reason = excluded.reason,
	profit = excluded.profit,
	profit_usd = excluded.profit_usd,
	profit_event = excluded.profit_event,
	gas_used = excluded.gas_used,
	effective_gas_price = excluded.effective_gas_price,
	tx_hash = excluded.tx_hash,
	attempts = excluded.attempts,
	error = excluded.error,
	finalized_at = excluded.finalized_at`,
		record.ID, record.OpportunityID, string(record.State), outcome, reason,
		profit, profitUSD, profitEvent, gasUsed, effectivePrice,
		record.TxHash, record.Attempts, record.Error,
		record.CreatedAt, nullableTime(record.FinalizedAt),
	)
	if err != nil {
		return apperror.New(apperror.CodeStorageOperationFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to save execution record"))
	}
	return nil
}

// Load returns up to limit records, newest first.
func (s *SQLiteStore) Load(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, opportunity_id, state, outcome, reason, profit, profit_usd,
	profit_event, gas_used, effective_gas_price, tx_hash, attempts, error,
	created_at, finalized_at
FROM executions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperror.New(apperror.CodeStorageOperationFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to load execution records"))
	}
	defer rows.Close()

	var records []*domain.ExecutionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.New(apperror.CodeStorageOperationFailed,
			apperror.WithCause(err))
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecord(rows *sql.Rows) (*domain.ExecutionRecord, error) {
	var (
		record                                                          domain.ExecutionRecord
		outcome, reason, profit, profitUSD, profitEvent, effectivePrice sql.NullString
		gasUsed                                                         sql.NullInt64
		state                                                           string
		finalizedAt                                                     sql.NullTime
	)
	if err := rows.Scan(
		&record.ID, &record.OpportunityID, &state, &outcome, &reason,
		&profit, &profitUSD, &profitEvent, &gasUsed, &effectivePrice,
		&record.TxHash, &record.Attempts, &record.Error,
		&record.CreatedAt, &finalizedAt,
	); err != nil {
		return nil, apperror.New(apperror.CodeStorageOperationFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to scan execution record"))
	}
	record.State = domain.State(state)
	if finalizedAt.Valid {
		record.FinalizedAt = finalizedAt.Time
	}
	if outcome.Valid && outcome.String != "" {
		o := &domain.Outcome{
			Kind:        domain.OutcomeKind(outcome.String),
			Reason:      reason.String,
			ProfitEvent: profitEvent.String,
			GasUsed:     uint64(gasUsed.Int64),
		}
		if profit.Valid && profit.String != "" {
			if v, ok := new(big.Int).SetString(profit.String, 10); ok {
				o.Profit = v
			}
		}
		if effectivePrice.Valid && effectivePrice.String != "" {
			if v, ok := new(big.Int).SetString(effectivePrice.String, 10); ok {
				o.EffectiveGasPrice = v
			}
		}
		if profitUSD.Valid && profitUSD.String != "" {
			if v, err := decimal.NewFromString(profitUSD.String); err == nil {
				o.ProfitUSD = v
			}
		}
		record.Outcome = o
	}
	record.StageTimes = map[domain.State]time.Time{}
	return &record, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
