package storage

// sqlite.go — the diagnostics history log.
//
// Two tables:
//   - `refreshes`: one light summary row per refresh cycle. Amounts are
//     stored as decimal-string wei; SQLite REAL would silently round them.
//   - `transactions`: one row per transaction attempt, success or not.
//     Failed attempts keep the raw error so the CLI can point users at it.
//
// The log is write-only from the pipeline: positions are always rebuilt
// from the chain, never from here. Old refresh rows are pruned on open.

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/emberfi/burndeck/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS refreshes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    refreshed_at  DATETIME NOT NULL,
    address       TEXT     NOT NULL,
    source        TEXT     NOT NULL,
    cost_basis    TEXT     NOT NULL DEFAULT '0',
    sold_value    TEXT     NOT NULL DEFAULT '0',
    holding_value TEXT     NOT NULL DEFAULT '0',
    loss_amount   TEXT     NOT NULL DEFAULT '0',
    balance       TEXT     NOT NULL DEFAULT '0',
    burned_value  TEXT     NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    kind         TEXT     NOT NULL,
    tx_hash      TEXT     NOT NULL DEFAULT '',
    amount       TEXT     NOT NULL DEFAULT '',
    inviter      TEXT     NOT NULL DEFAULT '',
    error        TEXT     NOT NULL DEFAULT '',
    submitted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refreshes_at ON refreshes(refreshed_at DESC);
CREATE INDEX IF NOT EXISTS idx_tx_at        ON transactions(submitted_at DESC);
`

// refresh rows pile up fast at a 15s interval; transactions are rare and
// kept forever
const retentionRefreshes = 7 * 24 * time.Hour

// SQLiteStorage implements ports.Storage using SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at the given path,
// applies the schema, and prunes old refresh rows.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRefresh records a summary row for one completed refresh.
func (s *SQLiteStorage) SaveRefresh(ctx context.Context, state domain.AccountState) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO refreshes
			(refreshed_at, address, source, cost_basis, sold_value,
			 holding_value, loss_amount, balance, burned_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		state.RefreshedAt.UTC(),
		state.Address.Hex(),
		state.Position.Source.String(),
		weiString(state.Position.CostBasis),
		weiString(state.Position.SoldValue),
		weiString(state.Position.HoldingValue),
		weiString(state.Position.LossAmount),
		weiString(state.Token.Balance),
		weiString(state.Burn.BurnedValue),
	); err != nil {
		return fmt.Errorf("storage.SaveRefresh: %w", err)
	}
	return nil
}

// SaveTx records one transaction attempt and its outcome.
func (s *SQLiteStorage) SaveTx(ctx context.Context, rec domain.TxRecord) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, kind, tx_hash, amount, inviter, error, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.TxHash, rec.Amount, rec.Inviter, rec.Err,
		rec.SubmittedAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveTx: %s: %w", rec.Kind, err)
	}
	return nil
}

// TxHistory returns the most recent transaction attempts, newest first.
func (s *SQLiteStorage) TxHistory(ctx context.Context, limit int) ([]domain.TxRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, tx_hash, amount, inviter, error, submitted_at
		FROM transactions
		ORDER BY submitted_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.TxHistory: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.TxRecord
	for rows.Next() {
		var rec domain.TxRecord
		var at string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.TxHash, &rec.Amount, &rec.Inviter, &rec.Err, &at); err != nil {
			return nil, fmt.Errorf("storage.TxHistory: scan row: %w", err)
		}
		rec.SubmittedAt, _ = time.Parse(time.RFC3339, at)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RefreshHistory returns recent refresh summaries, newest first. Not part
// of ports.Storage — only the history command reads it.
func (s *SQLiteStorage) RefreshHistory(ctx context.Context, limit int) ([]domain.RefreshRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT refreshed_at, address, source, cost_basis, sold_value, holding_value, loss_amount
		FROM refreshes
		ORDER BY refreshed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RefreshHistory: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.RefreshRecord
	for rows.Next() {
		var rec domain.RefreshRecord
		var at string
		if err := rows.Scan(&at, &rec.Address, &rec.Source, &rec.CostBasis, &rec.SoldValue, &rec.HoldingValue, &rec.LossAmount); err != nil {
			return nil, fmt.Errorf("storage.RefreshHistory: scan row: %w", err)
		}
		rec.RefreshedAt, _ = time.Parse(time.RFC3339, at)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld drops refresh rows past retention to keep the file small.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRefreshes)
	s.db.ExecContext(ctx, `DELETE FROM refreshes WHERE refreshed_at < ?`, cutoff)
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
