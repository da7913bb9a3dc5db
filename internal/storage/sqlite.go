package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"solarbooks/internal/core"

	_ "modernc.org/sqlite"
)

const sqliteUpsert = `INSERT INTO ledger_entries (` + EntryColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	description = excluded.description,
	amount_cents = excluded.amount_cents,
	kind = excluded.kind,
	due_date = excluded.due_date,
	payment_date = excluded.payment_date,
	launch_date = excluded.launch_date,
	category_id = excluded.category_id,
	bank_account_id = excluded.bank_account_id,
	status = excluded.status,
	cancel_reason = excluded.cancel_reason,
	card_name = excluded.card_name,
	holder = excluded.holder,
	updated_at = CURRENT_TIMESTAMP`

type SQLiteRepository struct {
	db *sql.DB
}

var _ LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+EntryColumns+` FROM ledger_entries ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := ScanEntry(rows, TextDates{})
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+EntryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := ScanEntry(row, TextDates{})
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, e core.LedgerEntry) error {
	if _, err := r.db.ExecContext(ctx, sqliteUpsert, EntryArgs(e, TextDates{})...); err != nil {
		return fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	slog.DebugContext(ctx, "Entry saved to SQLite", "id", e.ID, "status", e.Status)
	return nil
}

func (r *SQLiteRepository) SaveEntry(ctx context.Context, e core.LedgerEntry) error {
	return r.Save(ctx, e)
}

// SaveMany writes all entries in one transaction.
func (r *SQLiteRepository) SaveMany(ctx context.Context, entries []core.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, EntryArgs(e, TextDates{})...); err != nil {
			return fmt.Errorf("save entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	slog.InfoContext(ctx, "Entries saved to SQLite", "count", len(entries))
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
