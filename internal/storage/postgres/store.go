// Package postgres stores ledger entries in PostgreSQL through pgx.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"solarbooks/internal/core"
	"solarbooks/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsert = `insert into ledger_entries (` + storage.EntryColumns + `)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
on conflict (id) do update set
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
	updated_at = now()`

type Store struct {
	db *sql.DB
}

var _ storage.LedgerStore = (*Store)(nil)

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pgx migration driver: %w", err)
	}
	if err := storage.Migrate(migrationsFS, "migrations", "pgx5", driver); err != nil {
		db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an open handle without migrating it.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) All(ctx context.Context) ([]core.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `select `+storage.EntryColumns+` from ledger_entries order by due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEntry
	for rows.Next() {
		e, err := storage.ScanEntry(rows, storage.TimeDates{})
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, `select `+storage.EntryColumns+` from ledger_entries where id = $1`, id)
	e, err := storage.ScanEntry(row, storage.TimeDates{})
	if errors.Is(err, sql.ErrNoRows) {
		return core.LedgerEntry{}, storage.ErrNotFound
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func (s *Store) Save(ctx context.Context, e core.LedgerEntry) error {
	if _, err := s.db.ExecContext(ctx, upsert, storage.EntryArgs(e, storage.TimeDates{})...); err != nil {
		return fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) SaveEntry(ctx context.Context, e core.LedgerEntry) error { return s.Save(ctx, e) }

// SaveMany writes all entries in one transaction.
func (s *Store) SaveMany(ctx context.Context, entries []core.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, upsert, storage.EntryArgs(e, storage.TimeDates{})...); err != nil {
			return fmt.Errorf("save entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from ledger_entries where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
