package storage

import (
	"database/sql"
	"fmt"
	"time"

	"solarbooks/internal/core"
)

// EntryColumns is the column list shared by the SQL stores, in scan order.
const EntryColumns = `id, description, amount_cents, kind, due_date, payment_date, launch_date,
	category_id, bank_account_id, status, cancel_reason, card_name, holder`

// RowScanner is satisfied by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// EntryDates converts between core.Date and a column type.
type EntryDates interface {
	Value(d core.Date) any
	Target() any
	Date(target any) (core.Date, error)
}

// TextDates stores dates as YYYY-MM-DD text, empty when unset.
type TextDates struct{}

func (TextDates) Value(d core.Date) any { return d.String() }
func (TextDates) Target() any           { return new(sql.NullString) }
func (TextDates) Date(target any) (core.Date, error) {
	ns := target.(*sql.NullString)
	if !ns.Valid || ns.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

// TimeDates stores dates in native DATE columns, NULL when unset.
type TimeDates struct{}

func (TimeDates) Value(d core.Date) any {
	if d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.UTC), Valid: true}
}
func (TimeDates) Target() any { return new(sql.NullTime) }
func (TimeDates) Date(target any) (core.Date, error) {
	nt := target.(*sql.NullTime)
	if !nt.Valid {
		return core.Date{}, nil
	}
	return core.DateOf(nt.Time), nil
}

// EntryArgs returns the column values of e in EntryColumns order.
func EntryArgs(e core.LedgerEntry, dates EntryDates) []any {
	return []any{
		e.ID, e.Description, e.Amount.Cents, string(e.Kind),
		dates.Value(e.DueDate), dates.Value(e.PaymentDate), dates.Value(e.LaunchDate),
		e.CategoryID, e.BankAccountID, string(e.Status), e.CancelReason, e.CardName, e.Holder,
	}
}

// ScanEntry reads one row selected with EntryColumns.
func ScanEntry(row RowScanner, dates EntryDates) (core.LedgerEntry, error) {
	var e core.LedgerEntry
	var kind, status string
	due, paid, launch := dates.Target(), dates.Target(), dates.Target()
	if err := row.Scan(&e.ID, &e.Description, &e.Amount.Cents, &kind, due, paid, launch,
		&e.CategoryID, &e.BankAccountID, &status, &e.CancelReason, &e.CardName, &e.Holder); err != nil {
		return core.LedgerEntry{}, err
	}
	e.Kind = core.Kind(kind)
	e.Status = core.Status(status)

	var err error
	if e.DueDate, err = dates.Date(due); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("due date of %s: %w", e.ID, err)
	}
	if e.PaymentDate, err = dates.Date(paid); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("payment date of %s: %w", e.ID, err)
	}
	if e.LaunchDate, err = dates.Date(launch); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("launch date of %s: %w", e.ID, err)
	}
	return e, nil
}
