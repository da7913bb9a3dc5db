package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Result  Kind = "result"

	Pending   Status = "pending"
	Settled   Status = "settled"
	Cancelled Status = "cancelled"
)

// CardEntryPrefix marks ledger entry IDs produced by the card-expense expansion pipeline.
const CardEntryPrefix = "cc-"

type (
	Kind   string
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	LedgerEntry struct {
		ID            string
		Description   string // card-sourced entries embed "[holder (card)]"
		Amount        Money
		Kind          Kind
		DueDate       Date
		PaymentDate   Date // zero until settled
		LaunchDate    Date
		CategoryID    string
		BankAccountID string // opaque reference
		Status        Status
		CancelReason  string

		// Structured card provenance. Older entries only carry the description tag.
		CardName string
		Holder   string
	}

	Category struct {
		ID              string
		Name            string
		Kind            Kind
		Classification  string
		ManagerialGroup string
		ShowInStatement bool
		Active          bool
	}

	CardConfig struct {
		Name       string
		Holder     string
		ClosingDay int
		DueDay     int
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyCardName    = errors.New("empty card name")
)

// NewDate creates a Date normalized to noon UTC so that rendering in any
// local zone keeps the same calendar day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t and normalizes it like NewDate.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// SameDay compares calendar days, ignoring the clock.
func (d Date) SameDay(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

func (k Kind) Valid() bool {
	switch k {
	case Income, Expense, Result:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case Pending, Settled, Cancelled:
		return true
	}
	return false
}

// IsCardSourced reports whether the entry was produced by the card expansion pipeline.
func (e LedgerEntry) IsCardSourced() bool {
	return strings.HasPrefix(e.ID, CardEntryPrefix)
}

// IsCardExpense reports whether the entry is a card-sourced expense.
func (e LedgerEntry) IsCardExpense() bool {
	return e.Kind == Expense && e.IsCardSourced()
}

// EffectiveDate is the payment date when present, the due date otherwise.
func (e LedgerEntry) EffectiveDate() Date {
	if !e.PaymentDate.IsZero() {
		return e.PaymentDate
	}
	return e.DueDate
}

// Validate checks a directly entered ledger entry and reports every failing field.
// Card-sourced entries do not need a bank account; everything else does.
func (e LedgerEntry) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(e.Description) == "" {
		errs.Add(FieldDescription, ErrEmptyDescription.Error())
	} else if len(e.Description) > 200 {
		errs.Add(FieldDescription, "description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		errs.Add(FieldCategory, ErrEmptyCategory.Error())
	}
	if err := e.Amount.Validate(); err != nil {
		errs.Add(FieldAmount, err.Error())
	}
	if !e.Kind.Valid() {
		errs.Add(FieldKind, ErrInvalidKind.Error())
	}
	if err := e.DueDate.Validate(); err != nil {
		errs.Add(FieldDueDate, err.Error())
	}
	if !e.IsCardSourced() && strings.TrimSpace(e.BankAccountID) == "" {
		errs.Add(FieldBankAccount, "bank account is required")
	}
	switch e.Status {
	case Settled:
		if e.PaymentDate.IsZero() {
			errs.Add(FieldPaymentDate, "settled entries need a payment date")
		}
	case Cancelled:
		if strings.TrimSpace(e.CancelReason) == "" {
			errs.Add(FieldCancelReason, "cancel reason is required")
		}
	case Pending:
	default:
		errs.Add(FieldStatus, ErrInvalidStatus.Error())
	}
	return errs.OrNil()
}

func (c CardConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCardName
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return fmt.Errorf("closing day %d: %w", c.ClosingDay, ErrInvalidDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("due day %d: %w", c.DueDay, ErrInvalidDay)
	}
	return nil
}
