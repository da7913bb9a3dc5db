// Package expansion turns one user-entered obligation into the discrete
// ledger entries that get persisted.
package expansion

import (
	"errors"
	"fmt"
	"strings"

	"solarbooks/internal/billing"
	"solarbooks/internal/core"
	"solarbooks/internal/ids"
)

const (
	Single         BillingMode = "single"
	Installment    BillingMode = "installment"
	FixedRecurring BillingMode = "fixed"
)

// BillingMode selects how a card expense line is spread over invoices.
type BillingMode string

// ExpenseLine is one line of a card expense submission.
type ExpenseLine struct {
	Date        core.Date
	Description string
	CategoryID  string
	Mode        BillingMode
	Count       int
	Total       core.Money
}

var ErrInvalidCard = errors.New("invalid card configuration")

func (m BillingMode) Valid() bool {
	switch m {
	case Single, Installment, FixedRecurring:
		return true
	}
	return false
}

// Validate reports every failing field of the line at once.
func (l ExpenseLine) Validate() core.FieldErrors {
	errs := core.FieldErrors{}
	if strings.TrimSpace(l.Description) == "" {
		errs.Add(core.FieldDescription, core.ErrEmptyDescription.Error())
	}
	if strings.TrimSpace(l.CategoryID) == "" {
		errs.Add(core.FieldCategory, core.ErrEmptyCategory.Error())
	}
	if err := l.Total.Validate(); err != nil {
		errs.Add(core.FieldAmount, err.Error())
	}
	if err := l.Date.Validate(); err != nil {
		errs.Add(core.FieldDate, err.Error())
	}
	if !l.Mode.Valid() {
		errs.Add(core.FieldBillingMode, fmt.Sprintf("unknown billing mode %q", l.Mode))
	}
	if l.Mode != Single && l.Count < 1 {
		errs.Add(core.FieldCount, "count must be at least 1")
	}
	return errs.OrNil()
}

// entryCount is the number of entries the line expands to.
func (l ExpenseLine) entryCount() int {
	if l.Mode == Single || l.Count < 1 {
		return 1
	}
	return l.Count
}

// amountPerEntry rounds installments up to the cent. Three installments of
// 100.00 become 33.34 each, so the series totals 100.02; that drift is kept.
func (l ExpenseLine) amountPerEntry() core.Money {
	if l.Mode == Installment {
		return l.Total.CeilDiv(l.entryCount())
	}
	return l.Total
}

// CardTag renders the provenance tag embedded in card entry descriptions.
func CardTag(card core.CardConfig) string {
	if strings.TrimSpace(card.Holder) == "" {
		return "[" + card.Name + "]"
	}
	return fmt.Sprintf("[%s (%s)]", card.Holder, card.Name)
}

// SeriesSuffix renders the "(i/n)" marker for the i-th (1-based) entry of n.
func SeriesSuffix(i, n int) string {
	return fmt.Sprintf("(%d/%d)", i, n)
}

// ExpandLine expands a validated line into card ledger entries. The line is
// validated first; on failure no entries are returned.
func ExpandLine(line ExpenseLine, card core.CardConfig, gen ids.Generator) ([]core.LedgerEntry, core.FieldErrors) {
	if errs := line.Validate(); errs != nil {
		return nil, errs
	}

	n := line.entryCount()
	amount := line.amountPerEntry()
	base := billing.DueDateFor(line.Date, card)
	desc := strings.TrimSpace(line.Description) + " " + CardTag(card)

	out := make([]core.LedgerEntry, 0, n)
	for i := 0; i < n; i++ {
		d := desc
		if n > 1 {
			d += " " + SeriesSuffix(i+1, n)
		}
		out = append(out, core.LedgerEntry{
			ID:          gen.NewCardID(),
			Description: d,
			Amount:      amount,
			Kind:        core.Expense,
			DueDate:     billing.AddMonths(base, i),
			LaunchDate:  line.Date,
			CategoryID:  line.CategoryID,
			Status:      core.Pending,
			CardName:    card.Name,
			Holder:      card.Holder,
		})
	}
	return out, nil
}

// ExpandBatch expands every line of a card submission. If any line fails
// validation the whole batch is rejected with a core.LineErrors error and no
// entries are returned.
func ExpandBatch(lines []ExpenseLine, card core.CardConfig, gen ids.Generator) ([]core.LedgerEntry, error) {
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	if len(lines) == 0 {
		return nil, core.LineErrors{0: core.FieldErrors{core.FieldDescription: "at least one line is required"}}
	}

	lineErrs := core.LineErrors{}
	for i, l := range lines {
		if errs := l.Validate(); errs != nil {
			lineErrs[i] = errs
		}
	}
	if len(lineErrs) > 0 {
		return nil, lineErrs
	}

	var out []core.LedgerEntry
	for _, l := range lines {
		entries, _ := ExpandLine(l, card, gen)
		out = append(out, entries...)
	}
	return out, nil
}
