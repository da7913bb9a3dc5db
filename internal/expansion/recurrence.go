package expansion

// Recurrence for non-card obligations follows the Strategy Pattern: each
// frequency is a Stepper that places the i-th occurrence relative to the base
// due date. New frequencies can be registered without touching the expander.

import (
	"fmt"
	"strings"

	"solarbooks/internal/billing"
	"solarbooks/internal/core"
	"solarbooks/internal/ids"
)

const (
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

type Frequency string

// Stepper places occurrence i (0-based) of a series starting at base.
type Stepper interface {
	Step(base core.Date, i int) core.Date
}

// MonthStep advances by a fixed number of calendar months per occurrence.
// Each occurrence is computed from the base date, so a series starting on
// Jan 31 lands on Feb 29 and then Mar 31 rather than drifting to the 29th.
type MonthStep struct {
	Months int
}

func (s MonthStep) Step(base core.Date, i int) core.Date {
	return billing.AddMonths(base, i*s.Months)
}

var frequencySteppers = map[Frequency]Stepper{
	Monthly:    MonthStep{Months: 1},
	Quarterly:  MonthStep{Months: 3},
	Semiannual: MonthStep{Months: 6},
	Annual:     MonthStep{Months: 12},
}

// GetStepper returns the stepper registered for a frequency.
func GetStepper(f Frequency) (Stepper, error) {
	s, ok := frequencySteppers[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", f)
	}
	return s, nil
}

// RegisterFrequency adds or replaces the stepper for a frequency.
func RegisterFrequency(f Frequency, s Stepper) {
	frequencySteppers[f] = s
}

// ExpandRecurrence produces occurrences entries from base. Entry 0 is base
// itself, untouched. Later entries get fresh IDs, start pending with no
// payment date and carry an "(i/n)" suffix.
func ExpandRecurrence(base core.LedgerEntry, f Frequency, occurrences int, gen ids.Generator) ([]core.LedgerEntry, error) {
	errs := core.FieldErrors{}
	stepper, err := GetStepper(f)
	if err != nil {
		errs.Add(core.FieldFrequency, err.Error())
	}
	if occurrences < 2 {
		errs.Add(core.FieldOccurrences, "occurrences must be at least 2")
	}
	if base.IsCardSourced() {
		errs.Add(core.FieldCard, "card entries repeat through installments, not recurrence")
	}
	if err := base.DueDate.Validate(); err != nil {
		errs.Add(core.FieldDueDate, err.Error())
	}
	if len(errs) > 0 {
		return nil, errs
	}

	out := make([]core.LedgerEntry, 0, occurrences)
	out = append(out, base)
	desc := strings.TrimSpace(base.Description)
	for i := 1; i < occurrences; i++ {
		next := base
		next.ID = gen.NewID()
		next.Status = core.Pending
		next.PaymentDate = core.Date{}
		next.CancelReason = ""
		next.Description = desc + " " + SeriesSuffix(i+1, occurrences)
		next.DueDate = stepper.Step(base.DueDate, i)
		out = append(out, next)
	}
	return out, nil
}
