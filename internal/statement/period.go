package statement

import (
	"fmt"
	"strings"
)

const (
	Monthly    Period = "monthly"
	Quarterly  Period = "quarterly"
	Semiannual Period = "semiannual"
	Annual     Period = "annual"
)

// Period is the column granularity of a statement.
type Period string

var periodColumns = map[Period][]string{
	Monthly:    {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	Quarterly:  {"Q1", "Q2", "Q3", "Q4"},
	Semiannual: {"H1", "H2"},
	Annual:     {"Year"},
}

// ParsePeriod accepts a period name, case-insensitively. Empty means monthly.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Monthly, nil
	}
	if _, ok := periodColumns[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
	return p, nil
}

// Columns returns the column labels for the period.
func (p Period) Columns() []string {
	cols := periodColumns[p]
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Bucket maps a calendar month (1..12) to a column index.
func (p Period) Bucket(month int) int {
	n := len(periodColumns[p])
	if n == 0 {
		return -1
	}
	return (month - 1) / (12 / n)
}
