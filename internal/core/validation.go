package core

import (
	"fmt"
	"sort"
	"strings"
)

// Field names used in validation maps.
const (
	FieldDescription  = "description"
	FieldCategory     = "categoryId"
	FieldAmount       = "amount"
	FieldKind         = "kind"
	FieldDate         = "date"
	FieldDueDate      = "dueDate"
	FieldPaymentDate  = "paymentDate"
	FieldBankAccount  = "bankAccountId"
	FieldStatus       = "status"
	FieldCancelReason = "cancelReason"
	FieldBillingMode  = "billingMode"
	FieldCount        = "count"
	FieldFrequency    = "frequency"
	FieldOccurrences  = "occurrences"
	FieldCard         = "card"
)

// FieldErrors maps a field name to the reason it failed validation.
// A nil or empty map means the input is valid.
type FieldErrors map[string]string

// Add records a failure for field, keeping the first message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// OrNil returns nil for an empty map so callers can test with == nil.
func (f FieldErrors) OrNil() FieldErrors {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Fields returns the failing field names in sorted order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, k := range f.Fields() {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LineErrors maps a zero-based input line index to its field errors.
type LineErrors map[int]FieldErrors

func (l LineErrors) Error() string {
	idx := make([]int, 0, len(l))
	for i := range l {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("line %d: %s", i+1, l[i].Error()))
	}
	return strings.Join(parts, "\n")
}
