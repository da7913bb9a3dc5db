// Package billing computes credit card billing-cycle dates.
//
// Days past the end of a target month are clamped to the month's last day,
// so a card due on the 31st is due on Feb 28/29 and on the 30th of April.
package billing

import "solarbooks/internal/core"

// ComputeDueDate returns the invoice due date for an expense made on expenseDate.
// Purchases up to and including the closing day fall in next month's invoice,
// later purchases roll into the invoice after that.
func ComputeDueDate(expenseDate core.Date, closingDay, dueDay int) core.Date {
	offset := 1
	if expenseDate.Day() > closingDay {
		offset = 2
	}
	return dayInMonth(expenseDate.Year(), expenseDate.Month()+offset, dueDay)
}

// DueDateFor is ComputeDueDate driven by a card configuration.
func DueDateFor(expenseDate core.Date, card core.CardConfig) core.Date {
	return ComputeDueDate(expenseDate, card.ClosingDay, card.DueDay)
}

// AddMonths advances d by n calendar months keeping the day of month,
// clamped to the length of the target month.
func AddMonths(d core.Date, n int) core.Date {
	return dayInMonth(d.Year(), d.Month()+n, d.Day())
}

// dayInMonth builds a date from a possibly out-of-range month number.
func dayInMonth(year, month, day int) core.Date {
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	if last := core.DaysIn(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return core.NewDate(year, month, day)
}
