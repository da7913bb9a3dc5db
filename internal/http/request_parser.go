package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"solarbooks/internal/core"
	"solarbooks/internal/expansion"
	"solarbooks/internal/statement"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data after JSON object")
	}
	return nil
}

type expenseLineRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
	BillingMode string `json:"billingMode"`
	Count       int    `json:"count"`
	Amount      string `json:"amount"`
}

type cardExpensesRequest struct {
	Card  string               `json:"card"`
	Lines []expenseLineRequest `json:"lines"`
}

// toLines converts the request lines. Lines whose date or amount cannot be
// parsed are reported together with the rest of their validation failures.
func (req cardExpensesRequest) toLines() ([]expansion.ExpenseLine, error) {
	lines := make([]expansion.ExpenseLine, len(req.Lines))
	lineErrs := core.LineErrors{}
	for i, in := range req.Lines {
		parseErrs := core.FieldErrors{}
		line := expansion.ExpenseLine{
			Description: sanitizeInput(in.Description),
			CategoryID:  strings.TrimSpace(in.CategoryID),
			Mode:        expansion.BillingMode(strings.ToLower(strings.TrimSpace(in.BillingMode))),
			Count:       in.Count,
		}
		if line.Mode == "" {
			line.Mode = expansion.Single
		}
		if d, err := core.ParseDate(in.Date); err != nil {
			parseErrs.Add(core.FieldDate, "date must be YYYY-MM-DD")
		} else {
			line.Date = d
		}
		if m, err := core.ParseMoney(in.Amount); err != nil {
			parseErrs.Add(core.FieldAmount, err.Error())
		} else {
			line.Total = m
		}
		if len(parseErrs) > 0 {
			for field, msg := range line.Validate() {
				parseErrs.Add(field, msg)
			}
			lineErrs[i] = parseErrs
		}
		lines[i] = line
	}
	if len(lineErrs) > 0 {
		return nil, lineErrs
	}
	return lines, nil
}

type entryRequest struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Kind          string `json:"kind"`
	DueDate       string `json:"dueDate"`
	PaymentDate   string `json:"paymentDate"`
	LaunchDate    string `json:"launchDate"`
	CategoryID    string `json:"categoryId"`
	BankAccountID string `json:"bankAccountId"`
	Status        string `json:"status"`
}

func (req entryRequest) toEntry() (core.LedgerEntry, error) {
	errs := core.FieldErrors{}
	e := core.LedgerEntry{
		ID:            strings.TrimSpace(req.ID),
		Description:   sanitizeInput(req.Description),
		Kind:          core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		CategoryID:    strings.TrimSpace(req.CategoryID),
		BankAccountID: strings.TrimSpace(req.BankAccountID),
		Status:        core.Status(strings.ToLower(strings.TrimSpace(req.Status))),
	}
	if e.IsCardSourced() {
		errs.Add("id", "card entry ids are reserved for card expenses")
	}
	if m, err := core.ParseMoney(req.Amount); err != nil {
		errs.Add(core.FieldAmount, err.Error())
	} else {
		e.Amount = m
	}
	parseOptionalDate := func(field, s string, dst *core.Date) {
		if strings.TrimSpace(s) == "" {
			return
		}
		d, err := core.ParseDate(s)
		if err != nil {
			errs.Add(field, "date must be YYYY-MM-DD")
			return
		}
		*dst = d
	}
	parseOptionalDate(core.FieldDueDate, req.DueDate, &e.DueDate)
	parseOptionalDate(core.FieldPaymentDate, req.PaymentDate, &e.PaymentDate)
	parseOptionalDate(core.FieldDate, req.LaunchDate, &e.LaunchDate)
	if len(errs) > 0 {
		return core.LedgerEntry{}, errs
	}
	return e, nil
}

type recurRequest struct {
	Frequency   string `json:"frequency"`
	Occurrences int    `json:"occurrences"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type statementQuery struct {
	Options     statement.Options
	SettledOnly bool
}

// parseStatementQuery reads period, year, groupCards, groupManagerial and
// settledOnly. settledOnly defaults to true.
func parseStatementQuery(q url.Values) (statementQuery, error) {
	errs := core.FieldErrors{}
	out := statementQuery{SettledOnly: true}

	p, err := statement.ParsePeriod(q.Get("period"))
	if err != nil {
		errs.Add("period", err.Error())
	}
	out.Options.Period = p

	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			errs.Add("year", "year must be a four-digit number")
		}
		out.Options.Year = y
	}

	boolParam := func(name string, dst *bool) {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.Add(name, "must be true or false")
			return
		}
		*dst = b
	}
	boolParam("groupCards", &out.Options.GroupCardExpenses)
	boolParam("groupManagerial", &out.Options.GroupByManagerialGroup)
	boolParam("settledOnly", &out.SettledOnly)

	if len(errs) > 0 {
		return statementQuery{}, errs
	}
	return out, nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
