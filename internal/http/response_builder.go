package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"solarbooks/internal/core"
	"solarbooks/internal/grouping"
	"solarbooks/internal/services"
	"solarbooks/internal/settlement"
	"solarbooks/internal/statement"
	"solarbooks/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error  string                   `json:"error"`
	Fields core.FieldErrors         `json:"fields,omitempty"`
	Lines  map[int]core.FieldErrors `json:"lines,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fe core.FieldErrors
		le core.LineErrors
	)
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fe})
	case errors.As(err, &le):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Lines: le})
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, services.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, settlement.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, statement.ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// categoryNamer resolves a category id to its display name, falling back to
// a generic label for unknown ids.
type categoryNamer interface {
	Name(id string) string
}

type entryJSON struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	AmountCents   int64  `json:"amountCents"`
	Kind          string `json:"kind"`
	DueDate       string `json:"dueDate"`
	PaymentDate   string `json:"paymentDate,omitempty"`
	LaunchDate    string `json:"launchDate,omitempty"`
	CategoryID    string `json:"categoryId"`
	CategoryName  string `json:"categoryName,omitempty"`
	BankAccountID string `json:"bankAccountId,omitempty"`
	Status        string `json:"status"`
	CancelReason  string `json:"cancelReason,omitempty"`
	CardName      string `json:"cardName,omitempty"`
	Holder        string `json:"holder,omitempty"`
}

func newEntryJSON(e core.LedgerEntry, names categoryNamer) entryJSON {
	out := entryJSON{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount.String(),
		AmountCents:   e.Amount.Cents,
		Kind:          string(e.Kind),
		DueDate:       e.DueDate.String(),
		PaymentDate:   e.PaymentDate.String(),
		LaunchDate:    e.LaunchDate.String(),
		CategoryID:    e.CategoryID,
		BankAccountID: e.BankAccountID,
		Status:        string(e.Status),
		CancelReason:  e.CancelReason,
		CardName:      e.CardName,
		Holder:        e.Holder,
	}
	if names != nil {
		out.CategoryName = names.Name(e.CategoryID)
	}
	return out
}

func newEntriesJSON(entries []core.LedgerEntry, names categoryNamer) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = newEntryJSON(e, names)
	}
	return out
}

type invoiceJSON struct {
	ID          string      `json:"id"`
	Amount      string      `json:"amount"`
	AmountCents int64       `json:"amountCents"`
	Status      string      `json:"status"`
	DueDate     string      `json:"dueDate"`
	ClosingDay  int         `json:"closingDay"`
	CardNames   []string    `json:"cardNames"`
	Suggestion  string      `json:"suggestion,omitempty"`
	Members     []entryJSON `json:"members"`
}

func newInvoiceJSON(g grouping.GroupedInvoice, names categoryNamer) invoiceJSON {
	return invoiceJSON{
		ID:          g.ID,
		Amount:      g.Amount.String(),
		AmountCents: g.Amount.Cents,
		Status:      string(g.Status),
		DueDate:     g.DueDate.String(),
		ClosingDay:  g.ClosingDay,
		CardNames:   g.CardNames,
		Suggestion:  g.Suggestion,
		Members:     newEntriesJSON(g.Members, names),
	}
}

type viewEntryJSON struct {
	Type    string       `json:"type"`
	Entry   *entryJSON   `json:"entry,omitempty"`
	Invoice *invoiceJSON `json:"invoice,omitempty"`
}

func newViewJSON(view []grouping.ViewEntry, names categoryNamer) []viewEntryJSON {
	out := make([]viewEntryJSON, len(view))
	for i, v := range view {
		item := viewEntryJSON{Type: v.Kind.String()}
		if v.Kind == grouping.ViewAggregate {
			inv := newInvoiceJSON(*v.Invoice, names)
			item.Invoice = &inv
		} else {
			e := newEntryJSON(v.Entry, names)
			item.Entry = &e
		}
		out[i] = item
	}
	return out
}

type cardGroupJSON struct {
	Label   string      `json:"label"`
	Amount  string      `json:"amount"`
	Entries []entryJSON `json:"entries"`
}

type holderGroupJSON struct {
	Holder string          `json:"holder"`
	Amount string          `json:"amount"`
	Cards  []cardGroupJSON `json:"cards"`
}

type invoiceDetailJSON struct {
	Invoice invoiceJSON       `json:"invoice"`
	Holders []holderGroupJSON `json:"holders"`
}

func newInvoiceDetailJSON(g grouping.GroupedInvoice, b grouping.InvoiceBreakdown, names categoryNamer) invoiceDetailJSON {
	out := invoiceDetailJSON{Invoice: newInvoiceJSON(g, names), Holders: make([]holderGroupJSON, len(b.Holders))}
	for i, h := range b.Holders {
		hj := holderGroupJSON{Holder: h.Holder, Amount: h.Amount.String(), Cards: make([]cardGroupJSON, len(h.Cards))}
		for j, c := range h.Cards {
			hj.Cards[j] = cardGroupJSON{Label: c.Label, Amount: c.Amount.String(), Entries: newEntriesJSON(c.Entries, names)}
		}
		out.Holders[i] = hj
	}
	return out
}

type failureJSON struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type resultJSON struct {
	Applied      []entryJSON   `json:"applied"`
	Unchanged    []string      `json:"unchanged"`
	Failed       []failureJSON `json:"failed"`
	NotAttempted []string      `json:"notAttempted"`
	Error        string        `json:"error,omitempty"`
}

func newResultJSON(res settlement.Result, err error, names categoryNamer) resultJSON {
	out := resultJSON{
		Applied:      newEntriesJSON(res.Applied, names),
		Unchanged:    append([]string{}, res.Unchanged...),
		Failed:       make([]failureJSON, len(res.Failed)),
		NotAttempted: append([]string{}, res.NotAttempted...),
	}
	for i, f := range res.Failed {
		out.Failed[i] = failureJSON{ID: f.ID, Error: f.Err.Error()}
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

type rowJSON struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
	Total  string   `json:"total"`
}

type metricsJSON struct {
	GrossRevenue      string `json:"grossRevenue"`
	Taxes             string `json:"taxes"`
	NetRevenue        string `json:"netRevenue"`
	CostOfGoods       string `json:"costOfGoods"`
	GrossProfit       string `json:"grossProfit"`
	OperatingExpenses string `json:"operatingExpenses"`
	NetProfit         string `json:"netProfit"`
	Margin            string `json:"margin"`
}

type statementJSON struct {
	Period   string               `json:"period"`
	Year     int                  `json:"year,omitempty"`
	Columns  []string             `json:"columns"`
	Sections map[string][]rowJSON `json:"sections"`
	Metrics  []metricsJSON        `json:"metrics"`
	Total    metricsJSON          `json:"total"`
	Cached   bool                 `json:"cached"`
}

func newMetricsJSON(m statement.Metrics) metricsJSON {
	return metricsJSON{
		GrossRevenue:      m.GrossRevenue.String(),
		Taxes:             m.Taxes.String(),
		NetRevenue:        m.NetRevenue.String(),
		CostOfGoods:       m.CostOfGoods.String(),
		GrossProfit:       m.GrossProfit.String(),
		OperatingExpenses: m.OperatingExpenses.String(),
		NetProfit:         m.NetProfit.String(),
		Margin:            m.Margin.StringFixed(2),
	}
}

func newStatementJSON(st statement.Statement, cached bool) statementJSON {
	out := statementJSON{
		Period:   string(st.Period),
		Year:     st.Year,
		Columns:  st.Columns,
		Sections: map[string][]rowJSON{},
		Metrics:  make([]metricsJSON, len(st.Metrics)),
		Total:    newMetricsJSON(st.Total),
		Cached:   cached,
	}
	for _, sec := range []statement.Section{statement.Revenue, statement.Taxes, statement.CostOfGoods, statement.OperatingExpenses} {
		rows := st.Rows(sec)
		rj := make([]rowJSON, len(rows))
		for i, r := range rows {
			values := make([]string, len(r.Values))
			for j, v := range r.Values {
				values[j] = v.String()
			}
			rj[i] = rowJSON{Label: r.Label, Values: values, Total: r.Total.String()}
		}
		out.Sections[sec.String()] = rj
	}
	for i, m := range st.Metrics {
		out.Metrics[i] = newMetricsJSON(m)
	}
	return out
}
