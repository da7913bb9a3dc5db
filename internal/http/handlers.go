package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"solarbooks/internal/expansion"
	"solarbooks/internal/log"
	"solarbooks/internal/settlement"
)

// categoryNames returns the catalogue used to label entries. A catalogue
// failure only drops the names from the response.
func (s *Server) categoryNames(ctx context.Context) categoryNamer {
	cats, err := s.ledger.Categories(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Category names unavailable", log.FieldError, err)
		return nil
	}
	return cats
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.ListView(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newViewJSON(view, s.categoryNames(r.Context())))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := req.toEntry()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.ledger.CreateEntry(r.Context(), entry)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEntryJSON(created, s.categoryNames(r.Context())))
}

func (s *Server) handleCreateCardExpenses(w http.ResponseWriter, r *http.Request) {
	var req cardExpensesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lines, err := req.toLines()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.ledger.CreateCardExpenses(r.Context(), strings.TrimSpace(req.Card), lines)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Card expenses submitted",
		log.FieldCard, req.Card, "lines", len(lines), "entries", len(created))
	writeJSON(w, http.StatusCreated, newEntriesJSON(created, s.categoryNames(r.Context())))
}

func (s *Server) handleRecur(w http.ResponseWriter, r *http.Request) {
	var req recurRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := expansion.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency)))
	series, err := s.ledger.CreateRecurring(r.Context(), r.PathValue("id"), f, req.Occurrences)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEntriesJSON(series, s.categoryNames(r.Context())))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSettlement answers 207 with the per-member result when an invoice was
// only partly transitioned.
func (s *Server) writeSettlement(w http.ResponseWriter, r *http.Request, res settlement.Result, err error) {
	var pfe *settlement.PartialFailureError
	switch {
	case errors.As(err, &pfe):
		writeJSON(w, http.StatusMultiStatus, newResultJSON(pfe.Result, err, s.categoryNames(r.Context())))
	case err != nil:
		writeServiceError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, newResultJSON(res, nil, s.categoryNames(r.Context())))
	}
}

func (s *Server) handleSettleEntry(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.Settle(r.Context(), r.PathValue("id"))
	s.writeSettlement(w, r, res, err)
}

func (s *Server) handleSettleInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.SettleInvoice(r.Context(), r.PathValue("id"))
	s.writeSettlement(w, r, res, err)
}

func (s *Server) handleCancelEntry(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ledger.Cancel(r.Context(), r.PathValue("id"), sanitizeInput(req.Reason))
	s.writeSettlement(w, r, res, err)
}

func (s *Server) handleCancelInvoice(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.ledger.CancelInvoice(r.Context(), r.PathValue("id"), sanitizeInput(req.Reason))
	s.writeSettlement(w, r, res, err)
}

func (s *Server) handleReverseEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Reverse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryJSON(entry, s.categoryNames(r.Context())))
}

func (s *Server) handleInvoiceDetail(w http.ResponseWriter, r *http.Request) {
	inv, detail, err := s.ledger.InvoiceDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceDetailJSON(inv, detail, s.categoryNames(r.Context())))
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatementQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, cached, err := s.statements.Statement(r.Context(), q.Options, q.SettledOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.metrics.StatementRequest(cached)
	writeJSON(w, http.StatusOK, newStatementJSON(st, cached))
}
