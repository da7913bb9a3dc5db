package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solarbooks/internal/cache"
	"solarbooks/internal/catalog"
	"solarbooks/internal/core"
	"solarbooks/internal/events"
	"solarbooks/internal/ids"
	"solarbooks/internal/services"
	"solarbooks/internal/settlement"
	"solarbooks/internal/statement"
	"solarbooks/internal/storage/memory"
)

var fixedNow = time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

// flakyStore fails writes for one entry id.
type flakyStore struct {
	*memory.Store
	failID string
}

func (f flakyStore) SaveEntry(ctx context.Context, e core.LedgerEntry) error {
	if e.ID == f.failID {
		return errors.New("disk full")
	}
	return f.Store.SaveEntry(ctx, e)
}

type fixture struct {
	srv   *Server
	store *memory.Store
}

func newFixture(t *testing.T, opts Options, failID string) fixture {
	t.Helper()
	cat, err := catalog.New(
		[]core.Category{
			{ID: "sales", Name: "Vendas", Kind: core.Income, Active: true},
			{ID: "fuel", Name: "Combustivel", Kind: core.Expense, Active: true},
		},
		[]core.CardConfig{{Name: "Visa", Holder: "Ana", ClosingDay: 5, DueDay: 15}},
	)
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	ledger := services.NewLedgerService(store, services.StaticCatalog{C: cat}, &events.Recorder{},
		services.WithIDs(&ids.Sequence{Prefix: "e"}),
		services.WithCoordinator(settlement.New(flakyStore{Store: store, failID: failID}, func() time.Time { return fixedNow })),
	)
	statements := services.NewStatementCache(ledger, cache.NewLRU[statement.Statement](8, time.Minute))
	srv := NewServer(":0", ledger, statements, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return fixture{srv: srv, store: store}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

const twoCardLines = `{"card":"Visa","lines":[
	{"date":"2024-03-10","description":"Posto A","categoryId":"fuel","amount":"100.00"},
	{"date":"2024-03-12","description":"Posto B","categoryId":"fuel","amount":"50,00"}
]}`

func TestHealthReadyMetrics(t *testing.T) {
	f := newFixture(t, Options{}, "")
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := f.do(t, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}

	notReady := newFixture(t, Options{Ready: func(context.Context) error { return errors.New("db down") }}, "")
	if rr := notReady.do(t, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d, want 503", rr.Code)
	}
}

func TestCardExpenseFlow(t *testing.T) {
	f := newFixture(t, Options{}, "")

	rr := f.do(t, http.MethodPost, "/api/card-expenses", twoCardLines)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	rr = f.do(t, http.MethodGet, "/api/entries", "")
	view := decode[[]viewEntryJSON](t, rr)
	if len(view) != 1 || view[0].Type != "invoice" {
		t.Fatalf("view = %+v, want one invoice", view)
	}
	inv := view[0].Invoice
	if inv.Amount != "150.00" || inv.DueDate != "2024-04-15" || len(inv.Members) != 2 {
		t.Errorf("invoice = %+v", inv)
	}

	rr = f.do(t, http.MethodGet, "/api/invoices/"+inv.ID, "")
	detail := decode[invoiceDetailJSON](t, rr)
	if len(detail.Holders) != 1 || detail.Holders[0].Holder != "Ana" {
		t.Errorf("detail holders = %+v", detail.Holders)
	}

	rr = f.do(t, http.MethodPost, "/api/invoices/"+inv.ID+"/settle", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("settle status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decode[resultJSON](t, rr)
	if len(res.Applied) != 2 || res.Applied[0].PaymentDate != "2024-04-02" {
		t.Errorf("result = %+v", res)
	}

	if rr := f.do(t, http.MethodGet, "/api/invoices/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown invoice status=%d", rr.Code)
	}
}

func TestCardExpenseValidation(t *testing.T) {
	f := newFixture(t, Options{}, "")

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "bad line",
			body:     `{"card":"Visa","lines":[{"date":"2024-03-10","description":"ok","categoryId":"fuel","amount":"1"},{"date":"10/03/2024","description":"","categoryId":"fuel","amount":"-1"}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `"lines":{"1":`,
		},
		{
			name:     "unknown card",
			body:     `{"card":"Visx","lines":[{"date":"2024-03-10","description":"ok","categoryId":"fuel","amount":"1"}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `did you mean`,
		},
		{
			name:     "unknown field",
			body:     `{"card":"Visa","bogus":true}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "empty body",
			body:     "",
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/api/card-expenses", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body %s missing %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
	if all, _ := f.store.All(context.Background()); len(all) != 0 {
		t.Errorf("rejected batches stored %d entries", len(all))
	}
}

func TestEntryLifecycle(t *testing.T) {
	f := newFixture(t, Options{}, "")

	rr := f.do(t, http.MethodPost, "/api/entries", `{"description":"Venda kit","amount":"1500","kind":"income","dueDate":"2024-03-20","categoryId":"sales","bankAccountId":"acc-1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	entry := decode[entryJSON](t, rr)

	if rr := f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/reverse", ""); rr.Code != http.StatusConflict {
		t.Errorf("reverse pending status=%d, want 409", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/settle", ""); rr.Code != http.StatusOK {
		t.Fatalf("settle status=%d", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/reverse", ""); rr.Code != http.StatusOK {
		t.Fatalf("reverse status=%d", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/cancel", `{"reason":""}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank cancel status=%d, want 422", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/recur", `{"frequency":"quarterly","occurrences":3}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("recur status=%d body=%s", rr.Code, rr.Body.String())
	}
	series := decode[[]entryJSON](t, rr)
	if len(series) != 3 || series[2].DueDate != "2024-09-20" {
		t.Errorf("series = %+v", series)
	}

	if rr := f.do(t, http.MethodDelete, "/api/entries/"+entry.ID, ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete status=%d", rr.Code)
	}
	if rr := f.do(t, http.MethodDelete, "/api/entries/"+entry.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/entries", `{"description":"","amount":"abc","kind":"income","dueDate":"2024-03-20","categoryId":"sales"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid create status=%d", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Fields[core.FieldAmount] == "" {
		t.Errorf("fields = %v, want amount error", body.Fields)
	}
}

func TestPartialSettlement(t *testing.T) {
	f := newFixture(t, Options{}, core.CardEntryPrefix+"e002")
	if rr := f.do(t, http.MethodPost, "/api/card-expenses", twoCardLines); rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}
	view := decode[[]viewEntryJSON](t, f.do(t, http.MethodGet, "/api/entries", ""))

	rr := f.do(t, http.MethodPost, "/api/invoices/"+view[0].Invoice.ID+"/settle", "")
	if rr.Code != http.StatusMultiStatus {
		t.Fatalf("status=%d body=%s, want 207", rr.Code, rr.Body.String())
	}
	res := decode[resultJSON](t, rr)
	if len(res.Applied) != 1 || len(res.Failed) != 1 || res.Failed[0].ID != core.CardEntryPrefix+"e002" {
		t.Errorf("result = %+v", res)
	}
}

func TestStatementEndpoint(t *testing.T) {
	f := newFixture(t, Options{}, "")
	_ = f.do(t, http.MethodPost, "/api/entries", `{"description":"Venda","amount":"200","kind":"income","dueDate":"2024-03-20","paymentDate":"2024-03-21","status":"settled","categoryId":"sales","bankAccountId":"acc-1"}`)

	rr := f.do(t, http.MethodGet, "/api/statement?period=quarterly&year=2024", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	st := decode[statementJSON](t, rr)
	if len(st.Columns) != 4 || st.Total.GrossRevenue != "200.00" || st.Total.Margin != "100.00" {
		t.Errorf("statement = %+v", st)
	}
	if st.Cached {
		t.Error("first statement should not be cached")
	}
	if st := decode[statementJSON](t, f.do(t, http.MethodGet, "/api/statement?period=quarterly&year=2024", "")); !st.Cached {
		t.Error("second statement should be cached")
	}

	if rr := f.do(t, http.MethodGet, "/api/statement?period=weekly", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad period status=%d, want 422", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1}, "")
	body := `{"reason":"x"}`
	if rr := f.do(t, http.MethodPost, "/api/entries/missing/cancel", body); rr.Code == http.StatusTooManyRequests {
		t.Fatal("first request should pass the limiter")
	}
	rr := f.do(t, http.MethodPost, "/api/entries/missing/cancel", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if rr := f.do(t, http.MethodGet, "/api/entries", ""); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, status=%d", rr.Code)
	}
}

func TestSettleCancelledEntryConflicts(t *testing.T) {
	f := newFixture(t, Options{}, "")

	rr := f.do(t, http.MethodPost, "/api/entries", `{"description":"Venda kit","amount":"1500","kind":"income","dueDate":"2024-03-20","categoryId":"sales","bankAccountId":"acc-1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	entry := decode[entryJSON](t, rr)
	if rr := f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/cancel", `{"reason":"duplicated"}`); rr.Code != http.StatusOK {
		t.Fatalf("cancel status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = f.do(t, http.MethodPost, "/api/entries/"+entry.ID+"/settle", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("settle cancelled status=%d body=%s, want 409", rr.Code, rr.Body.String())
	}
	if body := decode[errorResponse](t, rr); !strings.Contains(body.Error, "invalid status transition") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestEntryCategoryName(t *testing.T) {
	f := newFixture(t, Options{}, "")

	tests := []struct {
		name       string
		categoryID string
		want       string
	}{
		{name: "known category", categoryID: "sales", want: "Vendas"},
		{name: "unknown category", categoryID: "mystery", want: "Uncategorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"description":"Venda","amount":"10","kind":"income","dueDate":"2024-03-20","categoryId":"` + tt.categoryID + `","bankAccountId":"acc-1"}`
			rr := f.do(t, http.MethodPost, "/api/entries", body)
			if rr.Code != http.StatusCreated {
				t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
			}
			created := decode[entryJSON](t, rr)
			if created.CategoryName != tt.want {
				t.Errorf("created categoryName = %q, want %q", created.CategoryName, tt.want)
			}

			view := decode[[]viewEntryJSON](t, f.do(t, http.MethodGet, "/api/entries", ""))
			found := false
			for _, v := range view {
				if v.Entry != nil && v.Entry.ID == created.ID {
					found = true
					if v.Entry.CategoryName != tt.want {
						t.Errorf("list categoryName = %q, want %q", v.Entry.CategoryName, tt.want)
					}
				}
			}
			if !found {
				t.Errorf("entry %s missing from list", created.ID)
			}
		})
	}
}
