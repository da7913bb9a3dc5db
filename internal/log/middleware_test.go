package log

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true})

	var seenID string
	h := Middleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		FromContext(r.Context()).InfoContext(r.Context(), "Inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates id", func(t *testing.T) {
		buf.Reset()
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/entries", nil))

		if _, err := uuid.Parse(seenID); err != nil {
			t.Fatalf("request id %q is not a uuid", seenID)
		}
		if rr.Header().Get(RequestIDHeader) != seenID {
			t.Errorf("response header %q, want %q", rr.Header().Get(RequestIDHeader), seenID)
		}
		out := buf.String()
		if !strings.Contains(out, `"status_code":418`) || !strings.Contains(out, `"level":"WARN"`) {
			t.Errorf("completion log missing status or level: %s", out)
		}
		if strings.Count(out, seenID) != 2 {
			t.Errorf("request id should appear on both records: %s", out)
		}
	})

	t.Run("keeps valid incoming id", func(t *testing.T) {
		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, incoming)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seenID != incoming {
			t.Errorf("request id %q, want %q", seenID, incoming)
		}
	})

	t.Run("replaces garbage id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seenID == "<script>" {
			t.Error("untrusted request id was propagated")
		}
	})
}

func TestMiddleware_ClientIP(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true})
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "1.2.3.4:5678"
	Middleware(logger, nil)(noop).ServeHTTP(httptest.NewRecorder(), r)
	if !strings.Contains(buf.String(), `"client_ip":"1.2.3.4"`) {
		t.Errorf("default client ip not logged: %s", buf.String())
	}

	buf.Reset()
	fixed := func(*http.Request) string { return "10.9.8.7" }
	Middleware(logger, fixed)(noop).ServeHTTP(httptest.NewRecorder(), r)
	if !strings.Contains(buf.String(), `"client_ip":"10.9.8.7"`) {
		t.Errorf("custom client ip not logged: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" || ParseLevel("bogus").String() != "INFO" {
		t.Error("ParseLevel mapping is wrong")
	}
}
