package shield

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/vendas/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireToken(t *testing.T) {
	h := RequireToken("s3cret")(okHandler())

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer", "/api/dados", "Bearer s3cret", http.StatusOK},
		{"query", "/api/dados?token=s3cret", "", http.StatusOK},
		{"wrong bearer", "/api/dados", "Bearer nope", http.StatusUnauthorized},
		{"missing", "/api/dados", "", http.StatusUnauthorized},
		{"bare header", "/api/dados", "s3cret", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, c.target, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d", rec.Code, c.want)
			}
		})
	}
}

func TestRequireToken_FailureBody(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireToken("x")(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/coleta", nil))

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "falha" || body["erro"] != "Token inválido" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestTraceID_SetsHeaderAndContext(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = kit.GetTraceID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if seen == "" || len(seen) != 8 {
		t.Fatalf("trace id in context = %q", seen)
	}
	if rec.Header().Get("X-Trace-ID") != seen {
		t.Fatalf("header %q != context %q", rec.Header().Get("X-Trace-ID"), seen)
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := HeadToGet(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { method = r.Method }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/health", nil))
	if method != http.MethodGet {
		t.Fatalf("method = %s", method)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(DefaultHeaders())(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options")
	}
}
