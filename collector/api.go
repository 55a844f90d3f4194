// CLAUDE:SUMMARY HTTP handlers of the vendas API (coleta, dados, historico, execucoes, health) mounted on a chi router.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/vendas/collector/internal/history"
	"github.com/hazyhaar/vendas/shield"
)

// Handler returns the whole HTTP surface: the shield middleware stack,
// an open /health and the token-protected API. mcpHandler, when not nil,
// is served at /mcp behind the same token.
func (c *Collector) Handler(token string, mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack() {
		r.Use(mw)
	}
	r.Get("/health", HandleHealth(c.now))
	r.Group(func(r chi.Router) {
		r.Use(shield.RequireToken(token))
		c.Routes(r)
		if mcpHandler != nil {
			r.Handle("/mcp", mcpHandler)
		}
	})
	return r
}

// Routes mounts the authenticated API on r. Authentication is the
// caller's middleware (shield.RequireToken).
func (c *Collector) Routes(r chi.Router) {
	r.Post("/api/coleta", c.handleCollect)
	r.Get("/api/dados", c.handleLatest)
	r.Get("/api/historico", c.handleHistory)
	r.Get("/api/execucoes", c.handleRuns)
}

// HandleHealth answers {status:"online", timestamp}.
func HandleHealth(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "online",
			"timestamp": now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func (c *Collector) handleCollect(w http.ResponseWriter, r *http.Request) {
	// The run outlives a dropped client connection.
	res, err := c.Run(context.WithoutCancel(r.Context()), "api")
	if err != nil {
		shield.GetLogger(r.Context()).Warn("api: collection failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, failureBody(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sucesso", "dados": res})
}

func (c *Collector) handleLatest(w http.ResponseWriter, r *http.Request) {
	entry, err := c.Latest()
	if errors.Is(err, ErrNoData) {
		writeFailure(w, http.StatusNotFound, "Nenhuma coleta realizada ainda")
		return
	}
	if err != nil {
		shield.GetLogger(r.Context()).Error("api: read history", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sucesso", "dados": entry})
}

func (c *Collector) handleHistory(w http.ResponseWriter, r *http.Request) {
	sum, err := c.History(history.ParseDays(r.URL.Query().Get("dias")))
	if err != nil {
		shield.GetLogger(r.Context()).Error("api: query history", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "sucesso",
		"dias":    sum.Days,
		"coletas": sum.Count,
		"media":   sum.Average,
		"dados":   sum.Entries,
	})
}

func (c *Collector) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := c.Runs(r.Context(), queryInt(r, "limite", 20))
	if err != nil {
		shield.GetLogger(r.Context()).Error("api: list runs", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sucesso", "execucoes": runs})
}

// failureBody is the 500 body of a failed collection. RunErrors add the
// state reached (etapa) and the failure kind (tipo).
func failureBody(err error) map[string]any {
	body := map[string]any{"status": "falha", "erro": err.Error()}
	var rerr *RunError
	if errors.As(err, &rerr) {
		body["erro"] = rerr.Err.Error()
		body["etapa"] = rerr.State
		body["tipo"] = rerr.Kind
	}
	return body
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"status": "falha", "erro": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
