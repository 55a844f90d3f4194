// CLAUDE:SUMMARY Registers the vendas MCP tools (coletar, ultima, historico, execucoes) through kit endpoints.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/vendas/collector/internal/history"
	"github.com/hazyhaar/vendas/kit"
)

// RegisterMCP registers the collector tools on an MCP server.
func (c *Collector) RegisterMCP(srv *mcp.Server) {
	c.registerCollectTool(srv)
	c.registerLatestTool(srv)
	c.registerHistoryTool(srv)
	c.registerRunsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// logged wraps an endpoint with one log line per call.
func logged(log *slog.Logger, tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{"tool", tool, "transport", kit.GetTransport(ctx), "duration", time.Since(start)}
			if err != nil {
				log.Warn("mcp: tool failed", append(attrs, "error", err)...)
			} else {
				log.Info("mcp: tool call", attrs...)
			}
			return resp, err
		}
	}
}

type emptyRequest struct{}

func (c *Collector) registerCollectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vendas_coletar",
		Description: "Run one collection of yesterday's sales by store and append it to the history.",
		InputSchema: inputSchema(map[string]any{}),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return c.Run(context.WithoutCancel(ctx), "mcp")
	}
	kit.RegisterMCPTool(srv, tool, logged(c.log, tool.Name)(endpoint), kit.DecodeArgs[emptyRequest])
}

func (c *Collector) registerLatestTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vendas_ultima",
		Description: "Return the most recent collected sales entry.",
		InputSchema: inputSchema(map[string]any{}),
	}
	endpoint := func(_ context.Context, _ any) (any, error) {
		return c.Latest()
	}
	kit.RegisterMCPTool(srv, tool, logged(c.log, tool.Name)(endpoint), kit.DecodeArgs[emptyRequest])
}

type historyRequest struct {
	Days *int `json:"dias,omitempty"`
}

func (c *Collector) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vendas_historico",
		Description: "Return the collections of the last N days with their count and average value.",
		InputSchema: inputSchema(map[string]any{
			"dias": map[string]any{"type": "integer", "minimum": 0, "description": "Window in days (default 7)"},
		}),
	}
	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*historyRequest)
		days := history.DefaultDays
		if r.Days != nil && *r.Days >= 0 {
			days = *r.Days
		}
		return c.History(days)
	}
	kit.RegisterMCPTool(srv, tool, logged(c.log, tool.Name)(endpoint), kit.DecodeArgs[historyRequest])
}

type runsRequest struct {
	Limit int `json:"limite,omitempty"`
}

func (c *Collector) registerRunsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "vendas_execucoes",
		Description: "List recent collection runs, newest first, with their outcome.",
		InputSchema: inputSchema(map[string]any{
			"limite": map[string]any{"type": "integer", "description": "Max runs (default 20)"},
		}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return c.Runs(ctx, req.(*runsRequest).Limit)
	}
	kit.RegisterMCPTool(srv, tool, logged(c.log, tool.Name)(endpoint), kit.DecodeArgs[runsRequest])
}
