package kit

import (
	"context"
	"errors"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], expected[i])
		}
	}
}

func TestChain_ErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	pass := func(next Endpoint) Endpoint { return next }
	_, err := Chain(pass)(func(context.Context, any) (any, error) { return nil, boom })(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
}

func TestTransport_Default(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Fatalf("default transport = %q", got)
	}
	if got := GetTransport(WithTransport(ctx, "mcp")); got != "mcp" {
		t.Fatalf("transport = %q", got)
	}
}

func TestTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abcd")
	if got := GetTraceID(ctx); got != "abcd" {
		t.Fatalf("trace id = %q", got)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Fatalf("empty ctx trace id = %q", got)
	}
}
