package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// rpcServer answers JSON-RPC 2.0 calls with canned per-method results.
func rpcServer(t *testing.T, results map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}

		result, ok := results[req.Method]
		if !ok {
			t.Fatalf("unexpected method %s", req.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient(Options{URL: url, Timeout: time.Second}, zerolog.Nop())
}

func TestCheckHealthOK(t *testing.T) {
	srv := rpcServer(t, map[string]any{"getHealth": "ok"})
	defer srv.Close()

	if err := newTestClient(srv.URL).CheckHealth(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}

func TestCheckHealthUnhealthy(t *testing.T) {
	srv := rpcServer(t, map[string]any{"getHealth": "behind"})
	defer srv.Close()

	if err := newTestClient(srv.URL).CheckHealth(context.Background()); err == nil {
		t.Fatal("non-ok health must be an error")
	}
}

func TestBalanceConvertsLamports(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"getBalance": map[string]any{"value": uint64(2_500_000_000)},
	})
	defer srv.Close()

	balance, err := newTestClient(srv.URL).Balance(context.Background(), "SoMeAccount")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromFloat(2.5)) {
		t.Fatalf("balance %s, want 2.5", balance)
	}
}

func TestBalanceRequiresAccount(t *testing.T) {
	if _, err := newTestClient("http://127.0.0.1:1").Balance(context.Background(), ""); err == nil {
		t.Fatal("empty account must fail before dialing")
	}
}

func TestVersion(t *testing.T) {
	srv := rpcServer(t, map[string]any{
		"getVersion": map[string]any{"solana-core": "1.18.22"},
	})
	defer srv.Close()

	version, err := newTestClient(srv.URL).Version(context.Background())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if version != "1.18.22" {
		t.Fatalf("version %q", version)
	}
}
