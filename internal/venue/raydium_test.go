package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRaydiumQuoteSpreadsPoolFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pools/info/mint" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"data": []map[string]string{{
					"price":   "100",
					"tvl":     "500000",
					"feeRate": "0.0025",
				}},
			},
		})
	}))
	defer srv.Close()

	r := NewRaydium(RaydiumOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	q, err := r.Quote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if !q.BuyPrice.Equal(decimal.NewFromFloat(100.25)) {
		t.Fatalf("buy price %s, want 100.25", q.BuyPrice)
	}
	if !q.SellPrice.Equal(decimal.NewFromFloat(99.75)) {
		t.Fatalf("sell price %s, want 99.75", q.SellPrice)
	}
	if !q.DepthUsd.Equal(decimal.NewFromInt(500000)) {
		t.Fatalf("depth %s, want 500000", q.DepthUsd)
	}
}

func TestRaydiumQuoteNoPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"data": []any{}},
		})
	}))
	defer srv.Close()

	r := NewRaydium(RaydiumOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := r.Quote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100)); err == nil {
		t.Fatal("empty pool list must fail the quote")
	}
}

func TestRaydiumSwapRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	r := NewRaydium(RaydiumOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := r.Swap(context.Background(), SwapRequest{
		Pair:       "SOL/USDC",
		Side:       SideBuy,
		AmountUsd:  decimal.NewFromInt(100),
		LimitPrice: decimal.NewFromInt(100),
	})
	if err == nil {
		t.Fatal("rejected swap must return an error")
	}
}
