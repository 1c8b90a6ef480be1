package venue

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

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestJupiterQuote(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		calls++
		res := map[string]string{"priceImpactPct": "0.01"}
		if calls == 1 {
			// 100 USDC in, 1 SOL out (9 decimals).
			res["outAmount"] = "1000000000"
		} else {
			// 1 SOL in, 99.5 USDC out (6 decimals).
			res["outAmount"] = "99500000"
		}
		_ = json.NewEncoder(w).Encode(res)
	}))
	defer srv.Close()

	j := NewJupiter(JupiterOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	q, err := j.Quote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected two routed quotes, got %d", calls)
	}
	if !q.BuyPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("buy price %s, want 100", q.BuyPrice)
	}
	if !q.SellPrice.Equal(decimal.NewFromFloat(99.5)) {
		t.Fatalf("sell price %s, want 99.5", q.SellPrice)
	}
	// 100 notional at 0.01% impact implies 10000 USD of depth.
	if !q.DepthUsd.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("depth %s, want 10000", q.DepthUsd)
	}
}

func TestJupiterQuoteZeroOutAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"outAmount": "0", "priceImpactPct": "0"})
	}))
	defer srv.Close()

	j := NewJupiter(JupiterOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := j.Quote(context.Background(), "SOL", "USDC", decimal.NewFromInt(100)); err == nil {
		t.Fatal("zero out amount must fail the quote")
	}
}

func TestJupiterQuoteUnknownToken(t *testing.T) {
	j := NewJupiter(JupiterOptions{}, noopLogger())
	if _, err := j.Quote(context.Background(), "DOGE", "USDC", decimal.NewFromInt(100)); err == nil {
		t.Fatal("unknown token must fail")
	}
}

func TestJupiterSwapBuy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req jupiterSwapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode swap request: %v", err)
		}
		if req.UserPublicKey != "wallet" {
			t.Fatalf("wallet not forwarded: %#v", req)
		}
		_ = json.NewEncoder(w).Encode(jupiterSwapResponse{
			Signature: "sig",
			InAmount:  "100000000",  // 100 USDC
			OutAmount: "1000000000", // 1 SOL
			FeeBps:    10,
		})
	}))
	defer srv.Close()

	j := NewJupiter(JupiterOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	res, err := j.Swap(context.Background(), SwapRequest{
		Pair:       "SOL/USDC",
		Side:       SideBuy,
		AmountUsd:  decimal.NewFromInt(100),
		LimitPrice: decimal.NewFromInt(100),
		Wallet:     "wallet",
	})
	if err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	if res.Signature != "sig" {
		t.Fatalf("signature %s", res.Signature)
	}
	if !res.FilledUsd.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("filled %s, want 100", res.FilledUsd)
	}
	if !res.FillPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("fill price %s, want 100", res.FillPrice)
	}
	if !res.FeeUsd.Equal(decimal.NewFromFloat(0.1)) {
		t.Fatalf("fee %s, want 0.1", res.FeeUsd)
	}
}

func TestJupiterSwapMissingSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jupiterSwapResponse{InAmount: "1", OutAmount: "1"})
	}))
	defer srv.Close()

	j := NewJupiter(JupiterOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := j.Swap(context.Background(), SwapRequest{
		Pair:       "SOL/USDC",
		Side:       SideBuy,
		AmountUsd:  decimal.NewFromInt(100),
		LimitPrice: decimal.NewFromInt(100),
	})
	if err == nil {
		t.Fatal("missing signature must fail the swap")
	}
}
