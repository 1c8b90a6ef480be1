package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solarb/internal/pnl"
)

func testRecord() pnl.TradeRecord {
	return pnl.TradeRecord{
		Timestamp: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Pair:      "SOL/USDC",
		BuyVenue:  "jupiter",
		SellVenue: "raydium",
		BuyPrice:  decimal.NewFromFloat(99.80),
		SellPrice: decimal.NewFromFloat(100.05),
		SizeUsd:   decimal.NewFromInt(100),
		ProfitUsd: decimal.NewFromFloat(0.25),
		Outcome:   pnl.OutcomeSettled,
	}
}

func TestNotifyTradeDelivers(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	notifier.NotifyTrade(context.Background(), testRecord())

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id wrong: %#v", received)
	}
	for _, want := range []string{"SOL/USDC", "jupiter", "raydium", "settled", "0.25"} {
		if !strings.Contains(received["text"], want) {
			t.Fatalf("message missing %q:\n%s", want, received["text"])
		}
	}
}

func TestSendRejectsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := notifier.send(context.Background(), "text"); err == nil {
		t.Fatal("ok=false must be an error")
	}
}

func TestSendRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, zerolog.Nop())
	if err := notifier.send(context.Background(), "text"); err == nil {
		t.Fatal("HTTP 403 must be an error")
	}
}
