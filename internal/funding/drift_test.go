package funding

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

func TestDriftRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fundingRates" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		market := r.URL.Query().Get("marketName")
		rate := "0.0001"
		if market == "BTC-PERP" {
			rate = "-0.0002"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fundingRates": []map[string]string{{"fundingRate": rate}},
		})
	}))
	defer srv.Close()

	d := NewDrift(DriftOptions{
		BaseURL: srv.URL,
		Markets: []string{"SOL-PERP", "BTC-PERP"},
		Timeout: time.Second,
	}, noopLogger())

	rates, err := d.Rates(context.Background())
	if err != nil {
		t.Fatalf("rates failed: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}

	sol := rates[0]
	if sol.Market != "SOL-PERP" {
		t.Fatalf("configured order not preserved: %s", sol.Market)
	}
	if !sol.LongPayShort {
		t.Fatal("positive rate means longs pay shorts")
	}
	// 0.0001/h * 24 * 365 * 100 = 87.6% APY
	if !sol.FundingRateApy.Equal(decimal.NewFromFloat(87.6)) {
		t.Fatalf("apy %s, want 87.6", sol.FundingRateApy)
	}

	if rates[1].LongPayShort {
		t.Fatal("negative rate means shorts pay longs")
	}
}

func TestDriftRatesSkipsFailingMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("marketName") == "BTC-PERP" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fundingRates": []map[string]string{{"fundingRate": "0.0001"}},
		})
	}))
	defer srv.Close()

	d := NewDrift(DriftOptions{
		BaseURL: srv.URL,
		Markets: []string{"SOL-PERP", "BTC-PERP"},
		Timeout: time.Second,
	}, noopLogger())

	rates, err := d.Rates(context.Background())
	if err != nil {
		t.Fatalf("rates failed: %v", err)
	}
	if len(rates) != 1 || rates[0].Market != "SOL-PERP" {
		t.Fatalf("expected only SOL-PERP, got %+v", rates)
	}
}

func TestDriftRatesAllMarketsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDrift(DriftOptions{
		BaseURL: srv.URL,
		Markets: []string{"SOL-PERP"},
		Timeout: time.Second,
	}, noopLogger())

	if _, err := d.Rates(context.Background()); err == nil {
		t.Fatal("all markets failing must surface an error")
	}
}

func TestDriftMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"markets": []map[string]string{
				{"marketName": "SOL-PERP", "oraclePrice": "150.25", "openInterest": "1000000"},
				{"marketName": "BROKEN", "oraclePrice": "not-a-number", "openInterest": "0"},
			},
		})
	}))
	defer srv.Close()

	d := NewDrift(DriftOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	markets, err := d.Markets(context.Background())
	if err != nil {
		t.Fatalf("markets failed: %v", err)
	}
	if len(markets) != 1 {
		t.Fatalf("unparseable market should be dropped, got %d", len(markets))
	}
	if !markets[0].OraclePrice.Equal(decimal.NewFromFloat(150.25)) {
		t.Fatalf("oracle price %s", markets[0].OraclePrice)
	}
}
