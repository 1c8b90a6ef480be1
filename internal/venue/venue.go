// Package venue defines the per-exchange capability the engine consumes:
// quote retrieval and trade submission. Each DEX gets its own Client
// implementation; the engine dispatches over them uniformly.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PriceQuote is one venue's tradable price for a pair at fetch time. Buy and
// sell prices are independent; a venue may show a spread.
type PriceQuote struct {
	Venue     string
	Pair      string
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	// DepthUsd estimates how much notional the venue can absorb at roughly
	// the quoted price. Zero means unknown.
	DepthUsd  decimal.Decimal
	FetchedAt time.Time
}

// Side identifies a swap direction relative to the base asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SwapRequest describes one trade leg to submit at a venue.
type SwapRequest struct {
	Pair       string
	Side       Side
	AmountUsd  decimal.Decimal
	LimitPrice decimal.Decimal
	Wallet     string
}

// SwapResult reports the outcome of a submitted leg.
type SwapResult struct {
	Signature string
	FillPrice decimal.Decimal
	FilledUsd decimal.Decimal
	FeeUsd    decimal.Decimal
}

// Client is the capability every venue implements. Quote returns nil-with-
// error on any retrieval failure; the caller treats that as absence, never as
// a fatal condition.
type Client interface {
	Name() string
	Quote(ctx context.Context, base, quote string, notionalUsd decimal.Decimal) (*PriceQuote, error)
	Swap(ctx context.Context, req SwapRequest) (*SwapResult, error)
}

// CollectQuotes requests a quote from every client concurrently, each under
// its own timeout. Failed or timed-out clients are simply excluded from the
// result: a per-venue failure is recoverable and never escalates. The
// returned slice preserves client registration order, which fixes the
// detector's tie-break order.
func CollectQuotes(ctx context.Context, clients []Client, pair string, notionalUsd decimal.Decimal, timeout time.Duration, logger zerolog.Logger) []PriceQuote {
	base, quote, err := SplitPair(pair)
	if err != nil {
		logger.Error().Err(err).Str("pair", pair).Msg("skipping malformed pair")
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	results := make([]*PriceQuote, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			pq, err := c.Quote(qctx, base, quote, notionalUsd)
			if err != nil {
				logger.Debug().Err(err).
					Str("pair", pair).
					Str("venue", c.Name()).
					Msg("quote unavailable")
				return nil
			}
			results[i] = pq
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]PriceQuote, 0, len(results))
	for _, pq := range results {
		if pq != nil {
			quotes = append(quotes, *pq)
		}
	}
	return quotes
}

// mints maps supported token symbols to their SPL mint addresses.
var mints = map[string]tokenInfo{
	"SOL":  {"So11111111111111111111111111111111111111112", 9},
	"USDC": {"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 6},
	"USDT": {"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", 6},
	"RAY":  {"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", 6},
	"ORCA": {"orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE", 6},
	"JUP":  {"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", 6},
}

type tokenInfo struct {
	Mint     string
	Decimals int32
}

// Mint resolves a token symbol to its mint address and decimals.
func Mint(symbol string) (string, int32, error) {
	info, ok := mints[strings.ToUpper(symbol)]
	if !ok {
		return "", 0, fmt.Errorf("unknown token: %s", symbol)
	}
	return info.Mint, info.Decimals, nil
}

// SplitPair splits "SOL/USDC" into base and quote symbols.
func SplitPair(pair string) (string, string, error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed pair: %s", pair)
	}
	return parts[0], parts[1], nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return httpError(resp.StatusCode, payload)
	}
	return json.Unmarshal(payload, out)
}

func postJSON(ctx context.Context, client *http.Client, url string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(raw)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return httpError(resp.StatusCode, payload)
	}
	return json.Unmarshal(payload, out)
}

func httpError(status int, payload []byte) error {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		for _, msg := range []string{apiErr.Error, apiErr.Message, apiErr.Msg} {
			if msg != "" {
				return fmt.Errorf("venue api error (%d): %s", status, msg)
			}
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("venue api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("venue api error (%d)", status)
}

// atomsFromUsd converts a USD notional to integer token atoms assuming a
// 1-USD-pegged token with the given decimals.
func atomsFromUsd(notional decimal.Decimal, decimals int32) decimal.Decimal {
	return notional.Shift(decimals).Round(0)
}
