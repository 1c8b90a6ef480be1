package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"solarb/internal/detector"
	"solarb/internal/pnl"
	"solarb/internal/venue"
)

// fakeVenue serves canned swap results and records every request it sees.
type fakeVenue struct {
	name     string
	swapErr  error
	fill     venue.SwapResult
	requests []venue.SwapRequest
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) Quote(context.Context, string, string, decimal.Decimal) (*venue.PriceQuote, error) {
	return nil, errors.New("not used")
}

func (f *fakeVenue) Swap(_ context.Context, req venue.SwapRequest) (*venue.SwapResult, error) {
	f.requests = append(f.requests, req)
	if f.swapErr != nil {
		return nil, f.swapErr
	}
	fill := f.fill
	return &fill, nil
}

func opportunity(profitBps int64, depth float64) *detector.Opportunity {
	return &detector.Opportunity{
		Pair:         "SOL/USDC",
		BuyVenue:     "alpha",
		SellVenue:    "beta",
		BuyPrice:     decimal.NewFromFloat(99.80),
		SellPrice:    decimal.NewFromFloat(100.05),
		ProfitBps:    profitBps,
		ProfitUsd:    decimal.NewFromFloat(0.25),
		BuyDepthUsd:  decimal.NewFromFloat(depth),
		SellDepthUsd: decimal.NewFromFloat(depth),
	}
}

func newTestExecutor(buy, sell *fakeVenue, tracker *pnl.Tracker, opts Options) *Executor {
	venues := map[string]venue.Client{buy.name: buy, sell.name: sell}
	return New(opts, venues, tracker, nil, "wallet", zerolog.Nop())
}

func defaultOptions() Options {
	return Options{
		MinProfitBps:   10,
		MaxSlippageBps: 50,
		MaxPositionUsd: decimal.NewFromInt(100),
		SwapTimeout:    time.Second,
	}
}

func TestExecuteBelowProfitThreshold(t *testing.T) {
	buy := &fakeVenue{name: "alpha"}
	sell := &fakeVenue{name: "beta"}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	rec := exec.Execute(context.Background(), opportunity(5, 1_000_000))

	require.Nil(t, rec)
	require.Empty(t, buy.requests, "buy leg must not start below the threshold")
	require.Zero(t, tracker.TradeCount(), "gated opportunities leave no record")
}

func TestExecuteUnknownDepthSkipped(t *testing.T) {
	buy := &fakeVenue{name: "alpha"}
	sell := &fakeVenue{name: "beta"}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	opp := opportunity(25, 1_000_000)
	opp.SellDepthUsd = decimal.Decimal{}

	rec := exec.Execute(context.Background(), opp)

	require.Nil(t, rec, "unknown depth counts as exceeding the slippage limit")
	require.Empty(t, buy.requests)
}

func TestExecuteThinDepthSkipped(t *testing.T) {
	buy := &fakeVenue{name: "alpha"}
	sell := &fakeVenue{name: "beta"}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	// Depth below the position cap forces size == depth, which projects
	// full-depth slippage.
	rec := exec.Execute(context.Background(), opportunity(25, 50))

	require.Nil(t, rec)
	require.Empty(t, buy.requests)
}

func TestExecuteScanOnly(t *testing.T) {
	buy := &fakeVenue{name: "alpha"}
	sell := &fakeVenue{name: "beta"}
	tracker := pnl.NewTracker(nil)
	opts := defaultOptions()
	opts.ScanOnly = true
	exec := newTestExecutor(buy, sell, tracker, opts)

	rec := exec.Execute(context.Background(), opportunity(25, 1_000_000))

	require.Nil(t, rec)
	require.Empty(t, buy.requests)
	require.Empty(t, sell.requests)
}

func TestExecuteSettled(t *testing.T) {
	buy := &fakeVenue{name: "alpha", fill: venue.SwapResult{
		Signature: "sig-buy",
		FillPrice: decimal.NewFromFloat(99.80),
		FilledUsd: decimal.NewFromInt(100),
		FeeUsd:    decimal.NewFromFloat(0.05),
	}}
	sell := &fakeVenue{name: "beta", fill: venue.SwapResult{
		Signature: "sig-sell",
		FillPrice: decimal.NewFromFloat(100.05),
		FilledUsd: decimal.NewFromInt(100),
		FeeUsd:    decimal.NewFromFloat(0.05),
	}}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	rec := exec.Execute(context.Background(), opportunity(25, 1_000_000))

	require.NotNil(t, rec)
	require.Equal(t, pnl.OutcomeSettled, rec.Outcome)
	require.Len(t, buy.requests, 1)
	require.Len(t, sell.requests, 1)
	require.Equal(t, venue.SideBuy, buy.requests[0].Side)
	require.Equal(t, venue.SideSell, sell.requests[0].Side)

	// (100.05-99.80) * (100/99.80) - 0.05 - 0.05
	baseQty := decimal.NewFromInt(100).Div(decimal.NewFromFloat(99.80))
	want := decimal.NewFromFloat(0.25).Mul(baseQty).Sub(decimal.NewFromFloat(0.10))
	require.True(t, rec.ProfitUsd.Equal(want), "profit %s, want %s", rec.ProfitUsd, want)
	require.Equal(t, 1, tracker.TradeCount())
}

func TestExecuteBuyFailureAborts(t *testing.T) {
	buy := &fakeVenue{name: "alpha", swapErr: errors.New("venue rejected")}
	sell := &fakeVenue{name: "beta"}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	rec := exec.Execute(context.Background(), opportunity(25, 1_000_000))

	require.NotNil(t, rec)
	require.Equal(t, pnl.OutcomeAborted, rec.Outcome)
	require.True(t, rec.ProfitUsd.IsZero())
	require.Empty(t, sell.requests, "sell leg must not start after a failed buy")
	require.Equal(t, 1, tracker.TradeCount(), "an initiated attempt always leaves a record")
}

func TestExecuteSellFailureRecordsLoss(t *testing.T) {
	buy := &fakeVenue{name: "alpha", fill: venue.SwapResult{
		Signature: "sig-buy",
		FillPrice: decimal.NewFromFloat(99.80),
		FilledUsd: decimal.NewFromInt(100),
		FeeUsd:    decimal.NewFromFloat(0.07),
	}}
	sell := &fakeVenue{name: "beta", swapErr: errors.New("timeout")}
	tracker := pnl.NewTracker(nil)
	exec := newTestExecutor(buy, sell, tracker, defaultOptions())

	rec := exec.Execute(context.Background(), opportunity(25, 1_000_000))

	require.NotNil(t, rec)
	require.Equal(t, pnl.OutcomeAborted, rec.Outcome)
	require.True(t, rec.ProfitUsd.Equal(decimal.NewFromFloat(-0.07)),
		"the sunk buy-leg fee must be recorded as a loss, got %s", rec.ProfitUsd)
	require.Equal(t, 1, tracker.TradeCount())
}
