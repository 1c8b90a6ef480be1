package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"solarb/internal/detector"
	"solarb/internal/executor"
	"solarb/internal/pnl"
	"solarb/internal/venue"
)

// SimulateTrade feeds a synthetic two-venue spread through detection and the
// full execution path. Fills are synthetic; nothing touches a real venue.
func (a *App) SimulateTrade(ctx context.Context, opts SimulateOptions) error {
	if opts.BuyPrice <= 0 || opts.SellPrice <= 0 {
		return errors.New("--buy and --sell must be greater than 0")
	}
	if opts.Pair == "" {
		opts.Pair = "SOL/USDC"
	}
	if opts.DepthUsd <= 0 {
		opts.DepthUsd = 1_000_000
	}

	buyPrice := decimal.NewFromFloat(opts.BuyPrice)
	sellPrice := decimal.NewFromFloat(opts.SellPrice)
	depth := decimal.NewFromFloat(opts.DepthUsd)

	cheap := &staticVenue{name: "sim-cheap", price: buyPrice, depth: depth}
	rich := &staticVenue{name: "sim-rich", price: sellPrice, depth: depth}

	quotes := []venue.PriceQuote{
		*mustQuote(ctx, cheap, opts.Pair),
		*mustQuote(ctx, rich, opts.Pair),
	}

	notional := decimal.NewFromFloat(a.Config.NotionalUsd)
	opp := detector.Detect(opts.Pair, quotes, notional)
	if opp == nil {
		fmt.Fprintln(os.Stdout, "no opportunity: spread does not clear zero profit")
		return nil
	}

	fmt.Fprintf(os.Stdout, "detected: buy %s @ %s, sell %s @ %s, %d bps\n",
		opp.BuyVenue, opp.BuyPrice.StringFixed(6),
		opp.SellVenue, opp.SellPrice.StringFixed(6),
		opp.ProfitBps)

	tracker := pnl.NewTracker(nil)
	exec := executor.New(executor.Options{
		MinProfitBps:   a.Config.MinProfitBps,
		MaxSlippageBps: a.Config.MaxSlippageBps,
		MaxPositionUsd: decimal.NewFromFloat(a.Config.MaxPositionUsd),
		SwapTimeout:    a.Config.SwapTimeout,
	}, venueMap([]venue.Client{cheap, rich}), tracker, a.newNotifier(), "simulated", a.Logger)

	rec := exec.Execute(ctx, opp)
	if rec == nil {
		fmt.Fprintln(os.Stdout, "opportunity rejected by execution gates")
		return nil
	}

	fmt.Fprintf(os.Stdout, "executed: size $%s, pnl $%s, outcome %s\n",
		rec.SizeUsd.StringFixed(2), rec.ProfitUsd.StringFixed(2), rec.Outcome)
	return nil
}

func mustQuote(ctx context.Context, v venue.Client, pair string) *venue.PriceQuote {
	q, _ := v.Quote(ctx, "", "", decimal.Decimal{})
	q.Pair = pair
	return q
}

// staticVenue serves a fixed price with symmetric buy/sell and fills swaps at
// the requested limit with a flat 10 bps fee.
type staticVenue struct {
	name  string
	price decimal.Decimal
	depth decimal.Decimal
}

func (s *staticVenue) Name() string { return s.name }

func (s *staticVenue) Quote(_ context.Context, _, _ string, _ decimal.Decimal) (*venue.PriceQuote, error) {
	return &venue.PriceQuote{
		Venue:     s.name,
		BuyPrice:  s.price,
		SellPrice: s.price,
		DepthUsd:  s.depth,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (s *staticVenue) Swap(_ context.Context, req venue.SwapRequest) (*venue.SwapResult, error) {
	fee := req.AmountUsd.Mul(decimal.NewFromFloat(0.001))
	return &venue.SwapResult{
		Signature: "sim-" + s.name,
		FillPrice: req.LimitPrice,
		FilledUsd: req.AmountUsd,
		FeeUsd:    fee,
	}, nil
}

var _ venue.Client = (*staticVenue)(nil)
