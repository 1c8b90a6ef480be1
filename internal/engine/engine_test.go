package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"solarb/internal/executor"
	"solarb/internal/pnl"
	"solarb/internal/venue"
)

// stubVenue serves one fixed quote and fills swaps at the requested limit.
type stubVenue struct {
	name     string
	buy      float64
	sell     float64
	quoteErr error

	mu       sync.Mutex
	block    chan struct{}
	inQuote  chan struct{}
	quoteHit int
}

func (s *stubVenue) Name() string { return s.name }

func (s *stubVenue) Quote(ctx context.Context, base, quote string, notional decimal.Decimal) (*venue.PriceQuote, error) {
	s.mu.Lock()
	s.quoteHit++
	block := s.block
	inQuote := s.inQuote
	s.mu.Unlock()

	if inQuote != nil {
		select {
		case inQuote <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return &venue.PriceQuote{
		Venue:     s.name,
		Pair:      base + "/" + quote,
		BuyPrice:  decimal.NewFromFloat(s.buy),
		SellPrice: decimal.NewFromFloat(s.sell),
		DepthUsd:  decimal.NewFromInt(1_000_000),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (s *stubVenue) Swap(_ context.Context, req venue.SwapRequest) (*venue.SwapResult, error) {
	return &venue.SwapResult{
		Signature: "sig-" + s.name,
		FillPrice: req.LimitPrice,
		FilledUsd: req.AmountUsd,
		FeeUsd:    decimal.Decimal{},
	}, nil
}

func quoteCount(s *stubVenue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quoteHit
}

func newTestEngine(tracker *pnl.Tracker, venues ...venue.Client) *Engine {
	byName := make(map[string]venue.Client, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}
	exec := executor.New(executor.Options{
		MinProfitBps:   10,
		MaxSlippageBps: 50,
		MaxPositionUsd: decimal.NewFromInt(100),
		SwapTimeout:    time.Second,
	}, byName, tracker, nil, "wallet", zerolog.Nop())

	return New(Options{
		Pairs:        []string{"SOL/USDC"},
		NotionalUsd:  decimal.NewFromInt(100),
		ScanInterval: 5 * time.Millisecond,
		QuoteTimeout: time.Second,
	}, venues, exec, tracker, zerolog.Nop())
}

func TestEngineLifecycle(t *testing.T) {
	tracker := pnl.NewTracker(nil)
	eng := newTestEngine(tracker,
		&stubVenue{name: "alpha", buy: 100.00, sell: 100.00},
		&stubVenue{name: "beta", buy: 100.00, sell: 100.00},
	)

	require.Equal(t, StateStopped, eng.CurrentState())

	eng.Start()
	require.Equal(t, StateRunning, eng.CurrentState())

	// A second Start while running is a no-op.
	eng.Start()
	require.Equal(t, StateRunning, eng.CurrentState())

	eng.Stop()
	require.Equal(t, StateStopped, eng.CurrentState())

	// Stopping again must not panic or block.
	eng.Stop()
	require.Equal(t, StateStopped, eng.CurrentState())
}

func TestEngineTickExecutesOpportunity(t *testing.T) {
	tracker := pnl.NewTracker(nil)
	eng := newTestEngine(tracker,
		&stubVenue{name: "alpha", buy: 100.00, sell: 100.05},
		&stubVenue{name: "beta", buy: 99.80, sell: 100.00},
	)
	eng.Tick(context.Background())

	require.Equal(t, 1, tracker.TradeCount())
	rec := tracker.RecentTrades(1)[0]
	require.Equal(t, "beta", rec.BuyVenue)
	require.Equal(t, "alpha", rec.SellVenue)
	require.Equal(t, pnl.OutcomeSettled, rec.Outcome)
}

func TestEngineTickExcludesFailingVenue(t *testing.T) {
	tracker := pnl.NewTracker(nil)
	down := &stubVenue{name: "gamma", quoteErr: errors.New("unreachable")}
	eng := newTestEngine(tracker,
		&stubVenue{name: "alpha", buy: 100.00, sell: 100.05},
		down,
		&stubVenue{name: "beta", buy: 99.80, sell: 100.00},
	)
	eng.Tick(context.Background())

	require.Equal(t, 1, quoteCount(down), "failing venue is still queried")
	require.Equal(t, 1, tracker.TradeCount(), "remaining venues still produce the trade")
}

func TestEngineTickSingleVenueNoOpportunity(t *testing.T) {
	tracker := pnl.NewTracker(nil)
	eng := newTestEngine(tracker,
		&stubVenue{name: "alpha", buy: 99.80, sell: 100.05},
		&stubVenue{name: "beta", quoteErr: errors.New("down")},
	)
	eng.Tick(context.Background())

	require.Zero(t, tracker.TradeCount())
}

func TestEngineStopWaitsForInflightTick(t *testing.T) {
	tracker := pnl.NewTracker(nil)
	slow := &stubVenue{
		name:    "alpha",
		buy:     100.00,
		sell:    100.00,
		block:   make(chan struct{}),
		inQuote: make(chan struct{}, 1),
	}
	eng := newTestEngine(tracker, slow, &stubVenue{name: "beta", buy: 100.00, sell: 100.00})

	eng.Start()

	select {
	case <-slow.inQuote:
	case <-time.After(time.Second):
		t.Fatal("tick never reached the venue")
	}

	stopped := make(chan struct{})
	go func() {
		eng.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(slow.block)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the tick finished")
	}
	require.Equal(t, StateStopped, eng.CurrentState())
}
