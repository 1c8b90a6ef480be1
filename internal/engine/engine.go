// Package engine owns the scan loop: quote fan-out, opportunity detection,
// and hand-off to the executor.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solarb/internal/detector"
	"solarb/internal/executor"
	"solarb/internal/pnl"
	"solarb/internal/venue"
)

// State is the engine lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Options parameterise the scan loop.
type Options struct {
	Pairs        []string
	NotionalUsd  decimal.Decimal
	ScanInterval time.Duration
	QuoteTimeout time.Duration
}

// Engine runs the continuous arbitrage scan. One Engine instance owns its
// entire lifecycle state; independent engines can coexist.
type Engine struct {
	opts    Options
	venues  []venue.Client
	exec    *executor.Executor
	tracker *pnl.Tracker
	logger  zerolog.Logger

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a stopped engine. Venue order is significant: it fixes the
// tie-break order used by the detector.
func New(opts Options, venues []venue.Client, exec *executor.Executor, tracker *pnl.Tracker, logger zerolog.Logger) *Engine {
	if opts.QuoteTimeout <= 0 {
		opts.QuoteTimeout = 5 * time.Second
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = time.Second
	}
	return &Engine{
		opts:    opts,
		venues:  venues,
		exec:    exec,
		tracker: tracker,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Start transitions the engine to Running and launches the scan loop.
// Calling Start on a running engine is a warning-level no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		e.logger.Warn().Stringer("state", e.state).Msg("start ignored, engine not stopped")
		return
	}
	e.state = StateRunning
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	e.logger.Info().
		Int("venues", len(e.venues)).
		Strs("pairs", e.opts.Pairs).
		Dur("interval", e.opts.ScanInterval).
		Msg("engine started")

	go e.run()
}

// Stop requests a cooperative shutdown and blocks until the in-flight tick
// (if any) has finished. No tick is interrupted mid-execution, so a trade's
// leg state machine is never abandoned. Stopping an already stopped engine
// is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateStopping
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	<-done

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()
	e.logger.Info().Msg("engine stopped")
}

// CurrentState reports the lifecycle state.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PnLStats snapshots aggregated performance. Safe to call from any state.
func (e *Engine) PnLStats() pnl.Stats {
	return e.tracker.Stats()
}

// RecentTrades snapshots the most recent trade records.
func (e *Engine) RecentTrades(limit int) []pnl.TradeRecord {
	return e.tracker.RecentTrades(limit)
}

// run is the engine's single logical timeline: ticks never overlap, and the
// next tick is deferred until the current one completes.
func (e *Engine) run() {
	defer close(e.doneCh)

	for {
		e.Tick(context.Background())

		timer := time.NewTimer(e.opts.ScanInterval)
		select {
		case <-e.stopCh:
			timer.Stop()
			e.logFinalStats()
			return
		case <-timer.C:
		}

		// A stop requested during the tick wins over the next interval.
		select {
		case <-e.stopCh:
			e.logFinalStats()
			return
		default:
		}
	}
}

// Tick scans every configured pair once, sequentially and in configured
// order. Only the quote fetches within a pair are parallel, which bounds the
// worst-case concurrent load to the venue count.
func (e *Engine) Tick(ctx context.Context) {
	for _, pair := range e.opts.Pairs {
		quotes := e.fanOut(ctx, pair)
		opp := detector.Detect(pair, quotes, e.opts.NotionalUsd)
		if opp == nil {
			continue
		}

		e.logger.Info().
			Str("pair", pair).
			Str("buy_venue", opp.BuyVenue).
			Str("sell_venue", opp.SellVenue).
			Int64("profit_bps", opp.ProfitBps).
			Str("profit_usd", opp.ProfitUsd.String()).
			Msg("opportunity detected")

		if e.stopRequested() {
			e.logger.Debug().Str("pair", pair).Msg("stop requested, not starting new trade")
			continue
		}
		e.exec.Execute(ctx, opp)
	}
}

// fanOut requests quotes from every venue via venue.CollectQuotes, so the
// live loop and one-shot scans share identical timeout and exclusion
// behavior.
func (e *Engine) fanOut(ctx context.Context, pair string) []venue.PriceQuote {
	quotes := venue.CollectQuotes(ctx, e.venues, pair, e.opts.NotionalUsd, e.opts.QuoteTimeout, e.logger)

	e.logger.Debug().
		Str("pair", pair).
		Int("venues_ok", len(quotes)).
		Int("venues_total", len(e.venues)).
		Msg("quote fan-out complete")

	return quotes
}

func (e *Engine) stopRequested() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

func (e *Engine) logFinalStats() {
	stats := e.tracker.Stats()
	e.logger.Info().
		Int("all_time_trades", stats.AllTime.Trades).
		Str("all_time_profit_usd", stats.AllTime.ProfitUsd.String()).
		Str("daily_profit_usd", stats.Daily.ProfitUsd.String()).
		Msg("final pnl")
}
