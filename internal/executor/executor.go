// Package executor drives the two-leg execution of a detected opportunity.
package executor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"solarb/internal/detector"
	"solarb/internal/pnl"
	"solarb/internal/venue"
)

var bpsScale = decimal.NewFromInt(10000)

// legState tracks progress through the execution state machine.
type legState int

const (
	stateBuyLeg legState = iota
	stateSellLeg
	stateSettled
	stateAborted
)

func (s legState) String() string {
	switch s {
	case stateBuyLeg:
		return "buy_leg"
	case stateSellLeg:
		return "sell_leg"
	case stateSettled:
		return "settled"
	default:
		return "aborted"
	}
}

// Options parameterise the executor's risk gates.
type Options struct {
	MinProfitBps   int64
	MaxSlippageBps int64
	MaxPositionUsd decimal.Decimal
	SwapTimeout    time.Duration
	// ScanOnly disables execution entirely; opportunities are logged and
	// dropped without touching any venue.
	ScanOnly bool
}

// Notifier receives trade outcomes for out-of-band delivery. May be nil.
type Notifier interface {
	NotifyTrade(ctx context.Context, rec pnl.TradeRecord)
}

// Executor consumes opportunities and submits the buy and sell legs
// sequentially. It never retries a failed leg within the same opportunity:
// by the time a retry would land the price window has usually closed, so a
// fresh opportunity has to be redetected on the next tick.
type Executor struct {
	opts     Options
	venues   map[string]venue.Client
	tracker  *pnl.Tracker
	notifier Notifier
	wallet   string
	logger   zerolog.Logger
}

// New constructs an executor over the registered venue clients.
func New(opts Options, venues map[string]venue.Client, tracker *pnl.Tracker, notifier Notifier, wallet string, logger zerolog.Logger) *Executor {
	if opts.SwapTimeout <= 0 {
		opts.SwapTimeout = 30 * time.Second
	}
	return &Executor{
		opts:     opts,
		venues:   venues,
		tracker:  tracker,
		notifier: notifier,
		wallet:   wallet,
		logger:   logger.With().Str("component", "executor").Logger(),
	}
}

// Execute runs the gates and, when they pass, the two-leg state machine.
// Gate failures and leg failures are handled here; nothing escalates to the
// caller. The returned record is nil when the opportunity was gated out
// before the buy leg.
func (x *Executor) Execute(ctx context.Context, opp *detector.Opportunity) *pnl.TradeRecord {
	if x.opts.ScanOnly {
		x.logger.Info().
			Str("pair", opp.Pair).
			Int64("profit_bps", opp.ProfitBps).
			Msg("scan-only mode, skipping execution")
		return nil
	}

	if opp.ProfitBps < x.opts.MinProfitBps {
		x.logger.Debug().
			Str("pair", opp.Pair).
			Int64("profit_bps", opp.ProfitBps).
			Int64("min_profit_bps", x.opts.MinProfitBps).
			Msg("below profit threshold, skipping")
		return nil
	}

	size, ok := x.sizePosition(opp)
	if !ok {
		x.logger.Info().
			Str("pair", opp.Pair).
			Str("buy_venue", opp.BuyVenue).
			Str("sell_venue", opp.SellVenue).
			Msg("projected slippage exceeds limit, skipping")
		return nil
	}

	buyVenue, buyOK := x.venues[opp.BuyVenue]
	sellVenue, sellOK := x.venues[opp.SellVenue]
	if !buyOK || !sellOK {
		x.logger.Warn().
			Str("buy_venue", opp.BuyVenue).
			Str("sell_venue", opp.SellVenue).
			Msg("opportunity references unregistered venue, skipping")
		return nil
	}

	rec := x.runLegs(ctx, opp, buyVenue, sellVenue, size)
	if err := x.tracker.Record(ctx, rec); err != nil {
		x.logger.Error().Err(err).Msg("failed to journal trade")
	}
	if x.notifier != nil {
		x.notifier.NotifyTrade(ctx, rec)
	}
	return &rec
}

// runLegs performs buy then sell. A failure at either leg transitions to
// Aborted; a completed buy with a failed sell is recorded as a loss of the
// buy-leg fee rather than silently dropped.
func (x *Executor) runLegs(ctx context.Context, opp *detector.Opportunity, buyVenue, sellVenue venue.Client, size decimal.Decimal) pnl.TradeRecord {
	rec := pnl.TradeRecord{
		Timestamp: time.Now().UTC(),
		Pair:      opp.Pair,
		BuyVenue:  opp.BuyVenue,
		SellVenue: opp.SellVenue,
		BuyPrice:  opp.BuyPrice,
		SellPrice: opp.SellPrice,
		SizeUsd:   size,
		Outcome:   pnl.OutcomeAborted,
	}

	state := stateBuyLeg

	buyCtx, cancelBuy := context.WithTimeout(ctx, x.opts.SwapTimeout)
	buyFill, err := buyVenue.Swap(buyCtx, venue.SwapRequest{
		Pair:       opp.Pair,
		Side:       venue.SideBuy,
		AmountUsd:  size,
		LimitPrice: opp.BuyPrice,
		Wallet:     x.wallet,
	})
	cancelBuy()
	if err != nil {
		x.logger.Warn().Err(err).
			Str("pair", opp.Pair).
			Str("venue", opp.BuyVenue).
			Stringer("state", state).
			Msg("buy leg failed, aborting")
		return rec
	}
	rec.BuyPrice = buyFill.FillPrice
	state = stateSellLeg

	sellCtx, cancelSell := context.WithTimeout(ctx, x.opts.SwapTimeout)
	sellFill, err := sellVenue.Swap(sellCtx, venue.SwapRequest{
		Pair:       opp.Pair,
		Side:       venue.SideSell,
		AmountUsd:  buyFill.FilledUsd,
		LimitPrice: opp.SellPrice,
		Wallet:     x.wallet,
	})
	cancelSell()
	if err != nil {
		// The buy leg completed: the position is open and the fee is sunk.
		rec.ProfitUsd = buyFill.FeeUsd.Neg()
		x.logger.Error().Err(err).
			Str("pair", opp.Pair).
			Str("venue", opp.SellVenue).
			Stringer("state", state).
			Str("loss_usd", rec.ProfitUsd.String()).
			Msg("sell leg failed after completed buy, recording aborted trade")
		return rec
	}
	state = stateSettled

	baseQty := buyFill.FilledUsd.Div(buyFill.FillPrice)
	gross := sellFill.FillPrice.Sub(buyFill.FillPrice).Mul(baseQty)
	rec.SellPrice = sellFill.FillPrice
	rec.ProfitUsd = gross.Sub(buyFill.FeeUsd).Sub(sellFill.FeeUsd)
	rec.Outcome = pnl.OutcomeSettled

	x.logger.Info().
		Str("pair", opp.Pair).
		Str("buy_venue", opp.BuyVenue).
		Str("sell_venue", opp.SellVenue).
		Stringer("state", state).
		Str("profit_usd", rec.ProfitUsd.String()).
		Str("buy_sig", buyFill.Signature).
		Str("sell_sig", sellFill.Signature).
		Msg("trade settled")

	return rec
}

// sizePosition caps the trade at the configured maximum and the depth-implied
// capacity, then checks the projected slippage of that size against the
// limit. Unknown depth on either leg is treated as exceeding the limit.
func (x *Executor) sizePosition(opp *detector.Opportunity) (decimal.Decimal, bool) {
	depth := opp.BuyDepthUsd
	if opp.SellDepthUsd.LessThan(depth) {
		depth = opp.SellDepthUsd
	}
	if depth.Sign() <= 0 {
		return decimal.Decimal{}, false
	}

	size := x.opts.MaxPositionUsd
	if depth.LessThan(size) {
		size = depth
	}
	if size.Sign() <= 0 {
		return decimal.Decimal{}, false
	}

	// Linear impact model: pushing the full size through the thinner leg
	// moves the price by size/depth.
	slippageBps := size.Div(depth).Mul(bpsScale).IntPart()
	if slippageBps > x.opts.MaxSlippageBps {
		return decimal.Decimal{}, false
	}
	return size, true
}
