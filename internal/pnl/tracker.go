// Package pnl accumulates completed trades into windowed statistics and a
// bounded recent-trade history.
package pnl

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome classifies how a trade attempt finished.
type Outcome string

const (
	// OutcomeSettled means both legs filled.
	OutcomeSettled Outcome = "settled"
	// OutcomeAborted means the attempt failed after the buy leg was
	// initiated; any partial economics are captured in ProfitUsd.
	OutcomeAborted Outcome = "aborted"
)

// TradeRecord is one completed or attempted execution. Records are immutable
// once written and only ever appended.
type TradeRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Pair      string          `json:"pair"`
	BuyVenue  string          `json:"buyVenue"`
	SellVenue string          `json:"sellVenue"`
	BuyPrice  decimal.Decimal `json:"buyPrice"`
	SellPrice decimal.Decimal `json:"sellPrice"`
	SizeUsd   decimal.Decimal `json:"sizeUsd"`
	ProfitUsd decimal.Decimal `json:"profitUsd"`
	Outcome   Outcome         `json:"outcome"`
}

// WindowStats aggregates performance over one window.
type WindowStats struct {
	Trades    int             `json:"trades"`
	ProfitUsd decimal.Decimal `json:"profitUsd"`
}

// Stats holds all reporting windows. Daily covers the current UTC calendar
// day; weekly and monthly are trailing 7- and 30-day windows; allTime never
// expires.
type Stats struct {
	Daily   WindowStats `json:"daily"`
	Weekly  WindowStats `json:"weekly"`
	Monthly WindowStats `json:"monthly"`
	AllTime WindowStats `json:"allTime"`
}

// Journal receives a copy of every recorded trade for durable storage.
// Failures are the tracker's caller's concern only insofar as logging goes;
// the in-memory history stays authoritative.
type Journal interface {
	InsertTrade(ctx context.Context, rec TradeRecord) error
}

// Tracker owns the append-only trade history. A single writer (the engine's
// execution path) appends; readers take snapshots.
type Tracker struct {
	mu      sync.RWMutex
	history []TradeRecord
	journal Journal
	now     func() time.Time
}

// NewTracker constructs an empty tracker. journal may be nil.
func NewTracker(journal Journal) *Tracker {
	return &Tracker{journal: journal, now: time.Now}
}

// Record appends a trade to the history and forwards it to the journal.
// The journal write is best effort; its error is returned for logging but the
// record is already committed to the in-memory history.
func (t *Tracker) Record(ctx context.Context, rec TradeRecord) error {
	t.mu.Lock()
	t.history = append(t.history, rec)
	t.mu.Unlock()

	if t.journal == nil {
		return nil
	}
	return t.journal.InsertTrade(ctx, rec)
}

// Stats recomputes every window from the full history, so the windows can
// never drift from the records they summarise.
func (t *Tracker) Stats() Stats {
	now := t.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.Add(-30 * 24 * time.Hour)

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{}
	for _, rec := range t.history {
		ts := rec.Timestamp.UTC()
		stats.AllTime = accumulate(stats.AllTime, rec)
		if !ts.Before(dayStart) {
			stats.Daily = accumulate(stats.Daily, rec)
		}
		if !ts.Before(weekStart) {
			stats.Weekly = accumulate(stats.Weekly, rec)
		}
		if !ts.Before(monthStart) {
			stats.Monthly = accumulate(stats.Monthly, rec)
		}
	}
	return stats
}

// RecentTrades returns up to limit records, most recent first. Each call
// re-derives the slice from the immutable history.
func (t *Tracker) RecentTrades(limit int) []TradeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit <= 0 || limit > len(t.history) {
		limit = len(t.history)
	}

	out := make([]TradeRecord, 0, limit)
	for i := len(t.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, t.history[i])
	}
	return out
}

// TradeCount reports the total number of recorded trades.
func (t *Tracker) TradeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

func accumulate(w WindowStats, rec TradeRecord) WindowStats {
	w.Trades++
	w.ProfitUsd = w.ProfitUsd.Add(rec.ProfitUsd)
	return w
}
