// Package detector selects the best cross-venue spread from a set of quotes.
// It is pure: no I/O, no clock, fully determined by its inputs.
package detector

import (
	"github.com/shopspring/decimal"

	"solarb/internal/venue"
)

var bpsScale = decimal.NewFromInt(10000)

// Opportunity is a detected profitable buy-low/sell-high spread for one pair.
type Opportunity struct {
	Pair         string
	BuyVenue     string
	SellVenue    string
	BuyPrice     decimal.Decimal
	SellPrice    decimal.Decimal
	ProfitBps    int64
	ProfitUsd    decimal.Decimal
	BuyDepthUsd  decimal.Decimal
	SellDepthUsd decimal.Decimal
}

// Detect reduces the tick's quotes for a single pair to at most one
// opportunity. Quotes must be passed in venue registration order: ties on
// price resolve to the first venue seen, which keeps venue selection stable
// across ticks. Returns nil when fewer than two venues responded, when the
// best buy and best sell land on the same venue, or when the spread rounds
// down to zero profit.
func Detect(pair string, quotes []venue.PriceQuote, notionalUsd decimal.Decimal) *Opportunity {
	if len(quotes) < 2 {
		return nil
	}

	best := quotes[0]
	bestBuy, bestSell := best, best
	for _, q := range quotes[1:] {
		if q.BuyPrice.LessThan(bestBuy.BuyPrice) {
			bestBuy = q
		}
		if q.SellPrice.GreaterThan(bestSell.SellPrice) {
			bestSell = q
		}
	}

	if bestBuy.Venue == bestSell.Venue {
		return nil
	}

	// Floor rounding is deliberate: the truncation biases the detector
	// towards understating profit.
	profitBps := bestSell.SellPrice.Sub(bestBuy.BuyPrice).
		Div(bestBuy.BuyPrice).
		Mul(bpsScale).
		IntPart()
	if profitBps <= 0 {
		return nil
	}

	return &Opportunity{
		Pair:         pair,
		BuyVenue:     bestBuy.Venue,
		SellVenue:    bestSell.Venue,
		BuyPrice:     bestBuy.BuyPrice,
		SellPrice:    bestSell.SellPrice,
		ProfitBps:    profitBps,
		ProfitUsd:    decimal.NewFromInt(profitBps).Div(bpsScale).Mul(notionalUsd),
		BuyDepthUsd:  bestBuy.DepthUsd,
		SellDepthUsd: bestSell.DepthUsd,
	}
}
