package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"solarb/internal/detector"
	"solarb/internal/venue"
)

// Scan performs a single detection pass over all configured pairs and prints
// the result. No trades are executed.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	rpcClient := a.newRPC()
	if err := rpcClient.CheckHealth(ctx); err != nil {
		return fmt.Errorf("rpc endpoint unreachable: %w", err)
	}

	venues := a.newVenues()
	if len(venues) < 2 {
		return fmt.Errorf("at least two venues must be enabled")
	}

	notional := decimal.NewFromFloat(a.Config.NotionalUsd)
	if opts.NotionalUsd > 0 {
		notional = decimal.NewFromFloat(opts.NotionalUsd)
	}

	var opportunities []detector.Opportunity
	for _, pair := range a.Config.Pairs {
		quotes := venue.CollectQuotes(ctx, venues, pair, notional, a.Config.QuoteTimeout, a.Logger)
		a.printQuotes(pair, quotes, len(venues))

		if opp := detector.Detect(pair, quotes, notional); opp != nil {
			opportunities = append(opportunities, *opp)
		}
	}

	if len(opportunities) == 0 {
		fmt.Fprintln(os.Stdout, "no arbitrage opportunities found")
		return nil
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].ProfitBps > opportunities[j].ProfitBps
	})

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pair\tBuy@\tSell@\tBuy Price\tSell Price\tProfit (bps)\tEst. Profit (USD)")
	for _, opp := range opportunities {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			opp.Pair,
			opp.BuyVenue,
			opp.SellVenue,
			opp.BuyPrice.StringFixed(6),
			opp.SellPrice.StringFixed(6),
			opp.ProfitBps,
			opp.ProfitUsd.StringFixed(2),
		)
	}
	return writer.Flush()
}

func (a *App) printQuotes(pair string, quotes []venue.PriceQuote, total int) {
	fmt.Fprintf(os.Stdout, "%s (%d/%d venues)\n", pair, len(quotes), total)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "  Venue\tBuy\tSell\tDepth (USD)")
	for _, q := range quotes {
		depth := "unknown"
		if q.DepthUsd.Sign() > 0 {
			depth = q.DepthUsd.StringFixed(0)
		}
		fmt.Fprintf(
			writer,
			"  %s\t%s\t%s\t%s\n",
			q.Venue,
			q.BuyPrice.StringFixed(6),
			q.SellPrice.StringFixed(6),
			depth,
		)
	}
	writer.Flush()
}
