package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"solarb/internal/storage"
)

// Show prints recent trades from the journal.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show trades")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return printRecentTrades(ctx, os.Stdout, store, opts.Limit)
}

func printRecentTrades(ctx context.Context, out io.Writer, journal storage.TradeStore, limit int) error {
	trades, err := journal.ListRecentTrades(ctx, limit)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Fprintln(out, "no trades found")
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPair\tBuy@\tSell@\tBuy Price\tSell Price\tSize (USD)\tPnL (USD)\tOutcome")

	for _, trade := range trades {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			trade.Timestamp.UTC().Format(time.RFC3339),
			trade.Pair,
			trade.BuyVenue,
			trade.SellVenue,
			trade.BuyPrice.StringFixed(6),
			trade.SellPrice.StringFixed(6),
			trade.SizeUsd.StringFixed(2),
			trade.ProfitUsd.StringFixed(2),
			trade.Outcome,
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	total, err := journal.CountTrades(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "showing %d of %d trades\n", len(trades), total)
	return nil
}
