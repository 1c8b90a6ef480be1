package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
)

// Funding prints the current funding rates for the configured perp markets.
func (a *App) Funding(ctx context.Context) error {
	provider := a.newFunding()
	if provider == nil {
		return errors.New("no funding markets configured")
	}

	rates, err := provider.Rates(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Market\tHourly Rate\tAPY (%)\tDirection")

	for _, rate := range rates {
		direction := "short pays long"
		if rate.LongPayShort {
			direction = "long pays short"
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			rate.Market,
			rate.FundingRate.StringFixed(8),
			rate.FundingRateApy.StringFixed(2),
			direction,
		)
	}

	return writer.Flush()
}
