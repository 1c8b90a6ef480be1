package cli

import (
	"github.com/spf13/cobra"

	"solarb/internal/app"
)

var scanNotional float64

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single detection pass and print opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			NotionalUsd: scanNotional,
		}
		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().Float64Var(&scanNotional, "notional", 0, "Notional size in USD (defaults to config)")
}
