package cli

import (
	"github.com/spf13/cobra"

	"solarb/internal/app"
)

var (
	simulatePair  string
	simulateBuy   float64
	simulateSell  float64
	simulateDepth float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-trade",
	Short: "Feed a synthetic spread through detection and execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Pair:      simulatePair,
			BuyPrice:  simulateBuy,
			SellPrice: simulateSell,
			DepthUsd:  simulateDepth,
		}
		return getApp().SimulateTrade(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePair, "pair", "SOL/USDC", "Trading pair")
	simulateCmd.Flags().Float64Var(&simulateBuy, "buy", 0, "Price at the cheap venue")
	simulateCmd.Flags().Float64Var(&simulateSell, "sell", 0, "Price at the rich venue")
	simulateCmd.Flags().Float64Var(&simulateDepth, "depth", 0, "Simulated pool depth in USD")
}
