package cli

import (
	"github.com/spf13/cobra"

	"solarb/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live arbitrage engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := getApp()
		app.Logger.Info().Str("version", version.Version).Msg("starting solarb")
		return app.Run(cmd.Context())
	},
}
