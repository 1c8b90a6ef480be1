package cli

import (
	"github.com/spf13/cobra"
)

var fundingCmd = &cobra.Command{
	Use:   "funding",
	Short: "Print current perp funding rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Funding(cmd.Context())
	},
}
