package cli

import (
	"github.com/spf13/cobra"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the workers connected to the local stratum",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Workers(cmd.Context())
	},
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List P2P peers, outbound first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Peers(cmd.Context())
	},
}

var payoutsCmd = &cobra.Command{
	Use:   "payouts [address]",
	Short: "Show payout history from the observer",
	Long:  "Show payout history from the observer. Without an address, payouts.address and then the local stratum wallet are used.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var address string
		if len(args) == 1 {
			address = args[0]
		}
		return getApp().Payouts(cmd.Context(), address)
	},
}
