package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"p2pool-monitor/internal/app"
)

var (
	showStored bool
	showBlocks int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch every endpoint once and print the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showBlocks < 0 {
			return fmt.Errorf("--blocks must not be negative")
		}

		opts := app.ShowOptions{
			Stored: showStored,
			Blocks: showBlocks,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showStored, "stored", false, "Print the snapshots persisted by run instead of querying the node")
	showCmd.Flags().IntVar(&showBlocks, "blocks", 5, "Number of recent pool blocks to display")
}
