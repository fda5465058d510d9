package cli

import (
	"github.com/spf13/cobra"

	"p2pool-monitor/internal/alerting"
	"p2pool-monitor/internal/app"
)

var (
	simulateSource     string
	simulateTransition string
	simulateError      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic source failure or recovery through the alert channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Source:     simulateSource,
			Transition: alerting.Transition(simulateTransition),
			Error:      simulateError,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSource, "source", "pool", "Source name to report")
	simulateCmd.Flags().StringVar(&simulateTransition, "transition", string(alerting.SourceFailed), "failed or recovered")
	simulateCmd.Flags().StringVar(&simulateError, "error", "simulated failure", "Error text for a failed transition")
}
