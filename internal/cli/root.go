package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"p2pool-monitor/internal/app"
	"p2pool-monitor/internal/config"
	"p2pool-monitor/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	baseURL   string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "p2poolmon",
	Short:         "Monitor a p2pool node through its JSON API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if baseURL != "" {
			cfg.P2Pool.BaseURL = baseURL
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Override p2pool.base_url")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(payoutsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
