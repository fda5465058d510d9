package cli

import (
	"github.com/spf13/cobra"

	"p2pool-monitor/internal/app"
)

var serveOpts app.ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a p2pool data directory as the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), serveOpts)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Root, "root", "", "Directory holding the p2pool API files (overrides proxy.root)")
	serveCmd.Flags().StringVar(&serveOpts.Listen, "listen", "", "Listen address (overrides proxy.listen)")
	serveCmd.Flags().StringVar(&serveOpts.Prefix, "prefix", "", "URL prefix stripped before file lookup (overrides proxy.prefix)")
}
