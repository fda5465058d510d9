package app

import (
	"context"
	"os/signal"
	"syscall"

	"p2pool-monitor/internal/proxy"
)

// Serve exposes a p2pool data-api directory over HTTP until interrupted.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config.Proxy
	if opts.Root != "" {
		cfg.Root = opts.Root
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.Prefix != "" {
		cfg.Prefix = opts.Prefix
	}

	srv, err := proxy.NewServer(proxy.Options{Root: cfg.Root, Listen: cfg.Listen, Prefix: cfg.Prefix}, a.Logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
