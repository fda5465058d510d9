package service

import (
	"github.com/rs/zerolog"

	"p2pool-monitor/internal/config"
	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/model"
	"p2pool-monitor/internal/poller"
)

// Endpoints groups the data API sources. Nil fields are skipped.
type Endpoints struct {
	Network fetcher.Source[model.NetworkStats]
	Pool    fetcher.Source[model.PoolStats]
	Blocks  fetcher.Source[[]model.PoolBlock]
	Stratum fetcher.Source[model.LocalStratum]
	P2P     fetcher.Source[model.LocalP2P]
	// Payouts is set only when an observer and payouts.address are configured.
	Payouts fetcher.Source[[]model.Payout]
}

// NewEndpoints builds HTTP sources for every data API resource.
func NewEndpoints(cfg *config.Config, logger zerolog.Logger) Endpoints {
	opts := FetcherOptions(cfg, cfg.P2Pool.BaseURL)
	endpoints := Endpoints{
		Network: fetcher.NewNetworkStats(opts, logger),
		Pool:    fetcher.NewPoolStats(opts, logger),
		Blocks:  fetcher.NewPoolBlocks(opts, logger),
		Stratum: fetcher.NewLocalStratum(opts, logger),
		P2P:     fetcher.NewLocalP2P(opts, logger),
	}
	if payouts := NewPayouts(cfg, logger); payouts.Enabled() && cfg.Payouts.Address != "" {
		endpoints.Payouts = payouts.ForAddress(cfg.Payouts.Address)
	}
	return endpoints
}

// NewPayouts builds the observer payout source.
func NewPayouts(cfg *config.Config, logger zerolog.Logger) *fetcher.Payouts {
	return fetcher.NewPayouts(FetcherOptions(cfg, cfg.Observer.BaseURL), cfg.Payouts.Limit, logger)
}

// FetcherOptions applies the shared HTTP settings to baseURL.
func FetcherOptions(cfg *config.Config, baseURL string) fetcher.Options {
	return fetcher.Options{
		BaseURL:   baseURL,
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}
}

// PollOptions resolves per-source controller options.
func PollOptions(cfg *config.Config) map[string]poller.Options {
	names := append(append([]string(nil), fetcher.SourceNames...), fetcher.SourcePayouts)
	out := make(map[string]poller.Options, len(names))
	for _, name := range names {
		enabled, interval := cfg.Source(name)
		out[name] = poller.Options{
			Interval:        interval,
			Disabled:        !enabled,
			AlignToInterval: cfg.Polling.AlignToInterval,
		}
	}
	return out
}
