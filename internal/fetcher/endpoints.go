package fetcher

import (
	"github.com/rs/zerolog"

	"p2pool-monitor/internal/model"
)

// Source names, also used as storage keys and config keys.
const (
	SourceNetwork = "network"
	SourcePool    = "pool"
	SourceBlocks  = "blocks"
	SourceStratum = "stratum"
	SourceP2P     = "p2p"
)

// Data API paths relative to the p2pool base URL.
const (
	PathNetworkStats = "/api/network/stats"
	PathPoolStats    = "/api/pool/stats"
	PathPoolBlocks   = "/api/pool/blocks"
	PathLocalStratum = "/api/local/stratum"
	PathLocalP2P     = "/api/local/p2p"
)

// SourceNames lists every data API source in display order.
var SourceNames = []string{SourceNetwork, SourcePool, SourceBlocks, SourceStratum, SourceP2P}

// NewNetworkStats reads network/stats.
func NewNetworkStats(opts Options, logger zerolog.Logger) *HTTPSource[model.NetworkStats] {
	return NewHTTPSource[model.NetworkStats](SourceNetwork, PathNetworkStats, opts, nil, logger)
}

// NewPoolStats reads pool/stats.
func NewPoolStats(opts Options, logger zerolog.Logger) *HTTPSource[model.PoolStats] {
	return NewHTTPSource[model.PoolStats](SourcePool, PathPoolStats, opts, nil, logger)
}

// NewPoolBlocks reads pool/blocks, either a JSON array or one block per line.
func NewPoolBlocks(opts Options, logger zerolog.Logger) *HTTPSource[[]model.PoolBlock] {
	return NewHTTPSource[[]model.PoolBlock](SourceBlocks, PathPoolBlocks, opts, decodeList[model.PoolBlock], logger)
}

// NewLocalStratum reads local/stratum.
func NewLocalStratum(opts Options, logger zerolog.Logger) *HTTPSource[model.LocalStratum] {
	return NewHTTPSource[model.LocalStratum](SourceStratum, PathLocalStratum, opts, nil, logger)
}

// NewLocalP2P reads local/p2p.
func NewLocalP2P(opts Options, logger zerolog.Logger) *HTTPSource[model.LocalP2P] {
	return NewHTTPSource[model.LocalP2P](SourceP2P, PathLocalP2P, opts, nil, logger)
}
