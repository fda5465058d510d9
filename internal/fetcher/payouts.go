package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/logging"
	"p2pool-monitor/internal/model"
)

// SourcePayouts names the observer payout history source.
const SourcePayouts = "payouts"

// DefaultPayoutLimit is the search_limit sent when none is configured.
const DefaultPayoutLimit = 50

// Payouts reads payout history for an address from a p2pool observer.
type Payouts struct {
	baseURL   string
	limit     int
	userAgent string
	client    *http.Client
	logger    zerolog.Logger
}

// NewPayouts builds an observer client. An empty BaseURL disables it: every
// fetch returns an empty list without a request.
func NewPayouts(opts Options, limit int, logger zerolog.Logger) *Payouts {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	if limit <= 0 {
		limit = DefaultPayoutLimit
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Payouts{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		limit:     limit,
		userAgent: userAgent,
		client:    client,
		logger:    logging.Component(logger, "source").With().Str("source", SourcePayouts).Logger(),
	}
}

// Enabled reports whether an observer URL is configured.
func (p *Payouts) Enabled() bool { return p.baseURL != "" }

// FetchFor returns the payouts of address, newest first as served.
func (p *Payouts) FetchFor(ctx context.Context, address string) ([]model.Payout, error) {
	address = strings.TrimSpace(address)
	if !p.Enabled() || address == "" {
		return []model.Payout{}, nil
	}

	path := fmt.Sprintf("/api/payouts/%s?search_limit=%d", url.PathEscape(address), p.limit)
	start := time.Now()
	body, err := get(ctx, p.client, p.baseURL+path, path, p.userAgent)
	if err != nil {
		return nil, err
	}

	payouts, err := decodeList[model.Payout](body)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	p.logger.Debug().Int("count", len(payouts)).Dur("took", time.Since(start)).Msg("payouts fetched")
	return payouts, nil
}

// ForAddress binds the client to one address so it can be polled like any
// other source.
func (p *Payouts) ForAddress(address string) Source[[]model.Payout] {
	return addressSource{p: p, address: address}
}

type addressSource struct {
	p       *Payouts
	address string
}

func (a addressSource) Name() string { return SourcePayouts }

func (a addressSource) Fetch(ctx context.Context) ([]model.Payout, error) {
	return a.p.FetchFor(ctx, a.address)
}
