package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"p2pool-monitor/internal/estimate"
	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/model"
)

// ErrAllSourcesFailed is returned by FetchOnce when nothing could be read.
var ErrAllSourcesFailed = errors.New("every data source failed")

// Snapshots is one reading of each data source. Missing sources are nil and
// their error, if any, is in Errors.
type Snapshots struct {
	Network *model.NetworkStats
	Pool    *model.PoolStats
	Blocks  []model.PoolBlock
	Stratum *model.LocalStratum
	P2P     *model.LocalP2P
	Payouts []model.Payout
	Errors  map[string]string
}

// Dashboard is Snapshots plus everything derived from them.
type Dashboard struct {
	Snapshots
	LastUpdated time.Time
	Workers     []model.WorkerRecord
	Outbound    []model.PeerRecord
	Inbound     []model.PeerRecord
	// TotalWorkerHashrate sums the decoded worker lines.
	TotalWorkerHashrate int64
	Estimate            estimate.Summary
	PayoutSummary       estimate.Payouts
}

// BuildDashboard decodes the embedded text records and computes estimates.
func BuildDashboard(snaps Snapshots, lastUpdated time.Time) Dashboard {
	d := Dashboard{
		Snapshots:   snaps,
		LastUpdated: lastUpdated,
		Estimate:    estimate.FromSnapshots(snaps.Network, snaps.Pool, snaps.Stratum),
	}
	if d.Errors == nil {
		d.Errors = map[string]string{}
	}
	if snaps.Stratum != nil {
		d.Workers = snaps.Stratum.DecodedWorkers()
		d.TotalWorkerHashrate = model.TotalWorkerHashrate(d.Workers)
	}
	if snaps.P2P != nil {
		d.Outbound, d.Inbound = model.SplitPeers(snaps.P2P.DecodedPeers())
	}
	if len(snaps.Payouts) > 0 {
		d.PayoutSummary = estimate.SummarizePayouts(snaps.Payouts)
	}
	return d
}

// FetchOnce reads every endpoint concurrently. One failing source does not
// prevent the others from being read; ErrAllSourcesFailed is returned only
// when none succeeded.
func FetchOnce(ctx context.Context, endpoints Endpoints) (Snapshots, error) {
	var (
		mu    sync.Mutex
		snaps = Snapshots{Errors: map[string]string{}}
		ok    int
		total int
	)
	record := func(name string, err error, apply func()) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			snaps.Errors[name] = fetcher.ErrorMessage(err)
			return
		}
		apply()
		ok++
	}

	var g errgroup.Group
	if endpoints.Network != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.Network.Fetch(ctx)
			record(endpoints.Network.Name(), err, func() { snaps.Network = &v })
			return nil
		})
	}
	if endpoints.Pool != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.Pool.Fetch(ctx)
			record(endpoints.Pool.Name(), err, func() { snaps.Pool = &v })
			return nil
		})
	}
	if endpoints.Blocks != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.Blocks.Fetch(ctx)
			record(endpoints.Blocks.Name(), err, func() { snaps.Blocks = v })
			return nil
		})
	}
	if endpoints.Stratum != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.Stratum.Fetch(ctx)
			record(endpoints.Stratum.Name(), err, func() { snaps.Stratum = &v })
			return nil
		})
	}
	if endpoints.P2P != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.P2P.Fetch(ctx)
			record(endpoints.P2P.Name(), err, func() { snaps.P2P = &v })
			return nil
		})
	}
	if endpoints.Payouts != nil {
		total++
		g.Go(func() error {
			v, err := endpoints.Payouts.Fetch(ctx)
			record(endpoints.Payouts.Name(), err, func() { snaps.Payouts = v })
			return nil
		})
	}
	_ = g.Wait()

	if total > 0 && ok == 0 {
		return snaps, ErrAllSourcesFailed
	}
	return snaps, nil
}
