package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/format"
	"p2pool-monitor/internal/model"
	"p2pool-monitor/internal/service"
)

// Workers prints the decoded worker lines of local/stratum.
func (a *App) Workers(ctx context.Context) error {
	stratum, err := a.fetchStratum(ctx)
	if err != nil {
		return err
	}
	workers := stratum.DecodedWorkers()
	if len(workers) == 0 {
		fmt.Fprintln(a.out(), "no workers connected")
		return nil
	}
	writeWorkers(a.out(), workers)
	return nil
}

func (a *App) fetchStratum(ctx context.Context) (model.LocalStratum, error) {
	return fetcher.NewLocalStratum(service.FetcherOptions(a.Config, a.Config.P2Pool.BaseURL), a.Logger).Fetch(ctx)
}

func writeWorkers(w io.Writer, workers []model.WorkerRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Name\tAddress\tHashrate\tDifficulty\tUptime")
	for _, wk := range workers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			wk.Name,
			wk.Address,
			format.Hashrate(wk.Hashrate),
			format.Difficulty(wk.Difficulty),
			format.Duration(wk.Uptime),
		)
	}
	fmt.Fprintf(tw, "Total\t\t%s\t\t\n", format.Hashrate(model.TotalWorkerHashrate(workers)))
}

// Peers prints the decoded peer lines of local/p2p, outbound first.
func (a *App) Peers(ctx context.Context) error {
	p2p, err := fetcher.NewLocalP2P(service.FetcherOptions(a.Config, a.Config.P2Pool.BaseURL), a.Logger).Fetch(ctx)
	if err != nil {
		return err
	}
	peers := p2p.DecodedPeers()
	if len(peers) == 0 {
		fmt.Fprintln(a.out(), "no peers connected")
		return nil
	}
	writePeers(a.out(), peers)
	return nil
}

func writePeers(w io.Writer, peers []model.PeerRecord) {
	outbound, inbound := model.SplitPeers(peers)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Direction\tAddress\tVersion\tPing\tHeight\tUptime")
	for _, group := range [][]model.PeerRecord{outbound, inbound} {
		for _, p := range group {
			version := p.Version
			if !p.Complete() {
				version += " (partial)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d ms\t%s\t%s\n",
				p.Direction,
				p.Address,
				version,
				p.Ping,
				format.Number(p.SidechainHeight),
				format.Duration(p.Uptime),
			)
		}
	}
	fmt.Fprintf(tw, "%d outbound, %d inbound\n", len(outbound), len(inbound))
}
