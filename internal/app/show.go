package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"p2pool-monitor/internal/estimate"
	"p2pool-monitor/internal/format"
	"p2pool-monitor/internal/model"
	"p2pool-monitor/internal/service"
	"p2pool-monitor/internal/storage"
)

const notApplicable = "n/a"

// Show fetches every source once and prints the dashboard.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Stored {
		return a.showStored(ctx)
	}

	snaps, err := service.FetchOnce(ctx, service.NewEndpoints(a.Config, a.Logger))
	if err != nil {
		for name, msg := range snaps.Errors {
			a.Logger.Error().Str("source", name).Msg(msg)
		}
		return err
	}
	now := time.Now()
	writeDashboard(a.out(), service.BuildDashboard(snaps, now), opts.Blocks, now)
	return nil
}

func writeDashboard(w io.Writer, d service.Dashboard, maxBlocks int, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if n := d.Network; n != nil {
		fmt.Fprintln(tw, "NETWORK")
		fmt.Fprintf(tw, "  Height\t%s\n", format.Number(n.Height))
		fmt.Fprintf(tw, "  Difficulty\t%s\n", format.Difficulty(n.Difficulty))
		fmt.Fprintf(tw, "  Hashrate\t%s\n", format.Hashrate(d.Estimate.NetworkHashrate))
		fmt.Fprintf(tw, "  Block reward\t%s XMR\n", format.XMR(n.Reward))
		fmt.Fprintf(tw, "  Tip\t%s (%s)\n", format.Shorten(n.Hash, format.DefaultShortenChars), ago(n.Timestamp, now))
	}

	if p := d.Pool; p != nil {
		st := p.PoolStatistics
		fmt.Fprintln(tw, "POOL")
		fmt.Fprintf(tw, "  Hashrate\t%s\n", format.Hashrate(st.HashRate))
		fmt.Fprintf(tw, "  Network share\t%s\n", known(d.Estimate.PoolShareKnown, format.Percent(d.Estimate.PoolShare)))
		fmt.Fprintf(tw, "  Miners\t%s\n", format.Number(st.Miners))
		fmt.Fprintf(tw, "  Blocks found\t%s\n", format.Number(st.TotalBlocksFound))
		fmt.Fprintf(tw, "  Last block\t%s (%s)\n", format.Number(st.LastBlockFound), ago(st.LastBlockFoundTime, now))
		fmt.Fprintf(tw, "  Expected block time\t%s\n", known(d.Estimate.PoolBlockTimeKnown, format.Duration(d.Estimate.PoolBlockTime)))
		fmt.Fprintf(tw, "  Sidechain\t%s @ %s\n", format.Number(st.SidechainHeight), format.Difficulty(st.SidechainDifficulty))
		fmt.Fprintf(tw, "  PPLNS window\t%s (weight %s)\n", format.Number(st.PPLNSWindowSize), format.Difficulty(st.PPLNSWeight))
	}

	if s := d.Stratum; s != nil {
		fmt.Fprintln(tw, "LOCAL MINER")
		fmt.Fprintf(tw, "  Hashrate 15m/1h/24h\t%s / %s / %s\n", format.Hashrate(s.Hashrate15m), format.Hashrate(s.Hashrate1h), format.Hashrate(s.Hashrate24h))
		fmt.Fprintf(tw, "  Shares\t%s found, %s failed\n", format.Number(s.SharesFound), format.Number(s.SharesFailed))
		fmt.Fprintf(tw, "  Effort\t%s current, %s average\n", format.Effort(s.CurrentEffort), format.Effort(s.AverageEffort))
		fmt.Fprintf(tw, "  Last share\t%s\n", ago(s.LastShareFoundTime, now))
		fmt.Fprintf(tw, "  Reward share\t%s\n", format.Percent(s.BlockRewardSharePercent))
		fmt.Fprintf(tw, "  Wallet\t%s\n", format.Shorten(s.Wallet, format.DefaultShortenChars))
		fmt.Fprintf(tw, "  Workers\t%d (%s)\n", len(d.Workers), format.Hashrate(d.TotalWorkerHashrate))
		fmt.Fprintf(tw, "  Solo block time\t%s\n", known(d.Estimate.MinerBlockTimeKnown, format.Duration(d.Estimate.MinerBlockTime)))
		writeProjection(tw, d.Estimate.Earnings)
	}

	if p := d.P2P; p != nil {
		fmt.Fprintln(tw, "P2P")
		fmt.Fprintf(tw, "  Connections\t%s (%s incoming)\n", format.Number(p.Connections), format.Number(p.IncomingConnections))
		fmt.Fprintf(tw, "  Peers\t%d out, %d in, %s known\n", len(d.Outbound), len(d.Inbound), format.Number(p.PeerListSize))
		fmt.Fprintf(tw, "  Uptime\t%s\n", format.Duration(p.Uptime))
		fmt.Fprintf(tw, "  ZMQ last active\t%s\n", ago(p.ZMQLastActive, now))
	}

	if len(d.Blocks) > 0 && maxBlocks > 0 {
		fmt.Fprintln(tw, "RECENT BLOCKS")
		for i, b := range d.Blocks {
			if i == maxBlocks {
				break
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", format.Number(b.Height), format.Shorten(b.Hash, format.DefaultShortenChars), format.Difficulty(b.Difficulty), ago(b.Timestamp, now))
		}
	}

	if sum := d.PayoutSummary; sum.Count > 0 {
		fmt.Fprintln(tw, "PAYOUTS")
		fmt.Fprintf(tw, "  Recent\t%d totalling %s XMR\n", sum.Count, format.XMR(sum.Total))
		fmt.Fprintf(tw, "  Last payout\t%s\n", ago(sum.Newest, now))
	}

	if len(d.Errors) > 0 {
		fmt.Fprintln(tw, "ERRORS")
		names := make([]string, 0, len(d.Errors))
		for name := range d.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "  %s\t%s\n", name, sanitizeInline(d.Errors[name]))
		}
	}
}

func writeProjection(w io.Writer, p estimate.Projection) {
	fmt.Fprintf(w, "  Est. earnings/day\t%.6f XMR\n", p.Daily)
	fmt.Fprintf(w, "  Est. earnings/week\t%.6f XMR\n", p.Weekly)
	fmt.Fprintf(w, "  Est. earnings/month\t%.6f XMR\n", p.Monthly)
	fmt.Fprintf(w, "  Est. earnings/year\t%.6f XMR\n", p.Yearly)
}

// ago renders a unix timestamp relative to now; unset timestamps are "never".
func ago(ts any, now time.Time) string {
	if model.ParseNumericOrDefault(ts, 0) <= 0 {
		return "never"
	}
	return format.TimeAgo(ts, now)
}

func known(ok bool, v string) string {
	if !ok {
		return notApplicable
	}
	return v
}

// showStored prints the latest_snapshots table.
func (a *App) showStored(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show stored snapshots")
	}
	defer closeStore()

	records, err := store.ListLatest(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out(), "no snapshots stored")
		return nil
	}
	writeStored(a.out(), records, time.Now())
	return nil
}

func writeStored(w io.Writer, records []storage.SnapshotRecord, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Source\tFetched\tFailures\tSize\tError")
	for _, rec := range records {
		fetched := "never"
		if rec.FetchedAt != nil {
			fetched = format.Since(*rec.FetchedAt, now)
			if fetched != "just now" {
				fetched += " ago"
			}
		}
		errMsg := ""
		if rec.Error != nil {
			errMsg = sanitizeInline(*rec.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", rec.Source, fetched, rec.Failures, len(rec.Payload), errMsg)
	}
}

func sanitizeInline(v string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(v)
}
