package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"p2pool-monitor/internal/estimate"
	"p2pool-monitor/internal/format"
	"p2pool-monitor/internal/model"
	"p2pool-monitor/internal/service"
)

// Payouts prints the observer payout history of address. An empty address
// falls back to payouts.address and then to the stratum wallet.
func (a *App) Payouts(ctx context.Context, address string) error {
	source := service.NewPayouts(a.Config, a.Logger)
	if !source.Enabled() {
		return errors.New("observer.base_url not configured; payout history unavailable")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		address = strings.TrimSpace(a.Config.Payouts.Address)
	}
	if address == "" {
		stratum, err := a.fetchStratum(ctx)
		if err != nil {
			return fmt.Errorf("resolve wallet from local stratum: %w", err)
		}
		address = stratum.Wallet
	}
	if address == "" {
		return errors.New("no payout address given and local stratum reports no wallet")
	}

	payouts, err := source.FetchFor(ctx, address)
	if err != nil {
		return err
	}
	if len(payouts) == 0 {
		fmt.Fprintf(a.out(), "no payouts for %s\n", format.Shorten(address, format.DefaultShortenChars))
		return nil
	}
	writePayouts(a.out(), payouts, time.Now())
	return nil
}

func writePayouts(w io.Writer, payouts []model.Payout, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Height\tReward (XMR)\tCoinbase\tTime\tAge")
	for _, p := range payouts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			format.Number(p.MainHeight),
			format.XMR(p.CoinbaseReward),
			format.Shorten(p.CoinbaseID, format.DefaultShortenChars),
			format.Date(p.Timestamp),
			ago(p.Timestamp, now),
		)
	}

	sum := estimate.SummarizePayouts(payouts)
	fmt.Fprintf(tw, "Total\t%s\t%d payouts\t\t\n", format.XMR(sum.Total), sum.Count)
}
