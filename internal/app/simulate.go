package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"p2pool-monitor/internal/alerting"
)

// SimulateOptions describe a synthetic notification.
type SimulateOptions struct {
	Source     string
	Transition alerting.Transition
	Error      string
}

// SimulateAlert pushes a synthetic notification through the configured channels.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is disabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	switch opts.Transition {
	case alerting.SourceFailed, alerting.SourceRecovered:
	default:
		return fmt.Errorf("unknown transition %q", opts.Transition)
	}

	now := time.Now().UTC()
	note := alerting.Notification{
		Source:      opts.Source,
		Transition:  opts.Transition,
		Error:       opts.Error,
		At:          now,
		LastUpdated: now.Add(-a.Config.Polling.Interval),
		Failures:    1,
		Channels:    a.Config.Alerting.Channels,
	}
	if opts.Transition == alerting.SourceRecovered {
		note.Error = ""
		note.Failures = 0
		note.LastUpdated = now
	}
	return notifier.Notify(ctx, note)
}
