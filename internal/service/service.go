package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"p2pool-monitor/internal/alerting"
	"p2pool-monitor/internal/logging"
	"p2pool-monitor/internal/model"
	"p2pool-monitor/internal/poller"
	"p2pool-monitor/internal/storage"
)

// Options wire the optional collaborators of a Service.
type Options struct {
	// Polling is keyed by source name; missing entries use poller defaults.
	Polling  map[string]poller.Options
	Store    storage.SnapshotStore
	Notifier alerting.Notifier
	Channels []string
	// Cooldown suppresses repeated failure notices for one source.
	Cooldown time.Duration
	Now      func() time.Time
}

// Service owns the poll controllers of every data source and reacts to
// their state changes.
type Service struct {
	group   *poller.Group
	network *poller.Controller[model.NetworkStats]
	pool    *poller.Controller[model.PoolStats]
	blocks  *poller.Controller[[]model.PoolBlock]
	stratum *poller.Controller[model.LocalStratum]
	p2p     *poller.Controller[model.LocalP2P]
	payouts *poller.Controller[[]model.Payout]

	store    storage.SnapshotStore
	notifier alerting.Notifier
	channels []string
	cooldown time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu         sync.Mutex
	down       map[string]bool
	lastNotice map[string]time.Time
}

// New builds one controller per endpoint.
func New(endpoints Endpoints, opts Options, logger zerolog.Logger) (*Service, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		group:      poller.NewGroup(logger),
		store:      opts.Store,
		notifier:   opts.Notifier,
		channels:   opts.Channels,
		cooldown:   opts.Cooldown,
		now:        opts.Now,
		logger:     logging.Component(logger, "service"),
		down:       make(map[string]bool),
		lastNotice: make(map[string]time.Time),
	}

	if endpoints.Network != nil {
		s.network = poller.New(endpoints.Network, opts.Polling[endpoints.Network.Name()], logger)
		if err := s.group.Add(s.network); err != nil {
			return nil, err
		}
	}
	if endpoints.Pool != nil {
		s.pool = poller.New(endpoints.Pool, opts.Polling[endpoints.Pool.Name()], logger)
		if err := s.group.Add(s.pool); err != nil {
			return nil, err
		}
	}
	if endpoints.Blocks != nil {
		s.blocks = poller.New(endpoints.Blocks, opts.Polling[endpoints.Blocks.Name()], logger)
		if err := s.group.Add(s.blocks); err != nil {
			return nil, err
		}
	}
	if endpoints.Stratum != nil {
		s.stratum = poller.New(endpoints.Stratum, opts.Polling[endpoints.Stratum.Name()], logger)
		if err := s.group.Add(s.stratum); err != nil {
			return nil, err
		}
	}
	if endpoints.P2P != nil {
		s.p2p = poller.New(endpoints.P2P, opts.Polling[endpoints.P2P.Name()], logger)
		if err := s.group.Add(s.p2p); err != nil {
			return nil, err
		}
	}
	if endpoints.Payouts != nil {
		s.payouts = poller.New(endpoints.Payouts, opts.Polling[endpoints.Payouts.Name()], logger)
		if err := s.group.Add(s.payouts); err != nil {
			return nil, err
		}
	}
	if len(s.group.Members()) == 0 {
		return nil, errors.New("no data sources configured")
	}
	return s, nil
}

// Group exposes the controller group.
func (s *Service) Group() *poller.Group { return s.group }

// Refresh polls every source out of band.
func (s *Service) Refresh() { s.group.RefreshAll() }

// Run starts polling and handles state changes until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	events := s.group.Events(gctx)
	s.group.Start(gctx)

	g.Go(func() error {
		for ev := range events {
			s.handle(gctx, ev)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.group.Stop()
		return gctx.Err()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) handle(ctx context.Context, ev poller.Event) {
	log := s.logger.With().Str("source", ev.Name).Str("phase", ev.Phase.String()).Logger()
	switch {
	case ev.WentDown():
		log.Warn().Str("error", ev.Error).Msg("source failing")
	case ev.Recovered():
		log.Info().Msg("source recovered")
	case ev.Phase == poller.Failed:
		log.Debug().Str("error", ev.Error).Int("failures", ev.Failures).Msg("source still failing")
	default:
		log.Debug().Time("last_updated", ev.LastUpdated).Msg("snapshot updated")
	}

	s.persist(ctx, ev)
	s.alert(ctx, ev)
}

func (s *Service) persist(ctx context.Context, ev poller.Event) {
	if s.store == nil {
		return
	}
	var err error
	switch ev.Phase {
	case poller.Ready:
		err = s.store.SaveSnapshot(ctx, ev.Name, ev.Data, ev.LastUpdated)
	case poller.Failed:
		err = s.store.RecordFailure(ctx, ev.Name, ev.Error)
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Str("source", ev.Name).Msg("failed to persist snapshot")
	}
}

func (s *Service) alert(ctx context.Context, ev poller.Event) {
	if s.notifier == nil {
		return
	}
	note, ok := s.notification(ev)
	if !ok {
		return
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("source", ev.Name).Msg("failed to dispatch notification")
	}
}

// notification decides whether ev is worth a notice. A recovery is only
// reported for a source whose failure was reported.
func (s *Service) notification(ev poller.Event) (alerting.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	note := alerting.Notification{
		Source:      ev.Name,
		Error:       ev.Error,
		At:          now,
		LastUpdated: ev.LastUpdated,
		Failures:    ev.Failures,
		Channels:    s.channels,
	}

	switch {
	case ev.WentDown():
		if last, ok := s.lastNotice[ev.Name]; ok && s.cooldown > 0 && now.Sub(last) < s.cooldown {
			s.logger.Debug().Str("source", ev.Name).Msg("failure notice suppressed by cooldown")
			return alerting.Notification{}, false
		}
		s.down[ev.Name] = true
		s.lastNotice[ev.Name] = now
		note.Transition = alerting.SourceFailed
		return note, true
	case ev.Recovered():
		if !s.down[ev.Name] {
			return alerting.Notification{}, false
		}
		delete(s.down, ev.Name)
		note.Transition = alerting.SourceRecovered
		return note, true
	}
	return alerting.Notification{}, false
}

// Dashboard assembles the current view from the latest controller states.
func (s *Service) Dashboard() Dashboard {
	status := s.group.Status()
	return BuildDashboard(Snapshots{
		Network: data(s.network),
		Pool:    data(s.pool),
		Blocks:  deref(data(s.blocks)),
		Stratum: data(s.stratum),
		P2P:     data(s.p2p),
		Payouts: deref(data(s.payouts)),
		Errors:  status.Errors,
	}, status.LastUpdated)
}

func data[T any](c *poller.Controller[T]) *T {
	if c == nil {
		return nil
	}
	return c.State().Data
}

func deref[T any](p *[]T) []T {
	if p == nil {
		return nil
	}
	return *p
}
