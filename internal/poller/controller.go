package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/logging"
	"p2pool-monitor/internal/scheduler"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 30 * time.Second

// Options tune a Controller.
type Options struct {
	Interval time.Duration
	// Disabled controllers never poll; Start is a no-op.
	Disabled bool
	// AlignToInterval fires polls on wall-clock multiples of Interval.
	AlignToInterval bool
	// Now overrides the clock used for LastUpdated.
	Now func() time.Time
}

// Controller keeps the latest snapshot of one source fresh.
//
// Polls run on a fixed interval once started, plus whenever Refresh is
// called. A failed poll records its error but keeps the previous snapshot.
// Every poll takes a sequence number when issued; a result that resolves
// after a newer one has been applied is dropped. Results that resolve after
// Stop are dropped as well; the request itself is left to finish.
type Controller[T any] struct {
	source fetcher.Source[T]
	opts   Options
	logger zerolog.Logger

	mu          sync.RWMutex
	state       State[T]
	outcome     Phase
	issued      uint64
	applied     uint64
	inflight    int
	generation  uint64
	pollCtx     context.Context
	cancel      context.CancelFunc
	subscribers []chan Event
}

// New builds an idle controller for source.
func New[T any](source fetcher.Source[T], opts Options, logger zerolog.Logger) *Controller[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller[T]{
		source: source,
		opts:   opts,
		logger: logging.Component(logger, "poller").With().Str("source", source.Name()).Logger(),
		state: State[T]{
			Name:    source.Name(),
			Phase:   Idle,
			Enabled: !opts.Disabled,
			Loading: !opts.Disabled,
		},
	}
}

// Name returns the source name.
func (c *Controller[T]) Name() string { return c.source.Name() }

// Interval returns the poll interval.
func (c *Controller[T]) Interval() time.Duration { return c.opts.Interval }

// Start activates the controller: one poll runs immediately and then one
// per interval until Stop or until ctx is cancelled. ctx is also the context
// of every request, so cancelling it aborts in-flight requests while Stop
// does not. Cancelling ctx deactivates the controller like Stop, so it can
// be started again with a fresh context.
func (c *Controller[T]) Start(ctx context.Context) {
	if c.opts.Disabled {
		c.logger.Debug().Msg("source disabled; not polling")
		return
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.pollCtx = ctx
	c.inflight = 0
	c.state.Active = true
	c.mu.Unlock()

	sched := scheduler.New(scheduler.Options{
		Interval:     c.opts.Interval,
		AlignToStart: c.opts.AlignToInterval,
		Immediate:    true,
	}, c.logger)

	c.logger.Info().Dur("interval", c.opts.Interval).Msg("polling started")
	go func() {
		_ = sched.Run(loopCtx, func(_ context.Context, _ time.Time) error {
			return c.poll(ctx, gen)
		})

		c.mu.Lock()
		defer c.mu.Unlock()
		// a Stop or restart already moved the generation on
		if gen == c.generation && c.cancel != nil {
			c.deactivateLocked()
			c.logger.Info().Msg("polling stopped; context done")
		}
	}()
}

// Stop deactivates the controller. The last state stays readable.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.deactivateLocked()
	c.logger.Info().Msg("polling stopped")
}

// deactivateLocked must be called with c.mu held on an active controller.
func (c *Controller[T]) deactivateLocked() {
	c.cancel()
	c.cancel = nil
	c.pollCtx = nil
	c.generation++
	c.inflight = 0
	c.state.Active = false
	c.state.Loading = false
	if c.state.Phase == Loading {
		c.state.Phase = c.outcome
	}
}

// Refresh triggers an out-of-band poll without touching the interval timer.
// It returns immediately and does nothing on an inactive controller.
func (c *Controller[T]) Refresh() {
	c.mu.RLock()
	ctx, gen := c.pollCtx, c.generation
	c.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		c.logger.Debug().Msg("refresh ignored; controller inactive")
		return
	}
	go func() {
		if err := c.poll(ctx, gen); err != nil {
			c.logger.Warn().Err(err).Msg("manual refresh failed")
		}
	}()
}

// State returns a copy of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the type-erased state.
func (c *Controller[T]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *Controller[T]) statusLocked() Status {
	st := Status{
		Name:        c.state.Name,
		Phase:       c.state.Phase,
		Enabled:     c.state.Enabled,
		Active:      c.state.Active,
		Loading:     c.state.Loading,
		Error:       c.state.Error,
		LastUpdated: c.state.LastUpdated,
		LastAttempt: c.state.LastAttempt,
		Polls:       c.state.Polls,
		Failures:    c.state.Failures,
	}
	if c.state.Data != nil {
		st.Data = c.state.Data
	}
	return st
}

// Subscribe returns a channel that receives an event after each applied
// poll. Sends never block; a slow reader only sees the newest event.
func (c *Controller[T]) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// poll runs one fetch for generation gen and applies its result.
func (c *Controller[T]) poll(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.generation || c.cancel == nil || ctx.Err() != nil {
		c.mu.Unlock()
		return nil
	}
	c.issued++
	seq := c.issued
	c.inflight++
	c.state.Loading = true
	c.state.Phase = Loading
	c.state.LastAttempt = c.opts.Now()
	c.mu.Unlock()

	snapshot, err := c.source.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().Uint64("seq", seq).Msg("discarding result for stopped controller")
		return err
	}
	c.inflight--
	if err != nil && ctx.Err() != nil {
		// aborted by our own shutdown, not a source failure
		c.state.Loading = c.inflight > 0
		if !c.state.Loading {
			c.state.Phase = c.outcome
		}
		return err
	}
	if seq < c.applied {
		c.state.Loading = c.inflight > 0
		c.logger.Debug().Uint64("seq", seq).Uint64("applied", c.applied).Msg("discarding out-of-order result")
		return err
	}
	c.applied = seq

	previous := c.outcome
	c.state.Polls++
	if err != nil {
		c.state.Error = fetcher.ErrorMessage(err)
		c.state.Failures++
		c.state.Phase = Failed
	} else {
		data := snapshot
		c.state.Data = &data
		c.state.Error = ""
		c.state.LastUpdated = c.opts.Now()
		c.state.Phase = Ready
	}
	c.outcome = c.state.Phase
	c.state.Loading = c.inflight > 0

	c.notifyLocked(previous)
	return err
}

// notifyLocked must be called with c.mu held.
func (c *Controller[T]) notifyLocked(previous Phase) {
	event := Event{Status: c.statusLocked(), Previous: previous}
	for _, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

var _ Member = (*Controller[struct{}])(nil)
