package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/logging"
)

// Group coordinates the controllers shown together on one screen.
// The first member added is the primary one; its LastUpdated is the
// group's.
type Group struct {
	mu      sync.RWMutex
	members []Member
	byName  map[string]Member
	logger  zerolog.Logger
}

// GroupStatus is the combined view of a Group.
type GroupStatus struct {
	// Loading is true while any enabled member is loading.
	Loading bool
	// Error is the first member error in registration order.
	Error       string
	LastUpdated time.Time
	Errors      map[string]string
	Members     []Status
}

// NewGroup creates an empty Group.
func NewGroup(logger zerolog.Logger) *Group {
	return &Group{
		byName: make(map[string]Member),
		logger: logging.Component(logger, "poll_group"),
	}
}

// Add registers m. Names must be unique.
func (g *Group) Add(m Member) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byName[m.Name()]; exists {
		return fmt.Errorf("poller %q already registered", m.Name())
	}
	g.byName[m.Name()] = m
	g.members = append(g.members, m)
	return nil
}

// Get returns the member called name.
func (g *Group) Get(name string) (Member, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.byName[name]
	return m, ok
}

// Members returns the members in registration order.
func (g *Group) Members() []Member {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Member(nil), g.members...)
}

// Start activates every member.
func (g *Group) Start(ctx context.Context) {
	members := g.Members()
	for _, m := range members {
		m.Start(ctx)
	}
	g.logger.Info().Int("members", len(members)).Msg("poll group started")
}

// Stop deactivates every member.
func (g *Group) Stop() {
	for _, m := range g.Members() {
		m.Stop()
	}
	g.logger.Info().Msg("poll group stopped")
}

// RefreshAll triggers an out-of-band poll on every member.
func (g *Group) RefreshAll() {
	for _, m := range g.Members() {
		m.Refresh()
	}
}

// Status combines member states. A member in error does not hide the data
// of the others.
func (g *Group) Status() GroupStatus {
	members := g.Members()
	out := GroupStatus{
		Errors:  make(map[string]string),
		Members: make([]Status, 0, len(members)),
	}
	for i, m := range members {
		st := m.Status()
		out.Members = append(out.Members, st)
		if i == 0 {
			out.LastUpdated = st.LastUpdated
		}
		if !st.Enabled {
			continue
		}
		if st.Loading {
			out.Loading = true
		}
		if st.Error != "" {
			out.Errors[st.Name] = st.Error
			if out.Error == "" {
				out.Error = st.Error
			}
		}
	}
	return out
}

// Events merges the event streams of all current members until ctx is done.
func (g *Group) Events(ctx context.Context) <-chan Event {
	members := g.Members()
	out := make(chan Event, len(members))
	var wg sync.WaitGroup
	for _, m := range members {
		ch := m.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
