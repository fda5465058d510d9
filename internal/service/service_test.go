package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/alerting"
	"p2pool-monitor/internal/config"
	"p2pool-monitor/internal/fetcher"
	"p2pool-monitor/internal/poller"
	"p2pool-monitor/internal/storage"
)

var fixtures = map[string]string{
	fetcher.PathNetworkStats: `{"difficulty":120000,"hash":"abcd","height":3100000,"reward":600000000000,"timestamp":1714564800}`,
	fetcher.PathPoolStats:    `{"pool_list":["pplns"],"pool_statistics":{"hashRate":1000,"miners":12,"sidechainHeight":"8000000"}}`,
	fetcher.PathPoolBlocks:   `[{"height":3099990,"hash":"ff","difficulty":118000,"totalHashes":5,"ts":1714560000}]`,
	fetcher.PathLocalStratum: `{"hashrate_1h":1000,"wallet":"4abc","workers":["10.0.0.2:5000,3600,120000,1500,rig01","10.0.0.3:5001,60,1000,500"]}`,
	fetcher.PathLocalP2P:     `{"connections":2,"peers":["O,3600,42,1.2.3,100,1.2.3.4:3333","I,10,5,1.2.3,100,5.6.7.8:37889"]}`,
}

type fakeAPI struct {
	*httptest.Server
	failing sync.Map
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, down := api.failing.Load(r.URL.Path); down {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) fail(path string, down bool) {
	if down {
		a.failing.Store(path, true)
		return
	}
	a.failing.Delete(path)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		P2Pool:  config.EndpointConfig{BaseURL: baseURL},
		HTTP:    config.HTTPConfig{Timeout: time.Second},
		Polling: config.PollingConfig{Enabled: true, Interval: time.Hour},
		Payouts: config.PayoutsConfig{Limit: 10},
	}
}

type memoryStore struct {
	mu       sync.Mutex
	saved    map[string]int
	failures map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: map[string]int{}, failures: map[string]string{}}
}

func (m *memoryStore) SaveSnapshot(_ context.Context, source string, snapshot any, _ time.Time) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[source]++
	delete(m.failures, source)
	return nil
}

func (m *memoryStore) RecordFailure(_ context.Context, source, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[source] = errMsg
	return nil
}

func (m *memoryStore) GetLatest(context.Context, string) (storage.SnapshotRecord, error) {
	return storage.SnapshotRecord{}, storage.ErrNotFound
}

func (m *memoryStore) ListLatest(context.Context) ([]storage.SnapshotRecord, error) {
	return nil, nil
}

func (m *memoryStore) savedSources() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *memoryStore) failure(source string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[source]
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n alerting.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) all() []alerting.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alerting.Notification(nil), r.notes...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFetchOnceIsolatesFailures(t *testing.T) {
	api := newFakeAPI(t)
	api.fail(fetcher.PathLocalP2P, true)

	snaps, err := FetchOnce(context.Background(), NewEndpoints(testConfig(api.URL), zerolog.Nop()))
	if err != nil {
		t.Fatalf("fetch once: %v", err)
	}
	if snaps.Network == nil || snaps.Pool == nil || snaps.Stratum == nil || len(snaps.Blocks) != 1 {
		t.Fatalf("healthy sources should be read: %+v", snaps)
	}
	if snaps.P2P != nil || !strings.Contains(snaps.Errors[fetcher.SourceP2P], "503") {
		t.Fatalf("p2p failure should be reported: %+v", snaps.Errors)
	}
	if snaps.Pool.PoolStatistics.SidechainHeight.Int() != 8000000 {
		t.Fatal("numeric strings should be coerced at ingestion")
	}

	d := BuildDashboard(snaps, time.Now())
	if len(d.Workers) != 2 || d.Workers[1].Name != "unknown" || d.TotalWorkerHashrate != 2000 {
		t.Fatalf("unexpected workers: %+v", d.Workers)
	}
	if !d.Estimate.PoolShareKnown || d.Estimate.NetworkHashrate != 1000 {
		t.Fatalf("unexpected estimate: %+v", d.Estimate)
	}
	if d.Outbound != nil || d.Inbound != nil {
		t.Fatal("no peers without p2p snapshot")
	}
}

func TestFetchOnceAllFailed(t *testing.T) {
	api := newFakeAPI(t)
	for path := range fixtures {
		api.fail(path, true)
	}
	snaps, err := FetchOnce(context.Background(), NewEndpoints(testConfig(api.URL), zerolog.Nop()))
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	if len(snaps.Errors) != len(fixtures) {
		t.Fatalf("every source should report an error: %+v", snaps.Errors)
	}
}

func TestRunPersistsAndNotifies(t *testing.T) {
	api := newFakeAPI(t)
	cfg := testConfig(api.URL)
	store := newMemoryStore()
	notifier := &recordingNotifier{}

	svc, err := New(NewEndpoints(cfg, zerolog.Nop()), Options{
		Polling:  PollOptions(cfg),
		Store:    store,
		Notifier: notifier,
		Channels: []string{"log"},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	waitFor(t, "initial snapshots", func() bool { return store.savedSources() == len(fetcher.SourceNames) })

	api.fail(fetcher.PathPoolStats, true)
	svc.Refresh()
	waitFor(t, "failure notice", func() bool { return len(notifier.all()) == 1 })

	note := notifier.all()[0]
	if note.Source != fetcher.SourcePool || note.Transition != alerting.SourceFailed || note.LastUpdated.IsZero() {
		t.Fatalf("unexpected failure notice: %+v", note)
	}
	if !strings.Contains(store.failure(fetcher.SourcePool), "503") {
		t.Fatal("failure should be persisted")
	}
	d := svc.Dashboard()
	if d.Pool == nil || d.Errors[fetcher.SourcePool] == "" {
		t.Fatalf("pool data should stay available next to its error: %+v", d.Errors)
	}

	api.fail(fetcher.PathPoolStats, false)
	svc.Refresh()
	waitFor(t, "recovery notice", func() bool { return len(notifier.all()) == 2 })
	if n := notifier.all()[1]; n.Transition != alerting.SourceRecovered || n.Source != fetcher.SourcePool {
		t.Fatalf("unexpected recovery notice: %+v", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestNotificationCooldownAndOrphanRecovery(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix())
	now := func() time.Time { return time.Unix(clock.Load(), 0) }

	svc, err := New(Endpoints{Network: fetcher.NewNetworkStats(fetcher.Options{BaseURL: "http://127.0.0.1:1"}, zerolog.Nop())},
		Options{Cooldown: 10 * time.Minute, Now: now}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	down := poller.Event{Status: poller.Status{Name: "network", Phase: poller.Failed, Error: "boom"}, Previous: poller.Ready}
	up := poller.Event{Status: poller.Status{Name: "network", Phase: poller.Ready}, Previous: poller.Failed}

	if _, ok := svc.notification(up); ok {
		t.Fatal("recovery without a reported failure should be silent")
	}
	if n, ok := svc.notification(down); !ok || n.Transition != alerting.SourceFailed {
		t.Fatal("first failure should be reported")
	}
	if n, ok := svc.notification(up); !ok || n.Transition != alerting.SourceRecovered {
		t.Fatal("recovery should be reported")
	}

	clock.Add(60)
	if _, ok := svc.notification(down); ok {
		t.Fatal("failure within cooldown should be suppressed")
	}
	if _, ok := svc.notification(up); ok {
		t.Fatal("recovery of a suppressed failure should be silent")
	}

	clock.Add(int64((10 * time.Minute).Seconds()))
	if _, ok := svc.notification(down); !ok {
		t.Fatal("failure after cooldown should be reported")
	}
}

func TestNewRequiresSources(t *testing.T) {
	if _, err := New(Endpoints{}, Options{}, zerolog.Nop()); err == nil {
		t.Fatal("empty endpoints should fail")
	}
}

func TestPollOptionsFromConfig(t *testing.T) {
	off := false
	cfg := testConfig("http://localhost:3001")
	cfg.Sources = map[string]config.SourceConfig{"p2p": {Enabled: &off}, "blocks": {Interval: time.Minute}}

	opts := PollOptions(cfg)
	if !opts[fetcher.SourceP2P].Disabled || opts[fetcher.SourceNetwork].Disabled {
		t.Fatalf("unexpected enablement: %+v", opts)
	}
	if opts[fetcher.SourceBlocks].Interval != time.Minute || opts[fetcher.SourcePool].Interval != time.Hour {
		t.Fatalf("unexpected intervals: %+v", opts)
	}
	if _, ok := opts[fetcher.SourcePayouts]; !ok {
		t.Fatal("payouts should have poll options")
	}
}

func TestPayoutsSourceNeedsObserverAndAddress(t *testing.T) {
	api := newFakeAPI(t)
	observer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/payouts/4abc") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"coinbase_reward":700000000000,"main_height":3100000,"timestamp":1714564800},{"coinbase_reward":"300000000000","main_height":3099000,"timestamp":1714464800}]`))
	}))
	defer observer.Close()

	cfg := testConfig(api.URL)
	cfg.Observer.BaseURL = observer.URL
	if NewEndpoints(cfg, zerolog.Nop()).Payouts != nil {
		t.Fatal("payouts need an address")
	}

	cfg.Payouts.Address = "4abc"
	snaps, err := FetchOnce(context.Background(), NewEndpoints(cfg, zerolog.Nop()))
	if err != nil {
		t.Fatalf("fetch once: %v", err)
	}
	d := BuildDashboard(snaps, time.Now())
	if d.PayoutSummary.Count != 2 || d.PayoutSummary.Newest != 1714564800 || d.PayoutSummary.Total.String() != "1000000000000" {
		t.Fatalf("unexpected payout summary: %+v", d.PayoutSummary)
	}
}
