package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNetworkStatsSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"difficulty":300000000000,"hash":"aa","height":3000000,"reward":600000000000,"timestamp":1700000000}`))
	}))
	defer srv.Close()

	src := NewNetworkStats(Options{BaseURL: srv.URL + "/", Timeout: time.Second}, noopLogger())
	stats, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != PathNetworkStats {
		t.Fatalf("expected path %s, got %s", PathNetworkStats, gotPath)
	}
	if stats.Height != 3000000 || stats.Reward != 600000000000 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if src.Name() != SourceNetwork {
		t.Fatalf("unexpected name %q", src.Name())
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := serve(t, http.StatusNotFound, `{"error":"not found"}`)

	src := NewPoolStats(Options{BaseURL: srv.URL}, noopLogger())
	_, err := src.Fetch(context.Background())
	if err == nil {
		t.Fatal("404 should fail")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusNotFound {
		t.Fatalf("expected TransportError with status 404, got %v", err)
	}
	if !strings.Contains(ErrorMessage(err), "404") {
		t.Fatalf("message should carry the status: %q", ErrorMessage(err))
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	base := srv.URL
	srv.Close()

	_, err := NewLocalP2P(Options{BaseURL: base, Timeout: time.Second}, noopLogger()).Fetch(context.Background())
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := serve(t, http.StatusOK, `not json`)

	_, err := NewLocalStratum(Options{BaseURL: srv.URL}, noopLogger()).Fetch(context.Background())
	if !IsDecode(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if IsTransport(err) {
		t.Fatal("decode error must not look like a transport error")
	}
}

func TestFetchNullDocument(t *testing.T) {
	srv := serve(t, http.StatusOK, " null\n")

	_, err := NewPoolStats(Options{BaseURL: srv.URL}, noopLogger()).Fetch(context.Background())
	if !IsDecode(err) {
		t.Fatalf("a null document must be a decode error, got %v", err)
	}
}

func TestPoolBlocksArrayAndLines(t *testing.T) {
	cases := map[string]string{
		"array": `[{"height":10,"hash":"a","difficulty":5,"totalHashes":9,"ts":100},{"height":9,"hash":"b","ts":90}]`,
		"lines": "{\"height\":10,\"hash\":\"a\",\"difficulty\":5,\"totalHashes\":9,\"ts\":100}\n{\"height\":9,\"hash\":\"b\",\"ts\":90}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			blocks, err := NewPoolBlocks(Options{BaseURL: srv.URL}, noopLogger()).Fetch(context.Background())
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if len(blocks) != 2 || blocks[0].Hash != "a" || blocks[1].Timestamp != 90 {
				t.Fatalf("unexpected blocks: %+v", blocks)
			}
			if blocks[1].Difficulty != 0 {
				t.Fatalf("absent difficulty should default to 0")
			}
		})
	}
}

func TestPoolBlocksEmptyBody(t *testing.T) {
	srv := serve(t, http.StatusOK, "  \n")
	blocks, err := NewPoolBlocks(Options{BaseURL: srv.URL}, noopLogger()).Fetch(context.Background())
	if err != nil || len(blocks) != 0 {
		t.Fatalf("empty body should be an empty list, got %v %v", blocks, err)
	}
}

func TestPayouts(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		_, _ = w.Write([]byte(`[{"coinbase_reward":1000,"coinbase_id":"x","main_height":5,"timestamp":20},{"coinbase_reward":2000,"coinbase_id":"y","main_height":4,"timestamp":10}]`))
	}))
	defer srv.Close()

	p := NewPayouts(Options{BaseURL: srv.URL + "/"}, 0, noopLogger())
	payouts, err := p.ForAddress("4addr").Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotURI != "/api/payouts/4addr?search_limit=50" {
		t.Fatalf("unexpected request %q", gotURI)
	}
	if len(payouts) != 2 || payouts[0].CoinbaseID != "x" {
		t.Fatalf("order must be preserved: %+v", payouts)
	}
}

func TestPayoutsDisabled(t *testing.T) {
	p := NewPayouts(Options{}, 10, noopLogger())
	payouts, err := p.FetchFor(context.Background(), "4addr")
	if err != nil || len(payouts) != 0 {
		t.Fatalf("no observer URL should give an empty list, got %v %v", payouts, err)
	}

	srv := serve(t, http.StatusInternalServerError, "")
	p = NewPayouts(Options{BaseURL: srv.URL}, 10, noopLogger())
	if payouts, err := p.FetchFor(context.Background(), " "); err != nil || len(payouts) != 0 {
		t.Fatalf("blank address should not hit the observer, got %v %v", payouts, err)
	}
	if _, err := p.FetchFor(context.Background(), "4addr"); !IsTransport(err) {
		t.Fatalf("500 should be a transport error, got %v", err)
	}
}
