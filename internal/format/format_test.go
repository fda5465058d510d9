package format

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"p2pool-monitor/internal/model"
)

func TestHashrateBands(t *testing.T) {
	cases := map[float64]string{
		0:                 "0 H/s",
		999:               "999 H/s",
		1500:              "1.50 KH/s",
		2_500_000:         "2.50 MH/s",
		7_250_000_000:     "7.25 GH/s",
		2_500_000_000_000: "2.50 TH/s",
	}
	for in, want := range cases {
		if got := Hashrate(in); got != want {
			t.Errorf("Hashrate(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestHashrateNonFinite(t *testing.T) {
	for _, in := range []any{math.NaN(), math.Inf(1), nil, "garbage"} {
		if got := Hashrate(in); got != "0 H/s" {
			t.Errorf("Hashrate(%v) = %q, want 0 H/s", in, got)
		}
	}
	if got := Hashrate(model.Number(1e6)); got != "1.00 MH/s" {
		t.Errorf("model.Number input should format, got %q", got)
	}
}

func TestDifficulty(t *testing.T) {
	if got := Difficulty(999); got != "999" {
		t.Errorf("got %q", got)
	}
	if got := Difficulty(345_678_901_234); got != "345.68 G" {
		t.Errorf("got %q", got)
	}
}

func TestXMR(t *testing.T) {
	if got := XMR(model.Atomic(600_000_000_000)); got != "0.600000" {
		t.Errorf("got %q", got)
	}
	if got := XMR(uint64(1)); got != "0.000000" {
		t.Errorf("got %q", got)
	}
	if got := XMR(1_234_567_890_123.0); got != "1.234568" {
		t.Errorf("got %q", got)
	}
	if got := XMR(math.NaN()); got != "0.000000" {
		t.Errorf("got %q", got)
	}
}

func TestNumberPercentEffort(t *testing.T) {
	if got := Number(1234567); got != "1,234,567" {
		t.Errorf("Number = %q", got)
	}
	if got := Percent(12.345); got != "12.35%" && got != "12.34%" {
		t.Errorf("Percent = %q", got)
	}
	if got := Percent(nil); got != "0.00%" {
		t.Errorf("Percent(nil) = %q", got)
	}
	if got := Effort(153.26); got != "153.3%" {
		t.Errorf("Effort = %q", got)
	}
}

func TestNumberBeyondInt64(t *testing.T) {
	if got := Number(1e30); got != "1,000,000,000,000,000,000,000,000,000,000" {
		t.Errorf("Number(1e30) = %q", got)
	}
	if got := Number(-1e19); !strings.HasPrefix(got, "-10,000,000,000,000,000,000") {
		t.Errorf("Number(-1e19) = %q", got)
	}
}

func TestDuration(t *testing.T) {
	cases := map[float64]string{
		0:                   "0s",
		59:                  "59s",
		61:                  "1m 1s",
		3600:                "1h 0m",
		3725:                "1h 2m",
		86400 + 3600*2 + 60: "1d 2h 1m",
		-10:                 "0s",
	}
	for in, want := range cases {
		if got := Duration(in); got != want {
			t.Errorf("Duration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := map[int64]string{
		0:           "0s ago",
		59:          "59s ago",
		60:          "1m ago",
		3599:        "59m ago",
		3600:        "1h ago",
		86399:       "23h ago",
		86400 * 3:   "3d ago",
		86400*3 + 5: "3d ago",
	}
	for delta, want := range cases {
		if got := TimeAgo(now.Unix()-delta, now); got != want {
			t.Errorf("TimeAgo(-%d) = %q, want %q", delta, got, want)
		}
	}
}

func TestShorten(t *testing.T) {
	if got := Shorten("abcdefghijklmnopqrs", 8); got != "abcdefghijklmnopqrs" {
		t.Errorf("19 chars should not be shortened, got %q", got)
	}
	if got := Shorten("abcdefghijklmnopqrst", 8); got != "abcdefgh...mnopqrst" {
		t.Errorf("got %q", got)
	}
	if got := Shorten("0123456789abcdef0123456789", 4); got != "0123...6789" {
		t.Errorf("got %q", got)
	}
	got := Shorten("éééééééééé", 1)
	if got != "é...é" || !utf8.ValidString(got) {
		t.Errorf("multi-byte ids must be cut on characters, got %q", got)
	}
}

func TestSince(t *testing.T) {
	now := time.Now()
	if got := Since(time.Time{}, now); got != "never" {
		t.Errorf("got %q", got)
	}
	if got := Since(now, now); got != "just now" {
		t.Errorf("got %q", got)
	}
	if got := Since(now.Add(-125*time.Second), now); got != "2 minutes 5 seconds" {
		t.Errorf("got %q", got)
	}
}

func TestFormattersArePure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 2; i++ {
		if Hashrate(1500) != "1.50 KH/s" || Duration(61) != "1m 1s" || TimeAgo(now.Unix()-90, now) != "1m ago" {
			t.Fatal("formatters should return identical output on repeated calls")
		}
	}
}
