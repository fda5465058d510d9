// Package format renders raw pool figures for display.
package format

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/shopspring/decimal"

	"p2pool-monitor/internal/model"
)

// DefaultShortenChars is the prefix/suffix length used for hashes and addresses.
const DefaultShortenChars = 8

var atomicPerXMR = decimal.New(1, 12)

const maxInt64Float = float64(1 << 63)

type band struct {
	threshold float64
	suffix    string
}

var (
	hashrateBands = []band{
		{1e12, "TH/s"},
		{1e9, "GH/s"},
		{1e6, "MH/s"},
		{1e3, "KH/s"},
	}
	difficultyBands = []band{
		{1e12, "T"},
		{1e9, "G"},
		{1e6, "M"},
		{1e3, "K"},
	}
)

func num(v any) float64 {
	return model.ParseNumericOrDefault(v, 0)
}

func scaled(v float64, bands []band, unit string) string {
	for _, b := range bands {
		if v >= b.threshold {
			return fmt.Sprintf("%.2f %s", v/b.threshold, b.suffix)
		}
	}
	if unit == "" {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 0, 64) + " " + unit
}

// Hashrate renders a hashrate in H/s with an SI suffix.
func Hashrate(v any) string {
	return scaled(num(v), hashrateBands, "H/s")
}

// Difficulty renders a dimensionless difficulty with an SI suffix.
func Difficulty(v any) string {
	return scaled(num(v), difficultyBands, "")
}

// XMR renders atomic units as a major-unit amount with six decimals.
func XMR(atomic any) string {
	var amount decimal.Decimal
	switch a := atomic.(type) {
	case model.Atomic:
		amount = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), 0)
	case uint64:
		amount = decimal.NewFromBigInt(new(big.Int).SetUint64(a), 0)
	case decimal.Decimal:
		amount = a
	default:
		amount = decimal.NewFromFloat(num(atomic))
	}
	return amount.Div(atomicPerXMR).StringFixed(6)
}

// Number renders an integer with thousands separators. Values outside the
// int64 range keep their magnitude instead of wrapping.
func Number(v any) string {
	n := math.Round(num(v))
	if math.Abs(n) >= maxInt64Float {
		return humanize.Commaf(n)
	}
	return humanize.Comma(int64(n))
}

// Percent renders a percentage with two decimals.
func Percent(v any) string {
	return fmt.Sprintf("%.2f%%", num(v))
}

// Effort renders a share effort percentage with one decimal.
func Effort(v any) string {
	return fmt.Sprintf("%.1f%%", num(v))
}

// Duration renders a second count as the two or three most significant
// units, dropping leading zero units down to seconds.
func Duration(seconds any) string {
	total := num(seconds)
	if total < 0 {
		total = 0
	}
	d := int64(total / 86400)
	h := int64(math.Mod(total, 86400) / 3600)
	m := int64(math.Mod(total, 3600) / 60)
	s := int64(math.Mod(total, 60))

	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// TimeAgo renders how long before now the unix timestamp ts was, using only
// the coarsest applicable unit.
func TimeAgo(ts any, now time.Time) string {
	diff := now.Unix() - int64(num(ts))
	switch {
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}

// TimeAgoNow is TimeAgo against the wall clock.
func TimeAgoNow(ts any) string {
	return TimeAgo(ts, time.Now())
}

// Date renders a unix timestamp in local time.
func Date(ts any) string {
	return time.Unix(int64(num(ts)), 0).Local().Format("2006-01-02 15:04:05")
}

// Since renders the age of t in words, e.g. "2 minutes 5 seconds".
// A zero t renders as "never".
func Since(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	age := now.Sub(t)
	if age < time.Second {
		return "just now"
	}
	return durafmt.Parse(age.Truncate(time.Second)).LimitFirstN(2).String()
}

// Shorten keeps chars characters on each side of an ellipsis when id is
// longer than 2*chars+3 characters.
func Shorten(id string, chars int) string {
	if chars < 0 {
		chars = 0
	}
	runes := []rune(id)
	if len(runes) <= chars*2+3 {
		return id
	}
	return string(runes[:chars]) + "..." + string(runes[len(runes)-chars:])
}
