// Package estimate derives network share, block time and earnings figures
// from pool and network snapshots. Every function is pure and never returns
// NaN or Inf; inputs that make a figure meaningless yield 0 or ok=false.
package estimate

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"p2pool-monitor/internal/model"
)

const (
	// TargetBlockSeconds is the main chain block time.
	TargetBlockSeconds = 120
	// BlocksPerDay is the expected number of main chain blocks per day.
	BlocksPerDay = 86400 / TargetBlockSeconds
	// AtomicPerMajor is the number of atomic units in one coin.
	AtomicPerMajor = 1e12
)

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NetworkHashrate estimates the network hashrate in H/s from the main chain
// difficulty.
func NetworkHashrate(difficulty float64) float64 {
	difficulty = finite(difficulty)
	if difficulty <= 0 {
		return 0
	}
	return difficulty / TargetBlockSeconds
}

// PoolShare returns the pool's share of the network hashrate in percent.
// ok is false when difficulty <= 0.
func PoolShare(poolHashrate, difficulty float64) (float64, bool) {
	net := NetworkHashrate(difficulty)
	if net <= 0 {
		return 0, false
	}
	return finite(finite(poolHashrate) / net * 100), true
}

// TimeToFindBlock returns the expected seconds for hashrate to find a main
// chain block. ok is false when hashrate or difficulty is not positive.
func TimeToFindBlock(difficulty, hashrate float64) (float64, bool) {
	hashrate = finite(hashrate)
	difficulty = finite(difficulty)
	if hashrate <= 0 || difficulty <= 0 {
		return 0, false
	}
	return finite(difficulty / hashrate), true
}

// DailyEarnings estimates coins per day for hashrate at the given difficulty
// and block reward in atomic units. It returns 0 when hashrate or difficulty
// is not positive.
func DailyEarnings(hashrate, difficulty float64, rewardAtomic uint64) float64 {
	hashrate = finite(hashrate)
	net := NetworkHashrate(difficulty)
	if hashrate <= 0 || net <= 0 {
		return 0
	}
	reward := float64(rewardAtomic) / AtomicPerMajor
	return finite(hashrate / net * BlocksPerDay * reward)
}

// Projection scales a daily figure linearly. It is a first-order projection
// at constant hashrate, difficulty and reward, not a forecast.
type Projection struct {
	Daily   float64
	Weekly  float64
	Monthly float64
	Yearly  float64
}

// Project builds a Projection from a daily figure.
func Project(daily float64) Projection {
	daily = finite(daily)
	return Projection{
		Daily:   daily,
		Weekly:  daily * 7,
		Monthly: daily * 30,
		Yearly:  daily * 365,
	}
}

// Summary is the cross-snapshot view shown on the dashboard.
type Summary struct {
	NetworkHashrate float64

	PoolShare      float64
	PoolShareKnown bool

	PoolBlockTime      float64
	PoolBlockTimeKnown bool

	// MinerBlockTime is the expected solo time for the local miner's 1h hashrate.
	MinerBlockTime      float64
	MinerBlockTimeKnown bool

	Earnings Projection
}

// FromSnapshots projects the given snapshots into a Summary. Any argument may
// be nil; figures that need a missing snapshot stay zero and unknown.
func FromSnapshots(network *model.NetworkStats, pool *model.PoolStats, stratum *model.LocalStratum) Summary {
	var s Summary
	if network == nil {
		return s
	}
	difficulty := network.Difficulty.Float()
	s.NetworkHashrate = NetworkHashrate(difficulty)

	if pool != nil {
		hr := pool.PoolStatistics.HashRate.Float()
		s.PoolShare, s.PoolShareKnown = PoolShare(hr, difficulty)
		s.PoolBlockTime, s.PoolBlockTimeKnown = TimeToFindBlock(difficulty, hr)
	}
	if stratum != nil {
		hr := stratum.Hashrate1h.Float()
		s.MinerBlockTime, s.MinerBlockTimeKnown = TimeToFindBlock(difficulty, hr)
		s.Earnings = Project(DailyEarnings(hr, difficulty, uint64(network.Reward)))
	}
	return s
}

// Payouts summarises a newest-first payout list.
type Payouts struct {
	Count int
	Total decimal.Decimal
	// Newest and Oldest are unix timestamps; zero when the list is empty.
	Newest int64
	Oldest int64
}

// SummarizePayouts totals payouts in atomic units without float rounding.
func SummarizePayouts(payouts []model.Payout) Payouts {
	total := new(big.Int)
	for _, p := range payouts {
		total.Add(total, new(big.Int).SetUint64(uint64(p.CoinbaseReward)))
	}
	out := Payouts{Count: len(payouts), Total: decimal.NewFromBigInt(total, 0)}
	if len(payouts) > 0 {
		out.Newest = payouts[0].Timestamp.Int()
		out.Oldest = payouts[len(payouts)-1].Timestamp.Int()
	}
	return out
}
