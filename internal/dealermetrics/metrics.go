// Package dealermetrics builds the "dealer metrics (when enabled)" report
// of spec.md §6 as per-day records: per-bucket prices, inventory, cash,
// equity and interior/passthrough trade counts (CollectBucketMetrics),
// bucket profit/loss between two equity values (BucketPnL), and trader
// safety-margin statistics (SafetyMargins/Summarize). It produces no
// per-trade records and does not track anchor evolution. It reads the dealer subsystem and the day's event slice
// without mutating either, the same read-only reporting shape as
// ledger.State.Snapshot (internal/ledger/reports.go).
//
// Summary statistics are computed with gonum's stat package, grounded on
// the teacher's pkg/formulas/stats.go (Mean/StdDev wrappers over
// gonum.org/v1/gonum/stat) — the one place in this codebase where
// amounts are deliberately converted to float64, since these are
// descriptive reporting statistics, not settlement-critical arithmetic.
package dealermetrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/closedloop/econsim/internal/dealer"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/money"
)

// BucketMetric is one bucket's end-of-day snapshot plus the day's trade
// counts for that bucket.
type BucketMetric struct {
	Day               int
	Bucket            string
	Bid               string
	Ask               string
	Inventory         int64
	DealerCash        int64
	Equity            string
	InteriorTrades    int
	PassthroughTrades int
	PassthroughRatio  float64
}

// CollectBucketMetrics builds one BucketMetric per configured bucket from
// the dealer subsystem's current (post-recompute) state plus the trade
// events emitted during this day.
func CollectBucketMetrics(day int, ds *dealer.Subsystem, dayEvents []events.Event) []BucketMetric {
	interior := make(map[string]int)
	passthrough := make(map[string]int)
	for _, ev := range dayEvents {
		td, ok := ev.Data.(*events.DealerTradeData)
		if !ok {
			continue
		}
		if td.Passthrough {
			passthrough[td.Bucket]++
		} else {
			interior[td.Bucket]++
		}
	}

	out := make([]BucketMetric, 0, len(ds.BucketNames()))
	for _, name := range ds.BucketNames() {
		bs, ok := ds.Bucket(name)
		if !ok {
			continue
		}
		in, pt := interior[name], passthrough[name]
		ratio := 0.0
		if total := in + pt; total > 0 {
			ratio = float64(pt) / float64(total)
		}
		out = append(out, BucketMetric{
			Day:               day,
			Bucket:            name,
			Bid:               bs.Bid.String(),
			Ask:               bs.Ask.String(),
			Inventory:         int64(bs.X),
			DealerCash:        int64(bs.DealerCash),
			Equity:            bs.V.String(),
			InteriorTrades:    in,
			PassthroughTrades: pt,
			PassthroughRatio:  ratio,
		})
	}
	return out
}

// BucketPnL is one bucket dealer's equity change since a prior snapshot,
// valued consistently with the kernel's V = C + M*a identity (spec.md
// §4.8) at both endpoints.
func BucketPnL(current, baseline money.Price) money.Price {
	return current.Sub(baseline)
}

// SafetyMargins collects SafetyMargin for every trader in traderIDs.
func SafetyMargins(ds *dealer.Subsystem, traderIDs []string, day int) []float64 {
	out := make([]float64, len(traderIDs))
	for i, id := range traderIDs {
		m := ds.SafetyMargin(id, day)
		f, _ := money.PriceFromInt(int64(m)).Decimal().Float64()
		out[i] = f
	}
	return out
}

// Summary is a small descriptive-statistics bundle over a float series.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	N      int
}

// Summarize computes mean/stddev/min/max over values, returning the zero
// Summary for an empty series.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean := stat.Mean(values, nil)
	var std float64
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return Summary{Mean: mean, StdDev: std, Min: lo, Max: hi, N: len(values)}
}
