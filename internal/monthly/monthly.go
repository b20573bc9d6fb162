// Package monthly implements the SLA analyzer: it chunks a block-event
// stream into fixed-length months and reports, per month, the P99/P99.9
// inter-block interval and a block-production efficiency figure.
package monthly

import (
	"math"

	"go.uber.org/zap"

	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/quantile"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/simulation"
)

// SecondsPerMonth is the fixed 30-day month length used to bucket events.
const SecondsPerMonth = 30 * 24 * 3600

type monthBucket struct {
	reservoir   *quantile.Reservoir
	blocks      int
	firstTs     int64
	lastTs      int64
	haveBounds  bool
}

// Report is one month's SLA figures.
type Report struct {
	MonthID     int64
	Percentile99   float64
	Percentile999  float64
	Efficiency  float64
}

// Analyzer consumes a chronological block-record stream (possibly
// interleaving several simulation ids) and produces one Report per month.
type Analyzer struct {
	blockTime      float64
	reservoirCap   int
	efficiencyMode config.EfficiencyMode
	rnd            *randsrc.Source
	logger         *zap.Logger

	lastTsBySim   map[string]int64
	lastMonthBySim map[string]int64
	buckets       map[int64]*monthBucket
}

// NewAnalyzer builds an Analyzer using block_time (for the fixed-window
// efficiency denominator) and the given reservoir capacity per month. logger
// receives a warning for every out-of-order (negative) interval skipped.
func NewAnalyzer(blockTime float64, reservoirCap int, mode config.EfficiencyMode, rnd *randsrc.Source, logger *zap.Logger) *Analyzer {
	if mode == "" {
		mode = config.EfficiencyModeSpan
	}
	return &Analyzer{
		blockTime:      blockTime,
		reservoirCap:   reservoirCap,
		efficiencyMode: mode,
		rnd:            rnd,
		logger:         logger.Named("monthly_analyzer"),
		lastTsBySim:    map[string]int64{},
		lastMonthBySim: map[string]int64{},
		buckets:        map[int64]*monthBucket{},
	}
}

// Observe feeds one block record into the analyzer.
func (a *Analyzer) Observe(rec simulation.BlockRecord) {
	monthID := rec.Timestamp/SecondsPerMonth + 1

	b, ok := a.buckets[monthID]
	if !ok {
		b = &monthBucket{reservoir: quantile.NewReservoir(a.reservoirCap, a.rnd)}
		a.buckets[monthID] = b
	}
	b.blocks++
	if !b.haveBounds || rec.Timestamp < b.firstTs {
		b.firstTs = rec.Timestamp
	}
	if !b.haveBounds || rec.Timestamp > b.lastTs {
		b.lastTs = rec.Timestamp
	}
	b.haveBounds = true

	prevTs, hasPrev := a.lastTsBySim[rec.SimID]
	prevMonth, hasPrevMonth := a.lastMonthBySim[rec.SimID]
	if hasPrev && hasPrevMonth && prevMonth == monthID {
		interval := rec.Timestamp - prevTs
		if interval >= 0 {
			b.reservoir.Add(float64(interval))
		} else {
			a.logger.Warn("timestamp regression within simulation, skipping interval",
				zap.String("sim_id", rec.SimID),
				zap.Int64("month_id", monthID),
				zap.Int64("previous_timestamp", prevTs),
				zap.Int64("timestamp", rec.Timestamp),
			)
		}
	}
	a.lastTsBySim[rec.SimID] = rec.Timestamp
	a.lastMonthBySim[rec.SimID] = monthID
}

// Reports returns one Report per month observed, ordered by MonthID.
func (a *Analyzer) Reports() []Report {
	ids := make([]int64, 0, len(a.buckets))
	for id := range a.buckets {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		b := a.buckets[id]
		p99 := math.NaN()
		p999 := math.NaN()
		if b.reservoir.Len() > 0 {
			p99 = b.reservoir.Quantile(99.0)
			p999 = b.reservoir.Quantile(99.9)
		}
		reports = append(reports, Report{
			MonthID:       id,
			Percentile99:  p99,
			Percentile999: p999,
			Efficiency:    a.efficiency(b),
		})
	}
	return reports
}

func (a *Analyzer) efficiency(b *monthBucket) float64 {
	if a.blockTime <= 0 {
		return 100
	}
	switch a.efficiencyMode {
	case config.EfficiencyModeFixed:
		ideal := SecondsPerMonth / a.blockTime
		if ideal <= 0 {
			return 100
		}
		return math.Min(float64(b.blocks)/ideal*100, 100)
	default: // span-based
		span := b.lastTs - b.firstTs
		if span <= 0 {
			if b.blocks > 0 {
				return 100
			}
			return 0
		}
		ideal := float64(span) / a.blockTime
		if ideal <= 0 {
			return 100
		}
		return math.Min(float64(b.blocks)/ideal*100, 100)
	}
}
