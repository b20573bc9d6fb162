// Package report writes the simulator's delimited-text output formats:
// the per-block stream, the aggregated per-simulation summary, the monthly
// SLA report, and the failure-distribution sub-report. All are semicolon
// separated, matching the original tooling's CSV convention so downstream
// spreadsheets and scripts never need to change.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/rbbnet/bftsim/internal/aggregate"
	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/monthly"
	"github.com/rbbnet/bftsim/internal/simerrors"
	"github.com/rbbnet/bftsim/internal/simulation"
)

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = false
	return cw
}

// BlockStreamWriter streams sim_id;timestamp;proposer_validator rows.
type BlockStreamWriter struct {
	cw          *csv.Writer
	wroteHeader bool
}

// NewBlockStreamWriter wraps w, writing the header on first use.
func NewBlockStreamWriter(w io.Writer) *BlockStreamWriter {
	return &BlockStreamWriter{cw: newWriter(w)}
}

// WriteBlocks appends one run's block records in order.
func (b *BlockStreamWriter) WriteBlocks(blocks []simulation.BlockRecord) error {
	if !b.wroteHeader {
		if err := b.cw.Write([]string{"sim_id", "timestamp", "proposer_validator"}); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
		b.wroteHeader = true
	}
	for _, rec := range blocks {
		row := []string{rec.SimID, strconv.FormatInt(rec.Timestamp, 10), strconv.Itoa(rec.Proposer)}
		if err := b.cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
	}
	return nil
}

// Flush flushes buffered output and returns the first write error seen, if any.
func (b *BlockStreamWriter) Flush() error {
	b.cw.Flush()
	if err := b.cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	return nil
}

// thresholdMinutes are the interval buckets reported in the config tail.
var thresholdMinutes = []int{15, 30, 60, 120}

// WriteSummaryReport writes one row per simulation's Summary, followed by a
// blank separator line and a key;value configuration tail, matching the
// original aggregated-report layout.
func WriteSummaryReport(w io.Writer, summaries []aggregate.Summary, cfg config.Config) error {
	cw := newWriter(w)

	intervalSet := map[int64]struct{}{}
	for _, s := range summaries {
		for iv := range s.IntervalCounts {
			intervalSet[iv] = struct{}{}
		}
	}
	intervals := make([]int64, 0, len(intervalSet))
	for iv := range intervalSet {
		intervals = append(intervals, iv)
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })

	header := []string{
		"sim_id",
		"average_blocks_produced",
		"average_blocks_percentage",
		"minimum_blocks_produced",
		"minimum_blocks_percentage",
	}
	for _, iv := range intervals {
		header = append(header, strconv.FormatInt(iv, 10))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}

	var totalBlocksAll int
	counts := map[int]int64{} // threshold(minutes) -> count
	for _, s := range summaries {
		row := []string{
			s.SimID,
			strconv.FormatFloat(s.AverageBlocksProduced, 'f', -1, 64),
			strconv.FormatFloat(s.AverageBlocksPercentage, 'f', -1, 64),
			strconv.Itoa(s.MinimumBlocksProduced),
			strconv.FormatFloat(s.MinimumBlocksPercentage, 'f', -1, 64),
		}
		for _, iv := range intervals {
			row = append(row, strconv.Itoa(s.IntervalCounts[iv]))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
		totalBlocksAll += s.TotalBlocks
		for iv, cnt := range s.IntervalCounts {
			for _, th := range thresholdMinutes {
				if iv >= int64(th*60) {
					counts[th] += int64(cnt)
				}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	tail := newWriter(w)
	for _, kv := range [][2]string{
		{"num_simulations", strconv.Itoa(cfg.NumSimulations)},
		{"block_time", strconv.FormatFloat(cfg.BlockTime, 'f', -1, 64)},
		{"request_timeout", strconv.FormatFloat(cfg.RequestTimeout, 'f', -1, 64)},
		{"p_operator_absence", strconv.FormatFloat(cfg.POperatorAbsence, 'f', -1, 64)},
		{"T_fails_short_days", strconv.FormatFloat(cfg.TFailsShortDays, 'f', -1, 64)},
		{"T_fails_long_days", strconv.FormatFloat(cfg.TFailsLongDays, 'f', -1, 64)},
		{"mean_short_offline_minutes", strconv.FormatFloat(cfg.MeanShortOfflineMinutes, 'f', -1, 64)},
		{"mean_long_offline_hours", strconv.FormatFloat(cfg.MeanLongOfflineHours, 'f', -1, 64)},
		{"simulation_duration_days", strconv.Itoa(cfg.SimulationDurationDays)},
		{"num_validators", strconv.Itoa(cfg.NumValidators)},
		{"meeting_interval_in_hours", strconv.FormatFloat(cfg.EffectiveResetIntervalHours(), 'f', -1, 64)},
	} {
		if err := tail.Write(kv[:]); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
	}
	if err := tail.Write([]string{"total de blocos", strconv.Itoa(totalBlocksAll)}); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	for _, th := range thresholdMinutes {
		if err := tail.Write([]string{fmt.Sprintf("intervalos >= %d minutos", th), strconv.FormatInt(counts[th], 10)}); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
	}
	tail.Flush()
	if err := tail.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	return nil
}

// WriteMonthlyReport writes mes_id;percentil99;percentil99_9;eficiencia rows.
func WriteMonthlyReport(w io.Writer, reports []monthly.Report) error {
	cw := newWriter(w)
	if err := cw.Write([]string{"mes_id", "percentil99", "percentil99_9", "eficiencia"}); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	for _, r := range reports {
		row := []string{
			strconv.FormatInt(r.MonthID, 10),
			formatMaybeNaN(r.Percentile99),
			formatMaybeNaN(r.Percentile999),
			strconv.FormatFloat(r.Efficiency, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	return nil
}

func formatMaybeNaN(v float64) string {
	if v != v { // NaN
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FailureDistributionWriter streams sim_id;timestamp;duration rows, followed
// by a config/stat tail on Close.
type FailureDistributionWriter struct {
	cw          *csv.Writer
	wroteHeader bool
	total       int64
	sumDuration int64
	duration    int64 // simulation duration, for percentual_medio_inoperancia
}

// NewFailureDistributionWriter wraps w. simulationDurationSeconds is used to
// compute the mean-downtime percentage in the tail.
func NewFailureDistributionWriter(w io.Writer, simulationDurationSeconds int64) *FailureDistributionWriter {
	return &FailureDistributionWriter{cw: newWriter(w), duration: simulationDurationSeconds}
}

// WriteFailures appends one run's failure records.
func (f *FailureDistributionWriter) WriteFailures(simID string, failures []simulation.FailureRecord) error {
	if !f.wroteHeader {
		if err := f.cw.Write([]string{"sim_id", "timestamp", "duration"}); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
		f.wroteHeader = true
	}
	for _, fr := range failures {
		row := []string{simID, strconv.FormatInt(fr.Timestamp, 10), strconv.FormatInt(fr.Duration, 10)}
		if err := f.cw.Write(row); err != nil {
			return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
		}
		f.total++
		f.sumDuration += fr.Duration
	}
	return nil
}

// Close flushes the stream and appends the total_de_falhas /
// percentual_medio_inoperancia tail.
func (f *FailureDistributionWriter) Close(w io.Writer) error {
	f.cw.Flush()
	if err := f.cw.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	tail := newWriter(w)
	pct := 0.0
	if f.duration > 0 && f.total > 0 {
		pct = float64(f.sumDuration) / float64(f.duration) * 100
	}
	if err := tail.Write([]string{"total_de_falhas", strconv.FormatInt(f.total, 10)}); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	if err := tail.Write([]string{"percentual_medio_inoperancia", strconv.FormatFloat(pct, 'f', 6, 64)}); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	tail.Flush()
	if err := tail.Error(); err != nil {
		return fmt.Errorf("%w: %v", simerrors.ErrResource, err)
	}
	return nil
}
