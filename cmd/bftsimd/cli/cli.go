// Package cli builds the bftsimd command tree.
package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rbbnet/bftsim/internal/batch"
	"github.com/rbbnet/bftsim/internal/config"
	"github.com/rbbnet/bftsim/internal/metrics"
	"github.com/rbbnet/bftsim/internal/monthly"
	"github.com/rbbnet/bftsim/internal/randsrc"
	"github.com/rbbnet/bftsim/internal/report"
	"github.com/rbbnet/bftsim/internal/simulation"
	"github.com/rbbnet/bftsim/internal/telemetry"
)

var version = "dev"

// New builds the root *cobra.Command with the run, batch, monthly, and
// version subcommands wired up in a single constructor.
func New() *cobra.Command {
	var (
		configPath string
		outDir     string
		debug      bool
		simsOverride int
		listenMetrics string
	)

	root := &cobra.Command{
		Use:   "bftsimd",
		Short: "Event-driven BFT validator-availability and SLA simulator",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sim.toml", "path to the TOML configuration document")
	root.PersistentFlags().StringVar(&outDir, "out", ".", "directory to write report files into")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose development logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single simulation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), configPath, outDir, debug, 1, listenMetrics)
		},
	}
	runCmd.Flags().StringVar(&listenMetrics, "listen-metrics", "", "address to serve Prometheus metrics on, e.g. :9400 (empty disables)")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Execute a batch of independent simulation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), configPath, outDir, debug, simsOverride, listenMetrics)
		},
	}
	batchCmd.Flags().IntVar(&simsOverride, "sims", 0, "override num_simulations from the config file (0 = use config)")
	batchCmd.Flags().StringVar(&listenMetrics, "listen-metrics", "", "address to serve Prometheus metrics on, e.g. :9400 (empty disables)")

	monthlyCmd := &cobra.Command{
		Use:   "monthly",
		Short: "Run the monthly SLA analyzer over an existing block stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			blocksPath, _ := cmd.Flags().GetString("blocks")
			return runMonthly(configPath, outDir, blocksPath)
		},
	}
	monthlyCmd.Flags().String("blocks", "", "path to an existing sim_id;timestamp;proposer_validator CSV")
	_ = monthlyCmd.MarkFlagRequired("blocks")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}

	root.AddCommand(runCmd, batchCmd, monthlyCmd, versionCmd)
	return root
}

func runBatch(ctx context.Context, configPath, outDir string, debug bool, simsOverride int, listenMetrics string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	m := cfg.NumSimulations
	if simsOverride > 0 {
		m = simsOverride
	}

	logger, err := telemetry.NewLogger(debug)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	reg := metrics.NewNoop()
	if listenMetrics != "" {
		reg = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: listenMetrics, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	summaryFile, err := os.Create(filepath.Join(outDir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("creating summary file: %w", err)
	}
	defer summaryFile.Close()

	blocksFile, err := os.Create(filepath.Join(outDir, "blocks.csv"))
	if err != nil {
		return fmt.Errorf("creating blocks file: %w", err)
	}
	defer blocksFile.Close()
	blockWriter := report.NewBlockStreamWriter(blocksFile)

	failuresFile, err := os.Create(filepath.Join(outDir, "failures.csv"))
	if err != nil {
		return fmt.Errorf("creating failures file: %w", err)
	}
	defer failuresFile.Close()
	failureWriter := report.NewFailureDistributionWriter(failuresFile, cfg.SimulationDurationSeconds())

	base := randsrc.New(cfg.RandomSeed)
	orch := batch.New(logger, reg)

	blockSink := blockSinkAdapter{w: blockWriter}
	failureSink := failureSinkAdapter{w: failureWriter}

	result, err := orch.Run(ctx, cfg, m, base, blockSink, failureSink)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	if err := blockWriter.Flush(); err != nil {
		return err
	}
	if err := failureWriter.Close(failuresFile); err != nil {
		return err
	}
	if err := report.WriteSummaryReport(summaryFile, result.Summaries, cfg); err != nil {
		return err
	}

	logger.Info("batch complete", zap.Int("simulations", m), zap.String("out_dir", outDir))
	return nil
}

type blockSinkAdapter struct{ w *report.BlockStreamWriter }

func (b blockSinkAdapter) WriteBlocks(blocks []simulation.BlockRecord) error {
	return b.w.WriteBlocks(blocks)
}

type failureSinkAdapter struct{ w *report.FailureDistributionWriter }

func (f failureSinkAdapter) WriteFailures(simID string, failures []simulation.FailureRecord) error {
	return f.w.WriteFailures(simID, failures)
}

func runMonthly(configPath, outDir, blocksPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if blocksPath == "" {
		return fmt.Errorf("--blocks is required")
	}

	f, err := os.Open(blocksPath)
	if err != nil {
		return fmt.Errorf("opening block stream: %w", err)
	}
	defer f.Close()

	logger, err := telemetry.NewLogger(false)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	rnd := randsrc.New(cfg.RandomSeed)
	analyzer := monthly.NewAnalyzer(cfg.BlockTime, cfg.ReservoirCapacity, cfg.EfficiencyMode, rnd, logger)

	if err := streamBlocksCSV(f, analyzer); err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	outFile, err := os.Create(filepath.Join(outDir, "monthly.csv"))
	if err != nil {
		return fmt.Errorf("creating monthly report file: %w", err)
	}
	defer outFile.Close()

	return report.WriteMonthlyReport(outFile, analyzer.Reports())
}

func streamBlocksCSV(f *os.File, analyzer *monthly.Analyzer) error {
	cr := csv.NewReader(f)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading block stream header: %w", err)
	}
	if len(header) < 3 || header[0] != "sim_id" {
		return fmt.Errorf("unexpected block stream header: %v", header)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading block stream: %w", err)
		}
		if len(row) < 3 {
			continue
		}
		ts, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			continue
		}
		proposer, err := strconv.Atoi(row[2])
		if err != nil {
			continue
		}
		analyzer.Observe(simulation.BlockRecord{SimID: row[0], Timestamp: ts, Proposer: proposer})
	}
	return nil
}
