package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/CitFinder/pkg/config"
	"github.com/ChrisMcGann/CitFinder/pkg/pairing"
	"github.com/ChrisMcGann/CitFinder/pkg/quant"
	"github.com/ChrisMcGann/CitFinder/pkg/reader/batch"
	"github.com/ChrisMcGann/CitFinder/pkg/writer/duckdb"
	"github.com/ChrisMcGann/CitFinder/pkg/writer/sqlite"
)

// runFlags maps command line flags to configuration keys.
var runFlags = []struct {
	flag, key string
}{
	{"fragment-tolerance", "tolerance.fragment"},
	{"parent-tolerance", "tolerance.parent"},
	{"cutoff", "scoring.cutoff"},
	{"auto-cutoff", "scoring.include_cutoff"},
	{"top-n", "filter.top_n"},
	{"intensity-cutoff", "filter.intensity_cutoff"},
	{"rt-window", "quantification.window_minutes"},
	{"ppm", "quantification.ppm"},
	{"deviation", "quantification.deviation"},
	{"mods", "input.modifications_csv"},
	{"sqlite", "output.sqlite"},
	{"duckdb", "output.duckdb"},
	{"workers", "workers"},
}

func newRunCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "run <batch.json>",
		Short: "Pair, score and quantify citrullinated spectra",
		Long: `Run the full pipeline over a batch document: find citrullinated spectra,
pair them with arginine spectra, search the raw scans for unidentified
citrullinated candidates, score and rank all pairings and quantify the chosen
entries.

Examples:
  # Run with default settings and print a summary
  citfinder run batch.json

  # Write the ranked tables and quantification to SQLite
  citfinder run batch.json --sqlite results.db

  # Stricter scoring, no automatic selection
  citfinder run batch.json --cutoff 15 --auto-cutoff=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range runFlags {
				if err := viper.BindPFlag(f.key, cmd.Flags().Lookup(f.flag)); err != nil {
					return fmt.Errorf("binding flag %s: %w", f.flag, err)
				}
			}
			if runID == "" {
				base := filepath.Base(args[0])
				runID = strings.TrimSuffix(base, filepath.Ext(base))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return runPipeline(ctx, args[0], runID)
		},
	}

	d := config.Default()
	flags := cmd.Flags()
	flags.Float64("fragment-tolerance", d.Tolerance.Fragment, "Fragment mass tolerance in Da")
	flags.Float64("parent-tolerance", d.Tolerance.Parent, "Parent mass tolerance in Da")
	flags.Float64("cutoff", d.Scoring.CutOff, "CitScore cut-off for automatic selection")
	flags.Bool("auto-cutoff", d.Scoring.IncludeCutOff, "Select every entry at or above the cut-off for quantification")
	flags.Int("top-n", d.Filter.TopN, "Keep only top N most intense peaks of raw candidates (0 = no limit)")
	flags.Float64("intensity-cutoff", d.Filter.IntensityCutoff, "Intensity cutoff of raw candidates as % of base peak (0 = no cutoff)")
	flags.Float64("rt-window", d.Quantification.WindowMinutes, "XIC retention time half-window in minutes")
	flags.Float64("ppm", d.Quantification.PPM, "XIC precursor tolerance in ppm")
	flags.String("deviation", d.Quantification.Deviation, "XIC deviation mode: ppm or literal")
	flags.String("mods", d.Input.ModificationsCSV, "Path to custom modifications CSV file (mod,massshift)")
	flags.String("sqlite", d.Output.SQLite, "Write ranked tables and quantification to this SQLite database")
	flags.String("duckdb", d.Output.DuckDB, "Append quantification results to this DuckDB database")
	flags.Int("workers", d.Workers, "Number of worker goroutines (0 = GOMAXPROCS)")
	flags.StringVar(&runID, "run-id", "", "Run identifier stored with DuckDB results (default: batch file name)")

	return cmd
}

func runPipeline(ctx context.Context, batchPath, runID string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	qs, err := cfg.QuantSettings()
	if err != nil {
		return err
	}

	modDB, err := loadModDatabase(cfg.Input.ModificationsCSV)
	if err != nil {
		return err
	}

	start := time.Now()
	corpus, err := batch.NewReader(modDB).ReadFile(batchPath)
	if err := reportFileErrors(logger, err); err != nil {
		return err
	}
	corpus, err = corpus.Validate()
	if err := reportFileErrors(logger, err); err != nil {
		return err
	}
	logger.Info("batch loaded",
		zap.String("path", batchPath),
		zap.Int("search_files", len(corpus.Searches)),
		zap.Int("raw_files", len(corpus.Raw)))

	engine := pairing.NewEngine(cfg.PairingSettings())
	engine.SetLogger(logger)
	state, err := engine.Run(ctx, corpus)
	if err != nil {
		return fmt.Errorf("pairing: %w", err)
	}

	quantifier := quant.NewQuantifier(qs, corpus.Raw)
	quantifier.SetLogger(logger)
	results, err := quantifier.Quantify(ctx, state.Selections())
	if err != nil {
		return fmt.Errorf("quantification: %w", err)
	}

	if cfg.Output.SQLite != "" {
		if err := writeSQLite(cfg.Output.SQLite, state, results); err != nil {
			return err
		}
	}
	if cfg.Output.DuckDB != "" {
		if err := writeDuckDB(cfg.Output.DuckDB, runID, results); err != nil {
			return err
		}
	}

	printSummary(state, results, cfg, time.Since(start))
	return nil
}

func writeSQLite(path string, state *pairing.State, results []quant.Result) error {
	w, err := sqlite.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer w.Close()

	if err := w.WriteState(state); err != nil {
		return err
	}
	if err := w.WriteResults(results); err != nil {
		return err
	}
	if err := w.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}
	return nil
}

func writeDuckDB(path, runID string, results []quant.Result) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearRun(runID); err != nil {
		return fmt.Errorf("clearing previous results of %s: %w", runID, err)
	}
	return store.WriteResults(runID, results)
}

func printSummary(state *pairing.State, results []quant.Result, cfg config.Config, elapsed time.Duration) {
	fmt.Printf("\nRun complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Citrullinated spectra with arginine complement: %d (chosen %d)\n",
		len(state.Cit), state.ChosenCount(pairing.CitPaired))
	fmt.Printf("Arginine spectra with citrullinated candidate:  %d (chosen %d)\n",
		len(state.Arg), state.ChosenCount(pairing.ArgPaired))
	fmt.Printf("Lone citrullinated spectra:                     %d (chosen %d)\n",
		len(state.Lone), state.ChosenCount(pairing.Lone))
	fmt.Printf("Quantified entries: %d\n", len(results))

	undefined := 0
	for _, r := range results {
		if !r.PercentDefined {
			undefined++
		}
	}
	if undefined > 0 {
		fmt.Printf("Entries without XIC signal: %d\n", undefined)
	}
	if cfg.Output.SQLite != "" {
		fmt.Printf("SQLite output: %s\n", cfg.Output.SQLite)
	}
	if cfg.Output.DuckDB != "" {
		fmt.Printf("DuckDB output: %s\n", cfg.Output.DuckDB)
	}
}
