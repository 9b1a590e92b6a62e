package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/marketpulse/internal/external"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [SYMBOL...]",
	Short: "Run the pipeline once",
	Long: `Fetch, clean, compute metrics, validate, store and report.

Symbols come from the arguments, then --symbols, then DEFAULT_TICKERS.
A symbol that fails at any stage is skipped; the run still succeeds.
Only configuration or store initialization errors exit non-zero.

Example:
  go run ./cmd/marketpulse run
  go run ./cmd/marketpulse run AAPL MSFT
  go run ./cmd/marketpulse run --symbols AAPL,TSLA --period 6mo --workers 8`,
	RunE: runPipeline,
}

var (
	runSymbols []string
	runPeriod  string
	runWorkers int
	runFormats []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "comma separated tickers")
	runCmd.Flags().StringVar(&runPeriod, "period", "", "lookback period (1d,5d,1mo,3mo,6mo,1y,2y,5y,10y,ytd,max)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent symbols")
	runCmd.Flags().StringSliceVar(&runFormats, "formats", nil, "report formats (csv,html,xlsx,parquet)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	PrintBanner("Pipeline")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runPeriod != "" {
		if err := external.ValidatePeriod(runPeriod); err != nil {
			return err
		}
		cfg.Fetch.Period = runPeriod
	}
	if runWorkers > 0 {
		cfg.Pipeline.Workers = runWorkers
	}
	if len(runFormats) > 0 {
		cfg.Report.Formats = runFormats
	}

	symbols := cfg.Pipeline.Symbols
	switch {
	case len(args) > 0:
		symbols = args
	case len(runSymbols) > 0:
		symbols = runSymbols
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintKeyValue("Symbols", strings.Join(symbols, ", "), 8)
	PrintKeyValue("Period", cfg.Fetch.Period, 8)
	PrintKeyValue("Source", cfg.Fetch.Source, 8)
	PrintKeyValue("Store", cfg.Store.Driver, 8)

	summary, err := a.orchestrator.Run(ctx, symbols)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintRunSummary(summary)

	PrintReportResult(summary, cfg.Report.Dir, cfg.Report.Formats)
	return nil
}
