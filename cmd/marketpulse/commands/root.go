package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketpulse/pkg/config"
)

var (
	// Global flags
	storeDriver string
	dataSource  string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "marketpulse",
	Short:   "MarketPulse - daily market data pipeline",
	Version: config.Version,
	Long: `MarketPulse Unified CLI

Fetches daily OHLCV bars, cleans them, derives daily return,
moving average and volatility, stores new rows and writes reports.

Usage:
  go run ./cmd/marketpulse [command]

Examples:
  go run ./cmd/marketpulse run
  go run ./cmd/marketpulse run AAPL MSFT --period 3mo
  go run ./cmd/marketpulse schedule
  go run ./cmd/marketpulse serve
  go run ./cmd/marketpulse status`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v{{.Version}}\n", config.AppName))

	// Global flags
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "store driver override (sqlite|postgres|memory)")
	rootCmd.PersistentFlags().StringVar(&dataSource, "source", "", "data source override (yahoo|alpha_vantage)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
