package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketpulse/internal/store"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [SYMBOL]",
	Short: "Show store health and stored rows",
	Long: `Check the store connection and print the stored row count.
With a symbol, also print its newest rows.

Example:
  go run ./cmd/marketpulse status
  go run ./cmd/marketpulse status AAPL --limit 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

var (
	statusLimit int
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusLimit, "limit", 5, "rows to show for a symbol")
}

func runStatus(cmd *cobra.Command, args []string) error {
	PrintBanner("Status")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newStoreApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	health, err := store.HealthCheck(ctx, a.store)
	if err != nil {
		PrintError(fmt.Sprintf("Store unhealthy: %v", err))
		return err
	}
	PrintKeyValue("Driver", health.Driver, 10)
	PrintKeyValue("Latency", health.ResponseTime.String(), 10)
	PrintKeyValue("Conns", fmt.Sprintf("%d open, %d in use, %d idle", health.OpenConns, health.InUse, health.Idle), 10)

	created, err := printRowCount(ctx, a.store)
	if err != nil || !created {
		return err
	}

	if len(args) == 0 {
		PrintSuccess("Store healthy")
		return nil
	}

	symbol := strings.ToUpper(args[0])
	rows, err := a.store.ListBySymbol(ctx, symbol, statusLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		PrintWarning("No rows stored for " + symbol)
		return nil
	}

	columns := []string{"DATE", "CLOSE", "VOLUME", "RETURN %", "MA", "VOLATILITY"}
	widths := []int{10, 10, 12, 9, 10, 10}
	fmt.Println()
	PrintTableHeader(columns, widths)
	for _, r := range rows {
		PrintTableRow([]string{
			r.Date,
			fmt.Sprintf("%.2f", r.Close),
			fmt.Sprint(r.Volume),
			fmt.Sprintf("%+.2f", r.DailyReturn),
			fmt.Sprintf("%.2f", r.MovingAverage),
			fmt.Sprintf("%.4f", r.Volatility),
		}, widths)
	}
	return nil
}

// printRowCount prints the stored row count. Status is read-only, so a
// missing schema is reported instead of created.
func printRowCount(ctx context.Context, st store.Store) (bool, error) {
	count, err := st.Count(ctx)
	if errors.Is(err, store.ErrNotInitialized) {
		PrintKeyValue("Rows", "schema not created", 10)
		PrintWarning("Store schema not created (run `marketpulse run` first)")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	PrintKeyValue("Rows", fmt.Sprint(count), 10)
	return true, nil
}
