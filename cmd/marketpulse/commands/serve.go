package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketpulse/internal/api"
	"github.com/wonny/marketpulse/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only API server",
	Long: `Serve stored metric records over HTTP.

Endpoints:
  GET  /health                 - store health and row count
  GET  /api/prices/{symbol}    - newest rows (?limit=30)
  GET  /metrics                - Prometheus metrics (METRICS_ENABLED)

Example:
  go run ./cmd/marketpulse serve
  go run ./cmd/marketpulse serve --port 8080`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default PORT)")
}

// newAPIServer builds the API server over the app's store and metrics
func newAPIServer(a *app) *api.Server {
	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}
	router := api.NewRouter(
		handlers.NewPriceHandler(a.store, a.log),
		handlers.NewHealthHandler(a.store, a.log),
		metricsHandler,
		a.log,
	)
	return api.New(a.cfg, a.log, router)
}

func runServe(cmd *cobra.Command, args []string) error {
	PrintBanner("API Server")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx := context.Background()
	a, err := newStoreApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Initialize(ctx); err != nil {
		return err
	}

	server := newAPIServer(a)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
