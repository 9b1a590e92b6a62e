package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketpulse/internal/api"
	"github.com/wonny/marketpulse/internal/scheduler"
	"github.com/wonny/marketpulse/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Start the scheduler daemon. The pipeline job runs on SCHEDULE
(cron with a leading seconds field, default "0 30 17 * * MON-FRI").

Example:
  go run ./cmd/marketpulse schedule
  go run ./cmd/marketpulse schedule --cron "@hourly" --run-now
  go run ./cmd/marketpulse schedule --serve`,
	RunE: runSchedule,
}

var (
	scheduleCron   string
	scheduleRunNow bool
	scheduleServe  bool
	scheduleRetry  int
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression override (default SCHEDULE)")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "run the pipeline once at startup")
	scheduleCmd.Flags().BoolVar(&scheduleServe, "serve", false, "also start the API server")
	scheduleCmd.Flags().IntVar(&scheduleRetry, "retries", 1, "retries for a failed run")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	PrintBanner("Scheduler")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scheduleCron != "" {
		cfg.Schedule = scheduleCron
	}
	if err := scheduler.ValidateSchedule(cfg.Schedule); err != nil {
		return err
	}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.log, scheduler.WithRetry(scheduleRetry, time.Minute))
	job := jobs.NewPipelineJob(a.orchestrator, cfg.Pipeline.Symbols, cfg.Schedule, a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	var server *api.Server
	if scheduleServe {
		if err := a.store.Initialize(context.Background()); err != nil {
			return err
		}
		server = newAPIServer(a)
		go func() {
			if err := server.Start(); err != nil {
				a.log.WithError(err).Error("API server stopped")
			}
		}()
		fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	}

	sched.Start()

	next, _ := sched.NextRun(job.Name())
	PrintKeyValue("Schedule", cfg.Schedule, 8)
	PrintKeyValue("Symbols", strings.Join(cfg.Pipeline.Symbols, ", "), 8)
	if !next.IsZero() {
		PrintKeyValue("Next run", next.Format(time.RFC3339), 8)
	}

	if scheduleRunNow {
		go func() {
			if _, err := sched.RunJob(job.Name()); err != nil {
				a.log.WithError(err).Error("Immediate run failed")
			}
		}()
	}

	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	sched.Stop()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if last := job.LastSummary(); last != nil {
		PrintRunSummary(last)
	}
	PrintSuccess("Scheduler stopped")
	return nil
}
