package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trendscan/internal/app"
	"trendscan/internal/config"
	"trendscan/internal/logging"
)

func main() {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trendscan",
		Short: "Daily news collector and trend-jacking scorer",
		Long: `trendscan pages through the ETtoday rolling feed for one calendar
day, persists the raw articles, and scores them for brand-safe
trend-jacking marketing through a two-stage LLM pipeline.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(collectCmd(), analyzeCmd(), runCmd(), serveCmd())
	return cmd
}

func newApplication() (*app.Application, config.Config, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	application, err := app.New(cfg, logger)
	return application, cfg, err
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Now().In(loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", value, err)
	}
	return day, nil
}

func parseStopTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	stop, err := time.Parse("15:04", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --stop-time %q (want HH:MM): %w", value, err)
	}
	return &stop, nil
}

func collectCmd() *cobra.Command {
	var dateFlag, stopFlag string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect one day of articles into a dated JSON artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cfg, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			day, err := parseDay(dateFlag, cfg.Scheduler.Location())
			if err != nil {
				return err
			}
			stop, err := parseStopTime(stopFlag)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			count, err := application.Collect(ctx, day, stop)
			if err != nil {
				return err
			}
			fmt.Printf("collected %d articles for %s\n", count, day.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "target day, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&stopFlag, "stop-time", "", "time-of-day lower bound, HH:MM")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var inputFlag string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a collector artifact through the two-stage LLM pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := signalContext()
			defer cancel()

			run, err := application.Analyze(ctx, inputFlag)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Println("no articles to analyze")
				return nil
			}
			fmt.Printf("%d collected, %d safe, %d qualified\n",
				run.Stats.TotalInput, run.Stats.SafeCount, run.Stats.QualifiedCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFlag, "input", "", "path to the collector artifact (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runCmd() *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect then analyze one day (the daily composition)",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cfg, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			day, err := parseDay(dateFlag, cfg.Scheduler.Location())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			return application.RunDay(ctx, day)
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "target day, YYYY-MM-DD (default: today)")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run once now, then daily on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := newApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := signalContext()
			defer cancel()

			return application.Serve(ctx)
		},
	}
}
