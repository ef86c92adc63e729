package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"classhub/gradekeeper/pkg/archive/retention"
	"classhub/gradekeeper/pkg/cli"
	"classhub/gradekeeper/pkg/telemetry/metrics"
	"classhub/gradekeeper/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-grade the submission on every change",
	Long: `Watch the submission directory and re-grade after every change.

Each change-triggered run goes through the same flow as a one-shot run,
including rate limit accounting against the local history store. Rapid
saves are debounced into a single run.

Examples:
  # Watch the configured submission directory
  gradekeeper watch

  # Watch with a custom config
  gradekeeper watch --config ./gradekeeper.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	ctx := cli.SetupSignalHandler()

	var collectors *metrics.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		collectors = metrics.New()
		if addr := cfg.Telemetry.Metrics.Listen; addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(collectors.Registry(), promhttp.HandlerOpts{}))
			go func() {
				slog.Info("metrics endpoint listening", "addr", addr)
				if err := http.ListenAndServe(addr, mux); err != nil {
					slog.Error("metrics endpoint failed", "error", err)
				}
			}()
		}
	}

	// Scheduled archive pruning runs for the lifetime of the watch.
	if cfg.Archive.Enabled && cfg.Archive.PruneSchedule != "" {
		store, err := openArchive(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		pruner := retention.NewPruner(store, retention.Config{
			RetentionDays: cfg.Archive.RetentionDays,
			PruneSchedule: cfg.Archive.PruneSchedule,
		})
		if err := pruner.Start(ctx); err != nil {
			return fmt.Errorf("starting retention scheduler: %w", err)
		}
		defer pruner.Stop()
	}

	grade := func() error {
		h, cleanup, err := buildHarness(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		if collectors != nil {
			h.UseMetrics(collectors)
		}
		_, err = h.Execute(ctx)
		return err
	}

	// Grade once up front so the watcher starts from a known state.
	if err := grade(); err != nil {
		slog.Error("initial grading run failed", "error", err)
	}

	paths := cfg.Watch.Paths
	if len(paths) == 0 {
		paths = []string{cfg.Paths.Submission}
	}
	watcher, err := watch.New(watch.Config{
		Paths:      paths,
		Debounce:   cfg.Watch.Debounce,
		SkipHidden: true,
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer watcher.Stop()

	return watcher.Watch(ctx, grade)
}
