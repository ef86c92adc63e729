package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"classhub/gradekeeper/pkg/cli"
	"classhub/gradekeeper/pkg/telemetry/metrics"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grade the submission once",
	Long: `Grade the submission once and write the results payload.

On the grading platform this is the autograder entrypoint: it reads the
submission metadata, evaluates the rate limit, runs the configured
checks, and writes results.json. Locally it grades against the local
history store instead.

Examples:
  # Grade with the default config
  gradekeeper run

  # Grade with a custom config
  gradekeeper run --config /autograder/source/gradekeeper.yaml

  # Validate config without grading
  gradekeeper run --dry-run`,
	RunE: runGrade,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without grading")
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	h, cleanup, err := buildHarness(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Telemetry.Metrics.Enabled {
		h.UseMetrics(metrics.New())
	}

	res, err := h.Execute(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if res.Score != nil {
		slog.Info("grading finished", "score", *res.Score, "tests", len(res.Tests))
	} else {
		slog.Info("grading finished", "tests", len(res.Tests))
	}
	return nil
}
