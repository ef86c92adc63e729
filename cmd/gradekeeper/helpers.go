package main

import (
	"context"
	"fmt"
	"os/exec"

	"classhub/gradekeeper/pkg/archive"
	"classhub/gradekeeper/pkg/cli"
	"classhub/gradekeeper/pkg/config"
	"classhub/gradekeeper/pkg/harness"
	"classhub/gradekeeper/pkg/history"
	"classhub/gradekeeper/pkg/telemetry/logging"
)

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the process default.
func setupLogging(cfg *config.Config) error {
	_, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	return err
}

// openHistory opens the configured local history backend.
func openHistory(ctx context.Context, cfg *config.Config) (history.Backend, error) {
	switch cfg.History.Backend {
	case "sqlite":
		return history.NewSQLiteBackend(cfg.History.Path)
	case "redis":
		return history.NewRedisBackend(ctx, history.RedisConfig{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
		})
	default:
		return history.NewMemoryBackend(), nil
	}
}

// openArchive opens the run archive when enabled, nil otherwise.
func openArchive(cfg *config.Config) (archive.Store, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return archive.NewSQLiteStore(cfg.Archive.Path)
}

// registerChecks turns the configured checks into harness tests that
// run a shell command in the submission directory. Exit status zero
// passes and earns the full score.
func registerChecks(h *harness.Harness, cfg *config.Config) {
	for _, check := range cfg.Assignment.Checks {
		check := check
		h.AddTest(&harness.Test{
			Name:       check.Name,
			Number:     check.Number,
			MaxScore:   check.MaxScore,
			Visibility: check.Visibility,
			Run: func(ctx context.Context, r *harness.Report) error {
				runCtx := ctx
				if check.Timeout > 0 {
					var cancel context.CancelFunc
					runCtx, cancel = context.WithTimeout(ctx, check.Timeout)
					defer cancel()
				}

				cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", check.Command)
				cmd.Dir = cfg.Paths.Submission
				out, err := cmd.CombinedOutput()
				if len(out) > 0 {
					r.Printf("%s", out)
				}
				if err != nil {
					r.SetScore(0)
					r.SetStatus("failed")
					return cli.NewCommandError(check.Name, err)
				}
				r.SetScore(check.MaxScore)
				r.SetStatus("passed")
				return nil
			},
		})
	}
}

// buildHarness wires a harness with the configured stores and checks.
func buildHarness(ctx context.Context, cfg *config.Config) (*harness.Harness, func(), error) {
	h := harness.New(cfg)

	backend, err := openHistory(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history backend: %w", err)
	}
	h.UseHistory(backend)

	store, err := openArchive(cfg)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("opening run archive: %w", err)
	}
	if store != nil {
		h.UseArchive(store)
	}

	registerChecks(h, cfg)

	cleanup := func() {
		backend.Close()
		if store != nil {
			store.Close()
		}
	}
	return h, cleanup, nil
}
