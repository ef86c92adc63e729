package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

var validHistoryBackends = map[string]bool{
	"memory": true,
	"sqlite": true,
	"redis":  true,
}

// Validate checks the full configuration. It is called once by Load;
// commands constructing configuration programmatically call it
// themselves.
func Validate(cfg *Config) error {
	// The engine config constructor runs the rate limit invariants
	// (capacity >= 1, non-negative components, non-zero window).
	if _, err := cfg.RateLimit.Engine(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}

	for i, check := range cfg.Assignment.Checks {
		if check.Name == "" {
			return fmt.Errorf("assignment: check %d has no name", i)
		}
		if check.Command == "" {
			return fmt.Errorf("assignment: check %q has no command", check.Name)
		}
		if check.MaxScore < 0 {
			return fmt.Errorf("assignment: check %q has a negative max_score", check.Name)
		}
	}

	if !validHistoryBackends[cfg.History.Backend] {
		return fmt.Errorf("history: unknown backend %q (expected memory, sqlite, or redis)", cfg.History.Backend)
	}
	if cfg.History.Backend == "sqlite" && cfg.History.Path == "" {
		return fmt.Errorf("history: sqlite backend requires a path")
	}

	if cfg.Archive.RetentionDays < 0 {
		return fmt.Errorf("archive: retention_days must be non-negative")
	}
	if cfg.Archive.Enabled && cfg.Archive.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Archive.PruneSchedule); err != nil {
			return fmt.Errorf("archive: invalid prune_schedule %q: %w", cfg.Archive.PruneSchedule, err)
		}
	}

	if !validLogLevels[cfg.Telemetry.Logging.Level] {
		return fmt.Errorf("telemetry: unknown log level %q", cfg.Telemetry.Logging.Level)
	}
	if !validLogFormats[cfg.Telemetry.Logging.Format] {
		return fmt.Errorf("telemetry: unknown log format %q", cfg.Telemetry.Logging.Format)
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch: debounce must be non-negative")
	}
	return nil
}
