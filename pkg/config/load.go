package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// IsLocal reports whether this run is outside the platform's container.
// The platform mounts /autograder; its absence (or an explicit
// .localhost marker alongside the working directory) means local.
func IsLocal() bool {
	if _, err := os.Stat(".localhost"); err == nil {
		return true
	}
	_, err := os.Stat("/autograder")
	return err != nil
}

// Load reads configuration from a YAML file, applies defaults and
// GRADEKEEPER_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given: all
// defaults, rate limiting disabled.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg
}

// applyEnvOverrides applies GRADEKEEPER_SECTION_FIELD environment
// variables on top of the file configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GRADEKEEPER_PATHS_RESULTS"); val != "" {
		cfg.Paths.Results = val
	}
	if val := os.Getenv("GRADEKEEPER_PATHS_METADATA"); val != "" {
		cfg.Paths.Metadata = val
	}
	if val := os.Getenv("GRADEKEEPER_PATHS_SUBMISSION"); val != "" {
		cfg.Paths.Submission = val
	}

	if val := os.Getenv("GRADEKEEPER_RATELIMIT_TOKENS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.Tokens = &n
		}
	}
	if val := os.Getenv("GRADEKEEPER_RATELIMIT_RESET_TIME"); val != "" {
		cfg.RateLimit.ResetTime = val
	}
	if val := os.Getenv("GRADEKEEPER_RATELIMIT_PULL_PREV_RUN"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.RateLimit.PullPrevRun = b
		}
	}

	if val := os.Getenv("GRADEKEEPER_HISTORY_BACKEND"); val != "" {
		cfg.History.Backend = val
	}
	if val := os.Getenv("GRADEKEEPER_HISTORY_REDIS_ADDR"); val != "" {
		cfg.History.RedisAddr = val
	}

	if val := os.Getenv("GRADEKEEPER_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GRADEKEEPER_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GRADEKEEPER_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Watch.Debounce = d
		}
	}
}
