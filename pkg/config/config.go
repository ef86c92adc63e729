package config

import (
	"fmt"
	"time"

	"classhub/gradekeeper/pkg/ratelimit"
)

// resetTimeLayout is the format for rate_limit.reset_time, matching the
// platform's bare timestamp format: "2018-11-29T16:15:00".
const resetTimeLayout = "2006-01-02T15:04:05"

// Config is the root harness configuration.
type Config struct {
	// Assignment describes the assignment being graded.
	Assignment AssignmentConfig `yaml:"assignment"`

	// Paths locates the platform's input and output files.
	Paths PathsConfig `yaml:"paths"`

	// RateLimit configures submission token accounting.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// History configures the local submission-history store used when
	// no platform metadata exists (local and watch runs).
	History HistoryConfig `yaml:"history"`

	// Archive configures the local full-run archive.
	Archive ArchiveConfig `yaml:"archive"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Watch configures the local re-grade watcher.
	Watch WatchConfig `yaml:"watch"`
}

// AssignmentConfig describes the assignment.
type AssignmentConfig struct {
	// Name is the assignment name, used in logs and the welcome
	// message.
	Name string `yaml:"name"`

	// WelcomeMessage is printed once at the start of every run. Empty
	// disables it.
	WelcomeMessage string `yaml:"welcome_message"`

	// Checks are command-driven tests run against the submission, in
	// order.
	Checks []CheckConfig `yaml:"checks"`
}

// CheckConfig is one command-driven test. The command runs through the
// shell in the submission directory; exit status zero passes and earns
// the full score.
type CheckConfig struct {
	// Name identifies the check to the student.
	Name string `yaml:"name"`

	// Number orders the check in the platform UI ("1.2"). Optional.
	Number string `yaml:"number"`

	// MaxScore is the points the check is worth.
	MaxScore float64 `yaml:"max_score"`

	// Command is the shell command to run.
	Command string `yaml:"command"`

	// Timeout bounds the command's run time. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// Visibility controls when the check's result becomes visible.
	Visibility string `yaml:"visibility"`
}

// PathsConfig locates platform files.
type PathsConfig struct {
	// Results is where the results payload is written.
	Results string `yaml:"results"`

	// Metadata is the platform's submission metadata file.
	Metadata string `yaml:"metadata"`

	// Submission is the student submission directory.
	Submission string `yaml:"submission"`
}

// RateLimitConfig is the YAML surface of the rate limit. The window is
// expressed as additive seconds/minutes/hours/days components.
type RateLimitConfig struct {
	// Tokens is the capacity: the maximum graded submissions inside any
	// window. Nil disables rate limiting.
	Tokens *int `yaml:"tokens"`

	Seconds int `yaml:"seconds"`
	Minutes int `yaml:"minutes"`
	Hours   int `yaml:"hours"`
	Days    int `yaml:"days"`

	// ResetTime is an administrative floor ("2018-11-29T16:15:00");
	// submissions before it are disregarded entirely. Empty means no
	// floor.
	ResetTime string `yaml:"reset_time"`

	// PullPrevRun replays the last graded result on denial instead of
	// scoring zero.
	PullPrevRun bool `yaml:"pull_prev_run"`

	// SubmissionIDExclude lists submission ids that never count against
	// the capacity.
	SubmissionIDExclude []string `yaml:"submission_id_exclude"`
}

// Engine converts the YAML surface into the engine's configuration.
func (c RateLimitConfig) Engine() (ratelimit.Config, error) {
	cfg := ratelimit.Config{
		Tokens: c.Tokens,
		Window: ratelimit.TimeWindow{
			Seconds: c.Seconds,
			Minutes: c.Minutes,
			Hours:   c.Hours,
			Days:    c.Days,
		},
		ExcludeSubmissionIDs: c.SubmissionIDExclude,
		PullPreviousRun:      c.PullPrevRun,
	}
	if c.ResetTime != "" {
		t, err := time.Parse(resetTimeLayout, c.ResetTime)
		if err != nil {
			return ratelimit.Config{}, fmt.Errorf("invalid reset_time %q: %w", c.ResetTime, err)
		}
		cfg.ResetTime = &t
	}
	if err := cfg.Validate(); err != nil {
		return ratelimit.Config{}, err
	}
	return cfg, nil
}

// HistoryConfig selects the local history store backend.
type HistoryConfig struct {
	// Backend is one of "memory", "sqlite", "redis".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file (sqlite backend).
	Path string `yaml:"path"`

	// RedisAddr is the Redis server address (redis backend).
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates to Redis. Empty means no auth.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB is the Redis database number.
	RedisDB int `yaml:"redis_db"`
}

// ArchiveConfig configures the local full-run archive.
type ArchiveConfig struct {
	// Enabled turns archiving of completed runs on.
	Enabled bool `yaml:"enabled"`

	// Path is the archive SQLite database file.
	Path string `yaml:"path"`

	// RetentionDays is how long archived runs are kept. Zero disables
	// pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for automatic pruning in watch
	// mode (e.g. "0 3 * * *" for daily at 3 AM).
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the output format (json, text).
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Listen is the address the metrics endpoint binds in watch mode
	// (e.g. "127.0.0.1:9464"). Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// WatchConfig configures the local re-grade watcher.
type WatchConfig struct {
	// Paths are the directories watched for changes. Defaults to the
	// submission directory.
	Paths []string `yaml:"paths"`

	// Debounce is how long to wait after the last change before
	// re-grading.
	Debounce time.Duration `yaml:"debounce"`
}
