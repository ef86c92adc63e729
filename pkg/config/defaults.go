package config

import "time"

// Platform file locations. The local fallbacks are used when the
// platform directories do not exist (see IsLocal).
const (
	defaultResultsPath  = "/autograder/results/results.json"
	defaultMetadataPath = "/autograder/submission_metadata.json"
	defaultSubmission   = "/autograder/submission"

	localResultsPath  = "./results.json"
	localMetadataPath = "./submission_metadata.json"
	localSubmission   = "."
)

// ApplyDefaults fills in default values for anything unset.
func ApplyDefaults(cfg *Config) {
	if cfg.Assignment.Name == "" {
		cfg.Assignment.Name = "assignment"
	}

	local := IsLocal()
	if cfg.Paths.Results == "" {
		if local {
			cfg.Paths.Results = localResultsPath
		} else {
			cfg.Paths.Results = defaultResultsPath
		}
	}
	if cfg.Paths.Metadata == "" {
		if local {
			cfg.Paths.Metadata = localMetadataPath
		} else {
			cfg.Paths.Metadata = defaultMetadataPath
		}
	}
	if cfg.Paths.Submission == "" {
		if local {
			cfg.Paths.Submission = localSubmission
		} else {
			cfg.Paths.Submission = defaultSubmission
		}
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = "memory"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "gradekeeper_history.db"
	}
	if cfg.History.RedisAddr == "" {
		cfg.History.RedisAddr = "localhost:6379"
	}

	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "gradekeeper_archive.db"
	}
	if cfg.Archive.PruneSchedule == "" {
		cfg.Archive.PruneSchedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "text"
	}

	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = []string{cfg.Paths.Submission}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
