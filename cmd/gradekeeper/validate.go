package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without grading anything.

Checks the rate limit invariants (positive token capacity, non-zero
window), the history backend selection, the archive retention settings,
and the telemetry options.

Examples:
  gradekeeper validate
  gradekeeper validate --config /autograder/source/gradekeeper.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("✓ Configuration valid\n")
		fmt.Printf("  Assignment: %s\n", cfg.Assignment.Name)
		fmt.Printf("  Checks:     %d\n", len(cfg.Assignment.Checks))

		engine, err := cfg.RateLimit.Engine()
		if err != nil {
			return err
		}
		if engine.Enabled() {
			fmt.Printf("  Rate limit: %d tokens per %s\n", *engine.Tokens, engine.Window)
		} else {
			fmt.Printf("  Rate limit: disabled\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
