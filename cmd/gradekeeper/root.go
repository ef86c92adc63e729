package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gradekeeper",
	Short: "Gradekeeper - rate-limited autograder harness",
	Long: `Gradekeeper runs the configured checks against a student submission
and writes a results payload, subject to a submission rate limit.

Students get a fixed number of grading tokens per time window; a denied
submission scores zero or, when configured, replays the last graded
result. Local runs can watch the submission directory and re-grade on
every change.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "gradekeeper.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
