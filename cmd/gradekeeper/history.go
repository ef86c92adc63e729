package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"classhub/gradekeeper/pkg/archive"
	"classhub/gradekeeper/pkg/cli"
	"classhub/gradekeeper/pkg/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect archived grading runs",
	Long: `Inspect the local run archive.

The archive stores the full results payload of every completed run when
archiving is enabled in the configuration.`,
}

var historyListFlags struct {
	limit int
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived run's results payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneFlags struct {
	days int
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove archived runs older than a cutoff",
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyListCmd.Flags().IntVarP(&historyListFlags.limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	historyPruneCmd.Flags().IntVar(&historyPruneFlags.days, "days", 30, "remove runs older than this many days")
}

// openArchiveForQuery opens the archive regardless of the enabled
// flag, so past runs stay inspectable after archiving is turned off.
func openArchiveForQuery(cfg *config.Config) (archive.Store, error) {
	if cfg.Archive.Path == "" {
		return nil, cli.NewConfigError("archive.path", "no archive configured")
	}
	return archive.NewSQLiteStore(cfg.Archive.Path)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openArchiveForQuery(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), historyListFlags.limit)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tASSIGNMENT\tSTARTED\tCOUNTED\tSCORE")
	for _, run := range runs {
		score := "-"
		if run.Score != nil {
			score = fmt.Sprintf("%g", *run.Score)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			run.RunID,
			run.Assignment,
			run.StartedAt.Format(time.RFC3339),
			run.Counted,
			score,
		)
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openArchiveForQuery(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("history show", err)
	}
	if run == nil {
		return fmt.Errorf("no archived run with id %q", args[0])
	}

	var pretty json.RawMessage = run.Payload
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Run:        %s\n", run.RunID)
	fmt.Printf("Assignment: %s\n", run.Assignment)
	fmt.Printf("Started:    %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Printf("Counted:    %t\n", run.Counted)
	fmt.Printf("Payload:\n%s\n", out)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openArchiveForQuery(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cutoff := time.Now().AddDate(0, 0, -historyPruneFlags.days)
	removed, err := store.Prune(cmd.Context(), cutoff)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Printf("Removed %d archived runs older than %s.\n", removed, cutoff.Format(time.RFC3339))
	return nil
}
