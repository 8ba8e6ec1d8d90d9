package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/history"
	"github.com/jamesainslie/stripvault/pkg/archive/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the journal of backfill imports and comic deletions.

Entries are kept for history.retention_days days.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of one operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove entries past the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func journal() (*history.Journal, error) {
	j, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return j, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}
	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return render(cmd, output.HistoryView{Dir: j.Dir(), Entries: entries})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}
	entry, err := j.Get(args[0])
	if err != nil {
		return err
	}
	if entry.Run != nil {
		return render(cmd, output.RunView{Report: entry.Run})
	}
	return render(cmd, output.HistoryView{Dir: j.Dir(), Entries: []history.Entry{*entry}})
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}
	removed, err := j.Cleanup(cfg.History.RetentionDays)
	if err != nil {
		return err
	}
	printInfo("Removed %d entries older than %d days.", removed, cfg.History.RetentionDays)
	return nil
}

// record journals an operation. A journal failure does not fail the command.
func record(fn func(*history.Journal) (*history.Entry, error)) {
	j, err := journal()
	if err == nil {
		var entry *history.Entry
		if entry, err = fn(j); err == nil {
			printVerbose("recorded %s", entry.ID)
			return
		}
	}
	printError("could not record history: %v", err)
}
