package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
	"github.com/jamesainslie/stripvault/pkg/archive/history"
	"github.com/jamesainslie/stripvault/pkg/archive/output"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Find and fill gaps in the archive",
	Long: `Find publication days missing from the archive and fill them.

Each comic is scanned backward from today (or Dec 31 of --year) toward the
start of the year, skipping days the comic does not publish. A comic's scan
stops after backfill.max_consecutive_failures missing days in a row.`,
}

var backfillScanCmd = &cobra.Command{
	Use:   "scan [comic]",
	Short: "List missing strips",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackfillScan,
}

var backfillImportCmd = &cobra.Command{
	Use:   "import [comic]",
	Short: "Archive missing strips from a staging directory",
	Long: `Scan for missing strips and archive any found in --from, laid out as
<from>/<comic>/<yyyy-MM-dd>.<ext> or <from>/<comic>/<yyyy>/<yyyy-MM-dd>.<ext>.

Every image goes through duplicate detection before it is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackfillImport,
}

func init() {
	for _, cmd := range []*cobra.Command{backfillScanCmd, backfillImportCmd} {
		cmd.Flags().Int("year", 0, "target year (default: backfill.target_year, 0 = current year)")
		cmd.Flags().Int("max-failures", 0, "consecutive missing days before a comic's scan stops")
	}
	backfillImportCmd.Flags().String("from", "", "staging directory holding downloaded strips")
	_ = backfillImportCmd.MarkFlagRequired("from")

	backfillCmd.AddCommand(backfillScanCmd)
	backfillCmd.AddCommand(backfillImportCmd)
	rootCmd.AddCommand(backfillCmd)
}

type comicList []types.Comic

func (l comicList) All() []types.Comic { return l }

func scanOptions(cmd *cobra.Command) backfill.ScanOptions {
	opts := cfg.ScanOptions()
	if year, _ := cmd.Flags().GetInt("year"); year != 0 {
		opts.TargetYear = year
	}
	if n, _ := cmd.Flags().GetInt("max-failures"); n > 0 {
		opts.MaxConsecutiveFailures = n
	}
	return opts
}

func findMissing(ctx context.Context, cmd *cobra.Command, a *app, args []string) ([]types.BackfillTask, *backfill.Scanner, error) {
	comics, err := a.comics(args)
	if err != nil {
		return nil, nil, err
	}

	scanner := backfill.NewScanner(comicList(comics), a.archive, scanOptions(cmd))
	tasks, err := scanner.FindMissingStrips(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tasks, scanner, nil
}

func runBackfillScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, scanner, err := findMissing(ctx, cmd, a, args)
	if err != nil {
		return err
	}
	return render(cmd, output.TasksView{Tasks: tasks, Checked: scanner.DatesChecked()})
}

func runBackfillImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	from, _ := cmd.Flags().GetString("from")
	if info, err := os.Stat(from); err != nil || !info.IsDir() {
		return fmt.Errorf("staging directory %s is not readable", from)
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, _, err := findMissing(ctx, cmd, a, args)
	if err != nil {
		return err
	}
	printVerbose("%d strips missing, importing from %s", len(tasks), from)

	runner := backfill.NewRunner(backfill.DirFetcher{Dir: from}, a.archive, cfg.RunOptions())
	report, runErr := runner.Run(ctx, tasks)
	if report != nil {
		if len(report.Results) > 0 {
			record(func(j *history.Journal) (*history.Entry, error) { return j.LogRun(report) })
		}
		if err := render(cmd, output.RunView{Report: report}); err != nil {
			return err
		}
	}
	return runErr
}
