package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/history"
	"github.com/jamesainslie/stripvault/pkg/archive/output"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and modify the archive",
	Long: `Commands that read or change the archive directory itself.

Strips live at <root>/<ComicNameWithoutSpaces>/<yyyy>/<yyyy-MM-dd>.<ext>.`,
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats [comic]",
	Short: "Summarize archived strips per comic",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runArchiveStats,
}

var archiveYearsCmd = &cobra.Command{
	Use:   "years <comic>",
	Short: "List the years holding strips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		comic, err := a.comic(args[0])
		if err != nil {
			return err
		}
		years, err := a.archive.YearsWithContent(comic.ID, comic.Name)
		if err != nil {
			return err
		}
		return render(cmd, output.YearsView{Comic: comic, Years: years})
	},
}

var archiveAddCmd = &cobra.Command{
	Use:   "add <comic> <date> <image>",
	Short: "Archive one strip",
	Long: `Archive an image as the strip of a comic for a date.

The image is checked for duplicates first; a duplicate of a strip archived
under another date is reported and not written.`,
	Args: cobra.ExactArgs(3),
	RunE: runArchiveAdd,
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <comic>",
	Short: "Delete every strip of a comic",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDelete,
}

func init() {
	archiveDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	archiveCmd.AddCommand(archiveStatsCmd, archiveYearsCmd, archiveAddCmd, archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchiveStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	comics, err := a.comics(args)
	if err != nil {
		return err
	}

	view := output.ArchiveStatsView{Root: a.archive.Root()}
	for _, comic := range comics {
		dates, err := a.archive.Dates(comic.ID, comic.Name)
		if err != nil {
			return err
		}
		years, err := a.archive.YearsWithContent(comic.ID, comic.Name)
		if err != nil {
			return err
		}
		size, err := a.archive.StorageSize(cmd.Context(), comic.ID, comic.Name)
		if err != nil {
			return err
		}

		stats := output.ComicStats{Comic: comic.Name, Strips: len(dates), Years: years, Size: size}
		if len(dates) > 0 {
			oldest, newest := dates[0], dates[len(dates)-1]
			stats.Oldest, stats.Newest = &oldest, &newest
		}
		view.Comics = append(view.Comics, stats)
	}

	if len(args) == 0 {
		warnUnregistered(a)
	}
	return render(cmd, view)
}

// warnUnregistered notes comic directories no registered comic maps to.
func warnUnregistered(a *app) {
	dirs, err := a.archive.ComicDirectories()
	if err != nil {
		printVerbose("listing comic directories: %v", err)
		return
	}
	for _, dir := range dirs {
		if _, ok := a.registry.ByDirName(dir); !ok {
			printVerbose("directory %s matches no registered comic", dir)
		}
	}
}

func runArchiveAdd(cmd *cobra.Command, args []string) error {
	date, err := parseDate(args[1])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	comic, err := a.comic(args[0])
	if err != nil {
		return err
	}

	res, err := a.archive.SaveStrip(cmd.Context(), comic.ID, comic.Name, date, data)
	if err != nil {
		return err
	}
	if res.Duplicate != nil {
		return render(cmd, output.CheckView{Comic: comic, Date: date, Result: *res.Duplicate})
	}
	printInfo("Saved %s", res.Path)
	return nil
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	comic, err := a.comic(args[0])
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Fprintf(cmd.OutOrStdout(), "Delete every archived strip of %s from %s? [y/N] ",
			comic.Name, a.archive.ComicDirectory(comic.ID, comic.Name))
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			printInfo("Aborted.")
			return nil
		}
	}

	dates, err := a.archive.Dates(comic.ID, comic.Name)
	if err != nil {
		return err
	}
	size, err := a.archive.StorageSize(cmd.Context(), comic.ID, comic.Name)
	if err != nil {
		return err
	}

	if err := a.archive.DeleteComic(comic.ID, comic.Name); err != nil {
		return err
	}
	record(func(j *history.Journal) (*history.Entry, error) {
		return j.LogDelete(comic.Name, len(dates), size)
	})
	a.cache.InvalidateComic(types.ComicDirName(comic.ID, comic.Name))
	if err := a.hashes.DeleteComic(comic.ID); err != nil {
		return fmt.Errorf("strips deleted but hashes remain: %w", err)
	}
	printInfo("Deleted %s", comic.Name)
	return nil
}
