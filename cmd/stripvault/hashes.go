package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/output"
)

var hashesCmd = &cobra.Command{
	Use:   "hashes",
	Short: "Inspect and rebuild duplicate-detection hashes",
	Long: `Every archived strip is hashed into a per-(comic, year) cache that
duplicate detection consults before a new strip is written.

The algorithm is set by hashes.algorithm (md5, sha256, average_hash,
difference_hash). Caches built with another algorithm are rebuilt on first use.`,
}

var hashesRebuildCmd = &cobra.Command{
	Use:   "rebuild [comic]",
	Short: "Rehash archived strips",
	Long:  `Rehash every strip of a comic (or all comics) and replace the cached hashes.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHashesRebuild,
}

var hashesLookupCmd = &cobra.Command{
	Use:   "lookup <comic> <year>",
	Short: "List the cached hashes of a comic year",
	Args:  cobra.ExactArgs(2),
	RunE:  runHashesLookup,
}

var hashesCheckCmd = &cobra.Command{
	Use:   "check <comic> <date> <image>",
	Short: "Check whether an image duplicates an archived strip",
	Args:  cobra.ExactArgs(3),
	RunE:  runHashesCheck,
}

func init() {
	hashesRebuildCmd.Flags().Int("year", 0, "rebuild one year only")

	hashesCmd.AddCommand(hashesRebuildCmd, hashesLookupCmd, hashesCheckCmd)
	rootCmd.AddCommand(hashesCmd)
}

func runHashesRebuild(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	comics, err := a.comics(args)
	if err != nil {
		return err
	}
	onlyYear, _ := cmd.Flags().GetInt("year")

	view := output.RebuildView{Algorithm: a.cache.Algorithm()}
	for _, comic := range comics {
		years := []int{onlyYear}
		if onlyYear == 0 {
			if years, err = a.archive.YearsWithContent(comic.ID, comic.Name); err != nil {
				return err
			}
		}

		for _, year := range years {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			stats, err := a.cache.Rebuild(cmd.Context(), comic.ID, comic.Name, year)
			entry := output.Rebuild{Comic: comic.Name, Year: year, Stats: stats}
			if err != nil {
				entry.Error = err.Error()
				printError("rebuilding %s %d: %v", comic.Name, year, err)
			}
			view.Rebuilds = append(view.Rebuilds, entry)
		}
	}
	return render(cmd, view)
}

func runHashesLookup(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[1])
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

	records, err := a.cache.LoadHashesWithBackfill(cmd.Context(), comic.ID, comic.Name, year)
	if err != nil {
		return err
	}
	return render(cmd, output.NewHashesView(comic, year, records))
}

func runHashesCheck(cmd *cobra.Command, args []string) error {
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

	res, err := a.validator.ValidateNoDuplicate(cmd.Context(), comic.ID, comic.Name, date, data)
	if err != nil {
		return err
	}
	return render(cmd, output.CheckView{Comic: comic, Date: date, Result: res})
}
