package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the hash cache database",
	Long: `Commands for managing the duplicate-detection hash cache.

The cache holds one partition of hashes per comic and year. It is stored in
the XDG data directory (typically ~/.local/share/stripvault/hashes.db) and is
rebuilt from the archive whenever it is missing or stale.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached hashes",
	Long:  `Removes every cached hash. Each (comic, year) is rehashed on its next use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.Hashes.DBPath); os.IsNotExist(err) {
			printInfo("Cache is already empty.")
			return nil
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.hashes.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printInfo("Cache cleared.")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the records held per (comic, year) partition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		parts, err := a.hashes.Stats()
		if err != nil {
			return fmt.Errorf("failed to read cache: %w", err)
		}

		names := make(map[int]string, a.registry.Len())
		for _, c := range a.registry.All() {
			names[c.ID] = c.Name
		}
		return render(cmd, output.CacheStatsView{Path: cfg.Hashes.DBPath, Partitions: parts, Names: names})
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Hashes.DBPath)
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
