package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/config"
	"github.com/jamesainslie/stripvault/pkg/archive/registry"
	"github.com/jamesainslie/stripvault/pkg/archive/storage"
	"github.com/jamesainslie/stripvault/pkg/archive/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the archive and rehash changed years",
	Long: `Watch the archive root for strips added, removed or renamed outside
stripvault and log each change until interrupted.

Once the archive has been quiet for a moment, every changed comic year is
rehashed so duplicate detection sees strips dropped in by other tools. The
hash database is opened only while rehashing, so other commands keep working
while watch runs. Only one watch runs per data directory.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return err
	}
	release, err := watcher.AcquirePIDFile(filepath.Join(config.DataDir(), "watch.pid"))
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	refresher := hashRefresher{registry: a.registry, archive: a.archive}
	w, err := watcher.New(a.archive.Root(), a.archive, refresher)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(); err != nil {
		return err
	}
	printInfo("Watching %s (%d directories)", a.archive.Root(), w.Watching())

	w.Run(ctx, func(c watcher.Change) {
		name := c.ComicDir
		if comic, ok := a.registry.ByDirName(c.ComicDir); ok {
			name = comic.Name
		}
		if c.Year == 0 {
			printInfo("%s  %s changed", c.Op, name)
			return
		}
		printInfo("%s  %s %d  %s", c.Op, name, c.Year, filepath.Base(c.Path))
	})
	printVerbose("watch stopped")
	return nil
}

// hashRefresher rehashes changed partitions, holding the hash database
// open only for the duration of one refresh.
type hashRefresher struct {
	registry *registry.Registry
	archive  *storage.Store
}

func (r hashRefresher) Refresh(ctx context.Context, parts []watcher.Partition) error {
	store, cache, _, err := openHashes()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, p := range parts {
		comic, ok := r.registry.ByDirName(p.ComicDir)
		if !ok {
			printVerbose("directory %s matches no registered comic", p.ComicDir)
			continue
		}

		years := []int{p.Year}
		if p.Year == 0 {
			_, err := os.Stat(r.archive.ComicDirectory(comic.ID, comic.Name))
			if errors.Is(err, fs.ErrNotExist) {
				if err := store.DeleteComic(comic.ID); err != nil {
					return err
				}
				printInfo("Dropped hashes of %s", comic.Name)
				continue
			}
			if years, err = r.archive.YearsWithContent(comic.ID, comic.Name); err != nil {
				return err
			}
		}

		for _, year := range years {
			stats, err := cache.Rebuild(ctx, comic.ID, comic.Name, year)
			if err != nil {
				return err
			}
			printInfo("Rehashed %s %d (%d strips)", comic.Name, year, stats.Hashed)
		}
	}
	return nil
}
