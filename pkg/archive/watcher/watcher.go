// Package watcher keeps archive indexes honest when files change behind the
// archive's back, such as a sync tool dropping strips into a year directory.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
)

const metadataDir = "@eaDir"

// DefaultSettle is how long the archive must be quiet before changed
// partitions are refreshed.
const DefaultSettle = 2 * time.Second

// IndexInvalidator drops a comic's cached date index.
type IndexInvalidator interface {
	Invalidate(comicDir string)
}

// Partition names one year of a comic directory. Year is zero when the
// comic directory as a whole changed.
type Partition struct {
	ComicDir string
	Year     int
}

// HashRefresher brings the hash caches of changed partitions up to date.
// When it fails, every partition is retried after the next settle period.
type HashRefresher interface {
	Refresh(ctx context.Context, parts []Partition) error
}

// Change describes the archive partition touched by one event. Year is zero
// when the event hit the comic directory itself.
type Change struct {
	ComicDir string
	Year     int
	Path     string
	Op       fsnotify.Op
}

// Partition returns the partition the change touched.
func (c Change) Partition() Partition {
	return Partition{ComicDir: c.ComicDir, Year: c.Year}
}

// Watcher watches an archive root, invalidates indexes on change, and
// refreshes the hash caches of changed partitions once the archive settles.
type Watcher struct {
	root    string
	index   IndexInvalidator
	hashes  HashRefresher
	settle  time.Duration
	watcher *fsnotify.Watcher
	paths   map[string]bool
	mu      sync.RWMutex
	closed  bool
}

// New creates a Watcher over the archive at root. Either index or hashes may be nil.
func New(root string, index IndexInvalidator, hashes HashRefresher) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:    absRoot,
		index:   index,
		hashes:  hashes,
		settle:  DefaultSettle,
		watcher: fsw,
		paths:   make(map[string]bool),
	}, nil
}

// Start adds watches on the archive root and every comic and year directory.
// Symlinks and metadata directories are skipped.
func (w *Watcher) Start() error {
	if _, err := os.Stat(w.root); err != nil {
		return err
	}
	return w.watchTree(w.root)
}

func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if d.Name() == metadataDir {
			return filepath.SkipDir
		}
		// Strips live two levels below the root.
		if depth(w.root, path) > 2 {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watching reports the number of watched directories.
func (w *Watcher) Watching() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

// Run processes events until ctx is cancelled. onChange, if set, is called
// after each change has been applied. Partitions still pending when ctx is
// cancelled are refreshed before Run returns.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) {
	log := logging.Get("watcher")
	pending := make(map[Partition]bool)

	settled := time.NewTimer(w.settle)
	settled.Stop()
	defer settled.Stop()

	for {
		select {
		case <-ctx.Done():
			w.refresh(context.WithoutCancel(ctx), pending)
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.refresh(ctx, pending)
				return
			}
			change, ok := w.classify(event)
			if !ok {
				continue
			}
			w.apply(change)
			log.Debug("archive changed", "comic", change.ComicDir, "year", change.Year, "op", change.Op.String())
			if w.hashes != nil {
				pending[change.Partition()] = true
				settled.Reset(w.settle)
			}
			if onChange != nil {
				onChange(change)
			}

		case <-settled.C:
			if !w.refresh(ctx, pending) {
				settled.Reset(w.settle)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.refresh(ctx, pending)
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}

// refresh hands the pending partitions to the refresher and clears them on
// success. It reports whether nothing is left pending.
func (w *Watcher) refresh(ctx context.Context, pending map[Partition]bool) bool {
	if w.hashes == nil || len(pending) == 0 {
		return true
	}

	parts := make([]Partition, 0, len(pending))
	for p := range pending {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].ComicDir != parts[j].ComicDir {
			return parts[i].ComicDir < parts[j].ComicDir
		}
		return parts[i].Year < parts[j].Year
	})

	if err := w.hashes.Refresh(ctx, parts); err != nil {
		logging.Get("watcher").Warn("refreshing hash caches failed, will retry", "partitions", len(parts), "error", err)
		return false
	}
	clear(pending)
	return true
}

// classify maps an event to the comic and year it touches.
func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts {
		if p == metadataDir || strings.HasPrefix(p, ".stripvault-") {
			return Change{}, false
		}
	}

	change := Change{ComicDir: parts[0], Path: event.Name, Op: event.Op}
	if len(parts) > 1 {
		year, err := strconv.Atoi(parts[1])
		if err != nil || len(parts[1]) != 4 {
			return Change{}, false
		}
		change.Year = year
	}
	return change, true
}

func (w *Watcher) apply(c Change) {
	switch {
	case c.Op.Has(fsnotify.Create):
		if info, err := os.Lstat(c.Path); err == nil && info.IsDir() && info.Mode()&fs.ModeSymlink == 0 {
			_ = w.watchTree(c.Path)
		}
	case c.Op.Has(fsnotify.Remove), c.Op.Has(fsnotify.Rename):
		w.forget(c.Path)
	}

	if w.index != nil {
		w.index.Invalidate(c.ComicDir)
	}
}

// forget drops watches on a removed directory and its children.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
