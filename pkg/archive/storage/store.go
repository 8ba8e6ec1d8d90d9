// Package storage keeps archived strips on the filesystem, one image per
// (comic, date), laid out as <root>/<comic dir>/<yyyy>/<yyyy-MM-dd>.<ext>.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	// Decoders for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/charlievieth/fastwalk"
	_ "golang.org/x/image/webp"

	"github.com/jamesainslie/stripvault/pkg/archive/dedup"
	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Default minimum dimensions of a strip accepted by SaveStrip.
const (
	DefaultMinWidth  = 100
	DefaultMinHeight = 50
)

// metadataDir is the per-directory metadata folder Synology DSM creates.
const metadataDir = "@eaDir"

var (
	// ErrStripNotFound is returned when no image is archived for a date.
	ErrStripNotFound = errors.New("strip not found")

	// ErrInvalidImage is returned when bytes do not decode as a supported image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrImageTooSmall is returned when an image is below the minimum dimensions.
	ErrImageTooSmall = errors.New("image below minimum dimensions")
)

// DuplicateChecker decides whether candidate bytes repeat an archived strip.
type DuplicateChecker interface {
	ValidateNoDuplicate(ctx context.Context, comicID int, comicName string, date time.Time, data []byte) (dedup.Result, error)
}

// HashRecorder records a newly archived image in the hash cache.
type HashRecorder interface {
	AddImageToCache(ctx context.Context, comicID int, comicName string, date time.Time, data []byte, filePath string) error
}

// HashRebuilder rescans the hash cache of a (comic, year). A HashRecorder
// that also implements it is rebuilt when a save replaces an archived file.
type HashRebuilder interface {
	Rebuild(ctx context.Context, comicID int, comicName string, year int) (dedup.RebuildStats, error)
}

type yearKey struct {
	dir  string
	year int
}

// Options configures a Store.
type Options struct {
	// Root is the archive root directory. It is created if missing.
	Root string

	// MinWidth and MinHeight bound accepted images. Zero uses the defaults,
	// a negative value disables the check.
	MinWidth  int
	MinHeight int

	// Duplicates is consulted before every save. Nil skips the check.
	Duplicates DuplicateChecker

	// Hashes receives every saved image. Nil skips recording.
	Hashes HashRecorder
}

// Store is the filesystem archive.
type Store struct {
	root      string
	minWidth  int
	minHeight int
	dups      DuplicateChecker
	hashes    HashRecorder
	log       *logging.Logger

	mu         sync.RWMutex
	indexes    map[string]*dateIndex
	generation uint64

	saveMu    sync.Mutex
	saveLocks map[yearKey]*sync.Mutex
}

// New opens the archive rooted at opts.Root.
func New(opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, errors.New("archive root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive root: %w", err)
	}

	s := &Store{
		root:      root,
		minWidth:  opts.MinWidth,
		minHeight: opts.MinHeight,
		dups:      opts.Duplicates,
		hashes:    opts.Hashes,
		log:       logging.Get("storage"),
		indexes:   make(map[string]*dateIndex),
		saveLocks: make(map[yearKey]*sync.Mutex),
	}
	if s.minWidth == 0 {
		s.minWidth = DefaultMinWidth
	}
	if s.minHeight == 0 {
		s.minHeight = DefaultMinHeight
	}
	return s, nil
}

// Root returns the absolute archive root.
func (s *Store) Root() string {
	return s.root
}

// ComicDirectory returns the directory holding all strips of a comic.
func (s *Store) ComicDirectory(comicID int, comicName string) string {
	return filepath.Join(s.root, types.ComicDirName(comicID, comicName))
}

// YearDirectory returns the directory holding a comic's strips for year.
func (s *Store) YearDirectory(comicID int, comicName string, year int) string {
	return filepath.Join(s.ComicDirectory(comicID, comicName), strconv.Itoa(year))
}

// SaveResult describes what SaveStrip did.
type SaveResult struct {
	// Saved is false when the image was a duplicate and nothing was written.
	Saved bool   `json:"saved"`
	Path  string `json:"path,omitempty"`

	// Duplicate is set when the image repeats one archived under another date.
	Duplicate *dedup.Result `json:"duplicate,omitempty"`
}

// lockYear serializes saves into one (comic, year), from the duplicate
// check through the hash record.
func (s *Store) lockYear(comicID int, comicName string, year int) func() {
	key := yearKey{dir: types.ComicDirName(comicID, comicName), year: year}

	s.saveMu.Lock()
	mu, ok := s.saveLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.saveLocks[key] = mu
	}
	s.saveMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// SaveStrip archives data as the strip of a comic for date. A duplicate of
// an image archived under another date is reported, not written, and is
// not an error. Saves into the same (comic, year) are serialized.
func (s *Store) SaveStrip(ctx context.Context, comicID int, comicName string, date time.Time, data []byte) (SaveResult, error) {
	date = types.Day(date)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if (s.minWidth > 0 && cfg.Width < s.minWidth) || (s.minHeight > 0 && cfg.Height < s.minHeight) {
		return SaveResult{}, fmt.Errorf("%w: %dx%d, need %dx%d", ErrImageTooSmall, cfg.Width, cfg.Height, s.minWidth, s.minHeight)
	}

	unlock := s.lockYear(comicID, comicName, date.Year())
	defer unlock()

	if s.dups != nil {
		res, err := s.dups.ValidateNoDuplicate(ctx, comicID, comicName, date, data)
		if err != nil {
			return SaveResult{}, fmt.Errorf("checking duplicates: %w", err)
		}
		if res.IsDuplicate {
			s.log.Warn("skipping duplicate strip",
				"comic", comicName,
				"date", types.FormatDate(date),
				"matches", res.DuplicateFilePath)
			return SaveResult{Duplicate: &res}, nil
		}
	}

	dir := s.YearDirectory(comicID, comicName, date.Year())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SaveResult{}, fmt.Errorf("creating year directory: %w", err)
	}

	_, replaced, err := s.stripPath(comicID, comicName, date)
	if err != nil {
		return SaveResult{}, err
	}

	path := filepath.Join(dir, types.FormatDate(date)+extensionFor(format))
	if err := writeAtomic(dir, path, data); err != nil {
		return SaveResult{}, err
	}

	// A strip saved in a new format replaces the old file for the date.
	for _, ext := range types.ImageExtensions {
		other := filepath.Join(dir, types.FormatDate(date)+ext)
		if other != path {
			if err := os.Remove(other); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn("could not remove replaced strip", "path", other, "error", err)
			}
		}
	}

	s.Invalidate(types.ComicDirName(comicID, comicName))
	s.recordHash(ctx, comicID, comicName, date, data, path, replaced)

	s.log.Debug("saved strip", "comic", comicName, "date", types.FormatDate(date), "path", path)
	return SaveResult{Saved: true, Path: path}, nil
}

// recordHash adds the saved image to the hash cache. When the save replaced
// an archived file the year is rescanned instead, dropping the old record.
func (s *Store) recordHash(ctx context.Context, comicID int, comicName string, date time.Time, data []byte, path string, replaced bool) {
	if s.hashes == nil {
		return
	}

	if rb, ok := s.hashes.(HashRebuilder); ok && replaced {
		if _, err := rb.Rebuild(ctx, comicID, comicName, date.Year()); err != nil {
			s.log.Warn("replaced strip but could not rebuild its year's hashes",
				"comic", comicName, "year", date.Year(), "error", err)
		}
		return
	}

	if err := s.hashes.AddImageToCache(ctx, comicID, comicName, date, data, path); err != nil {
		s.log.Warn("saved strip but could not record its hash", "path", path, "error", err)
	}
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "gif":
		return ".gif"
	case "webp":
		return ".webp"
	default:
		return ".png"
	}
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".stripvault-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing strip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing strip: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming strip into place: %w", err)
	}
	return nil
}

// stripPath finds the archived file for date, whatever its extension.
func (s *Store) stripPath(comicID int, comicName string, date time.Time) (string, bool, error) {
	dir := s.YearDirectory(comicID, comicName, date.Year())
	base := types.FormatDate(date)

	for _, ext := range types.ImageExtensions {
		path := filepath.Join(dir, base+ext)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking %s: %w", path, err)
		}
		if info.Mode().IsRegular() {
			return path, true, nil
		}
	}
	return "", false, nil
}

// StripExists reports whether a strip is archived for date.
func (s *Store) StripExists(comicID int, comicName string, date time.Time) (bool, error) {
	_, ok, err := s.stripPath(comicID, comicName, date)
	return ok, err
}

// GetStrip reads the strip archived for date.
func (s *Store) GetStrip(_ context.Context, comicID int, comicName string, date time.Time) (*types.Image, error) {
	date = types.Day(date)
	path, ok, err := s.stripPath(comicID, comicName, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrStripNotFound, comicName, types.FormatDate(date))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strip: %w", err)
	}

	img := &types.Image{
		ComicID: comicID,
		Date:    date,
		Path:    path,
		Size:    int64(len(data)),
		Data:    data,
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Format = format
		img.Width = cfg.Width
		img.Height = cfg.Height
	}
	return img, nil
}

// YearsWithContent lists, in ascending order, the years holding at least one strip.
func (s *Store) YearsWithContent(comicID int, comicName string) ([]int, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return nil, err
	}
	return idx.years(), nil
}

// StorageSize sums the bytes of every file under the comic's directory.
func (s *Store) StorageSize(ctx context.Context, comicID int, comicName string) (int64, error) {
	dir := s.ComicDirectory(comicID, comicName)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil //nolint:nilerr // unreadable entries don't count
		}
		if d.IsDir() {
			if d.Name() == metadataDir {
				return fastwalk.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total.Add(info.Size())
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", dir, err)
	}
	return total.Load(), nil
}

// DeleteComic removes every archived strip of a comic.
func (s *Store) DeleteComic(comicID int, comicName string) error {
	if err := os.RemoveAll(s.ComicDirectory(comicID, comicName)); err != nil {
		return fmt.Errorf("deleting comic %d: %w", comicID, err)
	}
	s.Invalidate(types.ComicDirName(comicID, comicName))
	return nil
}

// ComicDirectories lists the comic directories present under the root.
func (s *Store) ComicDirectories() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading archive root: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != metadataDir && e.Name()[0] != '.' {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}
