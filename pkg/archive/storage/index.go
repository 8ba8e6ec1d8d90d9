package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// dateIndex is the sorted list of archived dates of one comic.
// It is never modified after it is built.
type dateIndex struct {
	dates []time.Time
}

func buildIndex(comicDir string) (*dateIndex, error) {
	yearDirs, err := os.ReadDir(comicDir)
	if errors.Is(err, fs.ErrNotExist) {
		return &dateIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", comicDir, err)
	}

	seen := make(map[time.Time]bool)
	var dates []time.Time

	for _, yd := range yearDirs {
		if !yd.IsDir() || yd.Name() == metadataDir {
			continue
		}
		if _, err := strconv.Atoi(yd.Name()); err != nil {
			continue
		}

		files, err := os.ReadDir(filepath.Join(comicDir, yd.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Join(comicDir, yd.Name()), err)
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			ext := filepath.Ext(f.Name())
			if !types.IsImageExt(ext) {
				continue
			}
			date, err := types.ParseDate(strings.TrimSuffix(f.Name(), ext))
			if err != nil || seen[date] {
				continue
			}
			seen[date] = true
			dates = append(dates, date)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return &dateIndex{dates: dates}, nil
}

func (idx *dateIndex) oldest() (time.Time, bool) {
	if len(idx.dates) == 0 {
		return time.Time{}, false
	}
	return idx.dates[0], true
}

func (idx *dateIndex) newest() (time.Time, bool) {
	if len(idx.dates) == 0 {
		return time.Time{}, false
	}
	return idx.dates[len(idx.dates)-1], true
}

// after returns the smallest date strictly after from.
func (idx *dateIndex) after(from time.Time) (time.Time, bool) {
	i := sort.Search(len(idx.dates), func(i int) bool { return idx.dates[i].After(from) })
	if i == len(idx.dates) {
		return time.Time{}, false
	}
	return idx.dates[i], true
}

// before returns the largest date strictly before from.
func (idx *dateIndex) before(from time.Time) (time.Time, bool) {
	i := sort.Search(len(idx.dates), func(i int) bool { return !idx.dates[i].Before(from) })
	if i == 0 {
		return time.Time{}, false
	}
	return idx.dates[i-1], true
}

func (idx *dateIndex) years() []int {
	var years []int
	for _, d := range idx.dates {
		if n := len(years); n == 0 || years[n-1] != d.Year() {
			years = append(years, d.Year())
		}
	}
	return years
}

// index returns the comic's date index, building it if it was invalidated.
func (s *Store) index(comicID int, comicName string) (*dateIndex, error) {
	dir := types.ComicDirName(comicID, comicName)

	s.mu.RLock()
	idx, ok := s.indexes[dir]
	gen := s.generation
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	idx, err := buildIndex(filepath.Join(s.root, dir))
	if err != nil {
		return nil, err
	}

	// An index built across an invalidation may already be stale.
	s.mu.Lock()
	if s.generation == gen {
		s.indexes[dir] = idx
	}
	s.mu.Unlock()
	return idx, nil
}

// Invalidate drops the cached date index of a comic directory.
func (s *Store) Invalidate(comicDir string) {
	s.mu.Lock()
	delete(s.indexes, comicDir)
	s.generation++
	s.mu.Unlock()
}

// Dates returns every archived date of a comic in ascending order.
func (s *Store) Dates(comicID int, comicName string) ([]time.Time, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return nil, err
	}
	return append([]time.Time(nil), idx.dates...), nil
}

// OldestDate returns the earliest archived date of a comic.
func (s *Store) OldestDate(comicID int, comicName string) (time.Time, bool, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := idx.oldest()
	return d, ok, nil
}

// NewestDate returns the latest archived date of a comic.
func (s *Store) NewestDate(comicID int, comicName string) (time.Time, bool, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := idx.newest()
	return d, ok, nil
}

// NextDate returns the first archived date strictly after from.
func (s *Store) NextDate(comicID int, comicName string, from time.Time) (time.Time, bool, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := idx.after(types.Day(from))
	return d, ok, nil
}

// PreviousDate returns the last archived date strictly before from.
func (s *Store) PreviousDate(comicID int, comicName string, from time.Time) (time.Time, bool, error) {
	idx, err := s.index(comicID, comicName)
	if err != nil {
		return time.Time{}, false, err
	}
	d, ok := idx.before(types.Day(from))
	return d, ok, nil
}
