// Package dedup keeps the per-(comic, year) hash caches in step with the
// archive and decides whether incoming images duplicate archived ones.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/hasher"
	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// HashStore persists hash records per (comic, year).
type HashStore interface {
	LoadHashes(comicID int, comicName string, year int) (map[string]types.HashRecord, error)
	ReplaceHashes(comicID int, comicName string, year int, hashes map[string]types.HashRecord) error
	AddHash(comicID int, comicName string, year int, rec types.HashRecord) error
	FindByHash(comicID int, comicName string, year int, hash string) (types.HashRecord, bool, error)
	YearDirectory(comicID int, comicName string, year int) string
}

type cacheKey struct {
	dir  string
	year int
}

// RebuildStats summarizes one rescan of a year directory.
type RebuildStats struct {
	Reason   string        `json:"reason"`
	Files    int           `json:"files"`
	Hashed   int           `json:"hashed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// CacheService loads, rebuilds, and extends hash caches.
// Operations on the same (comic, year) are serialized.
type CacheService struct {
	store  HashStore
	hasher hasher.Hasher
	log    *logging.Logger

	locksMu sync.Mutex
	locks   map[cacheKey]*sync.Mutex

	readyMu sync.Mutex
	ready   map[cacheKey]types.HashAlgorithm
}

// NewCacheService returns a service over store that hashes with h.
func NewCacheService(store HashStore, h hasher.Hasher) *CacheService {
	return &CacheService{
		store:  store,
		hasher: h,
		log:    logging.Get("dedup"),
		locks:  make(map[cacheKey]*sync.Mutex),
		ready:  make(map[cacheKey]types.HashAlgorithm),
	}
}

// Algorithm returns the algorithm new records are tagged with.
func (s *CacheService) Algorithm() types.HashAlgorithm {
	return s.hasher.Algorithm()
}

func keyFor(comicID int, comicName string, year int) cacheKey {
	return cacheKey{dir: types.ComicDirName(comicID, comicName), year: year}
}

func (s *CacheService) lock(key cacheKey) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// LoadHashesWithBackfill returns the (comic, year) cache, rebuilding it from
// the year directory first when it is empty or was built with another
// algorithm.
func (s *CacheService) LoadHashesWithBackfill(ctx context.Context, comicID int, comicName string, year int) (map[string]types.HashRecord, error) {
	key := keyFor(comicID, comicName, year)
	unlock := s.lock(key)
	defer unlock()

	return s.load(ctx, key, comicID, comicName, year)
}

// Rebuild rescans the year directory unconditionally and replaces the cache.
func (s *CacheService) Rebuild(ctx context.Context, comicID int, comicName string, year int) (RebuildStats, error) {
	key := keyFor(comicID, comicName, year)
	unlock := s.lock(key)
	defer unlock()

	records, stats, err := s.rescan(ctx, comicID, comicName, year)
	if err != nil {
		return stats, err
	}
	stats.Reason = "requested"

	if err := s.store.ReplaceHashes(comicID, comicName, year, records); err != nil {
		return stats, err
	}
	s.markReady(key)
	return stats, nil
}

// load must be called with the key's lock held.
func (s *CacheService) load(ctx context.Context, key cacheKey, comicID int, comicName string, year int) (map[string]types.HashRecord, error) {
	hashes, err := s.store.LoadHashes(comicID, comicName, year)
	if err != nil {
		return nil, err
	}

	current := s.hasher.Algorithm()
	var reason string
	if len(hashes) == 0 {
		reason = "empty cache"
	} else if alg := sampleAlgorithm(hashes); alg != types.AlgorithmUnknown && alg != current {
		reason = fmt.Sprintf("algorithm changed from %s to %s", alg, current)
	}

	if reason == "" {
		s.markReady(key)
		return hashes, nil
	}

	records, stats, err := s.rescan(ctx, comicID, comicName, year)
	if err != nil {
		return nil, err
	}
	stats.Reason = reason

	if len(records) == 0 && len(hashes) == 0 {
		s.log.Debug("no images to backfill", "comic", comicName, "year", year, "skipped", stats.Skipped)
		s.markReady(key)
		return hashes, nil
	}

	if err := s.store.ReplaceHashes(comicID, comicName, year, records); err != nil {
		return nil, err
	}
	s.log.Info("rebuilt hash cache",
		"comic", comicName,
		"year", year,
		"reason", reason,
		"hashed", stats.Hashed,
		"skipped", stats.Skipped,
		"duration", stats.Duration)

	s.markReady(key)
	return records, nil
}

// sampleAlgorithm returns the algorithm of one tagged record, or
// AlgorithmUnknown when every record is legacy. The record with the
// smallest hash is used so the choice is stable.
func sampleAlgorithm(hashes map[string]types.HashRecord) types.HashAlgorithm {
	keys := make([]string, 0, len(hashes))
	for k := range hashes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if alg := hashes[k].Algorithm; alg != types.AlgorithmUnknown {
			return alg
		}
	}
	return types.AlgorithmUnknown
}

// rescan hashes every dated image in the year directory.
func (s *CacheService) rescan(ctx context.Context, comicID int, comicName string, year int) (map[string]types.HashRecord, RebuildStats, error) {
	start := time.Now()
	dir := s.store.YearDirectory(comicID, comicName, year)
	records := make(map[string]types.HashRecord)
	var stats RebuildStats

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		stats.Duration = time.Since(start)
		return records, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	alg := s.hasher.Algorithm()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		if !types.IsImageExt(ext) {
			continue
		}
		stats.Files++

		date, err := types.ParseDate(strings.TrimSuffix(name, ext))
		if err != nil {
			s.log.Debug("skipping undated image", "path", filepath.Join(dir, name))
			stats.Skipped++
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("skipping unreadable image", "path", path, "error", err)
			stats.Skipped++
			continue
		}

		hash, ok := s.hasher.Calculate(data)
		if !ok {
			stats.Skipped++
			continue
		}

		// Entries arrive in name order, so the earliest date of a repeated
		// image is the one kept.
		if _, seen := records[hash]; seen {
			s.log.Debug("image repeats an earlier date", "path", path, "hash", hash)
			stats.Hashed++
			continue
		}
		records[hash] = types.HashRecord{
			Hash:      hash,
			Date:      date,
			FilePath:  path,
			Algorithm: alg,
		}
		stats.Hashed++
	}

	stats.Duration = time.Since(start)
	return records, stats, nil
}

func (s *CacheService) markReady(key cacheKey) {
	s.readyMu.Lock()
	s.ready[key] = s.hasher.Algorithm()
	s.readyMu.Unlock()
}

func (s *CacheService) isReady(key cacheKey) bool {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	alg, ok := s.ready[key]
	return ok && alg == s.hasher.Algorithm()
}

// FindByHash returns the record for hash in the (comic, year) cache,
// loading or rebuilding the cache first if this process has not yet done so.
func (s *CacheService) FindByHash(ctx context.Context, comicID int, comicName string, year int, hash string) (types.HashRecord, bool, error) {
	key := keyFor(comicID, comicName, year)
	unlock := s.lock(key)
	defer unlock()

	if !s.isReady(key) {
		if _, err := s.load(ctx, key, comicID, comicName, year); err != nil {
			return types.HashRecord{}, false, err
		}
	}

	return s.store.FindByHash(comicID, comicName, year, hash)
}

// AddHash stores rec in the (comic, year) cache.
func (s *CacheService) AddHash(_ context.Context, comicID int, comicName string, year int, rec types.HashRecord) error {
	key := keyFor(comicID, comicName, year)
	unlock := s.lock(key)
	defer unlock()

	return s.store.AddHash(comicID, comicName, year, rec)
}

// AddImageToCache hashes a newly archived image and records it under the
// year of date. Images that cannot be hashed are left out.
func (s *CacheService) AddImageToCache(ctx context.Context, comicID int, comicName string, date time.Time, data []byte, filePath string) error {
	hash, ok := s.hasher.Calculate(data)
	if !ok {
		return nil
	}

	return s.AddHash(ctx, comicID, comicName, date.Year(), types.HashRecord{
		Hash:      hash,
		Date:      types.Day(date),
		FilePath:  filePath,
		Algorithm: s.hasher.Algorithm(),
	})
}

// InvalidateComic forgets which years of a comic directory this process has
// loaded, so the next lookup reads them from the store again. It does not
// rescan the archive; use Rebuild for a year whose files changed.
func (s *CacheService) InvalidateComic(comicDir string) {
	s.readyMu.Lock()
	for key := range s.ready {
		if key.dir == comicDir {
			delete(s.ready, key)
		}
	}
	s.readyMu.Unlock()
}
