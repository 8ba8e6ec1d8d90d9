// Package hashstore persists per-(comic, year) hash caches.
//
// Store keeps records in badger so a cache survives restarts. Memory keeps
// them in process and is what tests and dry runs use.
package hashstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// ErrNotFound is returned when a hash has no record.
var ErrNotFound = errors.New("hash record not found")

// Options configures a badger-backed Store.
type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// ArchiveRoot is the root of the image archive, used by YearDirectory.
	ArchiveRoot string

	// InMemory keeps the database in RAM only.
	InMemory bool
}

// Store is a hash cache backed by badger.
type Store struct {
	db   *badger.DB
	root string
}

// Open opens or creates a store.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening hash store: %w", err)
	}

	s := &Store{db: db, root: opts.ArchiveRoot}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadHashes returns every record of a (comic, year), keyed by hash.
// A missing cache yields an empty map.
func (s *Store) LoadHashes(comicID int, _ string, year int) (map[string]types.HashRecord, error) {
	prefix := MakeKeyPrefix(comicID, year)
	hashes := make(map[string]types.HashRecord)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return fmt.Errorf("decoding %q: %w", item.Key(), err)
				}
				hashes[rec.Hash] = rec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading hashes for comic %d year %d: %w", comicID, year, err)
	}
	return hashes, nil
}

// ReplaceHashes swaps the whole (comic, year) cache for hashes in one
// transaction. Readers see either the old map or the new one.
func (s *Store) ReplaceHashes(comicID int, _ string, year int, hashes map[string]types.HashRecord) error {
	prefix := MakeKeyPrefix(comicID, year)

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for hash, rec := range hashes {
			value, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(MakeKey(comicID, year, hash), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing hashes for comic %d year %d: %w", comicID, year, err)
	}
	return nil
}

// AddHash inserts or overwrites one record.
func (s *Store) AddHash(comicID int, _ string, year int, rec types.HashRecord) error {
	value, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(comicID, year, rec.Hash), value)
	})
	if err != nil {
		return fmt.Errorf("adding hash for comic %d year %d: %w", comicID, year, err)
	}
	return nil
}

// FindByHash looks up one record by hash.
func (s *Store) FindByHash(comicID int, _ string, year int, hash string) (types.HashRecord, bool, error) {
	rec, err := s.get(MakeKey(comicID, year, hash))
	if errors.Is(err, ErrNotFound) {
		return types.HashRecord{}, false, nil
	}
	if err != nil {
		return types.HashRecord{}, false, fmt.Errorf("finding hash for comic %d year %d: %w", comicID, year, err)
	}
	return rec, true, nil
}

func (s *Store) get(key []byte) (types.HashRecord, error) {
	var rec types.HashRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		})
	})

	return rec, err
}

// YearDirectory returns the archive directory holding a comic's images for year.
func (s *Store) YearDirectory(comicID int, comicName string, year int) string {
	return yearDirectory(s.root, comicID, comicName, year)
}

// DeleteComic removes every record of a comic.
func (s *Store) DeleteComic(comicID int) error {
	prefix := MakeComicPrefix(comicID)

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear removes every record, keeping the schema marker.
func (s *Store) Clear() error {
	if err := s.db.DropPrefix([]byte(hashPrefix)); err != nil {
		return fmt.Errorf("clearing hash store: %w", err)
	}
	return nil
}

// PartitionStats counts records in one (comic, year) partition.
type PartitionStats struct {
	ComicID int `json:"comic_id"`
	Year    int `json:"year"`
	Records int `json:"records"`

	// Legacy counts records that carry no algorithm tag.
	Legacy int `json:"legacy"`
}

// Stats walks the store and counts records per partition in key order.
func (s *Store) Stats() ([]PartitionStats, error) {
	var stats []PartitionStats

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(hashPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			comicID, year, _, err := ParseKey(item.Key())
			if err != nil {
				continue
			}

			if n := len(stats); n == 0 || stats[n-1].ComicID != comicID || stats[n-1].Year != year {
				stats = append(stats, PartitionStats{ComicID: comicID, Year: year})
			}
			cur := &stats[len(stats)-1]
			cur.Records++

			err = item.Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err == nil && rec.Algorithm == types.AlgorithmUnknown {
					cur.Legacy++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return stats, err
}

func yearDirectory(root string, comicID int, comicName string, year int) string {
	return filepath.Join(root, types.ComicDirName(comicID, comicName), strconv.Itoa(year))
}
