package hashstore

import (
	"sync"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

type partition struct {
	comicID int
	year    int
}

// Memory is an in-process hash cache. Each partition map is immutable once
// published; writers build a copy and swap it in.
type Memory struct {
	mu    sync.RWMutex
	root  string
	parts map[partition]map[string]types.HashRecord
}

// NewMemory returns an empty in-process store rooted at archiveRoot.
func NewMemory(archiveRoot string) *Memory {
	return &Memory{
		root:  archiveRoot,
		parts: make(map[partition]map[string]types.HashRecord),
	}
}

// LoadHashes returns a copy of the (comic, year) partition.
func (m *Memory) LoadHashes(comicID int, _ string, year int) (map[string]types.HashRecord, error) {
	m.mu.RLock()
	current := m.parts[partition{comicID, year}]
	m.mu.RUnlock()

	out := make(map[string]types.HashRecord, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out, nil
}

// ReplaceHashes publishes a copy of hashes as the partition.
func (m *Memory) ReplaceHashes(comicID int, _ string, year int, hashes map[string]types.HashRecord) error {
	next := make(map[string]types.HashRecord, len(hashes))
	for k, v := range hashes {
		next[k] = v
	}

	m.mu.Lock()
	m.parts[partition{comicID, year}] = next
	m.mu.Unlock()
	return nil
}

// AddHash publishes a copy of the partition with rec added.
func (m *Memory) AddHash(comicID int, _ string, year int, rec types.HashRecord) error {
	key := partition{comicID, year}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.parts[key]
	next := make(map[string]types.HashRecord, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[rec.Hash] = rec
	m.parts[key] = next
	return nil
}

// FindByHash looks up one record by hash.
func (m *Memory) FindByHash(comicID int, _ string, year int, hash string) (types.HashRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.parts[partition{comicID, year}][hash]
	return rec, ok, nil
}

// YearDirectory returns the archive directory holding a comic's images for year.
func (m *Memory) YearDirectory(comicID int, comicName string, year int) string {
	return yearDirectory(m.root, comicID, comicName, year)
}
