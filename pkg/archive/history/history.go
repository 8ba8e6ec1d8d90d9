// Package history keeps a journal of operations that changed the archive:
// backfill imports and comic deletions. Each entry is one JSON file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
)

// Operation names the kind of change an entry records.
type Operation string

const (
	OpImport Operation = "import"
	OpDelete Operation = "delete"
)

// ErrNotFound is returned by Get for an unknown entry ID.
var ErrNotFound = errors.New("history entry not found")

// Entry is one journaled operation.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`

	// Comic is set for deletions.
	Comic string `json:"comic,omitempty"`

	// Run is set for imports.
	Run *backfill.RunReport `json:"run,omitempty"`

	Summary Summary `json:"summary"`
}

// Summary holds the counts shown in listings.
type Summary struct {
	Saved      int   `json:"saved,omitempty"`
	Duplicates int   `json:"duplicates,omitempty"`
	Failed     int   `json:"failed,omitempty"`
	Deferred   int   `json:"deferred,omitempty"`
	Strips     int   `json:"strips,omitempty"`
	Bytes      int64 `json:"bytes,omitempty"`
}

// Journal reads and writes entries under one directory.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New returns a Journal over dir. The directory is created on first write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// LogRun records a backfill run.
func (j *Journal) LogRun(report *backfill.RunReport) (*Entry, error) {
	return j.log(&Entry{
		Operation: OpImport,
		Run:       report,
		Summary: Summary{
			Saved:      report.Saved,
			Duplicates: report.Duplicates,
			Failed:     report.Failed,
			Deferred:   report.Deferred,
		},
	})
}

// LogDelete records the deletion of a comic's strips.
func (j *Journal) LogDelete(comic string, strips int, bytes int64) (*Entry, error) {
	return j.log(&Entry{
		Operation: OpDelete,
		Comic:     comic,
		Summary:   Summary{Strips: strips, Bytes: bytes},
	})
}

func (j *Journal) log(entry *Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry.Timestamp = j.now().UTC()
	entry.ID = fmt.Sprintf("%s-%s-%s", entry.Operation,
		entry.Timestamp.Format("2006-01-02T15-04-05"), uuid.NewString()[:8])

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if err := j.write(entry); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}
	return entry, nil
}

func (j *Journal) write(entry *Entry) error {
	path := filepath.Join(j.dir, entry.ID+".json")

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
// Unreadable files are skipped.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	names, err := j.files()
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, name := range names {
		entry, err := j.read(name)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with the given ID.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := j.read(id + ".json")
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, err
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	names, err := j.files()
	if err != nil {
		return 0, err
	}

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, name := range names {
		entry, err := j.read(name)
		if err != nil || !entry.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (j *Journal) files() ([]string, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var names []string
	for _, e := range dirEntries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (j *Journal) read(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, name))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}
