package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
)

func newJournal(t *testing.T, at *time.Time) *Journal {
	t.Helper()
	j, err := New(filepath.Join(t.TempDir(), "history"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	j.now = func() time.Time { return *at }
	return j
}

func TestNew(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New() error = nil, want error for empty directory")
	}
}

func TestLogRunAndGet(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	j := newJournal(t, &now)

	report := &backfill.RunReport{RunID: "r1", Saved: 3, Duplicates: 1, Deferred: 2}
	entry, err := j.LogRun(report)
	if err != nil {
		t.Fatalf("LogRun() error = %v", err)
	}
	if !strings.HasPrefix(entry.ID, "import-2024-06-15T10-30-00-") {
		t.Errorf("ID = %q, want import timestamp prefix", entry.ID)
	}
	if entry.Summary.Saved != 3 || entry.Summary.Duplicates != 1 || entry.Summary.Deferred != 2 {
		t.Errorf("Summary = %+v", entry.Summary)
	}

	got, err := j.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Run == nil || got.Run.RunID != "r1" {
		t.Errorf("Get().Run = %+v, want run r1", got.Run)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
	}
}

func TestGetUnknown(t *testing.T) {
	t.Parallel()
	now := time.Now()
	j := newJournal(t, &now)

	for _, id := range []string{"missing", "", "../escape"} {
		if _, err := j.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j := newJournal(t, &now)

	for i := 0; i < 3; i++ {
		if _, err := j.LogDelete("Comic", i, int64(i*100)); err != nil {
			t.Fatalf("LogDelete() error = %v", err)
		}
		now = now.Add(time.Hour)
	}
	if err := os.WriteFile(filepath.Join(j.Dir(), "garbage.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	all, err := j.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].Summary.Strips != 2 || all[2].Summary.Strips != 0 {
		t.Errorf("List() not newest first: %+v", all)
	}

	limited, _ := j.List(2)
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries", len(limited))
	}
}

func TestListMissingDirectory(t *testing.T) {
	t.Parallel()
	now := time.Now()
	j := newJournal(t, &now)

	entries, err := j.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %v, want empty slice", entries)
	}
}

func TestCleanup(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j := newJournal(t, &now)

	old, _ := j.LogDelete("Old", 1, 1)
	now = now.AddDate(0, 0, 40)
	recent, _ := j.LogDelete("Recent", 1, 1)

	removed, err := j.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if _, err := j.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old entry still present: %v", err)
	}
	if _, err := j.Get(recent.ID); err != nil {
		t.Errorf("recent entry removed: %v", err)
	}
}
