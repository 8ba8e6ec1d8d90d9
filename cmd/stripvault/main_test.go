package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
	"github.com/jamesainslie/stripvault/pkg/archive/watcher"
)

const testRegistry = `comics:
  - id: 7
    name: Adam At Home
    source: gocomics
    source_identifier: adamathome
`

// workspace lays out a config, registry and empty archive under a temp dir
// and returns the global flags pointing at them.
func workspace(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()

	registryPath := filepath.Join(dir, "comics.yaml")
	require.NoError(t, os.WriteFile(registryPath, []byte(testRegistry), 0o644))

	configPath := filepath.Join(dir, "config.yaml")
	configYAML := "logging:\n  path: " + filepath.Join(dir, "stripvault.log") + "\n" +
		"history:\n  path: " + filepath.Join(dir, "history") + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o644))

	return dir, []string{
		"--config", configPath,
		"--root", filepath.Join(dir, "archive"),
		"--registry", registryPath,
		"--db", filepath.Join(dir, "hashes.db"),
		"--quiet",
		"-o", "json",
	}
}

func run(t *testing.T, flags []string, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, flags...))
	require.NoError(t, rootCmd.Execute(), "stripvault %v", args)
	return out.Bytes()
}

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 80))
	for x := 0; x < 200; x++ {
		img.SetGray(x, int(shade)%80, color.Gray{Y: shade})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, types.Date(2024, time.February, 29), d)

	today, err := parseDate("today")
	require.NoError(t, err)
	assert.Equal(t, types.Day(time.Now()), today)

	_, err = parseDate("29/02/2024")
	assert.Error(t, err)
}

func TestAddNavigateAndRejectDuplicate(t *testing.T) {
	dir, flags := workspace(t)
	first := filepath.Join(dir, "first.png")
	second := filepath.Join(dir, "second.png")
	writePNG(t, first, 10)
	writePNG(t, second, 60)

	run(t, flags, "archive", "add", "Adam At Home", "2024-03-01", first)
	run(t, flags, "archive", "add", "7", "2024-03-04", second)

	var nav struct {
		Status          string `json:"status"`
		Date            string `json:"date"`
		NearestPrevious string `json:"nearest_previous"`
	}
	require.NoError(t, json.Unmarshal(run(t, flags, "nav", "last", "AdamAtHome"), &nav))
	assert.Equal(t, "found", nav.Status)
	assert.Equal(t, "2024-03-04", nav.Date)
	assert.Equal(t, "2024-03-01", nav.NearestPrevious)

	require.NoError(t, json.Unmarshal(run(t, flags, "nav", "next", "7", "2024-03-04"), &nav))
	assert.Equal(t, "AT_END", nav.Status)

	var check struct {
		Duplicate     bool   `json:"duplicate"`
		DuplicateDate string `json:"duplicate_date"`
	}
	require.NoError(t, json.Unmarshal(run(t, flags, "archive", "add", "7", "2024-03-09", first), &check))
	assert.True(t, check.Duplicate)
	assert.Equal(t, "2024-03-01", check.DuplicateDate)

	_, err := os.Stat(filepath.Join(dir, "archive", "AdamAtHome", "2024", "2024-03-09.png"))
	assert.True(t, os.IsNotExist(err), "duplicate must not be written")
}

func TestBackfillImport(t *testing.T) {
	dir, flags := workspace(t)
	today := types.FormatDate(types.Day(time.Now()))
	staging := filepath.Join(dir, "staging", "AdamAtHome")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	writePNG(t, filepath.Join(staging, today+".png"), 20)

	var report struct {
		Saved int `json:"saved"`
	}
	out := run(t, flags, "backfill", "import", "--max-failures", "2", "--from", filepath.Join(dir, "staging"))
	require.NoError(t, json.Unmarshal(out, &report))
	assert.Equal(t, 1, report.Saved)

	_, err := os.Stat(filepath.Join(dir, "archive", "AdamAtHome", today[:4], today+".png"))
	assert.NoError(t, err)

	var journal struct {
		Entries []struct {
			Operation string `json:"operation"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(run(t, flags, "history"), &journal))
	require.Len(t, journal.Entries, 1)
	assert.Equal(t, "import", journal.Entries[0].Operation)
}

func TestArchiveDeleteRemovesStripsAndHashes(t *testing.T) {
	dir, flags := workspace(t)
	img := filepath.Join(dir, "strip.png")
	writePNG(t, img, 30)
	run(t, flags, "archive", "add", "7", "2024-05-01", img)

	run(t, flags, "archive", "delete", "7", "--yes")

	_, err := os.Stat(filepath.Join(dir, "archive", "AdamAtHome"))
	assert.True(t, os.IsNotExist(err))

	var stats struct {
		Partitions []struct {
			ComicID int `json:"comic_id"`
		} `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal(run(t, flags, "cache", "stats"), &stats))
	assert.Empty(t, stats.Partitions)
}

func TestWatchRefreshRehashesSyncedStrips(t *testing.T) {
	dir, flags := workspace(t)
	img := filepath.Join(dir, "strip.png")
	writePNG(t, img, 40)
	run(t, flags, "archive", "add", "7", "2024-06-01", img)

	// Watch keeps the archive open without the hash database, so other
	// commands can still take badger's lock.
	a, err := openApp(false)
	require.NoError(t, err)
	defer a.Close()

	synced := filepath.Join(dir, "archive", "AdamAtHome", "2024", "2024-06-02.png")
	writePNG(t, synced, 90)

	isDuplicate := func() bool {
		var check struct {
			Duplicate bool `json:"duplicate"`
		}
		require.NoError(t, json.Unmarshal(run(t, flags, "hashes", "check", "7", "2024-06-09", synced), &check))
		return check.Duplicate
	}
	assert.False(t, isDuplicate(), "populated cache does not know the synced strip yet")

	a.archive.Invalidate("AdamAtHome")
	refresher := hashRefresher{registry: a.registry, archive: a.archive}
	require.NoError(t, refresher.Refresh(context.Background(), []watcher.Partition{{ComicDir: "AdamAtHome", Year: 2024}}))

	assert.True(t, isDuplicate())
}

func TestWatchRefreshDropsHashesOfRemovedComic(t *testing.T) {
	dir, flags := workspace(t)
	img := filepath.Join(dir, "strip.png")
	writePNG(t, img, 50)
	run(t, flags, "archive", "add", "7", "2024-07-01", img)

	a, err := openApp(false)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "archive", "AdamAtHome")))
	a.archive.Invalidate("AdamAtHome")
	refresher := hashRefresher{registry: a.registry, archive: a.archive}
	require.NoError(t, refresher.Refresh(context.Background(), []watcher.Partition{{ComicDir: "AdamAtHome"}}))

	var stats struct {
		Partitions []struct {
			ComicID int `json:"comic_id"`
		} `json:"partitions"`
	}
	require.NoError(t, json.Unmarshal(run(t, flags, "cache", "stats"), &stats))
	assert.Empty(t, stats.Partitions)
}

func TestVersionPrintsStampedVariables(t *testing.T) {
	_, flags := workspace(t)
	old := version
	version = "v1.2.3"
	t.Cleanup(func() { version = old })

	out := run(t, flags, "version")
	assert.Contains(t, string(out), "stripvault v1.2.3")
}
