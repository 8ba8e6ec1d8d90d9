package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
	"github.com/jamesainslie/stripvault/pkg/archive/dedup"
	"github.com/jamesainslie/stripvault/pkg/archive/history"
	"github.com/jamesainslie/stripvault/pkg/archive/navigation"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var garfield = types.Comic{ID: 1, Name: "Garfield", Source: "gocomics"}

func sampleTasks() TasksView {
	return TasksView{
		Checked: 1234,
		Tasks: []types.BackfillTask{
			{Comic: garfield, Date: types.Date(2025, time.January, 5)},
			{Comic: garfield, Date: types.Date(2025, time.January, 4)},
		},
	}
}

func render(t *testing.T, name string, v View) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, v))
	return buf.String()
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "plain", "pretty", "tsv", "yaml"}, Available())

	_, err := Get("xml")
	assert.Error(t, err)

	r := NewRegistry()
	r.Register("plain", func() Formatter { return &PlainFormatter{} })
	f, err := r.Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)
}

func TestJSONFormatter_Tasks(t *testing.T) {
	out := render(t, "json", sampleTasks())

	var parsed struct {
		Checked int64 `json:"checked"`
		Tasks   []struct {
			Comic string `json:"comic"`
			Date  string `json:"date"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, int64(1234), parsed.Checked)
	require.Len(t, parsed.Tasks, 2)
	assert.Equal(t, "2025-01-05", parsed.Tasks[0].Date)
	assert.Equal(t, "Garfield", parsed.Tasks[0].Comic)
}

func TestYAMLFormatter_Navigation(t *testing.T) {
	prev := types.Date(2025, time.January, 3)
	v := NavigationView{
		Comic: garfield,
		Result: navigation.Found{
			Image:           &types.Image{Date: types.Date(2025, time.January, 4), Path: "/a/2025-01-04.png", Format: "png", Width: 600, Height: 200, Size: 2048},
			NearestPrevious: &prev,
		},
	}

	out := render(t, "yaml", v)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "found", parsed["status"])
	assert.Equal(t, "2025-01-04", parsed["date"])
	assert.Equal(t, "2025-01-03", parsed["nearest_previous"])
	assert.NotContains(t, parsed, "nearest_next")
}

func TestNavigationView_NotFound(t *testing.T) {
	from := types.Date(2025, time.January, 9)
	v := NavigationView{Comic: garfield, Result: navigation.NotFound{Reason: navigation.AtEnd, CurrentDate: &from}}

	out := render(t, "plain", v)
	assert.Contains(t, out, "AT_END")
	assert.Contains(t, out, "2025-01-09")
}

func TestPlainFormatter_Tasks(t *testing.T) {
	out := render(t, "plain", sampleTasks())

	assert.Contains(t, out, "Missing:")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "COMIC")
	assert.Contains(t, out, "2025-01-04")
	assert.NotContains(t, out, "\x1b[")
}

func TestTSVFormatter(t *testing.T) {
	out := render(t, "tsv", sampleTasks())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "comic\tsource\tdate", lines[0])
	assert.Equal(t, "Garfield\tgocomics\t2025-01-05", lines[1])
}

func TestPrettyFormatter(t *testing.T) {
	out := render(t, "pretty", sampleTasks())
	assert.Contains(t, out, "Missing strips")
	assert.Contains(t, out, "Garfield")
	assert.Contains(t, out, "Use -o plain")

	empty := render(t, "pretty", TasksView{})
	assert.Contains(t, empty, "Nothing to show")
}

func TestRunView(t *testing.T) {
	report := &backfill.RunReport{
		RunID: "run-1", Saved: 1, Failed: 1,
		Results: []backfill.TaskResult{
			{Task: types.BackfillTask{Comic: garfield, Date: types.Date(2025, 1, 2)}, Outcome: backfill.OutcomeSaved, Path: "/a/x.png"},
			{Task: types.BackfillTask{Comic: garfield, Date: types.Date(2025, 1, 1)}, Outcome: backfill.OutcomeFailed, Error: "timeout"},
		},
	}
	v := RunView{Report: report}

	rows := v.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Garfield", "2025-01-01", "failed", "timeout"}, rows[1])

	out := render(t, "json", v)
	assert.Contains(t, out, `"run_id": "run-1"`)
	assert.Contains(t, out, `"outcome": "saved"`)
	assert.Contains(t, out, `"comic": "Garfield"`)
}

func TestHashesViewSortsByDate(t *testing.T) {
	v := NewHashesView(garfield, 2024, map[string]types.HashRecord{
		"b": {Hash: "b", Date: types.Date(2024, 3, 1), FilePath: "/b.png", Algorithm: types.AlgorithmMD5},
		"a": {Hash: "a", Date: types.Date(2024, 1, 1), FilePath: "/a.png"},
	})

	rows := v.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01-01", "legacy", "a", "/a.png"}, rows[0])
	assert.Equal(t, "MD5", rows[1][1])
}

func TestCheckView(t *testing.T) {
	dup := CheckView{
		Comic:  garfield,
		Date:   types.Date(2024, 5, 5),
		Result: dedup.Duplicate("abc", types.Date(2024, 5, 1), "/a/2024-05-01.png"),
	}
	out := render(t, "plain", dup)
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "2024-05-01")

	unique := CheckView{Comic: garfield, Date: types.Date(2024, 5, 5), Result: dedup.Unique("abc")}
	assert.Contains(t, render(t, "plain", unique), "unique")
}

func TestArchiveStatsView(t *testing.T) {
	oldest := types.Date(2020, 1, 1)
	v := ArchiveStatsView{
		Root: "/archive",
		Comics: []ComicStats{
			{Comic: "Garfield", Strips: 1500, Years: []int{2020, 2021}, Oldest: &oldest, Size: 2048},
			{Comic: "Empty"},
		},
	}

	rows := v.Rows()
	assert.Equal(t, []string{"Garfield", "1,500", "2020-01-01", "-", "2020,2021", "2.0 KiB"}, rows[0])
	assert.Equal(t, "-", rows[1][4])
}

func TestHistoryView(t *testing.T) {
	v := HistoryView{Dir: "/tmp/h", Entries: []history.Entry{
		{ID: "import-1", Timestamp: time.Now(), Operation: history.OpImport, Summary: history.Summary{Saved: 2, Deferred: 1}},
		{ID: "delete-1", Timestamp: time.Now(), Operation: history.OpDelete, Comic: "Garfield", Summary: history.Summary{Strips: 3, Bytes: 2048}},
	}}

	rows := v.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2 saved, 0 duplicates, 0 failed, 1 deferred", rows[0][3])
	assert.Contains(t, rows[1][3], "Garfield: 3 strips")

	var decoded struct {
		Entries []history.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(render(t, "json", HistoryView{})), &decoded))
	assert.NotNil(t, decoded.Entries)
	assert.Empty(t, decoded.Entries)
}
