package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
	"github.com/jamesainslie/stripvault/pkg/archive/dedup"
	"github.com/jamesainslie/stripvault/pkg/archive/hashstore"
	"github.com/jamesainslie/stripvault/pkg/archive/history"
	"github.com/jamesainslie/stripvault/pkg/archive/navigation"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return types.FormatDate(*t)
}

func optionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return types.FormatDate(*t)
}

// TasksView lists the strips a backfill scan found missing.
type TasksView struct {
	Tasks   []types.BackfillTask
	Checked int64
}

type taskData struct {
	ComicID int    `json:"comic_id" yaml:"comic_id"`
	Comic   string `json:"comic" yaml:"comic"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Date    string `json:"date" yaml:"date"`
}

func (v TasksView) Title() string { return "Missing strips" }

func (v TasksView) Summary() []Field {
	comics := make(map[int]bool)
	for _, t := range v.Tasks {
		comics[t.Comic.ID] = true
	}
	return []Field{
		{"Missing", humanize.Comma(int64(len(v.Tasks)))},
		{"Comics", strconv.Itoa(len(comics))},
		{"Dates checked", humanize.Comma(v.Checked)},
	}
}

func (v TasksView) Header() []string { return []string{"comic", "source", "date"} }

func (v TasksView) Rows() [][]string {
	rows := make([][]string, len(v.Tasks))
	for i, t := range v.Tasks {
		rows[i] = []string{t.Comic.Name, t.Comic.Source, types.FormatDate(t.Date)}
	}
	return rows
}

func (v TasksView) Data() any {
	tasks := make([]taskData, len(v.Tasks))
	for i, t := range v.Tasks {
		tasks[i] = taskData{ComicID: t.Comic.ID, Comic: t.Comic.Name, Source: t.Comic.Source, Date: types.FormatDate(t.Date)}
	}
	return struct {
		Checked int64      `json:"checked" yaml:"checked"`
		Tasks   []taskData `json:"tasks" yaml:"tasks"`
	}{v.Checked, tasks}
}

// RunView reports a backfill run.
type RunView struct {
	Report *backfill.RunReport
}

type runResultData struct {
	taskData `yaml:",inline"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (v RunView) Title() string { return "Backfill run " + v.Report.RunID }

func (v RunView) Summary() []Field {
	r := v.Report
	return []Field{
		{"Saved", strconv.Itoa(r.Saved)},
		{"Duplicates", strconv.Itoa(r.Duplicates)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Deferred", strconv.Itoa(r.Deferred)},
		{"Elapsed", r.Elapsed.Round(time.Millisecond).String()},
	}
}

func (v RunView) Header() []string { return []string{"comic", "date", "outcome", "detail"} }

func (v RunView) Rows() [][]string {
	rows := make([][]string, len(v.Report.Results))
	for i, res := range v.Report.Results {
		detail := res.Path
		if res.Error != "" {
			detail = res.Error
		}
		rows[i] = []string{res.Task.Comic.Name, types.FormatDate(res.Task.Date), string(res.Outcome), detail}
	}
	return rows
}

func (v RunView) Data() any {
	r := v.Report
	results := make([]runResultData, len(r.Results))
	for i, res := range r.Results {
		t := res.Task
		results[i] = runResultData{
			taskData: taskData{ComicID: t.Comic.ID, Comic: t.Comic.Name, Source: t.Comic.Source, Date: types.FormatDate(t.Date)},
			Outcome:  string(res.Outcome),
			Path:     res.Path,
			Error:    res.Error,
		}
	}
	return struct {
		RunID      string          `json:"run_id" yaml:"run_id"`
		Started    time.Time       `json:"started" yaml:"started"`
		Elapsed    string          `json:"elapsed" yaml:"elapsed"`
		Saved      int             `json:"saved" yaml:"saved"`
		Duplicates int             `json:"duplicates" yaml:"duplicates"`
		Failed     int             `json:"failed" yaml:"failed"`
		Deferred   int             `json:"deferred" yaml:"deferred"`
		Results    []runResultData `json:"results" yaml:"results"`
	}{r.RunID, r.Started, r.Elapsed.String(), r.Saved, r.Duplicates, r.Failed, r.Deferred, results}
}

// NavigationView shows the outcome of a navigation request.
type NavigationView struct {
	Comic  types.Comic
	Result navigation.Result
}

type navigationData struct {
	Comic           string `json:"comic" yaml:"comic"`
	Status          string `json:"status" yaml:"status"`
	Date            string `json:"date,omitempty" yaml:"date,omitempty"`
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
	Format          string `json:"format,omitempty" yaml:"format,omitempty"`
	Width           int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height          int    `json:"height,omitempty" yaml:"height,omitempty"`
	Size            int64  `json:"size,omitempty" yaml:"size,omitempty"`
	CurrentDate     string `json:"current_date,omitempty" yaml:"current_date,omitempty"`
	NearestPrevious string `json:"nearest_previous,omitempty" yaml:"nearest_previous,omitempty"`
	NearestNext     string `json:"nearest_next,omitempty" yaml:"nearest_next,omitempty"`
}

func (v NavigationView) data() navigationData {
	d := navigationData{Comic: v.Comic.Name}
	switch r := v.Result.(type) {
	case navigation.Found:
		d.Status = "found"
		d.Date = types.FormatDate(r.Image.Date)
		d.Path = r.Image.Path
		d.Format = r.Image.Format
		d.Width = r.Image.Width
		d.Height = r.Image.Height
		d.Size = r.Image.Size
		d.NearestPrevious = optionalDate(r.NearestPrevious)
		d.NearestNext = optionalDate(r.NearestNext)
	case navigation.NotFound:
		d.Status = r.Reason.String()
		d.CurrentDate = optionalDate(r.CurrentDate)
		d.NearestPrevious = optionalDate(r.NearestPrevious)
		d.NearestNext = optionalDate(r.NearestNext)
	}
	return d
}

func (v NavigationView) Title() string { return v.Comic.Name }

func (v NavigationView) Summary() []Field {
	d := v.data()
	fields := []Field{{"Status", d.Status}}
	if d.Date != "" {
		fields = append(fields,
			Field{"Date", d.Date},
			Field{"Path", d.Path},
			Field{"Image", fmt.Sprintf("%s %dx%d, %s", d.Format, d.Width, d.Height, types.FormatSize(d.Size))})
	}
	if d.CurrentDate != "" {
		fields = append(fields, Field{"From", d.CurrentDate})
	}
	dash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return append(fields, Field{"Previous", dash(d.NearestPrevious)}, Field{"Next", dash(d.NearestNext)})
}

func (v NavigationView) Header() []string { return nil }
func (v NavigationView) Rows() [][]string { return nil }
func (v NavigationView) Data() any        { return v.data() }

// HashesView lists the hash records of one (comic, year) cache.
type HashesView struct {
	Comic   types.Comic
	Year    int
	Records []types.HashRecord
}

// NewHashesView sorts records by date, then hash.
func NewHashesView(comic types.Comic, year int, records map[string]types.HashRecord) HashesView {
	list := make([]types.HashRecord, 0, len(records))
	for _, r := range records {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Hash < list[j].Hash
	})
	return HashesView{Comic: comic, Year: year, Records: list}
}

type hashData struct {
	Hash      string `json:"hash" yaml:"hash"`
	Date      string `json:"date" yaml:"date"`
	FilePath  string `json:"file_path" yaml:"file_path"`
	Algorithm string `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
}

func (v HashesView) Title() string { return fmt.Sprintf("%s %d hashes", v.Comic.Name, v.Year) }

func (v HashesView) Summary() []Field {
	return []Field{{"Records", strconv.Itoa(len(v.Records))}}
}

func (v HashesView) Header() []string { return []string{"date", "algorithm", "hash", "path"} }

func (v HashesView) Rows() [][]string {
	rows := make([][]string, len(v.Records))
	for i, r := range v.Records {
		alg := r.Algorithm.String()
		if alg == "" {
			alg = "legacy"
		}
		rows[i] = []string{types.FormatDate(r.Date), alg, r.Hash, r.FilePath}
	}
	return rows
}

func (v HashesView) Data() any {
	records := make([]hashData, len(v.Records))
	for i, r := range v.Records {
		records[i] = hashData{Hash: r.Hash, Date: types.FormatDate(r.Date), FilePath: r.FilePath, Algorithm: r.Algorithm.String()}
	}
	return struct {
		Comic   string     `json:"comic" yaml:"comic"`
		Year    int        `json:"year" yaml:"year"`
		Records []hashData `json:"records" yaml:"records"`
	}{v.Comic.Name, v.Year, records}
}

// CheckView reports whether a candidate image duplicates an archived one.
type CheckView struct {
	Comic  types.Comic
	Date   time.Time
	Result dedup.Result
}

func (v CheckView) verdict() string {
	if v.Result.IsDuplicate {
		return "duplicate"
	}
	return "unique"
}

func (v CheckView) Title() string {
	return fmt.Sprintf("%s %s", v.Comic.Name, types.FormatDate(v.Date))
}

func (v CheckView) Summary() []Field {
	fields := []Field{{"Verdict", v.verdict()}, {"Hash", v.Result.Hash}}
	if v.Result.IsDuplicate {
		fields = append(fields,
			Field{"Archived as", dateOrDash(v.Result.DuplicateDate)},
			Field{"Path", v.Result.DuplicateFilePath})
	}
	return fields
}

func (v CheckView) Header() []string { return nil }
func (v CheckView) Rows() [][]string { return nil }

func (v CheckView) Data() any {
	return struct {
		Comic         string `json:"comic" yaml:"comic"`
		Date          string `json:"date" yaml:"date"`
		Duplicate     bool   `json:"duplicate" yaml:"duplicate"`
		Hash          string `json:"hash" yaml:"hash"`
		DuplicateDate string `json:"duplicate_date,omitempty" yaml:"duplicate_date,omitempty"`
		DuplicatePath string `json:"duplicate_path,omitempty" yaml:"duplicate_path,omitempty"`
	}{v.Comic.Name, types.FormatDate(v.Date), v.Result.IsDuplicate, v.Result.Hash,
		optionalDate(v.Result.DuplicateDate), v.Result.DuplicateFilePath}
}

// Rebuild is the outcome of rebuilding one (comic, year) cache.
type Rebuild struct {
	Comic string             `json:"comic" yaml:"comic"`
	Year  int                `json:"year" yaml:"year"`
	Stats dedup.RebuildStats `json:"stats" yaml:"stats"`
	Error string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// RebuildView reports hash-cache rebuilds.
type RebuildView struct {
	Algorithm types.HashAlgorithm
	Rebuilds  []Rebuild
}

func (v RebuildView) Title() string { return "Hash cache rebuild" }

func (v RebuildView) Summary() []Field {
	hashed := 0
	for _, r := range v.Rebuilds {
		hashed += r.Stats.Hashed
	}
	return []Field{
		{"Algorithm", v.Algorithm.String()},
		{"Partitions", strconv.Itoa(len(v.Rebuilds))},
		{"Hashed", humanize.Comma(int64(hashed))},
	}
}

func (v RebuildView) Header() []string {
	return []string{"comic", "year", "files", "hashed", "skipped", "duration"}
}

func (v RebuildView) Rows() [][]string {
	rows := make([][]string, len(v.Rebuilds))
	for i, r := range v.Rebuilds {
		duration := r.Stats.Duration.Round(time.Millisecond).String()
		if r.Error != "" {
			duration = "failed"
		}
		rows[i] = []string{
			r.Comic, strconv.Itoa(r.Year),
			strconv.Itoa(r.Stats.Files), strconv.Itoa(r.Stats.Hashed), strconv.Itoa(r.Stats.Skipped),
			duration,
		}
	}
	return rows
}

func (v RebuildView) Data() any {
	return struct {
		Algorithm string    `json:"algorithm" yaml:"algorithm"`
		Rebuilds  []Rebuild `json:"rebuilds" yaml:"rebuilds"`
	}{v.Algorithm.String(), v.Rebuilds}
}

// ComicStats summarizes one comic's archive.
type ComicStats struct {
	Comic  string     `json:"comic" yaml:"comic"`
	Strips int        `json:"strips" yaml:"strips"`
	Years  []int      `json:"years" yaml:"years"`
	Oldest *time.Time `json:"oldest,omitempty" yaml:"oldest,omitempty"`
	Newest *time.Time `json:"newest,omitempty" yaml:"newest,omitempty"`
	Size   int64      `json:"size" yaml:"size"`
}

// ArchiveStatsView summarizes the archive per comic.
type ArchiveStatsView struct {
	Root   string
	Comics []ComicStats
}

func (v ArchiveStatsView) Title() string { return "Archive" }

func (v ArchiveStatsView) Summary() []Field {
	var strips int
	var size int64
	for _, c := range v.Comics {
		strips += c.Strips
		size += c.Size
	}
	return []Field{
		{"Root", v.Root},
		{"Comics", strconv.Itoa(len(v.Comics))},
		{"Strips", humanize.Comma(int64(strips))},
		{"Size", types.FormatSize(size)},
	}
}

func (v ArchiveStatsView) Header() []string {
	return []string{"comic", "strips", "oldest", "newest", "years", "size"}
}

func (v ArchiveStatsView) Rows() [][]string {
	rows := make([][]string, len(v.Comics))
	for i, c := range v.Comics {
		rows[i] = []string{
			c.Comic, humanize.Comma(int64(c.Strips)),
			dateOrDash(c.Oldest), dateOrDash(c.Newest),
			joinYears(c.Years), types.FormatSize(c.Size),
		}
	}
	return rows
}

func (v ArchiveStatsView) Data() any {
	return struct {
		Root   string       `json:"root" yaml:"root"`
		Comics []ComicStats `json:"comics" yaml:"comics"`
	}{v.Root, v.Comics}
}

// YearsView lists the years holding strips for a comic.
type YearsView struct {
	Comic types.Comic
	Years []int
}

func (v YearsView) Title() string    { return v.Comic.Name }
func (v YearsView) Summary() []Field { return []Field{{"Years", joinYears(v.Years)}} }
func (v YearsView) Header() []string { return []string{"year"} }

func (v YearsView) Rows() [][]string {
	rows := make([][]string, len(v.Years))
	for i, y := range v.Years {
		rows[i] = []string{strconv.Itoa(y)}
	}
	return rows
}

func (v YearsView) Data() any {
	years := v.Years
	if years == nil {
		years = []int{}
	}
	return struct {
		Comic string `json:"comic" yaml:"comic"`
		Years []int  `json:"years" yaml:"years"`
	}{v.Comic.Name, years}
}

// CacheStatsView summarizes the hash database.
type CacheStatsView struct {
	Path       string
	Partitions []hashstore.PartitionStats

	// Names maps comic IDs to display names. Missing IDs print as numbers.
	Names map[int]string
}

func (v CacheStatsView) name(id int) string {
	if n, ok := v.Names[id]; ok {
		return n
	}
	return strconv.Itoa(id)
}

func (v CacheStatsView) Title() string { return "Hash cache" }

func (v CacheStatsView) Summary() []Field {
	var records, legacy int
	for _, p := range v.Partitions {
		records += p.Records
		legacy += p.Legacy
	}
	return []Field{
		{"Path", v.Path},
		{"Partitions", strconv.Itoa(len(v.Partitions))},
		{"Records", humanize.Comma(int64(records))},
		{"Legacy", humanize.Comma(int64(legacy))},
	}
}

func (v CacheStatsView) Header() []string { return []string{"comic", "year", "records", "legacy"} }

func (v CacheStatsView) Rows() [][]string {
	rows := make([][]string, len(v.Partitions))
	for i, p := range v.Partitions {
		rows[i] = []string{v.name(p.ComicID), strconv.Itoa(p.Year), strconv.Itoa(p.Records), strconv.Itoa(p.Legacy)}
	}
	return rows
}

func (v CacheStatsView) Data() any {
	type partition struct {
		ComicID int    `json:"comic_id" yaml:"comic_id"`
		Comic   string `json:"comic" yaml:"comic"`
		Year    int    `json:"year" yaml:"year"`
		Records int    `json:"records" yaml:"records"`
		Legacy  int    `json:"legacy" yaml:"legacy"`
	}
	parts := make([]partition, len(v.Partitions))
	for i, p := range v.Partitions {
		parts[i] = partition{p.ComicID, v.name(p.ComicID), p.Year, p.Records, p.Legacy}
	}
	return struct {
		Path       string      `json:"path" yaml:"path"`
		Partitions []partition `json:"partitions" yaml:"partitions"`
	}{v.Path, parts}
}

// HistoryView lists journaled operations.
type HistoryView struct {
	Dir     string
	Entries []history.Entry
}

func (v HistoryView) Title() string { return "History" }

func (v HistoryView) Summary() []Field {
	return []Field{{"Path", v.Dir}, {"Entries", strconv.Itoa(len(v.Entries))}}
}

func (v HistoryView) Header() []string { return []string{"id", "when", "operation", "detail"} }

func (v HistoryView) Rows() [][]string {
	rows := make([][]string, len(v.Entries))
	for i, e := range v.Entries {
		var detail string
		switch e.Operation {
		case history.OpImport:
			detail = fmt.Sprintf("%d saved, %d duplicates, %d failed, %d deferred",
				e.Summary.Saved, e.Summary.Duplicates, e.Summary.Failed, e.Summary.Deferred)
		case history.OpDelete:
			detail = fmt.Sprintf("%s: %d strips, %s", e.Comic, e.Summary.Strips, types.FormatSize(e.Summary.Bytes))
		}
		rows[i] = []string{e.ID, humanize.Time(e.Timestamp), string(e.Operation), detail}
	}
	return rows
}

func (v HistoryView) Data() any {
	entries := v.Entries
	if entries == nil {
		entries = []history.Entry{}
	}
	return struct {
		Path    string          `json:"path" yaml:"path"`
		Entries []history.Entry `json:"entries" yaml:"entries"`
	}{v.Dir, entries}
}

func joinYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}
