package backfill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/storage"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Fetcher retrieves the image bytes of one strip.
type Fetcher interface {
	Fetch(ctx context.Context, comic types.Comic, date time.Time) ([]byte, error)
}

// Saver archives fetched bytes.
type Saver interface {
	SaveStrip(ctx context.Context, comicID int, comicName string, date time.Time, data []byte) (storage.SaveResult, error)
}

// Outcome classifies what happened to one task.
type Outcome string

// Task outcomes.
const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
	OutcomeDeferred  Outcome = "deferred"
)

// TaskResult records the outcome of one task.
type TaskResult struct {
	Task    types.BackfillTask `json:"task"`
	Outcome Outcome            `json:"outcome"`
	Path    string             `json:"path,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// RunReport summarizes a run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Started    time.Time     `json:"started"`
	Elapsed    time.Duration `json:"elapsed"`
	Saved      int           `json:"saved"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Deferred   int           `json:"deferred"`
	Results    []TaskResult  `json:"results"`
}

func (r *RunReport) tally() {
	r.Saved, r.Duplicates, r.Failed, r.Deferred = 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeSaved:
			r.Saved++
		case OutcomeDuplicate:
			r.Duplicates++
		case OutcomeFailed:
			r.Failed++
		case OutcomeDeferred:
			r.Deferred++
		}
	}
}

// Runner fetches and archives backfill tasks.
type Runner struct {
	fetcher Fetcher
	saver   Saver
	opts    RunOptions
}

// NewRunner returns a Runner.
func NewRunner(fetcher Fetcher, saver Saver, opts RunOptions) *Runner {
	opts.Validate()
	return &Runner{fetcher: fetcher, saver: saver, opts: opts}
}

// Run processes tasks chunk by chunk. Tasks beyond a source's per-run cap
// are deferred. A failing task never stops the others. Cancelling ctx stops
// new chunks from starting; the report then covers what ran and Run returns
// the context error.
func (r *Runner) Run(ctx context.Context, tasks []types.BackfillTask) (*RunReport, error) {
	report := &RunReport{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Results: make([]TaskResult, len(tasks)),
	}
	log := logging.Get("backfill").With("run_id", report.RunID)

	perSource := make(map[string]int)
	var runnable []int
	for i, task := range tasks {
		report.Results[i] = TaskResult{Task: task, Outcome: OutcomeDeferred}

		limit := r.opts.Sources.For(task.Comic.Source).MaxPerDay
		perSource[task.Comic.Source]++
		if limit > 0 && perSource[task.Comic.Source] > limit {
			continue
		}
		runnable = append(runnable, i)
	}

	log.Info("backfill run started", "tasks", len(tasks), "runnable", len(runnable), "workers", r.opts.Workers)

	var runErr error
	for start := 0; start < len(runnable); start += r.opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		end := min(start+r.opts.ChunkSize, len(runnable))
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)

		for _, idx := range runnable[start:end] {
			g.Go(func() error {
				report.Results[idx] = r.runTask(ctx, log, tasks[idx])
				return nil
			})
		}
		_ = g.Wait()

		log.Debug("chunk finished", "from", start, "to", end)
	}

	report.Elapsed = time.Since(report.Started)
	report.tally()
	log.Info("backfill run finished",
		"saved", report.Saved,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
		"deferred", report.Deferred,
		"elapsed", report.Elapsed)

	return report, runErr
}

func (r *Runner) runTask(ctx context.Context, log *logging.Logger, task types.BackfillTask) TaskResult {
	res := TaskResult{Task: task}
	date := types.FormatDate(task.Date)

	data, err := r.fetcher.Fetch(ctx, task.Comic, task.Date)
	if err != nil {
		log.Warn("fetch failed", "comic", task.Comic.Name, "date", date, "error", err)
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	saved, err := r.saver.SaveStrip(ctx, task.Comic.ID, task.Comic.Name, task.Date, data)
	if err != nil {
		log.Warn("save failed", "comic", task.Comic.Name, "date", date, "error", err)
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	if !saved.Saved {
		res.Outcome = OutcomeDuplicate
		if saved.Duplicate != nil {
			res.Path = saved.Duplicate.DuplicateFilePath
		}
		return res
	}

	res.Outcome = OutcomeSaved
	res.Path = saved.Path
	return res
}
