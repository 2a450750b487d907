package clip

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"stagecap/internal/ffmpeg"
	"stagecap/internal/logging"
	"stagecap/internal/services"
)

// Cutter writes one clip. *ffmpeg.Cutter satisfies it.
type Cutter interface {
	Cut(ctx context.Context, spec ffmpeg.CutSpec, progress func(ffmpeg.Progress)) error
}

// Job pairs a cut with its destination.
type Job struct {
	Cut  Cut
	Dest string
}

// Plan assigns output paths under dir to cuts.
func Plan(dir, episode string, cuts []Cut) []Job {
	jobs := make([]Job, len(cuts))
	for i, c := range cuts {
		jobs[i] = Job{Cut: c, Dest: OutputPath(dir, episode, c)}
	}
	return jobs
}

// Outcome reports one executed job.
type Outcome struct {
	Job     Job
	Err     error
	Elapsed time.Duration
}

// Status returns "ok" or the failure outcome of the job.
func (o Outcome) Status() string {
	if o.Err == nil {
		return "ok"
	}
	return string(services.FailureOutcome(o.Err))
}

// Executor runs jobs against one source with bounded parallelism.
type Executor struct {
	cutter      Cutter
	concurrency int
	logger      *slog.Logger
	onDone      func(Outcome)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithConcurrency bounds how many cuts run at once.
func WithConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithOutcomeHook is called after each job from the job's goroutine.
func WithOutcomeHook(fn func(Outcome)) ExecutorOption {
	return func(e *Executor) { e.onDone = fn }
}

// NewExecutor constructs an executor.
func NewExecutor(cutter Cutter, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		cutter:      cutter,
		concurrency: 1,
		logger:      logging.NewComponentLogger(logger, "clip"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run cuts every job from source. A failed job is reported in its Outcome
// and never cancels the others. Outcomes keep the order of jobs.
func (e *Executor) Run(ctx context.Context, source string, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			started := time.Now()
			err := ctx.Err()
			if err == nil {
				err = e.cutter.Cut(ctx, ffmpeg.CutSpec{
					Source:   source,
					Dest:     job.Dest,
					StartSec: job.Cut.StartSec,
					EndSec:   job.Cut.EndSec,
				}, nil)
			}
			out := Outcome{Job: job, Err: err, Elapsed: time.Since(started)}
			outcomes[i] = out
			e.log(out)
			if e.onDone != nil {
				e.onDone(out)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Executor) log(out Outcome) {
	attrs := []logging.Attr{
		logging.String("clip", filepath.Base(out.Job.Dest)),
		logging.String("label", out.Job.Cut.Label),
		logging.Float64("start_sec", out.Job.Cut.StartSec),
		logging.Float64("end_sec", out.Job.Cut.EndSec),
		logging.Duration("elapsed", out.Elapsed),
	}
	if out.Err == nil {
		e.logger.Info("clip cut", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.Error(out.Err),
		logging.String(logging.FieldImpact, "clip not written"),
		logging.String(logging.FieldErrorHint, "check the ffmpeg stderr tail in the error"),
	)
	logging.ErrorWithContext(e.logger, "clip cut failed", "clip_failed", attrs...)
}

// Failed counts failed outcomes.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
