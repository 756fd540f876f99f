package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"backdrop-remover/internal/apperrors"
	"backdrop-remover/internal/imageio"
	"backdrop-remover/internal/logger"
	"backdrop-remover/internal/raster"
	"backdrop-remover/internal/segment"

	"github.com/google/uuid"
)

// ErrBusy is returned by Submit while another job is running.
var ErrBusy = errors.New("a job is already running")

// Room for the fixed stages plus one detail event per backend, so a job never
// blocks on a slow reader.
const fixedEvents = 8

// Processor produces a segmented RGBA image and the name of the backend used.
type Processor interface {
	ProcessObserved(ctx context.Context, img *raster.Buffer, observe Observer) (*raster.Buffer, string, error)
	Backends() []segment.Backend
}

// Runner executes one job at a time on its own goroutine.
type Runner struct {
	processor Processor
	logger    logger.Logger

	mu      sync.Mutex
	state   State
	current *Job
}

func NewRunner(processor Processor, log logger.Logger) *Runner {
	return &Runner{processor: processor, logger: log, state: StateIdle}
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Current returns the running job, or nil when idle.
func (r *Runner) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Submit starts a job and returns immediately. It fails with ErrBusy while a
// job is running; the running job is not affected.
func (r *Runner) Submit(inputPath, outputPath string, opts Options) (*Job, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return nil, ErrBusy
	}

	job := &Job{
		ID:         uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		Options:    opts,
		events:     make(chan Event, fixedEvents+len(r.processor.Backends())),
		done:       make(chan struct{}),
		state:      StateRunning,
	}
	r.state = StateRunning
	r.current = job
	r.mu.Unlock()

	r.logger.Info("Runner", "job submitted", map[string]interface{}{
		"job":    job.ID,
		"input":  inputPath,
		"output": outputPath,
		"format": string(opts.Format),
	})

	go r.run(job)
	return job, nil
}

func (r *Runner) run(job *Job) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Runner", fmt.Errorf("panic: %v", rec), map[string]interface{}{
				"job":   job.ID,
				"stack": string(debug.Stack()),
			})
			r.finish(job, Failed{Kind: apperrors.Internal, Message: fmt.Sprintf("internal error: %v", rec)}, start)
		}
	}()

	r.finish(job, r.execute(job), start)
}

func (r *Runner) execute(job *Job) Event {
	if err := job.Options.Validate(); err != nil {
		return failure(err)
	}
	if job.InputPath == "" {
		return Failed{Kind: apperrors.InvalidOptions, Message: "no input file selected"}
	}
	if job.OutputPath == "" {
		return Failed{Kind: apperrors.InvalidOptions, Message: "no output file selected"}
	}

	job.emit(Progress{Stage: StageLoading, Percent: 0})
	img, format, err := imageio.Decode(job.InputPath)
	if err != nil {
		return failure(err)
	}
	r.logger.Debug("Runner", "image decoded", map[string]interface{}{
		"job":      job.ID,
		"format":   format,
		"width":    img.Width,
		"height":   img.Height,
		"channels": img.Channels,
	})

	job.emit(Progress{Stage: StageProcessing, Indeterminate: true})
	segmented, backend, err := r.processor.ProcessObserved(context.Background(), img, func(b segment.Backend) {
		job.emit(Progress{Stage: StageProcessing, Detail: b.Label(), Indeterminate: true})
	})
	if err != nil {
		return failure(err)
	}

	out, err := Composite(segmented, job.Options.Format)
	if err != nil {
		return failure(apperrors.Wrap(apperrors.Internal, err, "composite result"))
	}

	job.emit(Progress{Stage: StageSaving, Indeterminate: true})

	var backupPath string
	if job.Options.Backup {
		path, created, err := BackupExisting(job.OutputPath)
		if err != nil {
			return failure(apperrors.Wrap(apperrors.UnwritableOutput, err, "back up existing output"))
		}
		if created {
			backupPath = path
			r.logger.Info("Runner", "existing output backed up", map[string]interface{}{
				"job":    job.ID,
				"backup": path,
			})
		}
	}

	if err := imageio.Encode(out, job.OutputPath, job.Options.Format.Container(), job.Options.Quality); err != nil {
		return failure(err)
	}

	return Succeeded{OutputPath: job.OutputPath, Backend: backend, BackupPath: backupPath}
}

// finish returns the runner to idle before delivering the terminal event, so
// whoever observes it can submit again straight away.
func (r *Runner) finish(job *Job, terminal Event, start time.Time) {
	r.mu.Lock()
	r.state = StateIdle
	if r.current == job {
		r.current = nil
	}
	r.mu.Unlock()

	fields := map[string]interface{}{
		"job":      job.ID,
		"duration": time.Since(start),
	}
	switch t := terminal.(type) {
	case Succeeded:
		fields["backend"] = t.Backend
		r.logger.Info("Runner", "job succeeded", fields)
	case Failed:
		fields["kind"] = string(t.Kind)
		r.logger.Error("Runner", errors.New(t.Message), fields)
	}

	job.complete(terminal)
}

func failure(err error) Failed {
	return Failed{Kind: apperrors.KindOf(err), Message: err.Error()}
}

// Job is one submitted request. Its event stream is closed after the single
// terminal event.
type Job struct {
	ID         string
	InputPath  string
	OutputPath string
	Options    Options

	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	state    State
	last     Progress
	terminal Event
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	State    State
	Progress Progress
	Terminal Event
}

func (j *Job) Events() <-chan Event {
	return j.events
}

// Done is closed once the terminal event has been sent.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job ends and returns its terminal event.
func (j *Job) Wait() Event {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.terminal
}

func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{State: j.state, Progress: j.last, Terminal: j.terminal}
}

func (j *Job) emit(p Progress) {
	j.mu.Lock()
	j.last = p
	j.mu.Unlock()

	j.events <- p
}

func (j *Job) complete(terminal Event) {
	j.mu.Lock()
	j.terminal = terminal
	if _, ok := terminal.(Succeeded); ok {
		j.state = StateSucceeded
	} else {
		j.state = StateFailed
	}
	j.mu.Unlock()

	j.events <- terminal
	close(j.events)
	close(j.done)
}
