// Package orchestrator runs queued encode items on a bounded worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"scenesplit/command"
	"scenesplit/models"
	"scenesplit/progress"
	"scenesplit/queue"
)

var (
	// ErrEncodeFailed marks a single segment whose encode process failed.
	ErrEncodeFailed = errors.New("segment encode failed")

	// ErrPoolUnusable means the encoder cannot be invoked at all.
	ErrPoolUnusable = errors.New("encoder cannot be invoked")
)

// Preflight checks that items can be dispatched before any of them starts.
type Preflight func(ctx context.Context, items []queue.WorkItem) error

// LookPathPreflight returns a Preflight resolving every binary of the first
// item's invocation with look. All items share the same binaries.
func LookPathPreflight(look func(string) (string, error)) Preflight {
	if look == nil {
		look = exec.LookPath
	}
	return func(_ context.Context, items []queue.WorkItem) error {
		if len(items) == 0 {
			return nil
		}
		for _, bin := range items[0].Command.Invocation().Binaries() {
			if _, err := look(bin); err != nil {
				return fmt.Errorf("%s: %w", bin, err)
			}
		}
		return nil
	}
}

// Outcomes maps segment filename to its terminal outcome.
type Outcomes map[string]models.Outcome

// Failed returns the names of failed segments, sorted.
func (o Outcomes) Failed() []string {
	var names []string
	for name, out := range o {
		if !out.Succeeded() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Stats summarises item states.
type Stats struct {
	Total     int
	Queued    int
	Running   int
	Succeeded int
	Failed    int
}

// Option configures a Pool.
type Option func(*Pool)

// WithReporter sets the progress sink. Defaults to progress.Nop.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pool) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPreflight sets a check run before dispatch. A failing check makes Run
// return ErrPoolUnusable without starting anything.
func WithPreflight(f Preflight) Option {
	return func(p *Pool) {
		p.preflight = f
	}
}

// task tracks one item through Queued -> Running -> {Succeeded, Failed}.
type task struct {
	state     models.ItemState
	startTime time.Time
	endTime   time.Time
}

// Pool executes work items with at most Workers running at once.
type Pool struct {
	workers   int
	runner    command.Runner
	reporter  progress.Reporter
	logger    *slog.Logger
	preflight Preflight

	mu    sync.RWMutex
	tasks map[string]*task
}

// NewPool creates a pool of workers processes running through runner.
func NewPool(workers int, runner command.Runner, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workers)
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	p := &Pool{
		workers:  workers,
		runner:   runner,
		reporter: progress.Nop{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tasks:    make(map[string]*task),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Workers returns the concurrency bound.
func (p *Pool) Workers() int {
	return p.workers
}

// Run dispatches items in order and waits until each one reached a terminal
// state. Per-item failures are recorded in the returned Outcomes and do not
// stop the pool; the returned error is non-nil only when the pool itself
// could not finish: ErrPoolUnusable or a cancelled context. Outcomes holds an
// entry for every item in both cases.
func (p *Pool) Run(ctx context.Context, items []queue.WorkItem) (Outcomes, error) {
	if err := p.reset(items); err != nil {
		return nil, err
	}

	if p.preflight != nil {
		if err := p.preflight(ctx, items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPoolUnusable, err)
		}
	}

	total := len(items)
	counter := progress.NewCounter(total)
	outcomes := make(Outcomes, total)
	results := make(chan models.Outcome)
	collected := make(chan struct{})

	p.reporter.Start(total)
	go func() {
		defer close(collected)
		for out := range results {
			p.finish(out)
			outcomes[out.Segment] = out
			p.reporter.Tick(counter.Tick(), total, out)
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var g errgroup.Group
	g.SetLimit(p.workers)

	admitted := 0
	for _, item := range items {
		if runCtx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			results <- p.execute(runCtx, cancel, item)
			return nil
		})
		admitted++
	}
	_ = g.Wait()

	for _, item := range items[admitted:] {
		results <- p.abandon(item.Segment.Name, context.Cause(runCtx))
	}
	close(results)
	<-collected
	p.reporter.Finish()

	if !counter.Complete() {
		return outcomes, fmt.Errorf("encode pool recorded %d of %d segments", counter.Done(), total)
	}

	stats := p.Stats()
	p.logger.Info("encode pool finished",
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("workers", p.workers))

	if cause := context.Cause(runCtx); cause != nil && errors.Is(cause, ErrPoolUnusable) {
		return outcomes, cause
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (p *Pool) reset(items []queue.WorkItem) error {
	tasks := make(map[string]*task, len(items))
	for _, item := range items {
		name := item.Segment.Name
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("work item has no segment name")
		}
		if item.Command == nil {
			return fmt.Errorf("work item %s has no command", name)
		}
		if _, exists := tasks[name]; exists {
			return fmt.Errorf("work item %s queued twice", name)
		}
		tasks[name] = &task{state: models.StateQueued}
	}

	p.mu.Lock()
	p.tasks = tasks
	p.mu.Unlock()
	return nil
}

func (p *Pool) execute(ctx context.Context, cancel context.CancelCauseFunc, item queue.WorkItem) models.Outcome {
	name := item.Segment.Name
	if ctx.Err() != nil {
		return p.abandon(name, context.Cause(ctx))
	}

	start := time.Now()
	p.transition(name, models.StateRunning, start)
	p.logger.Debug("encoding segment", slog.String("segment", name))

	err := p.runner.Run(ctx, item.Command.Invocation())
	end := time.Now()

	if err != nil {
		if command.IsNotFound(err) {
			err = fmt.Errorf("%w: %w", ErrPoolUnusable, err)
			cancel(err)
		} else {
			err = fmt.Errorf("%w: %s: %w", ErrEncodeFailed, name, err)
		}
		return p.failure(name, err, start, end)
	}

	out, err := models.NewOutcomeSuccess(name, item.OutputPath())
	if err != nil {
		return p.failure(name, fmt.Errorf("%w: %s: %w", ErrEncodeFailed, name, err), start, end)
	}
	out.StartedAt, out.FinishedAt = start, end
	return *out
}

// abandon fails an item that never ran.
func (p *Pool) abandon(name string, cause error) models.Outcome {
	if cause == nil {
		cause = context.Canceled
	}
	return p.failure(name, fmt.Errorf("%s not started: %w", name, cause), time.Time{}, time.Time{})
}

func (p *Pool) failure(name string, cause error, start, end time.Time) models.Outcome {
	out, err := models.NewOutcomeFailure(name, cause)
	if err != nil {
		// Only reachable with an empty segment name, which Run rejects.
		panic(err)
	}
	out.StartedAt, out.FinishedAt = start, end
	return *out
}

func (p *Pool) transition(name string, next models.ItemState, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[name]
	if !ok || !t.state.CanTransition(next) {
		return
	}
	t.state = next
	if next == models.StateRunning {
		t.startTime = at
	} else {
		t.endTime = at
	}
}

func (p *Pool) finish(out models.Outcome) {
	end := out.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	p.transition(out.Segment, out.State, end)
}

// Stats returns per-state counts for the last Run.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{Total: len(p.tasks)}
	for _, t := range p.tasks {
		switch t.state {
		case models.StateQueued:
			stats.Queued++
		case models.StateRunning:
			stats.Running++
		case models.StateSucceeded:
			stats.Succeeded++
		case models.StateFailed:
			stats.Failed++
		}
	}
	return stats
}
