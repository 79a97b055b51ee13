package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scenesplit/command"
	"scenesplit/command/video"
	"scenesplit/models"
	"scenesplit/queue"
)

// recordingReporter captures every event it receives.
type recordingReporter struct {
	started  int
	total    int
	ticks    []int
	segments []string
	finished bool
}

func (r *recordingReporter) Start(total int) {
	r.started++
	r.total = total
}

func (r *recordingReporter) Tick(done, total int, o models.Outcome) {
	r.ticks = append(r.ticks, done)
	r.segments = append(r.segments, o.Segment)
}

func (r *recordingReporter) Finish() {
	r.finished = true
}

func makeItems(t *testing.T, names ...string) []queue.WorkItem {
	t.Helper()
	items := make([]queue.WorkItem, 0, len(names))
	for i, name := range names {
		seg, err := models.NewSegment(filepath.Join("/work/split", name), int64(100-i))
		if err != nil {
			t.Fatalf("NewSegment(%s): %v", name, err)
		}
		items = append(items, queue.WorkItem{
			Segment: *seg,
			Command: video.NewEncodeBuilder(*seg, "/work/encode"),
		})
	}
	return items
}

// segmentOf returns the segment filename an encode invocation reads.
func segmentOf(inv command.Invocation) string {
	args := inv.Stages[0].Args
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			return filepath.Base(args[i+1])
		}
	}
	return ""
}

func TestNewPool_Validation(t *testing.T) {
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error { return nil })

	tests := []struct {
		name    string
		workers int
		runner  command.Runner
		wantErr bool
	}{
		{"valid", 4, runner, false},
		{"zero workers", 0, runner, true},
		{"negative workers", -1, runner, true},
		{"nil runner", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPool(tt.workers, tt.runner)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPool() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Workers() != tt.workers {
				t.Errorf("Workers() = %d, want %d", p.Workers(), tt.workers)
			}
		})
	}
}

func TestPool_AllSucceed(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv", "003.mkv", "004.mkv", "005.mkv")
	rep := &recordingReporter{}
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	p, err := NewPool(2, runner, WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := p.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(outcomes) != len(items) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(items))
	}
	for _, item := range items {
		out, ok := outcomes[item.Segment.Name]
		if !ok {
			t.Fatalf("missing outcome for %s", item.Segment.Name)
		}
		if !out.Succeeded() {
			t.Errorf("%s: state = %s, want succeeded", item.Segment.Name, out.State)
		}
		if out.OutputPath != filepath.Join("/work/encode", item.Segment.Name) {
			t.Errorf("%s: output = %s", item.Segment.Name, out.OutputPath)
		}
		if err := out.Validate(); err != nil {
			t.Errorf("%s: invalid outcome: %v", item.Segment.Name, err)
		}
	}

	if rep.started != 1 || rep.total != 5 || !rep.finished {
		t.Errorf("reporter lifecycle: started=%d total=%d finished=%v", rep.started, rep.total, rep.finished)
	}
	want := []int{1, 2, 3, 4, 5}
	if fmt.Sprint(rep.ticks) != fmt.Sprint(want) {
		t.Errorf("ticks = %v, want %v", rep.ticks, want)
	}

	stats := p.Stats()
	if stats.Total != 5 || stats.Succeeded != 5 || stats.Failed != 0 || stats.Running != 0 || stats.Queued != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPool_ConcurrencyBound(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			items := makeItems(t, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j")

			var active, peak atomic.Int32
			runner := command.RunnerFunc(func(context.Context, command.Invocation) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})

			p, err := NewPool(workers, runner)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := p.Run(context.Background(), items); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if got := int(peak.Load()); got > workers {
				t.Errorf("peak concurrency = %d, exceeds %d workers", got, workers)
			}
		})
	}
}

func TestPool_AdmissionOrder(t *testing.T) {
	names := []string{"004.mkv", "001.mkv", "005.mkv", "003.mkv"}
	items := makeItems(t, names...)

	var mu sync.Mutex
	var started []string
	runner := command.RunnerFunc(func(_ context.Context, inv command.Invocation) error {
		mu.Lock()
		started = append(started, segmentOf(inv))
		mu.Unlock()
		return nil
	})

	p, err := NewPool(1, runner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), items); err != nil {
		t.Fatal(err)
	}

	if fmt.Sprint(started) != fmt.Sprint(names) {
		t.Errorf("admission order = %v, want %v", started, names)
	}
}

func TestPool_FailureDoesNotHalt(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv", "003.mkv", "004.mkv")
	rep := &recordingReporter{}
	runner := command.RunnerFunc(func(_ context.Context, inv command.Invocation) error {
		if segmentOf(inv) == "002.mkv" {
			return &command.ExitError{Stage: "aomenc", Code: 1, Stderr: "bad frame"}
		}
		return nil
	})

	p, err := NewPool(2, runner, WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := p.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run() error = %v, per-item failures must not fail the pool", err)
	}

	failed := outcomes["002.mkv"]
	if failed.Succeeded() {
		t.Fatal("002.mkv should have failed")
	}
	if !errors.Is(failed.Err, ErrEncodeFailed) {
		t.Errorf("error %v does not wrap ErrEncodeFailed", failed.Err)
	}
	var exitErr *command.ExitError
	if !errors.As(failed.Err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("error %v does not carry the exit error", failed.Err)
	}

	if got := outcomes.Failed(); len(got) != 1 || got[0] != "002.mkv" {
		t.Errorf("Failed() = %v", got)
	}
	if len(rep.ticks) != len(items) {
		t.Errorf("got %d ticks, want %d", len(rep.ticks), len(items))
	}

	stats := p.Stats()
	if stats.Succeeded != 3 || stats.Failed != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestPool_EncoderNotFound(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv", "003.mkv", "004.mkv", "005.mkv")
	rep := &recordingReporter{}

	var calls atomic.Int32
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error {
		calls.Add(1)
		return fmt.Errorf("start aomenc: %w", exec.ErrNotFound)
	})

	p, err := NewPool(1, runner, WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := p.Run(context.Background(), items)
	if !errors.Is(err, ErrPoolUnusable) {
		t.Fatalf("Run() error = %v, want ErrPoolUnusable", err)
	}
	if calls.Load() != 1 {
		t.Errorf("runner called %d times, admission should stop after the first failure", calls.Load())
	}
	if len(outcomes) != len(items) {
		t.Errorf("got %d outcomes, want %d", len(outcomes), len(items))
	}
	for name, out := range outcomes {
		if out.Succeeded() {
			t.Errorf("%s should not have succeeded", name)
		}
	}
	if len(rep.ticks) != len(items) || rep.ticks[len(rep.ticks)-1] != len(items) {
		t.Errorf("ticks = %v, want one per item", rep.ticks)
	}
}

func TestPool_PreflightFailure(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv")

	var calls atomic.Int32
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error {
		calls.Add(1)
		return nil
	})
	look := func(bin string) (string, error) {
		if bin == "aomenc" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + bin, nil
	}

	p, err := NewPool(2, runner, WithPreflight(LookPathPreflight(look)))
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Run(context.Background(), items)
	if !errors.Is(err, ErrPoolUnusable) {
		t.Fatalf("Run() error = %v, want ErrPoolUnusable", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("Run() error = %v, want wrapped exec.ErrNotFound", err)
	}
	if calls.Load() != 0 {
		t.Errorf("runner called %d times after failed preflight", calls.Load())
	}
}

func TestLookPathPreflight_AllFound(t *testing.T) {
	items := makeItems(t, "001.mkv")
	var looked []string
	look := func(bin string) (string, error) {
		looked = append(looked, bin)
		return "/usr/bin/" + bin, nil
	}

	if err := LookPathPreflight(look)(context.Background(), items); err != nil {
		t.Fatalf("preflight error = %v", err)
	}
	if fmt.Sprint(looked) != "[ffmpeg aomenc]" {
		t.Errorf("looked up %v", looked)
	}
	if err := LookPathPreflight(look)(context.Background(), nil); err != nil {
		t.Errorf("preflight on empty queue error = %v", err)
	}
}

func TestPool_Cancellation(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv", "003.mkv")
	rep := &recordingReporter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	runner := command.RunnerFunc(func(ctx context.Context, _ command.Invocation) error {
		calls.Add(1)
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	p, err := NewPool(1, runner, WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}

	outcomes, err := p.Run(ctx, items)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Errorf("runner called %d times, want 1", calls.Load())
	}
	if len(outcomes) != len(items) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(items))
	}
	for name, out := range outcomes {
		if out.Succeeded() {
			t.Errorf("%s should have failed", name)
		}
		if !errors.Is(out.Err, context.Canceled) {
			t.Errorf("%s: error %v does not wrap context.Canceled", name, out.Err)
		}
	}
	if len(rep.ticks) != len(items) {
		t.Errorf("got %d ticks, want %d", len(rep.ticks), len(items))
	}

	if stats := p.Stats(); stats.Failed != len(items) || stats.Succeeded != 0 {
		t.Errorf("Stats() = %+v, want all %d failed", stats, len(items))
	}
}

// pathlessCommand is an encode command that reports no output artifact.
type pathlessCommand struct{}

func (pathlessCommand) Invocation() command.Invocation {
	return command.Single(command.KindEncode, "aomenc", "-")
}
func (pathlessCommand) DryRun() string     { return "aomenc -" }
func (pathlessCommand) OutputPath() string { return "" }

func TestPool_OutcomesAreConsistent(t *testing.T) {
	items := makeItems(t, "001.mkv", "002.mkv", "003.mkv", "004.mkv")
	runner := command.RunnerFunc(func(_ context.Context, inv command.Invocation) error {
		if segmentOf(inv) == "002.mkv" {
			return &exec.ExitError{}
		}
		return nil
	})

	p, err := NewPool(2, runner)
	if err != nil {
		t.Fatal(err)
	}
	outcomes, err := p.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, item := range items {
		out := outcomes[item.Segment.Name]
		if err := out.Validate(); err != nil {
			t.Errorf("%s: inconsistent outcome: %v", item.Segment.Name, err)
		}
		if out.StartedAt.IsZero() || out.FinishedAt.Before(out.StartedAt) {
			t.Errorf("%s: bad timing %v..%v", item.Segment.Name, out.StartedAt, out.FinishedAt)
		}
		if out.Succeeded() && out.OutputPath != item.OutputPath() {
			t.Errorf("%s: output = %s, want %s", item.Segment.Name, out.OutputPath, item.OutputPath())
		}
	}
	if out := outcomes["002.mkv"]; out.Succeeded() {
		t.Error("002.mkv should have failed")
	}
}

func TestPool_MissingArtifactPathFails(t *testing.T) {
	seg, err := models.NewSegment("/work/split/001.mkv", 10)
	if err != nil {
		t.Fatal(err)
	}
	items := []queue.WorkItem{{Segment: *seg, Command: pathlessCommand{}}}
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error { return nil })

	p, err := NewPool(1, runner)
	if err != nil {
		t.Fatal(err)
	}
	outcomes, err := p.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := outcomes["001.mkv"]
	if out.Succeeded() {
		t.Fatal("an encode with no artifact path must not succeed")
	}
	if !errors.Is(out.Err, ErrEncodeFailed) {
		t.Errorf("error %v does not wrap ErrEncodeFailed", out.Err)
	}
	if err := out.Validate(); err != nil {
		t.Errorf("inconsistent outcome: %v", err)
	}
}

func TestPool_RejectsUnnamedSegment(t *testing.T) {
	items := []queue.WorkItem{{Command: pathlessCommand{}}}
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error { return nil })

	p, err := NewPool(1, runner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), items); err == nil {
		t.Error("expected error for a work item without a segment name")
	}
}

func TestPool_RejectsDuplicateSegments(t *testing.T) {
	items := makeItems(t, "001.mkv", "001.mkv")
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error { return nil })

	p, err := NewPool(1, runner)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), items); err == nil {
		t.Error("expected error for duplicate segment names")
	}
}

func TestPool_EmptyQueue(t *testing.T) {
	rep := &recordingReporter{}
	runner := command.RunnerFunc(func(context.Context, command.Invocation) error { return nil })

	p, err := NewPool(2, runner, WithReporter(rep))
	if err != nil {
		t.Fatal(err)
	}
	outcomes, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) != 0 || len(rep.ticks) != 0 || !rep.finished {
		t.Errorf("outcomes=%v ticks=%v finished=%v", outcomes, rep.ticks, rep.finished)
	}
}

func TestOutcomes_Failed(t *testing.T) {
	o := Outcomes{
		"003.mkv": {Segment: "003.mkv", State: models.StateFailed, Err: errors.New("x")},
		"001.mkv": {Segment: "001.mkv", State: models.StateSucceeded, OutputPath: "/e/001.mkv"},
		"002.mkv": {Segment: "002.mkv", State: models.StateFailed, Err: errors.New("y")},
	}
	if got := fmt.Sprint(o.Failed()); got != "[002.mkv 003.mkv]" {
		t.Errorf("Failed() = %s", got)
	}
}
