package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// stderrTailBytes bounds how much of a failing process' stderr is kept.
const stderrTailBytes = 4096

// Runner executes invocations. Implementations must block until every stage
// has exited and must report a non-nil error when any stage fails.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) error

// Run calls f(ctx, inv).
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// ExitError reports a stage that ran but exited unsuccessfully.
type ExitError struct {
	Stage  string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Stage, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means a binary could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// ExecRunner runs invocations as OS processes.
//
// Context cancellation kills every stage of the invocation.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewExecRunner creates a runner that logs each invocation at debug level.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecRunner{Logger: logger}
}

// Run executes all stages, piping them together, and waits for all of them.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	if len(inv.Stages) == 0 {
		return fmt.Errorf("empty invocation")
	}

	r.logger().Debug("exec", slog.String("kind", string(inv.Kind)), slog.String("command", inv.String()))

	cmds := make([]*exec.Cmd, len(inv.Stages))
	tails := make([]*tailBuffer, len(inv.Stages))
	for i, st := range inv.Stages {
		path, err := exec.LookPath(st.Name)
		if err != nil {
			return fmt.Errorf("start %s: %w", st.Name, err)
		}
		cmd := exec.CommandContext(ctx, path, st.Args...)
		tails[i] = &tailBuffer{limit: stderrTailBytes}
		cmd.Stderr = tails[i]
		cmds[i] = cmd
	}

	// Parent copies of pipe ends, closed once the children hold them.
	var parentEnds []*os.File
	closeParentEnds := func() {
		for _, f := range parentEnds {
			f.Close()
		}
		parentEnds = nil
	}
	for i := 0; i < len(cmds)-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			closeParentEnds()
			return fmt.Errorf("create pipe: %w", err)
		}
		cmds[i].Stdout = pw
		cmds[i+1].Stdin = pr
		parentEnds = append(parentEnds, pr, pw)
	}

	started := 0
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			closeParentEnds()
			for _, running := range cmds[:started] {
				_ = running.Process.Kill()
				_ = running.Wait()
			}
			return fmt.Errorf("start %s: %w", inv.Stages[i].Name, err)
		}
		started++
	}
	closeParentEnds()

	var errs []error
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			errs = append(errs, stageError(inv.Stages[i].Name, err, tails[i]))
		}
	}
	if len(errs) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s interrupted: %w", inv.Kind, ctxErr)
		}
		return errors.Join(errs...)
	}
	return nil
}

// Output runs a single stage and returns its standard output.
func (r *ExecRunner) Output(ctx context.Context, st Stage) ([]byte, error) {
	path, err := exec.LookPath(st.Name)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", st.Name, err)
	}
	r.logger().Debug("exec", slog.String("command", st.String()))

	tail := &tailBuffer{limit: stderrTailBytes}
	cmd := exec.CommandContext(ctx, path, st.Args...)
	cmd.Stderr = tail
	out, err := cmd.Output()
	if err != nil {
		return nil, stageError(st.Name, err, tail)
	}
	return out, nil
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func stageError(name string, err error, tail *tailBuffer) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Stage:  name,
			Code:   exitErr.ExitCode(),
			Stderr: tail.String(),
			Err:    err,
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}
