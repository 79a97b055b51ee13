package progress

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"scenesplit/models"
)

// Mode selects a reporter.
type Mode string

const (
	ModeAuto Mode = "auto" // bar on a terminal, log lines otherwise
	ModeBar  Mode = "bar"
	ModeLog  Mode = "log"
	ModeBoth Mode = "both" // bar and log lines
	ModeNone Mode = "none"
)

// ModeValues returns the accepted mode names.
func ModeValues() []string {
	return []string{string(ModeAuto), string(ModeBar), string(ModeLog), string(ModeBoth), string(ModeNone)}
}

// ParseMode parses a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeBar, ModeLog, ModeBoth, ModeNone:
		return m, nil
	default:
		return "", fmt.Errorf("invalid progress mode %q, must be one of: %s", s, strings.Join(ModeValues(), ", "))
	}
}

// Select returns the reporter for mode writing to w.
func Select(mode Mode, w io.Writer, logger *slog.Logger) Reporter {
	switch mode {
	case ModeNone:
		return Nop{}
	case ModeLog:
		return NewLogReporter(logger)
	case ModeBar:
		return NewBarReporter(w)
	case ModeBoth:
		return Multi{NewBarReporter(w), NewLogReporter(logger)}
	default:
		if isTerminal(w) {
			return NewBarReporter(w)
		}
		return NewLogReporter(logger)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// LogReporter writes one structured log line per processed item.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Start(total int) {
	r.logger.Info("encoding started", slog.Int("segments", total))
}

func (r *LogReporter) Tick(done, total int, outcome models.Outcome) {
	attrs := []any{
		slog.Int("done", done),
		slog.Int("total", total),
		slog.String("segment", outcome.Segment),
		slog.Duration("took", outcome.Duration()),
	}
	if outcome.Succeeded() {
		r.logger.Info("segment encoded", attrs...)
		return
	}
	attrs = append(attrs, slog.Any("error", outcome.Err))
	r.logger.Warn("segment failed", attrs...)
}

func (r *LogReporter) Finish() {}

// BarReporter renders a terminal progress bar.
type BarReporter struct {
	w      io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

// NewBarReporter creates a BarReporter drawing to w.
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) Start(total int) {
	r.failed = 0
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("Encoding"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.w)
		}),
	)
}

func (r *BarReporter) Tick(done, total int, outcome models.Outcome) {
	if r.bar == nil {
		return
	}
	if !outcome.Succeeded() {
		r.failed++
		r.bar.Describe(fmt.Sprintf("Encoding (%d failed)", r.failed))
	}
	_ = r.bar.Add(1)
}

func (r *BarReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
}
