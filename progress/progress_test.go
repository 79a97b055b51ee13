package progress

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scenesplit/models"
)

func TestCounter_ConcurrentTicks(t *testing.T) {
	c := NewCounter(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Done())
	assert.Equal(t, 100, c.Total())
	assert.True(t, c.Complete())
}

func TestCounter_TickReturnsCount(t *testing.T) {
	c := NewCounter(3)
	assert.Equal(t, 1, c.Tick())
	assert.Equal(t, 2, c.Tick())
	assert.False(t, c.Complete())
	assert.Equal(t, 3, c.Tick())
	assert.Panics(t, func() { c.Tick() })
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "auto": ModeAuto, "BAR": ModeBar, " log ": ModeLog, "both": ModeBoth, "none": ModeNone} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("spinner")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.IsType(t, Nop{}, Select(ModeNone, &buf, logger))
	assert.IsType(t, &LogReporter{}, Select(ModeLog, &buf, logger))
	assert.IsType(t, &BarReporter{}, Select(ModeBar, &buf, logger))
	// a buffer is never a terminal
	assert.IsType(t, &LogReporter{}, Select(ModeAuto, &buf, logger))

	both, ok := Select(ModeBoth, &buf, logger).(Multi)
	require.True(t, ok)
	require.Len(t, both, 2)
	assert.IsType(t, &BarReporter{}, both[0])
	assert.IsType(t, &LogReporter{}, both[1])
}

func TestSelect_BothDrivesBarAndLog(t *testing.T) {
	var bar, logs bytes.Buffer
	r := Select(ModeBoth, &bar, slog.New(slog.NewTextHandler(&logs, nil)))

	r.Start(1)
	r.Tick(1, 1, models.Outcome{Segment: "001.mkv", State: models.StateSucceeded, OutputPath: "/e/001.mkv"})
	r.Finish()

	assert.Contains(t, bar.String(), "Encoding")
	assert.Contains(t, logs.String(), "segment=001.mkv")
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	r.Start(2)
	r.Tick(1, 2, models.Outcome{Segment: "001.mkv", State: models.StateSucceeded, OutputPath: "/e/001.mkv"})
	r.Tick(2, 2, models.Outcome{Segment: "002.mkv", State: models.StateFailed, Err: errors.New("boom")})
	r.Finish()

	out := buf.String()
	assert.Contains(t, out, "segments=2")
	assert.Contains(t, out, "segment=001.mkv")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "done=2 total=2")
}

func TestBarReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	// ticks before Start are ignored
	r.Tick(1, 1, models.Outcome{})

	r.Start(2)
	r.Tick(1, 2, models.Outcome{Segment: "001.mkv", State: models.StateSucceeded, OutputPath: "x"})
	r.Tick(2, 2, models.Outcome{Segment: "002.mkv", State: models.StateFailed, Err: errors.New("x")})
	r.Finish()

	assert.Equal(t, 1, r.failed)
	assert.Contains(t, buf.String(), "Encoding")
}

type countingReporter struct {
	starts, ticks, finishes int
}

func (c *countingReporter) Start(int)                     { c.starts++ }
func (c *countingReporter) Tick(int, int, models.Outcome) { c.ticks++ }
func (c *countingReporter) Finish()                       { c.finishes++ }

func TestMulti(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	m := Multi{a, b, Nop{}}

	m.Start(1)
	m.Tick(1, 1, models.Outcome{})
	m.Finish()

	for _, c := range []*countingReporter{a, b} {
		assert.Equal(t, 1, c.starts)
		assert.Equal(t, 1, c.ticks)
		assert.Equal(t, 1, c.finishes)
	}
}
