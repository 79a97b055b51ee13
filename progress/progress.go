// Package progress counts completed work items and fans tick events out to
// reporting sinks.
//
// The encode path never renders anything itself: the worker pool ticks the
// Counter once per item reaching a terminal state and forwards the event to a
// Reporter, which decides how (or whether) to show it.
package progress

import (
	"fmt"
	"sync/atomic"

	"scenesplit/models"
)

// Counter is a non-decreasing count of processed items against a total
// known up front. Safe for concurrent use.
type Counter struct {
	done  atomic.Int64
	total int64
}

// NewCounter creates a counter for total items.
func NewCounter(total int) *Counter {
	return &Counter{total: int64(total)}
}

// Tick records one processed item and returns the new count. Ticking past
// the total is a programming error and panics.
func (c *Counter) Tick() int {
	n := c.done.Add(1)
	if n > c.total {
		panic(fmt.Sprintf("progress: tick %d exceeds total %d", n, c.total))
	}
	return int(n)
}

// Done returns the number of processed items.
func (c *Counter) Done() int {
	return int(c.done.Load())
}

// Total returns the number of items expected.
func (c *Counter) Total() int {
	return int(c.total)
}

// Complete reports whether every item has been processed.
func (c *Counter) Complete() bool {
	return c.done.Load() == c.total
}

// Reporter receives progress events. Calls are made from a single
// goroutine, in order: Start, zero or more Tick, Finish.
type Reporter interface {
	Start(total int)
	Tick(done, total int, outcome models.Outcome)
	Finish()
}

// Nop discards all events.
type Nop struct{}

func (Nop) Start(int)                     {}
func (Nop) Tick(int, int, models.Outcome) {}
func (Nop) Finish()                       {}

// Multi forwards every event to each reporter in order.
type Multi []Reporter

func (m Multi) Start(total int) {
	for _, r := range m {
		r.Start(total)
	}
}

func (m Multi) Tick(done, total int, outcome models.Outcome) {
	for _, r := range m {
		r.Tick(done, total, outcome)
	}
}

func (m Multi) Finish() {
	for _, r := range m {
		r.Finish()
	}
}
