// Package queue turns enumerated segments into the ordered list of work
// items the worker pool consumes.
//
// Items are dispatched largest first (longest-processing-time-first): the
// biggest segments are assumed to take the longest to encode, so starting
// them early keeps a single slow segment from stretching the tail of the run.
package queue

import (
	"fmt"
	"sort"
	"strings"

	"scenesplit/command"
	"scenesplit/models"
	"scenesplit/segment"
)

// TailPolicy controls whether the smallest segment joins the queue.
type TailPolicy string

const (
	// TailExcludeSmallest leaves exactly one smallest segment out of the
	// queue. The excluded segment is also absent from the final output.
	TailExcludeSmallest TailPolicy = "exclude-smallest"

	// TailInclude queues every segment.
	TailInclude TailPolicy = "include"
)

// TailPolicyValues returns the accepted policy names.
func TailPolicyValues() []string {
	return []string{string(TailExcludeSmallest), string(TailInclude)}
}

// ParseTailPolicy parses a policy name. Empty means the default.
func ParseTailPolicy(s string) (TailPolicy, error) {
	switch TailPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", TailExcludeSmallest:
		return TailExcludeSmallest, nil
	case TailInclude:
		return TailInclude, nil
	default:
		return "", fmt.Errorf("invalid tail policy %q, must be one of: %s", s, strings.Join(TailPolicyValues(), ", "))
	}
}

// WorkItem pairs a segment with the command that encodes it. It is built
// once by Build and never modified afterwards.
type WorkItem struct {
	Segment models.Segment
	Command command.Command
}

// OutputPath returns the encoded artifact path of the item.
func (w WorkItem) OutputPath() string {
	return w.Command.OutputPath()
}

// Plan is the dispatch order plus whatever the tail policy held back.
type Plan struct {
	Items    []WorkItem
	Excluded []models.Segment
}

// Segments returns the queued segments in dispatch order.
func (p Plan) Segments() []models.Segment {
	segs := make([]models.Segment, len(p.Items))
	for i, item := range p.Items {
		segs[i] = item.Segment
	}
	return segs
}

// Order returns a copy of segments sorted by size, largest first. Equal
// sizes are ordered by filename so the result is the same on every call.
func Order(segments []models.Segment) []models.Segment {
	ordered := make([]models.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Size != ordered[j].Size {
			return ordered[i].Size > ordered[j].Size
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// Build orders the segments, applies the tail policy and creates one work
// item per remaining segment with newCommand.
//
// The tail policy never excludes the only segment of a run.
func Build(segments []models.Segment, policy TailPolicy, newCommand func(models.Segment) command.Command) (Plan, error) {
	if newCommand == nil {
		return Plan{}, fmt.Errorf("command factory cannot be nil")
	}
	if err := segment.ValidateSegments(segments); err != nil {
		return Plan{}, err
	}
	if _, err := ParseTailPolicy(string(policy)); err != nil {
		return Plan{}, err
	}

	ordered := Order(segments)

	var plan Plan
	if policy != TailInclude && len(ordered) > 1 {
		last := len(ordered) - 1
		plan.Excluded = []models.Segment{ordered[last]}
		ordered = ordered[:last]
	}

	plan.Items = make([]WorkItem, len(ordered))
	for i, seg := range ordered {
		cmd := newCommand(seg)
		if cmd == nil {
			return Plan{}, fmt.Errorf("no command built for segment %s", seg.Name)
		}
		plan.Items[i] = WorkItem{Segment: seg, Command: cmd}
	}

	return plan, nil
}
