// Package models provides core data structures for the encoder system.
package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Segment represents one scene-bounded piece of the source video.
//
// Segments are produced by the external scene splitter and discovered by
// the segment enumerator. Name is the segment identity: it is unique within
// a run and its lexicographic order equals the temporal order of the scenes
// (the splitter writes zero-padded sequence numbers).
//
// Size is the on-disk byte size. It is only a proxy for encode cost and is
// never used for correctness.
type Segment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// NewSegment creates a new Segment with validation.
//
// The name is taken from the base of path.
//
// Example:
//
//	seg, err := models.NewSegment("/tmp/run/split/input-Scene-001.mkv", 1048576)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewSegment(path string, size int64) (*Segment, error) {
	s := &Segment{
		Name: filepath.Base(path),
		Path: path,
		Size: size,
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segment: %w", err)
	}

	return s, nil
}

// Validate checks if the Segment has valid data.
//
// Returns an error if:
//   - Path is empty or whitespace-only
//   - Name is empty or does not match the base of Path
//   - Size is negative
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if s.Name != filepath.Base(s.Path) {
		return fmt.Errorf("name %q does not match path %q", s.Name, s.Path)
	}

	if s.Size < 0 {
		return fmt.Errorf("size cannot be negative")
	}

	return nil
}
