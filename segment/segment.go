// Package segment discovers the files produced by scene segmentation.
package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenesplit/models"
)

// ErrSegmentationOutputMissing means segmentation produced nothing usable:
// the output directory is absent or holds no segment files. There is nothing
// to transcode, so the run must stop.
var ErrSegmentationOutputMissing = errors.New("segmentation output missing")

// Enumerate lists the segment files in dir with their byte sizes.
//
// The result is sorted by filename, which is the temporal order the splitter
// encodes in its names. Directory iteration order is never relied upon.
// Hidden files and subdirectories are skipped. Segment content is not read,
// sizes come from stat only.
func Enumerate(dir string) ([]models.Segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrSegmentationOutputMissing, dir)
		}
		return nil, fmt.Errorf("read segment directory %s: %w", dir, err)
	}

	segments := make([]models.Segment, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat segment %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		seg, err := models.NewSegment(filepath.Join(dir, entry.Name()), info.Size())
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments in %s", ErrSegmentationOutputMissing, dir)
	}

	SortByName(segments)
	return segments, nil
}

// SortByName orders segments by filename, i.e. by temporal position.
func SortByName(segments []models.Segment) {
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Name < segments[j].Name
	})
}

// TotalSize returns the summed byte size of the segments.
func TotalSize(segments []models.Segment) int64 {
	var total int64
	for _, s := range segments {
		total += s.Size
	}
	return total
}

// ValidateSegments checks a segment list for emptiness, duplicate names and
// per-segment validity.
func ValidateSegments(segments []models.Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("segment list is empty")
	}

	seen := make(map[string]int, len(segments))
	for i, s := range segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d is invalid: %w", i, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return fmt.Errorf("segments %d and %d share the name %s", prev, i, s.Name)
		}
		seen[s.Name] = i
	}

	return nil
}
