// Package split builds the external segmentation commands that cut the
// source video into scene-bounded segment files.
//
// Both builders write into a single output directory and name segments so
// that lexicographic filename order equals temporal order.
package split

import (
	"path/filepath"
	"strconv"

	"scenesplit/command"
)

const (
	// DefaultThreshold is the content-detector threshold passed to scenedetect.
	DefaultThreshold = 50

	// DefaultInterval is the segment length in seconds for interval splitting.
	DefaultInterval = 60

	// IntervalPattern is the segment filename pattern used by IntervalBuilder.
	IntervalPattern = "segment_%05d.mkv"
)

// SceneBuilder builds a PySceneDetect content-detection split.
//
// scenedetect names its output <input>-Scene-NNN.mp4, which sorts in
// temporal order.
type SceneBuilder struct {
	binary    string
	input     string
	outputDir string
	threshold int
}

// NewSceneBuilder creates a new SceneBuilder.
func NewSceneBuilder(input, outputDir string) *SceneBuilder {
	return &SceneBuilder{
		binary:    "scenedetect",
		input:     input,
		outputDir: outputDir,
		threshold: DefaultThreshold,
	}
}

// SetBinary overrides the scenedetect executable.
func (s *SceneBuilder) SetBinary(binary string) *SceneBuilder {
	if binary != "" {
		s.binary = binary
	}
	return s
}

// SetThreshold sets the detect-content threshold.
func (s *SceneBuilder) SetThreshold(threshold int) *SceneBuilder {
	s.threshold = threshold
	return s
}

// Invocation returns the scenedetect argument vector.
// split-video -c stream-copies segments, no re-encode happens here.
func (s *SceneBuilder) Invocation() command.Invocation {
	return command.Single(command.KindSplit, s.binary,
		"-q",
		"-i", s.input,
		"--output", s.outputDir,
		"detect-content", "--threshold", strconv.Itoa(s.threshold),
		"split-video", "-c",
	)
}

// DryRun returns the command string without executing.
func (s *SceneBuilder) DryRun() string {
	return s.Invocation().String()
}

// OutputPath returns the segment directory.
func (s *SceneBuilder) OutputPath() string {
	return s.outputDir
}

// IntervalBuilder splits the video stream into fixed-length pieces with
// ffmpeg's segment muxer. Cuts land on the nearest keyframe.
type IntervalBuilder struct {
	binary    string
	input     string
	outputDir string
	interval  int
}

// NewIntervalBuilder creates a new IntervalBuilder.
func NewIntervalBuilder(input, outputDir string) *IntervalBuilder {
	return &IntervalBuilder{
		binary:    "ffmpeg",
		input:     input,
		outputDir: outputDir,
		interval:  DefaultInterval,
	}
}

// SetBinary overrides the ffmpeg executable.
func (b *IntervalBuilder) SetBinary(binary string) *IntervalBuilder {
	if binary != "" {
		b.binary = binary
	}
	return b
}

// SetInterval sets the segment length in seconds.
func (b *IntervalBuilder) SetInterval(seconds int) *IntervalBuilder {
	b.interval = seconds
	return b
}

// Invocation returns the ffmpeg segment muxer argument vector.
// Only the first video stream is kept; audio is extracted separately.
func (b *IntervalBuilder) Invocation() command.Invocation {
	return command.Single(command.KindSplit, b.binary,
		"-hide_banner", "-loglevel", "warning",
		"-i", b.input,
		"-map", "0:v:0",
		"-c", "copy",
		"-an",
		"-f", "segment",
		"-segment_format", "matroska",
		"-segment_time", strconv.Itoa(b.interval),
		"-reset_timestamps", "1",
		filepath.Join(b.outputDir, IntervalPattern),
	)
}

// DryRun returns the command string without executing.
func (b *IntervalBuilder) DryRun() string {
	return b.Invocation().String()
}

// OutputPath returns the segment directory.
func (b *IntervalBuilder) OutputPath() string {
	return b.outputDir
}
