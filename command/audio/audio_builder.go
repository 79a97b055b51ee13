// Package audio builds the audio extraction command: the original audio is
// copied out of the source once, before reassembly, and never re-encoded.
package audio

import (
	"scenesplit/command"
)

// ExtractBuilder builds an ffmpeg stream-copy extraction of all audio.
type ExtractBuilder struct {
	binary     string
	input      string
	outputPath string
}

// NewExtractBuilder creates a new ExtractBuilder for the given source and
// output container path.
func NewExtractBuilder(input, outputPath string) *ExtractBuilder {
	return &ExtractBuilder{
		binary:     "ffmpeg",
		input:      input,
		outputPath: outputPath,
	}
}

// SetBinary overrides the ffmpeg executable.
func (a *ExtractBuilder) SetBinary(binary string) *ExtractBuilder {
	if binary != "" {
		a.binary = binary
	}
	return a
}

// Invocation returns the ffmpeg argument vector.
func (a *ExtractBuilder) Invocation() command.Invocation {
	return command.Single(command.KindAudio, a.binary,
		"-hide_banner", "-loglevel", "warning",
		"-i", a.input,
		"-vn",
		"-map", "0:a",
		"-acodec", "copy",
		"-y", a.outputPath,
	)
}

// DryRun returns the command string without executing.
func (a *ExtractBuilder) DryRun() string {
	return a.Invocation().String()
}

// OutputPath returns the audio container path.
func (a *ExtractBuilder) OutputPath() string {
	return a.outputPath
}
