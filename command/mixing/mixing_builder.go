package mixing

import (
	"scenesplit/command"
)

// RemuxBuilder constructs the final ffmpeg call that concatenates encoded
// segments listed in a concat-demuxer manifest and muxes the extracted audio
// next to them. Both streams are copied, nothing is re-encoded.
type RemuxBuilder struct {
	binary       string
	manifestPath string
	audioPath    string
	outputPath   string
}

// NewRemuxBuilder creates a new RemuxBuilder.
// manifestPath: ffmpeg concat list (required)
// outputPath: final container (required)
func NewRemuxBuilder(manifestPath, outputPath string) *RemuxBuilder {
	return &RemuxBuilder{
		binary:       "ffmpeg",
		manifestPath: manifestPath,
		outputPath:   outputPath,
	}
}

// SetBinary overrides the ffmpeg executable.
func (m *RemuxBuilder) SetBinary(binary string) *RemuxBuilder {
	if binary != "" {
		m.binary = binary
	}
	return m
}

// SetAudioTrack sets the audio container to mux in. Empty means video only.
func (m *RemuxBuilder) SetAudioTrack(audioPath string) *RemuxBuilder {
	m.audioPath = audioPath
	return m
}

// Invocation returns the ffmpeg argument vector.
func (m *RemuxBuilder) Invocation() command.Invocation {
	args := []string{
		"-hide_banner", "-loglevel", "warning",
		"-f", "concat",
		"-safe", "0",
		"-i", m.manifestPath,
	}

	if m.audioPath != "" {
		args = append(args, "-i", m.audioPath)
	}

	args = append(args, "-map", "0:v")
	if m.audioPath != "" {
		args = append(args, "-map", "1:a")
	}

	args = append(args,
		"-c", "copy",
		"-y", m.outputPath,
	)

	return command.Single(command.KindRemux, m.binary, args...)
}

// DryRun returns the command that would be executed without running it.
func (m *RemuxBuilder) DryRun() string {
	return m.Invocation().String()
}

// OutputPath returns the final container path.
func (m *RemuxBuilder) OutputPath() string {
	return m.outputPath
}
