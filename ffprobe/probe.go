// Package ffprobe reads container and stream metadata of the source file.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"scenesplit/command"
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Channels  int    `json:"channels,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// GetDuration returns the duration of the media file in seconds.
func (pr *ProbeResult) GetDuration() (float64, error) {
	if pr.Format.Duration == "" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	duration, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}

	return duration, nil
}

// VideoStreams returns all video streams.
func (pr *ProbeResult) VideoStreams() []Stream {
	return pr.streamsOf("video")
}

// AudioStreams returns all audio streams.
func (pr *ProbeResult) AudioStreams() []Stream {
	return pr.streamsOf("audio")
}

// HasAudio reports whether the file carries at least one audio stream.
func (pr *ProbeResult) HasAudio() bool {
	return len(pr.AudioStreams()) > 0
}

func (pr *ProbeResult) streamsOf(codecType string) []Stream {
	var out []Stream
	for _, s := range pr.Streams {
		if s.CodecType == codecType {
			out = append(out, s)
		}
	}
	return out
}

// ParseOutput decodes ffprobe's JSON output.
func ParseOutput(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// Prober extracts metadata from a media file.
type Prober interface {
	Probe(ctx context.Context, sourcePath string) (*ProbeResult, error)
}

// OutputRunner runs a single process and returns its stdout.
// *command.ExecRunner satisfies it.
type OutputRunner interface {
	Output(ctx context.Context, st command.Stage) ([]byte, error)
}

// Client probes files with the ffprobe binary.
type Client struct {
	runner OutputRunner
	binary string
}

// NewClient creates a Client. An empty binary means "ffprobe".
func NewClient(runner OutputRunner, binary string) *Client {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Client{runner: runner, binary: binary}
}

// Stage returns the ffprobe process description for sourcePath.
func (c *Client) Stage(sourcePath string) command.Stage {
	return command.Stage{
		Name: c.binary,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_streams",
			"-show_format",
			sourcePath,
		},
	}
}

// Probe runs ffprobe on sourcePath.
func (c *Client) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	output, err := c.runner.Output(ctx, c.Stage(sourcePath))
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseOutput(output)
}
