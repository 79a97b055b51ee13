// Package video builds the per-segment encode: ffmpeg decodes the segment to
// a raw y4m stream which is piped into aomenc.
package video

import (
	"path/filepath"
	"strings"

	"scenesplit/command"
	"scenesplit/models"
)

// DefaultParams are the aomenc settings used when none are configured.
const DefaultParams = "--passes=1 --tile-columns=2 --tile-rows=2 --cpu-used=8 --end-usage=q --cq-level=63 --aq-mode=0"

// DefaultPixelFormat is the decoded stream format handed to aomenc.
const DefaultPixelFormat = "yuv420p"

// EncodeBuilder builds the decode | encode pipe for one segment.
type EncodeBuilder struct {
	segment   models.Segment
	outputDir string

	ffmpeg      string
	encoder     string
	pixelFormat string
	params      []string
}

// NewEncodeBuilder creates a new EncodeBuilder for the segment. The encoded
// artifact is written to outputDir under the segment's own filename.
func NewEncodeBuilder(segment models.Segment, outputDir string) *EncodeBuilder {
	return &EncodeBuilder{
		segment:     segment,
		outputDir:   outputDir,
		ffmpeg:      "ffmpeg",
		encoder:     "aomenc",
		pixelFormat: DefaultPixelFormat,
		params:      ParseParams(DefaultParams),
	}
}

// ParseParams splits the raw encoder parameter string on whitespace.
// Values are forwarded verbatim, no validation is done.
func ParseParams(raw string) []string {
	return strings.Fields(raw)
}

// SetParams replaces the encoder parameters with the given raw string.
func (v *EncodeBuilder) SetParams(raw string) *EncodeBuilder {
	v.params = ParseParams(raw)
	return v
}

// SetFFmpegBinary overrides the decoder executable.
func (v *EncodeBuilder) SetFFmpegBinary(binary string) *EncodeBuilder {
	if binary != "" {
		v.ffmpeg = binary
	}
	return v
}

// SetEncoderBinary overrides the aomenc executable.
func (v *EncodeBuilder) SetEncoderBinary(binary string) *EncodeBuilder {
	if binary != "" {
		v.encoder = binary
	}
	return v
}

// SetPixelFormat sets the pixel format of the decoded stream.
func (v *EncodeBuilder) SetPixelFormat(pixfmt string) *EncodeBuilder {
	if pixfmt != "" {
		v.pixelFormat = pixfmt
	}
	return v
}

// Invocation returns the two-stage pipe.
func (v *EncodeBuilder) Invocation() command.Invocation {
	decode := command.Stage{
		Name: v.ffmpeg,
		Args: []string{
			"-hide_banner", "-loglevel", "warning",
			"-i", v.segment.Path,
			"-pix_fmt", v.pixelFormat,
			"-f", "yuv4mpegpipe",
			"-",
		},
	}

	encodeArgs := make([]string, 0, len(v.params)+4)
	encodeArgs = append(encodeArgs, "-q")
	encodeArgs = append(encodeArgs, v.params...)
	encodeArgs = append(encodeArgs, "-o", v.OutputPath(), "-")

	return command.Pipe(command.KindEncode, decode, command.Stage{Name: v.encoder, Args: encodeArgs})
}

// DryRun returns the pipe as a display string.
func (v *EncodeBuilder) DryRun() string {
	return v.Invocation().String()
}

// OutputPath returns the encoded artifact path.
func (v *EncodeBuilder) OutputPath() string {
	return filepath.Join(v.outputDir, v.segment.Name)
}
