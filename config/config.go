package config

import (
	"scenesplit/command/split"
	"scenesplit/command/video"
	"scenesplit/concatenator"
	"scenesplit/progress"
	"scenesplit/queue"
)

// Split methods.
const (
	SplitScene    = "scene"    // scenedetect content detection
	SplitInterval = "interval" // fixed-length ffmpeg segments
)

// Config holds all transcoder configuration options
type Config struct {
	// Required fields
	Input string `yaml:"input" toml:"input"`

	// Output path. Empty derives <input dir>/<input name><output_suffix>.
	Output       string `yaml:"output" toml:"output"`
	OutputSuffix string `yaml:"output_suffix" toml:"output_suffix"`

	// Execution settings
	EncodingParams string `yaml:"encoding_params" toml:"encoding_params"` // forwarded verbatim to aomenc
	PixelFormat    string `yaml:"pixel_format" toml:"pixel_format"`       // decoded stream format piped to aomenc
	Workers        int    `yaml:"workers" toml:"workers"`                 // 0 = estimate from CPU and RAM
	TailPolicy     string `yaml:"tail_policy" toml:"tail_policy"`
	Workspace      string `yaml:"workspace" toml:"workspace"` // scratch root, empty = OS temp dir

	Split SplitConfig `yaml:"split" toml:"split"`
	Tools ToolsConfig `yaml:"tools" toml:"tools"`
	Log   LogConfig   `yaml:"log" toml:"log"`

	// Behavioral flags
	Progress string `yaml:"progress" toml:"progress"` // auto, bar, log, both, none
	DryRun   bool   `yaml:"dry_run" toml:"dry_run"`   // Show plan without encoding
}

// SplitConfig holds segmentation settings
type SplitConfig struct {
	Method    string `yaml:"method" toml:"method"`       // scene or interval
	Threshold int    `yaml:"threshold" toml:"threshold"` // scene detection threshold
	Interval  int    `yaml:"interval" toml:"interval"`   // seconds per segment for interval splitting
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	FFmpeg      string `yaml:"ffmpeg" toml:"ffmpeg"`
	FFprobe     string `yaml:"ffprobe" toml:"ffprobe"`
	Aomenc      string `yaml:"aomenc" toml:"aomenc"`
	Scenedetect string `yaml:"scenedetect" toml:"scenedetect"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputSuffix:   concatenator.DefaultSuffix,
		EncodingParams: video.DefaultParams,
		PixelFormat:    video.DefaultPixelFormat,
		Workers:        0,
		TailPolicy:     string(queue.TailExcludeSmallest),

		Split: SplitConfig{
			Method:    SplitScene,
			Threshold: split.DefaultThreshold,
			Interval:  split.DefaultInterval,
		},

		Tools: ToolsConfig{
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
			Aomenc:      "aomenc",
			Scenedetect: "scenedetect",
		},

		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},

		Progress: string(progress.ModeAuto),
	}
}

// OutputPath returns the configured output or the one derived from Input.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return concatenator.OutputPath(c.Input, c.OutputSuffix)
}

// SplitMethodValues returns valid split methods
func SplitMethodValues() []string {
	return []string{SplitScene, SplitInterval}
}

// IsValidSplitMethod checks if method is valid
func IsValidSplitMethod(method string) bool {
	for _, valid := range SplitMethodValues() {
		if method == valid {
			return true
		}
	}
	return false
}
