package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenesplit/command/video"
	"scenesplit/internal/logging"
	"scenesplit/progress"
	"scenesplit/queue"
)

// Validate checks if the configuration is valid. Every problem is reported,
// not just the first.
func (c *Config) Validate() error {
	var errors []string

	// Required fields
	if c.Input == "" {
		errors = append(errors, "input file is required")
	} else if info, err := os.Stat(c.Input); err != nil {
		errors = append(errors, fmt.Sprintf("input file does not exist: %s", c.Input))
	} else if info.IsDir() {
		errors = append(errors, fmt.Sprintf("input is a directory: %s", c.Input))
	}

	if c.Output == "" && c.OutputSuffix == "" {
		errors = append(errors, "output or output suffix is required")
	}
	if c.Input != "" && samePath(c.Input, c.OutputPath()) {
		errors = append(errors, "output must differ from input")
	}

	if len(video.ParseParams(c.EncodingParams)) == 0 {
		errors = append(errors, "encoding params cannot be empty")
	}
	if strings.TrimSpace(c.PixelFormat) == "" {
		errors = append(errors, "pixel format cannot be empty")
	}

	// 0 is valid, means estimate
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 to estimate from CPU and RAM)")
	}

	if _, err := queue.ParseTailPolicy(c.TailPolicy); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := progress.ParseMode(c.Progress); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Split.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("split config: %v", err))
	}
	if err := c.Tools.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("tools config: %v", err))
	}
	if err := c.Log.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("log config: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if split configuration is valid
func (sc *SplitConfig) Validate() error {
	var errors []string

	if !IsValidSplitMethod(sc.Method) {
		errors = append(errors, fmt.Sprintf("invalid method '%s', must be one of: %s",
			sc.Method, strings.Join(SplitMethodValues(), ", ")))
	}
	if sc.Threshold <= 0 {
		errors = append(errors, "threshold must be positive")
	}
	if sc.Interval <= 0 {
		errors = append(errors, "interval must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}
	return nil
}

// Validate checks every tool is named
func (tc *ToolsConfig) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"ffmpeg":      tc.FFmpeg,
		"ffprobe":     tc.FFprobe,
		"aomenc":      tc.Aomenc,
		"scenedetect": tc.Scenedetect,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s cannot be empty", strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks logger settings
func (lc *LogConfig) Validate() error {
	if _, err := logging.ParseLevel(lc.Level); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("invalid format '%s', must be console or json", lc.Format)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
