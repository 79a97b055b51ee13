package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"scenesplit/progress"
	"scenesplit/queue"
)

// Flag names.
const (
	FlagInput          = "input_file"
	FlagOutput         = "output"
	FlagEncodingParams = "encoding_params"
	FlagPixelFormat    = "pix_fmt"
	FlagWorkers        = "num_worker"
	FlagConfig         = "config"
	FlagTailPolicy     = "tail_policy"
	FlagSplitMethod    = "split_method"
	FlagThreshold      = "threshold"
	FlagInterval       = "interval"
	FlagWorkspace      = "workspace"
	FlagProgress       = "progress"
	FlagLogLevel       = "log_level"
	FlagLogFormat      = "log_format"
	FlagDryRun         = "dry-run"
	FlagSaveConfig     = "save_config"
)

// RegisterFlags defines every configuration flag on fs. Defaults shown in
// help come from DefaultConfig; only flags the user actually sets are merged.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP(FlagInput, "i", "", "Input video file path (required)")
	fs.StringP(FlagOutput, "o", "", "Output file path (default: <input name>"+d.OutputSuffix+" next to the input)")
	fs.StringP(FlagConfig, "c", "", "Path to config file (default: search ./scenesplit.yaml, ~/.scenesplit/config.yaml, /etc/scenesplit/config.yaml)")

	fs.String(FlagEncodingParams, d.EncodingParams, "aomenc parameters, forwarded verbatim")
	fs.String(FlagPixelFormat, d.PixelFormat, "Pixel format of the stream decoded for aomenc")
	fs.IntP(FlagWorkers, "t", 0, "Number of parallel encoders (default: min(CPUs, RAM GiB / 2))")
	fs.String(FlagTailPolicy, d.TailPolicy, "Smallest segment handling: "+strings.Join(queue.TailPolicyValues(), ", "))

	fs.String(FlagSplitMethod, d.Split.Method, "Segmentation method: "+strings.Join(SplitMethodValues(), ", "))
	fs.Int(FlagThreshold, d.Split.Threshold, "Scene detection threshold")
	fs.Int(FlagInterval, d.Split.Interval, "Segment length in seconds for interval splitting")

	fs.String(FlagWorkspace, "", "Directory for temporary files (default: OS temp dir)")
	fs.String(FlagProgress, d.Progress, "Progress display: "+strings.Join(progress.ModeValues(), ", "))
	fs.String(FlagLogLevel, d.Log.Level, "Log level: debug, info, warn, error")
	fs.String(FlagLogFormat, d.Log.Format, "Log format: console, json")
	fs.Bool(FlagDryRun, false, "Show configuration and plan without encoding")
	fs.String(FlagSaveConfig, "", "Write the effective configuration to this .yaml or .toml file and exit")
}

// MergeFromFlags overrides config values with the flags explicitly set on fs.
func (c *Config) MergeFromFlags(fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetString(name)
	}
	num := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}

	str(FlagInput, &c.Input)
	str(FlagOutput, &c.Output)
	str(FlagEncodingParams, &c.EncodingParams)
	str(FlagPixelFormat, &c.PixelFormat)
	num(FlagWorkers, &c.Workers)
	str(FlagTailPolicy, &c.TailPolicy)
	str(FlagSplitMethod, &c.Split.Method)
	num(FlagThreshold, &c.Split.Threshold)
	num(FlagInterval, &c.Split.Interval)
	str(FlagWorkspace, &c.Workspace)
	str(FlagProgress, &c.Progress)
	str(FlagLogLevel, &c.Log.Level)
	str(FlagLogFormat, &c.Log.Format)
	if err == nil && fs.Changed(FlagDryRun) {
		c.DryRun, err = fs.GetBool(FlagDryRun)
	}
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}

	// An explicit worker count replaces the estimate, so 0 is not "auto" here.
	if fs.Changed(FlagWorkers) && c.Workers <= 0 {
		return fmt.Errorf("--%s must be greater than 0, got %d", FlagWorkers, c.Workers)
	}

	return nil
}
