package pipeline

import (
	"path/filepath"

	"scenesplit/concatenator"
	"scenesplit/config"
	"scenesplit/models"
)

const placeholderDir = "<workspace>"

// Step is one external command of a run, for display.
type Step struct {
	Name    string
	Command string
}

// DryRunSteps lists the commands a run of cfg would execute, with the
// workspace and the segment shown as placeholders.
func DryRunSteps(cfg *config.Config) []Step {
	splitDir := filepath.Join(placeholderDir, "split")
	encodeDir := filepath.Join(placeholderDir, "encode")
	audioPath := filepath.Join(placeholderDir, "audio.mkv")
	manifest := filepath.Join(placeholderDir, "concat.txt")

	seg := models.Segment{Name: "<segment>", Path: filepath.Join(splitDir, "<segment>")}
	concat := concatenator.NewConcatenator(nil, manifest).SetBinary(cfg.Tools.FFmpeg)

	return []Step{
		{Name: "split (" + cfg.Split.Method + ")", Command: SplitCommand(cfg, splitDir).DryRun()},
		{Name: "audio", Command: AudioCommand(cfg, audioPath).DryRun()},
		{Name: "encode (per segment)", Command: EncodeFactory(cfg, encodeDir)(seg).DryRun()},
		{Name: "reassemble", Command: concat.Command(audioPath, cfg.OutputPath()).DryRun()},
	}
}
