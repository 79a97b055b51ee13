// Package concatenator merges encoded segments and the extracted audio into
// the final output file.
package concatenator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"scenesplit/command"
	"scenesplit/command/mixing"
	"scenesplit/models"
)

// DefaultSuffix is appended to the input base name to form the output path.
const DefaultSuffix = "_av1.webm"

var (
	// ErrIncompleteTranscode means at least one segment has no encoded
	// artifact, so the output cannot be assembled.
	ErrIncompleteTranscode = errors.New("incomplete transcode")

	// ErrReassemblyFailed means the concat and remux step itself failed.
	ErrReassemblyFailed = errors.New("reassembly failed")
)

// Concatenator handles merging encoded segments into a final output file
type Concatenator struct {
	runner       command.Runner
	binary       string
	manifestPath string
	logger       *slog.Logger
}

// NewConcatenator creates a concatenator writing its manifest to manifestPath.
func NewConcatenator(runner command.Runner, manifestPath string) *Concatenator {
	return &Concatenator{
		runner:       runner,
		binary:       "ffmpeg",
		manifestPath: manifestPath,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetBinary overrides the ffmpeg executable.
func (c *Concatenator) SetBinary(binary string) *Concatenator {
	if binary != "" {
		c.binary = binary
	}
	return c
}

// SetLogger sets the logger.
func (c *Concatenator) SetLogger(logger *slog.Logger) *Concatenator {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Command returns the remux command Reassemble would run.
func (c *Concatenator) Command(audioPath, outputPath string) command.Command {
	return mixing.NewRemuxBuilder(c.manifestPath, outputPath).
		SetBinary(c.binary).
		SetAudioTrack(audioPath)
}

// Reassemble concatenates every encoded segment in filename order and muxes
// audioPath (if any) next to it. Nothing is executed unless every outcome
// succeeded and every artifact exists.
func (c *Concatenator) Reassemble(ctx context.Context, outcomes map[string]models.Outcome, audioPath, outputPath string) error {
	entries, err := BuildManifest(outcomes)
	if err != nil {
		return err
	}

	if err := verifyEntries(entries); err != nil {
		return err
	}

	if err := WriteManifest(c.manifestPath, entries); err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}

	cmd := c.Command(audioPath, outputPath)
	c.logger.Info("reassembling output",
		slog.Int("segments", len(entries)),
		slog.Bool("audio", audioPath != ""),
		slog.String("output", outputPath))

	if err := c.runner.Run(ctx, cmd.Invocation()); err != nil {
		return fmt.Errorf("%w: %w", ErrReassemblyFailed, err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("%w: output file not created: %w", ErrReassemblyFailed, err)
	}

	return nil
}

// BuildManifest returns the encoded artifact paths sorted by segment
// filename. Any failed outcome yields ErrIncompleteTranscode naming every
// failed segment.
func BuildManifest(outcomes map[string]models.Outcome) ([]string, error) {
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: no encoded segments", ErrIncompleteTranscode)
	}

	names := make([]string, 0, len(outcomes))
	var failed []string
	for name, out := range outcomes {
		if !out.Succeeded() || out.OutputPath == "" {
			failed = append(failed, name)
			continue
		}
		names = append(names, name)
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return nil, fmt.Errorf("%w: %d of %d segments failed: %s",
			ErrIncompleteTranscode, len(failed), len(outcomes), strings.Join(failed, ", "))
	}

	sort.Strings(names)
	entries := make([]string, len(names))
	for i, name := range names {
		entries[i] = outcomes[name].OutputPath
	}
	return entries, nil
}

func verifyEntries(entries []string) error {
	var missing []string
	for _, path := range entries {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, filepath.Base(path))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: encoded artifacts missing: %s", ErrIncompleteTranscode, strings.Join(missing, ", "))
	}
	return nil
}

// WriteManifest writes an ffmpeg concat-demuxer list to path.
// Format: file '/path/to/001.mkv'
//
//	file '/path/to/002.mkv'
func WriteManifest(path string, entries []string) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries to write")
	}

	var b strings.Builder
	for _, entry := range entries {
		absPath, err := filepath.Abs(entry)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", entry, err)
		}
		// ' closes the quote, \' is a literal quote, ' reopens
		escaped := strings.ReplaceAll(absPath, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat file: %w", err)
	}
	return nil
}

// OutputPath derives the final output path from the input path: same
// directory, extension replaced by suffix.
func OutputPath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), name+suffix)
}
