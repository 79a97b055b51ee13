// Package command provides the structured process invocation used for every
// external tool the encoder drives (scene splitter, ffmpeg, aomenc).
//
// Commands are built as argument vectors, never as shell strings, so no
// user-supplied path or parameter is ever interpreted by a shell. A
// multi-stage Invocation connects stage i's stdout to stage i+1's stdin,
// which covers the decode | encode pipe used for per-segment encoding.
package command

import (
	"strings"
)

// Kind identifies what an invocation does. Used for logging and for
// error classification.
type Kind string

const (
	KindSplit  Kind = "split"  // Scene segmentation of the source
	KindAudio  Kind = "audio"  // Audio track extraction
	KindEncode Kind = "encode" // Per-segment video encode
	KindRemux  Kind = "remux"  // Concatenation of encoded segments + audio
)

// Stage is a single process: a binary name and its argument vector.
type Stage struct {
	Name string
	Args []string
}

// String renders the stage for display only. The result is never executed.
func (s Stage) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, quote(s.Name))
	for _, arg := range s.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

// Invocation is an ordered list of stages whose standard streams are piped
// together. A single-stage invocation is a plain process call.
type Invocation struct {
	Kind   Kind
	Stages []Stage
}

// Single creates a one-stage invocation.
func Single(kind Kind, name string, args ...string) Invocation {
	return Invocation{Kind: kind, Stages: []Stage{{Name: name, Args: args}}}
}

// Pipe creates an invocation whose stages are connected stdout to stdin.
func Pipe(kind Kind, stages ...Stage) Invocation {
	return Invocation{Kind: kind, Stages: stages}
}

// Binaries returns the distinct binary names the invocation needs.
func (inv Invocation) Binaries() []string {
	seen := make(map[string]bool, len(inv.Stages))
	names := make([]string, 0, len(inv.Stages))
	for _, st := range inv.Stages {
		if seen[st.Name] {
			continue
		}
		seen[st.Name] = true
		names = append(names, st.Name)
	}
	return names
}

// String renders the invocation as a shell-like pipeline for logs and dry
// runs.
func (inv Invocation) String() string {
	parts := make([]string, len(inv.Stages))
	for i, st := range inv.Stages {
		parts[i] = st.String()
	}
	return strings.Join(parts, " | ")
}

// Command is an external tool call that can be built, previewed and run.
//
// All builders (split, audio, video, mixing) implement this interface so
// the worker pool and the pipeline handle them agnostically.
//
// Example usage:
//
//	cmd := video.NewEncodeBuilder(seg, "/tmp/run/encode").SetParams(params)
//
//	// Preview the command
//	fmt.Println(cmd.DryRun())
//
//	// Execute through a runner
//	err := runner.Run(ctx, cmd.Invocation())
type Command interface {
	// Invocation returns the argument vectors to execute.
	Invocation() Invocation

	// DryRun returns the command as a display string without executing it.
	DryRun() string

	// OutputPath returns the file or directory the command produces.
	OutputPath() string
}

// quote wraps an argument in single quotes when it would not survive a
// shell round-trip unchanged. Display only.
func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`|&;<>()*?[]{}!#~") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
