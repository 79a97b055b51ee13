// Package pipeline runs one transcode end to end: probe, split and extract
// audio, encode segments in parallel, reassemble.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"scenesplit/command"
	"scenesplit/command/audio"
	"scenesplit/command/split"
	"scenesplit/command/video"
	"scenesplit/concatenator"
	"scenesplit/config"
	"scenesplit/ffprobe"
	"scenesplit/internal/deps"
	"scenesplit/internal/logging"
	"scenesplit/internal/timeutil"
	"scenesplit/models"
	"scenesplit/orchestrator"
	"scenesplit/progress"
	"scenesplit/queue"
	"scenesplit/resources"
	"scenesplit/segment"
	"scenesplit/workspace"
)

// Deps are the collaborators of a run. Zero fields get production defaults.
type Deps struct {
	Runner   command.Runner
	Prober   ffprobe.Prober
	Reporter progress.Reporter
	Logger   *slog.Logger

	// Workers estimates the pool size when the config leaves it at 0.
	Workers func(ctx context.Context) int

	// LookPath resolves tool binaries for preflight checks.
	LookPath func(file string) (string, error)

	// RunID names the workspace. Empty generates one.
	RunID string
}

func (d Deps) withDefaults(cfg *config.Config) Deps {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Runner == nil {
		d.Runner = command.NewExecRunner(d.Logger)
	}
	if d.Prober == nil {
		runner, ok := d.Runner.(ffprobe.OutputRunner)
		if !ok {
			runner = command.NewExecRunner(d.Logger)
		}
		d.Prober = ffprobe.NewClient(runner, cfg.Tools.FFprobe)
	}
	if d.Reporter == nil {
		d.Reporter = progress.Nop{}
	}
	if d.Workers == nil {
		d.Workers = resources.DefaultWorkers
	}
	if d.LookPath == nil {
		d.LookPath = exec.LookPath
	}
	if d.RunID == "" {
		d.RunID = workspace.NewRunID()
	}
	return d
}

// Result summarises a finished run.
type Result struct {
	RunID    string
	Output   string
	Segments []models.Segment // queued, in dispatch order
	Excluded []models.Segment // held back by the tail policy
	Workers  int
	HasAudio bool
	Elapsed  time.Duration
}

// ResolveWorkers returns the configured worker count or, when unset, the
// estimate. A nil estimate uses resources.DefaultWorkers.
func ResolveWorkers(ctx context.Context, cfg *config.Config, estimate func(context.Context) int) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	if estimate == nil {
		estimate = resources.DefaultWorkers
	}
	if n := estimate(ctx); n > 0 {
		return n
	}
	return 1
}

// Requirements lists the external tools cfg needs.
func Requirements(cfg *config.Config) []deps.Requirement {
	reqs := []deps.Requirement{
		{Name: "aomenc", Command: cfg.Tools.Aomenc, Description: "AV1 encoder"},
		{Name: "ffmpeg", Command: cfg.Tools.FFmpeg, Description: "decode, audio extraction, concat"},
		{Name: "ffprobe", Command: cfg.Tools.FFprobe, Description: "stream inspection"},
	}
	if cfg.Split.Method == config.SplitScene {
		reqs = append(reqs, deps.Requirement{Name: "scenedetect", Command: cfg.Tools.Scenedetect, Description: "scene segmentation"})
	}
	return reqs
}

// CheckTools resolves every required tool with look. A missing encoder
// yields orchestrator.ErrPoolUnusable; other missing tools a plain error.
func CheckTools(cfg *config.Config, look func(string) (string, error)) error {
	if look == nil {
		look = exec.LookPath
	}

	missing := deps.Missing(deps.CheckBinariesWith(Requirements(cfg), look))
	if len(missing) == 0 {
		return nil
	}
	for _, st := range missing {
		if st.Name == "aomenc" {
			return fmt.Errorf("%w: %s", orchestrator.ErrPoolUnusable, deps.Describe(missing))
		}
	}
	return fmt.Errorf("missing required tools: %s", deps.Describe(missing))
}

// SplitCommand returns the segmentation command for cfg writing into dir.
func SplitCommand(cfg *config.Config, dir string) command.Command {
	if cfg.Split.Method == config.SplitInterval {
		return split.NewIntervalBuilder(cfg.Input, dir).
			SetBinary(cfg.Tools.FFmpeg).
			SetInterval(cfg.Split.Interval)
	}
	return split.NewSceneBuilder(cfg.Input, dir).
		SetBinary(cfg.Tools.Scenedetect).
		SetThreshold(cfg.Split.Threshold)
}

// AudioCommand returns the audio extraction command for cfg.
func AudioCommand(cfg *config.Config, outputPath string) command.Command {
	return audio.NewExtractBuilder(cfg.Input, outputPath).SetBinary(cfg.Tools.FFmpeg)
}

// EncodeFactory returns the per-segment encode command constructor for cfg.
func EncodeFactory(cfg *config.Config, encodeDir string) func(models.Segment) command.Command {
	return func(seg models.Segment) command.Command {
		return video.NewEncodeBuilder(seg, encodeDir).
			SetParams(cfg.EncodingParams).
			SetPixelFormat(cfg.PixelFormat).
			SetFFmpegBinary(cfg.Tools.FFmpeg).
			SetEncoderBinary(cfg.Tools.Aomenc)
	}
}

// Run transcodes cfg.Input into cfg.OutputPath(). The workspace is removed
// on every exit path.
func Run(ctx context.Context, cfg *config.Config, d Deps) (*Result, error) {
	start := time.Now()
	d = d.withDefaults(cfg)
	log := d.Logger.With(slog.String("run_id", d.RunID))

	policy, err := queue.ParseTailPolicy(cfg.TailPolicy)
	if err != nil {
		return nil, err
	}

	if err := CheckTools(cfg, d.LookPath); err != nil {
		return nil, err
	}

	workers := ResolveWorkers(ctx, cfg, d.Workers)
	output := cfg.OutputPath()

	ws, err := workspace.New(cfg.Workspace, d.RunID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			log.Warn("failed to remove workspace", slog.String("dir", ws.Dir()), slog.Any("error", err))
		}
	}()
	log.Debug("workspace ready", slog.String("dir", ws.Dir()))

	probe, err := d.Prober.Probe(ctx, cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("probe input: %w", err)
	}
	hasAudio := probe.HasAudio()
	probeAttrs := []any{slog.Bool("audio", hasAudio), slog.Int("video_streams", len(probe.VideoStreams()))}
	if seconds, err := probe.GetDuration(); err == nil {
		probeAttrs = append(probeAttrs, slog.String("duration", timeutil.FormatSeconds(seconds)))
	}
	log.Info("input probed", probeAttrs...)

	if err := prepare(ctx, cfg, d.Runner, ws, hasAudio, log); err != nil {
		return nil, err
	}

	segments, err := segment.Enumerate(ws.SplitDir())
	if err != nil {
		return nil, err
	}
	log.Info("segmentation finished",
		slog.Int("segments", len(segments)),
		slog.String("size", humanize.Bytes(uint64(segment.TotalSize(segments)))))

	plan, err := queue.Build(segments, policy, EncodeFactory(cfg, ws.EncodeDir()))
	if err != nil {
		return nil, fmt.Errorf("build queue: %w", err)
	}
	for _, seg := range plan.Excluded {
		log.Warn("segment excluded from queue and output",
			slog.String("segment", seg.Name),
			slog.String("size", humanize.Bytes(uint64(seg.Size))),
			slog.String("tail_policy", string(policy)))
	}

	pool, err := orchestrator.NewPool(workers, d.Runner,
		orchestrator.WithReporter(d.Reporter),
		orchestrator.WithLogger(log),
		orchestrator.WithPreflight(orchestrator.LookPathPreflight(d.LookPath)),
	)
	if err != nil {
		return nil, err
	}

	log.Info("encoding",
		slog.Int("workers", workers),
		slog.Int("segments", len(plan.Items)),
		slog.String("params", cfg.EncodingParams))

	outcomes, err := pool.Run(ctx, plan.Items)
	if err != nil {
		return nil, err
	}

	audioPath := ""
	if hasAudio {
		audioPath = ws.AudioPath()
	}
	concat := concatenator.NewConcatenator(d.Runner, ws.ManifestPath()).
		SetBinary(cfg.Tools.FFmpeg).
		SetLogger(log)
	if err := concat.Reassemble(ctx, outcomes, audioPath, output); err != nil {
		return nil, err
	}

	return &Result{
		RunID:    d.RunID,
		Output:   output,
		Segments: plan.Segments(),
		Excluded: plan.Excluded,
		Workers:  workers,
		HasAudio: hasAudio,
		Elapsed:  time.Since(start),
	}, nil
}

// prepare runs audio extraction and segmentation concurrently.
func prepare(ctx context.Context, cfg *config.Config, runner command.Runner, ws *workspace.Workspace, hasAudio bool, log *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	if hasAudio {
		cmd := AudioCommand(cfg, ws.AudioPath())
		g.Go(func() error {
			log.Debug("extracting audio", slog.String("command", cmd.DryRun()))
			if err := runner.Run(gctx, cmd.Invocation()); err != nil {
				return fmt.Errorf("extract audio: %w", err)
			}
			return nil
		})
	} else {
		log.Warn("input has no audio stream, output will be video only")
	}

	cmd := SplitCommand(cfg, ws.SplitDir())
	g.Go(func() error {
		log.Debug("splitting", slog.String("method", cfg.Split.Method), slog.String("command", cmd.DryRun()))
		if err := runner.Run(gctx, cmd.Invocation()); err != nil {
			return fmt.Errorf("split input: %w", err)
		}
		return nil
	})

	return g.Wait()
}
