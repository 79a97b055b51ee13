package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"scenesplit/config"
	"scenesplit/internal/deps"
	"scenesplit/internal/logging"
	"scenesplit/internal/timeutil"
	"scenesplit/pipeline"
	"scenesplit/progress"
	"scenesplit/resources"
	"scenesplit/workspace"
)

// errInterrupted marks a run stopped by a signal.
var errInterrupted = errors.New("interrupted")

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		if errors.Is(err, errInterrupted) {
			fmt.Println("\n⚠️  Encoding cancelled by user")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenesplit -i FILE [flags]",
		Short: "Scene-chunked parallel AV1 transcoder",
		Long: `scenesplit splits a video at scene boundaries, encodes every segment
with aomenc in parallel and joins the results with the original audio.

Configuration priority: CLI flags > config file > defaults.
Config files are searched in ./scenesplit.{yaml,yml,toml},
~/.scenesplit/config.*, /etc/scenesplit/config.*`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(cmd.Flags())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			savePath, err := cmd.Flags().GetString(config.FlagSaveConfig)
			if err != nil {
				return err
			}
			if savePath != "" {
				if err := config.SaveConfigFile(cfg, savePath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration written to %s\n", savePath)
				return nil
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(parent context.Context, cfg *config.Config, stdout io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	mode, err := progress.ParseMode(cfg.Progress)
	if err != nil {
		return err
	}

	workers := pipeline.ResolveWorkers(parent, cfg, resources.DefaultWorkers)

	if cfg.DryRun {
		printDryRun(stdout, cfg, workers)
		return nil
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := workspace.NewRunID()

	fmt.Fprintln(stdout, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(stdout, "║                 SCENESPLIT - PIPELINE START                    ║")
	fmt.Fprintln(stdout, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintf(stdout, "Input:    %s\n", cfg.Input)
	fmt.Fprintf(stdout, "Output:   %s\n", cfg.OutputPath())
	fmt.Fprintf(stdout, "Workers:  %d\n", workers)
	fmt.Fprintf(stdout, "Params:   %s\n", cfg.EncodingParams)
	fmt.Fprintf(stdout, "Run ID:   %s\n\n", runID)

	res, err := pipeline.Run(ctx, cfg, pipeline.Deps{
		Reporter: progress.Select(mode, os.Stderr, logger),
		Logger:   logger,
		Workers:  func(context.Context) int { return workers },
		RunID:    runID,
	})
	if err != nil {
		if ctx.Err() != nil && parent.Err() == nil {
			return fmt.Errorf("%w: %w", errInterrupted, err)
		}
		return fmt.Errorf("pipeline error: %w", err)
	}

	fmt.Fprintf(stdout, "\n✅ Encoding completed successfully!\n")
	fmt.Fprintf(stdout, "  Output:    %s\n", res.Output)
	fmt.Fprintf(stdout, "  Segments:  %d encoded", len(res.Segments))
	if len(res.Excluded) > 0 {
		fmt.Fprintf(stdout, ", %d excluded", len(res.Excluded))
	}
	fmt.Fprintln(stdout)
	if info, err := os.Stat(res.Output); err == nil {
		fmt.Fprintf(stdout, "  Size:      %s\n", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintf(stdout, "  Completed in %s\n", timeutil.FormatElapsed(res.Elapsed))
	return nil
}

func printDryRun(w io.Writer, cfg *config.Config, workers int) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                      DRY RUN MODE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	cfg.PrintConfig(w, workers)

	steps := table.NewWriter()
	steps.SetOutputMirror(w)
	steps.SetStyle(table.StyleRounded)
	steps.SetTitle("Commands")
	steps.AppendHeader(table.Row{"Step", "Command"})
	for _, st := range pipeline.DryRunSteps(cfg) {
		steps.AppendRow(table.Row{st.Name, st.Command})
	}
	steps.Render()

	tools := table.NewWriter()
	tools.SetOutputMirror(w)
	tools.SetStyle(table.StyleRounded)
	tools.SetTitle("Tools")
	tools.AppendHeader(table.Row{"Tool", "Command", "Status"})
	for _, st := range deps.CheckBinaries(pipeline.Requirements(cfg)) {
		status := "✓ " + st.Path
		if !st.Available {
			status = "✗ " + st.Detail
		}
		tools.AppendRow(table.Row{st.Name, st.Command, status})
	}
	tools.Render()

	fmt.Fprintln(w, "\n✓ Configuration is valid. No encoding will be performed.")
}
