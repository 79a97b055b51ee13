package config

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// PrintConfig writes the effective configuration as a table. workers is the
// resolved worker count, which may differ from c.Workers when estimated.
func (c *Config) PrintConfig(w io.Writer, workers int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Effective Configuration")
	t.AppendHeader(table.Row{"Setting", "Value"})

	workerSource := "configured"
	if c.Workers == 0 {
		workerSource = "estimated"
	}

	t.AppendRows([]table.Row{
		{"Input", c.Input},
		{"Output", c.OutputPath()},
		{"Workers", fmt.Sprintf("%d (%s)", workers, workerSource)},
		{"Encoding params", c.EncodingParams},
		{"Pixel format", c.PixelFormat},
		{"Tail policy", c.TailPolicy},
	})
	t.AppendSeparator()

	t.AppendRow(table.Row{"Split method", c.Split.Method})
	if c.Split.Method == SplitInterval {
		t.AppendRow(table.Row{"Interval", fmt.Sprintf("%d seconds", c.Split.Interval)})
	} else {
		t.AppendRow(table.Row{"Threshold", c.Split.Threshold})
	}
	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"ffmpeg", c.Tools.FFmpeg},
		{"ffprobe", c.Tools.FFprobe},
		{"aomenc", c.Tools.Aomenc},
		{"scenedetect", c.Tools.Scenedetect},
	})
	t.AppendSeparator()

	workspace := c.Workspace
	if workspace == "" {
		workspace = "(OS temp dir)"
	}
	t.AppendRows([]table.Row{
		{"Workspace", workspace},
		{"Progress", c.Progress},
		{"Log", c.Log.Level + " / " + c.Log.Format},
	})

	t.Render()
}
