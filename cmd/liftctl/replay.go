package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/panel"
	"github.com/banshee-data/lift-controller/internal/scenario"
	"github.com/banshee-data/lift-controller/internal/security"
	"github.com/banshee-data/lift-controller/internal/sim"
	"github.com/banshee-data/lift-controller/internal/waveform"
)

// chartFlags name the optional plot outputs.
type chartFlags struct {
	png    string
	html   string
	outDir string
}

func (c *chartFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.png, "png", "", "write a floor plot PNG to this path")
	cmd.Flags().StringVar(&c.html, "html", "", "write an interactive floor chart to this path")
	cmd.Flags().StringVar(&c.outDir, "out-dir", "", "write both charts to this directory, named after the run")
}

func (c *chartFlags) write(t waveform.Trace, runID string) error {
	png, html := c.png, c.html
	if c.outDir != "" {
		if png == "" {
			png = filepath.Join(c.outDir, security.OutputName(t.Name, runID, "png"))
		}
		if html == "" {
			html = filepath.Join(c.outDir, security.OutputName(t.Name, runID, "html"))
		}
	}
	if png != "" {
		err := writeFile(png, func(w io.Writer) error {
			return waveform.RenderPNG(w, t, 8*vg.Inch, 4*vg.Inch)
		})
		if err != nil {
			return err
		}
	}
	if html != "" {
		return writeFile(html, func(w io.Writer) error { return waveform.RenderHTML(w, t) })
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := security.ValidateOutputPath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}

type replayFlags struct {
	record bool
	panel  bool
	charts chartFlags
}

func newReplayCmd(g *globalFlags) *cobra.Command {
	f := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scripted input scenario against the board",
		Long: `Replays a scenario in virtual time, one step after another, and checks
each step's expected floor and segments. The exit status is non-zero when an
expectation fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			floors, segments, err := tables(cfg)
			if err != nil {
				return err
			}
			top, err := board.New(floors, segments)
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			start := time.Now()
			var events []sim.Event
			opts := scenario.Options{
				Start: start,
				Sinks: []sim.Sink{sim.SinkFunc(func(_ context.Context, e sim.Event) error {
					events = append(events, e)
					return nil
				})},
			}

			var store *db.DB
			var runID string
			if f.record {
				path := cfg.GetDBPath()
				if path == "" {
					return errors.New("--record needs a trace database path")
				}
				if store, err = db.NewDB(path); err != nil {
					return err
				}
				defer store.Close()
				run, err := store.StartRun(ctx, db.Run{
					Name:         sc.Name,
					Mode:         "replay",
					Transitions:  floors.Name(),
					Segments:     segments.Name(),
					InitialFloor: floors.Initial(),
					StartedAt:    start,
				})
				if err != nil {
					return err
				}
				runID = run.ID
				opts.Sinks = append(opts.Sinks, store.NewRecorder(runID))
			}

			res, runErr := scenario.Run(ctx, top, sc, opts)
			out := cmd.OutOrStdout()
			printFrames(out, res, f.panel)

			end := start
			if n := len(res.Frames); n > 0 {
				end = res.Frames[n-1].At
			}
			if store != nil {
				if err := store.FinishRun(ctx, runID, end); err != nil {
					return err
				}
				fmt.Fprintf(out, "recorded run %s\n", runID)
			}

			trace := waveform.Trace{Name: sc.Name, Start: start, End: end, Initial: floors.Initial(), Events: events}
			fmt.Fprintln(out, waveform.Summarize(trace))
			if err := f.charts.write(trace, runID); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&f.record, "record", false, "record the replay to the trace database")
	cmd.Flags().BoolVar(&f.panel, "panel", false, "draw the board panel after each step")
	f.charts.register(cmd)
	return cmd
}

func printFrames(w io.Writer, res *scenario.Result, drawPanel bool) {
	if res == nil {
		return
	}
	styles := panel.DefaultStyles()
	for _, fr := range res.Frames {
		if drawPanel {
			fmt.Fprintf(w, "== %s\n%s\n", fr.Step, panel.Render(styles, fr.Inputs, fr.Outputs))
			continue
		}
		fmt.Fprintf(w, "%-16s sw=%s btn=%-6s floor=%d seg=%s ticks=%d\n",
			fr.Step, fr.Inputs.Switches, fr.Inputs.Buttons, fr.Outputs.Floor, fr.Outputs.Segments, fr.Outputs.Ticks)
	}
}
