// Package scenario replays scripted input sequences against the board. A
// scenario is a YAML list of steps; each step holds inputs for a number of
// source cycles or floor ticks and may assert the floor and segment outputs
// afterwards.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/sim"
)

// ErrTooLong is returned by Parse when a step, or the scenario as a whole,
// lasts more source cycles than virtual time can represent.
var ErrTooLong = errors.New("scenario duration out of range")

// maxCycles is the longest replay whose virtual timestamps fit a
// time.Duration.
const maxCycles = uint64(math.MaxInt64 / nsPerCycle)

const nsPerCycle = int64(time.Second) / board.SourceHz

// ErrExpectation is wrapped by Run when a step's outputs differ from its
// expectations.
var ErrExpectation = errors.New("scenario expectation failed")

// Step holds one set of inputs.
type Step struct {
	Name     string       `yaml:"name"`
	Switches logic.Vector `yaml:"switches"`
	Buttons  string       `yaml:"buttons"`
	// Cycles and Ticks add up; Ticks counts divided clock periods.
	Cycles uint64 `yaml:"cycles"`
	Ticks  uint64 `yaml:"ticks"`

	ExpectFloor    *logic.FloorCode `yaml:"expect_floor"`
	ExpectSegments *logic.Segments  `yaml:"expect_segments"`
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Frame is the board state after one step.
type Frame struct {
	Step    string        `json:"step"`
	At      time.Time     `json:"at"`
	Inputs  board.Inputs  `json:"inputs"`
	Outputs board.Outputs `json:"outputs"`
}

// Result collects the frames of a replay.
type Result struct {
	Name   string  `json:"name"`
	Frames []Frame `json:"frames"`
}

// Options configure Run.
type Options struct {
	// Start is the virtual time of cycle zero.
	Start time.Time
	Sinks []sim.Sink
}

// Parse decodes a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	var total uint64
	for i := range sc.Steps {
		if _, err := sc.Steps[i].inputs(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		d, ok := sc.Steps[i].duration()
		if !ok || d > maxCycles-total {
			return nil, fmt.Errorf("step %d: %w", i, ErrTooLong)
		}
		total += d
		if sc.Steps[i].Name == "" {
			sc.Steps[i].Name = fmt.Sprintf("step %d", i)
		}
	}
	return &sc, nil
}

// Load reads a scenario from a .yaml or .yml file.
func Load(path string) (*Scenario, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("scenario file must have .yaml extension, got %q", ext)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

func (s Step) inputs() (board.Inputs, error) {
	buttons, err := board.ParseButtons(s.Buttons)
	if err != nil {
		return board.Inputs{}, err
	}
	return board.Inputs{Buttons: buttons, Switches: s.Switches}, nil
}

// Duration returns the source cycles the step lasts. Parse guarantees it
// does not overflow.
func (s Step) Duration() uint64 {
	d, _ := s.duration()
	return d
}

func (s Step) duration() (uint64, bool) {
	if s.Ticks > (math.MaxUint64-s.Cycles)/board.CyclesPerTick {
		return 0, false
	}
	return s.Cycles + board.CyclesForTicks(s.Ticks), true
}

// Run replays sc on top. Events between frames go to the sinks, stamped with
// virtual time derived from the source clock. The first failed expectation
// stops the replay; the frames up to and including it are returned.
func Run(ctx context.Context, top *board.Top, sc *Scenario, opts Options) (*Result, error) {
	res := &Result{Name: sc.Name}
	prev := top.Outputs()
	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in, err := step.inputs()
		if err != nil {
			return res, fmt.Errorf("%s: %w", step.Name, err)
		}
		out := top.Run(in, step.Duration())
		at := opts.Start.Add(cyclesToDuration(out.Cycles))
		res.Frames = append(res.Frames, Frame{Step: step.Name, At: at, Inputs: in, Outputs: out})

		for _, e := range sim.Diff(prev, out, at) {
			for _, s := range opts.Sinks {
				if err := s.HandleEvent(ctx, e); err != nil {
					return res, fmt.Errorf("%s: sink: %w", step.Name, err)
				}
			}
		}
		prev = out

		if step.ExpectFloor != nil && out.Floor != *step.ExpectFloor {
			return res, fmt.Errorf("%s: floor = %d, want %d: %w", step.Name, out.Floor, *step.ExpectFloor, ErrExpectation)
		}
		if step.ExpectSegments != nil && out.Segments != *step.ExpectSegments {
			return res, fmt.Errorf("%s: segments = %s, want %s: %w", step.Name, out.Segments, *step.ExpectSegments, ErrExpectation)
		}
	}
	return res, nil
}

func cyclesToDuration(cycles uint64) time.Duration {
	return time.Duration(int64(cycles) * nsPerCycle)
}
