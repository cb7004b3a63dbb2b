// Package board is the top-level integration of the lift controller. It
// consolidates the reset buttons into per-domain resets, divides the source
// clock, feeds two switch lines into the floor state machine, decodes the
// floor code for the display and drives the output surface.
//
// Two outputs are placeholders in this revision and are reproduced as such:
// the indicator LEDs are held at zero (the sweep animation is not built) and
// every digit enable is held inactive, so the decoded segments are computed
// but never shown.
package board

import (
	"fmt"
	"strings"

	"github.com/banshee-data/lift-controller/internal/clockdiv"
	"github.com/banshee-data/lift-controller/internal/floorfsm"
	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/segdecode"
)

const (
	// SourceHz is the frequency of the board oscillator.
	SourceHz = 100_000_000

	// Divisor is the clock divider constant. The lab notes describe the
	// result as a human-scale rate; at SourceHz it yields 8 toggles per second
	// (4 floor ticks per second). The literal value is kept.
	Divisor = 12_500_000

	// CyclesPerTick is the number of source cycles between two rising edges
	// of the divided clock.
	CyclesPerTick = 2 * Divisor

	// StopLine and DirectionLine are the only switch positions the controller
	// reads.
	StopLine      = 0
	DirectionLine = 1
)

// ResetButtons are the three physical reset inputs.
type ResetButtons struct {
	Clock  bool `json:"clock" yaml:"clock"`
	FSM    bool `json:"fsm" yaml:"fsm"`
	Master bool `json:"master" yaml:"master"`
}

// Any reports whether any reset button is pressed.
func (b ResetButtons) Any() bool { return b.Clock || b.FSM || b.Master }

// String lists the pressed buttons as a comma-separated set, or "-" when
// none is pressed. ParseButtons reads it back.
func (b ResetButtons) String() string {
	var names []string
	if b.Clock {
		names = append(names, "clock")
	}
	if b.FSM {
		names = append(names, "fsm")
	}
	if b.Master {
		names = append(names, "master")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// ParseButtons reads a comma-separated button set. "clk" and "rst" are
// accepted for the clock and master buttons; "" and "-" mean none.
func ParseButtons(s string) (ResetButtons, error) {
	var b ResetButtons
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return b, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "clock", "clk":
			b.Clock = true
		case "fsm":
			b.FSM = true
		case "master", "rst":
			b.Master = true
		default:
			return b, fmt.Errorf("unknown reset button %q", name)
		}
	}
	return b, nil
}

// Inputs is everything the board samples on a source cycle.
type Inputs struct {
	Buttons  ResetButtons `json:"buttons"`
	Switches logic.Vector `json:"switches"`
}

// Outputs is the board's output surface plus the internal values that are
// useful for tracing.
type Outputs struct {
	LEDs     logic.Vector      `json:"leds"`
	Anodes   logic.DigitEnable `json:"anodes"`
	Segments logic.Segments    `json:"segments"`

	Floor      logic.FloorCode `json:"floor"`
	SlowClock  bool            `json:"slow_clock"`
	ClockReset bool            `json:"clock_reset"`
	FSMReset   bool            `json:"fsm_reset"`
	Ticks      uint64          `json:"ticks"`
	Cycles     uint64          `json:"cycles"`
}

// ResetDomains ORs the master button into each domain button. A domain
// button never reaches the other domain.
func ResetDomains(b ResetButtons) (clock, fsm bool) {
	return b.Clock || b.Master, b.FSM || b.Master
}

// ControlBits extracts the stop and direction lines. No other switch is read.
func ControlBits(sw logic.Vector) floorfsm.Inputs {
	return floorfsm.Inputs{
		Stop:      sw.Bit(StopLine),
		Direction: sw.Bit(DirectionLine),
	}
}

// Top wires the divider, the floor state machine and the decoder together.
type Top struct {
	div     *clockdiv.Divider
	fsm     *floorfsm.Machine
	decoder segdecode.Decoder

	segments   logic.Segments
	clockReset bool
	fsmReset   bool
	ticks      uint64
	cycles     uint64
}

// New builds a board around the supplied transition policy and decoder.
func New(t floorfsm.Transitions, d segdecode.Decoder) (*Top, error) {
	return newTop(Divisor, t, d)
}

func newTop(divisor uint64, t floorfsm.Transitions, d segdecode.Decoder) (*Top, error) {
	if t == nil {
		return nil, fmt.Errorf("board: nil transition policy")
	}
	if d == nil {
		return nil, fmt.Errorf("board: nil segment decoder")
	}
	div, err := clockdiv.New(divisor)
	if err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	top := &Top{
		div:     div,
		fsm:     floorfsm.New(t),
		decoder: d,
	}
	top.segments = d.Decode(top.fsm.Floor())
	return top, nil
}

// Divider exposes the clock divider for rate reporting.
func (t *Top) Divider() *clockdiv.Divider { return t.div }

// Step advances the board by one source cycle.
func (t *Top) Step(in Inputs) Outputs { return t.Run(in, 1) }

// Run advances the board by cycles source cycles with the inputs held
// constant. Next values for every module are computed from the current state
// and inputs, then committed together. A reset held for the run takes effect
// immediately and keeps its domain cleared throughout.
func (t *Top) Run(in Inputs, cycles uint64) Outputs {
	clockReset, fsmReset := ResetDomains(in.Buttons)

	divStep := t.div.Peek(clockReset, cycles)
	floor := t.fsm.Peek(fsmReset, divStep.Rising, ControlBits(in.Switches))
	segments := t.decoder.Decode(floor)

	t.div.Commit(divStep)
	t.fsm.Commit(floor)
	t.segments = segments
	t.clockReset, t.fsmReset = clockReset, fsmReset
	if !fsmReset {
		t.ticks += divStep.Rising
	}
	t.cycles += cycles

	return t.Outputs()
}

// Outputs returns the current output surface without advancing.
func (t *Top) Outputs() Outputs {
	return Outputs{
		LEDs:       0,
		Anodes:     logic.DigitsInactive,
		Segments:   t.segments,
		Floor:      t.fsm.Floor(),
		SlowClock:  t.div.Level(),
		ClockReset: t.clockReset,
		FSMReset:   t.fsmReset,
		Ticks:      t.ticks,
		Cycles:     t.cycles,
	}
}

// Reset returns every stateful module to its initial condition. It is safe
// to call repeatedly and independently of Run.
func (t *Top) Reset() {
	t.div.Reset()
	t.fsm.Reset()
	t.segments = t.decoder.Decode(t.fsm.Floor())
}

// CyclesForTicks converts floor ticks to source cycles.
func CyclesForTicks(ticks uint64) uint64 { return ticks * CyclesPerTick }
