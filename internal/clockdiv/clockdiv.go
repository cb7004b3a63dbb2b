// Package clockdiv derives a slow square wave from a fast periodic source.
//
// The divider counts source cycles from zero to divisor-1. On the cycle that
// wraps the counter the output level toggles, so the level changes exactly
// once every divisor source cycles and completes a full period every
// 2*divisor cycles. Reset clears the counter and forces the level low; there
// is no phase continuity across a reset.
package clockdiv

import (
	"errors"
	"fmt"
)

// ErrZeroDivisor is returned when a divider is configured with divisor 0.
var ErrZeroDivisor = errors.New("clockdiv: divisor must be positive")

// State is the divider's register contents.
type State struct {
	Count uint64
	Level bool
}

// Step is a proposed state change computed by Peek and applied by Commit.
type Step struct {
	Next    State
	Toggles uint64
	// Rising counts low-to-high transitions, the edges that clock the
	// floor state machine.
	Rising uint64
	Reset  bool
}

// Divider is a resettable clock divider with a divisor fixed at construction.
type Divider struct {
	divisor uint64
	state   State
}

// New returns a divider in its reset state.
func New(divisor uint64) (*Divider, error) {
	if divisor == 0 {
		return nil, ErrZeroDivisor
	}
	return &Divider{divisor: divisor}, nil
}

// MustNew is New for package-level constants; it panics on a zero divisor.
func MustNew(divisor uint64) *Divider {
	d, err := New(divisor)
	if err != nil {
		panic(err)
	}
	return d
}

// Divisor returns the configured divisor.
func (d *Divider) Divisor() uint64 { return d.divisor }

// State returns the current register contents.
func (d *Divider) State() State { return d.state }

// Level returns the current output level.
func (d *Divider) Level() bool { return d.state.Level }

// Peek computes the state after cycles source cycles with reset held at the
// given value. It does not modify the divider.
func (d *Divider) Peek(reset bool, cycles uint64) Step {
	if reset {
		return Step{Reset: true}
	}
	total := d.state.Count + cycles
	toggles := total / d.divisor
	next := State{
		Count: total % d.divisor,
		Level: d.state.Level != (toggles%2 == 1),
	}
	// Toggles alternate direction. Starting low, toggles 1, 3, 5... rise.
	rising := toggles / 2
	if !d.state.Level && toggles%2 == 1 {
		rising++
	}
	return Step{Next: next, Toggles: toggles, Rising: rising}
}

// Commit applies a step returned by Peek.
func (d *Divider) Commit(s Step) {
	d.state = s.Next
}

// Advance peeks and commits in one call.
func (d *Divider) Advance(reset bool, cycles uint64) Step {
	s := d.Peek(reset, cycles)
	d.Commit(s)
	return s
}

// Reset clears the counter and forces the output low. Calling it on a
// divider already in reset has no effect.
func (d *Divider) Reset() {
	d.state = State{}
}

// Rate describes the output frequency for a given source frequency.
type Rate struct {
	SourceHz       float64 `json:"source_hz"`
	TogglesPerSec  float64 `json:"toggles_per_sec"`
	RisingPerSec   float64 `json:"rising_per_sec"`
	PeriodSeconds  float64 `json:"period_seconds"`
	CyclesPerLevel uint64  `json:"cycles_per_level"`
}

// Rate reports the toggle and edge rates produced from a source running at
// sourceHz.
func (d *Divider) Rate(sourceHz float64) Rate {
	toggles := sourceHz / float64(d.divisor)
	return Rate{
		SourceHz:       sourceHz,
		TogglesPerSec:  toggles,
		RisingPerSec:   toggles / 2,
		PeriodSeconds:  2 / toggles,
		CyclesPerLevel: d.divisor,
	}
}

func (r Rate) String() string {
	return fmt.Sprintf("%.0f Hz source: %.3g toggles/s, %.3g rising edges/s (period %.3gs)",
		r.SourceHz, r.TogglesPerSec, r.RisingPerSec, r.PeriodSeconds)
}
