// Package floorfsm hosts the floor-tracking state machine. The transition
// policy is an external collaborator supplied through the Transitions
// interface; Machine owns the floor code and enforces the timing contract the
// rest of the controller relies on.
package floorfsm

import "github.com/banshee-data/lift-controller/internal/logic"

// Transitions is the externally supplied transition policy.
type Transitions interface {
	// Initial is the documented floor the machine returns to on reset.
	Initial() logic.FloorCode
	// Next returns the floor after one tick while the car is not stopped. It
	// must depend only on its arguments.
	Next(current logic.FloorCode, direction bool) logic.FloorCode
}

// Inputs are the two control lines the machine consumes.
type Inputs struct {
	Stop      bool
	Direction bool
}

// Machine holds the current floor code. It is the only writer of that value.
type Machine struct {
	t     Transitions
	floor logic.FloorCode
}

// New returns a machine sitting at the initial floor.
func New(t Transitions) *Machine {
	return &Machine{t: t, floor: logic.Floor(uint64(t.Initial()))}
}

// Floor returns the current floor code.
func (m *Machine) Floor() logic.FloorCode { return m.floor }

// Initial returns the reset floor.
func (m *Machine) Initial() logic.FloorCode { return logic.Floor(uint64(m.t.Initial())) }

// Peek computes the floor after the given number of ticks. Reset wins over
// ticks and returns the initial floor immediately; stop holds the current
// floor whatever the direction. Each tick moves the floor at most once.
func (m *Machine) Peek(reset bool, ticks uint64, in Inputs) logic.FloorCode {
	if reset {
		return m.Initial()
	}
	if in.Stop || ticks == 0 {
		return m.floor
	}
	next := func(f logic.FloorCode) logic.FloorCode {
		return logic.Floor(uint64(m.t.Next(f, in.Direction)))
	}
	// With the direction held, the floor walks a path through at most 16
	// codes into a cycle. Once a code repeats, only ticks modulo the cycle
	// length matter, so the cost is bounded whatever ticks is.
	var seen [1 << logic.FloorCodeWidth]uint64 // tick index + 1
	floor := m.floor
	for i := uint64(0); i < ticks; i++ {
		if first := seen[floor]; first != 0 {
			period := i - (first - 1)
			for rest := (ticks - i) % period; rest > 0; rest-- {
				floor = next(floor)
			}
			return floor
		}
		seen[floor] = i + 1
		floor = next(floor)
	}
	return floor
}

// Commit stores a floor computed by Peek.
func (m *Machine) Commit(f logic.FloorCode) {
	m.floor = logic.Floor(uint64(f))
}

// Reset returns the machine to the initial floor.
func (m *Machine) Reset() {
	m.floor = m.Initial()
}
