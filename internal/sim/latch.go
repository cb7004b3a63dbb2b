package sim

import (
	"sync"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

// Latch holds the most recent board inputs. The serial bridge and the HTTP
// API write it; the runner samples it once per frame.
type Latch struct {
	mu sync.Mutex
	in board.Inputs
}

// NewLatch returns a latch holding in.
func NewLatch(in board.Inputs) *Latch {
	return &Latch{in: in}
}

// Get returns the current inputs.
func (l *Latch) Get() board.Inputs {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.in
}

// Set replaces the inputs.
func (l *Latch) Set(in board.Inputs) {
	l.mu.Lock()
	l.in = in
	l.mu.Unlock()
}

// SetSwitches replaces only the switch bus.
func (l *Latch) SetSwitches(sw logic.Vector) {
	l.mu.Lock()
	l.in.Switches = sw
	l.mu.Unlock()
}

// SetButtons replaces only the reset buttons.
func (l *Latch) SetButtons(b board.ResetButtons) {
	l.mu.Lock()
	l.in.Buttons = b
	l.mu.Unlock()
}
