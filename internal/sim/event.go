package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

// EventKind classifies a trace event.
type EventKind int

const (
	// FloorChanged is emitted when the floor code differs from the previous
	// frame.
	FloorChanged EventKind = iota
	// ResetChanged is emitted when a reset domain is asserted or released.
	ResetChanged
)

func (k EventKind) String() string {
	switch k {
	case FloorChanged:
		return "floor"
	case ResetChanged:
		return "reset"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Reset domain names used in events and metrics.
const (
	DomainClock = "clock"
	DomainFSM   = "fsm"
)

// Event is one observable change on the board.
type Event struct {
	Kind     EventKind
	At       time.Time
	Cycle    uint64
	Tick     uint64
	Floor    logic.FloorCode
	Segments logic.Segments
	Domain   string
	Asserted bool
}

// Sink consumes runner events.
type Sink interface {
	HandleEvent(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) HandleEvent(ctx context.Context, e Event) error { return f(ctx, e) }

// Diff lists the events that separate two consecutive output frames.
func Diff(prev, cur board.Outputs, at time.Time) []Event {
	var events []Event
	if cur.ClockReset != prev.ClockReset {
		events = append(events, Event{Kind: ResetChanged, At: at, Cycle: cur.Cycles, Tick: cur.Ticks,
			Floor: cur.Floor, Segments: cur.Segments, Domain: DomainClock, Asserted: cur.ClockReset})
	}
	if cur.FSMReset != prev.FSMReset {
		events = append(events, Event{Kind: ResetChanged, At: at, Cycle: cur.Cycles, Tick: cur.Ticks,
			Floor: cur.Floor, Segments: cur.Segments, Domain: DomainFSM, Asserted: cur.FSMReset})
	}
	if cur.Floor != prev.Floor {
		events = append(events, Event{Kind: FloorChanged, At: at, Cycle: cur.Cycles, Tick: cur.Ticks,
			Floor: cur.Floor, Segments: cur.Segments})
	}
	return events
}
