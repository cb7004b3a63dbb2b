// Package waveform turns a run's events into floor-over-time plots and a
// dwell-time summary.
package waveform

import (
	"sort"
	"time"

	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/sim"
)

// Trace is the event history of one run.
type Trace struct {
	Name    string
	Start   time.Time
	End     time.Time
	Initial logic.FloorCode
	Events  []sim.Event
}

// Point is a corner of the floor step plot.
type Point struct {
	Seconds float64
	Floor   logic.FloorCode
}

// ResetMark is a reset assertion placed on the time axis.
type ResetMark struct {
	Seconds float64
	Domain  string
}

// end returns the last instant covered by the trace.
func (t Trace) end() time.Time {
	end := t.Start
	if n := len(t.Events); n > 0 && t.Events[n-1].At.After(end) {
		end = t.Events[n-1].At
	}
	if t.End.After(end) {
		end = t.End
	}
	return end
}

func (t Trace) seconds(at time.Time) float64 { return at.Sub(t.Start).Seconds() }

// Steps returns the floor as a step function: every change contributes a
// point at the old floor and one at the new floor. The first point is the
// initial floor at zero and the last holds the final floor to the end.
func (t Trace) Steps() []Point {
	events := t.sorted()
	floor := t.Initial
	points := []Point{{0, floor}}
	for _, e := range events {
		if e.Kind != sim.FloorChanged || e.Floor == floor {
			continue
		}
		s := t.seconds(e.At)
		points = append(points, Point{s, floor}, Point{s, e.Floor})
		floor = e.Floor
	}
	return append(points, Point{t.seconds(t.end()), floor})
}

// Resets returns the reset assertions. Releases are omitted.
func (t Trace) Resets() []ResetMark {
	var marks []ResetMark
	for _, e := range t.sorted() {
		if e.Kind == sim.ResetChanged && e.Asserted {
			marks = append(marks, ResetMark{t.seconds(e.At), e.Domain})
		}
	}
	return marks
}

func (t Trace) sorted() []sim.Event {
	events := append([]sim.Event(nil), t.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events
}

// FromRun builds a trace from a stored run and its events.
func FromRun(run db.Run, events []sim.Event) Trace {
	t := Trace{
		Name:    run.Name,
		Start:   run.StartedAt,
		Initial: run.InitialFloor,
		Events:  events,
	}
	if run.EndedAt != nil {
		t.End = *run.EndedAt
	}
	return t
}
