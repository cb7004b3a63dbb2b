// Package fsmtest checks that a transition policy, wrapped in a
// floorfsm.Machine, honours the timing contract the controller depends on.
package fsmtest

import (
	"testing"

	"github.com/banshee-data/lift-controller/internal/floorfsm"
	"github.com/banshee-data/lift-controller/internal/logic"
)

// Conformance runs the contract suite against transitions built by newT.
// newT must return an independent value on each call.
func Conformance(t *testing.T, newT func() floorfsm.Transitions) {
	t.Helper()

	t.Run("starts at initial floor", func(t *testing.T) {
		tr := newT()
		m := floorfsm.New(tr)
		if m.Floor() != tr.Initial() {
			t.Errorf("Floor() = %d, want initial %d", m.Floor(), tr.Initial())
		}
	})

	t.Run("stop holds floor", func(t *testing.T) {
		m := floorfsm.New(newT())
		start := m.Floor()
		for _, dir := range []bool{false, true} {
			for ticks := uint64(1); ticks <= 8; ticks++ {
				if got := m.Peek(false, ticks, floorfsm.Inputs{Stop: true, Direction: dir}); got != start {
					t.Fatalf("stop with direction=%v moved floor %d -> %d after %d ticks", dir, start, got, ticks)
				}
			}
		}
	})

	t.Run("at most one change per tick", func(t *testing.T) {
		tr := newT()
		m := floorfsm.New(tr)
		for _, dir := range []bool{true, false, true} {
			for i := 0; i < 2*(1<<logic.FloorCodeWidth); i++ {
				prev := m.Floor()
				next := m.Peek(false, 1, floorfsm.Inputs{Direction: dir})
				if want := logic.Floor(uint64(tr.Next(prev, dir))); next != want {
					t.Fatalf("one tick from %d (dir=%v) = %d, want %d", prev, dir, next, want)
				}
				m.Commit(next)
			}
		}
	})

	t.Run("no tick no change", func(t *testing.T) {
		m := floorfsm.New(newT())
		m.Commit(m.Peek(false, 3, floorfsm.Inputs{Direction: true}))
		before := m.Floor()
		if got := m.Peek(false, 0, floorfsm.Inputs{Direction: true}); got != before {
			t.Errorf("zero ticks changed floor %d -> %d", before, got)
		}
	})

	t.Run("reset returns initial floor", func(t *testing.T) {
		tr := newT()
		m := floorfsm.New(tr)
		for ticks := uint64(0); ticks < 6; ticks++ {
			m.Commit(m.Peek(false, ticks, floorfsm.Inputs{Direction: ticks%2 == 0}))
			if got := m.Peek(true, ticks, floorfsm.Inputs{Direction: true}); got != tr.Initial() {
				t.Fatalf("Peek under reset = %d, want %d", got, tr.Initial())
			}
			m.Reset()
			if m.Floor() != tr.Initial() {
				t.Fatalf("Reset left floor at %d, want %d", m.Floor(), tr.Initial())
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		run := func() []logic.FloorCode {
			m := floorfsm.New(newT())
			var out []logic.FloorCode
			for i := 0; i < 40; i++ {
				in := floorfsm.Inputs{Stop: i%7 == 3, Direction: i%11 < 6}
				m.Commit(m.Peek(i%13 == 12, 1, in))
				out = append(out, m.Floor())
			}
			return out
		}
		a, b := run(), run()
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("run diverged at step %d: %d vs %d", i, a[i], b[i])
			}
		}
	})
}
