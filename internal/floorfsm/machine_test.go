package floorfsm_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lift-controller/internal/floorfsm"
	"github.com/banshee-data/lift-controller/internal/floorfsm/fsmtest"
	"github.com/banshee-data/lift-controller/internal/logic"
)

// ring is a test policy that walks a four-state ring, forward on dir1 and
// backward on dir0.
const ring = `
name: ring
initial: 0
states:
  - {state: 0, dir0: 3, dir1: 1}
  - {state: 1, dir0: 0, dir1: 2}
  - {state: 2, dir0: 1, dir1: 3}
  - {state: 3, dir0: 2, dir1: 0}
`

func mustParse(t *testing.T, doc string) *floorfsm.Table {
	t.Helper()
	tbl, err := floorfsm.ParseTable([]byte(doc))
	require.NoError(t, err)
	return tbl
}

func TestTableConformance(t *testing.T) {
	fsmtest.Conformance(t, func() floorfsm.Transitions { return mustParse(t, ring) })
}

func TestSparseTableConformance(t *testing.T) {
	doc := `
initial: 0x5
states:
  - {state: 5, dir0: 5, dir1: 6}
`
	fsmtest.Conformance(t, func() floorfsm.Transitions { return mustParse(t, doc) })
}

func TestFuncTransitionsConformance(t *testing.T) {
	fsmtest.Conformance(t, func() floorfsm.Transitions {
		return stubTransitions{initial: 2}
	})
}

type stubTransitions struct{ initial logic.FloorCode }

func (s stubTransitions) Initial() logic.FloorCode { return s.initial }
func (s stubTransitions) Next(c logic.FloorCode, dir bool) logic.FloorCode {
	if dir {
		return c + 1
	}
	return c - 1
}

func TestMachineMasksWidth(t *testing.T) {
	m := floorfsm.New(stubTransitions{initial: 15})
	next := m.Peek(false, 1, floorfsm.Inputs{Direction: true})
	assert.Equal(t, logic.FloorCode(0), next, "floor code must wrap within 4 bits")
}

func TestMachineMultipleTicks(t *testing.T) {
	m := floorfsm.New(mustParse(t, ring))
	assert.Equal(t, logic.FloorCode(3), m.Peek(false, 3, floorfsm.Inputs{Direction: true}))
	assert.Equal(t, logic.FloorCode(2), m.Peek(false, 2, floorfsm.Inputs{Direction: false}))
	assert.Equal(t, logic.FloorCode(0), m.Floor(), "Peek must not modify the machine")
}

// walkTicks applies Next one tick at a time.
func walkTicks(tr floorfsm.Transitions, from logic.FloorCode, ticks int, dir bool) logic.FloorCode {
	f := from
	for i := 0; i < ticks; i++ {
		f = tr.Next(f, dir) & logic.FloorCodeMask
	}
	return f
}

func TestMachineCyclicTableMatchesTickByTick(t *testing.T) {
	// 0 -> 1 -> 2 -> 3 -> 1 on dir1: a lead-in of one state into a 3-cycle
	doc := `
initial: 0
states:
  - {state: 0, dir0: 1, dir1: 1}
  - {state: 1, dir0: 0, dir1: 2}
  - {state: 2, dir0: 1, dir1: 3}
  - {state: 3, dir0: 2, dir1: 1}
`
	tbl := mustParse(t, doc)
	m := floorfsm.New(tbl)
	for _, dir := range []bool{false, true} {
		for ticks := 0; ticks <= 40; ticks++ {
			got := m.Peek(false, uint64(ticks), floorfsm.Inputs{Direction: dir})
			if want := walkTicks(tbl, 0, ticks, dir); got != want {
				t.Errorf("dir=%v ticks=%d: got %d, want %d", dir, ticks, got, want)
			}
		}
	}
}

func TestMachineHugeTickCountOnCycle(t *testing.T) {
	doc := `
initial: 0
states:
  - {state: 0, dir0: 1, dir1: 1}
  - {state: 1, dir0: 0, dir1: 0}
`
	m := floorfsm.New(mustParse(t, doc))
	in := floorfsm.Inputs{Direction: true}
	assert.Equal(t, logic.FloorCode(0), m.Peek(false, 1<<62, in))
	assert.Equal(t, logic.FloorCode(1), m.Peek(false, 1<<62+1, in))
	assert.Equal(t, logic.FloorCode(1), m.Peek(false, ^uint64(0), in))
}

func TestTableHoldsUnlistedState(t *testing.T) {
	tbl := mustParse(t, ring)
	assert.Equal(t, logic.FloorCode(9), tbl.Next(9, true))
	assert.Equal(t, 4, tbl.States())
	assert.Equal(t, "ring", tbl.Name())
}

func TestParseTableErrors(t *testing.T) {
	_, err := floorfsm.ParseTable([]byte("states: []"))
	assert.True(t, errors.Is(err, floorfsm.ErrNoInitial), "got %v", err)

	_, err = floorfsm.ParseTable([]byte("initial: 0\nstates:\n  - {state: 1, dir0: 0, dir1: 2}\n  - {state: 1, dir0: 0, dir1: 2}\n"))
	assert.True(t, errors.Is(err, floorfsm.ErrDuplicateState), "got %v", err)

	_, err = floorfsm.ParseTable([]byte("initial: 16\n"))
	assert.Error(t, err, "initial floor wider than 4 bits must be rejected")

	_, err = floorfsm.ParseTable([]byte("initial: [\n"))
	assert.Error(t, err)
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "floors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ring), 0o644))

	tbl, err := floorfsm.LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, logic.FloorCode(0), tbl.Initial())

	_, err = floorfsm.LoadTable(filepath.Join(dir, "floors.json"))
	assert.Error(t, err)

	_, err = floorfsm.LoadTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
