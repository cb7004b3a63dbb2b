package panel

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

func TestDigit(t *testing.T) {
	tests := []struct {
		seg  logic.Segments
		want [3]string
	}{
		{0x00, [3]string{" _ ", "|_|", "|_|"}}, // 8
		{0x40, [3]string{" _ ", "| |", "|_|"}}, // 0
		{0x79, [3]string{"   ", "  |", "  |"}}, // 1
		{0x24, [3]string{" _ ", " _|", "|_ "}}, // 2
		{0x7f, [3]string{"   ", "   ", "   "}}, // blank
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Digit(tt.seg)); diff != "" {
			t.Errorf("Digit(%#x) mismatch (-want +got):\n%s", uint8(tt.seg), diff)
		}
	}
}

func plainStyles() Styles {
	st := DefaultStyles()
	plain := lipgloss.NewStyle()
	st.Title, st.Lit, st.Dark, st.Reset, st.Dim = plain, plain, plain, plain, plain
	st.Label = plain.Width(10)
	return st
}

func TestRender(t *testing.T) {
	in := board.Inputs{
		Switches: logic.Vector(0).With(board.StopLine, true).With(board.DirectionLine, true),
		Buttons:  board.ResetButtons{FSM: true},
	}
	out := board.Outputs{
		Anodes:   logic.DigitsInactive,
		Segments: 0x30,
		Floor:    3,
		FSMReset: true,
		Ticks:    7,
		Cycles:   175_000_000,
	}
	got := Render(plainStyles(), in, out)

	for _, want := range []string{
		"floor 3",
		"0x30 decoded, digits disabled",
		"○○○○",
		"○○○○○○○○○○○○○○○○",
		"○○○○○○○○○○○○○○●●",
		"stop up",
		"ticks 7  cycles 175000000",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("panel missing %q:\n%s", want, got)
		}
	}
}
