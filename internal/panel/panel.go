// Package panel draws the board's front panel in the terminal.
package panel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

var (
	on    = lipgloss.Color("#8BC34A")
	off   = lipgloss.Color("#2a3850")
	alert = lipgloss.Color("#e53935")
	muted = lipgloss.Color("#9e9e9e")
)

// Styles used by Render.
type Styles struct {
	Frame lipgloss.Style
	Title lipgloss.Style
	Label lipgloss.Style
	Lit   lipgloss.Style
	Dark  lipgloss.Style
	Reset lipgloss.Style
	Dim   lipgloss.Style
}

// DefaultStyles returns the panel's standard look.
func DefaultStyles() Styles {
	return Styles{
		Frame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(off).Padding(0, 1),
		Title: lipgloss.NewStyle().Bold(true),
		Label: lipgloss.NewStyle().Foreground(muted).Width(10),
		Lit:   lipgloss.NewStyle().Foreground(on).Bold(true),
		Dark:  lipgloss.NewStyle().Foreground(off),
		Reset: lipgloss.NewStyle().Foreground(alert).Bold(true),
		Dim:   lipgloss.NewStyle().Foreground(muted).Faint(true),
	}
}

// Digit draws an active-low seven-segment pattern as three text rows.
func Digit(s logic.Segments) [3]string {
	seg := func(i int, lit string) string {
		if s.Lit(i) {
			return lit
		}
		return " "
	}
	return [3]string{
		" " + seg(0, "_") + " ",
		seg(5, "|") + seg(6, "_") + seg(1, "|"),
		seg(4, "|") + seg(3, "_") + seg(2, "|"),
	}
}

// Render draws the panel for one frame.
func Render(st Styles, in board.Inputs, out board.Outputs) string {
	var rows []string
	rows = append(rows, st.Title.Render(fmt.Sprintf("lift controller  floor %d", out.Floor)))

	digit := Digit(out.Segments)
	note := "shown"
	if out.Anodes == logic.DigitsInactive {
		note = "decoded, digits disabled"
	}
	for i, line := range digit {
		label := ""
		if i == 0 {
			label = "segments"
		}
		suffix := ""
		if i == 1 {
			suffix = "  " + st.Dim.Render(fmt.Sprintf("0x%02x %s", uint8(out.Segments), note))
		}
		rows = append(rows, st.Label.Render(label)+st.Lit.Render(line)+suffix)
	}

	rows = append(rows,
		st.Label.Render("anodes")+bits(st, uint16(out.Anodes), logic.DigitCount, false),
		st.Label.Render("leds")+bits(st, uint16(out.LEDs), logic.VectorWidth, true),
		st.Label.Render("switches")+bits(st, uint16(in.Switches), logic.VectorWidth, true),
		st.Label.Render("control")+control(st, in.Switches),
		st.Label.Render("clock")+clock(st, out),
		st.Label.Render("resets")+resets(st, out),
	)
	return st.Frame.Render(strings.Join(rows, "\n"))
}

// bits draws a bus most significant line first. Active-low buses light on 0.
func bits(st Styles, v uint16, width int, activeHigh bool) string {
	var b strings.Builder
	for i := width - 1; i >= 0; i-- {
		set := v&(1<<i) != 0
		if set == activeHigh {
			b.WriteString(st.Lit.Render("●"))
		} else {
			b.WriteString(st.Dark.Render("○"))
		}
	}
	return b.String()
}

func control(st Styles, sw logic.Vector) string {
	ctl := board.ControlBits(sw)
	dir := "down"
	if ctl.Direction {
		dir = "up"
	}
	if ctl.Stop {
		return st.Reset.Render("stop") + " " + st.Dim.Render(dir)
	}
	return st.Lit.Render(dir)
}

func clock(st Styles, out board.Outputs) string {
	level := st.Dark.Render("low ")
	if out.SlowClock {
		level = st.Lit.Render("high")
	}
	return fmt.Sprintf("%s  ticks %d  cycles %d", level, out.Ticks, out.Cycles)
}

func resets(st Styles, out board.Outputs) string {
	var parts []string
	for _, r := range []struct {
		name     string
		asserted bool
	}{{"clock", out.ClockReset}, {"fsm", out.FSMReset}} {
		if r.asserted {
			parts = append(parts, st.Reset.Render(r.name))
		} else {
			parts = append(parts, st.Dim.Render(r.name))
		}
	}
	return strings.Join(parts, " ")
}
