package serialmux

import (
	"fmt"
	"strings"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

// Board line protocol. The device reports its inputs and acknowledges
// commands; the host sends the output surface.
//
//	IN sw=0x0003 btn=clock,master
//	OUT led=0x0000 an=0xf seg=0x40
//	ACK HELLO
const (
	EventTypeInput   = "input"
	EventTypeAck     = "ack"
	EventTypeError   = "error"
	EventTypeUnknown = "unknown"
)

// ClassifyPayload returns the event type token for a line from the board.
func ClassifyPayload(payload string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(payload), " ")
	switch strings.ToUpper(head) {
	case "IN":
		return EventTypeInput
	case "ACK":
		return EventTypeAck
	case "ERR":
		return EventTypeError
	default:
		return EventTypeUnknown
	}
}

// ParseInputFrame decodes an IN line. Missing fields read as released
// buttons and switches at zero.
func ParseInputFrame(payload string) (board.Inputs, error) {
	var in board.Inputs
	fields := strings.Fields(strings.TrimSpace(payload))
	if len(fields) == 0 || !strings.EqualFold(fields[0], "IN") {
		return in, fmt.Errorf("not an input frame: %q", payload)
	}
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return in, fmt.Errorf("malformed field %q", f)
		}
		switch strings.ToLower(key) {
		case "sw":
			sw, err := logic.ParseVector(value)
			if err != nil {
				return in, fmt.Errorf("failed to parse switches: %w", err)
			}
			in.Switches = sw
		case "btn":
			b, err := board.ParseButtons(value)
			if err != nil {
				return in, err
			}
			in.Buttons = b
		default:
			// unknown fields are tolerated so newer firmware can add lines
		}
	}
	return in, nil
}

// FormatInputFrame encodes inputs as an IN line, as the board firmware and the
// mock device send them.
func FormatInputFrame(in board.Inputs) string {
	return fmt.Sprintf("IN sw=0x%04x btn=%s", uint16(in.Switches), in.Buttons)
}

// FormatOutputFrame encodes the physical outputs as an OUT line.
func FormatOutputFrame(out board.Outputs) string {
	return fmt.Sprintf("OUT led=0x%04x an=0x%x seg=0x%02x",
		uint16(out.LEDs), uint8(out.Anodes), uint8(out.Segments))
}
