package serialmux

import (
	"testing"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/logic"
)

func TestClassifyPayload(t *testing.T) {
	tests := map[string]string{
		"IN sw=0x0001 btn=-": EventTypeInput,
		"  in sw=1":          EventTypeInput,
		"ACK HELLO":          EventTypeAck,
		"ERR bad frame":      EventTypeError,
		"":                   EventTypeUnknown,
		"OUT led=0x0000":     EventTypeUnknown,
		"INPUT":              EventTypeUnknown,
	}
	for payload, want := range tests {
		if got := ClassifyPayload(payload); got != want {
			t.Errorf("ClassifyPayload(%q) = %q, want %q", payload, got, want)
		}
	}
}

func TestParseInputFrame(t *testing.T) {
	tests := []struct {
		payload string
		want    board.Inputs
		wantErr bool
	}{
		{"IN sw=0x0003 btn=-", board.Inputs{Switches: 3}, false},
		{"IN sw=0b10 btn=clock,master", board.Inputs{Switches: 2, Buttons: board.ResetButtons{Clock: true, Master: true}}, false},
		{"IN btn=fsm", board.Inputs{Buttons: board.ResetButtons{FSM: true}}, false},
		{"IN sw=0xffff fw=2", board.Inputs{Switches: 0xffff}, false},
		{"IN", board.Inputs{}, false},
		{"IN sw=0x10000", board.Inputs{}, true},
		{"IN btn=door", board.Inputs{}, true},
		{"IN sw", board.Inputs{}, true},
		{"ACK HELLO", board.Inputs{}, true},
	}
	for _, tt := range tests {
		got, err := ParseInputFrame(tt.payload)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInputFrame(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseInputFrame(%q) = %+v, want %+v", tt.payload, got, tt.want)
		}
	}
}

func TestInputFrameRoundTrip(t *testing.T) {
	in := board.Inputs{Switches: 0x8003, Buttons: board.ResetButtons{FSM: true, Master: true}}
	line := FormatInputFrame(in)
	if line != "IN sw=0x8003 btn=fsm,master" {
		t.Errorf("FormatInputFrame = %q", line)
	}
	got, err := ParseInputFrame(line)
	if err != nil || got != in {
		t.Errorf("ParseInputFrame(%q) = %+v, %v", line, got, err)
	}
}

func TestFormatOutputFrame(t *testing.T) {
	out := board.Outputs{Anodes: logic.DigitsInactive, Segments: 0x40, Floor: 3}
	if got, want := FormatOutputFrame(out), "OUT led=0x0000 an=0xf seg=0x40"; got != want {
		t.Errorf("FormatOutputFrame = %q, want %q", got, want)
	}
}

func TestHandleLine(t *testing.T) {
	var applied []board.Inputs
	apply := func(in board.Inputs) { applied = append(applied, in) }

	if err := HandleLine("IN sw=0x0001 btn=-", apply); err != nil {
		t.Fatalf("HandleLine input: %v", err)
	}
	if err := HandleLine("ACK MODE FRAMES", apply); err != nil {
		t.Errorf("HandleLine ack: %v", err)
	}
	if err := HandleLine("garbage", apply); err != nil {
		t.Errorf("HandleLine unknown: %v", err)
	}
	if err := HandleLine("ERR overrun", apply); err == nil {
		t.Error("expected error for ERR line")
	}
	if err := HandleLine("IN sw=zz", apply); err == nil {
		t.Error("expected error for malformed input frame")
	}
	if len(applied) != 1 || applied[0].Switches != 1 {
		t.Errorf("applied = %+v", applied)
	}
}
