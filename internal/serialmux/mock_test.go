package serialmux

import (
	"context"
	"testing"
	"time"

	"github.com/banshee-data/lift-controller/internal/board"
)

func TestMockSerialMuxReportsInputs(t *testing.T) {
	in := board.Inputs{Switches: 0x0002}
	mux, port := NewMockSerialMux(in, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, ch := mux.Subscribe()
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	select {
	case line := <-ch:
		got, err := ParseInputFrame(line)
		if err != nil {
			t.Fatalf("ParseInputFrame(%q): %v", line, err)
		}
		if got != in {
			t.Errorf("mock reported %+v, want %+v", got, in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mock board sent nothing")
	}

	port.SetInputs(board.Inputs{Buttons: board.ResetButtons{Master: true}})
	if !waitForFrame(ch, func(in board.Inputs) bool { return in.Buttons.Master }) {
		t.Fatal("mock board never reported updated inputs")
	}

	if err := mux.SendCommand("HELLO"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if w := port.Written(); len(w) != 1 || w[0] != "HELLO" {
		t.Errorf("Written() = %q", w)
	}

	if err := mux.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after Close")
	}
	if err := port.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func waitForFrame(ch chan string, match func(board.Inputs) bool) bool {
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-ch:
			if in, err := ParseInputFrame(line); err == nil && match(in) {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
