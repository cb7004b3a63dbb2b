package serialmux

import (
	"fmt"
	"strings"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/monitoring"
)

// HandleLine dispatches one line from the board. Input frames are passed to
// apply; acknowledgements and errors are logged.
func HandleLine(payload string, apply func(board.Inputs)) error {
	switch ClassifyPayload(payload) {
	case EventTypeInput:
		in, err := ParseInputFrame(payload)
		if err != nil {
			return fmt.Errorf("failed to handle input frame: %w", err)
		}
		apply(in)
	case EventTypeAck:
		monitoring.Logf("board ack: %s", strings.TrimSpace(payload))
	case EventTypeError:
		return fmt.Errorf("board reported: %s", strings.TrimSpace(payload))
	default:
		monitoring.Logf("unknown board line: %q", payload)
	}
	return nil
}
