package sim

import (
	"context"

	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/serialmux"
)

// Subscriber is the part of the serial multiplexer FollowBoard needs.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// FollowBoard copies input frames from the board into the latch until ctx is
// cancelled or the subscription is closed.
func FollowBoard(ctx context.Context, s Subscriber, latch *Latch) error {
	id, lines := s.Subscribe()
	defer s.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := serialmux.HandleLine(line, latch.Set); err != nil {
				monitoring.Logf("board: %v", err)
			}
		}
	}
}
