// Package sim runs the board in paced real time. Each frame the runner turns
// elapsed wall time into source cycles, advances the board with the latest
// inputs, reports what changed and forwards the output surface to the
// physical board.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/clockdiv"
	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/serialmux"
	"github.com/banshee-data/lift-controller/internal/timeutil"
)

// FrameSender delivers output frames to the board. serialmux.SerialMuxInterface
// satisfies it.
type FrameSender interface {
	SendCommand(string) error
}

// Options configure a Runner.
type Options struct {
	Clock timeutil.Clock
	// FrameInterval is the wall time between board updates.
	FrameInterval time.Duration
	// TimeScale multiplies the source frequency; 1 is real time.
	TimeScale float64
	// OutputRate caps output frames per second sent to the board. Zero sends
	// every frame.
	OutputRate float64
	Sender     FrameSender
	Sinks      []Sink
	Metrics    *monitoring.Metrics
}

// Runner drives a board.Top from a Latch.
type Runner struct {
	top   *board.Top
	latch *Latch
	opts  Options

	limiter *rate.Limiter
	started chan struct{}

	mu       sync.RWMutex
	last     board.Outputs
	lastSent string
	carry    float64
}

// NewRunner returns a runner with defaults applied to unset options.
func NewRunner(top *board.Top, latch *Latch, opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 20 * time.Millisecond
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	r := &Runner{
		top:     top,
		latch:   latch,
		opts:    opts,
		started: make(chan struct{}),
		last:    top.Outputs(),
	}
	if opts.OutputRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.OutputRate), 1)
	}
	return r
}

// Started is closed once Run is waiting for frames.
func (r *Runner) Started() <-chan struct{} { return r.started }

// Rate reports the divided clock rate at real-time pacing.
func (r *Runner) Rate() clockdiv.Rate { return r.top.Divider().Rate(board.SourceHz) }

// Snapshot returns the outputs of the most recent frame.
func (r *Runner) Snapshot() board.Outputs {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run advances the board once per frame until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.opts.Clock.NewTicker(r.opts.FrameInterval)
	defer ticker.Stop()

	prev := r.opts.Clock.Now()
	close(r.started)
	monitoring.Logf("runner: %s, time scale %g, frame every %s",
		r.Rate(), r.opts.TimeScale, r.opts.FrameInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			elapsed := now.Sub(prev)
			prev = now
			if elapsed <= 0 {
				continue
			}
			r.Frame(ctx, r.cyclesFor(elapsed), now)
		}
	}
}

// cyclesFor converts elapsed wall time to source cycles, carrying the
// fractional remainder into the next frame.
func (r *Runner) cyclesFor(elapsed time.Duration) uint64 {
	exact := elapsed.Seconds()*board.SourceHz*r.opts.TimeScale + r.carry
	cycles := uint64(exact)
	r.carry = exact - float64(cycles)
	return cycles
}

// Frame advances the board by cycles with the latched inputs and reports the
// result. Run calls it on every tick; tests call it directly.
func (r *Runner) Frame(ctx context.Context, cycles uint64, at time.Time) board.Outputs {
	in := r.latch.Get()

	r.mu.RLock()
	prev := r.last
	r.mu.RUnlock()

	out := r.top.Run(in, cycles)

	r.mu.Lock()
	r.last = out
	r.mu.Unlock()

	events := Diff(prev, out, at)
	r.observe(prev, out, cycles, events)
	for _, e := range events {
		for _, s := range r.opts.Sinks {
			if err := s.HandleEvent(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("runner: sink failed for %s event: %v", e.Kind, err)
			}
		}
	}
	r.send(out)
	return out
}

func (r *Runner) observe(prev, out board.Outputs, cycles uint64, events []Event) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	m.SourceCycles.Add(float64(cycles))
	if out.Ticks > prev.Ticks {
		m.SlowTicks.Add(float64(out.Ticks - prev.Ticks))
	}
	m.Floor.Set(float64(out.Floor))
	for _, e := range events {
		switch {
		case e.Kind == FloorChanged:
			m.FloorChanges.Inc()
		case e.Kind == ResetChanged && e.Asserted:
			m.Resets.WithLabelValues(e.Domain).Inc()
		}
	}
}

// send forwards the output surface when it changed and the rate limit allows.
func (r *Runner) send(out board.Outputs) {
	if r.opts.Sender == nil {
		return
	}
	frame := serialmux.FormatOutputFrame(out)
	if frame == r.lastSent {
		return
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.count("throttled")
		return
	}
	if err := r.opts.Sender.SendCommand(frame); err != nil {
		monitoring.Logf("runner: failed to send output frame: %v", err)
		r.count("error")
		return
	}
	r.lastSent = frame
	r.count("sent")
}

func (r *Runner) count(result string) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.Frames.WithLabelValues(result).Inc()
	}
}
