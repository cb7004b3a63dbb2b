package db

import (
	"context"

	"github.com/banshee-data/lift-controller/internal/sim"
)

// Recorder is a sim.Sink that stores events against one run.
type Recorder struct {
	db    *DB
	runID string
}

// NewRecorder returns a sink writing to runID.
func (db *DB) NewRecorder(runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) HandleEvent(ctx context.Context, e sim.Event) error {
	return r.db.RecordEvent(ctx, r.runID, e)
}

var _ sim.Sink = (*Recorder)(nil)
