package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/sim"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one controller session: a live run or a scenario replay.
type Run struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mode        string `json:"mode"`
	Transitions string `json:"transitions"`
	Segments    string `json:"segments"`
	// InitialFloor is the floor before the first recorded change.
	InitialFloor logic.FloorCode `json:"initial_floor"`
	StartedAt    time.Time       `json:"started_at"`
	EndedAt      *time.Time      `json:"ended_at,omitempty"`
}

// FloorEvent is a stored floor change.
type FloorEvent struct {
	At       time.Time       `json:"at"`
	Cycle    uint64          `json:"cycle"`
	Tick     uint64          `json:"tick"`
	Floor    logic.FloorCode `json:"floor"`
	Segments logic.Segments  `json:"segments"`
}

// ResetEvent is a stored reset edge.
type ResetEvent struct {
	At       time.Time `json:"at"`
	Cycle    uint64    `json:"cycle"`
	Tick     uint64    `json:"tick"`
	Domain   string    `json:"domain"`
	Asserted bool      `json:"asserted"`
}

// StartRun inserts a new run and returns it.
func (db *DB) StartRun(ctx context.Context, r Run) (*Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (run_id, name, mode, transitions, segments, initial_floor, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Mode, r.Transitions, r.Segments, int(r.InitialFloor), r.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return &r, nil
}

// FinishRun records the end time of a run.
func (db *DB) FinishRun(ctx context.Context, id string, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE runs SET ended_at = ? WHERE run_id = ?`, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordEvent stores a runner event against a run.
func (db *DB) RecordEvent(ctx context.Context, runID string, e sim.Event) error {
	var err error
	switch e.Kind {
	case sim.FloorChanged:
		_, err = db.ExecContext(ctx,
			`INSERT INTO floor_events (run_id, at, cycle, tick, floor, segments) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, e.At.UnixNano(), int64(e.Cycle), int64(e.Tick), int(e.Floor), int(e.Segments))
	case sim.ResetChanged:
		_, err = db.ExecContext(ctx,
			`INSERT INTO reset_events (run_id, at, cycle, tick, domain, asserted) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, e.At.UnixNano(), int64(e.Cycle), int64(e.Tick), e.Domain, e.Asserted)
	default:
		return fmt.Errorf("cannot record %s event", e.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Kind, err)
	}
	return nil
}

// GetRun returns a single run.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT run_id, name, mode, transitions, segments, initial_floor, started_at, ended_at FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Runs lists the most recent runs, newest first.
func (db *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, name, mode, transitions, segments, initial_floor, started_at, ended_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       Run
		initial int
		started int64
		ended   sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.Name, &r.Mode, &r.Transitions, &r.Segments, &initial, &started, &ended); err != nil {
		return nil, err
	}
	r.InitialFloor = logic.Floor(uint64(initial))
	r.StartedAt = time.Unix(0, started)
	if ended.Valid {
		t := time.Unix(0, ended.Int64)
		r.EndedAt = &t
	}
	return &r, nil
}

// FloorEvents returns a run's floor changes in time order.
func (db *DB) FloorEvents(ctx context.Context, runID string) ([]FloorEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT at, cycle, tick, floor, segments FROM floor_events WHERE run_id = ? ORDER BY at, event_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query floor events: %w", err)
	}
	defer rows.Close()

	var events []FloorEvent
	for rows.Next() {
		var (
			at, cycle, tick int64
			floor, segments int
		)
		if err := rows.Scan(&at, &cycle, &tick, &floor, &segments); err != nil {
			return nil, err
		}
		events = append(events, FloorEvent{
			At:       time.Unix(0, at),
			Cycle:    uint64(cycle),
			Tick:     uint64(tick),
			Floor:    logic.Floor(uint64(floor)),
			Segments: logic.Pattern(uint64(segments)),
		})
	}
	return events, rows.Err()
}

// ResetEvents returns a run's reset edges in time order.
func (db *DB) ResetEvents(ctx context.Context, runID string) ([]ResetEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT at, cycle, tick, domain, asserted FROM reset_events WHERE run_id = ? ORDER BY at, event_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reset events: %w", err)
	}
	defer rows.Close()

	var events []ResetEvent
	for rows.Next() {
		var (
			e               ResetEvent
			at, cycle, tick int64
		)
		if err := rows.Scan(&at, &cycle, &tick, &e.Domain, &e.Asserted); err != nil {
			return nil, err
		}
		e.At, e.Cycle, e.Tick = time.Unix(0, at), uint64(cycle), uint64(tick)
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunEvents returns floor changes and reset edges of a run merged into one
// time-ordered list. Reset edges sort ahead of a floor change at the same
// instant, as the runner emits them.
func (db *DB) RunEvents(ctx context.Context, runID string) ([]sim.Event, error) {
	floors, err := db.FloorEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	resets, err := db.ResetEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	events := make([]sim.Event, 0, len(floors)+len(resets))
	for _, r := range resets {
		events = append(events, sim.Event{Kind: sim.ResetChanged, At: r.At, Cycle: r.Cycle, Tick: r.Tick, Domain: r.Domain, Asserted: r.Asserted})
	}
	for _, f := range floors {
		events = append(events, sim.Event{Kind: sim.FloorChanged, At: f.At, Cycle: f.Cycle, Tick: f.Tick, Floor: f.Floor, Segments: f.Segments})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events, nil
}
