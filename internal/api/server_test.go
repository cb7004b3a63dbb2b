package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/segdecode"
	"github.com/banshee-data/lift-controller/internal/serialmux"
	"github.com/banshee-data/lift-controller/internal/sim"
)

func init() { monitoring.SetLogger(nil) }

// upDown counts up on direction 1 and down on direction 0, from floor 2.
type upDown struct{}

func (upDown) Initial() logic.FloorCode { return 2 }
func (upDown) Next(c logic.FloorCode, dir bool) logic.FloorCode {
	if dir {
		return c + 1
	}
	return c - 1
}

type fixture struct {
	srv    *Server
	mux    http.Handler
	runner *sim.Runner
	latch  *sim.Latch
	store  *db.DB
	port   *serialmux.TestableSerialPort
}

func newFixture(t *testing.T, withDB bool) *fixture {
	t.Helper()
	top, err := board.New(upDown{}, segdecode.Func(func(c logic.FloorCode) logic.Segments { return logic.Segments(c) }))
	require.NoError(t, err)

	f := &fixture{latch: sim.NewLatch(board.Inputs{}), port: serialmux.NewTestableSerialPort()}
	f.runner = sim.NewRunner(top, f.latch, sim.Options{})
	if withDB {
		f.store, err = db.NewDB(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { f.store.Close() })
	}
	f.srv = NewServer(serialmux.NewSerialMux(f.port), f.runner, f.latch, f.store, monitoring.NewMetrics())
	f.mux = LoggingMiddleware(f.srv.ServeMux())
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if method == http.MethodPost && strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestStatusReportsOutputsAndRate(t *testing.T) {
	f := newFixture(t, false)
	f.latch.Set(board.Inputs{Switches: 0b10})
	f.runner.Frame(context.Background(), board.CyclesForTicks(1), time.Now())

	rec := f.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 3, got.Outputs.Floor)
	assert.EqualValues(t, 0, got.Outputs.LEDs)
	assert.Equal(t, logic.DigitsInactive, got.Outputs.Anodes)
	assert.EqualValues(t, 0b10, got.Inputs.Switches)
	assert.Equal(t, 8.0, got.Rate.TogglesPerSec)
	assert.Equal(t, 4.0, got.Rate.RisingPerSec)
}

func TestSetInputs(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/inputs", `{"switches": "0b11"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/inputs", `{"buttons": {"master": true}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	want := board.Inputs{Switches: 3, Buttons: board.ResetButtons{Master: true}}
	assert.Equal(t, want, f.latch.Get())

	tests := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"too wide", `{"switches": "0x10000"}`},
		{"not json", `switches=3`},
		{"number", `{"switches": 3}`},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodPost, "/api/inputs", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
	}
	assert.Equal(t, want, f.latch.Get(), "rejected requests leave inputs alone")

	rec = f.do(t, http.MethodGet, "/api/inputs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPanel(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/panel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "floor 2")
}

func TestSendCommand(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/command", "command=HELLO")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HELLO\n", string(f.port.GetWrittenData()))

	rec = f.do(t, http.MethodPost, "/command", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.port.ShortWrite = true
	rec = f.do(t, http.MethodPost, "/command", "command=HELLO")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunsRequireStore(t *testing.T) {
	f := newFixture(t, false)
	for _, path := range []string{"/api/runs", "/api/runs/abc/events", "/api/runs/abc/chart"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestRunRoutes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	run, err := f.store.StartRun(ctx, db.Run{Name: "climb", Mode: "replay", InitialFloor: 2, StartedAt: start})
	require.NoError(t, err)
	rec := f.store.NewRecorder(run.ID)
	require.NoError(t, rec.HandleEvent(ctx, sim.Event{Kind: sim.FloorChanged, At: start.Add(time.Second), Tick: 1, Floor: 3, Segments: 3}))
	require.NoError(t, rec.HandleEvent(ctx, sim.Event{Kind: sim.ResetChanged, At: start.Add(2 * time.Second), Domain: sim.DomainFSM, Asserted: true}))
	require.NoError(t, f.store.FinishRun(ctx, run.ID, start.Add(4*time.Second)))

	resp := f.do(t, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var runs []db.Run
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/runs?limit=0", "").Code)

	resp = f.do(t, http.MethodGet, "/api/runs/"+run.ID+"/events", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var events eventsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &events))
	require.Len(t, events.Floors, 1)
	require.Len(t, events.Resets, 1)
	assert.EqualValues(t, 3, events.Floors[0].Floor)
	assert.Equal(t, sim.DomainFSM, events.Resets[0].Domain)

	resp = f.do(t, http.MethodGet, "/api/runs/"+run.ID+"/summary", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var summary struct {
		Changes   int     `json:"changes"`
		DwellMean float64 `json:"dwell_mean"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Changes)
	assert.Equal(t, 2.0, summary.DwellMean)

	resp = f.do(t, http.MethodGet, "/api/runs/"+run.ID+"/chart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Body.String(), "Lift climb")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/runs/missing/events", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/chart", "").Code)

	f.srv.SetCurrentRun(run.ID)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/chart", "").Code)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lift_source_cycles_total")
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), "200")
	assert.True(t, strings.HasPrefix(statusCodeColor(404), colorBoldRed))
	assert.True(t, strings.HasPrefix(statusCodeColor(302), colorYellow))
	assert.Equal(t, "100", statusCodeColor(100))
}

func TestSetInputsSurvivesMockBoardReports(t *testing.T) {
	const interval = 10 * time.Millisecond
	link, mockPort := serialmux.NewMockSerialMux(board.Inputs{}, interval)
	defer link.Close()

	top, err := board.New(upDown{}, segdecode.Func(func(c logic.FloorCode) logic.Segments { return logic.Segments(c) }))
	require.NoError(t, err)
	latch := sim.NewLatch(board.Inputs{})
	srv := NewServer(link, sim.NewRunner(top, latch, sim.Options{}), latch, nil, nil)
	srv.SetInputBoard(mockPort)
	mux := srv.ServeMux()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { link.Monitor(ctx); done <- struct{}{} }()
	go func() { sim.FollowBoard(ctx, link, latch); done <- struct{}{} }()
	defer func() {
		cancel()
		<-done
		<-done
	}()

	// let the board report its power-on inputs first
	time.Sleep(3 * interval)

	req := httptest.NewRequest(http.MethodPost, "/api/inputs", strings.NewReader(`{"switches": "0b10", "buttons": {"master": true}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	time.Sleep(10 * interval)

	want := board.Inputs{Switches: 0b10, Buttons: board.ResetButtons{Master: true}}
	assert.Equal(t, want, latch.Get(), "inputs set over HTTP must outlive the board's periodic reports")
}
