// Package api is the controller's HTTP surface: live status and inputs, the
// trace store, charts and metrics.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/lift-controller/internal/board"
	"github.com/banshee-data/lift-controller/internal/clockdiv"
	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/logic"
	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/panel"
	"github.com/banshee-data/lift-controller/internal/serialmux"
	"github.com/banshee-data/lift-controller/internal/sim"
	"github.com/banshee-data/lift-controller/internal/waveform"
)

// ANSI escape codes used by the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m       serialmux.SerialMuxInterface
	runner  *sim.Runner
	latch   *sim.Latch
	db      *db.DB
	metrics *monitoring.Metrics
	runID   string
	input   InputBoard
}

// NewServer wires the handlers. db and metrics may be nil; their routes then
// answer 503 and 404 respectively.
func NewServer(m serialmux.SerialMuxInterface, runner *sim.Runner, latch *sim.Latch, store *db.DB, metrics *monitoring.Metrics) *Server {
	return &Server{
		m:       m,
		runner:  runner,
		latch:   latch,
		db:      store,
		metrics: metrics,
	}
}

// InputBoard is a board whose reported inputs can be set from the host, such
// as serialmux.MockBoardPort.
type InputBoard interface {
	SetInputs(board.Inputs)
}

// SetInputBoard makes POST /api/inputs drive b as well as the latch. Without
// it a simulated board would report its old inputs over the new ones.
func (s *Server) SetInputBoard(b InputBoard) { s.input = b }

// SetCurrentRun names the run that /chart shows.
func (s *Server) SetCurrentRun(id string) { s.runID = id }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.showStatus)
	mux.HandleFunc("POST /api/inputs", s.setInputs)
	mux.HandleFunc("GET /api/panel", s.showPanel)
	mux.HandleFunc("POST /command", s.sendCommandHandler)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}/events", s.listRunEvents)
	mux.HandleFunc("GET /api/runs/{id}/summary", s.showRunSummary)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.showRunChart)
	mux.HandleFunc("GET /chart", s.showCurrentChart)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type statusResponse struct {
	RunID   string        `json:"run_id,omitempty"`
	Inputs  board.Inputs  `json:"inputs"`
	Outputs board.Outputs `json:"outputs"`
	Rate    clockdiv.Rate `json:"rate"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, statusResponse{
		RunID:   s.runID,
		Inputs:  s.latch.Get(),
		Outputs: s.runner.Snapshot(),
		Rate:    s.runner.Rate(),
	})
}

// inputsRequest updates only the fields it carries.
type inputsRequest struct {
	Switches *logic.Vector       `json:"switches"`
	Buttons  *board.ResetButtons `json:"buttons"`
}

func (s *Server) setInputs(w http.ResponseWriter, r *http.Request) {
	var req inputsRequest
	body := http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid inputs: "+err.Error())
		return
	}
	if req.Switches == nil && req.Buttons == nil {
		s.writeJSONError(w, http.StatusBadRequest, "Nothing to set")
		return
	}
	in := s.latch.Get()
	if req.Switches != nil {
		in.Switches = *req.Switches
	}
	if req.Buttons != nil {
		in.Buttons = *req.Buttons
	}
	// the simulated board learns the inputs first so its next report
	// carries them instead of the previous frame
	if s.input != nil {
		s.input.SetInputs(in)
	}
	s.latch.Set(in)
	s.writeJSON(w, in)
}

func (s *Server) showPanel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, panel.Render(panel.DefaultStyles(), s.latch.Get(), s.runner.Snapshot())+"\n")
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	command := r.FormValue("command")
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Trace store disabled")
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}
	runs, err := s.db.Runs(r.Context(), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

// lookupRun loads the run named in the path, writing the error response
// itself when it cannot.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request, id string) (*db.Run, []sim.Event, bool) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Trace store disabled")
		return nil, nil, false
	}
	run, err := s.db.GetRun(r.Context(), id)
	if errors.Is(err, db.ErrRunNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "Run not found")
		return nil, nil, false
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load run")
		return nil, nil, false
	}
	events, err := s.db.RunEvents(r.Context(), id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load events")
		return nil, nil, false
	}
	return run, events, true
}

type eventsResponse struct {
	Run    db.Run          `json:"run"`
	Floors []db.FloorEvent `json:"floors"`
	Resets []db.ResetEvent `json:"resets"`
}

func (s *Server) listRunEvents(w http.ResponseWriter, r *http.Request) {
	run, events, ok := s.lookupRun(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	resp := eventsResponse{Run: *run, Floors: []db.FloorEvent{}, Resets: []db.ResetEvent{}}
	for _, e := range events {
		switch e.Kind {
		case sim.FloorChanged:
			resp.Floors = append(resp.Floors, db.FloorEvent{At: e.At, Cycle: e.Cycle, Tick: e.Tick, Floor: e.Floor, Segments: e.Segments})
		case sim.ResetChanged:
			resp.Resets = append(resp.Resets, db.ResetEvent{At: e.At, Cycle: e.Cycle, Tick: e.Tick, Domain: e.Domain, Asserted: e.Asserted})
		}
	}
	s.writeJSON(w, resp)
}

func (s *Server) showRunSummary(w http.ResponseWriter, r *http.Request) {
	run, events, ok := s.lookupRun(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	s.writeJSON(w, waveform.Summarize(s.trace(run, events)))
}

func (s *Server) showRunChart(w http.ResponseWriter, r *http.Request) {
	s.renderChart(w, r, r.PathValue("id"))
}

func (s *Server) showCurrentChart(w http.ResponseWriter, r *http.Request) {
	if s.runID == "" {
		s.writeJSONError(w, http.StatusNotFound, "No run in progress")
		return
	}
	s.renderChart(w, r, s.runID)
}

func (s *Server) renderChart(w http.ResponseWriter, r *http.Request, id string) {
	run, events, ok := s.lookupRun(w, r, id)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := waveform.RenderHTML(&buf, s.trace(run, events)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// trace builds the waveform for a run. A run still in progress is drawn up
// to now.
func (s *Server) trace(run *db.Run, events []sim.Event) waveform.Trace {
	t := waveform.FromRun(*run, events)
	if run.EndedAt == nil && run.ID == s.runID {
		t.End = time.Now()
	}
	return t
}
