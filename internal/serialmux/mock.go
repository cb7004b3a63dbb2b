package serialmux

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/lift-controller/internal/board"
)

// MockBoardPort stands in for the board in dev mode. It repeats an input frame
// at a fixed interval and records the frames the host writes.
type MockBoardPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	line    string
	written []string
	done    chan struct{}
	once    sync.Once
}

// NewMockBoardPort starts a mock board that reports in every interval.
func NewMockBoardPort(in board.Inputs, interval time.Duration) *MockBoardPort {
	r, w := io.Pipe()
	m := &MockBoardPort{
		r:    r,
		w:    w,
		line: FormatInputFrame(in) + "\n",
		done: make(chan struct{}),
	}
	go m.emit(interval)
	return m
}

func (m *MockBoardPort) emit(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			line := m.line
			m.mu.Unlock()
			if _, err := io.WriteString(m.w, line); err != nil {
				return
			}
		}
	}
}

// SetInputs changes the frame the mock board reports.
func (m *MockBoardPort) SetInputs(in board.Inputs) {
	m.mu.Lock()
	m.line = FormatInputFrame(in) + "\n"
	m.mu.Unlock()
}

func (m *MockBoardPort) Read(p []byte) (int, error) { return m.r.Read(p) }

func (m *MockBoardPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		m.written = append(m.written, line)
	}
	return len(p), nil
}

// Written returns the lines the host has sent.
func (m *MockBoardPort) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}

func (m *MockBoardPort) Close() error {
	m.once.Do(func() {
		close(m.done)
		m.w.Close()
		m.r.Close()
	})
	return nil
}

// NewMockSerialMux creates a SerialMux backed by a MockBoardPort.
func NewMockSerialMux(in board.Inputs, interval time.Duration) (*SerialMux[*MockBoardPort], *MockBoardPort) {
	port := NewMockBoardPort(in, interval)
	return NewSerialMux(port), port
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// It provides fine-grained control over reads, writes and errors.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than it was given
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read reads from the read buffer, optionally blocking until data arrives.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	n, err = t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(time.Duration) error { return nil }

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}
