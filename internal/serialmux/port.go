package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// Tests substitute in-memory ports for the board.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with a read timeout, which
// go.bug.st/serial ports provide.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// SerialPortOpener opens a port at path. NewRealSerialMux uses the
// go.bug.st/serial opener; tests inject their own.
type SerialPortOpener func(path string, opts PortOptions) (SerialPorter, error)
