package serialmux

import (
	"go.bug.st/serial"
)

// OpenSerialPort opens a real serial port with the given options.
func OpenSerialPort(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

// NewRealSerialMux creates a SerialMux backed by the board's UART at path.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	return NewSerialMuxWithOpener(path, opts, OpenSerialPort)
}

// NewSerialMuxWithOpener opens path with open and wraps the port.
func NewSerialMuxWithOpener(path string, opts PortOptions, open SerialPortOpener) (*SerialMux[SerialPorter], error) {
	port, err := open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux[SerialPorter](port), nil
}
