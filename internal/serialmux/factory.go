package serialmux

import (
	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux backed by a real serial port at the
// given path using the provided options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewSerialMux[serial.Port](port), nil
}

// NewMockSerialMux creates a SerialMux that replays the given bytes as if
// read from a device, for development without hardware attached.
func NewMockSerialMux(data []byte) *SerialMux[*TestableSerialPort] {
	return NewSerialMux[*TestableSerialPort](NewTestableSerialPort(string(data)))
}
