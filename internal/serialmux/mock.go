package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// TestableSerialPort implements SerialPorter with configurable behaviour
// for testing: scripted reads, captured writes, injectable errors.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError, WriteError, and CloseError are returned by the matching
	// calls when set.
	ReadError  error
	WriteError error
	CloseError error

	// ShortWrite truncates the next write to half its length.
	ShortWrite bool

	// Closed indicates whether Close was called.
	Closed bool

	ReadCalls  int
	WriteCalls int
}

// NewTestableSerialPort creates a port whose reads drain the given data.
func NewTestableSerialPort(data string) *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBufferString(data),
		WriteBuffer: &bytes.Buffer{},
	}
}

func (p *TestableSerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadCalls++
	if p.ReadError != nil {
		return 0, p.ReadError
	}
	if p.Closed {
		return 0, io.EOF
	}
	if p.ReadBuffer.Len() == 0 {
		// simulate an idle link rather than returning EOF
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		p.mu.Lock()
		if p.Closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	return p.ReadBuffer.Read(buf)
}

func (p *TestableSerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WriteCalls++
	if p.WriteError != nil {
		return 0, p.WriteError
	}
	if p.ShortWrite {
		p.ShortWrite = false
		return p.WriteBuffer.Write(data[:len(data)/2])
	}
	return p.WriteBuffer.Write(data)
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return p.CloseError
}

// Written returns everything written to the port so far.
func (p *TestableSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.WriteBuffer.String()
}

// Feed appends more data for subsequent reads.
func (p *TestableSerialPort) Feed(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadBuffer.WriteString(data)
}
