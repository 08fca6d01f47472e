// Package serialmux provides an abstraction over the wearable's serial-style
// link with the ability for multiple clients to subscribe to decoded lines
// and send commands to a single device.
package serialmux

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/banshee-data/posture.report/internal/telemetry"
)

// ErrWriteFailed indicates a short write to the device.
var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// SerialMux multiplexes a single serial device: lines decoded from the byte
// stream fan out to every subscriber, and commands from any client are
// serialized onto the port.
type SerialMux[T SerialPorter] struct {
	port         T
	decoder      *telemetry.LineDecoder
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SerialMuxInterface defines the operations the pipeline and API layers use.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving line events from the
	// device. The returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the device.
	SendCommand(string) error
	// Monitor reads bytes from the device, decodes lines, and fans them
	// out to subscribers until the context is cancelled.
	Monitor(context.Context) error
	// Initialize sends the start sequence that puts the device into
	// streaming mode.
	Initialize() error
	// Close closes all subscribed channels and the underlying port.
	Close() error
}

// NewSerialMux creates a SerialMux backed by the given port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		decoder:     telemetry.NewLineDecoder(),
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	// buffered so a briefly busy consumer does not drop samples
	ch := make(chan string, 64)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialize sends the start sequence to put the device into streaming mode.
func (s *SerialMux[T]) Initialize() error {
	for _, command := range telemetry.StartSequence() {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	return nil
}

// SendCommand sends a command to the device, appending the newline
// terminator when absent.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads raw chunks from the port, reassembles lines, and sends them
// to subscribers. Chunk reassembly lives in the line decoder so arbitrary
// fragmentation on the link cannot split or merge lines.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lineChan := make(chan string)
	readErrChan := make(chan error, 1)

	// Reading happens on its own goroutine so a blocking Read cannot
	// interfere with the outer loop awaiting context cancellation.
	go func() {
		defer close(lineChan)
		buf := make([]byte, 1024)
		for {
			n, err := s.port.Read(buf)
			if err != nil {
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			if n == 0 {
				continue
			}
			for _, line := range s.decoder.Decode(buf[:n]) {
				select {
				case lineChan <- line:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				return nil
			}

			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// a full subscriber channel must not block the
					// delivery loop
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}
