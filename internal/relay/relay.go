// Package relay implements the loopback TCP bridge the flow supervisor
// places on every interior edge between two steps: it accepts one
// connection from the producing step and one from the consuming step,
// and copies NDJSON lines between them, ensure-hashing each one so a
// misbehaving step is caught at the edge rather than downstream.
package relay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/insilica/srvc-go/internal/event"
)

// Server bridges exactly one producer connection to exactly one
// consumer connection.
type Server struct {
	input  net.Listener
	output net.Listener
}

// New opens two loopback listeners on OS-assigned ports. InputAddr is
// where the producing step should dial; OutputAddr is where the
// consuming step should dial.
func New() (*Server, error) {
	input, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("relay: opening input listener: %w", err)
	}
	output, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		input.Close()
		return nil, fmt.Errorf("relay: opening output listener: %w", err)
	}
	return &Server{input: input, output: output}, nil
}

// InputAddr is where the producing step (this edge's upstream) should
// connect and write events.
func (s *Server) InputAddr() string { return s.input.Addr().String() }

// OutputAddr is where the consuming step (this edge's downstream)
// should connect and read events.
func (s *Server) OutputAddr() string { return s.output.Addr().String() }

// Close closes both listeners, aborting a pending Accept.
func (s *Server) Close() error {
	err1 := s.input.Close()
	err2 := s.output.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Run accepts one connection on each listener and copies events from
// input to output until input is closed by the producer, ensure-hashing
// every line in transit. It blocks until the bridge drains or an error
// occurs, and is meant to be run in its own goroutine.
func (s *Server) Run() error {
	input, err := s.input.Accept()
	if err != nil {
		return fmt.Errorf("relay: accepting producer connection: %w", err)
	}
	defer input.Close()

	output, err := s.output.Accept()
	if err != nil {
		return fmt.Errorf("relay: accepting consumer connection: %w", err)
	}
	defer output.Close()

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	writer := bufio.NewWriter(output)

	for scanner.Scan() {
		e, err := event.Parse(scanner.Text())
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		if e == nil {
			continue
		}
		if err := event.EnsureHash(e); err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("relay: serializing event: %w", err)
		}
		if _, err := writer.Write(b); err != nil {
			return fmt.Errorf("relay: writing event: %w", err)
		}
		if _, err := writer.Write([]byte("\n")); err != nil {
			return fmt.Errorf("relay: writing event: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("relay: reading from producer: %w", err)
	}
	return writer.Flush()
}
