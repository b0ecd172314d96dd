package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// PortServer serves reading requests over a byte-oriented port, one request
// byte in, one reply out.
type PortServer struct {
	port      io.ReadWriter
	responder *Responder
}

// NewPortServer creates a PortServer reading requests from port.
func NewPortServer(port io.ReadWriter, responder *Responder) *PortServer {
	return &PortServer{port: port, responder: responder}
}

// Serve reads request bytes and writes replies until the port reaches EOF
// or errors. Unrecognized requests get no reply. Cancelling the context
// does not interrupt a blocked read — close the port to unblock; Serve
// then returns nil.
func (s *PortServer) Serve(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read command port: %w", err)
		}
		if n == 0 {
			continue
		}

		reply := s.responder.Handle(buf[0])
		if reply == nil {
			continue
		}
		if _, err := s.port.Write(reply); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write reply: %w", err)
		}
	}
}
