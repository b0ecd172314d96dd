package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sweeney/valve-regulator/internal/regulator"
)

// pipePort joins two pipes into the io.ReadWriter a PortServer expects.
type pipePort struct {
	io.Reader
	io.Writer
}

// startServer runs a PortServer over pipes and returns the test's ends.
func startServer(t *testing.T, r *Responder) (io.WriteCloser, io.Reader, <-chan error) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv := NewPortServer(&pipePort{Reader: reqR, Writer: respW}, r)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(context.Background())
	}()
	return reqW, respR, errCh
}

func TestServeAnswersReadingRequest(t *testing.T) {
	r := NewResponder(true)
	r.SetReading(5800)
	r.SetAction(regulator.ActionOpened)

	reqW, respR, errCh := startServer(t, r)

	if _, err := reqW.Write([]byte{RequestReading}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reply := make([]byte, ReplySize)
	if _, err := io.ReadFull(respR, reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !bytes.Equal(reply, []byte{0xA8, 0x16, '+'}) {
		t.Errorf("reply: got %v, want [168 22 43]", reply)
	}

	reqW.Close()
	if err := waitErr(t, errCh); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}

func TestServeSkipsUnrecognizedRequests(t *testing.T) {
	r := NewResponder(true)
	r.SetReading(1234)

	reqW, respR, errCh := startServer(t, r)

	// Garbage first, then a valid request. The only bytes on the response
	// pipe must be the valid request's reply.
	if _, err := reqW.Write([]byte{'z', 0x00, RequestReading}); err != nil {
		t.Fatalf("write requests: %v", err)
	}

	reply := make([]byte, ReplySize)
	if _, err := io.ReadFull(respR, reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if got := uint16(reply[0]) | uint16(reply[1])<<8; got != 1234 {
		t.Errorf("reading: got %d, want 1234", got)
	}

	reqW.Close()
	if err := waitErr(t, errCh); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}

func TestServeReturnsNilOnEOF(t *testing.T) {
	reqW, _, errCh := startServer(t, NewResponder(true))
	reqW.Close()
	if err := waitErr(t, errCh); err != nil {
		t.Errorf("Serve after EOF: got %v, want nil", err)
	}
}

func TestServeReturnsReadError(t *testing.T) {
	reqR, reqW := io.Pipe()
	srv := NewPortServer(&pipePort{Reader: reqR, Writer: io.Discard}, NewResponder(true))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(context.Background())
	}()

	reqW.CloseWithError(errors.New("port gone"))
	if err := waitErr(t, errCh); err == nil {
		t.Error("expected error from a failed read")
	}
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}
