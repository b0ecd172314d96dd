// Package telemetry answers host queries over the low-bandwidth command
// channel: one recognized request code, one fixed 3-byte reply.
package telemetry

import (
	"encoding/binary"
	"sync"

	"github.com/sweeney/valve-regulator/internal/regulator"
)

// RequestReading is the only recognized request code.
const RequestReading byte = 'c'

// ReplySize is the length of a reading reply: 2-byte little-endian
// stabilized reading followed by the 1-byte action tag.
const ReplySize = 3

// Responder holds the latest stabilized reading and the most recent motor
// action for the host to query. The regulation loop writes, the command
// channel reads; both paths only ever hold the mutex for a few loads and
// stores, so Handle never blocks the channel's request/response cycle.
type Responder struct {
	mu          sync.Mutex
	reading     uint16
	action      regulator.Action
	clearOnRead bool
}

// NewResponder creates a Responder. clearOnRead selects the reporting
// semantic: when true, a movement tag is reported at most once and the
// action resets to HELD after each reply (edge-triggered); when false, the
// last action holds until the next decision overwrites it.
func NewResponder(clearOnRead bool) *Responder {
	return &Responder{action: regulator.ActionHeld, clearOnRead: clearOnRead}
}

// SetReading stores the latest stabilized reading.
func (r *Responder) SetReading(v uint16) {
	r.mu.Lock()
	r.reading = v
	r.mu.Unlock()
}

// SetAction stores the most recent motor action.
func (r *Responder) SetAction(a regulator.Action) {
	r.mu.Lock()
	r.action = a
	r.mu.Unlock()
}

// Handle answers a single request byte. A reading request returns the
// 3-byte payload; any other request returns nil, the empty response.
func (r *Responder) Handle(req byte) []byte {
	if req != RequestReading {
		return nil
	}

	r.mu.Lock()
	reading, action := r.reading, r.action
	if r.clearOnRead {
		r.action = regulator.ActionHeld
	}
	r.mu.Unlock()

	reply := make([]byte, ReplySize)
	binary.LittleEndian.PutUint16(reply[:2], reading)
	reply[2] = action.Tag()
	return reply
}
