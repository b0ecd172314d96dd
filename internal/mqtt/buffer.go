package mqtt

import "sync"

// ringBuffer holds pending messages while the broker is unreachable.
// When full, the oldest message is dropped to make room.
type ringBuffer struct {
	mu       sync.Mutex
	messages []bufferedMessage
	capacity int
}

// bufferedMessage is a payload waiting for the connection to come back.
type bufferedMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{capacity: capacity}
}

// Add appends a message, evicting the oldest when at capacity.
func (b *ringBuffer) Add(msg bufferedMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.messages) >= b.capacity {
		b.messages = b.messages[1:]
	}
	b.messages = append(b.messages, msg)
}

// Drain removes and returns all buffered messages in arrival order.
func (b *ringBuffer) Drain() []bufferedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.messages
	b.messages = nil
	return msgs
}

// Len returns the number of buffered messages.
func (b *ringBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}
