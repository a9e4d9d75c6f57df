package agent

import (
	"sync"

	"github.com/modecore/agentrun/pkg/models"
)

// streamBufferSize is the default per-subscriber channel capacity. A large
// buffer means a slow subscriber lags rather than stalling the producer.
const streamBufferSize = 10000

// Event is one item delivered to a stream subscriber: either a Message or
// an error. The terminal models.KindDone message is always attempted before
// the stream closes.
type Event struct {
	Message models.Message
	Err     error
}

// StreamMultiplexer is a single-producer, multiple-consumer broadcast of
// Events. It has three observable lifetime states:
//
//   - open: a sender is installed; Subscribe succeeds and Send delivers to
//     every current subscriber.
//   - closed: the sender has been cleared; Subscribe returns an error.
//   - drained: the multiplexer is open but has no live subscribers; sends
//     succeed vacuously (there is simply nothing to deliver to).
//
// A dropped or absent receiver never blocks or fails the producer: Send is
// always non-blocking per subscriber, silently discarding on a full buffer.
type StreamMultiplexer struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	open   bool
}

// NewStreamMultiplexer returns an open multiplexer with no subscribers.
func NewStreamMultiplexer() *StreamMultiplexer {
	return &StreamMultiplexer{subs: make(map[int]chan Event), open: true}
}

// Subscribe registers a new receiver and returns it along with an unsubscribe
// function. Subscribers joining late only see events from their join point
// forward. Subscribe fails once the multiplexer has been closed.
func (m *StreamMultiplexer) Subscribe() (<-chan Event, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil, func() {}, newError(KindStreamClosed, "stream multiplexer is closed", nil)
	}
	id := m.nextID
	m.nextID++
	ch := make(chan Event, streamBufferSize)
	m.subs[id] = ch
	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe, nil
}

// Send delivers msg to every current subscriber. If the multiplexer has
// been closed, Send reports KindStreamClosed but never panics or blocks; if
// it is drained (open, zero subscribers), Send succeeds vacuously.
func (m *StreamMultiplexer) Send(msg models.Message) error {
	return m.dispatch(Event{Message: msg})
}

// SendError delivers an error Event to every current subscriber.
func (m *StreamMultiplexer) SendError(err error) error {
	return m.dispatch(Event{Err: err})
}

func (m *StreamMultiplexer) dispatch(e Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return newError(KindStreamClosed, "stream multiplexer is closed", nil)
	}
	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is lagging; drop rather than block the producer.
		}
	}
	return nil
}

// Done attempts to deliver the terminal Done event to every subscriber. It
// is always attempted before Close, on a best-effort basis.
func (m *StreamMultiplexer) Done() {
	_ = m.Send(models.Message{Kind: models.KindDone})
}

// Close transitions the multiplexer to the closed state: no further
// Subscribe or Send calls succeed, and every live subscriber channel is
// closed so range loops over it terminate.
func (m *StreamMultiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return
	}
	m.open = false
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// Drained reports whether the multiplexer is open but has no live
// subscribers.
func (m *StreamMultiplexer) Drained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open && len(m.subs) == 0
}

// SubscriberCount returns the current number of live subscribers.
func (m *StreamMultiplexer) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
