package agent

import "sync"

// ShutdownSignal is a one-shot broadcast of cancellation. The Agent Loop
// checks it at the start of every step and after each successfully completed
// tool call; an LLM stream or tool execution already in progress is not
// interrupted when it fires. Closing a
// channel is Go's idiomatic one-shot fan-out primitive: every receiver
// observes the close exactly once, with no risk of missing it regardless of
// when it started listening, which is what a Go rendering of the source's
// select!-raced broadcast signal should use instead of an N-receiver send
// loop.
type ShutdownSignal struct {
	mu     sync.Mutex
	ch     chan struct{}
	fired  bool
}

// NewShutdownSignal returns an un-fired signal.
func NewShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{ch: make(chan struct{})}
}

// C returns the channel that closes when Fire is called. Safe to read from
// many goroutines; select on it alongside other work to race cancellation.
func (s *ShutdownSignal) C() <-chan struct{} {
	return s.ch
}

// Fire closes the channel if it has not already been closed. Safe to call
// more than once or concurrently.
func (s *ShutdownSignal) Fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return
	}
	s.fired = true
	close(s.ch)
}

// Fired reports whether Fire has already been called.
func (s *ShutdownSignal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
