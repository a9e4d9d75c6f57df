package agent

import (
	"testing"

	"github.com/modecore/agentrun/pkg/models"
)

func TestStreamMultiplexerBroadcastsToAllSubscribers(t *testing.T) {
	m := NewStreamMultiplexer()
	ch1, unsub1, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub1()
	ch2, unsub2, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub2()

	if err := m.Send(models.Message{Content: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Message.Content != "hi" {
				t.Fatalf("content = %q, want %q", ev.Message.Content, "hi")
			}
		default:
			t.Fatal("expected event to be delivered without blocking")
		}
	}
}

func TestStreamMultiplexerLateSubscriberMissesPastEvents(t *testing.T) {
	m := NewStreamMultiplexer()
	if err := m.Send(models.Message{Content: "before"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ch, unsub, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if err := m.Send(models.Message{Content: "after"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ev := <-ch
	if ev.Message.Content != "after" {
		t.Fatalf("content = %q, want %q", ev.Message.Content, "after")
	}
}

func TestStreamMultiplexerSendNeverBlocksOnFullSubscriber(t *testing.T) {
	m := NewStreamMultiplexer()
	ch, unsub, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	for i := 0; i < streamBufferSize+10; i++ {
		if err := m.Send(models.Message{Content: "x"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if len(ch) != streamBufferSize {
		t.Fatalf("buffered = %d, want %d (overflow should be dropped)", len(ch), streamBufferSize)
	}
}

func TestStreamMultiplexerDoneThenClose(t *testing.T) {
	m := NewStreamMultiplexer()
	ch, _, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	m.Done()
	m.Close()

	ev, ok := <-ch
	if !ok {
		t.Fatal("expected the Done event before the channel closes")
	}
	if ev.Message.Kind != models.KindDone {
		t.Fatalf("kind = %q, want done", ev.Message.Kind)
	}

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after Done")
	}

	if _, _, err := m.Subscribe(); err == nil {
		t.Fatal("expected Subscribe to fail once closed")
	}
}

func TestStreamMultiplexerDrained(t *testing.T) {
	m := NewStreamMultiplexer()
	if !m.Drained() {
		t.Fatal("a fresh multiplexer with no subscribers should be drained")
	}
	_, unsub, err := m.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if m.Drained() {
		t.Fatal("should not be drained with a live subscriber")
	}
	unsub()
	if !m.Drained() {
		t.Fatal("should be drained again after the only subscriber leaves")
	}
}
