package agent

import "testing"

func TestStateStoreGetSet(t *testing.T) {
	s := NewStateStore()
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected missing key to report ok=false")
	}
	s.Set("key", "value")
	v, ok := s.Get("key")
	if !ok || v != "value" {
		t.Fatalf("got (%v, %v), want (value, true)", v, ok)
	}
}

func TestStateStoreSnapshotIsolatesFutureWrites(t *testing.T) {
	s := NewStateStore()
	s.Set("k", "v1")
	snap := s.Snapshot()
	s.Set("k", "v2")

	if snap.String("k") != "v1" {
		t.Fatalf("snapshot should be frozen at capture time, got %q", snap.String("k"))
	}
	if v, _ := s.Get("k"); v != "v2" {
		t.Fatalf("live store should see the later write, got %v", v)
	}
}

func TestStateSnapshotTypedAccessors(t *testing.T) {
	s := NewStateStore()
	s.Set("flag", true)
	s.Set("name", "front")
	snap := s.Snapshot()

	if !snap.Bool("flag") {
		t.Fatal("expected flag to be true")
	}
	if snap.Bool("name") {
		t.Fatal("expected non-bool value to default to false")
	}
	if snap.String("name") != "front" {
		t.Fatalf("name = %q, want front", snap.String("name"))
	}
	if snap.String("missing") != "" {
		t.Fatal("expected missing key to default to empty string")
	}
}

func TestStateStoreUpdate(t *testing.T) {
	s := NewStateStore()
	s.Set("count", 1)
	s.Update(func(m map[string]any) {
		m["count"] = m["count"].(int) + 1
	})
	v, _ := s.Get("count")
	if v != 2 {
		t.Fatalf("count = %v, want 2", v)
	}
}

func TestStateStoreClear(t *testing.T) {
	s := NewStateStore()
	s.Set("a", 1)
	s.Clear()
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected state to be empty after Clear")
	}
}
