package agent

import (
	"context"
	"encoding/json"
	"testing"
)

type stubTool struct {
	name string
}

func (s stubTool) Name() string                 { return s.name }
func (s stubTool) Description() string          { return "stub: " + s.name }
func (s stubTool) Schema() map[string]any       { return map[string]any{"type": "object"} }
func (s stubTool) Execute(ctx context.Context, params json.RawMessage, callID string) (*ToolOutcome, error) {
	return &ToolOutcome{Content: "ok"}, nil
}

func TestToolRegistryAddAndLookup(t *testing.T) {
	r := NewToolRegistry()
	r.Add(stubTool{name: "search"}, nil)

	rt, ok := r.Lookup("search")
	if !ok {
		t.Fatal("expected search to be registered")
	}
	if rt.Executor.Name() != "search" {
		t.Fatalf("name = %q, want search", rt.Executor.Name())
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("expected missing tool to not be found")
	}
}

func TestToolRegistryEnablementPredicate(t *testing.T) {
	r := NewToolRegistry()
	r.Add(stubTool{name: "always"}, nil)
	r.Add(stubTool{name: "gated"}, func(snap StateSnapshot) bool {
		return snap.Bool("enable_gated")
	})

	disabled := NewStateStore().Snapshot()
	enabled := make(StateSnapshot)
	enabled["enable_gated"] = true

	names := func(snap StateSnapshot) map[string]bool {
		out := map[string]bool{}
		for _, t := range r.ListEnabled(snap) {
			out[t.Name] = true
		}
		return out
	}

	offResult := names(disabled)
	if !offResult["always"] || offResult["gated"] {
		t.Fatalf("unexpected enablement with gate off: %+v", offResult)
	}

	onResult := names(enabled)
	if !onResult["always"] || !onResult["gated"] {
		t.Fatalf("unexpected enablement with gate on: %+v", onResult)
	}
}

func TestToolRegistryClear(t *testing.T) {
	r := NewToolRegistry()
	r.AddMany(stubTool{name: "a"}, stubTool{name: "b"})
	r.Clear()
	if len(r.ListEnabled(NewStateStore().Snapshot())) != 0 {
		t.Fatal("expected registry to be empty after Clear")
	}
}

func TestToolRegistryAddReplacesSameName(t *testing.T) {
	r := NewToolRegistry()
	r.Add(stubTool{name: "dup"}, nil)
	r.Add(stubTool{name: "dup"}, func(StateSnapshot) bool { return false })

	rt, _ := r.Lookup("dup")
	if rt.Enablement == nil {
		t.Fatal("expected the later registration to replace the earlier one")
	}
}
