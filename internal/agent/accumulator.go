package agent

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/modecore/agentrun/pkg/models"
)

// flushInterval is the minimum elapsed time between InProgress snapshots,
// per the accumulator's flush policy.
const flushInterval = 50 * time.Millisecond

// pendingToolCall is accumulator-internal state for one in-progress tool
// call, keyed by index within the delta stream. It is never persisted; once
// a step finishes, every pendingToolCall materializes into a
// models.ToolCall.
type pendingToolCall struct {
	id        string
	typ       string
	name      string
	arguments string
}

// materialize converts accumulated fragments into a models.ToolCall. name
// must be non-empty for a call to be materializable mid-stream; the final
// flush materializes every pending call regardless.
func (p *pendingToolCall) materialize() models.ToolCall {
	return models.ToolCall{ID: p.id, Name: p.name, Arguments: p.arguments, Type: p.typ}
}

// DeltaAccumulator assembles a stream of LLM chunks into coherent partial
// (InProgress) and final (Complete) assistant messages, tracking pending
// tool calls by delta index and merging their fragments in arrival order.
//
// One DeltaAccumulator is used for exactly one step; construct a fresh one
// per step via NewDeltaAccumulator.
type DeltaAccumulator struct {
	stepID      string
	interval    time.Duration
	content     string
	byIndex     map[int]*pendingToolCall
	order       []int
	lastFlush   time.Time
	flushedOnce bool
}

// NewDeltaAccumulator starts a fresh accumulator for one step. stepID
// becomes the id shared by every InProgress/Complete assistant message this
// accumulator emits for the step. interval overrides the default 50ms flush
// cadence when positive; zero means use the default.
func NewDeltaAccumulator(stepID string, interval time.Duration) *DeltaAccumulator {
	if stepID == "" {
		stepID = uuid.NewString()
	}
	if interval <= 0 {
		interval = flushInterval
	}
	return &DeltaAccumulator{
		stepID:   stepID,
		interval: interval,
		byIndex:  make(map[int]*pendingToolCall),
	}
}

// Feed appends one chunk's content and tool-call deltas to the rolling
// buffer. Text is never truncated or reordered; tool-call argument
// fragments are concatenated in the order Feed is called, which must match
// their arrival order on the wire.
func (a *DeltaAccumulator) Feed(chunk models.ChatChunk) {
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			a.content += choice.Delta.Content
		}
		for _, d := range choice.Delta.ToolCalls {
			a.mergeToolCallDelta(d)
		}
	}
}

// mergeToolCallDelta locates or creates the pendingToolCall for d.Index,
// then merges name/type (first-wins) and concatenates arguments.
func (a *DeltaAccumulator) mergeToolCallDelta(d models.ToolCallDelta) {
	p, ok := a.byIndex[d.Index]
	if !ok {
		id := d.ID
		if id == "" {
			// Fallback: synthesize a stable id from the step and index so
			// repeated deltas for the same index keep converging to the
			// same id even if the provider never sends one.
			id = a.stepID + "-tool-" + strconv.Itoa(d.Index)
		}
		p = &pendingToolCall{id: id}
		a.byIndex[d.Index] = p
		a.order = append(a.order, d.Index)
	} else if d.ID != "" && p.id == "" {
		p.id = d.ID
	}
	if d.Type != "" && p.typ == "" {
		p.typ = d.Type
	}
	if d.Function == nil {
		return
	}
	if d.Function.Name != "" && p.name == "" {
		p.name = d.Function.Name
	}
	if d.Function.Arguments != "" {
		p.arguments += d.Function.Arguments
	}
}

// ShouldFlush reports whether the buffer is non-empty and enough time has
// elapsed since the last flush, per the 50ms flush policy. The first flush
// is due as soon as the buffer is non-empty.
func (a *DeltaAccumulator) ShouldFlush(now time.Time) bool {
	if a.content == "" && len(a.order) == 0 {
		return false
	}
	if a.lastFlush.IsZero() {
		return true
	}
	return now.Sub(a.lastFlush) >= a.interval
}

// Flush emits an InProgress snapshot carrying the accumulated content and
// the currently materializable tool calls (those with a name so far). The
// first flush for this accumulator carries Initial=true.
func (a *DeltaAccumulator) Flush(now time.Time) models.Message {
	initial := !a.flushedOnce
	a.flushedOnce = true
	a.lastFlush = now
	return models.Message{
		Kind:      models.KindAssistant,
		ID:        a.stepID,
		Content:   a.content,
		ToolCalls: a.materializedCalls(namedOnly),
		Progress:  models.ProgressInProgress,
		Initial:   initial,
		CreatedAt: now,
	}
}

// Final emits the terminal Complete assistant message: the full
// accumulated content and every pending tool call materialized, named or
// not. The returned message is always a superset of every prior InProgress
// message emitted by this accumulator.
func (a *DeltaAccumulator) Final(now time.Time) models.Message {
	return models.Message{
		Kind:      models.KindAssistant,
		ID:        a.stepID,
		Content:   a.content,
		ToolCalls: a.materializedCalls(allCalls),
		Progress:  models.ProgressComplete,
		CreatedAt: now,
	}
}

type callFilter int

const (
	namedOnly callFilter = iota
	allCalls
)

func (a *DeltaAccumulator) materializedCalls(filter callFilter) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		p := a.byIndex[idx]
		if filter == namedOnly && p.name == "" {
			continue
		}
		out = append(out, p.materialize())
	}
	return out
}
