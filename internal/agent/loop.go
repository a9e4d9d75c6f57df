package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	toolschema "github.com/modecore/agentrun/internal/tools/jsonschema"
	"github.com/modecore/agentrun/pkg/models"
)

// cannedCapacityMessage is emitted verbatim when recursion depth is
// exhausted.
const cannedCapacityMessage = "I've reached the maximum number of steps allowed for this task and need to stop here."

// cannedShutdownMessage is emitted verbatim when the shutdown signal fires.
const cannedShutdownMessage = "Stopping now due to a shutdown request."

// Run starts the Agent Loop for thread and returns a receiver onto the
// shared stream. The loop runs as a background goroutine; the returned
// channel always terminates with a models.KindDone event (wrapped in a
// nil-Err Event), unless the caller stops reading first.
func (a *Agent) Run(ctx context.Context, thread models.Thread) (<-chan Event, error) {
	ch, unsubscribe, err := a.group.stream.Subscribe()
	if err != nil {
		return nil, err
	}

	go func() {
		defer unsubscribe()
		if err := a.RunLoop(ctx, thread); err != nil {
			a.logger.Warn("agent run ended with error", "agent", a.Name, "error", err)
		}
		a.group.stream.Done()
	}()

	return ch, nil
}

// RunLoop installs thread as the current thread and runs the recursive
// processor from depth 0, without managing the stream subscription or
// emitting the terminal Done event itself. Sub-agents driven by a parent's
// own orchestration call RunLoop directly so their work lands on the shared
// stream without ending the parent's run.
func (a *Agent) RunLoop(ctx context.Context, thread models.Thread) error {
	a.group.thread.install(thread)
	runCtx, runSpan := a.trace.StartRun(ctx, uuid.NewString())
	defer a.trace.EndSpan(runSpan)
	return a.step(runCtx, 0)
}

// step implements one iteration of the state machine described in the
// Agent Loop design: install is handled by the caller (RunLoop) once;
// from here on step recurses directly, one Go call per recursion depth,
// which is sufficient given the 15-step cap.
func (a *Agent) step(ctx context.Context, depth int) error {
	select {
	case <-a.group.shutdown.C():
		return a.handleShutdown()
	default:
	}

	if depth >= a.config.MaxDepth {
		return a.handleDepthExceeded()
	}

	snap := a.group.state.Snapshot()
	cfg := a.mode.Configure(snap)
	a.registry.Clear()
	if cfg.LoadTools != nil {
		cfg.LoadTools(a.registry)
	}

	ctx, stepSpan := a.trace.StartStep(ctx, depth, cfg.Model)
	defer a.trace.EndSpan(stepSpan)

	threadSnap := a.group.thread.snapshot()
	req := a.buildRequest(cfg, threadSnap, snap)

	chunks, err := a.provider.StreamChatCompletion(ctx, req)
	if err != nil {
		return a.handleTransportError(newError(KindTransport, "", err))
	}

	finalMsg, err := a.consume(chunks)
	if err != nil {
		return a.handleTransportError(err)
	}

	a.group.thread.append(finalMsg)

	if len(finalMsg.ToolCalls) == 0 {
		if a.config.StopOnToollessReply {
			a.trace.RecordRunTerminated("completed")
			return nil
		}
		return a.step(ctx, depth+1)
	}

	terminate, shutdownFired, err := a.dispatchTools(ctx, finalMsg.ToolCalls, cfg)
	if err != nil {
		return err
	}
	if shutdownFired {
		return a.handleShutdown()
	}
	if terminate {
		a.trace.RecordRunTerminated("terminating_tool")
		return nil
	}

	return a.step(ctx, depth+1)
}

// consume drains chunks through a fresh DeltaAccumulator, emitting periodic
// InProgress snapshots per the flush policy and returning the final Complete
// assistant message once the channel closes. A chunk carrying Err ends
// consumption with a TransportError.
func (a *Agent) consume(chunks <-chan models.ChatChunk) (models.Message, error) {
	acc := NewDeltaAccumulator("", a.config.FlushInterval)

	for chunk := range chunks {
		if chunk.Err != nil {
			return models.Message{}, newError(KindTransport, "", chunk.Err)
		}
		acc.Feed(chunk)
		if acc.ShouldFlush(time.Now()) {
			_ = a.group.stream.Send(acc.Flush(time.Now()))
		}
	}

	final := acc.Final(time.Now())
	_ = a.group.stream.Send(final)
	return final, nil
}

// buildRequest composes the LLM request for one step: a single fresh
// Developer message carrying the mode prompt, the thread history with any
// prior Developer messages stripped, the enabled tools' schemas, and
// per-step metadata including a freshly generated trace id.
func (a *Agent) buildRequest(cfg ModeConfiguration, threadSnap models.Thread, snap StateSnapshot) models.ChatRequest {
	msgs := make([]models.Message, 0, len(threadSnap.Messages)+1)
	msgs = append(msgs, models.Message{Kind: models.KindDeveloper, Content: cfg.Prompt})
	msgs = append(msgs, threadSnap.WithoutDeveloper()...)

	enabled := a.registry.ListEnabled(snap)
	tools := make([]models.ToolSchema, len(enabled))
	for i, e := range enabled {
		tools[i] = models.ToolSchema{Name: e.Name, Description: e.Description, Parameters: e.Schema}
	}

	toolChoice := cfg.ToolChoice
	if toolChoice == "" {
		toolChoice = "required"
	}

	return models.ChatRequest{
		Model:      cfg.Model,
		Messages:   msgs,
		Tools:      tools,
		ToolChoice: toolChoice,
		Stream:     true,
		Metadata: models.RunMetadata{
			GenerationName: a.Name,
			UserID:         a.UserID,
			SessionID:      a.SessionID,
			TraceID:        uuid.NewString(),
		},
	}
}

// dispatchTools executes calls sequentially, in arrival order, appending
// each resulting Tool message to the thread and emitting it on the stream.
// It stops early (without executing remaining calls) the moment a
// terminating tool succeeds, or the moment the shutdown signal is observed
// to have fired after a tool completes.
func (a *Agent) dispatchTools(ctx context.Context, calls []models.ToolCall, cfg ModeConfiguration) (terminate, shutdownFired bool, err error) {
	for _, tc := range calls {
		rt, ok := a.registry.Lookup(tc.Name)
		if !ok {
			a.appendAndEmit(models.Message{
				Kind:     models.KindTool,
				CallID:   tc.ID,
				Name:     tc.Name,
				Content:  fmt.Sprintf(`{"error":"Attempted to call non-existent tool: %s"}`, tc.Name),
				Progress: models.ProgressComplete,
			})
			continue
		}

		if a.config.ValidateToolSchema {
			if verr := toolschema.Validate(rt.Executor.Schema(), []byte(tc.Arguments)); verr != nil {
				parseErr := newError(KindParse, "", verr)
				if !a.config.ResilientToolErrors {
					return false, false, parseErr
				}
				a.appendAndEmit(errorToolMessage(tc, parseErr))
				continue
			}
		}

		outcome, execErr := a.executeOne(ctx, tc)
		if execErr != nil {
			toolErr := newError(KindToolExecution, "", execErr)
			if !a.config.ResilientToolErrors {
				return false, false, toolErr
			}
			a.appendAndEmit(errorToolMessage(tc, toolErr))
			continue
		}

		a.appendAndEmit(models.Message{
			Kind:     models.KindTool,
			CallID:   tc.ID,
			Name:     tc.Name,
			Content:  outcome.Content,
			Progress: models.ProgressComplete,
		})

		if outcome.IsError {
			continue
		}
		if cfg.Terminates(tc.Name) {
			return true, false, nil
		}
		if a.group.shutdown.Fired() {
			return false, true, nil
		}
	}
	return false, false, nil
}

// executeOne runs a single tool call, timing it for metrics and wrapping it
// in a trace span.
func (a *Agent) executeOne(ctx context.Context, tc models.ToolCall) (*ToolOutcome, error) {
	rt, _ := a.registry.Lookup(tc.Name)
	toolCtx, span := a.trace.StartTool(withCallID(ctx, tc.ID), tc.Name, tc.ID)
	defer a.trace.EndSpan(span)

	start := time.Now()
	outcome, err := rt.Executor.Execute(toolCtx, json.RawMessage(tc.Arguments), tc.ID)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		a.trace.RecordToolOutcome(tc.Name, "error", elapsed)
	case outcome != nil && outcome.IsError:
		a.trace.RecordToolOutcome(tc.Name, "failed", elapsed)
	default:
		a.trace.RecordToolOutcome(tc.Name, "success", elapsed)
	}
	return outcome, err
}

func errorToolMessage(tc models.ToolCall, err error) models.Message {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	content := string(payload)
	if marshalErr != nil {
		content = `{"error":"tool call failed"}`
	}
	return models.Message{
		Kind:     models.KindTool,
		CallID:   tc.ID,
		Name:     tc.Name,
		Content:  content,
		Progress: models.ProgressComplete,
	}
}

// appendAndEmit appends m to the shared thread and sends it on the shared
// stream.
func (a *Agent) appendAndEmit(m models.Message) {
	a.group.thread.append(m)
	_ = a.group.stream.Send(m)
}

func (a *Agent) handleDepthExceeded() error {
	msg := models.Message{Kind: models.KindAssistant, Content: cannedCapacityMessage, Progress: models.ProgressComplete}
	a.appendAndEmit(msg)
	a.trace.RecordRunTerminated("depth_exceeded")
	return nil
}

func (a *Agent) handleShutdown() error {
	msg := models.Message{Kind: models.KindAssistant, Content: cannedShutdownMessage, Progress: models.ProgressComplete}
	a.appendAndEmit(msg)
	a.trace.RecordRunTerminated("shutdown")
	return nil
}

func (a *Agent) handleTransportError(err error) error {
	_ = a.group.stream.SendError(err)
	a.trace.RecordRunTerminated("error")
	return err
}
