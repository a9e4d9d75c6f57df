// Package openai adapts github.com/sashabaranov/go-openai's streaming chat
// completion API to the agent.LLMProvider contract.
package openai

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/modecore/agentrun/internal/agent"
	"github.com/modecore/agentrun/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// Provider implements agent.LLMProvider over the OpenAI chat completions
// API.
type Provider struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithMaxRetries overrides the default retry count for stream-open failures.
func WithMaxRetries(n int) Option {
	return func(p *Provider) { p.maxRetries = n }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint other than
// the public API (an Azure-style gateway, a local proxy).
func WithBaseURL(apiKey, baseURL string) Option {
	return func(p *Provider) {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		p.client = openai.NewClientWithConfig(cfg)
	}
}

// New constructs a Provider for the given API key.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		client:     openai.NewClient(apiKey),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "openai".
func (p *Provider) Name() string { return "openai" }

// StreamChatCompletion opens a streaming chat completion and translates each
// arriving response into a models.ChatChunk, retrying the initial open on a
// transient failure.
func (p *Provider) StreamChatCompletion(ctx context.Context, req models.ChatRequest) (<-chan models.ChatChunk, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages),
		Stream:   true,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
		chatReq.ToolChoice = convertToolChoice(req.ToolChoice)
	}

	var stream *openai.ChatCompletionStream
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		stream, lastErr = p.client.CreateChatCompletionStream(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	out := make(chan models.ChatChunk)
	go pump(stream, out)
	return out, nil
}

func pump(stream *openai.ChatCompletionStream, out chan<- models.ChatChunk) {
	defer close(out)
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				out <- models.ChatChunk{Err: err}
			}
			return
		}
		out <- convertChunk(resp)
	}
}

func convertChunk(resp openai.ChatCompletionStreamResponse) models.ChatChunk {
	choices := make([]models.ChunkChoice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = models.ChunkChoice{
			Delta: models.ChunkDelta{
				Content:   c.Delta.Content,
				ToolCalls: convertToolCallDeltas(c.Delta.ToolCalls),
			},
			FinishReason: string(c.FinishReason),
		}
	}
	return models.ChatChunk{ID: resp.ID, Choices: choices}
}

func convertToolCallDeltas(deltas []openai.ToolCall) []models.ToolCallDelta {
	if len(deltas) == 0 {
		return nil
	}
	out := make([]models.ToolCallDelta, len(deltas))
	for i, d := range deltas {
		index := i
		if d.Index != nil {
			index = *d.Index
		}
		out[i] = models.ToolCallDelta{
			Index: index,
			ID:    d.ID,
			Type:  string(d.Type),
			Function: &models.FunctionDelta{
				Name:      d.Function.Name,
				Arguments: d.Function.Arguments,
			},
		}
	}
	return out
}

func convertMessages(msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Kind {
		case models.KindDeveloper:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case models.KindUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.KindAssistant:
			oaiMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			if len(m.ToolCalls) > 0 {
				oaiMsg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					oaiMsg.ToolCalls[i] = openai.ToolCall{
						ID:   tc.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					}
				}
			}
			out = append(out, oaiMsg)
		case models.KindTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.CallID,
			})
		}
	}
	return out
}

func convertTools(tools []models.ToolSchema) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

func convertToolChoice(choice string) any {
	switch choice {
	case "", "required":
		return "required"
	case "auto":
		return "auto"
	case "none":
		return "none"
	default:
		return openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: choice}}
	}
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}

var _ agent.LLMProvider = (*Provider)(nil)
