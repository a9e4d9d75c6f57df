// Package anthropic adapts github.com/anthropics/anthropic-sdk-go's
// streaming Messages API to the agent.LLMProvider contract.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/modecore/agentrun/internal/agent"
	"github.com/modecore/agentrun/pkg/models"
)

const defaultMaxTokens = 4096

// Provider implements agent.LLMProvider over Anthropic's Messages API.
type Provider struct {
	client       anthropic.Client
	defaultModel string
	maxTokens    int
}

// Config configures a Provider.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
}

// New constructs a Provider from cfg, applying defaults for unset optional
// fields.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

// Name returns "anthropic".
func (p *Provider) Name() string { return "anthropic" }

// StreamChatCompletion opens a Messages streaming request and translates
// Anthropic's content-block SSE events into models.ChatChunk values keyed by
// content-block index — the same correlation key tool-call deltas arrive
// under from OpenAI-compatible providers, so one DeltaAccumulator handles
// both without caring which wire format produced them.
func (p *Provider) StreamChatCompletion(ctx context.Context, req models.ChatRequest) (<-chan models.ChatChunk, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	out := make(chan models.ChatChunk)
	go pump(stream, out)
	return out, nil
}

func (p *Provider) buildParams(req models.ChatRequest) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	var system []anthropic.TextBlockParam

	for _, m := range req.Messages {
		switch m.Kind {
		case models.KindDeveloper:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Type: "text", Text: m.Content})
			}
		case models.KindUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case models.KindAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case models.KindTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.CallID, m.Content, false)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(p.maxTokens),
	}
	if len(system) > 0 {
		params.System = system
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}

	return params, nil
}

func convertTools(schemas []models.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, t := range schemas {
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, err
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, err
		}

		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool == nil {
			return nil, errors.New("anthropic: invalid tool schema for " + t.Name)
		}
		toolParam.OfTool.Description = anthropic.String(t.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

// pump drains stream, converting each SSE event into a models.ChatChunk.
// Text and tool-input fragments are emitted as soon as they arrive; the
// accumulator on the consuming side is what turns them into coherent
// messages.
func pump(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- models.ChatChunk) {
	defer close(out)

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "content_block_start":
			start := event.AsContentBlockStart()
			if start.ContentBlock.Type == "tool_use" {
				toolUse := start.ContentBlock.AsToolUse()
				out <- models.ChatChunk{Choices: []models.ChunkChoice{{
					Delta: models.ChunkDelta{ToolCalls: []models.ToolCallDelta{{
						Index:    int(start.Index),
						ID:       toolUse.ID,
						Type:     "function",
						Function: &models.FunctionDelta{Name: toolUse.Name},
					}}},
				}}}
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			switch delta.Delta.Type {
			case "text_delta":
				if delta.Delta.Text != "" {
					out <- models.ChatChunk{Choices: []models.ChunkChoice{{
						Delta: models.ChunkDelta{Content: delta.Delta.Text},
					}}}
				}
			case "input_json_delta":
				if delta.Delta.PartialJSON != "" {
					out <- models.ChatChunk{Choices: []models.ChunkChoice{{
						Delta: models.ChunkDelta{ToolCalls: []models.ToolCallDelta{{
							Index:    int(delta.Index),
							Function: &models.FunctionDelta{Arguments: delta.Delta.PartialJSON},
						}}},
					}}}
				}
			}

		case "message_delta":
			messageDelta := event.AsMessageDelta()
			if messageDelta.Delta.StopReason != "" {
				out <- models.ChatChunk{Choices: []models.ChunkChoice{{
					FinishReason: finishReason(string(messageDelta.Delta.StopReason)),
				}}}
			}

		case "message_stop":
			return
		}
	}

	if err := stream.Err(); err != nil {
		out <- models.ChatChunk{Err: err}
	}
}

func finishReason(anthropicReason string) string {
	if anthropicReason == "tool_use" {
		return "tool_calls"
	}
	return anthropicReason
}

var _ agent.LLMProvider = (*Provider)(nil)
