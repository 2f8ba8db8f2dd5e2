// Package anthropic provides a core.ModelPort backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configures the Anthropic port (model id, sampling, system prompt,
// exposed tools, API key, per-call timeout).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	System      string
	Tools       []model.ToolSpec
	// Timeout bounds each Complete call; 0 relies on the caller's context.
	// Expiry maps to core.ErrModelUnavailable.
	Timeout time.Duration
}

// Port wraps the Anthropic Messages API behind core.ModelPort.
type Port struct {
	client *anthropic.Client
	opts   Options
}

// NewPort creates a new Anthropic port using the official client.
func NewPort(optFns ...func(o *Options)) *Port {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Port{client: &client, opts: opts}
}

// NewPortFromClient creates a new Anthropic port from an existing client.
func NewPortFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Port {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Port{client: client, opts: opts}
}

// Complete implements core.ModelPort. Provider/network failures map to
// core.ErrModelUnavailable; an unmappable response maps to *core.ProtocolError.
func (p *Port) Complete(ctx context.Context, history []core.Message) (core.ModelOutcome, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(history),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}

	if p.opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.opts.System}}
	}

	if len(p.opts.Tools) > 0 {
		params.Tools = buildTools(p.opts.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return core.ModelOutcome{}, fmt.Errorf("%w: anthropic api error: %v", core.ErrModelUnavailable, err)
	}

	var text strings.Builder
	var action *core.ActionRequest

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			toolBlock := block.AsToolUse()
			args, err := decodeInput(toolBlock.Input)
			if err != nil {
				return core.ModelOutcome{}, &core.ProtocolError{Provider: "anthropic", Reason: "tool_use input is not a JSON object"}
			}
			if action == nil {
				action = &core.ActionRequest{Name: toolBlock.Name, Arguments: args}
			}
		}
	}

	if action == nil && text.Len() == 0 {
		return core.ModelOutcome{}, &core.ProtocolError{Provider: "anthropic", Reason: "response contained neither text nor a tool request"}
	}

	return model.ResolveOutcome(text.String(), action), nil
}

// buildMessages converts flattened conversation history to Anthropic message
// format. Tool results carry no provider call id in our history, so they are
// rendered as user-role text naming the tool that produced them.
func buildMessages(history []core.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleAssistant:
			if m.Content != "" {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}
		case core.RoleToolResult:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(renderToolResult(m))))
		default:
			if m.Content != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	return messages
}

func renderToolResult(m core.Message) string {
	return "Result of tool " + m.ActionName + ":\n" + m.Content
}

// buildTools converts tool specs to Anthropic tool format.
func buildTools(specs []model.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(specs))

	for i, spec := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if spec.Parameters != nil {
			if properties, exists := spec.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := spec.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}

		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
	}

	return tools
}

func decodeInput(input any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
