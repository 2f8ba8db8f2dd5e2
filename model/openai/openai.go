// Package openai provides a core.ModelPort backed by the OpenAI Chat
// Completions API (including function/tool calling). It adapts flattened
// conversation history into the SDK's message format and normalizes the
// response into a single ModelOutcome.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// Options configure the OpenAI port. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	System              string
	Tools               []model.ToolSpec
	// Timeout bounds each Complete call; 0 relies on the caller's context.
	Timeout time.Duration
}

// Port wraps the OpenAI Chat Completions API behind core.ModelPort.
type Port struct {
	client *openai.Client
	opts   Options
}

// NewPort creates a new OpenAI port using the official client.
func NewPort(optFns ...func(o *Options)) *Port {
	opts := defaultOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return &Port{client: &client, opts: opts}
}

// NewPortFromClient creates a new OpenAI port from an existing client.
func NewPortFromClient(client *openai.Client, optFns ...func(o *Options)) *Port {
	return &Port{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Complete implements core.ModelPort. Provider/network failures map to
// core.ErrModelUnavailable; an unmappable response maps to *core.ProtocolError.
func (p *Port) Complete(ctx context.Context, history []core.Message) (core.ModelOutcome, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(history))
	if err != nil {
		return core.ModelOutcome{}, fmt.Errorf("%w: openai api error: %v", core.ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return core.ModelOutcome{}, &core.ProtocolError{Provider: "openai", Reason: "no choices returned"}
	}

	msg := resp.Choices[0].Message

	var action *core.ActionRequest
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return core.ModelOutcome{}, &core.ProtocolError{Provider: "openai", Reason: "tool call arguments are not a JSON object"}
			}
		}
		action = &core.ActionRequest{Name: call.Function.Name, Arguments: args}
	}

	if action == nil && msg.Content == "" {
		return core.ModelOutcome{}, &core.ProtocolError{Provider: "openai", Reason: "response contained neither text nor a tool request"}
	}

	return model.ResolveOutcome(msg.Content, action), nil
}

// buildParams assembles the request including messages and tool definitions.
func (p *Port) buildParams(history []core.Message) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if p.opts.System != "" {
		messages = append(messages, openai.SystemMessage(p.opts.System))
	}
	for _, m := range history {
		switch m.Role {
		case core.RoleAssistant:
			if m.Content != "" {
				messages = append(messages, openai.AssistantMessage(m.Content))
			}
		case core.RoleToolResult:
			// Our history carries no provider call id, so tool results are
			// replayed as user-role text naming the originating tool.
			messages = append(messages, openai.UserMessage("Result of tool "+m.ActionName+":\n"+m.Content))
		default:
			if m.Content != "" {
				messages = append(messages, openai.UserMessage(m.Content))
			}
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}

	if len(p.opts.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(p.opts.Tools))
	for i, spec := range p.opts.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  spec.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}
