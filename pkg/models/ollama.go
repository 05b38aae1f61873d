package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaLLM runs conversations against a local Ollama server, including
// function calling for models that support it.
type OllamaLLM struct {
	Client *ollama.Client
	Model  string
}

// NewOllamaLLM connects to OLLAMA_HOST, defaulting to the local daemon.
func NewOllamaLLM(model string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &OllamaLLM{Client: ollama.NewClient(u, httpClient), Model: model}, nil
}

// Complete sends one non-streaming chat request.
func (o *OllamaLLM) Complete(ctx context.Context, history []Message, tools []ToolDef) (Completion, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: translateOllamaHistory(history),
		Tools:    translateOllamaTools(tools),
		Stream:   &stream,
	}

	var completion Completion
	err := o.Client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		completion.Text += resp.Message.Content
		for _, call := range resp.Message.ToolCalls {
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				Name:      call.Function.Name,
				Arguments: map[string]any(call.Function.Arguments),
			})
		}
		return nil
	})
	if err != nil {
		return Completion{}, BackendUnavailableError(err)
	}
	return completion, nil
}

// Stream sends a streaming chat request, emitting one event per delta.
func (o *OllamaLLM) Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error {
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: translateOllamaHistory(history),
		Tools:    translateOllamaTools(tools),
	}

	callIndex := 0
	err := o.Client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		if resp.Message.Content != "" {
			onEvent(StreamEvent{Kind: StreamText, Delta: resp.Message.Content})
		}
		for _, call := range resp.Message.ToolCalls {
			args := marshalJSON(map[string]any(call.Function.Arguments))
			onEvent(StreamEvent{
				Kind:              StreamToolCallDelta,
				Name:              call.Function.Name,
				Index:             callIndex,
				ArgumentsFragment: args,
			})
			callIndex++
		}
		return nil
	})
	if err != nil {
		err = BackendUnavailableError(err)
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}
	onEvent(StreamEvent{Kind: StreamDone})
	return nil
}

func translateOllamaHistory(history []Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleModel:
			m := ollama.Message{Role: "assistant", Content: msg.Content}
			for _, call := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, ollama.ToolCall{
					Function: ollama.ToolCallFunction{
						Name:      call.Name,
						Arguments: ollama.ToolCallFunctionArguments(call.Arguments),
					},
				})
			}
			out = append(out, m)
		case RoleTool:
			out = append(out, ollama.Message{Role: "tool", Content: msg.Content})
		case RoleSystem:
			out = append(out, ollama.Message{Role: "system", Content: msg.Content})
		default:
			m := ollama.Message{Role: "user", Content: msg.Content}
			for _, img := range msg.Images {
				m.Images = append(m.Images, ollama.ImageData(img.Data))
			}
			out = append(out, m)
		}
	}
	return out
}

func translateOllamaTools(tools []ToolDef) ollama.Tools {
	var out ollama.Tools
	for _, tool := range tools {
		fn := ollama.ToolFunction{
			Name:        tool.Name,
			Description: tool.Description,
		}
		fn.Parameters.Type = "object"
		if required, ok := tool.Parameters["required"].([]string); ok {
			fn.Parameters.Required = required
		}
		if props, ok := tool.Parameters["properties"].(map[string]any); ok {
			fn.Parameters.Properties = map[string]ollama.ToolProperty{}
			for name, raw := range props {
				prop, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				tp := ollama.ToolProperty{}
				if typ, ok := prop["type"].(string); ok {
					tp.Type = ollama.PropertyType{typ}
				}
				if desc, ok := prop["description"].(string); ok {
					tp.Description = desc
				}
				if enum, ok := prop["enum"].([]any); ok {
					tp.Enum = enum
				}
				fn.Parameters.Properties[name] = tp
			}
		}
		out = append(out, ollama.Tool{Type: "function", Function: fn})
	}
	return out
}
