package models

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAILLM is a chat-completion backend with function calling, for
// OpenAI-compatible servers. The host treats it interchangeably with the
// Gemini client; only the wire translation differs.
type OpenAILLM struct {
	Client *openai.Client
	Model  string
}

// NewOpenAILLM reads OPENAI_API_KEY (OPENAI_KEY as fallback) from the
// environment.
func NewOpenAILLM(model string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY")
	}
	return &OpenAILLM{Client: openai.NewClient(apiKey), Model: model}
}

// SetModel switches the backend model for subsequent requests.
func (o *OpenAILLM) SetModel(model string) {
	if model != "" {
		o.Model = model
	}
}

// Complete sends one chat-completion request.
func (o *OpenAILLM) Complete(ctx context.Context, history []Message, tools []ToolDef) (Completion, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, o.request(history, tools))
	if err != nil {
		return Completion{}, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ProviderFailure("openai: response had no choices")
	}

	msg := resp.Choices[0].Message
	completion := Completion{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: parseArguments(call.Function.Arguments),
		})
	}
	return completion, nil
}

// Stream delivers deltas as they arrive. Tool-call fragments keep the
// argument text partial until the stream finishes, mirroring the wire.
func (o *OpenAILLM) Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error {
	stream, err := o.Client.CreateChatCompletionStream(ctx, o.request(history, tools))
	if err != nil {
		err = mapOpenAIError(err)
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}
	defer stream.Close()

	// Track the current call name per index so fragments carry it even when
	// later chunks omit the name.
	names := map[int]string{}

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			onEvent(StreamEvent{Kind: StreamDone})
			return nil
		}
		if err != nil {
			err = mapOpenAIError(err)
			onEvent(StreamEvent{Kind: StreamError, Err: err})
			return err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			onEvent(StreamEvent{Kind: StreamText, Delta: delta.Content})
		}
		for _, call := range delta.ToolCalls {
			idx := 0
			if call.Index != nil {
				idx = *call.Index
			}
			if call.Function.Name != "" {
				names[idx] = call.Function.Name
			}
			onEvent(StreamEvent{
				Kind:              StreamToolCallDelta,
				Name:              names[idx],
				Index:             idx,
				ArgumentsFragment: call.Function.Arguments,
			})
		}
	}
}

func (o *OpenAILLM) request(history []Message, tools []ToolDef) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: translateOpenAIHistory(history),
	}
	for _, tool := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return req
}

func translateOpenAIHistory(history []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				Name:       msg.Name,
				ToolCallID: msg.Name,
			})
		case RoleModel:
			assistant := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, call := range msg.ToolCalls {
				id := call.ID
				if id == "" {
					id = call.Name
				}
				args, _ := json.Marshal(call.Arguments)
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ToolCall{
					ID:   id,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, assistant)
		default:
			user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
			if len(msg.Images) == 0 {
				user.Content = msg.Content
			} else {
				// Content and MultiContent are mutually exclusive, so a turn
				// with attachments sends its text as the first part.
				user.MultiContent = append(user.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: msg.Content,
				})
				for _, img := range msg.Images {
					user.MultiContent = append(user.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageDataURL(img),
						},
					})
				}
			}
			out = append(out, user)
		}
	}
	return out
}

// imageDataURL inlines an attachment the way the vision endpoints expect.
func imageDataURL(img Image) string {
	mime := img.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// parseArguments decodes the model's argument JSON, preserving unparseable
// payloads under a "raw" key instead of dropping them.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return AuthRequiredError(apiErr.Message)
		default:
			return ProviderFailure(apiErr.Message)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403 {
			return AuthRequiredError(reqErr.Error())
		}
		return ProviderFailure(reqErr.Error())
	}
	return BackendUnavailableError(err)
}
