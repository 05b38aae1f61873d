package models

import (
	"context"
	"errors"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM is a text-only backend over the Messages API. Tool
// declarations are ignored: the host still works against it, the model simply
// answers in prose instead of requesting invocations.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

// NewAnthropicLLM reads ANTHROPIC_API_KEY from the environment.
func NewAnthropicLLM(model string) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(key),
	)
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model,
		MaxTokens: 1024,
	}
}

// Complete sends the history as alternating user/assistant messages. Tool
// messages are folded into user turns so the model sees their results as
// context.
func (a *AnthropicLLM) Complete(ctx context.Context, history []Message, _ []ToolDef) (Completion, error) {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range history {
		switch msg.Role {
		case RoleSystem:
			if len(system) == 0 {
				system = []anthropic.TextBlockParam{{Text: msg.Content}}
			}
		case RoleModel:
			content := msg.Content
			if content == "" {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(content)))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock("Tool "+msg.Name+" returned: "+msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return Completion{}, mapAnthropicError(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return Completion{Text: b.String()}, nil
}

// mapAnthropicError sorts an SDK failure into the error taxonomy. Credential
// rejections surface as ErrAuthRequired so the caller prompts instead of
// retrying; other API rejections carry the provider's message; anything
// without an HTTP status is a transport problem.
func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return AuthRequiredError(apiErr.Error())
		default:
			return ProviderFailure(apiErr.Error())
		}
	}
	return BackendUnavailableError(err)
}

// Stream satisfies Client by completing once and emitting the result as a
// single text delta followed by done.
func (a *AnthropicLLM) Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error {
	completion, err := a.Complete(ctx, history, tools)
	if err != nil {
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}
	if completion.Text != "" {
		onEvent(StreamEvent{Kind: StreamText, Delta: completion.Text})
	}
	onEvent(StreamEvent{Kind: StreamDone})
	return nil
}
