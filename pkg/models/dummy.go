package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight backend for local testing without API calls. It
// echoes the last user message, prefixed, and never requests tool calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

func (d *DummyLLM) Complete(_ context.Context, history []Message, _ []ToolDef) (Completion, error) {
	last := "<empty history>"
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser && strings.TrimSpace(history[i].Content) != "" {
			last = strings.TrimSpace(history[i].Content)
			break
		}
	}
	return Completion{Text: fmt.Sprintf("%s %s", d.Prefix, last)}, nil
}

func (d *DummyLLM) Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error {
	completion, err := d.Complete(ctx, history, tools)
	if err != nil {
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}
	onEvent(StreamEvent{Kind: StreamText, Delta: completion.Text})
	onEvent(StreamEvent{Kind: StreamDone})
	return nil
}

// marshalJSON renders a value as compact JSON, falling back to fmt.Sprint so
// callers never receive an empty fragment for a present value.
func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
