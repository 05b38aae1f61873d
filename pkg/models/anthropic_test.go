package models

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

func newAnthropicTestLLM(t *testing.T, handler http.HandlerFunc) *AnthropicLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey("test-key"),
		anthropicopt.WithBaseURL(server.URL),
		anthropicopt.WithMaxRetries(0),
	)
	return &AnthropicLLM{Client: &cl, Model: "claude-sonnet-4-20250514", MaxTokens: 64}
}

func TestAnthropicCompleteFoldsToolMessages(t *testing.T) {
	var captured struct {
		System   []map[string]any `json:"system"`
		Messages []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"messages"`
	}
	llm := newAnthropicTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01", "type": "message", "role": "assistant",
			"content": [{"type": "text", "text": "All healthy."}],
			"model": "claude-sonnet-4-20250514", "stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	})

	history := []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "check the site"},
		{Role: RoleModel, ToolCalls: []ToolCall{{Name: "get_site_health"}}},
		{Role: RoleTool, Name: "get_site_health", Content: `{"status":"good"}`},
	}
	completion, err := llm.Complete(context.Background(), history, nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Text != "All healthy." {
		t.Fatalf("text = %q", completion.Text)
	}

	if len(captured.System) != 1 || captured.System[0]["text"] != "be terse" {
		t.Fatalf("system slot = %#v", captured.System)
	}
	// The tool result rides along as a user turn; the empty-content
	// tool-call message is dropped.
	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %#v", captured.Messages)
	}
	folded, _ := json.Marshal(captured.Messages[1])
	if captured.Messages[1].Role != "user" || !strings.Contains(string(folded), "get_site_health") {
		t.Fatalf("tool message not folded into a user turn: %s", folded)
	}
}

func TestAnthropicAuthFailure(t *testing.T) {
	llm := newAnthropicTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	_, err := llm.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestAnthropicProviderRejection(t *testing.T) {
	llm := newAnthropicTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens is too large"}}`))
	})

	_, err := llm.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "max_tokens is too large") {
		t.Fatalf("provider message not preserved: %v", err)
	}
}

func TestAnthropicBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey("test-key"),
		anthropicopt.WithBaseURL(server.URL),
		anthropicopt.WithMaxRetries(0),
	)
	llm := &AnthropicLLM{Client: &cl, Model: "claude-sonnet-4-20250514", MaxTokens: 64}

	_, err := llm.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
