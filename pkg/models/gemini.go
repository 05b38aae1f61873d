package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/angie-labs/angiehost/pkg/logx"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiLLM talks to the generativelanguage REST API directly. It owns the
// translation from the generic Message history into the contents/parts
// representation and back, including function-call round trips.
type GeminiLLM struct {
	Model   string
	BaseURL string

	httpClient *http.Client
	log        logx.Logger

	mu     sync.Mutex
	apiKey string
}

// GeminiOptions configure a new GeminiLLM. Zero values fall back to the
// defaults used by the hosted backend.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  logx.Logger
}

// NewGeminiLLM creates a client. An empty APIKey falls back to the
// GEMINI_API_KEY and GOOGLE_API_KEY environment variables; a missing key is
// not an error until the first request, which fails with ErrAuthRequired so
// the caller can prompt for configuration.
func NewGeminiLLM(opts GeminiOptions) *GeminiLLM {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	log := opts.Logger
	if log == nil {
		log = logx.Nop{}
	}

	return &GeminiLLM{
		Model:      model,
		BaseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		apiKey:     apiKey,
	}
}

// SetModel switches the backend model for subsequent requests. The host
// serializes turns, so this never races an in-flight request.
func (g *GeminiLLM) SetModel(model string) {
	if model != "" {
		g.Model = model
	}
}

// SetKey replaces the API key on a live client.
func (g *GeminiLLM) SetKey(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.apiKey = key
}

func (g *GeminiLLM) key() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKey
}

// ---------------------------------------------------------------------------
// Wire types

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *geminiInlineData       `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"` // encoding/json base64-encodes []byte
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Tools             []geminiTools   `json:"tools,omitempty"`
}

type geminiTools struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *geminiAPIError `json:"error"`
}

// ---------------------------------------------------------------------------
// History translation

// translateHistory maps generic messages onto contents plus the optional
// system-instruction slot. The slot takes the first system message only;
// later system messages are ignored (pinned by test).
func translateHistory(history []Message) ([]geminiContent, *geminiContent) {
	var system *geminiContent
	contents := make([]geminiContent, 0, len(history))

	for _, msg := range history {
		switch {
		case msg.Role == RoleSystem:
			if system == nil {
				system = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
			}
		case msg.Role == RoleTool:
			contents = append(contents, geminiContent{
				Role: "function",
				Parts: []geminiPart{{
					FunctionResponse: &geminiFunctionResponse{
						Name:     msg.Name,
						Response: map[string]any{"name": msg.Name, "content": msg.Content},
					},
				}},
			})
		case msg.Role == RoleModel && len(msg.ToolCalls) > 0:
			// Parts are either text or function calls, never mixed within one
			// message translation.
			parts := make([]geminiPart, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: call.Name, Args: args},
				})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		default:
			role := "model"
			if msg.Role == RoleUser {
				role = "user"
			}
			parts := []geminiPart{{Text: msg.Content}}
			for _, img := range msg.Images {
				parts = append(parts, geminiPart{
					InlineData: &geminiInlineData{MimeType: img.MIME, Data: img.Data},
				})
			}
			contents = append(contents, geminiContent{Role: role, Parts: parts})
		}
	}

	return contents, system
}

func translateTools(tools []ToolDef) []geminiTools {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, geminiFunctionDecl{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return []geminiTools{{FunctionDeclarations: decls}}
}

// ---------------------------------------------------------------------------
// Requests

// Complete sends a one-shot generateContent request.
func (g *GeminiLLM) Complete(ctx context.Context, history []Message, tools []ToolDef) (Completion, error) {
	resp, err := g.post(ctx, ":generateContent", history, tools, false)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Completion{}, BackendUnavailableError(fmt.Errorf("gemini: decode response: %w", err))
	}
	if err := g.apiError(resp.StatusCode, decoded.Error); err != nil {
		return Completion{}, err
	}
	if len(decoded.Candidates) == 0 {
		return Completion{}, ProviderFailure("gemini: response had no candidates")
	}

	var completion Completion
	for _, part := range decoded.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		case part.Text != "":
			completion.Text += part.Text
		}
	}
	return completion, nil
}

// Stream sends a streamGenerateContent request and feeds decoded events to
// onEvent as frames arrive.
func (g *GeminiLLM) Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error {
	resp, err := g.post(ctx, ":streamGenerateContent", history, tools, true)
	if err != nil {
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var decoded geminiResponse
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
		err := g.apiError(resp.StatusCode, decoded.Error)
		if err == nil {
			err = ProviderFailure(fmt.Sprintf("gemini: unexpected status %d", resp.StatusCode))
		}
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}

	decoder := NewStreamDecoder(resp.Body, g.log)
	if err := decoder.Decode(onEvent); err != nil {
		return BackendUnavailableError(err)
	}
	return nil
}

func (g *GeminiLLM) post(ctx context.Context, method string, history []Message, tools []ToolDef, sse bool) (*http.Response, error) {
	key := g.key()
	if key == "" {
		return nil, AuthRequiredError("gemini: API key is missing, check settings")
	}

	contents, system := translateHistory(history)
	payload := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		Tools:             translateTools(tools),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s%s?key=%s", g.BaseURL, g.Model, method, key)
	if sse {
		url += "&alt=sse"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, BackendUnavailableError(err)
	}
	return resp, nil
}

// apiError maps an API-level failure onto the error taxonomy. Credential
// problems surface as ErrAuthRequired so the caller can prompt instead of
// retrying; everything else the backend rejected is ErrProviderError with the
// provider's message verbatim.
func (g *GeminiLLM) apiError(status int, apiErr *geminiAPIError) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		detail := "gemini: request rejected for invalid credentials"
		if apiErr != nil && apiErr.Message != "" {
			detail = apiErr.Message
		}
		return AuthRequiredError(detail)
	}
	if apiErr != nil {
		g.log.Error("gemini API error: %s", apiErr.Message)
		return ProviderFailure(apiErr.Message)
	}
	if status != http.StatusOK {
		return ProviderFailure(fmt.Sprintf("gemini: unexpected status %d", status))
	}
	return nil
}
