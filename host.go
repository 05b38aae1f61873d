// Package angiehost implements the tool-augmented conversation host: it owns
// the authoritative message history for one session and drives the
// model/tool round-trip loop for each user turn.
package angiehost

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/angie-labs/angiehost/pkg/cache"
	"github.com/angie-labs/angiehost/pkg/channel"
	"github.com/angie-labs/angiehost/pkg/logx"
	"github.com/angie-labs/angiehost/pkg/models"
)

// ErrTurnInFlight reports a SubmitTurn call while the previous turn is still
// running. History is untouched when this is returned.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ToolInvoker is the host-side face of the tool invocation channel.
type ToolInvoker interface {
	ListTools(ctx context.Context) ([]channel.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (channel.CallResult, error)
}

// modelSwitcher is implemented by clients that support a per-turn model
// override.
type modelSwitcher interface {
	SetModel(model string)
}

// Host orchestrates one conversation. It is constructed explicitly and
// passed down; there is deliberately no shared global instance, so tests and
// applications can run independent conversations side by side.
type Host struct {
	model    models.Client
	tools    ToolInvoker
	log      logx.Logger
	sessions *cache.SessionCache

	sessionID     string
	maxToolRounds int
	onDelta       func(delta string)

	mu       sync.Mutex
	history  []models.Message
	inFlight bool
}

// Options configure a new Host.
type Options struct {
	// Model is required.
	Model models.Client
	// Tools may be nil, in which case every turn runs without declarations.
	Tools ToolInvoker
	// Logger may be nil.
	Logger logx.Logger

	// SessionID keys the transcript in Sessions. Defaults to "default".
	SessionID string
	// Sessions, when set, receives a best-effort transcript snapshot after
	// every turn. When Resume is also set, a cached transcript preloads the
	// history.
	Sessions *cache.SessionCache
	Resume   bool

	// SystemPrompt, when non-empty, seeds the history with a system message.
	SystemPrompt string

	// MaxToolRounds caps how many rounds of tool execution one turn may
	// perform. The default of 1 gives the one-level-deep loop: the summary
	// request carries no tool declarations, so the model cannot chain a
	// second round.
	MaxToolRounds int

	// OnDelta, when set, switches model requests to streaming and receives
	// each text delta as it arrives. The in-flight model message grows
	// in place; no other component touches it until the stream resolves.
	OnDelta func(delta string)
}

// New creates a Host with the provided options.
func New(opts Options) (*Host, error) {
	if opts.Model == nil {
		return nil, errors.New("host requires a model client")
	}

	log := opts.Logger
	if log == nil {
		log = logx.Nop{}
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	h := &Host{
		model:         opts.Model,
		tools:         opts.Tools,
		log:           log,
		sessions:      opts.Sessions,
		sessionID:     sessionID,
		maxToolRounds: maxRounds,
		onDelta:       opts.OnDelta,
	}

	if opts.Sessions != nil && opts.Resume {
		if restored, ok := opts.Sessions.Get(sessionID); ok {
			h.history = restored
		}
	}
	if len(h.history) == 0 && opts.SystemPrompt != "" {
		h.history = []models.Message{{Role: models.RoleSystem, Content: opts.SystemPrompt}}
	}

	return h, nil
}

// History returns a copy of the current conversation history.
func (h *Host) History() []models.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Message, len(h.history))
	copy(out, h.history)
	return out
}

// TurnOptions carry the optional per-turn arguments.
type TurnOptions struct {
	Images []models.Image
	// Model overrides the backend model for this turn when the client
	// supports switching.
	Model string
}

// SubmitTurn runs one user turn to completion and returns the full updated
// history. Failures inside the turn are converted into history entries, so
// apart from ErrTurnInFlight the returned error is always nil and the final
// entry describes the outcome; the machine always returns to idle.
func (h *Host) SubmitTurn(ctx context.Context, userText string, opts TurnOptions) ([]models.Message, error) {
	h.mu.Lock()
	if h.inFlight {
		h.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	h.inFlight = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.inFlight = false
		h.mu.Unlock()
	}()

	if opts.Model != "" {
		if switcher, ok := h.model.(modelSwitcher); ok {
			switcher.SetModel(opts.Model)
		}
	}

	h.append(models.Message{Role: models.RoleUser, Content: userText, Images: opts.Images})
	h.runTurn(ctx)

	history := h.History()
	if h.sessions != nil {
		h.sessions.Put(h.sessionID, history)
	}
	return history, nil
}

// runTurn drives the bounded model/tool loop. Every path appends a final
// model message, error-describing if need be.
func (h *Host) runTurn(ctx context.Context) {
	declarations := h.listDeclarations(ctx)

	for round := 0; ; round++ {
		completion, err := h.request(ctx, declarations)
		if err != nil {
			h.failTurn(err)
			return
		}

		if len(completion.ToolCalls) == 0 {
			h.append(models.Message{Role: models.RoleModel, Content: completion.Text})
			return
		}

		if round >= h.maxToolRounds {
			// The backend requested tools on a call that offered none.
			h.failTurn(fmt.Errorf("tool loop exceeded after %d round(s)", round))
			return
		}

		// Record the pending calls, then execute them sequentially in the
		// order the model requested. A failed call becomes a tool message
		// carrying an error descriptor; the loop continues.
		h.append(models.Message{Role: models.RoleModel, Content: "", ToolCalls: completion.ToolCalls})
		for _, call := range completion.ToolCalls {
			h.append(h.executeCall(ctx, call))
		}

		// The summary request offers declarations again only while rounds
		// remain; the final round always runs tool-less so the loop is
		// bounded by construction.
		if round+1 >= h.maxToolRounds {
			declarations = nil
		}
	}
}

// request performs one model round-trip, streaming when a delta consumer is
// configured.
func (h *Host) request(ctx context.Context, declarations []models.ToolDef) (models.Completion, error) {
	history := h.History()

	if h.onDelta == nil {
		return h.model.Complete(ctx, history, declarations)
	}

	// Streaming: append the in-flight model message and grow its content in
	// place as deltas arrive. Only this callback writes to it until the
	// stream resolves.
	h.append(models.Message{Role: models.RoleModel, Content: ""})
	var acc models.StreamAccumulator
	err := h.model.Stream(ctx, history, declarations, func(ev models.StreamEvent) {
		acc.OnEvent(ev)
		if ev.Kind == models.StreamText {
			h.growLatest(ev.Delta)
			h.onDelta(ev.Delta)
		}
	})
	if err != nil {
		h.dropLatest()
		return models.Completion{}, err
	}

	completion := acc.Completion()
	if len(completion.ToolCalls) > 0 {
		// The in-flight message becomes the pending tool-call record; the
		// caller appends it with the calls attached.
		h.dropLatest()
	} else {
		h.setLatestContent(completion.Text)
	}
	return completion, nil
}

// executeCall invokes one tool over the channel and renders the outcome as a
// tool message. Failures are data, not errors: the model sees them in
// history and can react.
func (h *Host) executeCall(ctx context.Context, call models.ToolCall) models.Message {
	msg := models.Message{Role: models.RoleTool, Name: call.Name}

	if h.tools == nil {
		msg.Content = fmt.Sprintf("Error executing %s: no tool channel is connected", call.Name)
		return msg
	}

	result, err := h.tools.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		h.log.Warn("tool %s failed: %v", call.Name, err)
		msg.Content = fmt.Sprintf("Error executing %s: %v", call.Name, err)
		return msg
	}

	msg.Content = string(result.Content)
	return msg
}

// listDeclarations derives the provider-facing tool list for this turn. A
// channel failure degrades to a tool-less turn rather than failing it.
func (h *Host) listDeclarations(ctx context.Context) []models.ToolDef {
	if h.tools == nil {
		return nil
	}
	descriptors, err := h.tools.ListTools(ctx)
	if err != nil {
		h.log.Warn("listing tools failed, continuing without: %v", err)
		return nil
	}
	declarations := make([]models.ToolDef, 0, len(descriptors))
	for _, d := range descriptors {
		declarations = append(declarations, models.ToolDef{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		})
	}
	return declarations
}

// failTurn converts a model-call failure into a visible history entry and
// returns the machine to idle. History up to this point stays intact.
func (h *Host) failTurn(err error) {
	h.log.Error("turn failed: %v", err)
	h.append(models.Message{
		Role:    models.RoleModel,
		Content: fmt.Sprintf("**Error:** %v", err),
	})
}

func (h *Host) append(msg models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, msg)
}

func (h *Host) growLatest(delta string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.history); n > 0 {
		h.history[n-1].Content += delta
	}
}

func (h *Host) setLatestContent(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.history); n > 0 {
		h.history[n-1].Content = content
	}
}

func (h *Host) dropLatest() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.history); n > 0 {
		h.history = h.history[:n-1]
	}
}
