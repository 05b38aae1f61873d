// Package tools holds the registry of locally-defined tools the model may
// invoke, and the projection of enabled definitions into provider-facing
// declarations.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/angie-labs/angiehost/pkg/logx"
	"github.com/angie-labs/angiehost/pkg/models"
	"github.com/angie-labs/angiehost/pkg/schema"
)

var (
	// ErrToolNotFound reports an invoke against an absent or disabled tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolExecutionFailed reports arguments rejected before the handler ran.
	ErrToolExecutionFailed = errors.New("tool execution failed")
)

// Handler executes a tool. It must be safe to call from any goroutine. A
// returned error (or panic) is absorbed by the registry and converted into a
// structured error result, never propagated to the conversation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition is a registry entry for one named tool.
type Definition struct {
	Name        string
	Description string
	// Parameters is the declared JSON Schema for the tool's arguments. It is
	// sanitized on every declaration listing, never stored sanitized, so the
	// registry can keep whatever the caller declared.
	Parameters map[string]any
	Handler    Handler
	// RequiresConfirmation marks sensitive tools; execution logs a warning.
	RequiresConfirmation bool
}

type entry struct {
	def     Definition
	enabled bool
}

// Registry holds tool definitions keyed by name. All methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     logx.Logger
}

// NewRegistry creates an empty registry. Logger may be nil.
func NewRegistry(log logx.Logger) *Registry {
	if log == nil {
		log = logx.Nop{}
	}
	return &Registry{entries: make(map[string]*entry), log: log}
}

// Register inserts the definition under its name, enabled. Re-registering an
// existing name overwrites it (last write wins), which lets demos replace a
// stock tool without a duplicate-key dance.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Name] = &entry{def: def, enabled: true}
}

// Enable marks the named tool enabled. Unknown names are a no-op.
func (r *Registry) Enable(name string) { r.setEnabled(name, true) }

// Disable marks the named tool disabled. Unknown names are a no-op.
func (r *Registry) Disable(name string) { r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.enabled = enabled
	}
}

// Declarations projects all enabled definitions into sanitized,
// provider-facing declarations, sorted by name for reproducible output.
func (r *Registry) Declarations() []models.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ToolDef, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}
		out = append(out, models.ToolDef{
			Name:        e.def.Name,
			Description: e.def.Description,
			Parameters:  schema.SanitizeObject(e.def.Parameters),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the named tool. Absent or disabled tools fail with
// ErrToolNotFound; malformed arguments fail with ErrToolExecutionFailed
// before the handler runs. A handler error or panic is converted into a
// structured {"error": message} result so a misbehaving tool never aborts
// the conversation.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok || !e.enabled {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := validateArguments(e.def.Parameters, args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrToolExecutionFailed, name, err)
	}

	if e.def.RequiresConfirmation {
		r.log.Warn("executing sensitive tool: %s", name)
	}

	result, err := r.run(ctx, e.def, args)
	if err != nil {
		r.log.Error("tool %s failed: %v", name, err)
		return map[string]any{"error": fmt.Sprintf("Tool failed: %v", err)}, nil
	}
	return result, nil
}

func (r *Registry) run(ctx context.Context, def Definition, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return def.Handler(ctx, args)
}
