package models

import (
	"context"
)

// Client is the surface the conversation host drives. Implementations own
// the translation between the generic Message history and their provider's
// wire format.
type Client interface {
	// Complete sends the history plus tool declarations and returns a single
	// completion.
	Complete(ctx context.Context, history []Message, tools []ToolDef) (Completion, error)

	// Stream behaves like Complete but delivers StreamEvents through onEvent
	// as they arrive. It returns once a StreamDone event has been delivered,
	// or with the error after a StreamError event.
	Stream(ctx context.Context, history []Message, tools []ToolDef, onEvent func(StreamEvent)) error
}
