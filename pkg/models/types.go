// Package models defines the provider-neutral conversation types and the
// Client interface the conversation host drives, along with concrete clients
// for the supported backends.
package models

// Role identifies who produced a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleTool   Role = "tool"
	RoleSystem Role = "system"
)

// Image is a binary attachment on a user message.
type Image struct {
	MIME string
	Data []byte
}

// ToolCall is one function invocation requested by the model. ID is set only
// by backends that assign call identifiers; Name alone is sufficient to
// route the call.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one entry in a conversation history. For RoleTool messages,
// Name carries the tool that produced the content and Content carries the
// serialized result or an error descriptor.
type Message struct {
	Role      Role
	Content   string
	Images    []Image
	ToolCalls []ToolCall
	Name      string
}

// ToolDef declares one callable tool to the model. Parameters is a JSON
// Schema object; clients sanitize it for their backend's schema dialect.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Completion is the model's reply to one request: free text, tool calls, or
// both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// StreamEventKind discriminates StreamEvent payloads.
type StreamEventKind int

const (
	// StreamText carries a text delta in Delta.
	StreamText StreamEventKind = iota
	// StreamToolCallDelta carries a tool-call fragment: the call name, a
	// piece of its JSON arguments, and the index identifying which call of
	// the response the fragment belongs to.
	StreamToolCallDelta
	// StreamDone is the terminal event of a successful stream.
	StreamDone
	// StreamError is the terminal event of a failed stream; Err is set.
	StreamError
)

// StreamEvent is one decoded unit of a streaming response. Exactly one
// terminal event (StreamDone or StreamError) ends every stream. Index
// distinguishes the tool calls of one response: fragments sharing an Index
// belong to the same call, so a response may request the same tool twice
// without the fragments running together.
type StreamEvent struct {
	Kind              StreamEventKind
	Delta             string
	Name              string
	Index             int
	ArgumentsFragment string
	Err               error
}
