package channel

import (
	"encoding/json"
)

// Method names on the tool-serving peer.
const (
	methodListTools = "tools/list"
	methodCallTool  = "tools/call"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes used by the peer.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolNotFound   = -32001
	codeToolFailed     = -32002
)

// ToolDescriptor is one entry of the peer's listTools surface.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

type listToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallResult is the structured output of a tool invocation. Content carries
// whatever the tool returned, already JSON-encoded.
type CallResult struct {
	Content json.RawMessage `json:"content"`
}
