package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angie-labs/angiehost/pkg/logx"
	"github.com/angie-labs/angiehost/pkg/tools"
)

// Server is the tool-serving peer. It answers tools/list from the registry's
// current declarations and routes tools/call into registry invocations.
type Server struct {
	endpoint *Endpoint
	registry *tools.Registry
	log      logx.Logger
}

// NewServer binds the registry to the endpoint. Call Serve to start
// answering.
func NewServer(endpoint *Endpoint, registry *tools.Registry, log logx.Logger) *Server {
	if log == nil {
		log = logx.Nop{}
	}
	return &Server{endpoint: endpoint, registry: registry, log: log}
}

// Serve processes requests until the channel closes or the context is done.
// Requests are handled sequentially in arrival order, which preserves the
// FIFO contract a single caller observes; the client still matches responses
// by ID so it never depends on ordering.
func (s *Server) Serve(ctx context.Context) error {
	for {
		msg, err := s.endpoint.Receive(ctx)
		if errors.Is(err, ErrChannelClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.log.Warn("channel server: dropping undecodable request: %v", err)
			continue
		}

		resp := s.handle(ctx, req)
		payload, err := json.Marshal(resp)
		if err != nil {
			s.log.Error("channel server: marshal response: %v", err)
			continue
		}
		if err := s.endpoint.Send(ctx, payload); err != nil {
			if errors.Is(err, ErrChannelClosed) {
				return nil
			}
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case methodListTools:
		descriptors := make([]ToolDescriptor, 0)
		for _, decl := range s.registry.Declarations() {
			descriptors = append(descriptors, ToolDescriptor{
				Name:        decl.Name,
				Description: decl.Description,
				InputSchema: decl.Parameters,
			})
		}
		resp.Result = mustMarshal(listToolsResult{Tools: descriptors})

	case methodCallTool:
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: err.Error()}
			return resp
		}
		result, err := s.registry.Invoke(ctx, params.Name, params.Arguments)
		if err != nil {
			code := codeToolFailed
			if errors.Is(err, tools.ErrToolNotFound) {
				code = codeToolNotFound
			}
			resp.Error = &rpcError{Code: code, Message: err.Error()}
			return resp
		}
		content, err := json.Marshal(result)
		if err != nil {
			resp.Error = &rpcError{Code: codeToolFailed, Message: fmt.Sprintf("encode result: %v", err)}
			return resp
		}
		resp.Result = mustMarshal(CallResult{Content: content})

	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %s", req.Method)}
	}
	return resp
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
