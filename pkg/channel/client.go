package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angie-labs/angiehost/pkg/logx"
)

// Client is the host-side face of the tool invocation channel. Concurrent
// calls are permitted: responses are matched to requests by ID, not by
// assuming one-at-a-time use.
type Client struct {
	endpoint *Endpoint
	log      logx.Logger

	mu      sync.Mutex
	pending map[string]chan rpcResponse
	closed  bool

	readerDone chan struct{}
}

// NewClient starts the client's receive loop on the endpoint. Logger may be
// nil. The caller should Close the client when the session ends.
func NewClient(endpoint *Endpoint, log logx.Logger) *Client {
	if log == nil {
		log = logx.Nop{}
	}
	c := &Client{
		endpoint:   endpoint,
		log:        log,
		pending:    make(map[string]chan rpcResponse),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.readerDone)
	ctx := context.Background()
	for {
		msg, err := c.endpoint.Receive(ctx)
		if err != nil {
			c.failPending()
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			c.log.Warn("channel: dropping undecodable response: %v", err)
			continue
		}

		c.mu.Lock()
		waiter, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.log.Warn("channel: response for unknown request id %s", resp.ID)
			continue
		}
		waiter <- resp
	}
}

// failPending wakes every outstanding call after the link dies.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, waiter := range c.pending {
		delete(c.pending, id)
		close(waiter)
	}
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.NewString()

	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("channel: marshal params: %w", err)
		}
		rawParams = encoded
	}

	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams})
	if err != nil {
		return nil, fmt.Errorf("channel: marshal request: %w", err)
	}

	waiter := make(chan rpcResponse, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	c.pending[id] = waiter
	c.mu.Unlock()

	if err := c.endpoint.Send(ctx, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-waiter:
		if !ok {
			return nil, ErrChannelClosed
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("channel: %s", resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// ListTools retrieves the peer's tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	raw, err := c.call(ctx, methodListTools, nil)
	if err != nil {
		return nil, err
	}
	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("channel: decode tools/list result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a named tool on the peer and returns its structured
// result. A peer-reported failure comes back as an error carrying the peer's
// message.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (CallResult, error) {
	if name == "" {
		return CallResult{}, errors.New("channel: tool name is required")
	}
	raw, err := c.call(ctx, methodCallTool, callToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return CallResult{}, err
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CallResult{}, fmt.Errorf("channel: decode tools/call result: %w", err)
	}
	return result, nil
}

// Close terminates the link and releases the receive loop. Close is
// idempotent.
func (c *Client) Close() error {
	err := c.endpoint.Close()
	<-c.readerDone
	return err
}
