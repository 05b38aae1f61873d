package channel

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angie-labs/angiehost/pkg/tools"
)

func startServedPair(t *testing.T, registry *tools.Registry) *Client {
	t.Helper()
	hostSide, toolSide := NewPair()

	server := NewServer(toolSide, registry, nil)
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		_ = server.Serve(ctx)
	}()

	client := NewClient(hostSide, nil)
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		<-serveDone
	})
	return client
}

func echoRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(nil)
	reg.Register(tools.Definition{
		Name:        "echo",
		Description: "Echoes the provided input",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{"type": "string"},
			},
		},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["input"]}, nil
		},
	})
	return reg
}

func TestListAndCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := startServedPair(t, echoRegistry(t))

	descriptors, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "echo", descriptors[0].Name)
	assert.Contains(t, descriptors[0].InputSchema, "properties")

	result, err := client.CallTool(ctx, "echo", map[string]any{"input": "hello"})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(result.Content, &payload))
	assert.Equal(t, "hello", payload["echo"])
}

func TestCallToolNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := startServedPair(t, echoRegistry(t))

	_, err := client.CallTool(ctx, "missing_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestConcurrentCallsMatchedByRequestID(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := tools.NewRegistry(nil)
	reg.Register(tools.Definition{
		Name:       "identity",
		Parameters: map[string]any{"type": "object", "properties": map[string]any{"n": map[string]any{"type": "number"}}},
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"n": args["n"]}, nil
		},
	})
	client := startServedPair(t, reg)

	const calls = 16
	var wg sync.WaitGroup
	results := make([]float64, calls)
	errs := make([]error, calls)

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := client.CallTool(ctx, "identity", map[string]any{"n": float64(i)})
			if err != nil {
				errs[i] = err
				return
			}
			var payload map[string]float64
			if err := json.Unmarshal(result.Content, &payload); err != nil {
				errs[i] = err
				return
			}
			results[i] = payload["n"]
		}(i)
	}
	wg.Wait()

	for i := 0; i < calls; i++ {
		require.NoError(t, errs[i], "call %d", i)
		assert.Equal(t, float64(i), results[i], "call %d got someone else's response", i)
	}
}

func TestSendAfterCloseFailsBothSides(t *testing.T) {
	a, b := NewPair()
	require.NoError(t, a.Close())

	err := a.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrChannelClosed)
	err = b.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrChannelClosed)

	// Close is idempotent, from either side.
	require.NoError(t, b.Close())
}

func TestDeliveryIsFIFO(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, b := NewPair()
	defer a.Close()

	for i := byte(0); i < 10; i++ {
		require.NoError(t, a.Send(ctx, []byte{i}))
	}
	for i := byte(0); i < 10; i++ {
		msg, err := b.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{i}, msg)
	}
}

func TestCallAfterCloseFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := startServedPair(t, echoRegistry(t))
	require.NoError(t, client.Close())

	_, err := client.CallTool(ctx, "echo", map[string]any{"input": "late"})
	assert.ErrorIs(t, err, ErrChannelClosed)
}
