package models

import (
	"encoding/json"
	"strings"
)

// StreamAccumulator folds StreamEvents into a Completion. Text deltas are
// concatenated in order; tool-call fragments are grouped by the event's
// Index and their argument fragments joined, then parsed once the stream is
// done. The accumulated completion is only meaningful after a StreamDone
// event.
type StreamAccumulator struct {
	text  strings.Builder
	calls []pendingCall
	done  bool
	err   error
}

type pendingCall struct {
	index int
	name  string
	args  []string
}

// OnEvent consumes one decoded event. It is safe to pass directly as the
// onEvent callback of Client.Stream.
func (a *StreamAccumulator) OnEvent(event StreamEvent) {
	switch event.Kind {
	case StreamText:
		a.text.WriteString(event.Delta)
	case StreamToolCallDelta:
		for i := range a.calls {
			if a.calls[i].index != event.Index {
				continue
			}
			a.calls[i].args = append(a.calls[i].args, event.ArgumentsFragment)
			// Later fragments may omit the name.
			if a.calls[i].name == "" {
				a.calls[i].name = event.Name
			}
			return
		}
		a.calls = append(a.calls, pendingCall{
			index: event.Index,
			name:  event.Name,
			args:  []string{event.ArgumentsFragment},
		})
	case StreamDone:
		a.done = true
	case StreamError:
		a.err = event.Err
	}
}

// Done reports whether a terminal event has been observed.
func (a *StreamAccumulator) Done() bool { return a.done || a.err != nil }

// Err returns the stream error, if any.
func (a *StreamAccumulator) Err() error { return a.err }

// Completion materializes the accumulated response. Argument fragments that
// do not parse as JSON objects are preserved under a "raw" key rather than
// dropped, so the caller can still surface them to the tool layer.
func (a *StreamAccumulator) Completion() Completion {
	completion := Completion{Text: a.text.String()}
	for i := range a.calls {
		raw := strings.Join(a.calls[i].args, "")
		args := map[string]any{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				args = map[string]any{"raw": raw}
			}
		}
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			Name:      a.calls[i].name,
			Arguments: args,
		})
	}
	return completion
}
