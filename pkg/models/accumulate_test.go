package models

import (
	"reflect"
	"testing"
)

func TestAccumulatorTextOrder(t *testing.T) {
	var acc StreamAccumulator
	for _, delta := range []string{"one ", "two ", "three"} {
		acc.OnEvent(StreamEvent{Kind: StreamText, Delta: delta})
	}
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	if got := acc.Completion().Text; got != "one two three" {
		t.Fatalf("text = %q", got)
	}
}

func TestAccumulatorToolCallFragments(t *testing.T) {
	var acc StreamAccumulator
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "analyze_page_seo", Index: 0, ArgumentsFragment: `{"content":`})
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "analyze_page_seo", Index: 0, ArgumentsFragment: `"draft"}`})
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "run_fireworks", Index: 1, ArgumentsFragment: `{}`})
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	completion := acc.Completion()
	want := []ToolCall{
		{Name: "analyze_page_seo", Arguments: map[string]any{"content": "draft"}},
		{Name: "run_fireworks", Arguments: map[string]any{}},
	}
	if !reflect.DeepEqual(completion.ToolCalls, want) {
		t.Fatalf("tool calls = %#v", completion.ToolCalls)
	}
}

func TestAccumulatorManyFragmentsOneCall(t *testing.T) {
	var acc StreamAccumulator
	for _, fragment := range []string{`{"scan`, `_depth":`, `"deep"`, `}`} {
		acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "security_check", Index: 0, ArgumentsFragment: fragment})
	}
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	calls := acc.Completion().ToolCalls
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %#v", calls)
	}
	if !reflect.DeepEqual(calls[0].Arguments, map[string]any{"scan_depth": "deep"}) {
		t.Fatalf("fragments did not reassemble: %#v", calls[0].Arguments)
	}
}

func TestAccumulatorSameToolTwice(t *testing.T) {
	var acc StreamAccumulator
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "analyze_page_seo", Index: 0, ArgumentsFragment: `{"content":"a"}`})
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "analyze_page_seo", Index: 1, ArgumentsFragment: `{"content":"b"}`})
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	want := []ToolCall{
		{Name: "analyze_page_seo", Arguments: map[string]any{"content": "a"}},
		{Name: "analyze_page_seo", Arguments: map[string]any{"content": "b"}},
	}
	if got := acc.Completion().ToolCalls; !reflect.DeepEqual(got, want) {
		t.Fatalf("calls merged or reordered: %#v", got)
	}
}

func TestAccumulatorNamelessFragmentsAdoptName(t *testing.T) {
	// Later chunks of a call may carry only the index and argument text.
	var acc StreamAccumulator
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "read_log_file", Index: 0, ArgumentsFragment: `{"lines":`})
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Index: 0, ArgumentsFragment: `10}`})
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	calls := acc.Completion().ToolCalls
	if len(calls) != 1 || calls[0].Name != "read_log_file" {
		t.Fatalf("expected one named call, got %#v", calls)
	}
	if !reflect.DeepEqual(calls[0].Arguments, map[string]any{"lines": float64(10)}) {
		t.Fatalf("arguments = %#v", calls[0].Arguments)
	}
}

func TestAccumulatorUnparseableArguments(t *testing.T) {
	var acc StreamAccumulator
	acc.OnEvent(StreamEvent{Kind: StreamToolCallDelta, Name: "broken", ArgumentsFragment: `{"half":`})
	acc.OnEvent(StreamEvent{Kind: StreamDone})

	calls := acc.Completion().ToolCalls
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %#v", calls)
	}
	if calls[0].Arguments["raw"] != `{"half":` {
		t.Fatalf("unparseable fragment not preserved: %#v", calls[0].Arguments)
	}
}

func TestAccumulatorError(t *testing.T) {
	var acc StreamAccumulator
	acc.OnEvent(StreamEvent{Kind: StreamText, Delta: "partial"})
	acc.OnEvent(StreamEvent{Kind: StreamError, Err: ErrBackendUnavailable})

	if !acc.Done() {
		t.Fatal("error event should terminate accumulation")
	}
	if acc.Err() == nil {
		t.Fatal("error not recorded")
	}
}
