package models

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/angie-labs/angiehost/pkg/logx"
)

// doneSentinel is the literal payload that terminates a streamed response.
const doneSentinel = "[DONE]"

// StreamDecoder incrementally parses a newline-delimited event stream into
// StreamEvents. Records are `data: <json>` lines separated by a blank line;
// the decoder buffers partial reads and only emits on complete record
// boundaries, so frames split across reads decode identically to whole ones.
type StreamDecoder struct {
	scanner *bufio.Scanner
	log     logx.Logger

	// callIndex numbers the function-call parts of this stream so each call
	// accumulates separately, even when one tool is requested twice.
	callIndex int
}

// NewStreamDecoder wraps the underlying response body. Logger may be nil.
func NewStreamDecoder(r io.Reader, log logx.Logger) *StreamDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if log == nil {
		log = logx.Nop{}
	}
	return &StreamDecoder{scanner: scanner, log: log}
}

// Decode consumes the stream until the done sentinel, end of input, or a
// transport failure. It emits exactly one StreamDone or StreamError event,
// and returns the transport error in the latter case. Malformed records are
// dropped with a warning; unknown payload shapes are ignored.
func (d *StreamDecoder) Decode(onEvent func(StreamEvent)) error {
	var dataBuf strings.Builder

	flush := func() bool {
		if dataBuf.Len() == 0 {
			return false
		}
		payload := dataBuf.String()
		dataBuf.Reset()
		if payload == doneSentinel {
			return true
		}
		d.emitRecord(payload, onEvent)
		return false
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if line == "" {
			if flush() {
				onEvent(StreamEvent{Kind: StreamDone})
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimSpace(line[len("data:"):]))
		}
		// Other field names (event:, id:, retry:) carry nothing we decode.
	}

	if err := d.scanner.Err(); err != nil {
		onEvent(StreamEvent{Kind: StreamError, Err: err})
		return err
	}

	// Final record without a trailing blank line, then end of stream.
	flush()
	onEvent(StreamEvent{Kind: StreamDone})
	return nil
}

// streamRecord mirrors the subset of the provider's chunk shape the decoder
// understands.
type streamRecord struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string `json:"text"`
				FunctionCall *struct {
					Name string          `json:"name"`
					Args json.RawMessage `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (d *StreamDecoder) emitRecord(payload string, onEvent func(StreamEvent)) {
	var record streamRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		d.log.Warn("stream: dropping malformed record: %v", err)
		return
	}

	for _, candidate := range record.Candidates {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				onEvent(StreamEvent{
					Kind:              StreamToolCallDelta,
					Name:              part.FunctionCall.Name,
					Index:             d.callIndex,
					ArgumentsFragment: string(part.FunctionCall.Args),
				})
				d.callIndex++
			case part.Text != "":
				onEvent(StreamEvent{Kind: StreamText, Delta: part.Text})
			}
		}
	}
}
