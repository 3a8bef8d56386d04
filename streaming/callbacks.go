package streaming

import (
	"encoding/json"

	"github.com/chatwire/chatwire/wire"
)

// Callbacks receives decode-session notifications. Every field is optional;
// nil callbacks are skipped. All callbacks fire on the decoding goroutine,
// in stream order.
type Callbacks struct {
	// OnStreamOpen fires once, before the first line is processed.
	OnStreamOpen func()

	// OnTextDelta receives visible text as it survives the thinking filter.
	OnTextDelta func(text string)

	// OnThinkingDelta receives thinking-channel text. Thinking text never
	// enters segments.
	OnThinkingDelta func(text string)

	// OnToolCall fires when a call is announced, whether by an explicit
	// begin or implicitly by complete arguments.
	OnToolCall func(call ToolCallSnapshot)

	// OnToolCallArgsUpdate fires after every argument mutation with the
	// last good parse and the raw accumulated text.
	OnToolCallArgsUpdate func(id string, args map[string]any, raw string)

	// OnStructuredData receives data payloads verbatim.
	OnStructuredData func(items []json.RawMessage)

	// OnSegmentUpdate fires after every event that changed the segment
	// list, with a fresh snapshot of it.
	OnSegmentUpdate func(segments []Segment)

	// OnStreamError reports a stream-level error that could not be
	// attributed to a running tool call. The stream keeps decoding.
	OnStreamError func(message string)

	// OnCompletion reports finish metadata from the producer.
	OnCompletion func(reason wire.FinishReason, usage *wire.Usage)

	// OnStreamClose fires exactly once, after all other callbacks. Aborted
	// distinguishes caller cancellation from a stream that ended on its own.
	OnStreamClose func(wasAborted bool)
}
