package streaming

import (
	"encoding/json"
	"maps"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

// ToolCallStatus is the lifecycle state of one tracked tool call.
type ToolCallStatus string

const (
	// ToolCallPending means the call was announced but no argument text has
	// arrived.
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallInProgress means argument text is streaming or complete and
	// the call awaits its result.
	ToolCallInProgress ToolCallStatus = "in_progress"
	// ToolCallSuccess means a result arrived.
	ToolCallSuccess ToolCallStatus = "success"
	// ToolCallError means the call failed: an attributed stream error, or
	// the stream ended before its result.
	ToolCallError ToolCallStatus = "error"
)

// Terminal reports whether the status can no longer change.
func (s ToolCallStatus) Terminal() bool {
	return s == ToolCallSuccess || s == ToolCallError
}

// interruptedResult seals calls the stream abandoned.
const interruptedResult = "interrupted"

// ToolCallSnapshot is a copy of one tracked call, safe to hand to callbacks
// and to embed in segments. Args holds the last good parse of the raw
// argument text and may lag RawArgs while arguments stream.
type ToolCallSnapshot struct {
	ID        string
	Name      string
	RawArgs   string
	Args      map[string]any
	Status    ToolCallStatus
	Result    json.RawMessage
	StartedAt time.Time
	Edits     []EditOperation
}

// trackedCall is the mutable record behind snapshots.
type trackedCall struct {
	id      string
	name    string
	raw     strings.Builder
	args    map[string]any
	status  ToolCallStatus
	result  json.RawMessage
	started time.Time
	edits   []EditOperation
}

func (c *trackedCall) snapshot() ToolCallSnapshot {
	snap := ToolCallSnapshot{
		ID:        c.id,
		Name:      c.name,
		RawArgs:   c.raw.String(),
		Args:      maps.Clone(c.args),
		Status:    c.status,
		StartedAt: c.started,
	}
	if len(c.result) > 0 {
		snap.Result = append(json.RawMessage(nil), c.result...)
	}
	if len(c.edits) > 0 {
		snap.Edits = append([]EditOperation(nil), c.edits...)
	}
	return snap
}

// reparse refreshes the parsed arguments from the raw accumulation when it
// currently forms valid JSON; otherwise the previous good parse stands.
// File-edit calls also re-project their sub-operations.
func (c *trackedCall) reparse(argsComplete bool) {
	raw := c.raw.String()
	if gjson.Valid(raw) {
		var args map[string]any
		if err := json.Unmarshal([]byte(raw), &args); err == nil {
			c.args = args
		}
	}
	if IsFileEditTool(c.name) {
		status := EditApplying
		if argsComplete {
			status = EditPending
		}
		c.edits = projectEdits(raw, status)
	}
}

func (c *trackedCall) fail(message string) {
	c.status = ToolCallError
	c.result = syntheticResult(message)
	sealEdits(c.edits, EditError, message)
}

// syntheticResult encodes a decoder-made result (attributed errors,
// interruptions) in the same opaque JSON space producer results use.
func syntheticResult(message string) json.RawMessage {
	b, _ := json.Marshal(message)
	return b
}

// Tracker follows every announced tool call through its lifecycle. Calls
// iterate in announce order; error attribution and the interrupt sweep
// depend on that order.
type Tracker struct {
	calls *orderedmap.OrderedMap[string, *trackedCall]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{calls: orderedmap.New[string, *trackedCall]()}
}

// Len returns the number of tracked calls.
func (t *Tracker) Len() int {
	return t.calls.Len()
}

// Get returns a snapshot of one call.
func (t *Tracker) Get(id string) (ToolCallSnapshot, bool) {
	c, ok := t.calls.Get(id)
	if !ok {
		return ToolCallSnapshot{}, false
	}
	return c.snapshot(), true
}

// Begin registers a call in the pending state. A duplicate begin for a
// known id refreshes the name and is otherwise a no-op.
func (t *Tracker) Begin(id, name string) ToolCallSnapshot {
	if c, ok := t.calls.Get(id); ok {
		zap.S().Warnw("duplicate tool call begin", "tool_call_id", id, "tool_name", name)
		if name != "" && !c.status.Terminal() {
			c.name = name
		}
		return c.snapshot()
	}
	c := &trackedCall{id: id, name: name, status: ToolCallPending, started: time.Now()}
	t.calls.Set(id, c)
	zap.S().Debugw("tool call begin", "tool_call_id", id, "tool_name", name)
	return c.snapshot()
}

// AppendArgs accumulates streamed argument text and moves the call in
// progress. The parse is best-effort: an accumulation that is not yet valid
// JSON keeps the previous good parse while the raw text still advances.
// ok is false when the id is unknown or the call is already sealed.
func (t *Tracker) AppendArgs(id, delta string) (ToolCallSnapshot, bool) {
	c, ok := t.calls.Get(id)
	if !ok {
		zap.S().Warnw("args delta for unknown tool call", "tool_call_id", id)
		return ToolCallSnapshot{}, false
	}
	if c.status.Terminal() {
		zap.S().Warnw("args delta for sealed tool call", "tool_call_id", id, "status", c.status)
		return c.snapshot(), false
	}
	c.raw.WriteString(delta)
	c.status = ToolCallInProgress
	c.reparse(false)
	return c.snapshot(), true
}

// Complete installs a call's final arguments, superseding any streamed
// partials. An unknown id is an implicit begin: the wire format allows a
// complete call with no prior announcement. applied is false when the call
// was already sealed.
func (t *Tracker) Complete(id, name string, args json.RawMessage) (snap ToolCallSnapshot, isNew, applied bool) {
	c, ok := t.calls.Get(id)
	if !ok {
		c = &trackedCall{id: id, status: ToolCallPending, started: time.Now()}
		t.calls.Set(id, c)
		isNew = true
	}
	if c.status.Terminal() {
		zap.S().Warnw("complete for sealed tool call", "tool_call_id", id, "status", c.status)
		return c.snapshot(), isNew, false
	}
	if name != "" {
		c.name = name
	}
	c.raw.Reset()
	if len(args) > 0 {
		c.raw.Write(args)
	} else {
		c.raw.WriteString("{}")
	}
	c.args = nil
	c.status = ToolCallInProgress
	c.reparse(true)
	zap.S().Debugw("tool call arguments complete",
		"tool_call_id", id, "tool_name", c.name, "args_len", c.raw.Len())
	return c.snapshot(), isNew, true
}

// Resolve seals a call as successful with its opaque result. Results are
// set once; a result for a sealed or unknown call is ignored.
func (t *Tracker) Resolve(id string, result json.RawMessage) (ToolCallSnapshot, bool) {
	c, ok := t.calls.Get(id)
	if !ok {
		zap.S().Warnw("result for unknown tool call", "tool_call_id", id)
		return ToolCallSnapshot{}, false
	}
	if c.status.Terminal() {
		zap.S().Warnw("result for sealed tool call", "tool_call_id", id, "status", c.status)
		return c.snapshot(), false
	}
	c.status = ToolCallSuccess
	c.result = append(json.RawMessage(nil), result...)
	sealEdits(c.edits, EditComplete, "")
	zap.S().Debugw("tool call resolved", "tool_call_id", id, "tool_name", c.name)
	return c.snapshot(), true
}

// AttributeError assigns a stream error to the first call still in
// progress, in announce order, sealing it with the message as a synthetic
// result. ok is false when no call is in progress and the error belongs to
// the stream itself.
func (t *Tracker) AttributeError(message string) (ToolCallSnapshot, bool) {
	for pair := t.calls.Oldest(); pair != nil; pair = pair.Next() {
		c := pair.Value
		if c.status != ToolCallInProgress {
			continue
		}
		c.fail(message)
		zap.S().Debugw("stream error attributed to tool call",
			"tool_call_id", c.id, "tool_name", c.name, "error", message)
		return c.snapshot(), true
	}
	return ToolCallSnapshot{}, false
}

// Interrupt force-seals every non-terminal call as an error with an
// "interrupted" result, in announce order, and returns the calls it sealed.
// Idempotent: a second sweep seals nothing.
func (t *Tracker) Interrupt() []ToolCallSnapshot {
	var sealed []ToolCallSnapshot
	for pair := t.calls.Oldest(); pair != nil; pair = pair.Next() {
		c := pair.Value
		if c.status.Terminal() {
			continue
		}
		c.fail(interruptedResult)
		sealed = append(sealed, c.snapshot())
	}
	if len(sealed) > 0 {
		zap.S().Debugw("interrupted unresolved tool calls", "count", len(sealed))
	}
	return sealed
}
