package streaming

import (
	"strings"

	"go.uber.org/zap"
)

// SegmentKind discriminates segment entries.
type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentToolCall SegmentKind = "tool_call"
)

// Segment is one ordered piece of assistant output: a run of visible text
// or a tool call. Version increments on every mutation of the entry at this
// position, so consumers can diff successive snapshots cheaply.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Call    *ToolCallSnapshot
	Version uint64
}

// Builder accumulates segments in arrival order. Visible text grows an open
// trailing run; a tool call occupies the index it was announced at for the
// life of the stream and is replaced in place as it advances. Entries are
// never reordered or removed before Finalize.
type Builder struct {
	sealed    []Segment
	open      strings.Builder
	openVer   uint64
	indexByID map[string]int
	finalized bool
	final     []Segment
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{indexByID: make(map[string]int)}
}

// AppendText grows the open trailing text run.
func (b *Builder) AppendText(delta string) {
	if delta == "" {
		return
	}
	if b.finalized {
		zap.S().Warnw("text after finalize dropped", "len", len(delta))
		return
	}
	b.open.WriteString(delta)
	b.openVer++
}

// BeginToolCall seals the open text run and appends a segment for the call.
// The call's id keeps that index from here on; a begin for an id already
// placed updates it where it stands.
func (b *Builder) BeginToolCall(snap ToolCallSnapshot) {
	if b.finalized {
		zap.S().Warnw("tool call after finalize dropped", "tool_call_id", snap.ID)
		return
	}
	if _, ok := b.indexByID[snap.ID]; ok {
		b.UpdateToolCall(snap)
		return
	}
	b.sealOpenText()
	b.sealed = append(b.sealed, Segment{Kind: SegmentToolCall, Call: &snap, Version: 1})
	b.indexByID[snap.ID] = len(b.sealed) - 1
}

// UpdateToolCall replaces the snapshot at the call's recorded index. A
// segment already holding a terminal status is immutable; updates for it,
// and for ids never announced, are dropped.
func (b *Builder) UpdateToolCall(snap ToolCallSnapshot) {
	if b.finalized {
		zap.S().Warnw("tool call update after finalize dropped", "tool_call_id", snap.ID)
		return
	}
	idx, ok := b.indexByID[snap.ID]
	if !ok {
		zap.S().Warnw("update for unplaced tool call", "tool_call_id", snap.ID)
		return
	}
	seg := &b.sealed[idx]
	if seg.Call.Status.Terminal() {
		zap.S().Warnw("update for sealed tool call segment",
			"tool_call_id", snap.ID, "status", seg.Call.Status)
		return
	}
	seg.Call = &snap
	seg.Version++
}

// Segments returns the live view: the sealed segments plus an ephemeral
// trailing entry for the open text run. The slice is a fresh copy each call.
func (b *Builder) Segments() []Segment {
	if b.finalized {
		return append([]Segment(nil), b.final...)
	}
	out := make([]Segment, 0, len(b.sealed)+1)
	out = append(out, b.sealed...)
	if b.open.Len() > 0 {
		out = append(out, Segment{Kind: SegmentText, Text: b.open.String(), Version: b.openVer})
	}
	return out
}

// Finalize seals the stream's output: the open text run closes, every
// tool call still pending or in progress fails with an "interrupted"
// result, and empty text runs are dropped. Idempotent; later calls return
// the same list.
func (b *Builder) Finalize() []Segment {
	if b.finalized {
		return append([]Segment(nil), b.final...)
	}
	b.sealOpenText()

	for i := range b.sealed {
		seg := &b.sealed[i]
		if seg.Kind != SegmentToolCall || seg.Call.Status.Terminal() {
			continue
		}
		snap := *seg.Call
		snap.Status = ToolCallError
		snap.Result = syntheticResult(interruptedResult)
		snap.Edits = append([]EditOperation(nil), snap.Edits...)
		sealEdits(snap.Edits, EditError, interruptedResult)
		seg.Call = &snap
		seg.Version++
	}

	final := make([]Segment, 0, len(b.sealed))
	for _, seg := range b.sealed {
		if seg.Kind == SegmentText && seg.Text == "" {
			continue
		}
		final = append(final, seg)
	}
	b.final = final
	b.finalized = true
	return append([]Segment(nil), b.final...)
}

func (b *Builder) sealOpenText() {
	if b.open.Len() == 0 {
		return
	}
	b.sealed = append(b.sealed, Segment{Kind: SegmentText, Text: b.open.String(), Version: b.openVer})
	b.open.Reset()
	b.openVer = 0
}
