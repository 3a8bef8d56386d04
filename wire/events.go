// Package wire implements the newline-delimited chat stream protocol:
// line framing, the decoded event union, and the line codec.
package wire

import "encoding/json"

// Event is one decoded protocol event. The union is closed: every member
// lives in this file, so consumers can type-switch exhaustively. Unknown
// wire discriminators never become events; DecodeLine reports them as
// errors instead.
type Event interface {
	isEvent()
}

// TextDelta carries an incremental piece of assistant text.
type TextDelta struct {
	Text string
}

// DataPayload carries producer-defined structured values, passed through
// verbatim without touching decoder state.
type DataPayload struct {
	Items []json.RawMessage
}

// StreamError is an in-band error announcement. It does not end the stream.
type StreamError struct {
	Message string
}

// ToolCallBegin announces a tool call before its arguments stream.
type ToolCallBegin struct {
	ID   string
	Name string
}

// ToolCallArgsDelta carries an incremental piece of a tool call's argument
// text. The accumulated text is only valid JSON once the call is complete.
type ToolCallArgsDelta struct {
	ID    string
	Delta string
}

// ToolCallComplete carries a tool call with its full arguments, superseding
// any streamed partials. It may also be the first mention of the call.
type ToolCallComplete struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolCallResult carries the opaque result for a previously announced call.
type ToolCallResult struct {
	ID     string
	Result json.RawMessage
}

// Finish carries the terminal reason and token usage for the response.
type Finish struct {
	Reason FinishReason
	Usage  *Usage
}

// StepBoundary separates the steps of a multi-step response. Decoders keep
// accumulating across it.
type StepBoundary struct {
	Reason    FinishReason
	Usage     *Usage
	Continued bool
}

func (TextDelta) isEvent()         {}
func (DataPayload) isEvent()       {}
func (StreamError) isEvent()       {}
func (ToolCallBegin) isEvent()     {}
func (ToolCallArgsDelta) isEvent() {}
func (ToolCallComplete) isEvent()  {}
func (ToolCallResult) isEvent()    {}
func (Finish) isEvent()            {}
func (StepBoundary) isEvent()      {}

// FinishReason explains why the producer stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content-filter"
	FinishReasonToolCalls     FinishReason = "tool-calls"
	FinishReasonError         FinishReason = "error"
	FinishReasonOther         FinishReason = "other"
	FinishReasonUnknown       FinishReason = "unknown"
)

// ParseFinishReason maps a wire string onto the known set. Empty and
// unrecognized values map to FinishReasonUnknown.
func ParseFinishReason(s string) FinishReason {
	switch r := FinishReason(s); r {
	case FinishReasonStop, FinishReasonLength, FinishReasonContentFilter,
		FinishReasonToolCalls, FinishReasonError, FinishReasonOther:
		return r
	default:
		return FinishReasonUnknown
	}
}

// Usage is the producer-reported token accounting for a response or step.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}
