package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Wire discriminators, one per Event member.
const (
	typeText          = "0"
	typeData          = "2"
	typeError         = "3"
	typeToolCall      = "9"
	typeToolResult    = "a"
	typeToolBegin     = "b"
	typeToolArgsDelta = "c"
	typeFinish        = "d"
	typeStepBoundary  = "e"
)

var (
	// ErrMalformedLine reports a line that does not form a type:payload pair.
	ErrMalformedLine = errors.New("wire: malformed line")
	// ErrUnknownType reports a discriminator outside the protocol.
	ErrUnknownType = errors.New("wire: unknown line type")
)

// Payload shapes, named as they appear on the wire.
type toolCallBeginPayload struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

type toolCallArgsDeltaPayload struct {
	ToolCallID    string `json:"toolCallId"`
	ArgsTextDelta string `json:"argsTextDelta"`
}

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
}

type toolCallResultPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result,omitempty"`
}

type finishPayload struct {
	FinishReason string `json:"finishReason"`
	Usage        *Usage `json:"usage,omitempty"`
	IsContinued  bool   `json:"isContinued,omitempty"`
}

// DecodeLine parses one complete line into its Event. The stream is
// untrusted: any failure is reported as an error for the caller to log and
// skip, never as a partial event. Callers filter empty lines themselves.
func DecodeLine(line string) (Event, error) {
	typ, payload, found := strings.Cut(line, ":")
	if !found {
		return nil, fmt.Errorf("%w: no separator in %q", ErrMalformedLine, line[:min(60, len(line))])
	}

	switch typ {
	case typeText:
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			return nil, fmt.Errorf("wire: text payload: %w", err)
		}
		return TextDelta{Text: text}, nil

	case typeData:
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return nil, fmt.Errorf("wire: data payload: %w", err)
		}
		return DataPayload{Items: items}, nil

	case typeError:
		var msg string
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("wire: error payload: %w", err)
		}
		return StreamError{Message: msg}, nil

	case typeToolCall:
		var p toolCallPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: tool call payload: %w", err)
		}
		if p.ToolCallID == "" {
			return nil, fmt.Errorf("%w: tool call without id", ErrMalformedLine)
		}
		return ToolCallComplete{ID: p.ToolCallID, Name: p.ToolName, Args: p.Args}, nil

	case typeToolResult:
		var p toolCallResultPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: tool result payload: %w", err)
		}
		if p.ToolCallID == "" {
			return nil, fmt.Errorf("%w: tool result without id", ErrMalformedLine)
		}
		return ToolCallResult{ID: p.ToolCallID, Result: p.Result}, nil

	case typeToolBegin:
		var p toolCallBeginPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: tool begin payload: %w", err)
		}
		if p.ToolCallID == "" {
			return nil, fmt.Errorf("%w: tool begin without id", ErrMalformedLine)
		}
		return ToolCallBegin{ID: p.ToolCallID, Name: p.ToolName}, nil

	case typeToolArgsDelta:
		var p toolCallArgsDeltaPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: tool args delta payload: %w", err)
		}
		if p.ToolCallID == "" {
			return nil, fmt.Errorf("%w: tool args delta without id", ErrMalformedLine)
		}
		return ToolCallArgsDelta{ID: p.ToolCallID, Delta: p.ArgsTextDelta}, nil

	case typeFinish:
		var p finishPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: finish payload: %w", err)
		}
		return Finish{Reason: ParseFinishReason(p.FinishReason), Usage: p.Usage}, nil

	case typeStepBoundary:
		var p finishPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("wire: step boundary payload: %w", err)
		}
		return StepBoundary{Reason: ParseFinishReason(p.FinishReason), Usage: p.Usage, Continued: p.IsContinued}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}
