package wire

import (
	"encoding/json"
	"fmt"
)

// Encode renders an Event as its wire line without the trailing newline.
// It is the inverse of DecodeLine and exists for scripted streams and tests.
func Encode(ev Event) (string, error) {
	switch e := ev.(type) {
	case TextDelta:
		return encodeLine(typeText, e.Text)

	case DataPayload:
		items := e.Items
		if items == nil {
			items = []json.RawMessage{}
		}
		return encodeLine(typeData, items)

	case StreamError:
		return encodeLine(typeError, e.Message)

	case ToolCallComplete:
		args := e.Args
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		return encodeLine(typeToolCall, toolCallPayload{ToolCallID: e.ID, ToolName: e.Name, Args: args})

	case ToolCallResult:
		result := e.Result
		if len(result) == 0 {
			result = json.RawMessage("null")
		}
		return encodeLine(typeToolResult, toolCallResultPayload{ToolCallID: e.ID, Result: result})

	case ToolCallBegin:
		return encodeLine(typeToolBegin, toolCallBeginPayload{ToolCallID: e.ID, ToolName: e.Name})

	case ToolCallArgsDelta:
		return encodeLine(typeToolArgsDelta, toolCallArgsDeltaPayload{ToolCallID: e.ID, ArgsTextDelta: e.Delta})

	case Finish:
		return encodeLine(typeFinish, finishPayload{FinishReason: string(e.Reason), Usage: e.Usage})

	case StepBoundary:
		return encodeLine(typeStepBoundary, finishPayload{FinishReason: string(e.Reason), Usage: e.Usage, IsContinued: e.Continued})

	case nil:
		return "", fmt.Errorf("wire: encode nil event")

	default:
		return "", fmt.Errorf("wire: encode unsupported event %T", ev)
	}
}

// EncodeLines renders events as a single newline-terminated block, the form
// a producer would put on the wire.
func EncodeLines(events ...Event) (string, error) {
	var out []byte
	for _, ev := range events {
		line, err := Encode(ev)
		if err != nil {
			return "", err
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return string(out), nil
}

func encodeLine(typ string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("wire: encode type %s payload: %w", typ, err)
	}
	return typ + ":" + string(b), nil
}
