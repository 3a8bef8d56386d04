package streaming

import (
	"strings"

	"github.com/tidwall/gjson"
)

// EditStatus is the lifecycle state of one file-edit sub-operation. It
// mirrors the parent call: applying while arguments stream, pending once
// they are complete, then complete or error with the parent's outcome.
type EditStatus string

const (
	EditApplying EditStatus = "applying"
	EditPending  EditStatus = "pending"
	EditComplete EditStatus = "complete"
	EditError    EditStatus = "error"
)

// EditOperation is one projected file modification inside a file-edit call.
type EditOperation struct {
	Path    string
	OldText string
	NewText string
	Status  EditStatus
	Error   string
}

// fileEditTools names the calls whose arguments carry edit operations.
var fileEditTools = map[string]bool{
	"edit_file":   true,
	"write_file":  true,
	"apply_patch": true,
}

// IsFileEditTool reports whether a tool name belongs to the file-edit
// family.
func IsFileEditTool(name string) bool {
	return fileEditTools[name] || strings.HasPrefix(name, "str_replace_")
}

// projectEdits extracts sub-operations from a call's argument text. The
// projection is best-effort: text that is not yet valid JSON, or that
// matches no known shape, yields nil without failing the call.
func projectEdits(raw string, status EditStatus) []EditOperation {
	if !gjson.Valid(raw) {
		return nil
	}
	doc := gjson.Parse(raw)

	path := doc.Get("path").String()
	if path == "" {
		path = doc.Get("file_path").String()
	}

	// edit_file / str_replace_* shape: a list of old/new replacements.
	if edits := doc.Get("edits"); edits.IsArray() {
		var ops []EditOperation
		for _, e := range edits.Array() {
			ops = append(ops, EditOperation{
				Path:    path,
				OldText: e.Get("oldText").String(),
				NewText: e.Get("newText").String(),
				Status:  status,
			})
		}
		return ops
	}
	if doc.Get("oldText").Exists() || doc.Get("newText").Exists() {
		return []EditOperation{{
			Path:    path,
			OldText: doc.Get("oldText").String(),
			NewText: doc.Get("newText").String(),
			Status:  status,
		}}
	}

	// write_file / apply_patch shape: one whole-file or patch operation.
	if content := doc.Get("content"); content.Exists() {
		return []EditOperation{{Path: path, NewText: content.String(), Status: status}}
	}
	if patch := doc.Get("patch"); patch.Exists() {
		return []EditOperation{{Path: path, NewText: patch.String(), Status: status}}
	}
	return nil
}

// sealEdits locks every sub-operation to the parent's terminal outcome,
// propagating the parent's error message onto each one.
func sealEdits(edits []EditOperation, status EditStatus, errMsg string) {
	for i := range edits {
		edits[i].Status = status
		edits[i].Error = errMsg
	}
}
