package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/chatwire/chatwire/streaming"
	"github.com/chatwire/chatwire/wire"
)

func TestLoadFileBasic(t *testing.T) {
	sc, err := LoadFile("testdata/basic.yaml")
	if err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}
	if sc.Name != "greeting with weather lookup" {
		t.Errorf("name = %q", sc.Name)
	}
	if sc.Description == "" {
		t.Error("description not loaded")
	}
	if len(sc.Chunks) != 12 {
		t.Errorf("chunks = %d, want 12", len(sc.Chunks))
	}
	// Boundaries survive YAML: chunk 2 ends mid-line.
	if sc.Chunks[1] != "0:\"wor" {
		t.Errorf("chunk 1 = %q, want the mid-line fragment", sc.Chunks[1])
	}
}

func TestLoadRejectsBadScenarios(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "chunks: [\"0:\\\"x\\\"\\n\"]"},
		{"no chunks", "name: empty"},
		{"unknown field", "name: x\nchunks: [\"a\"]\nspeed: 3"},
		{"not yaml at all", "\t{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.yaml)); err == nil {
				t.Error("Load() accepted a bad scenario")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("testdata/nope.yaml"); err == nil {
		t.Error("LoadFile() accepted a missing file")
	}
}

func TestReaderOneChunkPerRead(t *testing.T) {
	sc := &Scenario{Name: "x", Chunks: []string{"abc", "", "defgh"}}
	r := sc.Reader()
	buf := make([]byte, 64)

	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "abc" {
		t.Fatalf("first read = %q, %v", buf[:n], err)
	}
	// Empty chunks are skipped, not returned as zero-byte reads.
	n, err = r.Read(buf)
	if err != nil || string(buf[:n]) != "defgh" {
		t.Fatalf("second read = %q, %v", buf[:n], err)
	}
	if _, err = r.Read(buf); err != io.EOF {
		t.Errorf("final read err = %v, want io.EOF", err)
	}
}

func TestReaderSplitsOversizedChunk(t *testing.T) {
	sc := &Scenario{Name: "x", Chunks: []string{"abcdef"}}
	r := sc.Reader()
	buf := make([]byte, 4)

	n, _ := r.Read(buf)
	if string(buf[:n]) != "abcd" {
		t.Fatalf("first read = %q", buf[:n])
	}
	n, _ = r.Read(buf)
	if string(buf[:n]) != "ef" {
		t.Fatalf("carry read = %q", buf[:n])
	}
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("final read err = %v, want io.EOF", err)
	}
}

// capture collects the callback streams the replay tests assert on.
type capture struct {
	text     strings.Builder
	thinking strings.Builder
	errs     []string
	usage    *wire.Usage
	aborted  bool
}

func (c *capture) callbacks() streaming.Callbacks {
	return streaming.Callbacks{
		OnTextDelta:     func(text string) { c.text.WriteString(text) },
		OnThinkingDelta: func(text string) { c.thinking.WriteString(text) },
		OnStreamError:   func(message string) { c.errs = append(c.errs, message) },
		OnCompletion:    func(_ wire.FinishReason, usage *wire.Usage) { c.usage = usage },
		OnStreamClose:   func(wasAborted bool) { c.aborted = wasAborted },
	}
}

func digest(segs []streaming.Segment) []string {
	var out []string
	for _, seg := range segs {
		switch seg.Kind {
		case streaming.SegmentText:
			out = append(out, "text:"+seg.Text)
		case streaming.SegmentToolCall:
			out = append(out, fmt.Sprintf("call:%s:%s:%s:%s",
				seg.Call.ID, seg.Call.Name, seg.Call.Status, seg.Call.Result))
		}
	}
	return out
}

func TestDriveBasic(t *testing.T) {
	sc, err := LoadFile("testdata/basic.yaml")
	if err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}

	rec := &capture{}
	segs, err := sc.Drive(context.Background(), rec.callbacks(), nil)
	if err != nil {
		t.Fatalf("Drive() = %v", err)
	}

	want := []string{
		"text:Hello world",
		`call:call_1:get_weather:success:{"temp_c":7}`,
		"text:Done.",
	}
	if got := digest(segs); !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %v, want %v", got, want)
	}
	if rec.thinking.String() != "checking the forecast" {
		t.Errorf("thinking = %q", rec.thinking.String())
	}
	if len(rec.errs) != 0 {
		t.Errorf("the corrupt line surfaced as an error: %v", rec.errs)
	}
	if rec.usage == nil || rec.usage.TotalTokens != 46 {
		t.Errorf("usage = %+v, want total 46", rec.usage)
	}
	if rec.aborted {
		t.Error("a played-out scenario is not an abort")
	}
}

func TestDriveInterrupted(t *testing.T) {
	sc, err := LoadFile("testdata/interrupted.yaml")
	if err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}

	rec := &capture{}
	segs, err := sc.Drive(context.Background(), rec.callbacks(), nil)
	if err != nil {
		t.Fatalf("Drive() = %v", err)
	}

	want := []string{
		"text:Let me edit that file.",
		`call:call_9:edit_file:error:"interrupted"`,
	}
	if got := digest(segs); !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %v, want %v", got, want)
	}

	call := segs[1].Call
	if len(call.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(call.Edits))
	}
	if call.Edits[0].Status != streaming.EditError || call.Edits[0].Error != "interrupted" {
		t.Errorf("edit = %+v, want sealed as interrupted", call.Edits[0])
	}
}

func TestDriveCancelled(t *testing.T) {
	sc, err := LoadFile("testdata/basic.yaml")
	if err != nil {
		t.Fatalf("LoadFile() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &capture{}
	segs, err := sc.Drive(ctx, rec.callbacks(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Drive() = %v, want context.Canceled", err)
	}
	if len(segs) != 0 {
		t.Errorf("segments = %v, want none before the first read", digest(segs))
	}
	if !rec.aborted {
		t.Error("abort not reported")
	}
}
