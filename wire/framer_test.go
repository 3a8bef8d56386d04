package wire

import (
	"reflect"
	"testing"
)

func TestFramerSplit(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    []string
		pending bool
	}{
		{
			name:   "single complete line",
			chunks: []string{"0:\"hi\"\n"},
			want:   []string{`0:"hi"`},
		},
		{
			name:   "two lines in one chunk",
			chunks: []string{"0:\"a\"\n0:\"b\"\n"},
			want:   []string{`0:"a"`, `0:"b"`},
		},
		{
			name:    "line split across three chunks",
			chunks:  []string{"0:\"he", "ll", "o\"\ntail"},
			want:    []string{`0:"hello"`},
			pending: true,
		},
		{
			name:   "crlf terminators",
			chunks: []string{"0:\"a\"\r\n0:\"b\"\r\n"},
			want:   []string{`0:"a"`, `0:"b"`},
		},
		{
			name:   "crlf split between chunks",
			chunks: []string{"0:\"a\"\r", "\n"},
			want:   []string{`0:"a"`},
		},
		{
			name:   "empty lines survive framing",
			chunks: []string{"\n\n0:\"a\"\n"},
			want:   []string{"", "", `0:"a"`},
		},
		{
			name:    "no terminator holds everything",
			chunks:  []string{"0:\"never ends"},
			want:    nil,
			pending: true,
		},
		{
			name:   "multibyte rune split between chunks",
			chunks: []string{"0:\"sm\xc3", "\xb8rbr\xc3\xb8d\"\n"},
			want:   []string{"0:\"smørbrød\""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f LineFramer
			var got []string
			for _, c := range tt.chunks {
				got = append(got, f.Split(c)...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
			if f.Pending() != tt.pending {
				t.Errorf("Pending() = %v, want %v", f.Pending(), tt.pending)
			}
		})
	}
}

func TestFramerFlush(t *testing.T) {
	var f LineFramer
	f.Split("0:\"first\"\n0:\"last\"")

	tail, ok := f.Flush()
	if !ok {
		t.Fatal("expected a held fragment")
	}
	if tail != `0:"last"` {
		t.Errorf("tail = %q, want %q", tail, `0:"last"`)
	}
	if f.Pending() {
		t.Error("framer should be empty after Flush")
	}
	if _, ok := f.Flush(); ok {
		t.Error("second Flush should find nothing")
	}
}

func TestFramerFlushStripsCR(t *testing.T) {
	var f LineFramer
	f.Split("0:\"x\"\r")

	tail, ok := f.Flush()
	if !ok || tail != `0:"x"` {
		t.Errorf("Flush() = %q, %v, want %q, true", tail, ok, `0:"x"`)
	}
}

func TestFramerEmptyChunk(t *testing.T) {
	var f LineFramer
	if lines := f.Split(""); lines != nil {
		t.Errorf("Split(\"\") = %q, want nil", lines)
	}
}
