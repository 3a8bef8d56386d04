package streaming

import "strings"

// Channel routes filtered text: user-visible content or thinking annotation.
type Channel int

const (
	ChannelVisible Channel = iota
	ChannelThinking
)

func (c Channel) String() string {
	if c == ChannelThinking {
		return "thinking"
	}
	return "visible"
}

// Emission is one run of filtered text bound for a single channel.
type Emission struct {
	Channel Channel
	Text    string
}

// maxCarry bounds the withheld partial-marker fragment. A fragment that
// outgrows this cannot be a marker anymore and flushes as literal text
// with no channel flip.
const maxCarry = 256

// Marker classification for matchMarker.
const (
	markerNone = iota
	markerPartial
	markerComplete
)

// ThinkingFilter strips inline annotation markers ("<thinking>" and
// "</thinking>" by default) out of a text-delta stream and routes every
// surviving run to the visible or thinking channel. Markers match
// case-insensitively, tolerate whitespace and attribute runs, and count
// even when the closing '>' is missing. A delta may end mid-marker; the
// trailing fragment is withheld until a later delta decides what it was.
type ThinkingFilter struct {
	tag      string
	thinking bool
	carry    string
}

// NewThinkingFilter returns a filter for the given tag name, "thinking"
// when empty.
func NewThinkingFilter(tag string) *ThinkingFilter {
	if tag == "" {
		tag = "thinking"
	}
	return &ThinkingFilter{tag: strings.ToLower(tag)}
}

// Thinking reports whether the filter is currently inside an annotation
// block.
func (f *ThinkingFilter) Thinking() bool {
	return f.thinking
}

// Feed filters one text delta and returns the ordered emissions it
// produced. An opening marker switches routing to the thinking channel, a
// closing marker switches it back; the markers themselves are never
// emitted.
func (f *ThinkingFilter) Feed(delta string) []Emission {
	if delta == "" && f.carry == "" {
		return nil
	}
	s := f.carry + delta
	f.carry = ""

	var out []Emission
	emit := func(ch Channel, text string) {
		if text == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Channel == ch {
			out[n-1].Text += text
			return
		}
		out = append(out, Emission{Channel: ch, Text: text})
	}

	start := 0
	for i := 0; i < len(s); {
		if s[i] != '<' {
			i++
			continue
		}
		end, closing, state := f.matchMarker(s, i)
		switch state {
		case markerComplete:
			emit(f.channel(), s[start:i])
			f.thinking = !closing
			start, i = end, end
		case markerPartial:
			if len(s)-i <= maxCarry {
				emit(f.channel(), s[start:i])
				f.carry = s[i:]
				return out
			}
			// Too long to still become a marker.
			i++
		default:
			i++
		}
	}
	emit(f.channel(), s[start:])
	return out
}

// Flush surrenders any withheld fragment as literal text on the current
// channel. A marker that never completed is content. Call at end of stream.
func (f *ThinkingFilter) Flush() []Emission {
	if f.carry == "" {
		return nil
	}
	text := f.carry
	f.carry = ""
	return []Emission{{Channel: f.channel(), Text: text}}
}

func (f *ThinkingFilter) channel() Channel {
	if f.thinking {
		return ChannelThinking
	}
	return ChannelVisible
}

// matchMarker classifies the text starting at s[i], which must be '<':
//
//	markerComplete: a full marker, "<thinking ...>" in any case, or the
//	  malformed form cut short by the next '<' instead of '>'. end is the
//	  index just past the consumed marker.
//	markerPartial: the text ends before the marker resolves; it may still
//	  complete in a later delta.
//	markerNone: not this filter's marker at all.
func (f *ThinkingFilter) matchMarker(s string, i int) (end int, closing bool, state int) {
	j := i + 1
	skipSpace := func() {
		for j < len(s) && isSpace(s[j]) {
			j++
		}
	}

	skipSpace()
	if j < len(s) && s[j] == '/' {
		closing = true
		j++
		skipSpace()
	}
	if j == len(s) {
		return 0, closing, markerPartial
	}

	for k := 0; k < len(f.tag); k++ {
		if j == len(s) {
			return 0, closing, markerPartial
		}
		if lowerByte(s[j]) != f.tag[k] {
			return 0, false, markerNone
		}
		j++
	}

	// "<thinking" must not continue into a longer tag name.
	if j < len(s) && isNameByte(s[j]) {
		return 0, false, markerNone
	}

	// Attribute run until a terminator decides the marker.
	for j < len(s) {
		switch s[j] {
		case '>':
			return j + 1, closing, markerComplete
		case '<':
			return j, closing, markerComplete
		}
		j++
	}
	return 0, closing, markerPartial
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isNameByte(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' || b == '-' || b == '_'
}

func lowerByte(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
