// Package streaming decodes one assistant response stream into ordered
// segments, filtered text channels, and callbacks. A Session ties together
// the line framer, the thinking-tag filter, the tool-call tracker, and the
// segment builder; everything runs on the caller's goroutine.
package streaming

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatwire/chatwire/wire"
)

// Config holds the decode-session options.
type Config struct {
	// TagName is the thinking-annotation tag name, without brackets.
	// Defaults to "thinking".
	TagName string
	// ReadBufferSize is the chunk size Run reads with. Defaults to 4096.
	ReadBufferSize int
}

// DefaultConfig returns the standard options.
func DefaultConfig() *Config {
	return &Config{TagName: "thinking", ReadBufferSize: 4096}
}

// ErrClosed reports use of a session after Close.
var ErrClosed = errors.New("streaming: session closed")

// Session decodes one assistant response. It is strictly single-threaded:
// one goroutine feeds chunks, state mutates in line order, and callbacks
// fire inline. Corrupt lines are skipped; in-band errors and caller aborts
// are kept apart; Close always finalizes, exactly once.
type Session struct {
	id      string
	cb      Callbacks
	cfg     Config
	framer  wire.LineFramer
	filter  *ThinkingFilter
	tracker *Tracker
	builder *Builder

	opened bool
	closed bool
	final  []Segment
}

// NewSession returns a session dispatching to cb. A nil config means
// DefaultConfig.
func NewSession(cb Callbacks, cfg *Config) *Session {
	c := *DefaultConfig()
	if cfg != nil {
		if cfg.TagName != "" {
			c.TagName = cfg.TagName
		}
		if cfg.ReadBufferSize > 0 {
			c.ReadBufferSize = cfg.ReadBufferSize
		}
	}
	return &Session{
		id:      uuid.NewString(),
		cb:      cb,
		cfg:     c,
		filter:  NewThinkingFilter(c.TagName),
		tracker: NewTracker(),
		builder: NewBuilder(),
	}
}

// ID returns the session's log correlation id.
func (s *Session) ID() string {
	return s.id
}

// Thinking reports whether the text stream is inside a thinking block.
func (s *Session) Thinking() bool {
	return s.filter.Thinking()
}

// Segments returns the current live segment view.
func (s *Session) Segments() []Segment {
	return s.builder.Segments()
}

// Run feeds the session from r until EOF or cancellation, then closes it.
// Cancellation is checked before each read and after each chunk's lines; a
// chunk read after cancellation is discarded undecoded. An abort surfaces
// through OnStreamClose(true) and the returned context error, never through
// OnStreamError.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	if s.closed {
		return ErrClosed
	}
	s.open()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			s.Close(true)
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if cerr := ctx.Err(); cerr != nil {
				s.Close(true)
				return cerr
			}
			s.Feed(string(buf[:n]))
			if cerr := ctx.Err(); cerr != nil {
				s.Close(true)
				return cerr
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.Close(false)
			return nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.Close(true)
			return err
		default:
			zap.S().Debugw("stream read failed", "session", s.id, "error", err)
			if s.cb.OnStreamError != nil {
				s.cb.OnStreamError(err.Error())
			}
			s.Close(false)
			return err
		}
	}
}

// Feed decodes one chunk's worth of complete lines. Chunk boundaries may
// fall anywhere, mid-line and mid-rune included. Feeding a closed session
// is a no-op.
func (s *Session) Feed(chunk string) {
	if s.closed {
		zap.S().Warnw("feed on closed session", "session", s.id)
		return
	}
	s.open()
	for _, line := range s.framer.Split(chunk) {
		s.handleLine(line)
	}
}

// Close finalizes the session and returns the final segments. On the normal
// path the framer's held fragment decodes as a last line; on abort it is
// dropped. Either way the filter's carry flushes as literal text, unresolved
// tool calls fail as interrupted, and OnStreamClose fires. Idempotent:
// later calls return the same list and fire nothing.
func (s *Session) Close(aborted bool) []Segment {
	if s.closed {
		return append([]Segment(nil), s.final...)
	}
	s.closed = true
	s.open()

	if tail, ok := s.framer.Flush(); ok {
		if aborted {
			zap.S().Debugw("dropping undecoded tail on abort", "session", s.id, "len", len(tail))
		} else {
			s.handleLine(tail)
		}
	}
	s.route(s.filter.Flush())

	interrupted := s.tracker.Interrupt()
	for _, snap := range interrupted {
		s.builder.UpdateToolCall(snap)
	}
	s.final = s.builder.Finalize()

	if len(interrupted) > 0 && s.cb.OnSegmentUpdate != nil {
		s.cb.OnSegmentUpdate(append([]Segment(nil), s.final...))
	}
	zap.S().Debugw("stream close",
		"session", s.id, "aborted", aborted,
		"segments", len(s.final), "interrupted", len(interrupted))
	if s.cb.OnStreamClose != nil {
		s.cb.OnStreamClose(aborted)
	}
	return append([]Segment(nil), s.final...)
}

func (s *Session) open() {
	if s.opened {
		return
	}
	s.opened = true
	zap.S().Debugw("stream open", "session", s.id)
	if s.cb.OnStreamOpen != nil {
		s.cb.OnStreamOpen()
	}
}

// handleLine decodes and applies one complete line. The stream is
// untrusted: lines that do not decode are logged and skipped, and never
// disturb state built from earlier lines.
func (s *Session) handleLine(line string) {
	if line == "" {
		return
	}
	ev, err := wire.DecodeLine(line)
	if err != nil {
		zap.S().Debugw("skipping undecodable line",
			"session", s.id, "error", err, "line", line[:min(60, len(line))])
		return
	}
	s.apply(ev)
}

// apply runs one event against the session state and dispatches callbacks.
func (s *Session) apply(ev wire.Event) {
	switch e := ev.(type) {
	case wire.TextDelta:
		if e.Text == "" {
			return
		}
		s.route(s.filter.Feed(e.Text))

	case wire.ToolCallBegin:
		snap := s.tracker.Begin(e.ID, e.Name)
		s.builder.BeginToolCall(snap)
		if s.cb.OnToolCall != nil {
			s.cb.OnToolCall(snap)
		}
		s.notifySegments()

	case wire.ToolCallArgsDelta:
		snap, ok := s.tracker.AppendArgs(e.ID, e.Delta)
		if !ok {
			return
		}
		s.builder.UpdateToolCall(snap)
		if s.cb.OnToolCallArgsUpdate != nil {
			s.cb.OnToolCallArgsUpdate(snap.ID, snap.Args, snap.RawArgs)
		}
		s.notifySegments()

	case wire.ToolCallComplete:
		snap, isNew, applied := s.tracker.Complete(e.ID, e.Name, e.Args)
		if !applied {
			return
		}
		if isNew {
			s.builder.BeginToolCall(snap)
			if s.cb.OnToolCall != nil {
				s.cb.OnToolCall(snap)
			}
		} else {
			s.builder.UpdateToolCall(snap)
		}
		if s.cb.OnToolCallArgsUpdate != nil {
			s.cb.OnToolCallArgsUpdate(snap.ID, snap.Args, snap.RawArgs)
		}
		s.notifySegments()

	case wire.ToolCallResult:
		snap, ok := s.tracker.Resolve(e.ID, e.Result)
		if !ok {
			return
		}
		s.builder.UpdateToolCall(snap)
		s.notifySegments()

	case wire.StreamError:
		if snap, ok := s.tracker.AttributeError(e.Message); ok {
			s.builder.UpdateToolCall(snap)
			s.notifySegments()
			return
		}
		zap.S().Debugw("stream-level error", "session", s.id, "error", e.Message)
		if s.cb.OnStreamError != nil {
			s.cb.OnStreamError(e.Message)
		}

	case wire.DataPayload:
		if s.cb.OnStructuredData != nil {
			s.cb.OnStructuredData(e.Items)
		}

	case wire.Finish:
		zap.S().Debugw("stream finish", "session", s.id, "reason", e.Reason)
		if s.cb.OnCompletion != nil {
			s.cb.OnCompletion(e.Reason, e.Usage)
		}

	case wire.StepBoundary:
		// Steps share one segment list; nothing to do but note it.
		zap.S().Debugw("step boundary",
			"session", s.id, "reason", e.Reason, "continued", e.Continued)
	}
}

// route delivers filter emissions: visible text becomes segment content,
// thinking text only reaches its callback.
func (s *Session) route(emissions []Emission) {
	changed := false
	for _, em := range emissions {
		if em.Channel == ChannelThinking {
			if s.cb.OnThinkingDelta != nil {
				s.cb.OnThinkingDelta(em.Text)
			}
			continue
		}
		s.builder.AppendText(em.Text)
		changed = true
		if s.cb.OnTextDelta != nil {
			s.cb.OnTextDelta(em.Text)
		}
	}
	if changed {
		s.notifySegments()
	}
}

func (s *Session) notifySegments() {
	if s.cb.OnSegmentUpdate != nil {
		s.cb.OnSegmentUpdate(s.builder.Segments())
	}
}
