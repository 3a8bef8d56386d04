// Package replay provides scripted chunk sources: YAML scenarios that play
// a wire stream back with its chunk boundaries preserved. A scenario stands
// in for a live transport in tests, demos, and offline decoding.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chatwire/chatwire/streaming"
)

// Scenario is one scripted stream. Chunks reach the decoder exactly as
// written, so a scenario can pin a chunk boundary mid-line or mid-marker.
type Scenario struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Chunks      []string `yaml:"chunks"`
}

// Load decodes a scenario from YAML. Unknown fields are rejected.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("replay: decode scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile decodes a scenario from a YAML file.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	sc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return errors.New("replay: scenario needs a name")
	}
	if len(s.Chunks) == 0 {
		return errors.New("replay: scenario needs at least one chunk")
	}
	return nil
}

// Reader returns an io.Reader over the scripted stream that yields at most
// one chunk per Read call, preserving the scenario's chunk boundaries
// through the reader seam.
func (s *Scenario) Reader() io.Reader {
	return &chunkReader{chunks: s.Chunks}
}

// Drive decodes the whole scenario through a fresh session and returns the
// final segments.
func (s *Scenario) Drive(ctx context.Context, cb streaming.Callbacks, cfg *streaming.Config) ([]streaming.Segment, error) {
	sess := streaming.NewSession(cb, cfg)
	if err := sess.Run(ctx, s.Reader()); err != nil {
		return sess.Segments(), err
	}
	return sess.Segments(), nil
}

// chunkReader serves one scripted chunk per Read. A chunk larger than the
// destination buffer carries over at the split.
type chunkReader struct {
	chunks []string
	pos    int
	off    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for r.pos < len(r.chunks) {
		rest := r.chunks[r.pos][r.off:]
		if rest == "" {
			r.pos++
			r.off = 0
			continue
		}
		n := copy(p, rest)
		r.off += n
		if r.off == len(r.chunks[r.pos]) {
			r.pos++
			r.off = 0
		}
		return n, nil
	}
	return 0, io.EOF
}
