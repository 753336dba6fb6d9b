// Package packet supplies the router's packet-ingestion glue: a uniform
// Source interface plus the two concrete sources the system actually
// needs — a synthetic generator for tests and load tools, and a
// line-delimited hex file reader for replaying a captured log. Real
// NIC/eBPF capture is out of scope (spec.md's Non-goals), but the router
// still needs something on the other end of its ingestion loop to compile
// and run end-to-end.
package packet

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
)

// Packet is a single observed element: arbitrary bytes, hashed and folded
// into whichever accumulator the router runs.
type Packet []byte

// Source yields packets one at a time until exhausted, honoring ctx
// cancellation for live feeds that would otherwise block indefinitely.
type Source interface {
	Next(ctx context.Context) (Packet, error)
}

// ErrExhausted is returned by Next once a bounded source has no more
// packets to yield.
var ErrExhausted = fmt.Errorf("packet: source exhausted")

// Synthetic generates pseudo-random packets for tests and load
// generators from its own math/rand/v2 generator, so runs are
// reproducible for a given seed value.
type Synthetic struct {
	remaining int
	size      int
	rng       *rand.Rand
}

// NewSynthetic builds a generator that yields count packets of size bytes
// each, derived from a local math/rand/v2 generator seeded from seed.
func NewSynthetic(count, size int, seed uint64) *Synthetic {
	return &Synthetic{
		remaining: count,
		size:      size,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next synthetic packet, or ErrExhausted once count
// packets have been produced.
func (s *Synthetic) Next(ctx context.Context) (Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.remaining <= 0 {
		return nil, ErrExhausted
	}
	s.remaining--
	buf := make([]byte, s.size)
	for i := range buf {
		buf[i] = byte(s.rng.Uint32())
	}
	return buf, nil
}

// FileSource replays a captured log stored as one hex-encoded packet per
// line, the simplest durable capture format that needs no schema beyond
// what hex/encoding already gives us.
type FileSource struct {
	scanner *bufio.Scanner
}

// NewFileSource wraps r as a FileSource. The caller owns r's lifetime.
func NewFileSource(r io.Reader) *FileSource {
	return &FileSource{scanner: bufio.NewScanner(r)}
}

// Next decodes and returns the next line's hex payload, or ErrExhausted
// at end of file.
func (f *FileSource) Next(ctx context.Context) (Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for f.scanner.Scan() {
		line := f.scanner.Text()
		if line == "" {
			continue
		}
		decoded, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("packet: malformed hex line %q: %w", line, err)
		}
		return decoded, nil
	}
	if err := f.scanner.Err(); err != nil {
		return nil, fmt.Errorf("packet: reading capture file: %w", err)
	}
	return nil, ErrExhausted
}

// ReadAll drains a Source to completion, collecting every packet. Useful
// for building the verifier's ground-truth log from a capture file.
func ReadAll(ctx context.Context, src Source) ([]Packet, error) {
	var out []Packet
	for {
		p, err := src.Next(ctx)
		if err == ErrExhausted {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
