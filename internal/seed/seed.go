// Package seed centralizes the randomness used across the digest family so
// that reproducible runs (tests, benchmarks, load generators) can be driven
// from a single explicit seed, while production defaults fall through to
// crypto/rand. The AMH nonce and the CBF/IBLT hash seeds are drawn from a
// Source rather than from a global random generator. The RIBLT cell mapping
// takes no seed (it is a fixed function of each element's hash), and
// packet.Synthetic seeds its own generator from a plain uint64.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Source hands out randomness for digest construction.
type Source interface {
	Uint64() uint64
	Bytes(n int) []byte
}

// cryptoSource uses the OS CSPRNG; this is the production default.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("seed: crypto/rand unavailable: " + err.Error())
	}
	return binary.BigEndian.Uint64(buf[:])
}

func (cryptoSource) Bytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		panic("seed: crypto/rand unavailable: " + err.Error())
	}
	return buf
}

// Default is the process-wide production randomness source.
var Default Source = cryptoSource{}

// deterministicSource wraps math/rand/v2 seeded from a fixed value, used by
// tests and benchmarks that need reproducible accumulator state.
type deterministicSource struct {
	r *rand.Rand
}

// Deterministic returns a Source whose output depends only on s, for
// reproducible tests and load generators (spec.md's "single seed generator").
func Deterministic(s uint64) Source {
	return &deterministicSource{r: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (d *deterministicSource) Uint64() uint64 {
	return d.r.Uint64()
}

func (d *deterministicSource) Bytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(d.r.Uint32())
	}
	return buf
}
