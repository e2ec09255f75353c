// Package wire implements the length-prefixed binary protocol that carries
// netflow batches from a distributer to a processor, plus the health-check
// frame used by the heartbeat supervisor. One side writes frames, the
// other reads them; both halves live in this package so the wire format
// can only be defined once.
package wire

import "errors"

// Chunk frame magic: "chunk" (5 bytes), followed by a big-endian u32
// payload length, followed by exactly that many bytes of payload.
var MagicChunk = [5]byte{'c', 'h', 'u', 'n', 'k'}

// Health frame magic: "healt" (5 bytes) followed by the 7-byte suffix
// "h-check", together spelling "health-check" (12 bytes). The reader
// validates the full 12-byte string rather than just the 5-byte prefix —
// a bare 5-byte "healt" prefix match lets any 11-byte message beginning
// with "healt" be mistaken for a health probe, so the suffix is checked
// in full.
var MagicHealth = [5]byte{'h', 'e', 'a', 'l', 't'}

// healthSuffix is the remainder of "health-check" after the 5-byte magic.
var healthSuffix = [7]byte{'h', '-', 'c', 'h', 'e', 'c', 'k'}

// HealthyResponse is written back by a processor that accepts a health
// probe.
var HealthyResponse = []byte("healthy")

// Errors returned while parsing frames off the wire.
var (
	ErrUnknownMagic    = errors.New("wire: unknown frame magic")
	ErrTruncatedFrame  = errors.New("wire: truncated frame")
	ErrDecodeFailed    = errors.New("wire: record decode failed")
	ErrDecompressFailed = errors.New("wire: lz4 decompress failed")
)
