package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flowmesh/distributer/internal/flow"
)

// FrameKind identifies which frame a connection just started sending.
type FrameKind int

const (
	// FrameUnknown is returned when the 5-byte prefix matches neither a
	// chunk frame nor a health frame.
	FrameUnknown FrameKind = iota
	FrameChunk
	FrameHealth
)

// ReadFrameKind reads the 5-byte magic prefix shared by chunk and health
// frames and classifies it. EOF on the first byte is returned unwrapped so
// callers can distinguish a clean connection close from a mid-frame
// truncation.
func ReadFrameKind(r io.Reader) (FrameKind, error) {
	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return FrameUnknown, err
	}
	switch magic {
	case MagicChunk:
		return FrameChunk, nil
	case MagicHealth:
		return FrameHealth, nil
	default:
		return FrameUnknown, nil
	}
}

// ReadChunkBody reads the remainder of a chunk frame (length + payload)
// after the "chunk" magic has already been consumed, and returns the
// decoded Batch. A truncated length or payload read returns
// ErrTruncatedFrame without producing a partial Batch.
func ReadChunkBody(r io.Reader) (flow.Batch, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading length: %v", ErrTruncatedFrame, err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrTruncatedFrame, err)
	}

	decompressed, err := decompressSizePrepended(payload)
	if err != nil {
		return nil, err
	}

	batch, err := DecodeBatch(decompressed)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ReadHealthSuffix reads the 7-byte suffix that follows the "healt" magic
// and confirms it spells out "health-check" in full. A non-matching
// suffix is a protocol violation rather than a health probe — tightening
// this from a bare prefix match avoids mistaking any 11-byte message that
// happens to start with "healt" for a health-check.
func ReadHealthSuffix(r io.Reader) error {
	var suffix [7]byte
	if _, err := io.ReadFull(r, suffix[:]); err != nil {
		return fmt.Errorf("%w: reading health suffix: %v", ErrTruncatedFrame, err)
	}
	if suffix != healthSuffix {
		return ErrUnknownMagic
	}
	return nil
}
