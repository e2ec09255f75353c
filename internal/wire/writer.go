package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flowmesh/distributer/internal/flow"
)

// WriteChunk serializes, compresses, and writes a complete chunk frame:
// "chunk" (5B) ‖ big-endian u32 length ‖ lz4 size-prepended payload.
func WriteChunk(w io.Writer, b flow.Batch) error {
	encoded := EncodeBatch(b)
	payload := compressSizePrepended(encoded)

	frame := make([]byte, 0, 5+4+len(payload))
	frame = append(frame, MagicChunk[:]...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	frame = append(frame, lenBuf[:]...)
	frame = append(frame, payload...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing chunk frame: %w", err)
	}
	return nil
}

// WriteHealthProbe writes the 12-byte "health-check" frame.
func WriteHealthProbe(w io.Writer) error {
	buf := make([]byte, 0, 12)
	buf = append(buf, MagicHealth[:]...)
	buf = append(buf, healthSuffix[:]...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing health probe: %w", err)
	}
	return nil
}

// WriteHealthyResponse writes the 7-byte "healthy" response.
func WriteHealthyResponse(w io.Writer) error {
	if _, err := w.Write(HealthyResponse); err != nil {
		return fmt.Errorf("writing healthy response: %w", err)
	}
	return nil
}
