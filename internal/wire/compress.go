package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Header layout for compressSizePrepended: a little-endian u32 uncompressed
// size, then a one-byte store mode, then the body. This is a size away from
// the reference implementation's bare compress_prepend_size (4-byte prefix,
// no mode byte): pierrec/lz4's CompressBlock returns n == 0 to mean "this
// input didn't compress, store it raw" for small or high-entropy input,
// which is routine for single-record netflow batches, so the body needs a
// tag saying which case it is.
const (
	storeModeCompressed byte = 0
	storeModeRaw        byte = 1
)

// compressSizePrepended mirrors the reference implementation's
// compress_prepend_size, with a trailing store-mode byte after the size
// prefix so an incompressible body can be stored raw instead of forcing a
// compressed encoding that doesn't exist.
func compressSizePrepended(src []byte) []byte {
	if len(src) == 0 {
		dst := make([]byte, 5)
		dst[4] = storeModeCompressed
		return dst
	}

	bound := lz4.CompressBlockBound(len(src))
	dst := make([]byte, 5+bound)
	binary.LittleEndian.PutUint32(dst[:4], uint32(len(src)))

	var ht [1 << 16]int
	n, err := lz4.CompressBlock(src, dst[5:], ht[:])
	if err != nil {
		// CompressBlockBound already sized dst to the worst case, so this
		// can only fail on a pierrec/lz4 internal invariant violation.
		panic(fmt.Sprintf("wire: lz4 compress: %v", err))
	}
	if n == 0 {
		// CompressBlock's documented signal for "not worth compressing":
		// store the literal bytes instead of a compressed block.
		dst[4] = storeModeRaw
		copy(dst[5:5+len(src)], src)
		return dst[:5+len(src)]
	}
	dst[4] = storeModeCompressed
	return dst[:5+n]
}

// decompressSizePrepended is the inverse of compressSizePrepended.
func decompressSizePrepended(src []byte) ([]byte, error) {
	if len(src) < 5 {
		return nil, fmt.Errorf("%w: payload shorter than size prefix", ErrDecompressFailed)
	}
	size := binary.LittleEndian.Uint32(src[:4])
	mode := src[4]
	body := src[5:]

	if size == 0 {
		return []byte{}, nil
	}

	if mode == storeModeRaw {
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: raw body is %d bytes, expected %d", ErrDecompressFailed, len(body), size)
		}
		dst := make([]byte, size)
		copy(dst, body)
		return dst, nil
	}

	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(body, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}
	if uint32(n) != size {
		return nil, fmt.Errorf("%w: decompressed %d bytes, expected %d", ErrDecompressFailed, n, size)
	}
	return dst, nil
}
