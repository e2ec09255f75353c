package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flowmesh/distributer/internal/flow"
)

// tag bytes for nullable fields.
const (
	tagNone byte = 0
	tagSome byte = 1
)

// EncodeBatch serializes a Batch into the fixed, deterministic binary
// encoding: a big-endian u32 record count followed by each record's
// fields in FlowRecord field order, every nullable field preceded by a
// 1-byte presence tag.
func EncodeBatch(b flow.Batch) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(16 + len(b)*64)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(b)))
	buf.Write(countBuf[:])

	for _, r := range b {
		encodeRecord(buf, r)
	}
	return buf.Bytes()
}

func encodeRecord(buf *bytes.Buffer, r flow.Record) {
	var i64 [8]byte
	binary.BigEndian.PutUint64(i64[:], uint64(r.FlowID))
	buf.Write(i64[:])

	encodeString(buf, r.SrcIP)
	encodeString(buf, r.DstIP)
	encodeInt32(buf, r.SrcPort)
	encodeInt32(buf, r.DstPort)
	encodeInt16(buf, r.Protocol)
	encodeInt64(buf, r.Bytes)
	encodeInt64(buf, r.Packets)
	encodeInt64(buf, r.StartTS)
	encodeInt64(buf, r.EndTS)
	encodeInt32(buf, r.SrcASN)
	encodeInt32(buf, r.DstASN)
}

func encodeString(buf *bytes.Buffer, v *string) {
	if v == nil {
		buf.WriteByte(tagNone)
		return
	}
	buf.WriteByte(tagSome)
	if len(*v) > math.MaxUint16 {
		panic("wire: string field exceeds 64KiB")
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(*v)))
	buf.Write(lenBuf[:])
	buf.WriteString(*v)
}

func encodeInt16(buf *bytes.Buffer, v *int16) {
	if v == nil {
		buf.WriteByte(tagNone)
		return
	}
	buf.WriteByte(tagSome)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(*v))
	buf.Write(b[:])
}

func encodeInt32(buf *bytes.Buffer, v *int32) {
	if v == nil {
		buf.WriteByte(tagNone)
		return
	}
	buf.WriteByte(tagSome)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(*v))
	buf.Write(b[:])
}

func encodeInt64(buf *bytes.Buffer, v *int64) {
	if v == nil {
		buf.WriteByte(tagNone)
		return
	}
	buf.WriteByte(tagSome)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(*v))
	buf.Write(b[:])
}

// DecodeBatch parses the encoding produced by EncodeBatch. It never
// returns a partially populated Batch: any malformed input yields
// ErrDecodeFailed.
func DecodeBatch(data []byte) (flow.Batch, error) {
	r := bytes.NewReader(data)

	var countBuf [4]byte
	if _, err := readFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading count: %v", ErrDecodeFailed, err)
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	batch := make(flow.Batch, 0, count)
	for i := uint32(0); i < count; i++ {
		rec, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrDecodeFailed, i, err)
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

func decodeRecord(r *bytes.Reader) (flow.Record, error) {
	var rec flow.Record

	var i64 [8]byte
	if _, err := readFull(r, i64[:]); err != nil {
		return rec, err
	}
	rec.FlowID = int64(binary.BigEndian.Uint64(i64[:]))

	var err error
	if rec.SrcIP, err = decodeString(r); err != nil {
		return rec, err
	}
	if rec.DstIP, err = decodeString(r); err != nil {
		return rec, err
	}
	if rec.SrcPort, err = decodeInt32(r); err != nil {
		return rec, err
	}
	if rec.DstPort, err = decodeInt32(r); err != nil {
		return rec, err
	}
	if rec.Protocol, err = decodeInt16(r); err != nil {
		return rec, err
	}
	if rec.Bytes, err = decodeInt64(r); err != nil {
		return rec, err
	}
	if rec.Packets, err = decodeInt64(r); err != nil {
		return rec, err
	}
	if rec.StartTS, err = decodeInt64(r); err != nil {
		return rec, err
	}
	if rec.EndTS, err = decodeInt64(r); err != nil {
		return rec, err
	}
	if rec.SrcASN, err = decodeInt32(r); err != nil {
		return rec, err
	}
	if rec.DstASN, err = decodeInt32(r); err != nil {
		return rec, err
	}
	return rec, nil
}

func readTag(r *bytes.Reader) (bool, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch tag {
	case tagNone:
		return false, nil
	case tagSome:
		return true, nil
	default:
		return false, fmt.Errorf("invalid presence tag %d", tag)
	}
}

func decodeString(r *bytes.Reader) (*string, error) {
	some, err := readTag(r)
	if err != nil || !some {
		return nil, err
	}
	var lenBuf [2]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	data := make([]byte, n)
	if _, err := readFull(r, data); err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func decodeInt16(r *bytes.Reader) (*int16, error) {
	some, err := readTag(r)
	if err != nil || !some {
		return nil, err
	}
	var b [2]byte
	if _, err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	v := int16(binary.BigEndian.Uint16(b[:]))
	return &v, nil
}

func decodeInt32(r *bytes.Reader) (*int32, error) {
	some, err := readTag(r)
	if err != nil || !some {
		return nil, err
	}
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	v := int32(binary.BigEndian.Uint32(b[:]))
	return &v, nil
}

func decodeInt64(r *bytes.Reader) (*int64, error) {
	some, err := readTag(r)
	if err != nil || !some {
		return nil, err
	}
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	v := int64(binary.BigEndian.Uint64(b[:]))
	return &v, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, fmt.Errorf("short read: got %d want %d", n, len(buf))
	}
	return n, nil
}
