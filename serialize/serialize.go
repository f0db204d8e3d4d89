// Package serialize implements the engine's wire-level primitives:
// fixed-width big-endian reads and writes with explicit bounds
// checking, in the spirit of the manual offset bookkeeping the teacher
// repo uses for its own on-disk records (consensus/pob's
// encodeBehaviorData/decodeBehaviorData). There is no framing here —
// no length prefixes, no self-description — callers compose framing
// the way layer.go and operator.go do.
package serialize

import (
	"encoding/binary"
	"fmt"

	"github.com/opnetlab/opnet/common"
)

// Reader walks a byte slice with a cursor, failing with ErrTruncated
// when a read would run past the end of the slice.
type Reader struct {
	buf    []byte
	cursor int
}

// NewReader wraps buf for sequential reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.cursor
}

// Cursor returns the current read offset.
func (r *Reader) Cursor() int { return r.cursor }

// AtEnd reports whether every byte has been consumed.
func (r *Reader) AtEnd() bool { return r.cursor >= len(r.buf) }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes, have %d", common.ErrTruncated, n, r.Remaining())
	}
	return nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.cursor]
	r.cursor++
	return v, nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.cursor:])
	r.cursor += 2
	return v, nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.cursor:])
	r.cursor += 4
	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.cursor:])
	r.cursor += 8
	return v, nil
}

// ReadInt32 reads a two's-complement big-endian i32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadBytes reads exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.cursor : r.cursor+n]
	r.cursor += n
	return v, nil
}

// Writer appends fixed-width big-endian primitives to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a big-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint32 appends a big-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint64 appends a big-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32 appends a two's-complement big-endian i32.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}
