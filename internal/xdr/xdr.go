// Package xdr provides little-endian binary encoding and decoding utilities
// for the tensor container used by measured BRDF tables.
//
// Every multi-byte value in a tensor file (header integers as well as the
// payload arrays) is stored in little-endian byte order. This package provides
// bounds-checked readers and a growing writer for those primitives.
package xdr

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrShortBuffer is returned when a read or write operation cannot complete
	// because there isn't enough space in the buffer.
	ErrShortBuffer = errors.New("xdr: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("xdr: negative size")
)

// ByteOrder is the byte order used by tensor files.
var ByteOrder = binary.LittleEndian

// Reader provides little-endian binary reading from a byte slice.
// It maintains a read position and provides bounds checking on all operations.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.Len() < 2 {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Len() < 4 {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads an unsigned 64-bit integer in little-endian order.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.Len() < 8 {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadBytes reads n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Slice(n)
	if err != nil {
		return nil, err
	}
	result := make([]byte, n)
	copy(result, b)
	return result, nil
}

// Slice returns the next n bytes without copying and advances past them.
// The returned slice aliases the reader's data.
func (r *Reader) Slice(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if n > r.Len() {
		return nil, ErrShortBuffer
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// BufferWriter provides a growing buffer for writing binary data.
type BufferWriter struct {
	buf []byte
}

// NewBufferWriter creates a BufferWriter with an initial capacity.
func NewBufferWriter(capacity int) *BufferWriter {
	return &BufferWriter{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *BufferWriter) Len() int {
	return len(w.buf)
}

// Bytes returns the written data as a byte slice.
// The returned slice is valid until the next write operation.
func (w *BufferWriter) Bytes() []byte {
	return w.buf
}

// WriteBytes writes a byte slice.
func (w *BufferWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *BufferWriter) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 writes an unsigned 16-bit integer in little-endian order.
func (w *BufferWriter) WriteUint16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// WriteUint32 writes an unsigned 32-bit integer in little-endian order.
func (w *BufferWriter) WriteUint32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WriteUint64 writes an unsigned 64-bit integer in little-endian order.
func (w *BufferWriter) WriteUint64(v uint64) {
	w.buf = append(w.buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// Align pads the buffer with zero bytes up to the next multiple of n.
func (w *BufferWriter) Align(n int) {
	if n <= 1 {
		return
	}
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

// PutUint64At overwrites 8 bytes at pos with v in little-endian order.
// It is used to patch offsets that are only known after the payloads are laid out.
func (w *BufferWriter) PutUint64At(pos int, v uint64) error {
	if pos < 0 || pos+8 > len(w.buf) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint64(w.buf[pos:], v)
	return nil
}

// DecodeFloat32s decodes len(dst) little-endian float32 values from src.
func DecodeFloat32s(dst []float32, src []byte) error {
	if len(src) < 4*len(dst) {
		return ErrShortBuffer
	}
	for i := range dst {
		dst[i] = math.Float32frombits(ByteOrder.Uint32(src[4*i:]))
	}
	return nil
}

// DecodeFloat64s decodes len(dst) little-endian float64 values from src.
func DecodeFloat64s(dst []float64, src []byte) error {
	if len(src) < 8*len(dst) {
		return ErrShortBuffer
	}
	for i := range dst {
		dst[i] = math.Float64frombits(ByteOrder.Uint64(src[8*i:]))
	}
	return nil
}

// EncodeFloat32s appends the little-endian encoding of src to the buffer.
func (w *BufferWriter) EncodeFloat32s(src []float32) {
	for _, v := range src {
		w.WriteUint32(math.Float32bits(v))
	}
}
