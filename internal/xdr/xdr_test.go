package xdr

import (
	"errors"
	"math"
	"testing"
)

func TestReaderIntegers(t *testing.T) {
	// Little-endian test data
	data := []byte{
		0x7f,       // uint8: 0x7f
		0x34, 0x12, // uint16: 0x1234
		0x78, 0x56, 0x34, 0x12, // uint32: 0x12345678
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01, // uint64: 0x0123456789ABCDEF
	}
	r := NewReader(data)

	u8, err := r.ReadUint8()
	if err != nil || u8 != 0x7f {
		t.Fatalf("ReadUint8() = 0x%02X, %v; want 0x7F", u8, err)
	}

	u16, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16() error = %v", err)
	}
	if u16 != 0x1234 {
		t.Errorf("ReadUint16() = 0x%04X, want 0x1234", u16)
	}

	u32, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32() error = %v", err)
	}
	if u32 != 0x12345678 {
		t.Errorf("ReadUint32() = 0x%08X, want 0x12345678", u32)
	}

	u64, err := r.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64() error = %v", err)
	}
	if u64 != 0x0123456789ABCDEF {
		t.Errorf("ReadUint64() = 0x%016X, want 0x0123456789ABCDEF", u64)
	}

	if r.Len() != 0 {
		t.Errorf("Len() = %d after reading everything, want 0", r.Len())
	}
}

func TestReaderErrors(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})

	if _, err := r.ReadUint32(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint32() on 3 bytes: error = %v, want ErrShortBuffer", err)
	}
	if r.Len() != 3 {
		t.Errorf("Len() after failed read = %d, want 3", r.Len())
	}
	if _, err := r.ReadUint64(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint64() error = %v, want ErrShortBuffer", err)
	}
	if _, err := r.ReadBytes(4); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadBytes(4) error = %v, want ErrShortBuffer", err)
	}
	if _, err := r.Slice(-2); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Slice(-2) error = %v, want ErrNegativeSize", err)
	}
	if _, err := r.Slice(3); err != nil {
		t.Errorf("Slice(3) error = %v", err)
	}
	if _, err := r.ReadUint8(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint8() at end: error = %v, want ErrShortBuffer", err)
	}
}

func TestReaderSliceAliases(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	r := NewReader(data)
	if _, err := r.ReadUint8(); err != nil {
		t.Fatal(err)
	}

	s, err := r.Slice(3)
	if err != nil {
		t.Fatalf("Slice(3) error = %v", err)
	}
	if len(s) != 3 || s[0] != 2 || s[2] != 4 {
		t.Errorf("Slice(3) = %v, want [2 3 4]", s)
	}
	if cap(s) != 3 {
		t.Errorf("cap(Slice(3)) = %d, want 3", cap(s))
	}

	data[1] = 42
	if s[0] != 42 {
		t.Error("Slice should alias the reader's data")
	}

	b, err := r.ReadBytes(1)
	if err != nil || b[0] != 5 {
		t.Fatalf("ReadBytes(1) = %v, %v; want [5]", b, err)
	}
	data[4] = 0
	if b[0] != 5 {
		t.Error("ReadBytes should copy")
	}
}

func TestBufferWriterRoundTrip(t *testing.T) {
	w := NewBufferWriter(0)
	w.WriteUint8(0xAB)
	w.WriteUint16(0x1234)
	w.WriteUint32(0x12345678)
	w.WriteUint64(0x0123456789ABCDEF)
	w.WriteBytes([]byte("tensor"))

	r := NewReader(w.Bytes())
	u8, _ := r.ReadUint8()
	u16, _ := r.ReadUint16()
	u32, _ := r.ReadUint32()
	u64, _ := r.ReadUint64()
	s, _ := r.ReadBytes(6)

	if u8 != 0xAB || u16 != 0x1234 || u32 != 0x12345678 || u64 != 0x0123456789ABCDEF {
		t.Errorf("round trip mismatch: %x %x %x %x", u8, u16, u32, u64)
	}
	if string(s) != "tensor" {
		t.Errorf("ReadBytes = %q, want %q", s, "tensor")
	}
}

func TestBufferWriterAlignAndPatch(t *testing.T) {
	w := NewBufferWriter(16)
	w.WriteUint8(1)
	w.Align(8)
	if w.Len() != 8 {
		t.Fatalf("Len() after Align(8) = %d, want 8", w.Len())
	}
	w.Align(8)
	if w.Len() != 8 {
		t.Errorf("Align on an aligned buffer changed Len() to %d", w.Len())
	}

	w.WriteUint64(0)
	if err := w.PutUint64At(8, 0xCAFEBABE); err != nil {
		t.Fatalf("PutUint64At error = %v", err)
	}
	if got := ByteOrder.Uint64(w.Bytes()[8:]); got != 0xCAFEBABE {
		t.Errorf("patched value = 0x%X, want 0xCAFEBABE", got)
	}
	if err := w.PutUint64At(12, 1); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("PutUint64At past the end: error = %v, want ErrShortBuffer", err)
	}
}

func TestFloatCodec(t *testing.T) {
	src := []float32{0, 1.5, -2.25, float32(math.Inf(1)), 3.14}
	w := NewBufferWriter(0)
	w.EncodeFloat32s(src)

	dst := make([]float32, len(src))
	if err := DecodeFloat32s(dst, w.Bytes()); err != nil {
		t.Fatalf("DecodeFloat32s error = %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], src[i])
		}
	}

	if err := DecodeFloat32s(make([]float32, 2), []byte{1, 2, 3}); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("DecodeFloat32s short input: error = %v, want ErrShortBuffer", err)
	}

	buf := make([]byte, 8)
	ByteOrder.PutUint64(buf, math.Float64bits(2.71828))
	d := make([]float64, 1)
	if err := DecodeFloat64s(d, buf); err != nil || d[0] != 2.71828 {
		t.Errorf("DecodeFloat64s = %v, %v; want 2.71828", d[0], err)
	}
}
