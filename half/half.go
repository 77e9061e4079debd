// Package half converts IEEE 754 binary16 values, the storage type of
// float16 tensor fields, to and from float32.
//
// A half has 1 sign bit, 5 exponent bits (bias 15) and 10 mantissa bits.
// Every half is exactly representable as a float32, so widening is exact;
// narrowing rounds to nearest even.
package half

import (
	"encoding/binary"
	"math"
	"sync"
)

// Half is an IEEE 754 binary16 number stored in its bit pattern.
type Half uint16

const (
	signBit      = 0x8000
	exponentMask = 0x7C00
	mantissaMask = 0x03FF
	quietBit     = 0x0200
)

// float32 bit patterns used by FromFloat32.
const (
	f32Inf       = 0x7F800000
	f32MinNormal = 0x38800000 // 2^-14, the smallest normal half
	f32Overflow  = 0x477FF000 // 65520, halfway between 65504 and 2^16
	rebias       = (127 - 15) << 23
)

// FromFloat32 narrows f to a Half, rounding to nearest even. Values whose
// magnitude rounds above 65504 become infinities; NaN stays NaN.
func FromFloat32(f float32) Half {
	b := math.Float32bits(f)
	sign := Half(b>>16) & signBit
	abs := b &^ (1 << 31)

	switch {
	case abs > f32Inf:
		return sign | exponentMask | quietBit | Half(abs>>13)&mantissaMask
	case abs >= f32Overflow:
		return sign | exponentMask
	case abs < f32MinNormal:
		// In units of the smallest subnormal the value is an integer
		// after rounding; 1024 carries into the smallest normal.
		n := math.RoundToEven(float64(math.Float32frombits(abs)) * 0x1p24)
		return sign | Half(n)
	}

	h := (abs - rebias) >> 13
	if rem := abs & 0x1FFF; rem > 0x1000 || rem == 0x1000 && h&1 == 1 {
		h++
	}
	return sign | Half(h)
}

// Float32 widens h exactly.
func (h Half) Float32() float32 {
	sign := uint32(h&signBit) << 16
	exp := uint32(h&exponentMask) >> 10
	frac := uint32(h & mantissaMask)

	switch exp {
	case 0:
		v := float32(frac) * 0x1p-24
		return math.Float32frombits(sign | math.Float32bits(v))
	case 0x1F:
		if frac != 0 {
			return math.Float32frombits(sign | f32Inf | 0x00400000 | frac<<13)
		}
		return math.Float32frombits(sign | f32Inf)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | frac<<13)
}

// IsNaN reports whether h is a NaN.
func (h Half) IsNaN() bool {
	return h&exponentMask == exponentMask && h&mantissaMask != 0
}

// IsInf reports whether h is an infinity of either sign.
func (h Half) IsInf() bool {
	return h&^signBit == exponentMask
}

// IsFinite reports whether h is neither an infinity nor a NaN.
func (h Half) IsFinite() bool {
	return h&exponentMask != exponentMask
}

// Bits returns the binary16 bit pattern of h.
func (h Half) Bits() uint16 {
	return uint16(h)
}

// FromBits returns the Half with the given bit pattern.
func FromBits(bits uint16) Half {
	return Half(bits)
}

// widen maps every bit pattern to its float32 value. Tables hold millions
// of halves, so bulk decoding indexes it instead of converting.
var widen = sync.OnceValue(func() *[1 << 16]float32 {
	t := new([1 << 16]float32)
	for i := range t {
		t[i] = Half(i).Float32()
	}
	return t
})

// DecodeBytes widens little-endian binary16 values from src into dst.
// It panics if src holds fewer than 2*len(dst) bytes.
func DecodeBytes(dst []float32, src []byte) {
	if len(src) < 2*len(dst) {
		panic("half: source slice too small")
	}
	t := widen()
	for i := range dst {
		dst[i] = t[binary.LittleEndian.Uint16(src[2*i:])]
	}
}

// EncodeBytes appends the little-endian binary16 encoding of src to dst.
func EncodeBytes(dst []byte, src []float32) []byte {
	for _, f := range src {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(FromFloat32(f)))
	}
	return dst
}
