// Package tensor reads and writes the tensor_file container used to store
// measured BRDF tables.
//
// A tensor file is a little-endian binary made of a 12 byte tag, a two byte
// version (1.0), a field count and a field table. Each field names a
// contiguous n-dimensional array (u8 through f64, including float16) stored
// at an absolute offset later in the file.
//
// Files may be stored compressed with zstd, gzip or zlib; compression is
// detected from the leading magic bytes and undone before the tag check.
package tensor

import (
	"fmt"
	"io"
	"math"

	"github.com/mrjoshuak/go-brdf/half"
	"github.com/mrjoshuak/go-brdf/internal/xdr"
)

// Magic is the tag every tensor file starts with.
const Magic = "tensor_file\x00"

// Supported container version.
const (
	VersionMajor = 1
	VersionMinor = 0
)

// DType identifies the element type of a field.
type DType uint8

// Element types, numbered as in the file format.
const (
	Uint8   DType = 1
	Int8    DType = 2
	Uint16  DType = 3
	Int16   DType = 4
	Uint32  DType = 5
	Int32   DType = 6
	Uint64  DType = 7
	Int64   DType = 8
	Float16 DType = 9
	Float32 DType = 10
	Float64 DType = 11
)

var dtypeNames = [...]string{
	Uint8:   "uint8",
	Int8:    "int8",
	Uint16:  "uint16",
	Int16:   "int16",
	Uint32:  "uint32",
	Int32:   "int32",
	Uint64:  "uint64",
	Int64:   "int64",
	Float16: "float16",
	Float32: "float32",
	Float64: "float64",
}

// Valid reports whether d is a known element type.
func (d DType) Valid() bool {
	return d >= Uint8 && d <= Float64
}

// Size returns the size of one element in bytes.
func (d DType) Size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Uint16, Int16, Float16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is a floating-point type.
func (d DType) IsFloat() bool {
	return d == Float16 || d == Float32 || d == Float64
}

func (d DType) String() string {
	if d.Valid() {
		return dtypeNames[d]
	}
	return fmt.Sprintf("DType(%d)", uint8(d))
}

// Field is one named array of a tensor file.
type Field struct {
	Name  string
	DType DType
	Shape []int

	// Data holds the raw little-endian payload. For files opened with
	// ReadFileMmap it aliases the mapping and is only valid until Close.
	Data []byte
}

// Len returns the number of elements in the field.
func (f *Field) Len() int {
	n := 1
	for _, s := range f.Shape {
		n *= s
	}
	return n
}

// Check reports whether f is a well-formed field: a known element type,
// non-negative dimensions and a payload of exactly Len elements. Fields
// returned by Parse always pass; hand-built fields should be checked before
// they are converted.
func (f *Field) Check() error {
	if !f.DType.Valid() {
		return &FormatError{Reason: fmt.Sprintf("field %q has unknown element type %d", f.Name, uint8(f.DType))}
	}
	for _, d := range f.Shape {
		if d < 0 {
			return Corrupt(f.Name, "negative dimension in shape %v", f.Shape)
		}
	}
	if want := f.Len() * f.DType.Size(); len(f.Data) != want {
		return Corrupt(f.Name, "payload is %d bytes, shape %v of %s needs %d", len(f.Data), f.Shape, f.DType, want)
	}
	return nil
}

// decodable is the number of leading elements the payload actually holds.
func (f *Field) decodable() int {
	size := f.DType.Size()
	if size == 0 {
		return 0
	}
	return min(max(f.Len(), 0), len(f.Data)/size)
}

// Float32s converts the payload to float32 regardless of its stored type.
// Elements missing from a short payload read as zero; use Check to reject
// such fields.
func (f *Field) Float32s() []float32 {
	out := make([]float32, max(f.Len(), 0))
	m := f.decodable()
	switch f.DType {
	case Float32:
		_ = xdr.DecodeFloat32s(out[:m], f.Data)
	case Float16:
		half.DecodeBytes(out[:m], f.Data)
	default:
		for i := range m {
			out[i] = float32(f.at(i))
		}
	}
	return out
}

// Float64s converts the payload to float64 regardless of its stored type.
func (f *Field) Float64s() []float64 {
	out := make([]float64, max(f.Len(), 0))
	m := f.decodable()
	if f.DType == Float64 {
		_ = xdr.DecodeFloat64s(out[:m], f.Data)
		return out
	}
	for i := range m {
		out[i] = f.at(i)
	}
	return out
}

// String returns the payload of a uint8 field as text.
func (f *Field) String() string {
	if f.DType != Uint8 && f.DType != Int8 {
		return ""
	}
	return string(f.Data)
}

// at decodes element i as float64.
func (f *Field) at(i int) float64 {
	b := f.Data
	bo := xdr.ByteOrder
	switch f.DType {
	case Uint8:
		return float64(b[i])
	case Int8:
		return float64(int8(b[i]))
	case Uint16:
		return float64(bo.Uint16(b[2*i:]))
	case Int16:
		return float64(int16(bo.Uint16(b[2*i:])))
	case Uint32:
		return float64(bo.Uint32(b[4*i:]))
	case Int32:
		return float64(int32(bo.Uint32(b[4*i:])))
	case Uint64:
		return float64(bo.Uint64(b[8*i:]))
	case Int64:
		return float64(int64(bo.Uint64(b[8*i:])))
	case Float16:
		return float64(half.FromBits(bo.Uint16(b[2*i:])).Float32())
	case Float32:
		return float64(math.Float32frombits(bo.Uint32(b[4*i:])))
	case Float64:
		return math.Float64frombits(bo.Uint64(b[8*i:]))
	}
	return 0
}

// File is a parsed tensor file.
type File struct {
	fields []*Field
	byName map[string]*Field
	size   int64

	closer io.Closer
}

// Fields returns the fields in file order.
func (f *File) Fields() []*Field {
	return f.fields
}

// Field returns the named field, or nil.
func (f *File) Field(name string) *Field {
	return f.byName[name]
}

// Has reports whether the file contains the named field.
func (f *File) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Size returns the size of the uncompressed container in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Description returns the free-form "description" text field, if present.
func (f *File) Description() string {
	if d := f.byName["description"]; d != nil {
		return d.String()
	}
	return ""
}

// Close releases the memory mapping backing a file opened with ReadFileMmap.
// It is a no-op for other files.
func (f *File) Close() error {
	if f.closer != nil {
		err := f.closer.Close()
		f.closer = nil
		return err
	}
	return nil
}
