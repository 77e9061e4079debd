package tensor

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mrjoshuak/go-brdf/half"
	"github.com/mrjoshuak/go-brdf/internal/xdr"
)

// WriteOptions controls how Write lays out a tensor file.
type WriteOptions struct {
	// Align is the payload alignment in bytes. Values below 1 mean 1.
	Align int
	// Compression wraps the finished container in a compressed stream.
	Compression Compression
}

// DefaultWriteOptions returns 8 byte alignment without compression.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Align: 8}
}

// NewFloat32Field returns a float32 field with the given shape.
func NewFloat32Field(name string, shape []int, values []float32) *Field {
	w := xdr.NewBufferWriter(4 * len(values))
	w.EncodeFloat32s(values)
	return &Field{Name: name, DType: Float32, Shape: shape, Data: w.Bytes()}
}

// NewFloat64Field returns a float64 field with the given shape.
func NewFloat64Field(name string, shape []int, values []float64) *Field {
	w := xdr.NewBufferWriter(8 * len(values))
	for _, v := range values {
		w.WriteUint64(math.Float64bits(v))
	}
	return &Field{Name: name, DType: Float64, Shape: shape, Data: w.Bytes()}
}

// NewFloat16Field returns a float16 field, rounding values to half precision.
func NewFloat16Field(name string, shape []int, values []float32) *Field {
	return &Field{Name: name, DType: Float16, Shape: shape, Data: half.EncodeBytes(make([]byte, 0, 2*len(values)), values)}
}

// NewUint8Field returns a uint8 field with the given shape.
func NewUint8Field(name string, shape []int, values []byte) *Field {
	return &Field{Name: name, DType: Uint8, Shape: shape, Data: values}
}

// NewTextField returns a one-dimensional uint8 field holding s.
func NewTextField(name, s string) *Field {
	return NewUint8Field(name, []int{len(s)}, []byte(s))
}

// Encode serializes fields into a tensor container in memory.
func Encode(fields []*Field, opts *WriteOptions) ([]byte, error) {
	if opts == nil {
		o := DefaultWriteOptions()
		opts = &o
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == nil {
			return nil, errors.New("tensor: nil field")
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("tensor: duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if len(f.Name) > math.MaxUint16 || len(f.Shape) > math.MaxUint16 {
			return nil, fmt.Errorf("tensor: field %q: name or rank too large", f.Name)
		}
		if err := f.Check(); err != nil {
			return nil, err
		}
	}

	w := xdr.NewBufferWriter(1024)
	w.WriteBytes([]byte(Magic))
	w.WriteUint8(VersionMajor)
	w.WriteUint8(VersionMinor)
	w.WriteUint32(uint32(len(fields)))

	offsetPos := make([]int, len(fields))
	for i, f := range fields {
		w.WriteUint16(uint16(len(f.Name)))
		w.WriteBytes([]byte(f.Name))
		w.WriteUint16(uint16(len(f.Shape)))
		w.WriteUint8(uint8(f.DType))
		offsetPos[i] = w.Len()
		w.WriteUint64(0)
		for _, s := range f.Shape {
			w.WriteUint64(uint64(s))
		}
	}

	for i, f := range fields {
		w.Align(opts.Align)
		if err := w.PutUint64At(offsetPos[i], uint64(w.Len())); err != nil {
			return nil, err
		}
		w.WriteBytes(f.Data)
	}
	return w.Bytes(), nil
}

// Write serializes fields to w, applying opts.Compression if set.
func Write(w io.Writer, fields []*Field, opts *WriteOptions) error {
	data, err := Encode(fields, opts)
	if err != nil {
		return err
	}
	if opts == nil || opts.Compression == NoCompression {
		_, err = w.Write(data)
		return err
	}
	zw, err := compressor(w, opts.Compression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteFile writes fields to a new file at path.
func WriteFile(path string, fields []*Field, opts *WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Op: "create", Err: err}
	}
	if err := Write(f, fields, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Op: "close", Err: err}
	}
	return nil
}
