package tensor

import (
	"errors"
	"math"
	"strconv"

	"github.com/mrjoshuak/go-brdf/half"
	"github.com/mrjoshuak/go-brdf/internal/xdr"
)

// Minimum encoded size of one field table entry: name length, ndim, dtype
// and offset.
const minFieldEntry = 2 + 2 + 1 + 8

// Parse decodes a tensor file held in memory. Payloads of the returned File
// alias data unless the input was compressed.
func Parse(data []byte) (*File, error) {
	data, err := decompress(data, DetectCompression(data))
	if err != nil {
		return nil, err
	}

	r := xdr.NewReader(data)
	tag, err := r.Slice(len(Magic))
	if err != nil || string(tag) != Magic {
		return nil, &FormatError{Reason: "header not recognized"}
	}
	major, err1 := r.ReadUint8()
	minor, err2 := r.ReadUint8()
	if err1 != nil || err2 != nil {
		return nil, &FormatError{Reason: "truncated version"}
	}
	if major != VersionMajor || minor != VersionMinor {
		return nil, &FormatError{Reason: "unsupported version " + strconv.Itoa(int(major)) + "." + strconv.Itoa(int(minor))}
	}

	count, err := r.ReadUint32()
	if err != nil {
		return nil, &CorruptDataError{Reason: "truncated field count", Err: err}
	}
	if uint64(count)*minFieldEntry > uint64(r.Len()) {
		return nil, Corrupt("", "field count %d exceeds file size", count)
	}

	file := &File{
		fields: make([]*Field, 0, count),
		byName: make(map[string]*Field, count),
		size:   int64(len(data)),
	}
	for i := uint32(0); i < count; i++ {
		field, err := parseField(r, data)
		if err != nil {
			return nil, err
		}
		if _, dup := file.byName[field.Name]; dup {
			return nil, Corrupt(field.Name, "duplicate field")
		}
		file.fields = append(file.fields, field)
		file.byName[field.Name] = field
	}

	for _, field := range file.fields {
		if err := checkFinite(field); err != nil {
			return nil, err
		}
	}
	return file, nil
}

func parseField(r *xdr.Reader, data []byte) (*Field, error) {
	nameLen, err := r.ReadUint16()
	if err != nil {
		return nil, truncated("", err)
	}
	name, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return nil, truncated("", err)
	}
	f := &Field{Name: string(name)}

	ndim, err := r.ReadUint16()
	if err != nil {
		return nil, truncated(f.Name, err)
	}
	dtype, err := r.ReadUint8()
	if err != nil {
		return nil, truncated(f.Name, err)
	}
	f.DType = DType(dtype)
	if !f.DType.Valid() {
		return nil, &FormatError{Reason: "field \"" + f.Name + "\" has unknown dtype " + strconv.Itoa(int(dtype))}
	}
	offset, err := r.ReadUint64()
	if err != nil {
		return nil, truncated(f.Name, err)
	}
	if int(ndim)*8 > r.Len() {
		return nil, truncated(f.Name, xdr.ErrShortBuffer)
	}

	limit := uint64(len(data))
	elems := uint64(1)
	f.Shape = make([]int, ndim)
	for d := range f.Shape {
		n, _ := r.ReadUint64()
		if n > limit || (n != 0 && elems > limit/n) {
			return nil, Corrupt(f.Name, "shape overflows file size")
		}
		elems *= n
		f.Shape[d] = int(n)
	}

	size := elems * uint64(f.DType.Size())
	if offset > limit || size > limit-offset {
		return nil, Corrupt(f.Name, "payload [%d, +%d) outside file of %d bytes", offset, size, limit)
	}
	f.Data = data[offset : offset+size : offset+size]
	return f, nil
}

func truncated(field string, err error) error {
	return &CorruptDataError{Field: field, Reason: "truncated field table", Err: err}
}

// checkFinite rejects NaN and Inf in floating-point payloads.
func checkFinite(f *Field) error {
	bo := xdr.ByteOrder
	n := f.Len()
	switch f.DType {
	case Float16:
		for i := 0; i < n; i++ {
			if !half.FromBits(bo.Uint16(f.Data[2*i:])).IsFinite() {
				return nonFinite(f, i)
			}
		}
	case Float32:
		for i := 0; i < n; i++ {
			// All-ones exponent marks Inf and NaN.
			if bo.Uint32(f.Data[4*i:])&0x7F800000 == 0x7F800000 {
				return nonFinite(f, i)
			}
		}
	case Float64:
		for i := 0; i < n; i++ {
			v := math.Float64frombits(bo.Uint64(f.Data[8*i:]))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nonFinite(f, i)
			}
		}
	}
	return nil
}

func nonFinite(f *Field, i int) error {
	return Corrupt(f.Name, "non-finite value at element %d", i)
}

// IsFormatError reports whether err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsCorrupt reports whether err is or wraps a *CorruptDataError.
func IsCorrupt(err error) bool {
	var ce *CorruptDataError
	return errors.As(err, &ce)
}
