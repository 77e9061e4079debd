package tensor

import (
	"encoding/binary"
	"testing"
)

// FuzzParse checks that arbitrary input never panics and that every
// failure is one of the typed errors.
func FuzzParse(f *testing.F) {
	valid, err := Encode(sampleFields(), nil)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte(Magic))
	f.Add([]byte{})
	f.Add([]byte{0x28, 0xB5, 0x2F, 0xFD, 0x00})
	f.Add([]byte{0x1F, 0x8B, 0x08, 0x00})
	f.Add([]byte{0x78, 0x9C, 0x03, 0x00})
	addMaliciousSeeds(f, valid)

	f.Fuzz(func(t *testing.T, data []byte) {
		file, err := Parse(data)
		if err != nil {
			if !IsFormatError(err) && !IsCorrupt(err) {
				t.Fatalf("untyped error %T: %v", err, err)
			}
			return
		}
		for _, field := range file.Fields() {
			if len(field.Data) != field.Len()*field.DType.Size() {
				t.Fatalf("field %q: payload %d bytes for shape %v", field.Name, len(field.Data), field.Shape)
			}
			_ = field.Float64s()
		}
	})
}

func addMaliciousSeeds(f *testing.F, valid []byte) {
	clone := func() []byte { return append([]byte(nil), valid...) }

	huge := clone()
	binary.LittleEndian.PutUint32(huge[14:], 0xFFFFFFFF)
	f.Add(huge)

	longName := clone()
	binary.LittleEndian.PutUint16(longName[18:], 0xFFFF)
	f.Add(longName)

	for _, cut := range []int{14, 18, 25, 40, len(valid) - 1} {
		if cut < len(valid) {
			f.Add(clone()[:cut])
		}
	}
}
