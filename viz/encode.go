package viz

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"github.com/mrjoshuak/go-brdf/tensor"
)

// Format is an output image encoding.
type Format int

const (
	PNG Format = iota
	WebP
	TGA
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case WebP:
		return "webp"
	case TGA:
		return "tga"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ErrUnknownFormat is returned for file extensions without an encoder.
var ErrUnknownFormat = errors.New("viz: unknown image format")

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".webp":
		return WebP, nil
	case ".tga":
		return TGA, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	}
	return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
}

// WriteFile encodes img to path in the format named by its extension.
func WriteFile(path string, img image.Image) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(out, img, format)
}

// PlotFile renders the named field of f and writes it to path. The file's
// "valid" field, when present, is used as the mask unless opts has one.
func PlotFile(path string, f *tensor.File, field string, opts *Options) error {
	src := f.Field(field)
	if src == nil {
		return tensor.Missing(field)
	}
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.Valid == nil {
		if v := f.Field("valid"); v != nil && v.DType == tensor.Uint8 {
			o.Valid = v.Data
		}
	}
	img, err := Grid(src, &o)
	if err != nil {
		return err
	}
	return WriteFile(path, img)
}
