// Package viz renders the tabulated densities of a measured BRDF file as
// image grids for inspection.
//
// A field shaped [phi_i, theta_i, ny, nx] or [phi_i, theta_i, 3, ny, nx] is
// drawn as one cell per incident direction: theta_i grows to the right and
// phi_i grows downwards. Each cell shows its ny by nx table with row 0 at
// the top, linearly scaled, clipped to [0, 1] and sRGB encoded.
package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/mrjoshuak/go-brdf/internal/parallel"
	"github.com/mrjoshuak/go-brdf/tensor"
)

var (
	// ErrShape is returned for fields that are not a grid of 2D tables.
	ErrShape = errors.New("viz: unsupported field shape")
	// ErrValidMask is returned when the validity mask is too short.
	ErrValidMask = errors.New("viz: validity mask does not cover the field")
)

// Invalid is the color of table entries flagged invalid by the mask.
var Invalid = color.NRGBA{R: 255, A: 255}

// Options controls rendering.
type Options struct {
	// CellSize is the edge length of one cell in pixels. Zero draws every
	// table entry as one pixel.
	CellSize int

	// Gap is the number of background pixels between cells.
	Gap int

	// NormalizeEach scales every cell by its own maximum instead of the
	// maximum of the whole field.
	NormalizeEach bool

	// Exposure multiplies values after normalization.
	Exposure float64

	// Valid is a bit-packed mask, most significant bit first, with one bit
	// per entry of a [phi_i, theta_i, ny, nx] table. Entries whose bit is
	// clear are painted Invalid. It applies to RGB fields only.
	Valid []byte

	// Background fills the gaps.
	Background color.Color
}

// DefaultOptions returns per-cell normalization with 64 pixel cells.
func DefaultOptions() Options {
	return Options{
		CellSize:      64,
		Gap:           2,
		NormalizeEach: true,
		Exposure:      1,
		Background:    color.White,
	}
}

// layout is the shape of a renderable field.
type layout struct {
	nPhi, nTheta int
	channels     int
	ny, nx       int
}

func (l layout) cells() int     { return l.nPhi * l.nTheta }
func (l layout) cellSize() int  { return l.channels * l.ny * l.nx }
func (l layout) tableSize() int { return l.ny * l.nx }

func shapeOf(f *tensor.Field) (layout, error) {
	s := f.Shape
	var l layout
	switch len(s) {
	case 4:
		l = layout{nPhi: s[0], nTheta: s[1], channels: 1, ny: s[2], nx: s[3]}
	case 5:
		l = layout{nPhi: s[0], nTheta: s[1], channels: s[2], ny: s[3], nx: s[4]}
		if l.channels != 1 && l.channels != 3 {
			return l, fmt.Errorf("%w: %q has %d channels, want 1 or 3", ErrShape, f.Name, l.channels)
		}
	default:
		return l, fmt.Errorf("%w: %q has rank %d, want 4 or 5", ErrShape, f.Name, len(s))
	}
	if l.cells() == 0 || l.tableSize() == 0 {
		return l, fmt.Errorf("%w: %q is empty", ErrShape, f.Name)
	}
	return l, nil
}

// Grid renders f as a grid of tonemapped cells.
func Grid(f *tensor.Field, opts *Options) (*image.NRGBA, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.Background == nil {
		o.Background = color.White
	}
	l, err := shapeOf(f)
	if err != nil {
		return nil, err
	}
	if err := f.Check(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShape, err)
	}
	if !f.DType.IsFloat() {
		return nil, fmt.Errorf("%w: %q has element type %s", ErrShape, f.Name, f.DType)
	}
	if o.Valid != nil && len(o.Valid)*8 < l.cells()*l.tableSize() {
		return nil, ErrValidMask
	}

	data := f.Float32s()
	globalMax := float32(0)
	if !o.NormalizeEach {
		globalMax = maxOf(data)
	}

	cw, ch := o.CellSize, o.CellSize
	if cw <= 0 {
		cw, ch = l.nx, l.ny
	}
	width := l.nTheta*cw + (l.nTheta-1)*o.Gap
	height := l.nPhi*ch + (l.nPhi-1)*o.Gap
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(o.Background), image.Point{}, draw.Src)

	parallel.For(parallel.DefaultConfig(), l.cells(), func(c int) {
		i, j := c/l.nTheta, c%l.nTheta
		values := data[c*l.cellSize() : (c+1)*l.cellSize()]
		peak := globalMax
		if o.NormalizeEach {
			peak = maxOf(values)
		}
		var mask []byte
		if l.channels == 3 {
			mask = o.Valid
		}
		cell := tonemap(values, l, float32(o.Exposure)/max(1e-10, peak), mask, c*l.tableSize())

		x0, y0 := j*(cw+o.Gap), i*(ch+o.Gap)
		r := image.Rect(x0, y0, x0+cw, y0+ch)
		draw.NearestNeighbor.Scale(dst, r, cell, cell.Bounds(), draw.Src, nil)
	})
	return dst, nil
}

// tonemap converts one cell to an image. bit0 is the mask index of the
// cell's first entry.
func tonemap(values []float32, l layout, scale float32, mask []byte, bit0 int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, l.nx, l.ny))
	n := l.tableSize()
	for y := 0; y < l.ny; y++ {
		for x := 0; x < l.nx; x++ {
			k := y*l.nx + x
			off := img.PixOffset(x, y)
			if mask != nil && !bit(mask, bit0+k) {
				img.Pix[off+0] = Invalid.R
				img.Pix[off+1] = Invalid.G
				img.Pix[off+2] = Invalid.B
				img.Pix[off+3] = 255
				continue
			}
			for c := 0; c < 3; c++ {
				src := c
				if l.channels == 1 {
					src = 0
				}
				img.Pix[off+c] = SRGB8(float64(values[src*n+k] * scale))
			}
			img.Pix[off+3] = 255
		}
	}
	return img
}

// bit reads bit i of a most-significant-bit-first packed mask.
func bit(mask []byte, i int) bool {
	return mask[i>>3]&(0x80>>(i&7)) != 0
}

func maxOf(v []float32) float32 {
	m := float32(0)
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

// SRGB8 clips a linear value to [0, 1] and returns its 8-bit sRGB code.
func SRGB8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	if v < 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return uint8(v*255 + 0.5)
}
