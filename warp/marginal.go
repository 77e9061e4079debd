// Package warp implements a piecewise bilinear 2D distribution over the unit
// square, optionally conditioned on up to three parameters, with exact
// inversion sampling.
//
// The density of one slice is given by values on a regular nx by ny grid and
// reconstructed by bilinear interpolation. Sampling inverts a marginal CDF
// over rows and a conditional CDF within the chosen row; both are integrals of
// the bilinear density, so the pdf returned by Sample is the exact density of
// the produced points. Parameters select and blend slices multilinearly.
package warp

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mrjoshuak/go-brdf/internal/parallel"
)

// MaxParams is the largest number of conditioning parameters supported.
const MaxParams = 3

// Largest float64 below one.
const oneMinusEpsilon = 0x1.fffffffffffffp-1

var (
	// ErrGridSize is returned for grids smaller than 2x2.
	ErrGridSize = errors.New("warp: grid must be at least 2x2")
	// ErrDataSize is returned when the data length does not match the grid and parameter sizes.
	ErrDataSize = errors.New("warp: data size mismatch")
	// ErrParams is returned for too many, empty or non-increasing parameter axes.
	ErrParams = errors.New("warp: invalid parameter axis")
	// ErrNegative is returned when a density contains negative values.
	ErrNegative = errors.New("warp: negative density")
	// ErrZeroMass is returned when a density slice integrates to zero.
	ErrZeroMass = errors.New("warp: density slice has zero mass")
)

// Options controls how a Marginal2D is built.
type Options struct {
	// Normalize rescales every slice so its bilinear density integrates to
	// one. Without it Eval returns the interpolated raw values.
	Normalize bool
	// BuildCDF computes marginal and conditional CDFs so that Sample and
	// Invert can be used. It implies Normalize.
	BuildCDF bool
	// Parallel configures the per-slice build.
	Parallel parallel.Config
}

// Marginal2D is an immutable, optionally conditioned, bilinear 2D density.
// It is safe for concurrent use.
type Marginal2D struct {
	nx, ny  int
	slices  int
	nparams int
	params  [MaxParams][]float64
	strides [MaxParams]int

	data        []float64
	marginal    []float64
	conditional []float64

	// scale maps interpolated data to a density on the unit square.
	scale    float64
	patch    mgl64.Vec2
	invPatch mgl64.Vec2
}

// New builds a distribution from data laid out as
// [len(params[0])]...[len(params[k-1])][ny][nx], with x varying fastest.
// Each parameter axis must be strictly increasing.
func New(data []float32, nx, ny int, params [][]float64, opts Options) (*Marginal2D, error) {
	if nx < 2 || ny < 2 {
		return nil, ErrGridSize
	}
	if len(params) > MaxParams {
		return nil, fmt.Errorf("%w: %d parameters, at most %d", ErrParams, len(params), MaxParams)
	}
	if opts.BuildCDF {
		opts.Normalize = true
	}

	m := &Marginal2D{
		nx:       nx,
		ny:       ny,
		nparams:  len(params),
		patch:    mgl64.Vec2{1 / float64(nx-1), 1 / float64(ny-1)},
		invPatch: mgl64.Vec2{float64(nx - 1), float64(ny - 1)},
		scale:    1,
	}

	slices := 1
	for d := len(params) - 1; d >= 0; d-- {
		axis := params[d]
		if len(axis) == 0 {
			return nil, fmt.Errorf("%w: axis %d is empty", ErrParams, d)
		}
		for i := 1; i < len(axis); i++ {
			if !(axis[i] > axis[i-1]) {
				return nil, fmt.Errorf("%w: axis %d is not strictly increasing", ErrParams, d)
			}
		}
		m.params[d] = append([]float64(nil), axis...)
		if len(axis) > 1 {
			m.strides[d] = slices
		}
		slices *= len(axis)
	}
	m.slices = slices

	n := nx * ny
	if len(data) != slices*n {
		return nil, fmt.Errorf("%w: have %d values, want %d slices of %dx%d", ErrDataSize, len(data), slices, nx, ny)
	}

	m.data = make([]float64, len(data))
	if opts.BuildCDF {
		m.marginal = make([]float64, slices*ny)
		m.conditional = make([]float64, slices*n)
	}
	if opts.Normalize {
		m.scale = float64((nx - 1) * (ny - 1))
	}

	err := parallel.ForWithError(opts.Parallel, slices, func(s int) error {
		src := data[s*n : (s+1)*n]
		dst := m.data[s*n : (s+1)*n]
		for i, v := range src {
			dst[i] = float64(v)
		}
		if !opts.Normalize {
			return nil
		}
		for _, v := range dst {
			if v < 0 {
				return fmt.Errorf("warp: slice %d: %w", s, ErrNegative)
			}
		}
		var err error
		if opts.BuildCDF {
			err = m.buildCDF(s)
		} else {
			err = m.normalize(s)
		}
		if err != nil {
			return fmt.Errorf("warp: slice %d: %w", s, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// buildCDF integrates slice s with the trapezoid rule, then normalizes the
// CDFs and the data by the slice total.
func (m *Marginal2D) buildCDF(s int) error {
	nx, ny := m.nx, m.ny
	n := nx * ny
	data := m.data[s*n : (s+1)*n]
	cond := m.conditional[s*n : (s+1)*n]
	marg := m.marginal[s*ny : (s+1)*ny]

	for y := 0; y < ny; y++ {
		i := y * nx
		cond[i] = 0
		sum := 0.0
		for x := 0; x < nx-1; x, i = x+1, i+1 {
			sum += 0.5 * (data[i] + data[i+1])
			cond[i+1] = sum
		}
	}

	marg[0] = 0
	sum := 0.0
	for y := 0; y < ny-1; y++ {
		sum += 0.5 * (cond[(y+1)*nx-1] + cond[(y+2)*nx-1])
		marg[y+1] = sum
	}
	if !(sum > 0) {
		return ErrZeroMass
	}

	norm := 1 / sum
	for i := range cond {
		cond[i] *= norm
		data[i] *= norm
	}
	for i := range marg {
		marg[i] *= norm
	}
	marg[ny-1] = 1
	return nil
}

// normalize rescales slice s so that its bilinear density integrates to one
// without building CDFs.
func (m *Marginal2D) normalize(s int) error {
	nx, ny := m.nx, m.ny
	n := nx * ny
	data := m.data[s*n : (s+1)*n]

	sum := 0.0
	for y := 0; y < ny-1; y++ {
		i := y * nx
		for x := 0; x < nx-1; x, i = x+1, i+1 {
			sum += 0.25 * (data[i] + data[i+1] + data[i+nx] + data[i+nx+1])
		}
	}
	if !(sum > 0) {
		return ErrZeroMass
	}
	norm := 1 / sum
	for i := range data {
		data[i] *= norm
	}
	return nil
}

// Size returns the grid resolution.
func (m *Marginal2D) Size() (nx, ny int) {
	return m.nx, m.ny
}

// Slices returns the number of parameter slices.
func (m *Marginal2D) Slices() int {
	return m.slices
}

// HasCDF reports whether Sample and Invert are available.
func (m *Marginal2D) HasCDF() bool {
	return m.marginal != nil
}

// weights holds multilinear slice weights, two per parameter.
type weights [2 * MaxParams]float64

// locate finds the lower slice index and blend weights for param.
// Missing trailing parameters are treated as zero.
func (m *Marginal2D) locate(param []float64) (w weights, slice int) {
	for d := 0; d < m.nparams; d++ {
		axis := m.params[d]
		if len(axis) == 1 {
			w[2*d], w[2*d+1] = 1, 0
			continue
		}
		var p float64
		if d < len(param) {
			p = param[d]
		}
		idx := findInterval(len(axis), func(i int) bool { return axis[i] <= p })
		p0, p1 := axis[idx], axis[idx+1]
		t := clamp01((p - p0) / (p1 - p0))
		w[2*d], w[2*d+1] = 1-t, t
		slice += m.strides[d] * idx
	}
	return w, slice
}

// lookup blends data[i0] across the parameter slices selected by w.
// size is the distance between consecutive slices in data.
func (m *Marginal2D) lookup(data []float64, i0, size int, w *weights) float64 {
	if m.nparams == 0 {
		return data[i0]
	}
	sum := 0.0
	for corner := 0; corner < 1<<m.nparams; corner++ {
		weight, index := 1.0, i0
		for d := 0; d < m.nparams; d++ {
			if corner>>d&1 == 0 {
				weight *= w[2*d]
			} else {
				weight *= w[2*d+1]
				index += m.strides[d] * size
			}
		}
		if weight != 0 {
			sum += weight * data[index]
		}
	}
	return sum
}

// Eval returns the density at p for the given parameters, or the
// interpolated raw value when the distribution is not normalized.
// p is clamped to the unit square.
func (m *Marginal2D) Eval(p mgl64.Vec2, param ...float64) float64 {
	w, slice := m.locate(param)

	x, y := clamp01(p[0])*m.invPatch[0], clamp01(p[1])*m.invPatch[1]
	ix, iy := min(int(x), m.nx-2), min(int(y), m.ny-2)
	fx, fy := x-float64(ix), y-float64(iy)

	size := m.nx * m.ny
	index := ix + iy*m.nx + slice*size
	nx := m.nx

	v00 := m.lookup(m.data, index, size, &w)
	v10 := m.lookup(m.data, index+1, size, &w)
	v01 := m.lookup(m.data, index+nx, size, &w)
	v11 := m.lookup(m.data, index+nx+1, size, &w)

	return (((1-fx)*v00+fx*v10)*(1-fy) + ((1-fx)*v01+fx*v11)*fy) * m.scale
}

// Sample warps a uniform point u on the unit square to the distribution
// selected by param and returns the point with its density.
// It panics if the distribution was built without CDFs.
func (m *Marginal2D) Sample(u mgl64.Vec2, param ...float64) (mgl64.Vec2, float64) {
	if m.marginal == nil {
		panic("warp: Sample requires BuildCDF")
	}
	sx := clampOpen(u[0])
	sy := clampOpen(u[1])
	w, slice := m.locate(param)
	nx, ny := m.nx, m.ny

	// Row.
	marg := m.marginal
	moff := slice * ny
	row := findInterval(ny, func(i int) bool {
		return m.lookup(marg, moff+i, ny, &w) < sy
	})
	sy -= m.lookup(marg, moff+row, ny, &w)

	size := nx * ny
	off := row*nx + slice*size
	cond := m.conditional
	r0 := m.lookup(cond[nx-1:], off, size, &w)
	r1 := m.lookup(cond[2*nx-1:], off, size, &w)
	sy = invertLinear(r0, r1, sy)

	// Column.
	sx *= (1-sy)*r0 + sy*r1
	col := findInterval(nx, func(i int) bool {
		v0 := m.lookup(cond, off+i, size, &w)
		v1 := m.lookup(cond[nx:], off+i, size, &w)
		return (1-sy)*v0+sy*v1 < sx
	})
	{
		v0 := m.lookup(cond, off+col, size, &w)
		v1 := m.lookup(cond[nx:], off+col, size, &w)
		sx -= (1-sy)*v0 + sy*v1
	}
	off += col

	v00 := m.lookup(m.data, off, size, &w)
	v10 := m.lookup(m.data[1:], off, size, &w)
	v01 := m.lookup(m.data[nx:], off, size, &w)
	v11 := m.lookup(m.data[nx+1:], off, size, &w)
	c0 := (1-sy)*v00 + sy*v01
	c1 := (1-sy)*v10 + sy*v11
	sx = invertLinear(c0, c1, sx)

	p := mgl64.Vec2{
		(float64(col) + sx) * m.patch[0],
		(float64(row) + sy) * m.patch[1],
	}
	return p, ((1-sx)*c0 + sx*c1) * m.scale
}

// Invert is the inverse of Sample: it maps a point of the distribution back
// to the uniform point that Sample would warp onto it, and returns the
// density at p.
// It panics if the distribution was built without CDFs.
func (m *Marginal2D) Invert(p mgl64.Vec2, param ...float64) (mgl64.Vec2, float64) {
	if m.marginal == nil {
		panic("warp: Invert requires BuildCDF")
	}
	w, slice := m.locate(param)
	nx, ny := m.nx, m.ny

	x, y := clamp01(p[0])*m.invPatch[0], clamp01(p[1])*m.invPatch[1]
	ix, iy := min(int(x), nx-2), min(int(y), ny-2)
	sx, sy := x-float64(ix), y-float64(iy)

	size := nx * ny
	off := ix + iy*nx + slice*size

	v00 := m.lookup(m.data, off, size, &w)
	v10 := m.lookup(m.data[1:], off, size, &w)
	v01 := m.lookup(m.data[nx:], off, size, &w)
	v11 := m.lookup(m.data[nx+1:], off, size, &w)

	c0 := (1-sy)*v00 + sy*v01
	c1 := (1-sy)*v10 + sy*v11
	pdf := (1-sx)*c0 + sx*c1

	// X: mass of the partial cell plus the conditional CDF up to the cell,
	// relative to the row total.
	sx *= c0 + 0.5*sx*(c1-c0)

	cond := m.conditional
	v0 := m.lookup(cond, off, size, &w)
	v1 := m.lookup(cond[nx:], off, size, &w)
	r0 := m.lookup(cond[nx-1:], off-ix, size, &w)
	r1 := m.lookup(cond[2*nx-1:], off-ix, size, &w)

	sx += (1-sy)*v0 + sy*v1
	if total := (1-sy)*r0 + sy*r1; total > 0 {
		sx /= total
	} else {
		sx = 0
	}

	// Y: partial row mass plus the marginal CDF up to the row.
	sy *= r0 + 0.5*sy*(r1-r0)
	sy += m.lookup(m.marginal, iy+slice*ny, ny, &w)

	return mgl64.Vec2{sx, sy}, pdf * m.scale
}

// findInterval returns the largest index i in [0, size-2] such that
// pred(i) holds, assuming pred is true up to some point and false after it.
// pred(0) is never evaluated.
func findInterval(size int, pred func(i int) bool) int {
	first, n := 1, size-2
	for n > 0 {
		half := n >> 1
		middle := first + half
		if pred(middle) {
			first = middle + 1
			n -= half + 1
		} else {
			n = half
		}
	}
	return max(0, min(first-1, size-2))
}

// invertLinear solves the CDF of the linear density a(1-t) + b*t on [0, 1]
// for the t at which it reaches mass.
func invertLinear(a, b, mass float64) float64 {
	if a+b <= 0 {
		return 0
	}
	if abs(a-b) < 1e-4*(a+b) {
		return 2 * mass / (a + b)
	}
	return (a - safeSqrt(a*a-2*mass*(a-b))) / (a - b)
}

func safeSqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// clamp01 clamps v to [0, 1], mapping NaN to 0.
func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if !(v >= 0) {
		return 0
	}
	return v
}

// clampOpen clamps a sample away from the ends of [0, 1].
func clampOpen(v float64) float64 {
	if v > oneMinusEpsilon {
		return oneMinusEpsilon
	}
	if !(v >= 1-oneMinusEpsilon) {
		return 1 - oneMinusEpsilon
	}
	return v
}
