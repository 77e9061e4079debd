package brdf

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mrjoshuak/go-brdf/tensor"
)

// goldenColor is the RGB scale of the golden fixture; reflectance grows
// linearly with the sample-space x coordinate: c·(1+x).
var goldenColor = [3]float64{0.2, 0.4, 0.6}

// goldenFields describes a table whose densities are constant, so sampling
// is the identity map and reference values can be computed by hand.
func goldenFields(jacobian byte) []*tensor.Field {
	const n = 3
	thetaI := []float64{0, math.Pi / 2}
	grid := func(fn func(x, y float64) float64) []float32 {
		out := make([]float32, 0, n*n)
		for iy := 0; iy < n; iy++ {
			for ix := 0; ix < n; ix++ {
				out = append(out, float32(fn(float64(ix)/(n-1), float64(iy)/(n-1))))
			}
		}
		return out
	}
	constant := func(v float64) func(x, y float64) float64 {
		return func(float64, float64) float64 { return v }
	}

	var vndf, rgb []float32
	for range thetaI {
		vndf = append(vndf, grid(constant(1))...)
		for _, c := range goldenColor {
			rgb = append(rgb, grid(func(x, _ float64) float64 { return c * (1 + x) })...)
		}
	}
	return []*tensor.Field{
		tensor.NewTextField("description", "golden fixture"),
		tensor.NewUint8Field("jacobian", []int{1}, []byte{jacobian}),
		tensor.NewFloat32Field("ndf", []int{n, n}, grid(constant(1.5))),
		tensor.NewFloat32Field("sigma", []int{n, n}, grid(constant(0.75))),
		tensor.NewFloat32Field("vndf", []int{1, 2, n, n}, vndf),
		tensor.NewFloat32Field("luminance", []int{1, 2, n, n}, vndf),
		tensor.NewFloat32Field("rgb", []int{1, 2, 3, n, n}, rgb),
		tensor.NewFloat64Field("theta_i", []int{2}, thetaI),
		tensor.NewFloat32Field("phi_i", []int{1}, []float32{0}),
	}
}

// fixture parameterizes the statistical test table.
type fixture struct {
	phiI        []float64
	thetaI      []float64
	wavelengths []float64
	// rgbOffset is added to the red channel, negative values force
	// out-of-gamut reconstructions.
	rgbOffset float64
	f16       bool
}

const fixtureRes = 16

func isotropicFixture() fixture {
	return fixture{
		phiI:        []float64{0},
		thetaI:      []float64{0, 0.4, 0.8, 1.2, 1.5},
		wavelengths: []float64{400, 500, 600, 700},
	}
}

// halfTurnFixture tabulates half of the azimuth circle.
func halfTurnFixture() fixture {
	fx := isotropicFixture()
	fx.phiI = []float64{-math.Pi, -math.Pi / 2, 0}
	return fx
}

// anisotropicFixture covers one quadrant, so the table has 4-fold symmetry.
func anisotropicFixture() fixture {
	f := isotropicFixture()
	f.phiI = []float64{-math.Pi, -5 * math.Pi / 6, -2 * math.Pi / 3, -math.Pi / 2}
	return f
}

// lobe is the half-vector density of incident slice (i, j): a peak at
// moderate elevations whose width depends on theta_i and whose azimuthal
// modulation depends on phi_i.
func lobe(i, j int, x, y float64) float64 {
	return x * x * x * math.Exp(-(16+2*float64(j))*x*x) * (1.2 + 0.5*math.Cos(2*math.Pi*y+0.3*float64(i)))
}

func (fx fixture) fields() []*tensor.Field {
	const n = fixtureRes
	nPhi, nTheta, nLambda := len(fx.phiI), len(fx.thetaI), len(fx.wavelengths)
	coord := func(k int) float64 { return float64(k) / (n - 1) }
	each := func(out []float32, fn func(x, y float64) float64) []float32 {
		for iy := 0; iy < n; iy++ {
			for ix := 0; ix < n; ix++ {
				out = append(out, float32(fn(coord(ix), coord(iy))))
			}
		}
		return out
	}

	ndf := each(nil, func(x, y float64) float64 { return 100 * lobe(0, 0, x, y) })
	sigma := each(nil, func(x, _ float64) float64 { return 0.8 + 0.2*x })

	var vndf, lum, rgb, spectra []float32
	for i := 0; i < nPhi; i++ {
		for j := 0; j < nTheta; j++ {
			vndf = each(vndf, func(x, y float64) float64 { return lobe(i, j, x, y) })
			lum = each(lum, func(x, y float64) float64 { return 1 + 0.3*x + 0.2*math.Cos(2*math.Pi*y) })
			for k := 0; k < 3; k++ {
				rgb = each(rgb, func(x, y float64) float64 {
					v := (0.2 + 0.1*float64(k)) * (1 + 0.3*x) * (1 + 0.1*math.Cos(2*math.Pi*y))
					if k == 0 {
						v += fx.rgbOffset
					}
					return v
				})
			}
			for _, l := range fx.wavelengths {
				spectra = each(spectra, func(x, y float64) float64 {
					return (0.3 + 0.4*(l-400)/300) * (1 + 0.3*x) * (1 + 0.1*math.Cos(2*math.Pi*y))
				})
			}
		}
	}

	valid := make([]byte, (nPhi*nTheta*n*n+7)/8)
	for i := range valid {
		valid[i] = 0xFF
	}

	grid := tensor.NewFloat32Field
	if fx.f16 {
		grid = tensor.NewFloat16Field
	}
	return []*tensor.Field{
		tensor.NewTextField("description", "synthetic lobe"),
		tensor.NewUint8Field("jacobian", []int{1}, []byte{1}),
		grid("ndf", []int{n, n}, ndf),
		grid("sigma", []int{n, n}, sigma),
		grid("vndf", []int{nPhi, nTheta, n, n}, vndf),
		grid("luminance", []int{nPhi, nTheta, n, n}, lum),
		grid("rgb", []int{nPhi, nTheta, 3, n, n}, rgb),
		grid("spectra", []int{nPhi, nTheta, nLambda, n, n}, spectra),
		tensor.NewFloat32Field("wavelengths", []int{nLambda}, toFloat32(fx.wavelengths)),
		tensor.NewFloat32Field("theta_i", []int{nTheta}, toFloat32(fx.thetaI)),
		tensor.NewFloat32Field("phi_i", []int{nPhi}, toFloat32(fx.phiI)),
		tensor.NewUint8Field("valid", []int{len(valid)}, valid),
	}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// writeFixture stores fields in a temporary file and returns its path.
func writeFixture(t testing.TB, fields []*tensor.Field, opts *tensor.WriteOptions) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.bsdf")
	if err := tensor.WriteFile(path, fields, opts); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func loadRGB(t testing.TB, fields []*tensor.Field, opts *Options) *RGB {
	t.Helper()
	b, err := LoadRGB(writeFixture(t, fields, nil), opts)
	if err != nil {
		t.Fatalf("LoadRGB: %v", err)
	}
	return b
}

func loadSpectral(t testing.TB, fields []*tensor.Field, opts *Options) *Spectral {
	t.Helper()
	b, err := LoadSpectral(writeFixture(t, fields, nil), opts)
	if err != nil {
		t.Fatalf("LoadSpectral: %v", err)
	}
	return b
}

// replaceField returns fields with the named field replaced by f, or
// removed when f is nil.
func replaceField(fields []*tensor.Field, name string, f *tensor.Field) []*tensor.Field {
	out := make([]*tensor.Field, 0, len(fields))
	for _, field := range fields {
		if field.Name != name {
			out = append(out, field)
		} else if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// hemisphereIntegral integrates fn over the upper hemisphere with the
// midpoint rule in (theta, phi).
func hemisphereIntegral(nTheta, nPhi int, fn func(wo mgl64.Vec3) float64) float64 {
	dTheta := math.Pi / 2 / float64(nTheta)
	dPhi := 2 * math.Pi / float64(nPhi)
	sum := 0.0
	for i := 0; i < nTheta; i++ {
		theta := (float64(i) + 0.5) * dTheta
		st := math.Sin(theta)
		for j := 0; j < nPhi; j++ {
			phi := -math.Pi + (float64(j)+0.5)*dPhi
			sum += fn(sphericalDir(theta, phi)) * st
		}
	}
	return sum * dTheta * dPhi
}
