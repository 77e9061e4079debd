package brdf

import (
	"github.com/go-gl/mathgl/mgl64"
)

// SpectralSample is the result of Spectral.Sample.
type SpectralSample struct {
	// Value is f_r·cos(θo) per wavelength.
	Value []float64
	// Wo is the sampled outgoing direction.
	Wo mgl64.Vec3
	// PDF is the solid-angle density of Wo. Zero marks a failed sample.
	PDF float64
}

// Weight returns Value/PDF in a new slice, all zero for a failed sample.
func (s SpectralSample) Weight() []float64 {
	w := make([]float64, len(s.Value))
	if s.PDF > 0 {
		for i, v := range s.Value {
			w[i] = v / s.PDF
		}
	}
	return w
}

// Spectral is a measured BRDF reconstructed at the captured wavelengths.
type Spectral struct {
	m model
}

// Channels returns the number of wavelength samples.
func (b *Spectral) Channels() int {
	return len(b.m.t.channels)
}

// Wavelengths returns a copy of the wavelength samples in nanometers.
func (b *Spectral) Wavelengths() []float64 {
	return append([]float64(nil), b.m.t.wavelengths...)
}

// EvalInto writes f_r·cos(θo) for (wi, wo) into dst, reusing its storage
// when the capacity suffices, and returns the filled slice.
func (b *Spectral) EvalInto(dst []float64, wi, wo mgl64.Vec3) []float64 {
	dst = b.resize(dst)
	q, ok := b.m.prepare(wi, wo)
	if !ok {
		clear(dst)
		return dst
	}
	b.m.eval(dst, &q)
	return dst
}

// Eval is EvalInto with a freshly allocated result.
func (b *Spectral) Eval(wi, wo mgl64.Vec3) []float64 {
	return b.EvalInto(nil, wi, wo)
}

// PDF returns the solid-angle density with which Sample picks wo given wi.
func (b *Spectral) PDF(wi, wo mgl64.Vec3) float64 {
	q, ok := b.m.prepare(wi, wo)
	if !ok {
		return 0
	}
	return b.m.pdf(&q)
}

// SampleInto importance-samples an outgoing direction for wi and writes its
// value into dst, which becomes the returned sample's Value.
func (b *Spectral) SampleInto(dst []float64, u mgl64.Vec2, wi mgl64.Vec3) SpectralSample {
	dst = b.resize(dst)
	wo, pdf, ok := b.m.sample(dst, u, wi)
	if !ok {
		clear(dst)
		return SpectralSample{Value: dst}
	}
	return SpectralSample{Value: dst, Wo: wo, PDF: pdf}
}

// Sample is SampleInto with a freshly allocated value.
func (b *Spectral) Sample(u mgl64.Vec2, wi mgl64.Vec3) SpectralSample {
	return b.SampleInto(nil, u, wi)
}

// Description returns the free-form description stored in the file.
func (b *Spectral) Description() string {
	return b.m.t.description
}

// Isotropic reports whether the material is tabulated for one incident
// azimuth only.
func (b *Spectral) Isotropic() bool {
	return b.m.t.isotropic
}

func (b *Spectral) resize(dst []float64) []float64 {
	n := len(b.m.t.channels)
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}
