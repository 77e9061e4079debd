package brdf

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Color is a linear RGB triple.
type Color struct {
	R, G, B float64
}

// Scale returns c multiplied by s.
func (c Color) Scale(s float64) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// IsBlack reports whether all channels are zero.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// RGBSample is the result of RGB.Sample.
type RGBSample struct {
	// Value is f_r·cos(θo) at the sampled pair.
	Value Color
	// Wo is the sampled outgoing direction.
	Wo mgl64.Vec3
	// PDF is the solid-angle density of Wo. Zero marks a failed sample.
	PDF float64
}

// Weight returns Value/PDF, the Monte Carlo weight of the sample, or black
// for a failed sample.
func (s RGBSample) Weight() Color {
	if !(s.PDF > 0) {
		return Color{}
	}
	return s.Value.Scale(1 / s.PDF)
}

// RGB is a measured BRDF reconstructed in RGB.
type RGB struct {
	m model
}

// Eval returns f_r·cos(θo) for the pair (wi, wo).
func (b *RGB) Eval(wi, wo mgl64.Vec3) Color {
	q, ok := b.m.prepare(wi, wo)
	if !ok {
		return Color{}
	}
	var v [3]float64
	b.m.eval(v[:], &q)
	return Color{v[0], v[1], v[2]}
}

// PDF returns the solid-angle density with which Sample picks wo given wi.
func (b *RGB) PDF(wi, wo mgl64.Vec3) float64 {
	q, ok := b.m.prepare(wi, wo)
	if !ok {
		return 0
	}
	return b.m.pdf(&q)
}

// Sample importance-samples an outgoing direction for wi from the uniform
// variates u.
func (b *RGB) Sample(u mgl64.Vec2, wi mgl64.Vec3) RGBSample {
	var v [3]float64
	wo, pdf, ok := b.m.sample(v[:], u, wi)
	if !ok {
		return RGBSample{}
	}
	return RGBSample{Value: Color{v[0], v[1], v[2]}, Wo: wo, PDF: pdf}
}

// Description returns the free-form description stored in the file.
func (b *RGB) Description() string {
	return b.m.t.description
}

// Isotropic reports whether the material is tabulated for one incident
// azimuth only.
func (b *RGB) Isotropic() bool {
	return b.m.t.isotropic
}
