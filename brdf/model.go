package brdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// model evaluates a table set for any channel count. RGB and spectral
// façades differ only in the channel axis of their table set and in clip.
type model struct {
	t *tableSet
	// clip zeroes negative reconstructed values.
	clip bool
}

// query holds the lookup coordinates of one (wi, wo) pair after folding.
type query struct {
	thetaI, phiI float64
	uWi, uWm     mgl64.Vec2
	wm           mgl64.Vec3
	cosIM        float64
}

// prepare maps a direction pair to lookup coordinates. It reports false
// for pairs outside the upper hemisphere.
func (m *model) prepare(wi, wo mgl64.Vec3) (query, bool) {
	var q query
	if !(wi[2] > 0) || !(wo[2] > 0) {
		return q, false
	}
	f := m.t.sym.fold(wi)
	wi, wo = f.apply(wi), f.apply(wo)

	sum := wi.Add(wo)
	l := sum.Len()
	if !(l > 0) {
		return q, false
	}
	q.wm = sum.Mul(1 / l)
	q.cosIM = wi.Dot(q.wm)

	q.thetaI = elevation(wi)
	q.phiI = math.Atan2(wi[1], wi[0])
	thetaM := elevation(q.wm)
	phiM := math.Atan2(q.wm[1], q.wm[0])
	if m.t.isotropic {
		phiM -= q.phiI
	}

	q.uWi = mgl64.Vec2{thetaToU(q.thetaI), phiToU(q.phiI)}
	q.uWm = mgl64.Vec2{thetaToU(thetaM), phiToU(phiM)}
	q.uWm[1] -= math.Floor(q.uWm[1])
	return q, true
}

// eval writes f_r·cos for q into dst, one value per channel.
func (m *model) eval(dst []float64, q *query) {
	s, _ := m.t.vndf.Invert(q.uWm, q.phiI, q.thetaI)
	m.lookup(dst, s, q)
}

// lookup reads the reflectance at sample-space point s.
func (m *model) lookup(dst []float64, s mgl64.Vec2, q *query) {
	factor := 1.0
	if m.t.jacobian {
		sigma := m.t.sigma.Eval(q.uWi)
		if !(sigma > 0) {
			clear(dst)
			return
		}
		factor = m.t.ndf.Eval(q.uWm) / (4 * sigma)
	}
	for k, ch := range m.t.channels {
		v := m.t.values.Eval(s, q.phiI, q.thetaI, ch)
		if m.clip && v < 0 {
			v = 0
		}
		dst[k] = v * factor
	}
}

// pdf returns the solid-angle density with which sample produces q's wo.
func (m *model) pdf(q *query) float64 {
	if !(q.cosIM > 0) {
		return 0
	}
	s, vndfPdf := m.t.vndf.Invert(q.uWm, q.phiI, q.thetaI)
	lum := m.t.luminance.Eval(s, q.phiI, q.thetaI)
	sinThetaM := math.Sqrt(q.wm[0]*q.wm[0] + q.wm[1]*q.wm[1])
	return vndfPdf * lum / jacobian(q.uWm[0], sinThetaM, q.cosIM)
}

// sample draws wo for wi from u, writes f_r·cos into dst and returns wo
// and its density. It reports false, leaving dst untouched, when no valid
// direction results.
func (m *model) sample(dst []float64, u mgl64.Vec2, wi mgl64.Vec3) (mgl64.Vec3, float64, bool) {
	if !(wi[2] > 0) {
		return mgl64.Vec3{}, 0, false
	}
	f := m.t.sym.fold(wi)
	wi = f.apply(wi)

	var q query
	q.thetaI = elevation(wi)
	q.phiI = math.Atan2(wi[1], wi[0])
	q.uWi = mgl64.Vec2{thetaToU(q.thetaI), phiToU(q.phiI)}

	// The luminance table picks the sample-space point; the vndf table
	// warps it into half-vector coordinates.
	s, lumPdf := m.t.luminance.Sample(mgl64.Vec2{u[1], u[0]}, q.phiI, q.thetaI)
	uWm, vndfPdf := m.t.vndf.Sample(s, q.phiI, q.thetaI)

	phiM := uToPhi(uWm[1])
	if m.t.isotropic {
		phiM += q.phiI
	}
	thetaM := uToTheta(uWm[0])
	q.wm = sphericalDir(thetaM, phiM)
	q.uWm = uWm
	q.cosIM = wi.Dot(q.wm)

	wo := reflect(wi, q.wm)
	if !(wo[2] > 0) || !(q.cosIM > 0) {
		return mgl64.Vec3{}, 0, false
	}

	pdf := lumPdf * vndfPdf / jacobian(uWm[0], math.Sin(thetaM), q.cosIM)
	m.lookup(dst, s, &q)
	return f.undo(wo), pdf, true
}
