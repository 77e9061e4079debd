package brdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Lookup coordinates are (u, v) in the unit square. u warps the elevation so
// that grid rows concentrate near the pole; v is the azimuth.

func thetaToU(theta float64) float64 {
	return math.Sqrt(theta * (2 / math.Pi))
}

func uToTheta(u float64) float64 {
	return u * u * (math.Pi / 2)
}

func phiToU(phi float64) float64 {
	return (phi + math.Pi) * (0.5 / math.Pi)
}

func uToPhi(u float64) float64 {
	return (2*u - 1) * math.Pi
}

// elevation returns the angle between d and +z. It stays accurate near the
// pole where acos(d.z) loses precision.
func elevation(d mgl64.Vec3) float64 {
	dx, dy, dz := d[0], d[1], d[2]-1
	s := 0.5 * math.Sqrt(dx*dx+dy*dy+dz*dz)
	if s > 1 {
		s = 1
	}
	return 2 * math.Asin(s)
}

// sphericalDir returns the unit vector with the given elevation and azimuth.
func sphericalDir(theta, phi float64) mgl64.Vec3 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return mgl64.Vec3{cp * st, sp * st, ct}
}

// reflect mirrors wi about the unit half vector wm.
func reflect(wi, wm mgl64.Vec3) mgl64.Vec3 {
	return wm.Mul(2 * wi.Dot(wm)).Sub(wi)
}

// jacobian is |dω_o / du_wm| for a half vector with warped elevation u and
// sin(θm) = sinThetaM, reflected about wi with wi·wm = cosIM.
func jacobian(u, sinThetaM, cosIM float64) float64 {
	return math.Max(2*math.Pi*math.Pi*u*sinThetaM, 1e-6) * 4 * cosIM
}

// symmetry folds incident azimuths into the tabulated range when the table
// covers only 1/k of the circle.
type symmetry struct {
	k int

	// mirror folding for k == 4: target quadrant signs.
	sx, sy float64

	// rotation folding otherwise.
	phi0, period float64
}

func newSymmetry(phiI []float64, isotropic bool) symmetry {
	if isotropic || len(phiI) < 2 {
		return symmetry{k: 1}
	}
	span := phiI[len(phiI)-1] - phiI[0]
	k := int(math.RoundToEven(2 * math.Pi / span))
	if k < 2 {
		return symmetry{k: 1}
	}
	s := symmetry{k: k, phi0: phiI[0], period: 2 * math.Pi / float64(k)}
	if k == 4 {
		mid := phiI[0] + 0.5*s.period
		s.sx = math.Copysign(1, math.Cos(mid))
		s.sy = math.Copysign(1, math.Sin(mid))
	}
	return s
}

// fold maps wi into the tabulated azimuth range and returns the transform
// that was applied, so it can be repeated on wo and undone on sampled
// directions.
func (s symmetry) fold(wi mgl64.Vec3) fold {
	switch {
	case s.k < 2:
		return fold{fx: 1, fy: 1, cos: 1}
	case s.k == 4:
		f := fold{fx: 1, fy: 1, cos: 1}
		if wi[0]*s.sx < 0 {
			f.fx = -1
		}
		if wi[1]*s.sy < 0 {
			f.fy = -1
		}
		return f
	default:
		phi := math.Atan2(wi[1], wi[0])
		n := math.Floor((phi - s.phi0) / s.period)
		// atan2 returns +π for y = +0, x < 0, one full turn past phi0 = -π.
		n = math.Min(n, float64(s.k-1))
		if n == 0 {
			return fold{fx: 1, fy: 1, cos: 1}
		}
		sin, cos := math.Sincos(-n * s.period)
		return fold{fx: 1, fy: 1, cos: cos, sin: sin}
	}
}

// fold is a mirror in x and y followed by a rotation about z.
type fold struct {
	fx, fy   float64
	cos, sin float64
}

func (f fold) apply(d mgl64.Vec3) mgl64.Vec3 {
	x, y := d[0]*f.fx, d[1]*f.fy
	return mgl64.Vec3{f.cos*x - f.sin*y, f.sin*x + f.cos*y, d[2]}
}

func (f fold) undo(d mgl64.Vec3) mgl64.Vec3 {
	x := f.cos*d[0] + f.sin*d[1]
	y := -f.sin*d[0] + f.cos*d[1]
	return mgl64.Vec3{x * f.fx, y * f.fy, d[2]}
}
