// Package brdf evaluates and importance-samples measured BRDFs stored in
// tensor files produced by the adaptive parameterization of Dupuy and Jakob
// (2018).
//
// A file holds a visible normal distribution (vndf) and a luminance density,
// both conditioned on the incident direction, plus RGB or spectral
// reflectance tabulated in the warped sample space of the vndf. Loading
// builds marginal and conditional CDFs for the densities; afterwards every
// query is a handful of interpolated lookups and binary searches.
//
// Directions are unit vectors in the local shading frame with +z along the
// surface normal. Values returned by Eval and Sample are f_r·cos(θo). Pairs
// below the horizon produce zero values and zero densities rather than
// errors.
//
// RGB and Spectral values are immutable after loading and safe for
// concurrent use without locking. Random numbers are supplied by the caller.
package brdf
