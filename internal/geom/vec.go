// Package geom provides the small fixed-size vector value types used by
// the trajectory and closest-approach algebra. These are plain structs on
// the hot path; the 6-dimensional parameter algebra lives in the track
// package on gonum matrices.
package geom

import "math"

// Vec3 is a 3-vector in detector coordinates (mm, or MeV for momenta).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the scalar product v · w.
func (v Vec3) Dot(w Vec3) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the vector product v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Mag2 returns |v|².
func (v Vec3) Mag2() float64 { return v.Dot(v) }

// Mag returns |v|.
func (v Vec3) Mag() float64 { return math.Sqrt(v.Mag2()) }

// Perp returns the transverse magnitude sqrt(x²+y²).
func (v Vec3) Perp() float64 { return math.Hypot(v.X, v.Y) }

// Phi returns the azimuthal angle atan2(y, x).
func (v Vec3) Phi() float64 { return math.Atan2(v.Y, v.X) }

// Unit returns v normalized to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Unit() Vec3 {
	m := v.Mag()
	if m == 0 {
		return v
	}
	return v.Scale(1.0 / m)
}

// IsFinite reports whether all components are finite.
func (v Vec3) IsFinite() bool {
	return !(math.IsNaN(v.X) || math.IsInf(v.X, 0) ||
		math.IsNaN(v.Y) || math.IsInf(v.Y, 0) ||
		math.IsNaN(v.Z) || math.IsInf(v.Z, 0))
}

// Vec4 is a space-time point: position in mm, time in ns.
type Vec4 struct {
	X, Y, Z, T float64
}

// Vect returns the spatial part.
func (v Vec4) Vect() Vec3 { return Vec3{v.X, v.Y, v.Z} }

// Mom4 is a kinematic 4-momentum: momentum components in MeV/c plus the
// rest mass in MeV/c².
type Mom4 struct {
	X, Y, Z, M float64
}

// Vect returns the momentum 3-vector.
func (m Mom4) Vect() Vec3 { return Vec3{m.X, m.Y, m.Z} }

// Pt returns the transverse momentum.
func (m Mom4) Pt() float64 { return math.Hypot(m.X, m.Y) }

// Phi returns the momentum azimuth.
func (m Mom4) Phi() float64 { return math.Atan2(m.Y, m.X) }

// P returns the scalar momentum.
func (m Mom4) P() float64 { return m.Vect().Mag() }

// E returns the total energy sqrt(p² + m²).
func (m Mom4) E() float64 { return math.Sqrt(m.Vect().Mag2() + m.M*m.M) }
