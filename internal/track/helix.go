package track

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trackfit/internal/geom"
	"github.com/banshee-data/trackfit/internal/units"
)

// degenerateCut is the smallest |rad| or |lam| (mm) for which the helix
// parameterization is still well defined.
const degenerateCut = 1e-10

// LoopHelix is a single kinematic helix piece: a charged particle moving
// in a uniform field along z, described by six geometric parameters with
// covariance plus mass, charge, and the nominal field. Parameters are
// immutable after construction except for the validity range.
//
// The parameter vector is (rad, lam, cx, cy, phi0, t0): transverse
// radius and longitudinal wavelength per radian (both signed by
// charge × Bz), transverse helix-axis coordinates, and the azimuth and
// time of the z=0 crossing.
type LoopHelix struct {
	pars   Parameters
	mass   float64 // MeV/c²
	charge int     // proton charge units
	bnom   float64 // Tesla, along z
	mbar   float64 // mass in mm, signed by charge × Bz
	trange TimeRange
}

// NewLoopHelix constructs a helix from a space-time point, a 4-momentum,
// the charge, and the nominal field, inverting the parameterization in
// closed form. Construction fails with ErrInvalidArgument on non-finite
// input and with ErrDegenerateHelix when the transverse or longitudinal
// component vanishes.
func NewLoopHelix(pos geom.Vec4, mom geom.Mom4, charge int, bnom float64, trange TimeRange) (*LoopHelix, error) {
	if !mom.Vect().IsFinite() || !pos.Vect().IsFinite() ||
		math.IsNaN(pos.T) || math.IsInf(pos.T, 0) {
		return nil, fmt.Errorf("non-finite helix input: %w", ErrInvalidArgument)
	}
	if charge == 0 || bnom == 0 {
		return nil, fmt.Errorf("neutral particle or zero field: %w", ErrInvalidArgument)
	}
	momToRad := units.MomToRad(charge, bnom)
	h := &LoopHelix{
		pars:   NewParameters(),
		mass:   mom.M,
		charge: charge,
		bnom:   bnom,
		mbar:   -mom.M * momToRad,
		trange: trange,
	}
	pt := mom.Pt()
	phibar := mom.Phi()
	h.pars.Vec[IdxRad] = -pt * momToRad
	h.pars.Vec[IdxLam] = -mom.Z * momToRad
	if math.Abs(h.rad()) < degenerateCut || math.Abs(h.lam()) < degenerateCut {
		return nil, fmt.Errorf("rad=%g lam=%g: %w", h.rad(), h.lam(), ErrDegenerateHelix)
	}
	om := h.Omega()
	h.pars.Vec[IdxT0] = pos.T - pos.Z/(om*h.lam())
	// choose the winding that minimizes |z| at the reference point
	nwind := math.Round((pos.Z/h.lam() - phibar) / (2 * math.Pi))
	h.pars.Vec[IdxPhi0] = phibar - om*(pos.T-h.t0()) + 2*math.Pi*nwind
	h.pars.Vec[IdxCx] = pos.X + mom.Y*momToRad
	h.pars.Vec[IdxCy] = pos.Y - mom.X*momToRad
	return h, nil
}

// NewLoopHelixFromParams constructs a helix directly from a parameter
// state. This is the canonical round-trip inverse used when a fit piece
// is materialized from smoothed weights.
func NewLoopHelixFromParams(pars Parameters, mass float64, charge int, bnom float64, trange TimeRange) (*LoopHelix, error) {
	if charge == 0 || bnom == 0 {
		return nil, fmt.Errorf("neutral particle or zero field: %w", ErrInvalidArgument)
	}
	if math.Abs(pars.Vec[IdxRad]) < degenerateCut || math.Abs(pars.Vec[IdxLam]) < degenerateCut {
		return nil, fmt.Errorf("rad=%g lam=%g: %w", pars.Vec[IdxRad], pars.Vec[IdxLam], ErrDegenerateHelix)
	}
	return &LoopHelix{
		pars:   pars.Clone(),
		mass:   mass,
		charge: charge,
		bnom:   bnom,
		mbar:   units.ReducedMass(mass, charge, bnom),
		trange: trange,
	}, nil
}

// parameter accessors
func (h *LoopHelix) rad() float64  { return h.pars.Vec[IdxRad] }
func (h *LoopHelix) lam() float64  { return h.pars.Vec[IdxLam] }
func (h *LoopHelix) cx() float64   { return h.pars.Vec[IdxCx] }
func (h *LoopHelix) cy() float64   { return h.pars.Vec[IdxCy] }
func (h *LoopHelix) phi0() float64 { return h.pars.Vec[IdxPhi0] }
func (h *LoopHelix) t0() float64   { return h.pars.Vec[IdxT0] }

// Params returns the parameter state.
func (h *LoopHelix) Params() Parameters { return h.pars }

// Mass returns the particle mass in MeV/c².
func (h *LoopHelix) Mass() float64 { return h.mass }

// Charge returns the particle charge in proton units.
func (h *LoopHelix) Charge() int { return h.charge }

// BNom returns the nominal field in Tesla.
func (h *LoopHelix) BNom() float64 { return h.bnom }

// Mbar returns the mass in mm; the sign carries the bending direction.
func (h *LoopHelix) Mbar() float64 { return h.mbar }

// Range returns the validity range.
func (h *LoopHelix) Range() TimeRange { return h.trange }

// SetRange replaces the validity range; it is the only mutable state.
func (h *LoopHelix) SetRange(r TimeRange) { h.trange = r }

// Pbar returns the momentum in mm.
func (h *LoopHelix) Pbar() float64 { return math.Hypot(h.rad(), h.lam()) }

// Ebar returns the energy in mm.
func (h *LoopHelix) Ebar() float64 {
	return math.Sqrt(h.rad()*h.rad() + h.lam()*h.lam() + h.mbar*h.mbar)
}

// Beta returns the relativistic velocity fraction.
func (h *LoopHelix) Beta() float64 { return math.Abs(h.Pbar() / h.Ebar()) }

// Gamma returns the relativistic boost.
func (h *LoopHelix) Gamma() float64 { return math.Abs(h.Ebar() / h.mbar) }

// Omega returns the signed angular frequency in rad/ns.
func (h *LoopHelix) Omega() float64 {
	return math.Copysign(units.CLight, h.mbar) / h.Ebar()
}

// Momentum returns the scalar momentum in MeV/c.
func (h *LoopHelix) Momentum() float64 { return math.Abs(h.mass * h.Pbar() / h.mbar) }

// Energy returns the total energy in MeV.
func (h *LoopHelix) Energy() float64 { return math.Abs(h.mass * h.Ebar() / h.mbar) }

// Speed returns |v| in mm/ns.
func (h *LoopHelix) Speed() float64 { return units.CLight * h.Beta() }

// DPhi returns the rotation since the z=0 crossing at time t.
func (h *LoopHelix) DPhi(t float64) float64 { return h.Omega() * (t - h.t0()) }

// Phi returns the absolute azimuth at time t.
func (h *LoopHelix) Phi(t float64) float64 { return h.DPhi(t) + h.phi0() }

// Position3 returns the particle position at time t.
func (h *LoopHelix) Position3(t float64) geom.Vec3 {
	df := h.DPhi(t)
	phi := df + h.phi0()
	sphi, cphi := math.Sincos(phi)
	return geom.Vec3{
		X: h.cx() + h.rad()*sphi,
		Y: h.cy() - h.rad()*cphi,
		Z: df * h.lam(),
	}
}

// Position4 returns the space-time point at time t.
func (h *LoopHelix) Position4(t float64) geom.Vec4 {
	p := h.Position3(t)
	return geom.Vec4{X: p.X, Y: p.Y, Z: p.Z, T: t}
}

// Momentum3 returns the momentum vector at time t in MeV/c.
func (h *LoopHelix) Momentum3(t float64) geom.Vec3 {
	sphi, cphi := math.Sincos(h.Phi(t))
	factor := h.mass / h.mbar
	return geom.Vec3{
		X: factor * h.rad() * cphi,
		Y: factor * h.rad() * sphi,
		Z: factor * h.lam(),
	}
}

// Momentum4 returns the 4-momentum at time t.
func (h *LoopHelix) Momentum4(t float64) geom.Mom4 {
	p := h.Momentum3(t)
	return geom.Mom4{X: p.X, Y: p.Y, Z: p.Z, M: h.mass}
}

// Velocity returns dx/dt at time t in mm/ns.
func (h *LoopHelix) Velocity(t float64) geom.Vec3 {
	sphi, cphi := math.Sincos(h.Phi(t))
	factor := math.Copysign(units.CLight, h.mbar) / h.Ebar()
	return geom.Vec3{
		X: factor * h.rad() * cphi,
		Y: factor * h.rad() * sphi,
		Z: factor * h.lam(),
	}
}

// Acceleration returns d²x/dt² at time t, used by the point
// closest-approach Newton step.
func (h *LoopHelix) Acceleration(t float64) geom.Vec3 {
	sphi, cphi := math.Sincos(h.Phi(t))
	factor := math.Copysign(units.CLight, h.mbar) / h.Ebar() * h.Omega()
	return geom.Vec3{
		X: -factor * h.rad() * sphi,
		Y: factor * h.rad() * cphi,
	}
}

// Direction returns the requested local momentum-basis unit vector at
// time t. The triple is orthonormal and satisfies
// PerpDir × PhiDir = MomDir. An unknown basis fails with
// ErrInvalidArgument.
func (h *LoopHelix) Direction(t float64, basis MomBasis) (geom.Vec3, error) {
	sphi, cphi := math.Sincos(h.Phi(t))
	switch basis {
	case MomDir:
		return h.Momentum3(t).Unit(), nil
	case PerpDir:
		// polar bending direction
		norm := 1.0 / math.Copysign(h.Pbar(), h.mbar)
		return geom.Vec3{
			X: norm * h.lam() * cphi,
			Y: norm * h.lam() * sphi,
			Z: -norm * h.rad(),
		}, nil
	case PhiDir:
		// azimuthal bending direction, purely transverse
		return geom.Vec3{X: -sphi, Y: cphi}, nil
	}
	return geom.Vec3{}, fmt.Errorf("direction basis %d: %w", basis, ErrInvalidArgument)
}

// MomDeriv returns the first-order parameter change corresponding to an
// infinitesimal fractional momentum change along the given basis
// direction, at fixed position. An unknown basis fails with
// ErrInvalidArgument.
func (h *LoopHelix) MomDeriv(t float64, basis MomBasis) (DVec, error) {
	om := h.Omega()
	dt := t - h.t0()
	sphi, cphi := math.Sincos(h.Phi(t))
	var d DVec
	switch basis {
	case PerpDir:
		// polar bending: momentum magnitude and position unchanged
		d[IdxRad] = h.lam()
		d[IdxLam] = -h.rad()
		d[IdxT0] = -dt * h.rad() / h.lam()
		d[IdxPhi0] = -om * dt * h.rad() / h.lam()
		d[IdxCx] = -h.lam() * sphi
		d[IdxCy] = h.lam() * cphi
	case PhiDir:
		// azimuthal bending: rad, lam, t0 unchanged
		sign := math.Copysign(1.0, om)
		d[IdxPhi0] = sign * h.Pbar() / h.rad()
		d[IdxCx] = -sign * h.Pbar() * cphi
		d[IdxCy] = -sign * h.Pbar() * sphi
	case MomDir:
		// fractional momentum change: position and direction unchanged
		beta := h.Beta()
		d[IdxRad] = h.rad()
		d[IdxLam] = h.lam()
		d[IdxT0] = dt * (1.0 - beta*beta)
		d[IdxPhi0] = om * dt
		d[IdxCx] = -h.rad() * sphi
		d[IdxCy] = h.rad() * cphi
	default:
		return d, fmt.Errorf("momentum derivative basis %d: %w", basis, ErrInvalidArgument)
	}
	return d, nil
}

// DXDPar returns the 3×6 derivative of the position at fixed time t with
// respect to the parameters, as one parameter-space row per spatial
// coordinate. It drives the closest-approach sensitivity extraction.
func (h *LoopHelix) DXDPar(t float64) [3]DVec {
	om := h.Omega()
	dt := t - h.t0()
	df := om * dt
	phi := df + h.phi0()
	sphi, cphi := math.Sincos(phi)
	ebar2 := h.Ebar() * h.Ebar()
	// omega depends on rad and lam through ebar
	dphidrad := -df * h.rad() / ebar2
	dphidlam := -df * h.lam() / ebar2

	var dx, dy, dz DVec
	dx[IdxRad] = sphi + h.rad()*cphi*dphidrad
	dx[IdxLam] = h.rad() * cphi * dphidlam
	dx[IdxCx] = 1.0
	dx[IdxPhi0] = h.rad() * cphi
	dx[IdxT0] = -h.rad() * cphi * om

	dy[IdxRad] = -cphi + h.rad()*sphi*dphidrad
	dy[IdxLam] = h.rad() * sphi * dphidlam
	dy[IdxCy] = 1.0
	dy[IdxPhi0] = h.rad() * sphi
	dy[IdxT0] = -h.rad() * sphi * om

	dz[IdxRad] = -df * h.lam() * h.rad() / ebar2
	dz[IdxLam] = df * (1.0 - h.lam()*h.lam()/ebar2)
	dz[IdxT0] = -om * h.lam()

	return [3]DVec{dx, dy, dz}
}

// DPardM returns the 6×3 derivative of the parameters with respect to
// the local cartesian momentum vector at time t, assembled from the
// basis momentum derivatives.
func (h *LoopHelix) DPardM(t float64) (*mat.Dense, error) {
	d := mat.NewDense(NParams, 3, nil)
	mom := h.Momentum()
	for _, basis := range []MomBasis{MomDir, PerpDir, PhiDir} {
		dir, err := h.Direction(t, basis)
		if err != nil {
			return nil, err
		}
		der, err := h.MomDeriv(t, basis)
		if err != nil {
			return nil, err
		}
		// momDeriv is per fractional change; divide by the momentum to
		// get the derivative per MeV along this direction
		dvec := [3]float64{dir.X, dir.Y, dir.Z}
		for i := 0; i < NParams; i++ {
			for j := 0; j < 3; j++ {
				d.Set(i, j, d.At(i, j)+der[i]/mom*dvec[j])
			}
		}
	}
	return d, nil
}

func (h *LoopHelix) String() string {
	return fmt.Sprintf("LoopHelix{rad: %.4g, lam: %.4g, cx: %.4g, cy: %.4g, phi0: %.4g, t0: %.4g, range: %s}",
		h.rad(), h.lam(), h.cx(), h.cy(), h.phi0(), h.t0(), h.trange)
}
