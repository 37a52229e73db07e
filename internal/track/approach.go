package track

import (
	"math"

	"github.com/banshee-data/trackfit/internal/geom"
	"github.com/banshee-data/trackfit/internal/units"
)

// CAStatus is the outcome of a closest-approach solve.
type CAStatus string

const (
	CAConverged       CAStatus = "converged"         // met the precision criterion
	CADiverged        CAStatus = "diverged"          // exhausted the iteration cap
	CACloseToParallel CAStatus = "close-to-parallel" // tangent nearly parallel to the sensor
	CAOutOfRange      CAStatus = "out-of-range"      // hint outside the trajectory range
	CAFailed          CAStatus = "failed"            // non-finite intermediate state
)

// Default solver tuning. The precision applies to the change in DOCA
// between iterations; the equivalent time criterion is prec/c.
const (
	DefaultCAPrec    = 1e-8
	DefaultMaxCAIter = 20
	// parallelCut is the sin² threshold below which the tangent and the
	// sensor axis are treated as parallel.
	parallelCut = 1e-6
)

// CAHint seeds the iterative solve with starting particle and sensor
// times.
type CAHint struct {
	ParticleTime float64
	SensorTime   float64
}

// CAData carries the result of a closest-approach solve: the point and
// time of closest approach on both trajectories, the signed distance,
// and the first-order sensitivities of DOCA and TOCA to the helix
// parameters.
type CAData struct {
	Status       CAStatus
	Doca         float64 // signed by (sensorDir × particleDir)·delta
	DeltaT       float64 // particle TOCA - sensor TOCA
	ParticleToca float64
	SensorToca   float64
	ParticlePoca geom.Vec4
	SensorPoca   geom.Vec4
	ParticleDir  geom.Vec3
	SensorDir    geom.Vec3
	DirDot       float64 // particleDir · sensorDir at closest approach
	DDdP         DVec    // d(doca)/d(params)
	DTdP         DVec    // d(deltaT)/d(params)
	Iterations   int
}

// Usable reports whether the solve produced a result the fit can
// linearize against.
func (d CAData) Usable() bool { return d.Status == CAConverged }

// Delta returns particlePoca - sensorPoca.
func (d CAData) Delta() geom.Vec3 {
	return d.ParticlePoca.Vect().Sub(d.SensorPoca.Vect())
}

// twoLinePCA solves the closest approach of two lines in point-slope
// form, returning the signed path lengths from each anchor to the
// respective POCA. closeToParallel is set when sin² of the opening angle
// falls below parallelCut; the anchors are then returned as the POCAs.
func twoLinePCA(p1, t1, p2, t2 geom.Vec3) (s1, s2 float64, closeToParallel bool) {
	c := t1.Dot(t2)
	sinsq := 1.0 - c*c
	if sinsq < parallelCut {
		return 0, 0, true
	}
	delta := p1.Sub(p2)
	dDotT1 := delta.Dot(t1)
	dDotT2 := delta.Dot(t2)
	s1 = (dDotT2*c - dDotT1) / sinsq
	s2 = -(dDotT1*c - dDotT2) / sinsq
	return s1, s2, false
}

// ClosestApproach finds the point and time of closest approach between a
// helix and a sensor axis by iterative tangent-line linearization: at
// each step the helix is replaced by its tangent line at the current
// particle time and the two-line problem is solved in closed form.
// maxIter <= 0 selects DefaultMaxCAIter.
func ClosestApproach(h *LoopHelix, l Line, hint CAHint, prec float64, maxIter int) CAData {
	if prec <= 0 {
		prec = DefaultCAPrec
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxCAIter
	}
	data := CAData{Status: CADiverged}
	tH, tL := hint.ParticleTime, hint.SensorTime
	ldir := l.Direction()
	doca := math.Inf(1)
	for iter := 0; iter < maxIter; iter++ {
		data.Iterations = iter + 1
		hpos := h.Position3(tH)
		pdir, _ := h.Direction(tH, MomDir)
		lpos := l.Position3(tL)
		s1, s2, parallel := twoLinePCA(hpos, pdir, lpos, ldir)
		if parallel {
			fillParallel(&data, h, l, hint)
			return data
		}
		dtH := s1 / h.Speed()
		tH += dtH
		tL += s2 / l.Speed()
		if math.IsNaN(tH) || math.IsNaN(tL) {
			data.Status = CAFailed
			return data
		}
		newdoca := h.Position3(tH).Sub(l.Position3(tL)).Mag()
		if math.Abs(newdoca-doca) < prec || math.Abs(dtH) < prec/units.CLight {
			doca = newdoca
			data.Status = CAConverged
			break
		}
		doca = newdoca
	}
	fillCA(&data, h, l, tH, tL)
	return data
}

// fillParallel records a close-to-parallel outcome: the times revert to
// the hints and the DOCA is measured along the common perpendicular.
func fillParallel(data *CAData, h *LoopHelix, l Line, hint CAHint) {
	data.Status = CACloseToParallel
	tH, tL := hint.ParticleTime, hint.SensorTime
	delta := h.Position3(tH).Sub(l.Position3(tL))
	ldir := l.Direction()
	perp := delta.Sub(ldir.Scale(delta.Dot(ldir)))
	data.ParticleToca = tH
	data.SensorToca = tL
	data.DeltaT = tH - tL
	data.ParticlePoca = h.Position4(tH)
	data.SensorPoca = geom.Vec4{X: l.Position3(tL).X, Y: l.Position3(tL).Y, Z: l.Position3(tL).Z, T: tL}
	data.ParticleDir, _ = h.Direction(tH, MomDir)
	data.SensorDir = ldir
	data.DirDot = data.ParticleDir.Dot(ldir)
	data.Doca = perp.Mag()
}

// fillCA records the converged (or last) state and extracts the
// parameter sensitivities. DOCA is exact under the envelope theorem;
// TOCA drops the curvature terms of the implicit-function solve.
func fillCA(data *CAData, h *LoopHelix, l Line, tH, tL float64) {
	data.ParticleToca = tH
	data.SensorToca = tL
	data.DeltaT = tH - tL
	data.ParticlePoca = h.Position4(tH)
	lpos := l.Position3(tL)
	data.SensorPoca = geom.Vec4{X: lpos.X, Y: lpos.Y, Z: lpos.Z, T: tL}
	pdir, _ := h.Direction(tH, MomDir)
	sdir := l.Direction()
	data.ParticleDir = pdir
	data.SensorDir = sdir
	data.DirDot = pdir.Dot(sdir)

	delta := data.Delta()
	mag := delta.Mag()
	dsign := math.Copysign(1.0, sdir.Cross(pdir).Dot(delta))
	data.Doca = mag * dsign

	if mag <= 0 {
		return
	}
	dxdp := h.DXDPar(tH)
	dhat := delta.Scale(dsign / mag)
	data.DDdP = projectRows(dxdp, dhat)

	a := data.DirDot
	sinsq := 1.0 - a*a
	if sinsq < parallelCut {
		return
	}
	vp := h.Speed()
	vs := l.Speed()
	dtH := projectRows(dxdp, pdir.Sub(sdir.Scale(a))).Scale(-1.0 / (vp * sinsq))
	dtL := projectRows(dxdp, pdir.Scale(a).Sub(sdir)).Scale(-1.0 / (vs * sinsq))
	data.DTdP = dtH.Sub(dtL)
}

// projectRows contracts a 3×6 position-derivative matrix with a spatial
// vector, yielding a parameter-space vector.
func projectRows(dxdp [3]DVec, v geom.Vec3) DVec {
	var out DVec
	for i := 0; i < NParams; i++ {
		out[i] = v.X*dxdp[0][i] + v.Y*dxdp[1][i] + v.Z*dxdp[2][i]
	}
	return out
}

// PointClosestApproach solves the one-dimensional analog: the time at
// which the helix passes closest to a fixed space-time point.
func PointClosestApproach(h *LoopHelix, point geom.Vec4, prec float64, maxIter int) CAData {
	if prec <= 0 {
		prec = DefaultCAPrec
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxCAIter
	}
	data := CAData{Status: CADiverged}
	tH := point.T
	for iter := 0; iter < maxIter; iter++ {
		data.Iterations = iter + 1
		delta := h.Position3(tH).Sub(point.Vect())
		vel := h.Velocity(tH)
		acc := h.Acceleration(tH)
		slope := vel.Mag2() + delta.Dot(acc)
		if slope == 0 {
			data.Status = CAFailed
			return data
		}
		dt := -delta.Dot(vel) / slope
		tH += dt
		if math.IsNaN(tH) {
			data.Status = CAFailed
			return data
		}
		if math.Abs(dt) < prec/units.CLight {
			data.Status = CAConverged
			break
		}
	}
	pdir, _ := h.Direction(tH, MomDir)
	delta := h.Position3(tH).Sub(point.Vect())
	data.ParticleToca = tH
	data.SensorToca = point.T
	data.DeltaT = tH - point.T
	data.ParticlePoca = h.Position4(tH)
	data.SensorPoca = point
	data.ParticleDir = pdir
	data.Doca = delta.Mag()
	if data.Doca > 0 {
		dxdp := h.DXDPar(tH)
		data.DDdP = projectRows(dxdp, delta.Scale(1.0/data.Doca))
		data.DTdP = projectRows(dxdp, pdir).Scale(-1.0 / h.Speed())
	}
	return data
}

// PiecewiseClosestApproach finds the closest approach of a piecewise
// trajectory to a sensor axis. The piece containing the particle hint is
// solved first; if the solution leaves that piece's range, the solve is
// repeated on the piece containing the new particle time. A hint outside
// the trajectory range fails with CAOutOfRange.
func PiecewiseClosestApproach(p *ParticleTrajectory, l Line, hint CAHint, prec float64, maxIter int) (CAData, int) {
	if !p.Range().Contains(hint.ParticleTime) {
		return CAData{Status: CAOutOfRange}, -1
	}
	idx := p.NearestIndex(hint.ParticleTime)
	// piece reselection is bounded by the piece count
	for hop := 0; hop <= len(p.Pieces()); hop++ {
		piece := p.Pieces()[idx]
		data := ClosestApproach(piece, l, hint, prec, maxIter)
		if !data.Usable() {
			return data, idx
		}
		next := p.NearestIndex(data.ParticleToca)
		if next == idx {
			return data, idx
		}
		idx = next
		hint = CAHint{ParticleTime: data.ParticleToca, SensorTime: data.SensorToca}
	}
	return CAData{Status: CADiverged}, idx
}
