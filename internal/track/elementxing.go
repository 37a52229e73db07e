package track

import (
	"fmt"
	"math"

	"github.com/banshee-data/trackfit/internal/units"
)

// MaterialXing is one physical material component of a detector element
// crossed by the trajectory: the material and the path length through
// it.
type MaterialXing struct {
	Mat  Material
	PLen float64 // mm
}

// ElementXing describes the material effect of the particle crossing one
// detector element. Implementations locate the crossing on the reference
// trajectory and expose the individual material crossings.
type ElementXing interface {
	// Time returns the particle time of the crossing.
	Time() float64
	// Active reports whether the crossing carries any material.
	Active() bool
	// MatXings returns the material components of the crossing.
	MatXings() []MaterialXing
	// UpdateReference relocates the crossing on a new reference piece.
	UpdateReference(piece *LoopHelix) error
}

// MaterialEffects accumulates the fractional momentum change and its
// variance, per momentum-basis direction, from the crossings of an
// element at the given trajectory state. Scattering contributes noise
// only, its full projected angle variance added to each of the two
// bending directions; energy loss
// shifts the momentum magnitude. The mean shift is negated for backward
// time propagation.
func MaterialEffects(xing ElementXing, mom, mass float64, tdir TimeDir) (dmom, momvar [NBasis]float64) {
	// derivative of the fractional momentum change per unit energy
	dmFdE := math.Sqrt(mom*mom+mass*mass) / (mom * mom)
	if tdir == Backward {
		dmFdE = -dmFdE
	}
	for _, mx := range xing.MatXings() {
		dmom[MomDir] += mx.Mat.EnergyLoss(mom, mx.PLen, mass) * dmFdE
		momvar[MomDir] += mx.Mat.EnergyLossVar(mom, mx.PLen, mass) * dmFdE * dmFdE
		scatvar := mx.Mat.ScatterAngleVar(mom, mx.PLen, mass)
		momvar[PerpDir] += scatvar
		momvar[PhiDir] += scatvar
	}
	return dmom, momvar
}

// RadiationFraction sums the radiation fractions of the crossings,
// converting path lengths from mm to cm for the material tables.
func RadiationFraction(xing ElementXing) float64 {
	var sum float64
	for _, mx := range xing.MatXings() {
		sum += mx.Mat.RadiationFraction(mx.PLen / units.MmPerCm)
	}
	return sum
}

// TubeXing is the crossing of a thin material tube centered on a wire:
// the path length through the tube wall follows from the distance of
// closest approach to the axis.
type TubeXing struct {
	axis      Line
	mat       Material
	radius    float64 // tube radius, mm
	thickness float64 // wall thickness, mm
	prec      float64
	maxIter   int

	time   float64
	xings  []MaterialXing
	usable bool
}

// NewTubeXing builds a tube crossing on the given axis and locates it on
// the reference piece.
func NewTubeXing(axis Line, mat Material, radius, thickness float64, piece *LoopHelix, cfg Config) (*TubeXing, error) {
	x := &TubeXing{
		axis:      axis,
		mat:       mat,
		radius:    radius,
		thickness: thickness,
		prec:      cfg.Prec,
		maxIter:   cfg.MaxCAIter,
	}
	if err := x.UpdateReference(piece); err != nil {
		return nil, err
	}
	return x, nil
}

// Time implements ElementXing.
func (x *TubeXing) Time() float64 { return x.time }

// Active implements ElementXing.
func (x *TubeXing) Active() bool { return x.usable && len(x.xings) > 0 }

// MatXings implements ElementXing.
func (x *TubeXing) MatXings() []MaterialXing { return x.xings }

// UpdateReference implements ElementXing: the crossing time and the wall
// path length are recomputed from the closest approach to the axis. A
// trajectory missing the tube leaves the crossing inactive rather than
// failing the fit.
func (x *TubeXing) UpdateReference(piece *LoopHelix) error {
	hint := CAHint{ParticleTime: x.axis.T0(), SensorTime: x.axis.T0()}
	ca := ClosestApproach(piece, x.axis, hint, x.prec, x.maxIter)
	if !ca.Usable() {
		x.usable = false
		return fmt.Errorf("tube crossing at t0 %g: status %s: %w", x.axis.T0(), ca.Status, ErrPCAFailure)
	}
	x.usable = true
	x.time = ca.ParticleToca
	doca := math.Abs(ca.Doca)
	if doca >= x.radius {
		x.xings = nil
		return nil
	}
	// two wall traversals at the chord angle
	sint2 := 1.0 - doca*doca/(x.radius*x.radius)
	plen := 2.0 * x.thickness / math.Sqrt(sint2)
	x.xings = []MaterialXing{{Mat: x.mat, PLen: plen}}
	return nil
}

// FixedXing is an element crossing pinned at a fixed particle time with
// a fixed set of material components, independent of the reference
// trajectory. It models bulk material whose location is known a priori
// and is the workhorse of material-effect tests.
type FixedXing struct {
	XTime float64
	Xings []MaterialXing
}

// Time implements ElementXing.
func (f *FixedXing) Time() float64 { return f.XTime }

// Active implements ElementXing.
func (f *FixedXing) Active() bool { return len(f.Xings) > 0 }

// MatXings implements ElementXing.
func (f *FixedXing) MatXings() []MaterialXing { return f.Xings }

// UpdateReference implements ElementXing; a fixed crossing has nothing
// to relocate.
func (f *FixedXing) UpdateReference(*LoopHelix) error { return nil }

func (x *TubeXing) String() string {
	return fmt.Sprintf("TubeXing{time: %.4g, radius: %.4g, xings: %d}", x.time, x.radius, len(x.xings))
}
