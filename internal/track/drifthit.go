package track

import (
	"fmt"
	"math"
)

// DriftCalib is the drift-time calibration of a tube: the constant drift
// speed and the drift-time resolution.
type DriftCalib struct {
	Velocity float64 // mm/ns
	TimeRMS  float64 // ns
}

// DriftHit is a drift-time measurement on a wire. The wire Line anchors
// the measured signal time; the residual compares the measured drift
// time against the predicted propagation over the distance of closest
// approach. The left-right ambiguity is resolved from the signed DOCA
// once it exceeds the ambiguity cut; until then the hit is inactive.
type DriftHit struct {
	wire      Line
	calib     DriftCalib
	ambigDoca float64 // |doca| above which the LR ambiguity is resolved
	ambig     int     // -1, 0 (unresolved), +1
	prec      float64
	maxIter   int
	refresh   bool

	ca     CAData
	resid  Residual
	ref    Parameters
	wscale float64
}

// NewDriftHit builds a drift hit on the given wire and linearizes it
// against the reference piece.
func NewDriftHit(wire Line, calib DriftCalib, piece *LoopHelix, cfg Config) (*DriftHit, error) {
	d := &DriftHit{
		wire:      wire,
		calib:     calib,
		ambigDoca: cfg.AmbigDoca,
		prec:      cfg.Prec,
		maxIter:   cfg.MaxCAIter,
		refresh:   cfg.RefreshCAHint,
		wscale:    1.0,
	}
	if err := d.UpdateReference(piece); err != nil {
		return nil, err
	}
	return d, nil
}

// Wire returns the wire axis.
func (d *DriftHit) Wire() Line { return d.wire }

// Ambig returns the current left-right ambiguity assignment.
func (d *DriftHit) Ambig() int { return d.ambig }

// ClosestApproach returns the cached closest-approach state.
func (d *DriftHit) ClosestApproach() CAData { return d.ca }

// Time implements Hit.
func (d *DriftHit) Time() float64 { return d.ca.ParticleToca }

// Active implements Hit; the hit contributes only once the ambiguity is
// resolved.
func (d *DriftHit) Active() bool { return d.ambig != 0 }

// NResid implements Hit; a drift hit owns one time residual.
func (d *DriftHit) NResid() int { return 1 }

// Residual implements Hit.
func (d *DriftHit) Residual(i int) (Residual, error) {
	if i != 0 {
		return Residual{}, fmt.Errorf("drift residual %d: %w", i, ErrInvalidArgument)
	}
	return d.resid, nil
}

// UpdateReference implements Hit.
func (d *DriftHit) UpdateReference(piece *LoopHelix) error {
	hint := CAHint{ParticleTime: d.wire.T0(), SensorTime: d.wire.T0()}
	if d.refresh && d.ca.Usable() {
		hint = CAHint{ParticleTime: d.ca.ParticleToca, SensorTime: d.ca.SensorToca}
	}
	ca := ClosestApproach(piece, d.wire, hint, d.prec, d.maxIter)
	if !ca.Usable() {
		return fmt.Errorf("drift hit at t0 %g: status %s: %w", d.wire.T0(), ca.Status, ErrPCAFailure)
	}
	d.ca = ca
	if math.Abs(ca.Doca) > d.ambigDoca {
		d.ambig = int(math.Copysign(1.0, ca.Doca))
	} else {
		d.ambig = 0
	}
	// measured drift time (sensor TOCA minus particle TOCA) against the
	// predicted drift over |doca|
	value := -ca.DeltaT - math.Abs(ca.Doca)/d.calib.Velocity
	drdp := ca.DTdP.Add(ca.DDdP.Scale(float64(d.ambig) / d.calib.Velocity))
	d.resid = Residual{Value: value, Variance: d.calib.TimeRMS * d.calib.TimeRMS, DRdP: drdp}
	d.ref = piece.Params()
	return nil
}

// UpdateState implements Hit.
func (d *DriftHit) UpdateState(mi MetaIterConfig) {
	d.wscale = 1.0 / mi.VarianceScale
}

// Weight implements Hit.
func (d *DriftHit) Weight() Weights {
	if !d.Active() {
		return NewWeights()
	}
	return hitWeight(d.ref, d.wscale, []Residual{d.resid})
}

// Chisq implements Hit.
func (d *DriftHit) Chisq(p Parameters) (float64, int) {
	if !d.Active() {
		return 0, 0
	}
	return hitChisq(d.ref, []Residual{d.resid}, p)
}

func (d *DriftHit) String() string {
	return fmt.Sprintf("DriftHit{ambig: %+d, doca: %.4g, %v}", d.ambig, d.ca.Doca, d.resid)
}
