package track

import (
	"fmt"
)

// ScintHit is a time measurement from scintillator light collected along
// a sensor axis. The axis Line encodes both the measured time (through
// its anchor time) and the light propagation model (through its speed).
type ScintHit struct {
	axis    Line
	tvar    float64 // time measurement variance, ns²
	wvar    float64 // transverse sensor size variance, mm²
	active  bool
	prec    float64
	maxIter int
	refresh bool // refresh the CA hint from the previous solve

	ca     CAData
	resid  Residual
	ref    Parameters
	wscale float64
}

// NewScintHit builds a scintillator hit on the given sensor axis with
// the time and transverse-width variances, and linearizes it against the
// reference piece.
func NewScintHit(axis Line, tvar, wvar float64, piece *LoopHelix, cfg Config) (*ScintHit, error) {
	s := &ScintHit{
		axis:    axis,
		tvar:    tvar,
		wvar:    wvar,
		active:  true,
		prec:    cfg.Prec,
		maxIter: cfg.MaxCAIter,
		refresh: cfg.RefreshCAHint,
		wscale:  1.0,
	}
	if err := s.UpdateReference(piece); err != nil {
		return nil, err
	}
	return s, nil
}

// SensorAxis returns the sensor axis.
func (s *ScintHit) SensorAxis() Line { return s.axis }

// ClosestApproach returns the cached closest-approach state.
func (s *ScintHit) ClosestApproach() CAData { return s.ca }

// Time implements Hit.
func (s *ScintHit) Time() float64 { return s.ca.ParticleToca }

// Active implements Hit.
func (s *ScintHit) Active() bool { return s.active }

// SetActive enables or disables the hit.
func (s *ScintHit) SetActive(a bool) { s.active = a }

// NResid implements Hit; a scint hit owns one time residual.
func (s *ScintHit) NResid() int { return 1 }

// Residual implements Hit.
func (s *ScintHit) Residual(i int) (Residual, error) {
	if i != 0 {
		return Residual{}, fmt.Errorf("scint residual %d: %w", i, ErrInvalidArgument)
	}
	return s.resid, nil
}

// UpdateReference implements Hit. The CA is re-seeded from the sensor
// anchor time unless hint refresh is enabled: a poor reference t0 can
// pull the solve onto the wrong helix loop with no way back.
func (s *ScintHit) UpdateReference(piece *LoopHelix) error {
	hint := CAHint{ParticleTime: s.axis.T0(), SensorTime: s.axis.T0()}
	if s.refresh && s.ca.Usable() {
		hint = CAHint{ParticleTime: s.ca.ParticleToca, SensorTime: s.ca.SensorToca}
	}
	ca := ClosestApproach(piece, s.axis, hint, s.prec, s.maxIter)
	if !ca.Usable() {
		return fmt.Errorf("scint hit at t0 %g: status %s: %w", s.axis.T0(), ca.Status, ErrPCAFailure)
	}
	s.ca = ca
	// the variance couples the transverse sensor size to the relative
	// direction of particle and signal propagation
	dd2 := ca.DirDot * ca.DirDot
	totvar := s.tvar + s.wvar*dd2/(s.axis.Speed()*s.axis.Speed()*(1.0-dd2))
	s.resid = Residual{Value: ca.DeltaT, Variance: totvar, DRdP: ca.DTdP.Scale(-1.0)}
	s.ref = piece.Params()
	return nil
}

// UpdateState implements Hit.
func (s *ScintHit) UpdateState(mi MetaIterConfig) {
	s.wscale = 1.0 / mi.VarianceScale
}

// Weight implements Hit.
func (s *ScintHit) Weight() Weights {
	if !s.active {
		return NewWeights()
	}
	return hitWeight(s.ref, s.wscale, []Residual{s.resid})
}

// Chisq implements Hit.
func (s *ScintHit) Chisq(p Parameters) (float64, int) {
	if !s.active {
		return 0, 0
	}
	return hitChisq(s.ref, []Residual{s.resid}, p)
}

func (s *ScintHit) String() string {
	state := "active"
	if !s.active {
		state = "inactive"
	}
	return fmt.Sprintf("ScintHit{%s, tvar: %.4g, wvar: %.4g, %v}", state, s.tvar, s.wvar, s.resid)
}
