package track

import (
	"fmt"
)

// Measurement is the effect wrapping a detector hit: it constrains the
// fit parameters with the hit's information contribution. Processing is
// direction independent.
type Measurement struct {
	effectState
	hit Hit
}

// NewMeasurement wraps a hit as a fit effect.
func NewMeasurement(hit Hit) *Measurement {
	return &Measurement{hit: hit}
}

// Hit returns the underlying hit.
func (m *Measurement) Hit() Hit { return m.hit }

// Time implements Effect.
func (m *Measurement) Time() float64 { return m.hit.Time() }

// Active implements Effect.
func (m *Measurement) Active() bool { return m.hit.Active() }

// Process implements Effect: an active hit adds its weight to the sweep
// state.
func (m *Measurement) Process(state *FitState, tdir TimeDir) {
	if m.Active() {
		state.AppendWeights(m.hit.Weight())
	}
	m.setProcessed(tdir)
}

// Update implements Effect: the hit re-linearizes against the nearest
// piece of the new reference.
func (m *Measurement) Update(ref *ParticleTrajectory, mi MetaIterConfig) error {
	m.resetProcessed()
	m.hit.UpdateState(mi)
	piece := ref.NearestPiece(m.hit.Time())
	if err := m.hit.UpdateReference(piece); err != nil {
		return fmt.Errorf("measurement at t %g: %w: %w", m.hit.Time(), ErrUpdateFailed, err)
	}
	return nil
}

// Append implements Effect; a measurement adds no trajectory piece.
func (m *Measurement) Append(*ParticleTrajectory) error { return nil }

// Chisq implements Effect.
func (m *Measurement) Chisq(p Parameters) (float64, int) { return m.hit.Chisq(p) }

func (m *Measurement) String() string {
	return fmt.Sprintf("Measurement{t: %.4g, active: %t}", m.Time(), m.Active())
}
