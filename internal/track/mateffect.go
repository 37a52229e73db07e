package track

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaterialEffect is the effect of a detector-element crossing on the
// fit: it adds no information, only a parameter shift (energy loss) and
// process noise (loss fluctuations and multiple scattering), processed
// in parameter space.
type MaterialEffect struct {
	effectState
	xing   ElementXing
	ref    *LoopHelix // reference piece at the crossing
	mateff Parameters // parameter-space transport for forward propagation
	cache  Weights    // smoothed information accumulated by the two sweeps
	vscale float64
}

// NewMaterialEffect builds the effect for a crossing against the
// reference trajectory.
func NewMaterialEffect(xing ElementXing, ref *ParticleTrajectory) (*MaterialEffect, error) {
	m := &MaterialEffect{
		xing:   xing,
		mateff: NewParameters(),
		cache:  NewWeights(),
		vscale: 1.0,
	}
	if err := m.Update(ref, MetaIterConfig{VarianceScale: 1.0}); err != nil {
		return nil, err
	}
	return m, nil
}

// ElementXing returns the underlying crossing.
func (m *MaterialEffect) ElementXing() ElementXing { return m.xing }

// TransportEffect returns the parameter-space transport.
func (m *MaterialEffect) TransportEffect() Parameters { return m.mateff }

// Cache returns the smoothed information accumulated at this effect.
func (m *MaterialEffect) Cache() Weights { return m.cache }

// Time implements Effect; the buffer pushes the effect just past its
// crossing so a coincident measurement processes first.
func (m *MaterialEffect) Time() float64 { return m.xing.Time() + TBuff }

// Active implements Effect.
func (m *MaterialEffect) Active() bool { return m.xing.Active() }

// Process implements Effect. Forward, the cache picks up the state
// AFTER this effect's transport; backward, BEFORE it. The cached sum of
// both sweeps is then the smoothed information at the crossing without
// double-counting this effect's own noise.
func (m *MaterialEffect) Process(state *FitState, tdir TimeDir) {
	if m.Active() {
		if tdir == Forward {
			state.AppendEffect(m.mateff, tdir)
			m.cache.AddWeights(state.Weights())
		} else {
			m.cache.AddWeights(state.Weights())
			state.AppendEffect(m.mateff, tdir)
		}
	}
	m.setProcessed(tdir)
}

// Update implements Effect: the crossing is relocated on the new
// reference and the parameter-space transport is rebuilt.
func (m *MaterialEffect) Update(ref *ParticleTrajectory, mi MetaIterConfig) error {
	m.resetProcessed()
	m.vscale = mi.VarianceScale
	m.cache = NewWeights()
	if err := m.xing.UpdateReference(ref.NearestPiece(m.xing.Time())); err != nil {
		return fmt.Errorf("material at t %g: %w: %w", m.xing.Time(), ErrUpdateFailed, err)
	}
	m.ref = ref.NearestPiece(m.xing.Time())
	return m.updateCache()
}

// updateCache translates the crossing's momentum-space effect into
// parameter space through the basis momentum derivatives.
func (m *MaterialEffect) updateCache() error {
	m.mateff = NewParameters()
	if !m.xing.Active() {
		return nil
	}
	t := m.Time()
	mom := m.ref.Momentum()
	dmom, momvar := MaterialEffects(m.xing, mom, m.ref.Mass(), Forward)
	dpdm, err := m.ref.DPardM(t)
	if err != nil {
		return err
	}
	for _, basis := range []MomBasis{MomDir, PerpDir, PhiDir} {
		dir, err := m.ref.Direction(t, basis)
		if err != nil {
			return err
		}
		// project the parameter derivatives onto this basis direction
		var pder DVec
		var dvec mat.VecDense
		dvec.MulVec(dpdm, mat.NewVecDense(3, []float64{dir.X, dir.Y, dir.Z}))
		for i := 0; i < NParams; i++ {
			pder[i] = mom * dvec.AtVec(i)
		}
		// forward-time transport: the shift from the mean effect, the
		// noise from its variance under the annealing scale
		m.mateff.Vec = m.mateff.Vec.Add(pder.Scale(dmom[basis]))
		m.mateff.Cov.SymRankOne(m.mateff.Cov, momvar[basis]*m.vscale, pder.vecDense())
	}
	return nil
}

// Append implements Effect: a new trajectory piece is built from the
// cached smoothed information and appended after the crossing. The piece
// range runs from the effect time to the fit end; if the effect time
// precedes the current back piece the range is clamped per the
// piecewise-append contract.
func (m *MaterialEffect) Append(fit *ParticleTrajectory) error {
	if !m.Active() {
		return nil
	}
	pars, err := m.cache.Parameters()
	if err != nil {
		return fmt.Errorf("material append at t %g: %w", m.Time(), err)
	}
	t := m.Time()
	end := fit.Range().End
	if t+TBuff > end {
		end = t + TBuff
	}
	piece, err := NewLoopHelixFromParams(pars, m.ref.Mass(), m.ref.Charge(), m.ref.BNom(), NewTimeRange(t, end))
	if err != nil {
		return fmt.Errorf("material append at t %g: %w", m.Time(), err)
	}
	fit.Append(piece)
	return nil
}

// Chisq implements Effect; material adds no information and hence no
// chi-squared.
func (m *MaterialEffect) Chisq(Parameters) (float64, int) { return 0, 0 }

func (m *MaterialEffect) String() string {
	return fmt.Sprintf("MaterialEffect{t: %.4g, active: %t}", m.Time(), m.Active())
}
