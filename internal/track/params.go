package track

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NParams is the dimension of the trajectory parameter space.
const NParams = 6

// Parameter indices for the loop helix.
const (
	IdxRad = iota
	IdxLam
	IdxCx
	IdxCy
	IdxPhi0
	IdxT0
)

var paramNames = [NParams]string{"Radius", "Lambda", "CenterX", "CenterY", "Phi0", "Time0"}

var paramTitles = [NParams]string{
	"Transverse Radius",
	"Longitudinal Wavelength",
	"Cylinder Center X",
	"Cylinder Center Y",
	"Azimuth at Z=0 Plane",
	"Time at Z=0 Plane",
}

// ParamName returns the short name of a parameter index.
func ParamName(i int) string { return paramNames[i] }

// ParamTitle returns the descriptive title of a parameter index.
func ParamTitle(i int) string { return paramTitles[i] }

// DVec is a vector in parameter space. It is a value type; arithmetic
// helpers return new values.
type DVec [NParams]float64

// Add returns v + w.
func (v DVec) Add(w DVec) DVec {
	for i := range v {
		v[i] += w[i]
	}
	return v
}

// Sub returns v - w.
func (v DVec) Sub(w DVec) DVec {
	for i := range v {
		v[i] -= w[i]
	}
	return v
}

// Scale returns v scaled by s.
func (v DVec) Scale(s float64) DVec {
	for i := range v {
		v[i] *= s
	}
	return v
}

// Dot returns the scalar product v · w.
func (v DVec) Dot(w DVec) float64 {
	var sum float64
	for i := range v {
		sum += v[i] * w[i]
	}
	return sum
}

// vecDense adapts v for gonum operations. The returned vector shares no
// storage with v.
func (v DVec) vecDense() *mat.VecDense {
	return mat.NewVecDense(NParams, append([]float64(nil), v[:]...))
}

// Parameters is the parameter-form trajectory state: a parameter vector
// with its symmetric covariance.
type Parameters struct {
	Vec DVec
	Cov *mat.SymDense
}

// NewParameters returns a zero parameter state with a zero covariance.
func NewParameters() Parameters {
	return Parameters{Cov: mat.NewSymDense(NParams, nil)}
}

// NewParametersFrom returns a parameter state with a copy of the given
// covariance.
func NewParametersFrom(vec DVec, cov *mat.SymDense) Parameters {
	c := mat.NewSymDense(NParams, nil)
	if cov != nil {
		c.CopySym(cov)
	}
	return Parameters{Vec: vec, Cov: c}
}

// Clone returns a deep copy.
func (p Parameters) Clone() Parameters {
	return NewParametersFrom(p.Vec, p.Cov)
}

// Weights converts to the information form W = C⁻¹, w = W·P. The
// conversion fails when the covariance is not positive definite.
func (p Parameters) Weights() (Weights, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(p.Cov); !ok {
		return Weights{}, fmt.Errorf("covariance not positive definite: %w", ErrInvalidArgument)
	}
	w := NewWeights()
	if err := ch.InverseTo(w.Mat); err != nil {
		return Weights{}, fmt.Errorf("covariance inversion: %w", err)
	}
	var wv mat.VecDense
	wv.MulVec(w.Mat, p.Vec.vecDense())
	copy(w.Vec[:], wv.RawVector().Data)
	return w, nil
}

// Weights is the information-form trajectory state: W = C⁻¹ and
// w = W·P. Measurements add independently in this form, so the Kalman
// sweeps run on Weights and convert to Parameters only when a trajectory
// piece is materialized.
type Weights struct {
	Vec DVec
	Mat *mat.SymDense
}

// NewWeights returns a zero information state.
func NewWeights() Weights {
	return Weights{Mat: mat.NewSymDense(NParams, nil)}
}

// Clone returns a deep copy.
func (w Weights) Clone() Weights {
	c := NewWeights()
	c.Vec = w.Vec
	c.Mat.CopySym(w.Mat)
	return c
}

// AddWeights accumulates another information contribution in place.
func (w *Weights) AddWeights(o Weights) {
	w.Vec = w.Vec.Add(o.Vec)
	w.Mat.AddSym(w.Mat, o.Mat)
}

// RankOne accumulates scale · (v vᵀ) into the weight matrix and
// scale·rhs · v into the weight vector.
func (w *Weights) RankOne(v DVec, scale, rhs float64) {
	w.Mat.SymRankOne(w.Mat, scale, v.vecDense())
	w.Vec = w.Vec.Add(v.Scale(scale * rhs))
}

// Parameters converts back to the parameter form P = W⁻¹·w, C = W⁻¹.
// The conversion fails when the weight matrix is not positive definite.
func (w Weights) Parameters() (Parameters, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(w.Mat); !ok {
		return Parameters{}, fmt.Errorf("weight matrix not positive definite: %w", ErrInvalidArgument)
	}
	p := NewParameters()
	if err := ch.InverseTo(p.Cov); err != nil {
		return Parameters{}, fmt.Errorf("weight inversion: %w", err)
	}
	var pv mat.VecDense
	if err := ch.SolveVecTo(&pv, w.Vec.vecDense()); err != nil {
		return Parameters{}, fmt.Errorf("weight solve: %w", err)
	}
	copy(p.Vec[:], pv.RawVector().Data)
	return p, nil
}
