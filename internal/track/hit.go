package track

// Hit is a detector measurement that can linearize itself against a
// reference trajectory piece and contribute information to the fit.
// Implementations cache their closest-approach state and refresh it each
// meta-iteration through UpdateReference.
type Hit interface {
	// Time returns the particle time this hit constrains.
	Time() float64
	// Active reports whether the hit currently contributes.
	Active() bool
	// NResid returns the number of residuals the hit owns.
	NResid() int
	// Residual returns residual i; inactive residuals have zero weight.
	Residual(i int) (Residual, error)
	// UpdateReference recomputes the closest approach and residuals
	// against a new reference piece. A failed solve returns an error
	// wrapping ErrPCAFailure.
	UpdateReference(piece *LoopHelix) error
	// UpdateState applies per-meta-iteration configuration such as the
	// annealing variance scale.
	UpdateState(mi MetaIterConfig)
	// Weight returns the information contribution of this hit relative
	// to its reference parameters.
	Weight() Weights
	// Chisq evaluates the hit's chi-squared contribution for the given
	// parameters, returning the contribution and its degrees of freedom.
	Chisq(p Parameters) (float64, int)
}

// hitWeight assembles the information contribution of a set of residuals
// in the absolute-parameter convention: each residual r with derivative
// dRdP (= -d value/d params) about reference parameters P0 contributes
//
//	W += dRdP dRdPᵀ/σ²    w += dRdP (dRdP·P0 + r)/σ²
//
// scaled by the annealing weight scale.
func hitWeight(ref Parameters, wscale float64, resids []Residual) Weights {
	w := NewWeights()
	for _, r := range resids {
		if r.Variance <= 0 {
			continue
		}
		scale := wscale / r.Variance
		rhs := r.DRdP.Dot(ref.Vec) + r.Value
		w.RankOne(r.DRdP, scale, rhs)
	}
	return w
}

// hitChisq evaluates the chi-squared of a set of residuals extrapolated
// to the given parameters: value(P) = value0 - dRdP·(P - P0).
func hitChisq(ref Parameters, resids []Residual, p Parameters) (float64, int) {
	var chi2 float64
	var ndof int
	for _, r := range resids {
		if r.Variance <= 0 {
			continue
		}
		dp := p.Vec.Sub(ref.Vec)
		dr := r.Value - r.DRdP.Dot(dp)
		chi2 += dr * dr / r.Variance
		ndof++
	}
	return chi2, ndof
}
