package track

import "time"

// Config holds the fit and closest-approach tuning for one fit. The
// zero value is not useful; start from DefaultConfig.
type Config struct {
	// Prec is the closest-approach convergence precision in mm.
	Prec float64
	// MaxCAIter caps the closest-approach iterations.
	MaxCAIter int
	// MaxFitIter caps the meta-iterations.
	MaxFitIter int
	// AnnealStart is the initial variance scale (annealing temperature).
	AnnealStart float64
	// AnnealFactor scales the temperature between meta-iterations.
	AnnealFactor float64
	// Tolerance is the relative chi-squared change below which the fit
	// converges.
	Tolerance float64
	// AmbigDoca is the |DOCA| in mm above which a drift hit's left-right
	// ambiguity is resolved.
	AmbigDoca float64
	// RefreshCAHint re-seeds closest-approach solves from the previous
	// solution instead of the sensor time. Off by default: a poor seed
	// can lock the solve onto the wrong helix loop.
	RefreshCAHint bool
	// SkipFailedUpdates deactivates an effect whose update fails for the
	// remainder of the iteration instead of aborting the fit.
	SkipFailedUpdates bool
	// SeedDeweight inflates the seed covariance used as the sweep prior,
	// keeping the information state invertible without biasing the fit.
	SeedDeweight float64
	// Timeout bounds the wall-clock budget of one fit; zero disables.
	// On exhaustion the best fit so far is returned as unconverged.
	Timeout time.Duration
}

// DefaultConfig returns the production-default fit configuration.
func DefaultConfig() Config {
	return Config{
		Prec:              DefaultCAPrec,
		MaxCAIter:         DefaultMaxCAIter,
		MaxFitIter:        10,
		AnnealStart:       1.0,
		AnnealFactor:      0.5,
		Tolerance:         1e-3,
		AmbigDoca:         0.5,
		RefreshCAHint:     false,
		SkipFailedUpdates: true,
		SeedDeweight:      1e6,
	}
}

// MetaIterConfig is the per-meta-iteration configuration handed to every
// effect at the start of an iteration.
type MetaIterConfig struct {
	Iteration int
	// VarianceScale multiplies all measurement variances; temperatures
	// above one widen the basin of attraction early in the fit.
	VarianceScale float64
}
