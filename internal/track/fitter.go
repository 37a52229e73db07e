package track

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// FitStatus is the outcome of a fit.
type FitStatus string

const (
	FitConverged   FitStatus = "converged"
	FitUnconverged FitStatus = "unconverged"
	FitFailed      FitStatus = "failed"
)

// IterationSummary records one meta-iteration for diagnostics and
// persistence.
type IterationSummary struct {
	Iteration     int
	Chisq         float64
	NDOF          int
	VarianceScale float64
}

// FitResult is the outcome of a fit: the final trajectory, the global
// chi-squared and degrees of freedom, the status, and the per-iteration
// history.
type FitResult struct {
	Traj       *ParticleTrajectory
	Chisq      float64
	NDOF       int
	Status     FitStatus
	Iterations int
	History    []IterationSummary
}

// Fitter drives the bidirectional Kalman fit over a time-ordered effect
// list. A fitter owns its effects for the duration of a fit; it is not
// safe for concurrent use, but independent fitters may run on
// independent goroutines.
type Fitter struct {
	cfg     Config
	effects []Effect
}

// NewFitter builds a fitter over the given effects, sorting them by
// time.
func NewFitter(cfg Config, effects []Effect) *Fitter {
	sorted := append([]Effect(nil), effects...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time() < sorted[j].Time() })
	return &Fitter{cfg: cfg, effects: sorted}
}

// Effects returns the time-ordered effect list.
func (f *Fitter) Effects() []Effect { return f.effects }

// Fit runs the meta-iteration loop from the seed trajectory. Each
// iteration re-linearizes every effect against the current reference,
// runs a forward and a backward information sweep, rebuilds the
// trajectory from the smoothed information, and tests the global
// chi-squared for convergence. Annealing multiplies the measurement
// variances by a temperature that cools by AnnealFactor per iteration.
//
// When the information form cannot be inverted, the last good iterate is
// returned with FitUnconverged and ErrUnconverged; the fit never emits
// parameters with a non-positive-definite covariance.
func (f *Fitter) Fit(seed *ParticleTrajectory) (FitResult, error) {
	best := FitResult{Traj: seed, Status: FitUnconverged}
	ref := seed
	vscale := math.Max(1.0, f.cfg.AnnealStart)
	prevChisq := math.Inf(1)
	start := time.Now()

	for iter := 0; iter < f.cfg.MaxFitIter; iter++ {
		if f.cfg.Timeout > 0 && time.Since(start) > f.cfg.Timeout {
			log.Printf("[Fit] wall-clock budget exhausted after %d iterations", iter)
			return best, fmt.Errorf("timeout after %d iterations: %w", iter, ErrUnconverged)
		}
		mi := MetaIterConfig{Iteration: iter, VarianceScale: vscale}

		skip := make(map[Effect]bool)
		for _, eff := range f.effects {
			if err := eff.Update(ref, mi); err != nil {
				if !f.cfg.SkipFailedUpdates {
					return best, err
				}
				log.Printf("[Fit] iteration %d: skipping effect at t %g: %v", iter, eff.Time(), err)
				skip[eff] = true
			}
		}
		// linearization moves the effect times; keep the sweeps ordered
		sort.SliceStable(f.effects, func(i, j int) bool { return f.effects[i].Time() < f.effects[j].Time() })

		prior := f.seedPrior(ref)

		// forward sweep
		fstate := NewFitState()
		fstate.AppendWeights(prior)
		for _, eff := range f.effects {
			if !skip[eff] {
				eff.Process(fstate, Forward)
			}
		}
		// backward sweep
		bstate := NewFitState()
		bstate.AppendWeights(prior)
		for i := len(f.effects) - 1; i >= 0; i-- {
			if eff := f.effects[i]; !skip[eff] {
				eff.Process(bstate, Backward)
			}
		}
		if fstate.Broken() || bstate.Broken() {
			return best, fmt.Errorf("iteration %d: sweep state not invertible: %w", iter, ErrUnconverged)
		}

		// the backward sweep ends holding the full information at the
		// front of the trajectory; it seeds the rebuilt fit
		front, err := bstate.Parameters()
		if err != nil {
			return best, fmt.Errorf("iteration %d: %w: %w", iter, ErrUnconverged, err)
		}
		fp := ref.Front()
		piece, err := NewLoopHelixFromParams(front, fp.Mass(), fp.Charge(), fp.BNom(), ref.Range())
		if err != nil {
			return best, fmt.Errorf("iteration %d: %w: %w", iter, ErrUnconverged, err)
		}
		fit := NewParticleTrajectory(piece)
		for _, eff := range f.effects {
			if skip[eff] {
				continue
			}
			if err := eff.Append(fit); err != nil {
				if !f.cfg.SkipFailedUpdates {
					return best, err
				}
				log.Printf("[Fit] iteration %d: append failed at t %g: %v", iter, eff.Time(), err)
			}
		}

		chisq, ndof := 0.0, -NParams
		for _, eff := range f.effects {
			if skip[eff] {
				continue
			}
			c, n := eff.Chisq(fit.NearestPiece(eff.Time()).Params())
			chisq += c
			ndof += n
		}

		best = FitResult{
			Traj:       fit,
			Chisq:      chisq,
			NDOF:       ndof,
			Status:     FitUnconverged,
			Iterations: iter + 1,
			History: append(best.History, IterationSummary{
				Iteration: iter, Chisq: chisq, NDOF: ndof, VarianceScale: vscale,
			}),
		}
		ref = fit

		// convergence only counts once the annealing has cooled off
		if vscale <= 1.0 && math.Abs(chisq-prevChisq)/math.Max(prevChisq, 1.0) < f.cfg.Tolerance {
			best.Status = FitConverged
			return best, nil
		}
		prevChisq = chisq
		vscale = math.Max(1.0, vscale*f.cfg.AnnealFactor)
	}
	return best, fmt.Errorf("no convergence in %d iterations: %w", f.cfg.MaxFitIter, ErrUnconverged)
}

// seedPrior converts the reference front piece into a heavily deweighted
// information prior. It carries the seed parameters with a covariance
// inflated by SeedDeweight, keeping every intermediate sweep state
// invertible without constraining the fit. A seed without a usable
// covariance falls back to a weak diagonal prior.
func (f *Fitter) seedPrior(ref *ParticleTrajectory) Weights {
	dwt := f.cfg.SeedDeweight
	if dwt <= 0 {
		dwt = 1e6
	}
	pars := ref.Front().Params().Clone()
	pars.Cov.ScaleSym(dwt, pars.Cov)
	if w, err := pars.Weights(); err == nil {
		return w
	}
	// weak diagonal prior about the seed parameters
	w := NewWeights()
	for i := 0; i < NParams; i++ {
		wi := 1.0 / dwt
		w.Mat.SetSym(i, i, wi)
		w.Vec[i] = wi * pars.Vec[i]
	}
	return w
}
