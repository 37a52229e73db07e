package track

import (
	"fmt"
	"math"
)

// Residual is a single measurement comparison: a signed time difference
// (DriftHit: measured minus predicted drift time; ScintHit: particle
// minus sensor time at closest approach), its variance, and the
// derivative of the residual with
// respect to the trajectory parameters. By convention DRdP is the
// NEGATIVE of d(value)/d(params): it answers how much the reference
// parameters must move to zero the residual.
type Residual struct {
	Value    float64
	Variance float64
	DRdP     DVec
}

// Pull returns the residual normalized by its uncertainty.
func (r Residual) Pull() float64 {
	if r.Variance <= 0 {
		return 0
	}
	return r.Value / math.Sqrt(r.Variance)
}

func (r Residual) String() string {
	return fmt.Sprintf("Residual{value: %.4g, variance: %.4g}", r.Value, r.Variance)
}
