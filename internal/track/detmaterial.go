package track

import (
	"math"

	"github.com/banshee-data/trackfit/internal/units"
)

// Material answers the stochastic-interaction queries the fit needs from
// a materials database: mean and variance of the energy loss over a path
// length, the multiple-scattering angle variance, and the radiation
// fraction. Momentum and mass are in MeV, path lengths in mm except
// RadiationFraction, which takes centimeters (radiation lengths are
// tabulated per g/cm²).
type Material interface {
	EnergyLoss(mom, plen, mass float64) float64
	EnergyLossVar(mom, plen, mass float64) float64
	ScatterAngleVar(mom, plen, mass float64) float64
	RadiationFraction(plenCm float64) float64
}

// DetMaterial is a simple homogeneous material model: a constant
// stopping power with Landau-like fluctuations and Highland multiple
// scattering. It stands in for a full materials database in tests and
// toy studies.
type DetMaterial struct {
	Name string
	// DEdx is the mean stopping power in MeV/mm (positive).
	DEdx float64
	// FluctFrac scales the RMS of the energy-loss fluctuations relative
	// to the mean loss.
	FluctFrac float64
	// RadLength is the radiation length in mm.
	RadLength float64
}

// highlandCoeff is the multiple-scattering coefficient in MeV.
const highlandCoeff = 13.6

// EnergyLoss implements Material. The loss is negative: the particle
// loses energy moving forward in time.
func (m DetMaterial) EnergyLoss(mom, plen, mass float64) float64 {
	beta := units.Beta(mom, mass)
	return -m.DEdx * plen / (beta * beta)
}

// EnergyLossVar implements Material.
func (m DetMaterial) EnergyLossVar(mom, plen, mass float64) float64 {
	rms := m.FluctFrac * m.EnergyLoss(mom, plen, mass)
	return rms * rms
}

// ScatterAngleVar implements Material: the Highland form for the
// projected scattering angle variance.
func (m DetMaterial) ScatterAngleVar(mom, plen, mass float64) float64 {
	if plen <= 0 {
		return 0
	}
	beta := units.Beta(mom, mass)
	xOverX0 := plen / m.RadLength
	theta0 := highlandCoeff / (beta * mom) * math.Sqrt(xOverX0) *
		(1.0 + 0.038*math.Log(xOverX0))
	return theta0 * theta0
}

// RadiationFraction implements Material; plenCm is in centimeters.
func (m DetMaterial) RadiationFraction(plenCm float64) float64 {
	return plenCm * units.MmPerCm / m.RadLength
}
