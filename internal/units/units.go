// Package units provides the shared physical constants and unit
// conversions used throughout the track fit. All trajectory algebra runs
// in detector units: millimeters, nanoseconds, MeV, and Tesla.
package units

import "math"

// Physical constants (detector units).
const (
	// CLight is the speed of light in mm/ns.
	CLight = 299.792458
	// MmPerCm converts millimeters to centimeters for material tables,
	// which are tabulated per g/cm².
	MmPerCm = 10.0
	// TBuff is the small time buffer (ns) used to disambiguate coincident
	// effects and to keep adjacent trajectory pieces from overlapping.
	TBuff = 1e-6
)

// Unit name constants for CLI and report labelling.
const (
	MeV   = "MeV"
	MM    = "mm"
	NS    = "ns"
	Tesla = "T"
)

// MomToRad returns the conversion factor from transverse momentum in
// MeV/c to curvature radius in mm for the given charge (proton units)
// and nominal field Bz (Tesla). The factor is signed by the charge and
// the field direction.
func MomToRad(charge int, bz float64) float64 {
	return 1000.0 / (float64(charge) * bz * CLight)
}

// ReducedMass returns the particle mass expressed in mm (the natural
// unit for curvature algebra), signed so that it carries the bending
// direction of charge × Bz.
func ReducedMass(mass float64, charge int, bz float64) float64 {
	return -mass * MomToRad(charge, bz)
}

// Beta returns the relativistic velocity fraction for a momentum and
// mass in MeV.
func Beta(mom, mass float64) float64 {
	return mom / math.Sqrt(mom*mom+mass*mass)
}

// Gamma returns the relativistic boost for a momentum and mass in MeV.
func Gamma(mom, mass float64) float64 {
	return math.Sqrt(mom*mom+mass*mass) / mass
}
