// Package toymc generates simulated particles, detector hits, and
// material crossings for fit drivers and studies. The generator lays
// drift wires along a true trajectory, smears the measured times, and
// optionally degrades the particle at each tube wall, producing a
// piecewise truth against which fitted parameters can be pulled.
package toymc

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/banshee-data/trackfit/internal/geom"
	"github.com/banshee-data/trackfit/internal/track"
	"github.com/banshee-data/trackfit/internal/units"
)

// Config holds the generator parameters.
type Config struct {
	Mom      float64 // MeV/c
	CosTheta float64 // polar direction cosine
	Phi      float64 // azimuth of the initial momentum
	Charge   int
	Mass     float64 // MeV/c²
	BNom     float64 // Tesla

	NHits      int
	TMin, TMax float64 // hit time span, ns
	Seed       int64
	Smear      bool // smear measured times
	LightHit   bool // add a scintillator hit past TMax
	Material   bool // simulate tube-wall material

	DriftVelocity float64 // mm/ns
	DriftTimeRMS  float64 // ns
	ScintTimeVar  float64 // ns²
	ScintWidthVar float64 // mm²
	TubeRadius    float64 // mm
	WallThickness float64 // mm

	// SeedSigma offsets each seed parameter by this many sigma of the
	// seed covariance.
	SeedSigma float64
}

// DefaultConfig returns the canonical toy: a 105 MeV/c electron in a
// 1 T field with 40 drift hits and a light hit.
func DefaultConfig() Config {
	return Config{
		Mom:           105.0,
		CosTheta:      0.7,
		Phi:           0.5,
		Charge:        -1,
		Mass:          0.511,
		BNom:          1.0,
		NHits:         40,
		TMin:          -10.0,
		TMax:          10.0,
		Seed:          124223,
		Smear:         true,
		LightHit:      true,
		Material:      false,
		DriftVelocity: 1.0,
		DriftTimeRMS:  0.1,
		ScintTimeVar:  0.0625,
		ScintWidthVar: 4.0,
		TubeRadius:    2.5,
		WallThickness: 0.05,
		SeedSigma:     1.0,
	}
}

// seedSpread is the per-parameter scale of the seed covariance.
var seedSpread = track.DVec{2.0, 2.0, 2.0, 2.0, 0.005, 0.05}

// tubeMaterial is the thin-wall material of the toy drift tubes.
var tubeMaterial = track.DetMaterial{
	Name:      "mylar",
	DEdx:      0.2,
	FluctFrac: 0.2,
	RadLength: 285.0,
}

// Event is one generated particle with its measurements.
type Event struct {
	Truth   *track.ParticleTrajectory
	Seed    *track.ParticleTrajectory
	Hits    []track.Hit
	Xings   []track.ElementXing
	Effects []track.Effect
}

// Generate builds an event under the given generator and fit
// configurations.
func Generate(cfg Config, fitCfg track.Config) (*Event, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	// the nominal field is the map value at the origin
	field := track.NewUniformBField(cfg.BNom)
	bz := field.FieldAt(geom.Vec3{}).Z
	sint := math.Sqrt(1.0 - cfg.CosTheta*cfg.CosTheta)
	mom := geom.Mom4{
		X: cfg.Mom * sint * math.Cos(cfg.Phi),
		Y: cfg.Mom * sint * math.Sin(cfg.Phi),
		Z: cfg.Mom * cfg.CosTheta,
		M: cfg.Mass,
	}
	span := track.NewTimeRange(cfg.TMin-5.0, cfg.TMax+5.0)
	front, err := track.NewLoopHelix(geom.Vec4{}, mom, cfg.Charge, bz, span)
	if err != nil {
		return nil, fmt.Errorf("toy truth: %w", err)
	}
	truth := track.NewParticleTrajectory(front)
	calib := track.DriftCalib{Velocity: cfg.DriftVelocity, TimeRMS: cfg.DriftTimeRMS}

	ev := &Event{Truth: truth}
	for i := 0; i < cfg.NHits; i++ {
		tv := cfg.TMin + (cfg.TMax-cfg.TMin)*float64(i)/float64(cfg.NHits-1)
		piece := truth.Back()
		eta := float64(i) * 1.3
		doca := 1.0 + (cfg.TubeRadius-1.4)*float64(i%3)/2.0
		if i%2 == 1 {
			doca = -doca
		}
		wire, err := toyWire(piece, tv, doca, eta, calib, smear(rng, cfg, calib.TimeRMS))
		if err != nil {
			return nil, err
		}
		hit, err := track.NewDriftHit(wire, calib, piece, fitCfg)
		if err != nil {
			return nil, fmt.Errorf("toy drift hit %d: %w", i, err)
		}
		ev.Hits = append(ev.Hits, hit)
		ev.Effects = append(ev.Effects, track.NewMeasurement(hit))

		if cfg.Material {
			xing, err := track.NewTubeXing(wire, tubeMaterial, cfg.TubeRadius, cfg.WallThickness, piece, fitCfg)
			if err != nil {
				return nil, fmt.Errorf("toy tube crossing %d: %w", i, err)
			}
			ev.Xings = append(ev.Xings, xing)
			mateff, err := track.NewMaterialEffect(xing, truth)
			if err != nil {
				return nil, fmt.Errorf("toy material effect %d: %w", i, err)
			}
			ev.Effects = append(ev.Effects, mateff)
			if err := degrade(truth, xing, tv); err != nil {
				return nil, err
			}
		}
	}
	if cfg.LightHit {
		piece := truth.Back()
		tv := cfg.TMax + 1.0
		axis, err := scintAxis(piece, tv, 2.0, smear(rng, cfg, math.Sqrt(cfg.ScintTimeVar)))
		if err != nil {
			return nil, err
		}
		shit, err := track.NewScintHit(axis, cfg.ScintTimeVar, cfg.ScintWidthVar, piece, fitCfg)
		if err != nil {
			return nil, fmt.Errorf("toy scint hit: %w", err)
		}
		ev.Hits = append(ev.Hits, shit)
		ev.Effects = append(ev.Effects, track.NewMeasurement(shit))
	}

	seed, err := perturbedSeed(truth, cfg, rng)
	if err != nil {
		return nil, err
	}
	ev.Seed = seed
	return ev, nil
}

func smear(rng *rand.Rand, cfg Config, sigma float64) float64 {
	if !cfg.Smear {
		return 0
	}
	return sigma * rng.NormFloat64()
}

// toyWire anchors a drift wire at the given signed DOCA from the
// trajectory; its time carries the true drift time plus the smear.
func toyWire(h *track.LoopHelix, tv, doca, eta float64, calib track.DriftCalib, tshift float64) (track.Line, error) {
	pos := h.Position3(tv)
	perp1, err := h.Direction(tv, track.PerpDir)
	if err != nil {
		return track.Line{}, err
	}
	perp2, err := h.Direction(tv, track.PhiDir)
	if err != nil {
		return track.Line{}, err
	}
	docadir := perp1.Scale(math.Cos(eta)).Add(perp2.Scale(math.Sin(eta)))
	wdir := perp1.Scale(math.Sin(eta)).Sub(perp2.Scale(math.Cos(eta)))
	t0 := tv + math.Abs(doca)/calib.Velocity + tshift
	return track.NewLine(pos.Add(docadir.Scale(doca)), t0, wdir.Scale(0.8*units.CLight), 1000.0)
}

// scintAxis builds a scintillator sensor perpendicular to the trajectory
// whose anchor time is the true particle time plus the smear.
func scintAxis(h *track.LoopHelix, tv, gap float64, tshift float64) (track.Line, error) {
	pos := h.Position3(tv)
	perp1, err := h.Direction(tv, track.PerpDir)
	if err != nil {
		return track.Line{}, err
	}
	perp2, err := h.Direction(tv, track.PhiDir)
	if err != nil {
		return track.Line{}, err
	}
	return track.NewLine(pos.Add(perp1.Scale(gap)), tv+tshift, perp2.Scale(0.7*units.CLight), 1000.0)
}

// degrade applies the material's mean momentum loss to the truth at the
// crossing, appending a kicked trajectory piece.
func degrade(truth *track.ParticleTrajectory, xing track.ElementXing, tv float64) error {
	piece := truth.Back()
	dmom, _ := track.MaterialEffects(xing, piece.Momentum(), piece.Mass(), track.Forward)
	if dmom[track.MomDir] == 0 {
		return nil
	}
	der, err := piece.MomDeriv(tv, track.MomDir)
	if err != nil {
		return err
	}
	pars := piece.Params().Clone()
	pars.Vec = pars.Vec.Add(der.Scale(dmom[track.MomDir]))
	kicked, err := track.NewLoopHelixFromParams(pars, piece.Mass(), piece.Charge(), piece.BNom(), track.NewTimeRange(tv, truth.Range().End))
	if err != nil {
		return fmt.Errorf("toy degrade at t %g: %w", tv, err)
	}
	truth.Append(kicked)
	return nil
}

// perturbedSeed offsets the truth front parameters by SeedSigma draws of
// the seed covariance.
func perturbedSeed(truth *track.ParticleTrajectory, cfg Config, rng *rand.Rand) (*track.ParticleTrajectory, error) {
	front := truth.Front()
	pars := front.Params().Clone()
	for i := 0; i < track.NParams; i++ {
		pars.Cov.SetSym(i, i, seedSpread[i]*seedSpread[i])
		pars.Vec[i] += cfg.SeedSigma * seedSpread[i] * rng.NormFloat64()
	}
	piece, err := track.NewLoopHelixFromParams(pars, front.Mass(), front.Charge(), front.BNom(), truth.Range())
	if err != nil {
		return nil, fmt.Errorf("toy seed: %w", err)
	}
	return track.NewParticleTrajectory(piece), nil
}
