// Command trackfit runs kinematic Kalman fits over toy Monte Carlo
// events: it generates a particle with smeared drift-tube and
// scintillator measurements, fits it from a perturbed seed, and reports
// (optionally persists and plots) the outcome.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/trackfit/internal/fitdb"
	"github.com/banshee-data/trackfit/internal/monitor"
	"github.com/banshee-data/trackfit/internal/toymc"
	"github.com/banshee-data/trackfit/internal/track"
)

var (
	momentum     = flag.Float64("momentum", 105.0, "Particle momentum in MeV/c")
	charge       = flag.Int("charge", -1, "Particle charge in proton units")
	mass         = flag.Float64("mass", 0.511, "Particle mass in MeV/c²")
	cost         = flag.Float64("costheta", 0.7, "Polar direction cosine of the momentum")
	bnom         = flag.Float64("bnom", 1.0, "Nominal field Bz in Tesla")
	nhits        = flag.Int("nhits", 40, "Number of drift-tube hits")
	genSeed      = flag.Int64("seed", 124223, "Toy generator random seed")
	nosmear      = flag.Bool("nosmear", false, "Disable measurement smearing")
	lightHit     = flag.Bool("lighthit", true, "Add a scintillator time hit")
	simmat       = flag.Bool("simmat", false, "Simulate tube-wall material")
	seedSigma    = flag.Float64("seed-sigma", 1.0, "Seed perturbation in sigma")
	prec         = flag.Float64("prec", track.DefaultCAPrec, "Closest-approach precision in mm")
	ambigDoca    = flag.Float64("ambig-doca", 0.5, "DOCA above which drift ambiguity is resolved (mm)")
	maxIter      = flag.Int("max-iter", 10, "Maximum fit meta-iterations")
	annealStart  = flag.Float64("anneal-start", 1.0, "Initial annealing variance scale")
	annealFactor = flag.Float64("anneal-factor", 0.5, "Annealing cooling factor per iteration")
	tolerance    = flag.Float64("tolerance", 1e-3, "Relative chi² convergence tolerance")
	dbFile       = flag.String("db", "", "SQLite file to persist the fit run (empty: no persistence)")
	plotDir      = flag.String("plots", "", "Directory for diagnostic plots (empty: no plots)")
	report       = flag.String("report", "", "Path for the HTML fit report (empty: no report)")
	migrateDir   = flag.String("migrations", "internal/fitdb/migrations", "Directory with the database migration files")
)

func main() {
	flag.Parse()

	// subcommands: 'migrate <action>' manages the fit database schema
	if flag.Arg(0) == "migrate" {
		if *dbFile == "" {
			log.Fatal("[migrate] -db is required for the migrate subcommand")
		}
		fitdb.RunMigrateCommand(flag.Args()[1:], *dbFile, *migrateDir)
		return
	}

	genCfg := toymc.DefaultConfig()
	genCfg.Mom = *momentum
	genCfg.Charge = *charge
	genCfg.Mass = *mass
	genCfg.CosTheta = *cost
	genCfg.BNom = *bnom
	genCfg.NHits = *nhits
	genCfg.Seed = *genSeed
	genCfg.Smear = !*nosmear
	genCfg.LightHit = *lightHit
	genCfg.Material = *simmat
	genCfg.SeedSigma = *seedSigma

	fitCfg := track.DefaultConfig()
	fitCfg.Prec = *prec
	fitCfg.AmbigDoca = *ambigDoca
	fitCfg.MaxFitIter = *maxIter
	fitCfg.AnnealStart = *annealStart
	fitCfg.AnnealFactor = *annealFactor
	fitCfg.Tolerance = *tolerance

	ev, err := toymc.Generate(genCfg, fitCfg)
	if err != nil {
		log.Fatalf("[ToyMC] generation failed: %v", err)
	}
	log.Printf("[ToyMC] generated %d hits, %d crossings, truth %v",
		len(ev.Hits), len(ev.Xings), ev.Truth)

	fitter := track.NewFitter(fitCfg, ev.Effects)
	res, err := fitter.Fit(ev.Seed)
	if err != nil {
		log.Printf("[Fit] %v", err)
	}
	log.Printf("[Fit] status %s after %d iterations: chi²/ndof = %.2f/%d",
		res.Status, res.Iterations, res.Chisq, res.NDOF)

	truth := ev.Truth.Front().Params().Vec
	fitted := res.Traj.Front().Params()
	for i := 0; i < track.NParams; i++ {
		sigma := math.Sqrt(math.Max(0, fitted.Cov.At(i, i)))
		log.Printf("[Fit] %-8s fit %12.5g ± %-10.4g truth %12.5g",
			track.ParamName(i), fitted.Vec[i], sigma, truth[i])
	}

	sum := summarize(ev, res)

	if *dbFile != "" {
		if err := persist(*dbFile, genCfg, res, sum.RunID); err != nil {
			log.Fatalf("[Store] %v", err)
		}
		log.Printf("[Store] recorded run %s in %s", sum.RunID, *dbFile)
	}
	if *plotDir != "" {
		if err := writePlots(*plotDir, sum); err != nil {
			log.Fatalf("[Monitor] %v", err)
		}
		log.Printf("[Monitor] plots written to %s", *plotDir)
	}
	if *report != "" {
		if err := monitor.WriteFitReportFile(*report, sum); err != nil {
			log.Fatalf("[Monitor] %v", err)
		}
		log.Printf("[Monitor] report written to %s", *report)
	}

	if res.Status != track.FitConverged {
		os.Exit(1)
	}
}

// summarize collects the truth comparison and residual pulls for the
// diagnostics.
func summarize(ev *toymc.Event, res track.FitResult) monitor.FitSummary {
	sum := monitor.FitSummary{
		RunID:   fitdb.NewRunID(),
		Truth:   ev.Truth.Front().Params().Vec,
		History: res.History,
	}
	fitted := res.Traj.Front().Params()
	sum.Fitted = fitted.Vec
	for i := 0; i < track.NParams; i++ {
		sum.Errors[i] = math.Sqrt(math.Max(0, fitted.Cov.At(i, i)))
	}
	for _, hit := range ev.Hits {
		if !hit.Active() {
			continue
		}
		if r, err := hit.Residual(0); err == nil && r.Variance > 0 {
			sum.Pulls = append(sum.Pulls, r.Pull())
		}
	}
	return sum
}

func persist(path string, genCfg toymc.Config, res track.FitResult, runID string) error {
	db, err := fitdb.NewDB(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()
	store := fitdb.NewSQLStore(db)
	run := &fitdb.FitRun{
		RunID:    runID,
		Momentum: genCfg.Mom,
		Charge:   genCfg.Charge,
		Mass:     genCfg.Mass,
		BNom:     genCfg.BNom,
		NHits:    genCfg.NHits,
		GenSeed:  genCfg.Seed,
	}
	return store.RecordResult(run, res)
}

func writePlots(dir string, sum monitor.FitSummary) error {
	if err := monitor.ConvergencePlot(sum.History, filepath.Join(dir, "convergence.png")); err != nil {
		return err
	}
	return monitor.PullPlot(sum.Pulls, "Residual pulls", filepath.Join(dir, "pulls.png"))
}
