package toymc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/track"
)

func TestGenerateNoiseless(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smear = false
	cfg.Material = false
	cfg.SeedSigma = 0.2
	ev, err := Generate(cfg, track.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, ev.Hits, cfg.NHits+1) // drift hits plus the light hit
	require.Len(t, ev.Effects, cfg.NHits+1)
	require.NotNil(t, ev.Seed)

	// unsmeared hits sit on the truth
	for i, hit := range ev.Hits {
		res, err := hit.Residual(0)
		require.NoError(t, err)
		require.Lessf(t, math.Abs(res.Value), 1e-5, "hit %d residual %v", i, res.Value)
	}
	// the seed is perturbed away from the truth
	truthVec := ev.Truth.Front().Params().Vec
	seedVec := ev.Seed.Front().Params().Vec
	var moved bool
	for i := 0; i < track.NParams; i++ {
		if math.Abs(truthVec[i]-seedVec[i]) > 1e-6 {
			moved = true
		}
	}
	require.True(t, moved, "seed must differ from truth")
}

func TestGenerateWithMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smear = false
	cfg.Material = true
	cfg.NHits = 10
	ev, err := Generate(cfg, track.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, ev.Xings, cfg.NHits)
	// one measurement and one material effect per wire, plus the light hit
	require.Len(t, ev.Effects, 2*cfg.NHits+1)
	// the truth picks up one piece per wall crossing
	require.Greater(t, len(ev.Truth.Pieces()), 1)
	// momentum decreases monotonically along the truth
	pieces := ev.Truth.Pieces()
	for i := 1; i < len(pieces); i++ {
		require.LessOrEqual(t, pieces[i].Momentum(), pieces[i-1].Momentum(),
			"momentum must not grow across material")
	}
	// position stays continuous at each piece boundary to first order in
	// the per-wall momentum loss
	for i := 1; i < len(pieces); i++ {
		tb := pieces[i].Range().Begin
		gap := pieces[i].Position3(tb).Sub(pieces[i-1].Position3(tb)).Mag()
		require.Lessf(t, gap, 1e-3, "piece %d boundary gap %v", i, gap)
	}
}

func TestGenerateFitRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smear = false
	cfg.SeedSigma = 0.2
	cfg.NHits = 30
	fitCfg := track.DefaultConfig()
	ev, err := Generate(cfg, fitCfg)
	require.NoError(t, err)

	fitter := track.NewFitter(fitCfg, ev.Effects)
	res, err := fitter.Fit(ev.Seed)
	require.NoError(t, err)
	require.Equal(t, track.FitConverged, res.Status)

	truth := ev.Truth.Front().Params().Vec
	got := res.Traj.Front().Params().Vec
	tols := track.DVec{1e-2, 1e-2, 1e-2, 1e-2, 1e-4, 1e-3}
	for i := 0; i < track.NParams; i++ {
		require.Lessf(t, math.Abs(got[i]-truth[i]), tols[i],
			"%s: fit %v truth %v", track.ParamName(i), got[i], truth[i])
	}
}
