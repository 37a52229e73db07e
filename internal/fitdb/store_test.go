package fitdb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/track"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun() *FitRun {
	return &FitRun{
		Momentum: 105.0,
		Charge:   -1,
		Mass:     0.511,
		BNom:     1.0,
		NHits:    40,
		GenSeed:  124223,
		Status:   string(track.FitConverged),
		Chisq:    38.2,
		NDOF:     35,
		Params:   track.DVec{250.2, 245.1, -70.3, 101.7, 0.5, 0.0},
		Errors:   track.DVec{0.05, 0.05, 0.08, 0.08, 3e-4, 2e-3},
	}
}

func TestInsertAndGetFitRun(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	run := sampleRun()
	require.NoError(t, store.InsertFitRun(run))
	require.NotEmpty(t, run.RunID, "insert must assign a run ID")

	got, err := store.GetFitRun(run.RunID)
	require.NoError(t, err)
	// the store assigns the creation timestamp
	got.CreatedAt = run.CreatedAt
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("fit run round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFitRunMissing(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	_, err := store.GetFitRun("no-such-run")
	require.Error(t, err)
}

func TestListFitRuns(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	for i := 0; i < 3; i++ {
		run := sampleRun()
		run.NHits = 10 + i
		require.NoError(t, store.InsertFitRun(run))
	}
	runs, err := store.ListFitRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	limited, err := store.ListFitRuns(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestIterationsRoundTrip(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	run := sampleRun()
	require.NoError(t, store.InsertFitRun(run))

	history := []track.IterationSummary{
		{Iteration: 0, Chisq: 120.0, NDOF: 35, VarianceScale: 4.0},
		{Iteration: 1, Chisq: 52.0, NDOF: 35, VarianceScale: 2.0},
		{Iteration: 2, Chisq: 38.2, NDOF: 35, VarianceScale: 1.0},
	}
	for _, it := range history {
		require.NoError(t, store.InsertFitIteration(run.RunID, it))
	}
	got, err := store.GetFitIterations(run.RunID)
	require.NoError(t, err)
	require.Equal(t, history, got)
}

func TestDeleteFitRun(t *testing.T) {
	store := NewSQLStore(openTestDB(t))
	run := sampleRun()
	require.NoError(t, store.InsertFitRun(run))
	require.NoError(t, store.InsertFitIteration(run.RunID, track.IterationSummary{Iteration: 0, Chisq: 1.0, NDOF: 1, VarianceScale: 1.0}))

	require.NoError(t, store.DeleteFitRun(run.RunID))
	_, err := store.GetFitRun(run.RunID)
	require.Error(t, err)
	its, err := store.GetFitIterations(run.RunID)
	require.NoError(t, err)
	require.Empty(t, its)
}
