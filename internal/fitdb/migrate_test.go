package fitdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/track"
)

// migrationsDir points at the package-local migration files; tests run
// in the package directory.
const migrationsDir = "migrations"

// openMigratable opens a file-backed database without schema
// initialization, so the migrations own the schema.
func openMigratable(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fits.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := openMigratable(t)
	require.NoError(t, db.MigrateUp(migrationsDir))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	// the migrated schema accepts fit runs
	store := NewSQLStore(db)
	run := sampleRun()
	require.NoError(t, store.InsertFitRun(run))
	require.NoError(t, store.InsertFitIteration(run.RunID, track.IterationSummary{
		Iteration: 0, Chisq: 42.0, NDOF: 35, VarianceScale: 1.0,
	}))

	// up again is a no-op
	require.NoError(t, db.MigrateUp(migrationsDir))
}

func TestMigrateDownDropsSchema(t *testing.T) {
	db := openMigratable(t)
	require.NoError(t, db.MigrateUp(migrationsDir))
	require.NoError(t, db.MigrateDown(migrationsDir))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(0), version)

	// the tables are gone
	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='fit_runs'`).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMigrateTo(t *testing.T) {
	db := openMigratable(t)
	require.NoError(t, db.MigrateTo(migrationsDir, 1))

	version, _, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	// migrating to the current version is a no-op
	require.NoError(t, db.MigrateTo(migrationsDir, 1))
}

func TestMigrateForceRecoversVersion(t *testing.T) {
	db := openMigratable(t)
	require.NoError(t, db.MigrateUp(migrationsDir))
	require.NoError(t, db.MigrateForce(migrationsDir, 1))

	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)
}

func TestBaselineSchema(t *testing.T) {
	// a database created through the inline baseline path carries the
	// version-1 schema without a migrations record
	path := filepath.Join(t.TempDir(), "fits.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.BaselineSchema(1))
	version, dirty, err := db.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	// a second baseline must refuse
	require.Error(t, db.BaselineSchema(1))

	// after baselining, up has nothing to do
	require.NoError(t, db.MigrateUp(migrationsDir))
}
