package fitdb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trackfit/internal/track"
)

// FitRun is one persisted fit outcome.
type FitRun struct {
	RunID     string
	CreatedAt time.Time

	// Generator configuration
	Momentum float64
	Charge   int
	Mass     float64
	BNom     float64
	NHits    int
	GenSeed  int64

	// Fit outcome
	Status     string
	Chisq      float64
	NDOF       int
	Iterations int
	Params     track.DVec
	Errors     track.DVec
}

// Store defines the persistence operations for fit results.
type Store interface {
	InsertFitRun(run *FitRun) error
	InsertFitIteration(runID string, it track.IterationSummary) error
	GetFitRun(runID string) (*FitRun, error)
	ListFitRuns(limit int) ([]*FitRun, error)
	GetFitIterations(runID string) ([]track.IterationSummary, error)
	DeleteFitRun(runID string) error
}

// SQLStore implements Store over the fitdb schema.
type SQLStore struct {
	db *DB
}

// NewSQLStore wraps a database handle.
func NewSQLStore(db *DB) *SQLStore { return &SQLStore{db: db} }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.New().String() }

// RecordResult assembles a FitRun from a fit result and stores it with
// its iteration history.
func (s *SQLStore) RecordResult(run *FitRun, res track.FitResult) error {
	run.Status = string(res.Status)
	run.Chisq = res.Chisq
	run.NDOF = res.NDOF
	run.Iterations = res.Iterations
	pars := res.Traj.Front().Params()
	run.Params = pars.Vec
	for i := 0; i < track.NParams; i++ {
		run.Errors[i] = math.Sqrt(math.Max(0, pars.Cov.At(i, i)))
	}
	if err := s.InsertFitRun(run); err != nil {
		return err
	}
	for _, it := range res.History {
		if err := s.InsertFitIteration(run.RunID, it); err != nil {
			return err
		}
	}
	return nil
}

// InsertFitRun implements Store.
func (s *SQLStore) InsertFitRun(run *FitRun) error {
	if run.RunID == "" {
		run.RunID = NewRunID()
	}
	query := `
		INSERT INTO fit_runs (
			run_id, momentum, charge, mass, bnom, nhits, gen_seed,
			status, chisq, ndof, iterations,
			par_radius, par_lambda, par_center_x, par_center_y, par_phi0, par_time0,
			err_radius, err_lambda, err_center_x, err_center_y, err_phi0, err_time0
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.RunID, run.Momentum, run.Charge, run.Mass, run.BNom, run.NHits, run.GenSeed,
		run.Status, run.Chisq, run.NDOF, run.Iterations,
		run.Params[track.IdxRad], run.Params[track.IdxLam],
		run.Params[track.IdxCx], run.Params[track.IdxCy],
		run.Params[track.IdxPhi0], run.Params[track.IdxT0],
		run.Errors[track.IdxRad], run.Errors[track.IdxLam],
		run.Errors[track.IdxCx], run.Errors[track.IdxCy],
		run.Errors[track.IdxPhi0], run.Errors[track.IdxT0],
	)
	if err != nil {
		return fmt.Errorf("failed to insert fit run %s: %w", run.RunID, err)
	}
	return nil
}

// InsertFitIteration implements Store.
func (s *SQLStore) InsertFitIteration(runID string, it track.IterationSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO fit_iterations (run_id, iteration, chisq, ndof, variance_scale)
		VALUES (?, ?, ?, ?, ?)
	`, runID, it.Iteration, it.Chisq, it.NDOF, it.VarianceScale)
	if err != nil {
		return fmt.Errorf("failed to insert iteration %d of run %s: %w", it.Iteration, runID, err)
	}
	return nil
}

// GetFitRun implements Store.
func (s *SQLStore) GetFitRun(runID string) (*FitRun, error) {
	row := s.db.QueryRow(`
		SELECT run_id, created_at, momentum, charge, mass, bnom, nhits, gen_seed,
			status, chisq, ndof, iterations,
			par_radius, par_lambda, par_center_x, par_center_y, par_phi0, par_time0,
			err_radius, err_lambda, err_center_x, err_center_y, err_phi0, err_time0
		FROM fit_runs WHERE run_id = ?
	`, runID)
	run, err := scanFitRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fit run %s not found", runID)
	}
	return run, err
}

// ListFitRuns implements Store, newest first.
func (s *SQLStore) ListFitRuns(limit int) ([]*FitRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT run_id, created_at, momentum, charge, mass, bnom, nhits, gen_seed,
			status, chisq, ndof, iterations,
			par_radius, par_lambda, par_center_x, par_center_y, par_phi0, par_time0,
			err_radius, err_lambda, err_center_x, err_center_y, err_phi0, err_time0
		FROM fit_runs ORDER BY created_at DESC, run_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fit runs: %w", err)
	}
	defer rows.Close()

	var runs []*FitRun
	for rows.Next() {
		run, err := scanFitRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetFitIterations implements Store, in iteration order.
func (s *SQLStore) GetFitIterations(runID string) ([]track.IterationSummary, error) {
	rows, err := s.db.Query(`
		SELECT iteration, chisq, ndof, variance_scale
		FROM fit_iterations WHERE run_id = ? ORDER BY iteration
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations of %s: %w", runID, err)
	}
	defer rows.Close()

	var its []track.IterationSummary
	for rows.Next() {
		var it track.IterationSummary
		if err := rows.Scan(&it.Iteration, &it.Chisq, &it.NDOF, &it.VarianceScale); err != nil {
			return nil, err
		}
		its = append(its, it)
	}
	return its, rows.Err()
}

// DeleteFitRun implements Store, removing the run and its iterations.
func (s *SQLStore) DeleteFitRun(runID string) error {
	if _, err := s.db.Exec(`DELETE FROM fit_iterations WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete iterations of %s: %w", runID, err)
	}
	if _, err := s.db.Exec(`DELETE FROM fit_runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete fit run %s: %w", runID, err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFitRun(row scanner) (*FitRun, error) {
	var run FitRun
	err := row.Scan(
		&run.RunID, &run.CreatedAt, &run.Momentum, &run.Charge, &run.Mass, &run.BNom,
		&run.NHits, &run.GenSeed,
		&run.Status, &run.Chisq, &run.NDOF, &run.Iterations,
		&run.Params[track.IdxRad], &run.Params[track.IdxLam],
		&run.Params[track.IdxCx], &run.Params[track.IdxCy],
		&run.Params[track.IdxPhi0], &run.Params[track.IdxT0],
		&run.Errors[track.IdxRad], &run.Errors[track.IdxLam],
		&run.Errors[track.IdxCx], &run.Errors[track.IdxCy],
		&run.Errors[track.IdxPhi0], &run.Errors[track.IdxT0],
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan fit run: %w", err)
	}
	return &run, nil
}
