// Package storage keeps a SQLite log of tracking runs and the trajectories
// driven during them.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gwillem/pathtrack/pkg/trajectory"
)

//go:embed schema.sql
var schemaSQL string

// Run describes a tracking run.
type Run struct {
	ID           int64
	StartTime    time.Time
	EndTime      sql.NullTime
	PathSource   string
	RobotURL     string
	Steering     string
	SpeedProfile string
	Adaptive     bool
	LookAhead    float64
	Cycles       sql.NullInt64
	Commands     sql.NullInt64
	Error        sql.NullString
}

// RunResult is written when a run ends.
type RunResult struct {
	Cycles   int
	Commands int
	Err      error
}

// Store handles database operations
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New returns a store backed by the SQLite file at dbPath. Connections are
// opened lazily; the schema is created on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = errors.Wrap(err, "opening write connection")
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = errors.Wrap(err, "initializing schema")
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = errors.Wrap(err, "opening read connection")
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

const insertRunSQL = `
INSERT INTO runs (start_time, path_source, robot_url, steering, speed_profile, adaptive, look_ahead)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const insertWaypointSQL = `
INSERT INTO waypoints (run_id, seq, x, y, z)
VALUES (?, ?, ?, ?, ?)`

// CreateRun stores a new run together with its reference path and returns
// the run ID.
func (s *Store) CreateRun(ctx context.Context, run Run, reference []r3.Vector) (runID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return 0, errors.Wrap(err, "getting write connection")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	result, err := tx.ExecContext(ctx, insertRunSQL,
		run.StartTime.UTC(),
		run.PathSource,
		run.RobotURL,
		run.Steering,
		run.SpeedProfile,
		run.Adaptive,
		run.LookAhead,
	)
	if err != nil {
		return 0, errors.Wrap(err, "inserting run")
	}
	if runID, err = result.LastInsertId(); err != nil {
		return 0, errors.Wrap(err, "reading run id")
	}

	stmt, err := tx.PrepareContext(ctx, insertWaypointSQL)
	if err != nil {
		return 0, errors.Wrap(err, "preparing statement")
	}
	defer func() {
		err = multierr.Append(err, stmt.Close())
	}()

	for i, p := range reference {
		if _, err = stmt.ExecContext(ctx, runID, i, p.X, p.Y, p.Z); err != nil {
			return 0, errors.Wrap(err, "inserting waypoint")
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing transaction")
	}
	return runID, nil
}

const insertSampleSQL = `
INSERT INTO samples (run_id, timestamp, x, y, z)
VALUES (?, ?, ?, ?, ?)`

// InsertSamples inserts trajectory samples in a single transaction.
func (s *Store) InsertSamples(ctx context.Context, runID int64, samples []trajectory.Sample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return errors.Wrap(err, "getting write connection")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return errors.Wrap(err, "preparing statement")
	}
	defer func() {
		err = multierr.Append(err, stmt.Close())
	}()

	for _, sample := range samples {
		p := sample.Position
		if _, err = stmt.ExecContext(ctx, runID, sample.Time.UTC(), p.X, p.Y, p.Z); err != nil {
			return errors.Wrap(err, "inserting sample")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}

const finishRunSQL = `
UPDATE runs SET end_time = ?, cycles = ?, commands = ?, error = ?
WHERE id = ?`

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID int64, end time.Time, res RunResult) error {
	db, err := s.getWriteDB()
	if err != nil {
		return errors.Wrap(err, "getting write connection")
	}

	var runErr sql.NullString
	if res.Err != nil {
		runErr = sql.NullString{String: res.Err.Error(), Valid: true}
	}

	result, err := db.ExecContext(ctx, finishRunSQL, end.UTC(), res.Cycles, res.Commands, runErr, runID)
	if err != nil {
		return errors.Wrap(err, "updating run")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("run %d not found", runID)
	}
	return nil
}

const selectRunsSQL = `
SELECT id, start_time, end_time, path_source, robot_url, steering, speed_profile,
       adaptive, look_ahead, cycles, commands, error
FROM runs`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.StartTime, &r.EndTime, &r.PathSource, &r.RobotURL, &r.Steering,
		&r.SpeedProfile, &r.Adaptive, &r.LookAhead, &r.Cycles, &r.Commands, &r.Error)
	return r, err
}

// Run returns a run by its ID.
func (s *Store) Run(ctx context.Context, id int64) (Run, error) {
	db, err := s.getReadDB()
	if err != nil {
		return Run{}, errors.Wrap(err, "getting read connection")
	}

	r, err := scanRun(db.QueryRowContext(ctx, selectRunsSQL+" WHERE id = ?", id))
	if err != nil {
		return Run{}, errors.Wrapf(err, "scanning run %d", id)
	}
	return r, nil
}

// Runs returns all runs, oldest first.
func (s *Store) Runs(ctx context.Context) (runs []Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, errors.Wrap(err, "getting read connection")
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL+" ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const selectSamplesSQL = `
SELECT timestamp, x, y, z FROM samples WHERE run_id = ? ORDER BY id`

// Samples returns the trajectory recorded for a run.
func (s *Store) Samples(ctx context.Context, runID int64) (samples []trajectory.Sample, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, errors.Wrap(err, "getting read connection")
	}

	rows, err := db.QueryContext(ctx, selectSamplesSQL, runID)
	if err != nil {
		return nil, errors.Wrap(err, "querying samples")
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	for rows.Next() {
		var sample trajectory.Sample
		p := &sample.Position
		if err := rows.Scan(&sample.Time, &p.X, &p.Y, &p.Z); err != nil {
			return nil, errors.Wrap(err, "scanning sample")
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

const selectWaypointsSQL = `
SELECT x, y, z FROM waypoints WHERE run_id = ? ORDER BY seq`

// Waypoints returns the reference path of a run.
func (s *Store) Waypoints(ctx context.Context, runID int64) (points []r3.Vector, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, errors.Wrap(err, "getting read connection")
	}

	rows, err := db.QueryContext(ctx, selectWaypointsSQL, runID)
	if err != nil {
		return nil, errors.Wrap(err, "querying waypoints")
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	for rows.Next() {
		var p r3.Vector
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, errors.Wrap(err, "scanning waypoint")
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the database connections
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			s.closeErr = multierr.Append(s.closeErr, s.writeDB.Close())
			s.writeDB = nil
		}
		if s.readDB != nil {
			s.closeErr = multierr.Append(s.closeErr, s.readDB.Close())
			s.readDB = nil
		}
	})

	return s.closeErr
}
