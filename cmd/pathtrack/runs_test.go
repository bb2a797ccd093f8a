package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gwillem/pathtrack/pkg/storage"
	"github.com/gwillem/pathtrack/pkg/trajectory"
)

func TestRunStatus(t *testing.T) {
	test.That(t, runStatus(storage.Run{}), test.ShouldEqual, "running")
	test.That(t, runStatus(storage.Run{EndTime: sql.NullTime{Valid: true}}), test.ShouldEqual, "complete")
	test.That(t, runStatus(storage.Run{
		EndTime: sql.NullTime{Valid: true},
		Error:   sql.NullString{String: "boom", Valid: true},
	}), test.ShouldEqual, "failed")
}

func TestRenderRuns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := renderRuns([]storage.Run{{
		ID:           7,
		StartTime:    now.Add(-time.Hour),
		EndTime:      sql.NullTime{Time: now.Add(-time.Hour + 90*time.Second), Valid: true},
		PathSource:   "Path-around-table.json",
		Steering:     "pure-pursuit",
		SpeedProfile: "linear",
		LookAhead:    0.7,
		Cycles:       sql.NullInt64{Int64: 12345, Valid: true},
	}}, now)

	test.That(t, out, test.ShouldContainSubstring, "Path-around-table.json")
	test.That(t, out, test.ShouldContainSubstring, "1 hour ago")
	test.That(t, out, test.ShouldContainSubstring, "12,345")
	test.That(t, out, test.ShouldContainSubstring, "1m30s")
	test.That(t, out, test.ShouldContainSubstring, "fixed 0.70")
	test.That(t, out, test.ShouldContainSubstring, "complete")
}

func TestPlotRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := storage.New(filepath.Join(dir, "runs.db"))
	defer func() { _ = store.Close() }()

	start := time.Now()
	id, err := store.CreateRun(ctx, storage.Run{StartTime: start, PathSource: "line.json"},
		[]r3.Vector{{X: 0}, {X: 1}, {X: 2}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, store.InsertSamples(ctx, id, []trajectory.Sample{
		{Time: start, Position: r3.Vector{X: 0}},
		{Time: start.Add(time.Second), Position: r3.Vector{X: 1, Y: 0.1}},
	}), test.ShouldBeNil)

	out := filepath.Join(dir, "run.png")
	test.That(t, plotRun(ctx, store, id, out), test.ShouldBeNil)
	info, err := os.Stat(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}
