package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/gwillem/pathtrack/pkg/trajectory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "runs.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reference := []r3.Vector{{X: 0, Y: 0}, {X: 1, Y: 0.5}, {X: 2, Y: 1, Z: 0.1}}

	id, err := s.CreateRun(ctx, Run{
		StartTime:    start,
		PathSource:   "Path-around-table.json",
		RobotURL:     "http://localhost:50000",
		Steering:     "pure-pursuit",
		SpeedProfile: "linear",
		Adaptive:     true,
		LookAhead:    0.7,
	}, reference)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldBeGreaterThan, int64(0))

	samples := []trajectory.Sample{
		{Time: start.Add(10 * time.Millisecond), Position: r3.Vector{X: 0.1}},
		{Time: start.Add(20 * time.Millisecond), Position: r3.Vector{X: 0.2, Y: 0.05}},
	}
	test.That(t, s.InsertSamples(ctx, id, samples), test.ShouldBeNil)
	test.That(t, s.FinishRun(ctx, id, start.Add(time.Minute), RunResult{Cycles: 2, Commands: 2}), test.ShouldBeNil)

	run, err := s.Run(ctx, id)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, run.PathSource, test.ShouldEqual, "Path-around-table.json")
	test.That(t, run.Steering, test.ShouldEqual, "pure-pursuit")
	test.That(t, run.SpeedProfile, test.ShouldEqual, "linear")
	test.That(t, run.Adaptive, test.ShouldBeTrue)
	test.That(t, run.LookAhead, test.ShouldAlmostEqual, 0.7)
	test.That(t, run.StartTime.Equal(start), test.ShouldBeTrue)
	test.That(t, run.EndTime.Valid, test.ShouldBeTrue)
	test.That(t, run.Cycles.Int64, test.ShouldEqual, int64(2))
	test.That(t, run.Error.Valid, test.ShouldBeFalse)

	got, err := s.Samples(ctx, id)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(got), test.ShouldEqual, 2)
	test.That(t, got[1].Position, test.ShouldResemble, r3.Vector{X: 0.2, Y: 0.05})
	test.That(t, got[1].Time.Equal(samples[1].Time), test.ShouldBeTrue)

	points, err := s.Waypoints(ctx, id)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, points, test.ShouldResemble, reference)
}

func TestStore_FailedRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateRun(ctx, Run{StartTime: time.Now(), Steering: "proportional", SpeedProfile: "constant"}, nil)
	test.That(t, err, test.ShouldBeNil)

	err = s.FinishRun(ctx, id, time.Now(), RunResult{Cycles: 1, Err: errors.New("query pose: connection refused")})
	test.That(t, err, test.ShouldBeNil)

	run, err := s.Run(ctx, id)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, run.Error.Valid, test.ShouldBeTrue)
	test.That(t, run.Error.String, test.ShouldContainSubstring, "connection refused")
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"a.json", "b.json", "c.json"} {
		_, err := s.CreateRun(ctx, Run{StartTime: time.Now(), PathSource: name, Steering: "pure-pursuit", SpeedProfile: "constant"}, nil)
		test.That(t, err, test.ShouldBeNil)
	}

	runs, err := s.Runs(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(runs), test.ShouldEqual, 3)
	test.That(t, runs[0].PathSource, test.ShouldEqual, "a.json")
	test.That(t, runs[2].PathSource, test.ShouldEqual, "c.json")
	test.That(t, runs[0].EndTime.Valid, test.ShouldBeFalse)
}

func TestStore_FinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.FinishRun(context.Background(), 42, time.Now(), RunResult{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStore_InsertNoSamples(t *testing.T) {
	s := newTestStore(t)
	test.That(t, s.InsertSamples(context.Background(), 1, nil), test.ShouldBeNil)
}

func TestStore_CloseTwice(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs.db"))
	_, err := s.CreateRun(context.Background(), Run{StartTime: time.Now()}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Close(), test.ShouldBeNil)
	test.That(t, s.Close(), test.ShouldBeNil)
}
