package main

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gwillem/pathtrack/pkg/path"
	"github.com/gwillem/pathtrack/pkg/robot"
	"github.com/gwillem/pathtrack/pkg/speed"
	"github.com/gwillem/pathtrack/pkg/steering"
	"github.com/gwillem/pathtrack/pkg/tracker"
)

func newTestModel(t *testing.T) (trackModel, *runResult, *bool) {
	t.Helper()
	sim := robot.NewSimulator(r3.Vector{}, 0, 10*time.Millisecond)
	ctrl, err := tracker.NewController(sim, path.New([]r3.Vector{{X: 1}}), tracker.Config{
		Steering: steering.PurePursuit{},
		Speed:    speed.Constant{},
	})
	test.That(t, err, test.ShouldBeNil)

	cancelled := false
	res := &runResult{done: make(chan struct{})}
	m := newTrackModel(ctrl, res, func() { cancelled = true }, "pure-pursuit / constant / fixed look-ahead")
	return m, res, &cancelled
}

func TestTrackModel_State(t *testing.T) {
	m, _, _ := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	next, _ = next.Update(stateMsg(tracker.State{
		Position:  r3.Vector{X: 0.5, Y: 0.25},
		Goal:      r3.Vector{X: 2},
		Command:   tracker.Command{Angular: 0.3, Linear: 1},
		LookAhead: 0.7,
		Remaining: 12,
		Timestamp: time.Now(),
	}))

	view := next.View()
	test.That(t, view, test.ShouldContainSubstring, "pathtrack")
	test.That(t, view, test.ShouldContainSubstring, "12 waypoints left")
	test.That(t, view, test.ShouldContainSubstring, "angular")
}

func TestTrackModel_Done(t *testing.T) {
	m, res, _ := newTestModel(t)
	res.sum = tracker.Summary{Duration: 1500 * time.Millisecond}
	close(res.done)

	next, _ := m.Update(doneMsg{})
	test.That(t, next.View(), test.ShouldContainSubstring, "Path complete in 1.5s")
}

func TestTrackModel_QuitCancels(t *testing.T) {
	m, _, cancelled := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	test.That(t, *cancelled, test.ShouldBeTrue)
	test.That(t, cmd, test.ShouldNotBeNil)
	test.That(t, next.View(), test.ShouldEqual, "")
}

func TestTrackModel_Logs(t *testing.T) {
	m, _, _ := newTestModel(t)
	var next tea.Model = m
	for i := 0; i < maxLogs+3; i++ {
		next, _ = next.Update(logMsg("line"))
	}
	test.That(t, len(next.(trackModel).logs), test.ShouldEqual, maxLogs)
}
