package path

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gwillem/pathtrack/pkg/robot"
)

func line(n int, step float64) []r3.Vector {
	points := make([]r3.Vector, n)
	for i := range points {
		points[i] = r3.Vector{X: float64(i+1) * step}
	}
	return points
}

func TestSelectGoal_ReturnsFirstPointBeyondLookAhead(t *testing.T) {
	// robot at origin heading +X, single waypoint one metre ahead
	p := New([]r3.Vector{{X: 1, Y: 0}})

	goal, ok := p.SelectGoal(r3.Vector{}, 0.5, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal, test.ShouldResemble, r3.Vector{X: 1, Y: 0})
	test.That(t, p.Len(), test.ShouldEqual, 1)
}

func TestSelectGoal_ConsumesPassedPoints(t *testing.T) {
	p := New([]r3.Vector{{X: 1, Y: 0}})

	_, ok := p.SelectGoal(r3.Vector{}, 2, true)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, p.Empty(), test.ShouldBeTrue)
	test.That(t, p.Consumed(), test.ShouldEqual, 1)
}

func TestSelectGoal_SkipsSeveralPoints(t *testing.T) {
	p := New(line(6, 0.25))

	goal, ok := p.SelectGoal(r3.Vector{}, 0.7, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal.X, test.ShouldEqual, 0.75)
	test.That(t, p.Consumed(), test.ShouldEqual, 2)
	test.That(t, p.Len(), test.ShouldEqual, 4)
}

func TestSelectGoal_PreviewDoesNotMutate(t *testing.T) {
	p := New(line(6, 0.25))

	goal, ok := p.SelectGoal(r3.Vector{}, 0.7, false)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal.X, test.ShouldEqual, 0.75)
	test.That(t, p.Consumed(), test.ShouldEqual, 0)

	_, ok = p.SelectGoal(r3.Vector{}, 10, false)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, p.Len(), test.ShouldEqual, 6)
}

func TestSelectGoal_EmptyPath(t *testing.T) {
	p := New(nil)
	_, ok := p.SelectGoal(r3.Vector{}, 0.5, true)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, p.Consumed(), test.ShouldEqual, 0)
}

func TestSelectGoal_DistanceIgnoresZ(t *testing.T) {
	p := New([]r3.Vector{{X: 0.3, Y: 0, Z: 100}})
	_, ok := p.SelectGoal(r3.Vector{}, 0.5, true)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSelectGoal_ExactLookAheadIsAGoal(t *testing.T) {
	p := New([]r3.Vector{{X: 0.5}})
	goal, ok := p.SelectGoal(r3.Vector{}, 0.5, true)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal.X, test.ShouldEqual, 0.5)
}

// A robot standing on each returned goal passes exactly one waypoint per
// call, so a path of N points empties in exactly N calls.
func TestSelectGoal_EmptiesInNCalls(t *testing.T) {
	const n = 8
	p := New(line(n, 1))

	pos := r3.Vector{X: 1}
	calls := 0
	for !p.Empty() {
		calls++
		before := p.Consumed()
		goal, ok := p.SelectGoal(pos, 0.5, true)
		test.That(t, p.Consumed()-before, test.ShouldEqual, 1)
		if ok {
			test.That(t, goal.X, test.ShouldEqual, pos.X+1)
			pos = goal
		}
		if calls > 2*n {
			t.Fatal("path never emptied")
		}
	}
	test.That(t, calls, test.ShouldEqual, n)
}

func TestSelectGoal_Monotonic(t *testing.T) {
	points := []r3.Vector{{X: 0.1}, {X: 0.2}, {X: 1}, {X: 0.15}, {X: 2}}
	p := New(points)

	removed := map[r3.Vector]bool{}
	positions := []r3.Vector{{}, {X: 1}, {}, {X: 2}}
	for _, pos := range positions {
		before := p.Consumed()
		goal, ok := p.SelectGoal(pos, 0.5, true)
		for i := before; i < p.Consumed(); i++ {
			removed[points[i]] = true
		}
		if ok && removed[goal] {
			t.Fatalf("returned consumed waypoint %v", goal)
		}
	}
	// Moving back to the origin must not resurrect the early waypoints.
	test.That(t, p.Consumed(), test.ShouldBeGreaterThanOrEqualTo, 3)
}

func TestRemainingAndPoints(t *testing.T) {
	p := New(line(3, 1))
	p.SelectGoal(r3.Vector{}, 1.5, true)

	test.That(t, p.Remaining(), test.ShouldResemble, []r3.Vector{{X: 2}, {X: 3}})
	test.That(t, p.Points(), test.ShouldHaveLength, 3)
}

func TestDecode(t *testing.T) {
	src := `[
	  {"Pose":{"Orientation":{"W":1,"X":0,"Y":0,"Z":0},"Position":{"X":1,"Y":2,"Z":0.1}},"Status":4,"Timestamp":100},
	  {"Pose":{"Orientation":{"W":1,"X":0,"Y":0,"Z":0},"Position":{"X":3,"Y":4,"Z":0.1}},"Status":4,"Timestamp":200}
	]`
	p, err := Decode(strings.NewReader(src))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Points(), test.ShouldResemble, []r3.Vector{{X: 1, Y: 2, Z: 0.1}, {X: 3, Y: 4, Z: 0.1}})

	// First recorded point is the first goal.
	goal, ok := p.SelectGoal(r3.Vector{}, 0.5, false)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, goal.X, test.ShouldEqual, 1.0)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"not":"a list"}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSaveLoad(t *testing.T) {
	poses := []robot.Pose{
		{Position: r3.Vector{X: 1, Y: 1}, Orientation: robot.YawQuaternion(0)},
		{Position: r3.Vector{X: 2, Y: 1.5}, Orientation: robot.YawQuaternion(0.5)},
	}
	var buf bytes.Buffer
	test.That(t, Save(&buf, poses), test.ShouldBeNil)

	file := filepath.Join(t.TempDir(), "path.json")
	test.That(t, os.WriteFile(file, buf.Bytes(), 0o644), test.ShouldBeNil)

	p, err := Load(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Points(), test.ShouldResemble, []r3.Vector{{X: 1, Y: 1}, {X: 2, Y: 1.5}})

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
