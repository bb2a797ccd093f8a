// Package path holds the recorded reference path and the look-ahead goal
// selection used by the tracker.
package path

import (
	"math"

	"github.com/golang/geo/r3"
)

// Path is an ordered sequence of waypoints consumed from the front. Waypoints
// before the cursor have been passed and are never considered again.
type Path struct {
	points []r3.Vector
	next   int
}

// New creates a path from waypoints in recording order.
func New(points []r3.Vector) *Path {
	copied := make([]r3.Vector, len(points))
	copy(copied, points)
	return &Path{points: copied}
}

// Len returns the number of waypoints not yet passed.
func (p *Path) Len() int {
	return len(p.points) - p.next
}

// Empty reports whether every waypoint has been passed.
func (p *Path) Empty() bool {
	return p.Len() == 0
}

// Consumed returns the number of waypoints passed so far.
func (p *Path) Consumed() int {
	return p.next
}

// Remaining returns the waypoints not yet passed, nearest first.
func (p *Path) Remaining() []r3.Vector {
	out := make([]r3.Vector, p.Len())
	copy(out, p.points[p.next:])
	return out
}

// Points returns the full reference path in recording order.
func (p *Path) Points() []r3.Vector {
	out := make([]r3.Vector, len(p.points))
	copy(out, p.points)
	return out
}

// SelectGoal returns the first remaining waypoint at least lookAhead away
// from pos in the XY plane. Waypoints closer than lookAhead are passed; with
// mutate set they are consumed permanently, otherwise the scan only skips
// them. The boolean is false when no waypoint lies beyond lookAhead.
func (p *Path) SelectGoal(pos r3.Vector, lookAhead float64, mutate bool) (r3.Vector, bool) {
	for i := p.next; i < len(p.points); i++ {
		point := p.points[i]
		if Distance(pos, point) >= lookAhead {
			return point, true
		}
		if mutate {
			p.next = i + 1
		}
	}
	return r3.Vector{}, false
}

// Distance is the planar distance between a and b. Z is ignored.
func Distance(a, b r3.Vector) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
