// Package steering implements the laws that turn goal-point geometry into an
// angular speed command.
package steering

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrUnknownPolicy is returned for a selector that names no policy.
var ErrUnknownPolicy = errors.New("unknown steering policy")

// Policy maps the robot position, its heading angle and a goal point to an
// angular speed in rad/s.
type Policy interface {
	AngularSpeed(pos r3.Vector, heading float64, goal r3.Vector) float64
	Name() string
}

// Policy names used in configuration files.
const (
	NamePurePursuit  = "pure-pursuit"
	NameProportional = "proportional"
)

// Default gains of the proportional heading controller.
const (
	DefaultGain            = 0.3
	DefaultMaxAngularSpeed = 3.0
)

// Select returns the policy for a numeric selector: 1 pure pursuit,
// 2 proportional heading.
func Select(n int) (Policy, error) {
	switch n {
	case 1:
		return PurePursuit{}, nil
	case 2:
		return NewProportionalHeading(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownPolicy, "selector %d (want 1 or 2)", n)
	}
}

// Parse returns the policy for a configuration name.
func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NamePurePursuit, "purepursuit", "1":
		return PurePursuit{}, nil
	case NameProportional, "proportional-heading", "2":
		return NewProportionalHeading(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownPolicy, "%q", name)
	}
}

// Names lists the configuration names of all policies.
func Names() []string {
	return []string{NamePurePursuit, NameProportional}
}

// bearing returns the angle between the heading and the direction to goal,
// and the planar distance to goal.
func bearing(pos r3.Vector, heading float64, goal r3.Vector) (theta, dist float64) {
	dx, dy := goal.X-pos.X, goal.Y-pos.Y
	return math.Atan2(dy, dx) - heading, math.Hypot(dx, dy)
}

// PurePursuit steers with the curvature 2·sin(θ)/d³.
//
// Note the cube: the classic pure pursuit curvature is 2·sin(θ)/d. The cubed
// form is what the recorded runs were tuned with, so it is kept.
type PurePursuit struct{}

// AngularSpeed implements Policy.
func (PurePursuit) AngularSpeed(pos r3.Vector, heading float64, goal r3.Vector) float64 {
	theta, dist := bearing(pos, heading, goal)
	return 2 * (math.Sin(theta) / dist) / (dist * dist)
}

// Name implements Policy.
func (PurePursuit) Name() string { return NamePurePursuit }

// ProportionalHeading turns proportionally to the sine of the bearing error
// and saturates at MaxAngularSpeed.
type ProportionalHeading struct {
	Gain            float64
	MaxAngularSpeed float64
}

// NewProportionalHeading returns the controller with its default gains.
func NewProportionalHeading() ProportionalHeading {
	return ProportionalHeading{Gain: DefaultGain, MaxAngularSpeed: DefaultMaxAngularSpeed}
}

// AngularSpeed implements Policy.
func (p ProportionalHeading) AngularSpeed(pos r3.Vector, heading float64, goal r3.Vector) float64 {
	theta, _ := bearing(pos, heading, goal)
	w := p.MaxAngularSpeed * math.Sin(theta) / p.Gain
	return math.Min(math.Max(w, -p.MaxAngularSpeed), p.MaxAngularSpeed)
}

// Name implements Policy.
func (ProportionalHeading) Name() string { return NameProportional }

func (p ProportionalHeading) String() string {
	return fmt.Sprintf("%s(gain=%g, max=%g)", NameProportional, p.Gain, p.MaxAngularSpeed)
}
