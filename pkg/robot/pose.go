// Package robot provides the pose model and the network client for a
// differential-drive robot exposed through the Lokarria HTTP API.
package robot

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is the position and orientation reported by the robot.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
}

// Heading returns the planar heading angle of the pose in radians.
func (p Pose) Heading() float64 {
	return HeadingAngle(p.Orientation)
}

// Robot is the transport the tracker talks to once per control cycle.
type Robot interface {
	// Pose reads the current position and orientation.
	Pose(ctx context.Context) (Pose, error)
	// Drive sets the target angular (rad/s) and linear (m/s) speed.
	Drive(ctx context.Context, angular, linear float64) error
}

// wire types of the Lokarria JSON documents.
type vector3 struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

type quaternion struct {
	W float64 `json:"W"`
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

type poseDoc struct {
	Orientation quaternion `json:"Orientation"`
	Position    vector3    `json:"Position"`
}

// LocalizationDoc is a single localization reading as served by the robot and
// as stored in recorded path files.
type LocalizationDoc struct {
	Pose      poseDoc `json:"Pose"`
	Timestamp int64   `json:"Timestamp"`
}

// ToPose converts the wire document into a Pose.
func (d LocalizationDoc) ToPose() Pose {
	p, o := d.Pose.Position, d.Pose.Orientation
	return Pose{
		Position:    r3.Vector{X: p.X, Y: p.Y, Z: p.Z},
		Orientation: quat.Number{Real: o.W, Imag: o.X, Jmag: o.Y, Kmag: o.Z},
	}
}

// NewLocalizationDoc builds the wire document for a pose.
func NewLocalizationDoc(p Pose, timestamp int64) LocalizationDoc {
	return LocalizationDoc{
		Pose: poseDoc{
			Orientation: quaternion{W: p.Orientation.Real, X: p.Orientation.Imag, Y: p.Orientation.Jmag, Z: p.Orientation.Kmag},
			Position:    vector3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		},
		Timestamp: timestamp,
	}
}

type driveDoc struct {
	TargetAngularSpeed float64 `json:"TargetAngularSpeed"`
	TargetLinearSpeed  float64 `json:"TargetLinearSpeed"`
}
