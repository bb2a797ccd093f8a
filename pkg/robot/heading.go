package robot

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// forward is the robot's body-frame forward axis as a pure quaternion.
var forward = quat.Number{Imag: 1}

// Heading rotates the forward axis (1,0,0) by the unit quaternion q using
// q·v·q* and returns the vector part. The orientation must be a unit
// quaternion; the result is undefined otherwise.
func Heading(q quat.Number) r3.Vector {
	v := quat.Mul(quat.Mul(q, forward), quat.Conj(q))
	return r3.Vector{X: v.Imag, Y: v.Jmag, Z: v.Kmag}
}

// HeadingAngle returns the angle of the heading in the XY plane.
func HeadingAngle(q quat.Number) float64 {
	h := Heading(q)
	return math.Atan2(h.Y, h.X)
}

// YawQuaternion returns the unit quaternion for a rotation of yaw radians
// about the Z axis.
func YawQuaternion(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}
