// Package speed provides linear speed profiles that slow the robot down as
// it turns harder.
package speed

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// MaxLinear is the top linear speed in m/s.
const MaxLinear = 1.0

// ErrUnknownProfile is returned for a selector that names no profile.
var ErrUnknownProfile = errors.New("unknown speed profile")

// Profile maps an angular speed to a linear speed.
type Profile interface {
	LinearSpeed(angular float64) float64
	Name() string
}

// Profile names used in configuration files.
const (
	NameConstant   = "constant"
	NameInverseLog = "inverse-log"
	NameShiftedLog = "shifted-log"
	NameLinear     = "linear"
)

// Select returns the profile for a numeric selector 1..4.
func Select(n int) (Profile, error) {
	switch n {
	case 1:
		return Constant{}, nil
	case 2:
		return InverseLog{}, nil
	case 3:
		return ShiftedLog{}, nil
	case 4:
		return Linear{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownProfile, "selector %d (want 1 to 4)", n)
	}
}

// Parse returns the profile for a configuration name.
func Parse(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameConstant, "1":
		return Constant{}, nil
	case NameInverseLog, "2":
		return InverseLog{}, nil
	case NameShiftedLog, "3":
		return ShiftedLog{}, nil
	case NameLinear, "4":
		return Linear{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownProfile, "%q", name)
	}
}

// Names lists the configuration names of all profiles.
func Names() []string {
	return []string{NameConstant, NameInverseLog, NameShiftedLog, NameLinear}
}

// Constant always drives at MaxLinear.
type Constant struct{}

func (Constant) LinearSpeed(float64) float64 { return MaxLinear }
func (Constant) Name() string                { return NameConstant }

// InverseLog drives at 1/log10(6|ω|+1). There is no clamp on ω: at ω = 0 the
// quotient is +Inf and the MaxLinear cap applies.
type InverseLog struct{}

func (InverseLog) LinearSpeed(angular float64) float64 {
	return math.Min(MaxLinear, 1/math.Log10(6*math.Abs(angular)+1))
}
func (InverseLog) Name() string { return NameInverseLog }

// ShiftedLog drives at log10(4.7-min(3,|ω|))+0.5.
type ShiftedLog struct{}

func (ShiftedLog) LinearSpeed(angular float64) float64 {
	return math.Min(MaxLinear, math.Log10(-(math.Min(3, math.Abs(angular))-4.7))+0.5)
}
func (ShiftedLog) Name() string { return NameShiftedLog }

// Linear drives at 1.3-0.2·min(3,|ω|).
type Linear struct{}

func (Linear) LinearSpeed(angular float64) float64 {
	return math.Min(MaxLinear, -0.2*math.Min(3, math.Abs(angular))+1.3)
}
func (Linear) Name() string { return NameLinear }
