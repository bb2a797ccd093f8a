package robot

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
)

// DriveCommand is a command received by the Simulator.
type DriveCommand struct {
	Angular float64
	Linear  float64
}

// Simulator is an in-process differential drive robot. Every Pose call
// advances the unicycle model by one step using the last drive command, so
// the simulation runs as fast as the caller polls.
type Simulator struct {
	mu       sync.Mutex
	position r3.Vector
	yaw      float64
	step     float64
	command  DriveCommand
	commands []DriveCommand
	polls    int
}

// NewSimulator places a robot at start facing yaw radians. step is the
// simulated time that passes between two pose readings.
func NewSimulator(start r3.Vector, yaw float64, step time.Duration) *Simulator {
	return &Simulator{position: start, yaw: yaw, step: step.Seconds()}
}

// Pose advances the model one step and returns the new pose.
func (s *Simulator) Pose(ctx context.Context) (Pose, error) {
	if err := ctx.Err(); err != nil {
		return Pose{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.polls > 0 {
		s.yaw += s.command.Angular * s.step
		s.position.X += s.command.Linear * math.Cos(s.yaw) * s.step
		s.position.Y += s.command.Linear * math.Sin(s.yaw) * s.step
	}
	s.polls++
	return Pose{Position: s.position, Orientation: YawQuaternion(s.yaw)}, nil
}

// Drive stores the command applied on the next step.
func (s *Simulator) Drive(ctx context.Context, angular, linear float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.command = DriveCommand{Angular: angular, Linear: linear}
	s.commands = append(s.commands, s.command)
	return nil
}

// Commands returns every command received so far.
func (s *Simulator) Commands() []DriveCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DriveCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

// Polls returns the number of pose readings served.
func (s *Simulator) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}
