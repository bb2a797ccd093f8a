// Package tracker runs the path tracking control loop.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gwillem/pathtrack/pkg/path"
	"github.com/gwillem/pathtrack/pkg/robot"
	"github.com/gwillem/pathtrack/pkg/speed"
	"github.com/gwillem/pathtrack/pkg/steering"
)

// Defaults applied by NewController to zero config values.
const (
	DefaultPeriod      = 10 * time.Millisecond
	DefaultLookAhead   = 0.7
	DefaultAngularGain = 0.4
)

// RunState is the state of the control loop.
type RunState int

const (
	Idle RunState = iota
	Running
	Stopped
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Command is a velocity command sent to the robot.
type Command struct {
	Angular float64 // rad/s
	Linear  float64 // m/s
}

// State is a snapshot of one control cycle.
type State struct {
	Position  r3.Vector
	Heading   float64
	Goal      r3.Vector
	Command   Command
	LookAhead float64
	Remaining int
	Timestamp time.Time
	Error     error
}

// Recorder receives the robot position once per cycle.
type Recorder interface {
	Record(t time.Time, pos r3.Vector)
}

// Summary describes a finished run.
type Summary struct {
	Cycles   int // pose readings
	Commands int // drive commands, excluding the final stop
	Passed   int // waypoints consumed
	Duration time.Duration
}

// Config holds configuration for the controller. A zero Period, a
// non-positive LookAhead and a zero AngularGain are replaced by
// DefaultPeriod, DefaultLookAhead and DefaultAngularGain.
type Config struct {
	Period      time.Duration
	LookAhead   float64
	AngularGain float64
	Adaptive    bool // replace the look-ahead with the last linear speed
	Steering    steering.Policy
	Speed       speed.Profile

	Clock    clock.Clock
	Logger   *zap.SugaredLogger
	Recorder Recorder
}

// Controller drives a robot along a path.
type Controller struct {
	robot robot.Robot
	path  *path.Path
	cfg   Config

	mu        sync.RWMutex
	runState  RunState
	lookAhead float64
	position  r3.Vector
	stateCh   chan State
	logCh     chan string
}

// NewController creates a controller that will drive r along p.
func NewController(r robot.Robot, p *path.Path, cfg Config) (*Controller, error) {
	if r == nil {
		return nil, errors.New("robot is required")
	}
	if p == nil {
		return nil, errors.New("path is required")
	}
	if cfg.Steering == nil {
		return nil, errors.Wrap(steering.ErrUnknownPolicy, "no steering policy configured")
	}
	if cfg.Speed == nil {
		return nil, errors.Wrap(speed.ErrUnknownProfile, "no speed profile configured")
	}

	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = DefaultLookAhead
	}
	if cfg.AngularGain == 0 {
		cfg.AngularGain = DefaultAngularGain
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Controller{
		robot:     r,
		path:      p,
		cfg:       cfg,
		lookAhead: cfg.LookAhead,
		stateCh:   make(chan State, 1),
		logCh:     make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// RunState returns the current state of the loop.
func (c *Controller) RunState() RunState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runState
}

// LookAhead returns the look-ahead distance used for the next cycle.
func (c *Controller) LookAhead() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookAhead
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.cfg.Logger.Info(text)

	msg := fmt.Sprintf("[%s] %s", c.cfg.Clock.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

func (c *Controller) setRunState(s RunState) {
	c.mu.Lock()
	c.runState = s
	c.mu.Unlock()
}

// Run drives the robot until every waypoint is passed, then sends a single
// stop command. A failed pose query or drive command aborts the run at once
// and no stop command is sent. When ctx is cancelled between cycles the
// robot is stopped and ctx.Err() returned.
func (c *Controller) Run(ctx context.Context) (sum Summary, err error) {
	c.mu.Lock()
	if c.runState != Idle {
		c.mu.Unlock()
		return sum, errors.New("controller already started")
	}
	c.runState = Running
	c.mu.Unlock()

	start := c.cfg.Clock.Now()
	defer func() {
		sum.Passed = c.path.Consumed()
		sum.Duration = c.cfg.Clock.Since(start)
	}()

	if c.path.Empty() {
		c.cfg.Logger.Warn("path is empty, nothing to track")
		c.log("Path is empty")
	} else {
		c.log("Tracking %d waypoints with %s/%s, look-ahead %.2f m (adaptive: %t)",
			c.path.Len(), c.cfg.Steering.Name(), c.cfg.Speed.Name(), c.cfg.LookAhead, c.cfg.Adaptive)
	}

	for !c.path.Empty() {
		if ctx.Err() != nil {
			return sum, c.abort(ctx)
		}

		pose, err := c.robot.Pose(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return sum, c.abort(ctx)
			}
			return sum, c.fail(errors.Wrap(err, "query pose"))
		}
		sum.Cycles++

		cmd, st, ok := c.step(pose)
		if !ok {
			// Nothing beyond the look-ahead: poll again straight away.
			continue
		}

		if err := c.robot.Drive(ctx, cmd.Angular, cmd.Linear); err != nil {
			if ctx.Err() != nil {
				return sum, c.abort(ctx)
			}
			return sum, c.fail(errors.Wrap(err, "send command"))
		}
		sum.Commands++
		c.sendState(st)

		c.cfg.Clock.Sleep(c.cfg.Period)
	}

	// The path is done even if ctx was cancelled during the last pose read.
	if err := c.robot.Drive(context.WithoutCancel(ctx), 0, 0); err != nil {
		return sum, c.fail(errors.Wrap(err, "send stop command"))
	}
	c.setRunState(Stopped)
	c.sendState(State{Position: c.position, LookAhead: c.LookAhead(), Timestamp: c.cfg.Clock.Now()})
	c.log("Path complete after %d cycles", sum.Cycles)
	return sum, nil
}

// step records the pose, selects a goal and computes the command for it.
func (c *Controller) step(pose robot.Pose) (Command, State, bool) {
	now := c.cfg.Clock.Now()
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.Record(now, pose.Position)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.position = pose.Position
	goal, ok := c.path.SelectGoal(pose.Position, c.lookAhead, true)
	if !ok {
		return Command{}, State{}, false
	}

	heading := pose.Heading()
	angular := c.cfg.Steering.AngularSpeed(pose.Position, heading, goal)
	linear := c.cfg.Speed.LinearSpeed(angular)
	if c.cfg.Adaptive {
		c.lookAhead = linear
	}
	cmd := Command{Angular: angular * c.cfg.AngularGain, Linear: linear}

	c.cfg.Logger.Debugw("cycle",
		"x", pose.Position.X, "y", pose.Position.Y, "heading", heading,
		"goal_x", goal.X, "goal_y", goal.Y,
		"angular", cmd.Angular, "linear", cmd.Linear,
		"look_ahead", c.lookAhead, "remaining", c.path.Len())

	return cmd, State{
		Position:  pose.Position,
		Heading:   heading,
		Goal:      goal,
		Command:   cmd,
		LookAhead: c.lookAhead,
		Remaining: c.path.Len(),
		Timestamp: now,
	}, true
}

// abort stops the robot after cancellation. The stop uses a fresh context
// because ctx is already done.
func (c *Controller) abort(ctx context.Context) error {
	c.setRunState(Stopped)
	if err := c.robot.Drive(context.Background(), 0, 0); err != nil {
		c.cfg.Logger.Warnw("failed to stop robot after cancellation", "error", err)
	}
	c.log("Tracking cancelled")
	return ctx.Err()
}

func (c *Controller) fail(err error) error {
	c.setRunState(Stopped)
	c.cfg.Logger.Errorw("tracking aborted", "error", err)
	c.log("Error: %v", err)
	c.sendState(State{Error: err, Timestamp: c.cfg.Clock.Now()})
	return err
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}
