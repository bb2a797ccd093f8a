package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gwillem/pathtrack/pkg/config"
	"github.com/gwillem/pathtrack/pkg/logging"
	"github.com/gwillem/pathtrack/pkg/path"
	"github.com/gwillem/pathtrack/pkg/robot"
	"github.com/gwillem/pathtrack/pkg/speed"
	"github.com/gwillem/pathtrack/pkg/steering"
	"github.com/gwillem/pathtrack/pkg/storage"
	"github.com/gwillem/pathtrack/pkg/trajectory"
	"github.com/gwillem/pathtrack/pkg/tracker"
)

type TrackCommand struct {
	Config    string  `long:"config" short:"c" default:"pathtrack.yaml" description:"Configuration file, defaults apply when it does not exist"`
	URL       string  `long:"url" description:"Robot base URL (overrides config)"`
	LookAhead float64 `long:"look-ahead" description:"Look-ahead distance in meters (overrides config)"`
	TUI       bool    `long:"tui" description:"Show live commands in a terminal UI"`
	Plot      string  `long:"plot" description:"Write a plot of the driven track to this file"`
	DB        string  `long:"db" description:"Store the run in this SQLite database"`
	Simulate  bool    `long:"simulate" description:"Drive a simulated robot placed on the first waypoint"`

	Args struct {
		Path     string `positional-arg-name:"path" required:"yes" description:"Recorded path (JSON)"`
		Steering string `positional-arg-name:"steering" description:"1 pure pursuit, 2 proportional heading"`
		Profile  string `positional-arg-name:"profile" description:"1 constant, 2 inverse log, 3 shifted log, 4 linear"`
		Adaptive string `positional-arg-name:"adaptive" description:"true to use the linear speed as look-ahead"`
	} `positional-args:"yes"`
}

const trackUsage = `usage: pathtrack track <path> <steering> <profile> <adaptive>
  steering  1 = pure pursuit, 2 = proportional heading
  profile   1 = constant, 2 = inverse log, 3 = shifted log, 4 = linear
  adaptive  true or false, use the linear speed as look-ahead distance`

// selection is the steering policy, speed profile and look-ahead mode of a
// run. Empty arguments fall back to the configuration.
type selection struct {
	policy   steering.Policy
	profile  speed.Profile
	adaptive bool
}

func parseSelection(steeringArg, profileArg, adaptiveArg string, ctl config.ControlConfig) (selection, error) {
	var sel selection
	var err error

	if steeringArg == "" {
		steeringArg = ctl.Steering
	}
	if sel.policy, err = steering.Parse(steeringArg); err != nil {
		return sel, err
	}

	if profileArg == "" {
		profileArg = ctl.SpeedProfile
	}
	if sel.profile, err = speed.Parse(profileArg); err != nil {
		return sel, err
	}

	sel.adaptive = ctl.Adaptive
	if adaptiveArg != "" {
		if sel.adaptive, err = strconv.ParseBool(adaptiveArg); err != nil {
			return sel, errors.Errorf("adaptive must be true or false, got %q", adaptiveArg)
		}
	}
	return sel, nil
}

func (s selection) String() string {
	mode := "fixed"
	if s.adaptive {
		mode = "adaptive"
	}
	return fmt.Sprintf("%s / %s / %s look-ahead", s.policy.Name(), s.profile.Name(), mode)
}

func (c *TrackCommand) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if config.Exists(c.Config) {
		loaded, err := config.LoadConfigFrom(c.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.URL != "" {
		cfg.Robot.URL = c.URL
	}
	if c.LookAhead > 0 {
		cfg.Control.LookAhead = c.LookAhead
	}
	if c.Plot != "" {
		cfg.Output.Plot = c.Plot
	}
	if c.DB != "" {
		cfg.Output.Database = c.DB
	}
	return cfg, nil
}

func (c *TrackCommand) newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	// The terminal UI owns stdout.
	if c.TUI && cfg.Log.File == "" {
		return logging.NewNop(), nil
	}
	return logging.New(cfg.Log)
}

func (c *TrackCommand) newRobot(cfg *config.Config, p *path.Path) (robot.Robot, string, func() error, error) {
	if c.Simulate {
		pos, yaw := simulatorStart(p.Points())
		sim := robot.NewSimulator(pos, yaw, cfg.Control.Period)
		return sim, "simulator", func() error { return nil }, nil
	}

	client, err := robot.NewClient(robot.ClientConfig{URL: cfg.Robot.URL, Timeout: cfg.Robot.Timeout})
	if err != nil {
		return nil, "", nil, err
	}
	return client, client.URL(), client.Close, nil
}

func (c *TrackCommand) Execute(args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	sel, err := parseSelection(c.Args.Steering, c.Args.Profile, c.Args.Adaptive, cfg.Control)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		fmt.Fprintln(os.Stderr, trackUsage)
		return nil
	}

	p, err := path.Load(c.Args.Path)
	if err != nil {
		return err
	}
	reference := p.Points()

	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rob, robotURL, closeRobot, err := c.newRobot(cfg, p)
	if err != nil {
		return err
	}
	defer func() { _ = closeRobot() }()

	trace := trajectory.NewTrace()
	ctrl, err := tracker.NewController(rob, p, tracker.Config{
		Period:      cfg.Control.Period,
		LookAhead:   cfg.Control.LookAhead,
		AngularGain: cfg.Control.AngularGain,
		Adaptive:    sel.adaptive,
		Steering:    sel.policy,
		Speed:       sel.profile,
		Logger:      logger,
		Recorder:    trace,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *storage.Store
	var runID int64
	if cfg.Output.Database != "" {
		store = storage.New(cfg.Output.Database)
		defer func() { _ = store.Close() }()

		runID, err = store.CreateRun(ctx, storage.Run{
			StartTime:    time.Now(),
			PathSource:   filepath.Base(c.Args.Path),
			RobotURL:     robotURL,
			Steering:     sel.policy.Name(),
			SpeedProfile: sel.profile.Name(),
			Adaptive:     sel.adaptive,
			LookAhead:    ctrl.Config().LookAhead,
		}, reference)
		if err != nil {
			return errors.Wrap(err, "store run")
		}
	}

	if !c.TUI {
		fmt.Println(titleStyle.Render("pathtrack") + " " + statusStyle.Render(fmt.Sprintf("%s, %d waypoints, %s", robotURL, len(reference), sel)))
	}

	var sum tracker.Summary
	var runErr error
	if c.TUI {
		sum, runErr = runWithTUI(ctx, ctrl, sel.String())
	} else {
		sum, runErr = ctrl.Run(ctx)
	}

	var outErr error
	if store != nil {
		// The run context may be cancelled already.
		saveCtx := context.Background()
		outErr = multierr.Append(outErr, store.InsertSamples(saveCtx, runID, trace.Samples()))
		outErr = multierr.Append(outErr, store.FinishRun(saveCtx, runID, time.Now(), storage.RunResult{
			Cycles:   sum.Cycles,
			Commands: sum.Commands,
			Err:      runErr,
		}))
	}
	if cfg.Output.Plot != "" {
		title := fmt.Sprintf("%s (%s)", filepath.Base(c.Args.Path), sel)
		if err := trajectory.Plot(cfg.Output.Plot, title, trace.Positions(), reference); err != nil {
			outErr = multierr.Append(outErr, err)
		} else {
			fmt.Printf("Plot written to %s\n", cfg.Output.Plot)
		}
	}

	printSummary(sum, trace, runErr, runID)

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return multierr.Append(runErr, outErr)
}

// simulatorStart places the simulated robot on the first waypoint, facing
// the second.
func simulatorStart(points []r3.Vector) (r3.Vector, float64) {
	if len(points) == 0 {
		return r3.Vector{}, 0
	}
	if len(points) == 1 {
		return points[0], 0
	}
	d := points[1].Sub(points[0])
	return points[0], math.Atan2(d.Y, d.X)
}

func printSummary(sum tracker.Summary, trace *trajectory.Trace, runErr error, runID int64) {
	var sb strings.Builder
	switch {
	case runErr == nil:
		sb.WriteString(successStyle.Render("Path complete"))
	case errors.Is(runErr, context.Canceled):
		sb.WriteString(warnStyle.Render("Tracking cancelled"))
	default:
		sb.WriteString(errorStyle.Render("Tracking failed: " + runErr.Error()))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "  Duration:  %s\n", sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Distance:  %s m\n", humanize.FormatFloat("#,###.##", trace.Distance()))
	fmt.Fprintf(&sb, "  Waypoints: %s passed\n", humanize.Comma(int64(sum.Passed)))
	fmt.Fprintf(&sb, "  Cycles:    %s (%s commands)\n", humanize.Comma(int64(sum.Cycles)), humanize.Comma(int64(sum.Commands)))
	if runID > 0 {
		fmt.Fprintf(&sb, "  Run ID:    %d\n", runID)
	}
	fmt.Print(sb.String())
}
