package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gwillem/pathtrack/pkg/config"
	"github.com/gwillem/pathtrack/pkg/path"
	"github.com/gwillem/pathtrack/pkg/robot"
	"github.com/gwillem/pathtrack/pkg/trajectory"
)

type RecordCommand struct {
	Config      string        `long:"config" short:"c" default:"pathtrack.yaml" description:"Configuration file naming the robot"`
	URL         string        `long:"url" description:"Robot base URL (overrides config)"`
	Interval    time.Duration `long:"interval" default:"100ms" description:"Pose polling interval"`
	MinDistance float64       `long:"min-distance" default:"0.05" description:"Skip poses closer than this to the last recorded one (m)"`
	Duration    time.Duration `long:"duration" description:"Stop after this long; zero records until interrupted"`

	Args struct {
		Out string `positional-arg-name:"out" required:"yes" description:"Path file to write (JSON)"`
	} `positional-args:"yes"`
}

// recordPoses polls r every interval and keeps the poses that moved at
// least minDistance from the last kept one. It returns when ctx is done.
func recordPoses(ctx context.Context, r robot.Robot, clk clock.Clock, interval time.Duration, minDistance float64) ([]robot.Pose, error) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	var poses []robot.Pose
	for {
		pose, err := r.Pose(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return poses, nil
			}
			return poses, errors.Wrap(err, "query pose")
		}
		if len(poses) == 0 || path.Distance(poses[len(poses)-1].Position, pose.Position) >= minDistance {
			poses = append(poses, pose)
		}

		select {
		case <-ctx.Done():
			return poses, nil
		case <-ticker.C:
		}
	}
}

func (c *RecordCommand) Execute(args []string) (err error) {
	cfg := config.Default()
	if config.Exists(c.Config) {
		if cfg, err = config.LoadConfigFrom(c.Config); err != nil {
			return err
		}
	}
	if c.URL != "" {
		cfg.Robot.URL = c.URL
	}

	client, err := robot.NewClient(robot.ClientConfig{URL: cfg.Robot.URL, Timeout: cfg.Robot.Timeout})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	fmt.Println(titleStyle.Render("Recording") + " " + statusStyle.Render(fmt.Sprintf("from %s, press Ctrl+C to stop", client.URL())))
	poses, recErr := recordPoses(ctx, client, clock.New(), c.Interval, c.MinDistance)
	if len(poses) == 0 {
		return multierr.Append(recErr, errors.New("no poses recorded"))
	}

	f, err := os.Create(c.Args.Out)
	if err != nil {
		return multierr.Append(recErr, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if err := path.Save(f, poses); err != nil {
		return multierr.Append(recErr, err)
	}

	points := make([]r3.Vector, len(poses))
	for i, p := range poses {
		points[i] = p.Position
	}
	fmt.Printf("Wrote %s waypoints (%s m) to %s\n",
		humanize.Comma(int64(len(poses))),
		humanize.FormatFloat("#,###.##", trajectory.Length(points)),
		c.Args.Out)
	return recErr
}
