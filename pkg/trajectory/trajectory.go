// Package trajectory records the positions a robot drove through and plots
// them against the reference path.
package trajectory

import (
	"image/color"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Sample is one recorded robot position.
type Sample struct {
	Time     time.Time
	Position r3.Vector
}

// Trace collects samples during a run. It is safe for concurrent use.
type Trace struct {
	mu      sync.Mutex
	samples []Sample
}

// NewTrace returns an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Record appends a sample.
func (t *Trace) Record(at time.Time, pos r3.Vector) {
	t.mu.Lock()
	t.samples = append(t.samples, Sample{Time: at, Position: pos})
	t.mu.Unlock()
}

// Samples returns a copy of the recorded samples.
func (t *Trace) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Positions returns the recorded positions in order.
func (t *Trace) Positions() []r3.Vector {
	return Positions(t.Samples())
}

// Len returns the number of samples.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Distance returns the planar length of the driven track.
func (t *Trace) Distance() float64 {
	return Length(t.Positions())
}

// Positions extracts the positions of samples.
func Positions(samples []Sample) []r3.Vector {
	out := make([]r3.Vector, len(samples))
	for i, s := range samples {
		out[i] = s.Position
	}
	return out
}

// Length is the planar length of a polyline.
func Length(points []r3.Vector) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		d := points[i].Sub(points[i-1])
		d.Z = 0
		total += d.Norm()
	}
	return total
}

var (
	robotColor = color.RGBA{R: 220, A: 255}
	pathColor  = color.RGBA{B: 220, A: 255}
)

// mirrored converts points to plot coordinates with -Y on the horizontal
// axis and X on the vertical, the view of the robot's map.
func mirrored(points []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i].X = -p.Y
		xys[i].Y = p.X
	}
	return xys
}

// Plot draws the driven track over the reference path and saves it to
// file. The image format follows the file extension (png, svg, pdf, ...).
func Plot(file, title string, track, reference []r3.Vector) error {
	if len(track) == 0 && len(reference) == 0 {
		return errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "-Y (m)"
	p.Y.Label.Text = "X (m)"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	if len(reference) > 0 {
		line, err := plotter.NewLine(mirrored(reference))
		if err != nil {
			return errors.Wrap(err, "reference line")
		}
		line.Color = pathColor
		p.Add(line)
		p.Legend.Add("Path", line)
	}
	if len(track) > 0 {
		line, err := plotter.NewLine(mirrored(track))
		if err != nil {
			return errors.Wrap(err, "robot line")
		}
		line.Color = robotColor
		p.Add(line)
		p.Legend.Add("Robot", line)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return errors.Wrapf(err, "save plot %s", file)
	}
	return nil
}
