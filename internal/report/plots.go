// Package report renders solved sessions as static PNG plots and an
// interactive HTML report.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/units"
)

var (
	centerlineColor = color.RGBA{R: 140, G: 140, B: 140, A: 255}
	raceLineColor   = color.RGBA{R: 204, G: 32, B: 32, A: 255}
	speedColor      = color.RGBA{R: 32, G: 96, B: 204, A: 255}
)

// SaveTrackMapPNG renders the centerline and, when present, the solved
// line on top of it.
func SaveTrackMapPNG(path string, c *geom.Centerline, line *solver.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = "Track Map"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	centerPts := make(plotter.XYs, c.Len())
	for i, tp := range c.Points {
		centerPts[i] = plotter.XY{X: tp.X, Y: tp.Y}
	}
	centerLine, err := plotter.NewLine(centerPts)
	if err != nil {
		return fmt.Errorf("centerline plot: %w", err)
	}
	centerLine.Color = centerlineColor
	centerLine.Width = vg.Points(1)
	p.Add(centerLine)
	p.Legend.Add("centerline", centerLine)

	if line != nil {
		racePts := make(plotter.XYs, len(line.Points))
		for i, lp := range line.Points {
			racePts[i] = plotter.XY{X: lp.X, Y: lp.Y}
		}
		raceLine, err := plotter.NewLine(racePts)
		if err != nil {
			return fmt.Errorf("racing line plot: %w", err)
		}
		raceLine.Color = raceLineColor
		raceLine.Width = vg.Points(1.5)
		p.Add(raceLine)
		p.Legend.Add("optimal line", raceLine)
	}

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save track map: %w", err)
	}
	return nil
}

// SaveSpeedProfilePNG renders target speed against lap distance.
func SaveSpeedProfilePNG(path string, line *solver.Result, speedUnit string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if !units.IsValid(speedUnit) {
		speedUnit = units.MPS
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Speed Profile (lap %s)", units.FormatLapTime(line.LapTimeSec))
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = fmt.Sprintf("Speed (%s)", speedUnit)
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(line.Points))
	for i, lp := range line.Points {
		pts[i] = plotter.XY{
			X: lp.ArcLength,
			Y: units.ConvertSpeed(lp.TargetSpeed, speedUnit),
		}
	}
	speedLine, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("speed profile plot: %w", err)
	}
	speedLine.Color = speedColor
	speedLine.Width = vg.Points(1)
	p.Add(speedLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save speed profile: %w", err)
	}
	return nil
}
