package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
	"github.com/banshee-data/raceline.report/internal/units"
)

// WriteHTMLReport renders an interactive report: the track map coloured by
// target speed, the speed profile and the curvature trace, with detected
// corners in the subtitles.
func WriteHTMLReport(w io.Writer, c *geom.Centerline, line *solver.Result, corners []track.Corner) error {
	page := components.NewPage()
	page.SetPageTitle("Racing Line Report")
	page.AddCharts(
		trackMapChart(c, line),
		speedProfileChart(line, corners),
		curvatureChart(c),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// SaveHTMLReport is WriteHTMLReport to a file path.
func SaveHTMLReport(path string, c *geom.Centerline, line *solver.Result, corners []track.Corner) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return WriteHTMLReport(f, c, line, corners)
}

func trackMapChart(c *geom.Centerline, line *solver.Result) components.Charter {
	// Square axes keep the map undistorted.
	pad := 1.0
	for _, tp := range c.Points {
		if v := maxAbs(tp.X, tp.Y); v > pad {
			pad = v
		}
	}
	pad *= 1.05

	data := make([]opts.ScatterData, 0, len(c.Points))
	maxSpeed := 1.0
	if line != nil {
		for _, lp := range line.Points {
			kmh := units.ConvertSpeed(lp.TargetSpeed, units.KMPH)
			if kmh > maxSpeed {
				maxSpeed = kmh
			}
			data = append(data, opts.ScatterData{Value: []interface{}{lp.X, lp.Y, kmh}})
		}
	} else {
		for _, tp := range c.Points {
			data = append(data, opts.ScatterData{Value: []interface{}{tp.X, tp.Y, 0.0}})
		}
	}

	subtitle := fmt.Sprintf("%.0f m, %d points", c.TotalLength, c.Len())
	if line != nil {
		subtitle = fmt.Sprintf("%s, lap %s", subtitle, units.FormatLapTime(line.LapTimeSec))
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track Map", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSpeed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("line", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func speedProfileChart(line *solver.Result, corners []track.Corner) components.Charter {
	chart := charts.NewLine()
	subtitle := ""
	if len(corners) > 0 {
		subtitle = fmt.Sprintf("%d corners detected", len(corners))
	}
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Speed Profile", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Speed (km/h)"}),
	)

	if line != nil {
		xs := make([]string, len(line.Points))
		ys := make([]opts.LineData, len(line.Points))
		for i, lp := range line.Points {
			xs[i] = fmt.Sprintf("%.0f", lp.ArcLength)
			ys[i] = opts.LineData{Value: units.ConvertSpeed(lp.TargetSpeed, units.KMPH)}
		}
		chart.SetXAxis(xs)
		chart.AddSeries("target speed", ys)
	}
	return chart
}

func curvatureChart(c *geom.Centerline) components.Charter {
	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Curvature", Subtitle: "positive = left turn"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "1/m"}),
	)

	xs := make([]string, c.Len())
	ys := make([]opts.LineData, c.Len())
	for i, tp := range c.Points {
		xs[i] = fmt.Sprintf("%.0f", tp.ArcLength)
		ys[i] = opts.LineData{Value: tp.Curvature}
	}
	chart.SetXAxis(xs)
	chart.AddSeries("curvature", ys)
	return chart
}

func maxAbs(a, b float64) float64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}
