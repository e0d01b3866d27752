// Package chart renders city summaries and anomaly verdicts as PNG/SVG images.
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/rewired-gh/tempwatch/internal/analysis"
	"github.com/rewired-gh/tempwatch/internal/models"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const histogramBins = 20

var (
	seriesColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	outlierColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	trendColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	currentColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Size is the output image size.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize fits a wide time series.
var DefaultSize = Size{Width: 12 * vg.Inch, Height: 5 * vg.Inch}

// RenderCity draws the smoothed series, outlier markers and trend line of a
// city to path. The image format follows the file extension.
func RenderCity(summary *models.CitySummary, path string, size Size) error {
	if summary == nil || len(summary.Records) == 0 {
		return fmt.Errorf("no records to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - historical temperature (%d-day moving average)", summary.City, summary.WindowSize)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Temperature (°C)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	series := make(plotter.XYs, len(summary.Records))
	trend := make(plotter.XYs, len(summary.Records))
	var outliers plotter.XYs
	for i, r := range summary.Records {
		x := float64(r.Timestamp.Unix())
		series[i] = plotter.XY{X: x, Y: r.Smoothed}
		trend[i] = plotter.XY{X: x, Y: r.TrendPrediction}
		if r.IsOutlier {
			outliers = append(outliers, plotter.XY{X: x, Y: r.Smoothed})
		}
	}

	seriesLine, err := plotter.NewLine(series)
	if err != nil {
		return err
	}
	seriesLine.Color = seriesColor
	seriesLine.Width = vg.Points(1)
	p.Add(seriesLine)
	p.Legend.Add("Temperature", seriesLine)

	trendLine, err := plotter.NewLine(trend)
	if err != nil {
		return err
	}
	trendLine.Color = trendColor
	trendLine.Width = vg.Points(2)
	trendLine.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(trendLine)
	p.Legend.Add("Trend", trendLine)

	if len(outliers) > 0 {
		scatter, err := plotter.NewScatter(outliers)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = outlierColor
		scatter.GlyphStyle.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("Outliers", scatter)
	}

	p.Legend.Top = true
	return save(p, path, size)
}

// RenderSeason draws the raw-temperature distribution of the report's season
// together with the anomaly thresholds, the median and the current reading.
func RenderSeason(report *models.Report, path string, size Size) error {
	if report == nil || report.Summary == nil {
		return fmt.Errorf("no report to plot")
	}
	season := report.Verdict.SeasonUsed
	temps := report.Summary.SeasonTemperatures(season)
	if len(temps) == 0 {
		return fmt.Errorf("%s has no %s records to plot", report.City, season)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s temperature distribution", report.City, season)
	p.X.Label.Text = "Temperature (°C)"
	p.Y.Label.Text = "Probability density"

	hist, err := plotter.NewHist(plotter.Values(temps), histogramBins)
	if err != nil {
		return err
	}
	hist.Normalize(1)
	hist.FillColor = color.RGBA{R: 31, G: 119, B: 180, A: 180}
	p.Add(hist)
	p.Legend.Add("Temperatures", hist)

	top := 0.0
	for _, b := range hist.Bins {
		if b.Weight > top {
			top = b.Weight
		}
	}
	if top == 0 {
		top = 1
	}

	label := fmt.Sprintf("Median ± %.1f·std", analysis.AnomalyStdMultiplier)
	for i, x := range []float64{report.Verdict.ThresholdLow, report.Verdict.ThresholdHigh} {
		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top * 1.05}})
		if err != nil {
			return err
		}
		line.Color = outlierColor
		line.Width = vg.Points(2)
		p.Add(line)
		if i == 0 {
			p.Legend.Add(label, line)
		}
	}

	if err := addMarker(p, "Median", report.Verdict.Median, trendColor); err != nil {
		return err
	}
	if err := addMarker(p, "Current", report.Current.TemperatureC, currentColor); err != nil {
		return err
	}

	p.Legend.Top = true
	return save(p, path, size)
}

func addMarker(p *plot.Plot, name string, x float64, c color.Color) error {
	s, err := plotter.NewScatter(plotter.XYs{{X: x, Y: 0}})
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(5)
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}

func save(p *plot.Plot, path string, size Size) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(size.Width, size.Height, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
