package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/cac_analyzer_go/internal/analysis"
)

func samplesXY(samples []analysis.Sample) plotter.XYs {
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: s.X, Y: s.Y}
	}
	return pts
}

// addLine draws l across [xMin, xMax].
func addLine(p *plot.Plot, l analysis.FittedLine, xMin, xMax float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{{X: xMin, Y: l.At(xMin)}, {X: xMax, Y: l.At(xMax)}})
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1.2)
	p.Add(line)
	return line, nil
}

// CreateCACPlot renders the regression samples split at the chosen
// breakpoint, both fitted lines and the annotated CAC point.
func CreateCACPlot(result *analysis.CACResult, size PlotSize) ([]byte, error) {
	if result == nil || len(result.Samples) == 0 {
		return nil, fmt.Errorf("no CAC result to plot")
	}

	p := plot.New()
	p.Title.Text = "Critical aggregation concentration"
	p.X.Label.Text = "logC, mg/ml"
	p.Y.Label.Text = "I1/I3"
	p.Add(plotter.NewGrid())

	seg1, seg2 := result.Segments()
	xMin, xMax := result.Samples[0].X, result.Samples[len(result.Samples)-1].X
	xMin = math.Min(xMin, result.CAC.X)
	xMax = math.Max(xMax, result.CAC.X)
	xMin, xMax = paddedRange(xMin, xMax, 0.05)
	p.X.Min, p.X.Max = xMin, xMax

	for i, seg := range [][]analysis.Sample{seg1, seg2} {
		scatter, err := plotter.NewScatter(samplesXY(seg))
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter for segment %d: %w", i+1, err)
		}
		scatter.GlyphStyle.Color = resolveColor([]string{"b", "r"}[i])
		scatter.GlyphStyle.Radius = vg.Points(3.5)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("Segment %d (n=%d)", i+1, len(seg)), scatter)
	}

	lineColor := color.Gray{Y: 60}
	if _, err := addLine(p, result.Chosen.Line1, xMin, xMax, lineColor); err != nil {
		return nil, fmt.Errorf("failed to create line 1: %w", err)
	}
	if _, err := addLine(p, result.Chosen.Line2, xMin, xMax, lineColor); err != nil {
		return nil, fmt.Errorf("failed to create line 2: %w", err)
	}

	cacXY := plotter.XYs{{X: result.CAC.X, Y: result.CAC.Y}}
	marker, err := plotter.NewScatter(cacXY)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAC marker: %w", err)
	}
	marker.GlyphStyle.Color = resolveColor("g")
	marker.GlyphStyle.Shape = diamondGlyph{}
	marker.GlyphStyle.Radius = vg.Points(5)
	p.Add(marker)

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: cacXY, Labels: []string{result.CAC.Label()}})
	if err != nil {
		return nil, fmt.Errorf("failed to create CAC label: %w", err)
	}
	labels.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(4)}
	p.Add(labels)

	p.Legend.Top = true
	return renderPNG(p, size)
}

// CreateSplitQualityPlot renders the mean R² and mean RMSE of every
// candidate split, with the chosen split marked.
func CreateSplitQualityPlot(result *analysis.CACResult, size PlotSize) ([]byte, error) {
	if result == nil || len(result.Frames) == 0 {
		return nil, fmt.Errorf("no model frames to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Fit quality per split (chosen k=%d, %s)", result.Split(), result.Criterion)
	p.X.Label.Text = "Split index k"
	p.Y.Label.Text = "Mean R² / mean RMSE"
	p.Add(plotter.NewGrid())

	r2 := make(plotter.XYs, 0, len(result.Frames))
	rmse := make(plotter.XYs, 0, len(result.Frames))
	yMax := 1.0
	for _, f := range result.Frames {
		k := float64(f.Split)
		if !math.IsNaN(f.MeanR2) {
			r2 = append(r2, plotter.XY{X: k, Y: f.MeanR2})
		}
		if !math.IsNaN(f.MeanRMSE) {
			rmse = append(rmse, plotter.XY{X: k, Y: f.MeanRMSE})
			yMax = math.Max(yMax, f.MeanRMSE)
		}
	}

	series := []struct {
		name string
		pts  plotter.XYs
		code string
	}{
		{"Mean R²", r2, "b"},
		{"Mean RMSE", rmse, "r"},
	}
	for _, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(s.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s series: %w", s.name, err)
		}
		line.Color = resolveColor(s.code)
		points.Color = resolveColor(s.code)
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}

	chosen, err := plotter.NewLine(plotter.XYs{{X: float64(result.Split()), Y: 0}, {X: float64(result.Split()), Y: yMax}})
	if err != nil {
		return nil, fmt.Errorf("failed to create split marker: %w", err)
	}
	chosen.Color = resolveColor("g")
	chosen.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chosen)
	p.Legend.Add("Chosen split", chosen)

	first, last := result.Frames[0].Split, result.Frames[len(result.Frames)-1].Split
	p.X.Min, p.X.Max = float64(first)-0.5, float64(last)+0.5
	p.X.Tick.Marker = plot.ConstantTicks(splitTicks(first, last))
	p.Legend.Top = true
	return renderPNG(p, size)
}

// splitTicks labels every split when there are few, otherwise about ten.
func splitTicks(first, last int) []plot.Tick {
	step := 1
	if n := last - first + 1; n > 12 {
		step = (n + 9) / 10
	}
	ticks := make([]plot.Tick, 0, (last-first)/step+1)
	for k := first; k <= last; k += step {
		ticks = append(ticks, plot.Tick{Value: float64(k), Label: fmt.Sprintf("%d", k)})
	}
	return ticks
}
