package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/cac_analyzer_go/internal/parser"
)

func measurementXY(m *parser.Measurement) plotter.XYs {
	pts := make(plotter.XYs, len(m.Data))
	for i, d := range m.Data {
		pts[i] = plotter.XY{X: d.X, Y: d.Y}
	}
	return pts
}

// AddMeasurementTrace draws one measurement onto p using its own pen colour
// and symbol, and adds it to the legend.
func AddMeasurementTrace(p *plot.Plot, m *parser.Measurement) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("measurement %s has no data", m.Name)
	}
	c := resolveColor(m.PenColor())
	pts := measurementXY(m)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create line for %s: %w", m.Name, err)
	}
	line.Color = c
	line.Width = vg.Points(1.2)
	p.Add(line)

	if glyph, ok := resolveGlyph(m.Symbol()); ok {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to create symbols for %s: %w", m.Name, err)
		}
		scatter.Shape = glyph
		scatter.Color = c
		scatter.Radius = vg.Points(float64(m.SymbolSize()) / 2)
		p.Add(scatter)
		p.Legend.Add(m.Name, line, scatter)
		return nil
	}
	p.Legend.Add(m.Name, line)
	return nil
}

// CreateSpectraPlot draws every enabled measurement. Pen colours are
// assigned by position in the list so redraws are stable.
func CreateSpectraPlot(measurements []*parser.Measurement, size PlotSize) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Spectra"
	p.X.Label.Text = "Wavelength, nm"
	p.Y.Label.Text = "Intensity"
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, m := range measurements {
		if !m.Enabled() {
			continue
		}
		m.SetPenColor(penColors[i%len(penColors)])
		if err := AddMeasurementTrace(p, m); err != nil {
			return nil, err
		}
		drawn++
	}
	if drawn == 0 {
		// An empty chart still renders so the view can be cleared
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
	}

	p.Legend.Top = true
	p.Legend.Left = false
	return renderPNG(p, size)
}
