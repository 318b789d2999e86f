package report

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotSize is the rendered image size in points.
type PlotSize struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultPlotSize matches the chart area of the desktop window.
var DefaultPlotSize = PlotSize{Width: vg.Points(800), Height: vg.Points(500)}

// NewPlotSize converts point dimensions, falling back to DefaultPlotSize for
// non-positive values.
func NewPlotSize(widthPt, heightPt float64) PlotSize {
	if widthPt <= 0 || heightPt <= 0 {
		return DefaultPlotSize
	}
	return PlotSize{Width: vg.Points(widthPt), Height: vg.Points(heightPt)}
}

// penColors are the single letter colour codes cycled through for traces.
var penColors = []string{"r", "g", "b", "c", "m", "y"}

var namedColors = map[string]color.Color{
	"r": color.RGBA{R: 214, G: 39, B: 40, A: 255},
	"g": color.RGBA{R: 44, G: 160, B: 44, A: 255},
	"b": color.RGBA{R: 31, G: 119, B: 180, A: 255},
	"c": color.RGBA{G: 170, B: 190, A: 255},
	"m": color.RGBA{R: 160, G: 40, B: 160, A: 255},
	"y": color.RGBA{R: 200, G: 170, A: 255},
	"k": color.Black,
	"w": color.White,
}

// resolveColor maps a colour code to a colour; unknown codes are black.
func resolveColor(code string) color.Color {
	if c, ok := namedColors[code]; ok {
		return c
	}
	return color.Black
}

// diamondGlyph draws a filled diamond, the CAC marker.
type diamondGlyph struct{}

func (diamondGlyph) DrawGlyph(c *draw.Canvas, sty draw.GlyphStyle, pt vg.Point) {
	r := sty.Radius
	var p vg.Path
	p.Move(vg.Point{X: pt.X, Y: pt.Y + r})
	p.Line(vg.Point{X: pt.X + r, Y: pt.Y})
	p.Line(vg.Point{X: pt.X, Y: pt.Y - r})
	p.Line(vg.Point{X: pt.X - r, Y: pt.Y})
	p.Close()
	c.SetColor(sty.Color)
	c.Fill(p)
}

// resolveGlyph maps a symbol code to a glyph; "" means no symbol.
func resolveGlyph(symbol string) (draw.GlyphDrawer, bool) {
	switch symbol {
	case "o":
		return draw.CircleGlyph{}, true
	case "d":
		return diamondGlyph{}, true
	case "s":
		return draw.SquareGlyph{}, true
	case "t":
		return draw.TriangleGlyph{}, true
	case "+":
		return draw.PlusGlyph{}, true
	case "x":
		return draw.CrossGlyph{}, true
	default:
		return nil, false
	}
}

// renderPNG draws p into PNG bytes.
func renderPNG(p *plot.Plot, size PlotSize) ([]byte, error) {
	writer, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange widens [min, max] by frac of its span on each side.
func paddedRange(min, max, frac float64) (float64, float64) {
	span := max - min
	if span == 0 {
		span = 1
	}
	return min - span*frac, max + span*frac
}
