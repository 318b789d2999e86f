package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"

	"github.com/user/cac_analyzer_go/internal/analysis"
)

// segmentR2Grid exposes per-segment R² as a grid: columns are splits, row 0
// is segment 1 and row 1 is segment 2.
type segmentR2Grid struct {
	frames []analysis.ModelFrame
}

func (g segmentR2Grid) Dims() (c, r int) { return len(g.frames), 2 }

func (g segmentR2Grid) Z(c, r int) float64 {
	if r == 0 {
		return g.frames[c].Line1.R2
	}
	return g.frames[c].Line2.R2
}

func (g segmentR2Grid) X(c int) float64 { return float64(g.frames[c].Split) }
func (g segmentR2Grid) Y(r int) float64 { return float64(r) }

// CreateSegmentR2Heatmap renders the R² of both segments for every split.
// At least two frames are needed to lay out the cells.
func CreateSegmentR2Heatmap(result *analysis.CACResult, size PlotSize) ([]byte, error) {
	if result == nil || len(result.Frames) < 2 {
		return nil, fmt.Errorf("need at least two model frames for a heatmap")
	}
	frames := result.Frames

	p := plot.New()
	p.Title.Text = "Segment R² per split"
	p.X.Label.Text = "Split index k"
	p.Y.Label.Text = "Segment"

	hm := plotter.NewHeatMap(segmentR2Grid{frames: frames}, palette.Heat(10, 1))
	hm.Min, hm.Max = 0, 1
	// Negative R² is possible for very poor fits; clamp to the end colours
	colors := hm.Palette.Colors()
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{
		{Value: 0, Label: "Segment 1"},
		{Value: 1, Label: "Segment 2"},
	})
	p.Y.Min, p.Y.Max = -0.5, 1.5

	first, last := frames[0].Split, frames[len(frames)-1].Split
	p.X.Tick.Marker = plot.ConstantTicks(splitTicks(first, last))
	p.X.Min, p.X.Max = float64(first)-0.5, float64(last)+0.5

	return renderPNG(p, size)
}
