package analysis

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MinSegmentPoints is the smallest segment a line is fitted to.
	MinSegmentPoints = 2
	// MinSamples is the smallest sample count with at least one valid split.
	MinSamples = 2 * MinSegmentPoints
	// DefaultParallelTolerance is the slope difference below which two lines
	// are treated as parallel.
	DefaultParallelTolerance = 1e-9
)

// PeakPair holds the two peak intensities extracted from one measurement.
type PeakPair struct {
	Name          string
	Concentration float64
	I1            float64
	I3            float64
}

// Sample is one regression point: X = log10(concentration), Y = I1/I3.
type Sample struct {
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FittedLine is an ordinary least squares line y = Intercept + Slope*x
// together with its fit quality on the segment it was fitted to.
type FittedLine struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	R2        float64 `json:"r2"`
	RMSE      float64 `json:"rmse"`
	N         int     `json:"n"`
}

// At evaluates the line at x.
func (l FittedLine) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// ModelFrame is the two-line model for one split index. Line1 is fitted to
// samples [0, Split) and Line2 to [Split, n).
type ModelFrame struct {
	Split    int        `json:"split"`
	Line1    FittedLine `json:"line1"`
	Line2    FittedLine `json:"line2"`
	MeanR2   float64    `json:"mean_r2"`
	MeanRMSE float64    `json:"mean_rmse"`
}

// Criterion names the model selection rule.
type Criterion string

const (
	CriterionR2   Criterion = "r2"
	CriterionRMSE Criterion = "rmse"
)

// ParseCriterion accepts "r2" or "rmse" in any case.
func ParseCriterion(s string) (Criterion, error) {
	switch Criterion(strings.ToLower(strings.TrimSpace(s))) {
	case CriterionR2:
		return CriterionR2, nil
	case CriterionRMSE:
		return CriterionRMSE, nil
	default:
		return "", fmt.Errorf("unknown selection criterion: %q", s)
	}
}

// Selection holds the best frame under each criterion.
type Selection struct {
	BestR2   ModelFrame `json:"best_r2"`
	BestRMSE ModelFrame `json:"best_rmse"`
}

// Frame returns the frame chosen by criterion.
func (s Selection) Frame(c Criterion) (ModelFrame, error) {
	switch c {
	case CriterionR2:
		return s.BestR2, nil
	case CriterionRMSE:
		return s.BestRMSE, nil
	default:
		return ModelFrame{}, fmt.Errorf("unknown selection criterion: %q", string(c))
	}
}

// Point is the intersection of the two fitted lines, the CAC estimate in
// (log10 concentration, I1/I3) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Label formats the point the way it is annotated on the chart.
func (p Point) Label() string {
	return fmt.Sprintf("CAC = [%s, %s]", formatRounded(p.X), formatRounded(p.Y))
}

// Concentration converts X back to concentration units.
func (p Point) Concentration() float64 {
	return math.Pow(10, p.X)
}

func formatRounded(v float64) string {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0 // drop negative zero
	}
	return fmt.Sprintf("%g", r)
}
