package analysis

import (
	"fmt"
	"math"
)

// Intersect solves l1.Intercept + l1.Slope*x = l2.Intercept + l2.Slope*x.
// Slopes closer than tol are reported as ErrParallelLines; a non-positive
// tol falls back to DefaultParallelTolerance.
func Intersect(l1, l2 FittedLine, tol float64) (Point, error) {
	if tol <= 0 {
		tol = DefaultParallelTolerance
	}
	dSlope := l1.Slope - l2.Slope
	if math.IsNaN(dSlope) || math.Abs(dSlope) < tol {
		return Point{}, fmt.Errorf("%w: slopes %g and %g", ErrParallelLines, l1.Slope, l2.Slope)
	}
	x := (l2.Intercept - l1.Intercept) / dSlope
	return Point{X: x, Y: l1.At(x)}, nil
}
