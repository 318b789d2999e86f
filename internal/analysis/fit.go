package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// FitLine fits an ordinary least squares line to samples and reports its R²
// and RMSE on those samples.
func FitLine(samples []Sample) (FittedLine, error) {
	if len(samples) < MinSegmentPoints {
		return FittedLine{}, fmt.Errorf("%w: a line needs %d points, got %d", ErrInsufficientData, MinSegmentPoints, len(samples))
	}
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.X
		ys[i] = s.Y
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	sse := 0.0
	for i := range xs {
		r := ys[i] - (intercept + slope*xs[i])
		sse += r * r
	}
	rmse := math.Sqrt(sse / float64(len(xs)))

	return FittedLine{Intercept: intercept, Slope: slope, R2: rSquared(xs, ys, intercept, slope, sse), RMSE: rmse, N: len(xs)}, nil
}

// flatTolerance bounds the spread of a segment, relative to its sum of
// squares, below which the segment counts as constant.
const flatTolerance = 1e-20

// rSquared returns the coefficient of determination. A constant segment is
// reproduced exactly by a horizontal line and scores 1, independent of the
// roundoff left in its mean.
func rSquared(xs, ys []float64, intercept, slope, sse float64) float64 {
	scale := 0.0
	for _, y := range ys {
		scale += y * y
	}
	mean := stat.Mean(ys, nil)
	sst := 0.0
	for _, y := range ys {
		d := y - mean
		sst += d * d
	}
	if sst <= flatTolerance*scale && sse <= flatTolerance*scale {
		return 1
	}
	return stat.RSquared(xs, ys, nil, intercept, slope)
}

// FitAllSplits fits a two-line model for every split k in
// [MinSegmentPoints, n-MinSegmentPoints]. Frames are returned in ascending k
// order, n-3 of them for n samples.
func FitAllSplits(samples []Sample) ([]ModelFrame, error) {
	n := len(samples)
	if n < MinSamples {
		return nil, fmt.Errorf("%w: got %d samples, need at least %d", ErrInsufficientData, n, MinSamples)
	}
	if err := checkIncreasing(samples); err != nil {
		return nil, err
	}

	frames := make([]ModelFrame, 0, n-2*MinSegmentPoints+1)
	for k := MinSegmentPoints; k <= n-MinSegmentPoints; k++ {
		line1, err := FitLine(samples[:k])
		if err != nil {
			return nil, fmt.Errorf("split %d, segment 1: %w", k, err)
		}
		line2, err := FitLine(samples[k:])
		if err != nil {
			return nil, fmt.Errorf("split %d, segment 2: %w", k, err)
		}
		frames = append(frames, ModelFrame{
			Split:    k,
			Line1:    line1,
			Line2:    line2,
			MeanR2:   (line1.R2 + line2.R2) / 2,
			MeanRMSE: (line1.RMSE + line2.RMSE) / 2,
		})
	}
	return frames, nil
}
