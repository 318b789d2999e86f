package analysis

import (
	"fmt"
	"math"
	"sort"
)

// PrepareRegressionData turns peak pairs into regression samples
// (X = log10 concentration, Y = I1/I3) sorted ascending by X.
func PrepareRegressionData(peaks []PeakPair) ([]Sample, error) {
	if len(peaks) < MinSamples {
		return nil, fmt.Errorf("%w: got %d samples, need at least %d", ErrInsufficientData, len(peaks), MinSamples)
	}

	samples := make([]Sample, 0, len(peaks))
	for _, p := range peaks {
		if !(p.Concentration > 0) || math.IsInf(p.Concentration, 0) {
			return nil, fmt.Errorf("%w: %s has concentration %g", ErrInvalidSample, p.Name, p.Concentration)
		}
		if !isFinite(p.I1) || !isFinite(p.I3) || p.I3 == 0 {
			return nil, fmt.Errorf("%w: %s has I1=%g, I3=%g", ErrInvalidSample, p.Name, p.I1, p.I3)
		}
		samples = append(samples, Sample{
			Name: p.Name,
			X:    math.Log10(p.Concentration),
			Y:    p.I1 / p.I3,
		})
	}

	sort.SliceStable(samples, func(i, j int) bool { return samples[i].X < samples[j].X })
	if err := checkIncreasing(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// checkIncreasing verifies X is strictly increasing, which the prefix/suffix
// split relies on.
func checkIncreasing(samples []Sample) error {
	for i := 1; i < len(samples); i++ {
		if !(samples[i].X > samples[i-1].X) {
			return fmt.Errorf("%w: samples %d and %d share x=%g", ErrDuplicateX, i-1, i, samples[i].X)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
