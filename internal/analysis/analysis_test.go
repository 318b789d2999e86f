package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoLineSamples generates n noise-free samples on line a for x < split
// and on line b from split onwards, with x = 0, 1, ..., n-1.
func twoLineSamples(n, split int, a, b FittedLine) []Sample {
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		line := a
		if i >= split {
			line = b
		}
		samples[i] = Sample{X: x, Y: line.At(x)}
	}
	return samples
}

func TestIntersect_KnownLines(t *testing.T) {
	l1 := FittedLine{Intercept: 1, Slope: 2}
	l2 := FittedLine{Intercept: 5, Slope: -1}

	p, err := Intersect(l1, l2, DefaultParallelTolerance)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3.0, p.X, 1e-9)
	assert.InDelta(t, 11.0/3.0, p.Y, 1e-9)
	assert.Equal(t, "CAC = [1.333, 3.667]", p.Label())
}

func TestIntersect_ParallelLines(t *testing.T) {
	_, err := Intersect(FittedLine{Intercept: 1, Slope: 2}, FittedLine{Intercept: 3, Slope: 2}, DefaultParallelTolerance)
	assert.ErrorIs(t, err, ErrParallelLines)

	_, err = Intersect(FittedLine{Slope: 2}, FittedLine{Slope: 2 + 1e-12}, 0)
	assert.ErrorIs(t, err, ErrParallelLines, "zero tolerance falls back to the default")
}

func TestFitLine_ExactAndConstant(t *testing.T) {
	line, err := FitLine([]Sample{{X: 0, Y: 1}, {X: 1, Y: 3}, {X: 2, Y: 5}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, line.Intercept, 1e-12)
	assert.InDelta(t, 2.0, line.Slope, 1e-12)
	assert.InDelta(t, 1.0, line.R2, 1e-12)
	assert.InDelta(t, 0.0, line.RMSE, 1e-12)
	assert.Equal(t, 3, line.N)

	flat, err := FitLine([]Sample{{X: 0, Y: 4}, {X: 1, Y: 4}, {X: 2, Y: 4}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, flat.Slope, 1e-12)
	assert.Equal(t, 1.0, flat.R2)

	_, err = FitLine([]Sample{{X: 0, Y: 1}})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFitLine_FlatSegments(t *testing.T) {
	// Values like 0.1 are not representable, so the segment mean picks up
	// roundoff; the fit must still count as exact.
	for _, y := range []float64{0.1, 0.3, 1.9} {
		for _, n := range []int{3, 6, 7} {
			samples := make([]Sample, n)
			for i := range samples {
				samples[i] = Sample{X: -3 + 0.35*float64(i), Y: y}
			}
			line, err := FitLine(samples)
			require.NoError(t, err)
			assert.Equal(t, 1.0, line.R2, "y=%g n=%d", y, n)
			assert.InDelta(t, 0.0, line.RMSE, 1e-12, "y=%g n=%d", y, n)
			assert.InDelta(t, 0.0, line.Slope, 1e-12, "y=%g n=%d", y, n)
		}
	}
}

func TestAnalyzeSamples_FlatPlateauByR2(t *testing.T) {
	const n = 10
	for _, y0 := range []float64{0.1, 0.3, 1.1, 1.3, 1.7, 1.9} {
		for split := 3; split <= 7; split++ {
			samples := make([]Sample, n)
			for i := range samples {
				samples[i].X = -3 + 0.3*float64(i)
			}
			// Second line crosses the plateau between two sample positions
			cross := samples[split-1].X + 0.1
			for i := range samples {
				if i < split {
					samples[i].Y = y0
				} else {
					samples[i].Y = y0 - 0.5*(samples[i].X-cross)
				}
			}

			result, err := AnalyzeSamples(samples, Options{Criterion: CriterionR2})
			require.NoError(t, err, "y0=%g split=%d", y0, split)
			assert.Equal(t, split, result.Split(), "y0=%g", y0)
			assert.Equal(t, split, result.Selection.BestRMSE.Split, "y0=%g", y0)
			assert.Equal(t, 1.0, result.Chosen.Line1.R2, "y0=%g split=%d", y0, split)
			assert.InDelta(t, cross, result.CAC.X, 1e-9, "y0=%g split=%d", y0, split)
			assert.InDelta(t, y0, result.CAC.Y, 1e-9, "y0=%g split=%d", y0, split)
		}
	}
}

func TestFitLine_NoisyRMSE(t *testing.T) {
	// Best fit of (0,0) (1,1) (2,0) is y = 1/3, residuals -1/3, 2/3, -1/3
	line, err := FitLine([]Sample{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, line.Intercept, 1e-12)
	assert.InDelta(t, 0.0, line.Slope, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/9.0), line.RMSE, 1e-12)
	assert.InDelta(t, 0.0, line.R2, 1e-12)
}

func TestFitAllSplits_FrameCount(t *testing.T) {
	for n := 4; n <= 12; n++ {
		samples := twoLineSamples(n, n/2, FittedLine{Intercept: 1, Slope: 0.5}, FittedLine{Intercept: 4, Slope: -1})
		frames, err := FitAllSplits(samples)
		require.NoError(t, err, "n=%d", n)
		require.Len(t, frames, n-3, "n=%d", n)
		for i, f := range frames {
			assert.Equal(t, i+2, f.Split)
			assert.Equal(t, f.Split, f.Line1.N)
			assert.Equal(t, n-f.Split, f.Line2.N)
		}
	}
}

func TestFitAllSplits_Errors(t *testing.T) {
	_, err := FitAllSplits([]Sample{{X: 0}, {X: 1}, {X: 2}})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = FitAllSplits([]Sample{{X: 0}, {X: 1}, {X: 1}, {X: 2}})
	assert.ErrorIs(t, err, ErrDuplicateX)

	_, err = FitAllSplits([]Sample{{X: 0}, {X: 2}, {X: 1}, {X: 3}})
	assert.ErrorIs(t, err, ErrDuplicateX)
}

func TestSelectModels_PicksOptimum(t *testing.T) {
	frames := []ModelFrame{
		{Split: 2, MeanR2: 0.90, MeanRMSE: 0.30},
		{Split: 3, MeanR2: 0.97, MeanRMSE: 0.12},
		{Split: 4, MeanR2: 0.95, MeanRMSE: 0.10},
		{Split: 5, MeanR2: math.NaN(), MeanRMSE: math.NaN()},
	}
	sel, err := SelectModels(frames)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.BestR2.Split)
	assert.Equal(t, 4, sel.BestRMSE.Split)

	for _, f := range frames {
		if !math.IsNaN(f.MeanR2) {
			assert.GreaterOrEqual(t, sel.BestR2.MeanR2, f.MeanR2)
			assert.LessOrEqual(t, sel.BestRMSE.MeanRMSE, f.MeanRMSE)
		}
	}
}

func TestSelectModels_TiesGoToLowestSplit(t *testing.T) {
	frames := []ModelFrame{
		{Split: 2, MeanR2: 0.5, MeanRMSE: 0.4},
		{Split: 3, MeanR2: 0.8, MeanRMSE: 0.2},
		{Split: 4, MeanR2: 0.8, MeanRMSE: 0.2},
		{Split: 5, MeanR2: 0.8, MeanRMSE: 0.2},
	}
	sel, err := SelectModels(frames)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.BestR2.Split)
	assert.Equal(t, 3, sel.BestRMSE.Split)
}

func TestSelectModels_Empty(t *testing.T) {
	_, err := SelectModels(nil)
	assert.ErrorIs(t, err, ErrNoValidSplit)

	_, err = SelectModels([]ModelFrame{{Split: 2, MeanR2: math.NaN(), MeanRMSE: math.NaN()}})
	assert.ErrorIs(t, err, ErrNoValidSplit)
}

func TestSelection_Frame(t *testing.T) {
	sel := Selection{BestR2: ModelFrame{Split: 3}, BestRMSE: ModelFrame{Split: 5}}

	f, err := sel.Frame(CriterionR2)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Split)

	f, err = sel.Frame(CriterionRMSE)
	require.NoError(t, err)
	assert.Equal(t, 5, f.Split)

	_, err = sel.Frame("mae")
	assert.Error(t, err)
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion(" RMSE ")
	require.NoError(t, err)
	assert.Equal(t, CriterionRMSE, c)

	c, err = ParseCriterion("r2")
	require.NoError(t, err)
	assert.Equal(t, CriterionR2, c)

	_, err = ParseCriterion("aic")
	assert.Error(t, err)
}

func TestAnalyzeSamples_RecoversKnownLines(t *testing.T) {
	a := FittedLine{Intercept: 1.8, Slope: -0.05}
	b := FittedLine{Intercept: 0.9, Slope: -0.4}
	samples := twoLineSamples(10, 5, a, b)

	for _, c := range []Criterion{CriterionR2, CriterionRMSE} {
		result, err := AnalyzeSamples(samples, Options{Criterion: c})
		require.NoError(t, err, c)

		assert.Equal(t, 5, result.Split(), c)
		assert.InDelta(t, a.Intercept, result.Chosen.Line1.Intercept, 1e-9)
		assert.InDelta(t, a.Slope, result.Chosen.Line1.Slope, 1e-9)
		assert.InDelta(t, b.Intercept, result.Chosen.Line2.Intercept, 1e-9)
		assert.InDelta(t, b.Slope, result.Chosen.Line2.Slope, 1e-9)

		wantX := (b.Intercept - a.Intercept) / (a.Slope - b.Slope)
		assert.InDelta(t, wantX, result.CAC.X, 1e-9)
		assert.InDelta(t, a.At(wantX), result.CAC.Y, 1e-9)
		assert.NotEmpty(t, result.RunID)
	}
}

func TestAnalyzeSamples_ParallelSegments(t *testing.T) {
	// One straight line: every split yields the same slope on both sides
	samples := twoLineSamples(6, 3, FittedLine{Intercept: 1, Slope: 2}, FittedLine{Intercept: 1, Slope: 2})
	_, err := AnalyzeSamples(samples, Options{Criterion: CriterionRMSE, ParallelTolerance: 1e-6})
	assert.ErrorIs(t, err, ErrParallelLines)
}

func TestResultRecord(t *testing.T) {
	// Lines cross at x = 13/3, between samples, so only split 4 fits exactly
	samples := twoLineSamples(8, 4, FittedLine{Intercept: 1, Slope: 2}, FittedLine{Intercept: 14, Slope: -1})
	result, err := AnalyzeSamples(samples, DefaultOptions())
	require.NoError(t, err)

	rec := result.Record()
	assert.Equal(t, CriterionRMSE, rec.Criterion)
	assert.Equal(t, 4, rec.Split)
	assert.Equal(t, 4, rec.BestR2Split)
	assert.Equal(t, 4, rec.BestRMSESplit)
	assert.InDelta(t, 2.0, rec.Line1.Slope, 1e-9)
	assert.InDelta(t, -1.0, rec.Line2.Slope, 1e-9)
	assert.InDelta(t, 13.0/3.0, rec.CAC.X, 1e-9)
	assert.InDelta(t, 29.0/3.0, rec.CAC.Y, 1e-9)
	assert.InDelta(t, math.Pow(10, 13.0/3.0), rec.CACConcentration, 1e-6)
	assert.Equal(t, "CAC = [4.333, 9.667]", rec.Label)
	assert.Equal(t, result.RunID, rec.RunID)

	seg1, seg2 := result.Segments()
	assert.Len(t, seg1, 4)
	assert.Len(t, seg2, 4)
}
