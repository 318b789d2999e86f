package analysis

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/user/cac_analyzer_go/internal/parser"
)

// Options control a CAC analysis run.
type Options struct {
	Windows           PeakWindows
	Criterion         Criterion
	ParallelTolerance float64
}

// DefaultOptions selects by RMSE, which is the model the chart shows.
func DefaultOptions() Options {
	return Options{
		Windows:           DefaultPeakWindows(),
		Criterion:         CriterionRMSE,
		ParallelTolerance: DefaultParallelTolerance,
	}
}

// CACResult holds everything one analysis run produced.
type CACResult struct {
	RunID     string
	Peaks     []PeakPair
	Samples   []Sample
	Frames    []ModelFrame
	Selection Selection
	Criterion Criterion
	Chosen    ModelFrame
	CAC       Point
	Warnings  []string
}

// Split is the index of the first sample of the second segment.
func (r *CACResult) Split() int { return r.Chosen.Split }

// Segments returns the samples on either side of the chosen split.
func (r *CACResult) Segments() ([]Sample, []Sample) {
	k := r.Chosen.Split
	return r.Samples[:k], r.Samples[k:]
}

// LineRecord is the serialised form of a fitted line.
type LineRecord struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// ResultRecord is the JSON record handed to presentation layers.
type ResultRecord struct {
	RunID            string     `json:"run_id"`
	Criterion        Criterion  `json:"criterion"`
	Split            int        `json:"split"`
	Line1            LineRecord `json:"line1"`
	Line2            LineRecord `json:"line2"`
	CAC              Point      `json:"cac"`
	CACConcentration float64    `json:"cac_concentration"`
	Label            string     `json:"label"`
	R2               float64    `json:"r2"`
	RMSE             float64    `json:"rmse"`
	BestR2Split      int        `json:"best_r2_split"`
	BestRMSESplit    int        `json:"best_rmse_split"`
	Samples          []Sample   `json:"samples"`
	Warnings         []string   `json:"warnings,omitempty"`
}

// Record flattens the result for serialisation.
func (r *CACResult) Record() ResultRecord {
	return ResultRecord{
		RunID:            r.RunID,
		Criterion:        r.Criterion,
		Split:            r.Chosen.Split,
		Line1:            LineRecord{Slope: r.Chosen.Line1.Slope, Intercept: r.Chosen.Line1.Intercept},
		Line2:            LineRecord{Slope: r.Chosen.Line2.Slope, Intercept: r.Chosen.Line2.Intercept},
		CAC:              r.CAC,
		CACConcentration: r.CAC.Concentration(),
		Label:            r.CAC.Label(),
		R2:               r.Chosen.MeanR2,
		RMSE:             r.Chosen.MeanRMSE,
		BestR2Split:      r.Selection.BestR2.Split,
		BestRMSESplit:    r.Selection.BestRMSE.Split,
		Samples:          r.Samples,
		Warnings:         r.Warnings,
	}
}

// AnalyzeSamples runs fit, select and intersect on prepared samples.
func AnalyzeSamples(samples []Sample, opts Options) (*CACResult, error) {
	if opts.Criterion == "" {
		opts.Criterion = CriterionRMSE
	}
	frames, err := FitAllSplits(samples)
	if err != nil {
		return nil, fmt.Errorf("fitting split models: %w", err)
	}
	selection, err := SelectModels(frames)
	if err != nil {
		return nil, fmt.Errorf("selecting model: %w", err)
	}
	chosen, err := selection.Frame(opts.Criterion)
	if err != nil {
		return nil, err
	}
	cac, err := Intersect(chosen.Line1, chosen.Line2, opts.ParallelTolerance)
	if err != nil {
		return nil, fmt.Errorf("intersecting split %d lines: %w", chosen.Split, err)
	}

	return &CACResult{
		RunID:     uuid.NewString(),
		Samples:   samples,
		Frames:    frames,
		Selection: selection,
		Criterion: opts.Criterion,
		Chosen:    chosen,
		CAC:       cac,
		Warnings:  make([]string, 0),
	}, nil
}

// AnalyzeCAC runs the whole pipeline on loaded measurements:
// peaks -> regression samples -> split models -> selection -> intersection.
func AnalyzeCAC(measurements []*parser.Measurement, opts Options) (*CACResult, error) {
	if len(measurements) == 0 {
		return nil, fmt.Errorf("%w: no measurements loaded", ErrInsufficientData)
	}
	peaks, warnings, err := ExtractPeaks(measurements, opts.Windows)
	if err != nil {
		return nil, fmt.Errorf("extracting peaks: %w", err)
	}
	samples, err := PrepareRegressionData(peaks)
	if err != nil {
		return nil, fmt.Errorf("preparing regression data: %w", err)
	}
	result, err := AnalyzeSamples(samples, opts)
	if err != nil {
		return nil, err
	}
	result.Peaks = peaks
	result.Warnings = append(result.Warnings, warnings...)
	return result, nil
}
