package analysis

import (
	"fmt"
	"math"

	"github.com/user/cac_analyzer_go/internal/parser"
)

// PeakWindows are the wavelength ranges (nm, inclusive) searched for the
// first and third vibronic peaks of the probe.
type PeakWindows struct {
	I1Min float64 `json:"i1_min"`
	I1Max float64 `json:"i1_max"`
	I3Min float64 `json:"i3_min"`
	I3Max float64 `json:"i3_max"`
}

// DefaultPeakWindows returns the pyrene I1 and I3 band windows.
func DefaultPeakWindows() PeakWindows {
	return PeakWindows{I1Min: 370, I1Max: 376, I3Min: 381, I3Max: 387}
}

// Validate checks that both windows are non-empty ranges.
func (w PeakWindows) Validate() error {
	if !(w.I1Min < w.I1Max) {
		return fmt.Errorf("I1 window [%g, %g] is empty", w.I1Min, w.I1Max)
	}
	if !(w.I3Min < w.I3Max) {
		return fmt.Errorf("I3 window [%g, %g] is empty", w.I3Min, w.I3Max)
	}
	return nil
}

// windowMax returns the largest intensity with min <= X <= max.
func windowMax(data []parser.Point, min, max float64) (float64, bool) {
	best, found := math.Inf(-1), false
	for _, p := range data {
		if p.X < min || p.X > max || math.IsNaN(p.Y) {
			continue
		}
		if p.Y > best {
			best = p.Y
		}
		found = true
	}
	return best, found
}

// ExtractPeaks reduces every measurement with a known concentration to its
// I1 and I3 peak intensities. Measurements without a concentration are
// skipped and named in the returned warnings.
func ExtractPeaks(measurements []*parser.Measurement, windows PeakWindows) ([]PeakPair, []string, error) {
	if err := windows.Validate(); err != nil {
		return nil, nil, err
	}
	var warnings []string
	peaks := make([]PeakPair, 0, len(measurements))
	for _, m := range measurements {
		if !m.HasConcentration() {
			warnings = append(warnings, fmt.Sprintf("Skipping %s: no concentration in file name", m.Filename))
			continue
		}
		i1, ok := windowMax(m.Data, windows.I1Min, windows.I1Max)
		if !ok {
			return nil, warnings, fmt.Errorf("%s: no data in I1 window [%g, %g] nm", m.Filename, windows.I1Min, windows.I1Max)
		}
		i3, ok := windowMax(m.Data, windows.I3Min, windows.I3Max)
		if !ok {
			return nil, warnings, fmt.Errorf("%s: no data in I3 window [%g, %g] nm", m.Filename, windows.I3Min, windows.I3Max)
		}
		peaks = append(peaks, PeakPair{Name: m.Name, Concentration: m.Concentration, I1: i1, I3: i3})
	}
	return peaks, warnings, nil
}
