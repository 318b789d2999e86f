package parser

import "math"

// MeasurementExt is the file extension recognised as a measurement file.
const MeasurementExt = ".txt"

// Point is one (X, Y) pair of a measurement; X is the wavelength in nm.
type Point struct {
	X float64
	Y float64
}

// Measurement holds one loaded spectrum plus its display attributes.
// Display attributes are changed only through the setters so the front-end
// and the plots always see a consistent state.
type Measurement struct {
	Name          string  // Display name, the file name without extension
	Filename      string  // Base file name, e.g. "0.05.txt"
	Path          string  // Full path the data was read from
	Concentration float64 // Parsed from the file name; NaN if unknown
	Data          []Point // Sorted ascending by X

	enabled    bool
	penColor   string
	symbol     string
	symbolSize int
}

// NewMeasurement creates an enabled measurement with default styling.
func NewMeasurement(name, filename, path string, concentration float64, data []Point) *Measurement {
	return &Measurement{
		Name:          name,
		Filename:      filename,
		Path:          path,
		Concentration: concentration,
		Data:          data,
		enabled:       true,
		penColor:      "b",
		symbol:        "",
		symbolSize:    5,
	}
}

func (m *Measurement) Enabled() bool { return m.enabled }
func (m *Measurement) PenColor() string { return m.penColor }
func (m *Measurement) Symbol() string { return m.symbol }
func (m *Measurement) SymbolSize() int { return m.symbolSize }

func (m *Measurement) SetEnabled(enabled bool) { m.enabled = enabled }
func (m *Measurement) SetPenColor(c string) { m.penColor = c }
func (m *Measurement) SetSymbol(s string) { m.symbol = s }

// SetSymbolSize ignores non-positive sizes.
func (m *Measurement) SetSymbolSize(size int) {
	if size > 0 {
		m.symbolSize = size
	}
}

// HasConcentration reports whether a usable concentration was parsed.
func (m *Measurement) HasConcentration() bool {
	return !math.IsNaN(m.Concentration) && !math.IsInf(m.Concentration, 0) && m.Concentration > 0
}

// XValues returns the wavelengths of the measurement.
func (m *Measurement) XValues() []float64 {
	xs := make([]float64, len(m.Data))
	for i, p := range m.Data {
		xs[i] = p.X
	}
	return xs
}

// YValues returns the intensities of the measurement.
func (m *Measurement) YValues() []float64 {
	ys := make([]float64, len(m.Data))
	for i, p := range m.Data {
		ys[i] = p.Y
	}
	return ys
}

// LoadedMeasurements is the result of loading a directory or workbook.
type LoadedMeasurements struct {
	Source       string
	Measurements []*Measurement
	ParseErrors  []string // Non-fatal warnings collected while loading
}

// NewLoadedMeasurements initialises an empty result for source.
func NewLoadedMeasurements(source string) *LoadedMeasurements {
	return &LoadedMeasurements{
		Source:       source,
		Measurements: make([]*Measurement, 0),
		ParseErrors:  make([]string, 0),
	}
}

// Enabled returns the measurements currently enabled for display.
func (l *LoadedMeasurements) Enabled() []*Measurement {
	out := make([]*Measurement, 0, len(l.Measurements))
	for _, m := range l.Measurements {
		if m.Enabled() {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot copies the measurement list so it can be read while the original
// is mutated. Point data is shared and must be treated as read-only.
func (l *LoadedMeasurements) Snapshot() *LoadedMeasurements {
	out := &LoadedMeasurements{
		Source:       l.Source,
		Measurements: make([]*Measurement, len(l.Measurements)),
		ParseErrors:  append([]string(nil), l.ParseErrors...),
	}
	for i, m := range l.Measurements {
		cp := *m
		out.Measurements[i] = &cp
	}
	return out
}
