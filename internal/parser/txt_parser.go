package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var concentrationRe = regexp.MustCompile(`\d+(?:[.,]\d+)?(?:[eE][+-]?\d+)?`)

// ExtractConcentrationFromName extracts the concentration encoded in a
// measurement file name. The last number of the base name wins, so
// "pyrene_02_0.05.txt" yields 0.05. A decimal comma is accepted.
func ExtractConcentrationFromName(name string) (float64, error) {
	base := stripExt(filepath.Base(name))
	matches := concentrationRe.FindAllString(base, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("could not extract concentration from file name: %s", name)
	}
	raw := strings.ReplaceAll(matches[len(matches)-1], ",", ".")
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("could not convert concentration '%s' to float: %w", raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("concentration in file name %s must be positive, got %g", name, val)
	}
	return val, nil
}

// stripExt removes a file extension but keeps a trailing decimal part such
// as the ".05" of "0.05".
func stripExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return name
	}
	if _, err := strconv.ParseFloat("0"+ext, 64); err == nil {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// IsMeasurementFile reports whether path has the measurement extension.
func IsMeasurementFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), MeasurementExt)
}

// ListMeasurementFiles returns the measurement files directly inside dir,
// sorted by name.
func ListMeasurementFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsMeasurementFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// detectDelimiter picks the delimiter producing the most rows with two
// numeric leading fields. Zero means whitespace separated.
func detectDelimiter(data []byte) rune {
	best, bestScore := rune(0), 0
	for _, delim := range []rune{'\t', ';', ','} {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.Comment = '#'
		records, err := reader.ReadAll()
		if err != nil {
			continue
		}
		score := 0
		for _, r := range records {
			if len(r) < 2 {
				continue
			}
			_, errX := parseNumber(r[0], delim)
			_, errY := parseNumber(r[1], delim)
			if errX == nil && errY == nil {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = delim, score
		}
	}
	return best
}

func splitRows(data []byte, delim rune) ([][]string, error) {
	if delim == 0 {
		var rows [][]string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rows = append(rows, strings.Fields(line))
		}
		return rows, nil
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	return reader.ReadAll()
}

// commentLines returns the 1-based numbers of the lines splitRows skips as
// comments.
func commentLines(data []byte, delim rune) []int {
	var lines []int
	for i, line := range strings.Split(string(data), "\n") {
		if delim == 0 {
			line = strings.TrimSpace(line)
		}
		if strings.HasPrefix(line, "#") {
			lines = append(lines, i+1)
		}
	}
	return lines
}

func parseNumber(s string, delim rune) (float64, error) {
	s = strings.TrimSpace(s)
	if delim != ',' {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// ParseMeasurementFile reads a two column (wavelength, intensity) text file.
// Rows whose first two fields are not numeric are skipped and reported in the
// returned warnings. The points are sorted ascending by wavelength.
func ParseMeasurementFile(path string) ([]Point, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open measurement file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("measurement file %s is empty", filepath.Base(path))
	}

	delim := detectDelimiter(data)
	rows, err := splitRows(data, delim)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read measurement data: %w", err)
	}

	var warnings []string
	for _, line := range commentLines(data, delim) {
		warnings = append(warnings, fmt.Sprintf("%s: line %d is a comment, skipped", filepath.Base(path), line))
	}
	points := make([]Point, 0, len(rows))
	for rowIdx, row := range rows {
		if len(row) < 2 {
			if len(row) == 1 && strings.TrimSpace(row[0]) != "" {
				warnings = append(warnings, fmt.Sprintf("%s: row %d has a single field, skipped", filepath.Base(path), rowIdx+1))
			}
			continue
		}
		x, errX := parseNumber(row[0], delim)
		y, errY := parseNumber(row[1], delim)
		if errX != nil || errY != nil {
			// Header lines are expected before the data block
			warnings = append(warnings, fmt.Sprintf("%s: row %d is not numeric, skipped", filepath.Base(path), rowIdx+1))
			continue
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			warnings = append(warnings, fmt.Sprintf("%s: row %d contains NaN, skipped", filepath.Base(path), rowIdx+1))
			continue
		}
		points = append(points, Point{X: x, Y: y})
	}

	if len(points) == 0 {
		return nil, warnings, fmt.Errorf("no numeric rows found in %s", filepath.Base(path))
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].X < points[j].X })
	return points, warnings, nil
}

// LoadMeasurementFile parses a single file into a Measurement. A file name
// without a usable concentration is not an error: the measurement is still
// displayable, it just cannot take part in the CAC analysis.
func LoadMeasurementFile(path string) (*Measurement, []string, error) {
	points, warnings, err := ParseMeasurementFile(path)
	if err != nil {
		return nil, warnings, err
	}
	filename := filepath.Base(path)
	name := stripExt(filename)

	conc, err := ExtractConcentrationFromName(filename)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("Warning: %v", err))
		conc = math.NaN()
	}
	return NewMeasurement(name, filename, path, conc, points), warnings, nil
}

// LoadMeasurements loads every measurement file in dir. Files that cannot be
// parsed are skipped and reported in ParseErrors; an error is returned only
// when the directory itself cannot be read or contains nothing usable.
func LoadMeasurements(dir string) (*LoadedMeasurements, error) {
	files, err := ListMeasurementFiles(dir)
	if err != nil {
		return nil, err
	}
	loaded := NewLoadedMeasurements(dir)
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", MeasurementExt, dir)
	}

	for _, path := range files {
		m, warnings, err := LoadMeasurementFile(path)
		loaded.ParseErrors = append(loaded.ParseErrors, warnings...)
		if err != nil {
			loaded.ParseErrors = append(loaded.ParseErrors, fmt.Sprintf("Skipping %s: %v", filepath.Base(path), err))
			continue
		}
		loaded.Measurements = append(loaded.Measurements, m)
	}

	if len(loaded.Measurements) == 0 {
		return nil, fmt.Errorf("none of the %d files in %s could be parsed", len(files), dir)
	}
	return loaded, nil
}

// MatchSelection disables every measurement and re-enables those whose file
// name matches one of the selected measurement paths. Paths that are not
// measurement files are ignored. It returns the number of enabled entries.
func MatchSelection(measurements []*Measurement, paths []string) int {
	for _, m := range measurements {
		m.SetEnabled(false)
	}
	selected := make(map[string]bool, len(paths))
	for _, p := range paths {
		if IsMeasurementFile(p) {
			selected[filepath.Base(p)] = true
		}
	}
	enabled := 0
	for _, m := range measurements {
		if selected[m.Filename] {
			m.SetEnabled(true)
			enabled++
		}
	}
	return enabled
}
