package parser

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadWorkbook reads spectra from the first sheet of an Excel workbook. The
// first column holds the wavelength; every further column is one measurement
// whose header cell names it and carries its concentration.
func LoadWorkbook(path string) (*LoadedMeasurements, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s needs a header row and at least one data row", sheets[0])
	}

	loaded := NewLoadedMeasurements(path)
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("sheet %s has no measurement columns", sheets[0])
	}

	columns := make([][]Point, len(header))
	for rowIdx, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		x, err := parseNumber(row[0], 0)
		if err != nil {
			loaded.ParseErrors = append(loaded.ParseErrors, fmt.Sprintf("%s row %d: wavelength '%s' is not numeric, skipped", sheets[0], rowIdx+2, row[0]))
			continue
		}
		for col := 1; col < len(header) && col < len(row); col++ {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			y, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", "."), 64)
			if err != nil || math.IsNaN(y) {
				loaded.ParseErrors = append(loaded.ParseErrors, fmt.Sprintf("%s row %d col %d: value '%s' is not numeric, skipped", sheets[0], rowIdx+2, col+1, cell))
				continue
			}
			columns[col] = append(columns[col], Point{X: x, Y: y})
		}
	}

	for col := 1; col < len(header); col++ {
		name := strings.TrimSpace(header[col])
		if name == "" {
			name = fmt.Sprintf("Column %d", col+1)
		}
		if len(columns[col]) == 0 {
			loaded.ParseErrors = append(loaded.ParseErrors, fmt.Sprintf("Skipping column '%s': no numeric values", name))
			continue
		}
		pts := columns[col]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

		conc, err := ExtractConcentrationFromName(name)
		if err != nil {
			loaded.ParseErrors = append(loaded.ParseErrors, fmt.Sprintf("Warning: %v", err))
			conc = math.NaN()
		}
		loaded.Measurements = append(loaded.Measurements, NewMeasurement(name, name+MeasurementExt, path, conc, pts))
	}

	if len(loaded.Measurements) == 0 {
		return nil, fmt.Errorf("no measurement columns could be read from %s", filepath.Base(path))
	}
	return loaded, nil
}
