package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/user/cac_analyzer_go/internal/analysis"
)

const (
	sheetSummary = "Summary"
	sheetFrames  = "Frames"
	sheetSamples = "Samples"
)

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// nanToBlank keeps NaN out of the workbook, which cannot store it.
func nanToBlank(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

// NewResultWorkbook builds a workbook with summary, frame and sample sheets.
func NewResultWorkbook(result *analysis.CACResult) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("no analysis result to export")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{sheetFrames, sheetSamples} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	c := result.Chosen
	summary := [][]interface{}{
		{"Quantity", "Value"},
		{"Run ID", result.RunID},
		{"Criterion", string(result.Criterion)},
		{"Split", c.Split},
		{"Line 1 intercept", c.Line1.Intercept},
		{"Line 1 slope", c.Line1.Slope},
		{"Line 2 intercept", c.Line2.Intercept},
		{"Line 2 slope", c.Line2.Slope},
		{"CAC log C", result.CAC.X},
		{"CAC I1/I3", result.CAC.Y},
		{"CAC C", result.CAC.Concentration()},
		{"Mean R2", nanToBlank(c.MeanR2)},
		{"Mean RMSE", nanToBlank(c.MeanRMSE)},
		{"Best split by R2", result.Selection.BestR2.Split},
		{"Best split by RMSE", result.Selection.BestRMSE.Split},
	}

	frames := [][]interface{}{{"Split", "Intercept 1", "Slope 1", "R2 1", "RMSE 1", "Intercept 2", "Slope 2", "R2 2", "RMSE 2", "Mean R2", "Mean RMSE"}}
	for _, fr := range result.Frames {
		frames = append(frames, []interface{}{
			fr.Split,
			fr.Line1.Intercept, fr.Line1.Slope, nanToBlank(fr.Line1.R2), fr.Line1.RMSE,
			fr.Line2.Intercept, fr.Line2.Slope, nanToBlank(fr.Line2.R2), fr.Line2.RMSE,
			nanToBlank(fr.MeanR2), nanToBlank(fr.MeanRMSE),
		})
	}

	samples := [][]interface{}{{"Index", "Measurement", "log C", "I1/I3", "Segment"}}
	for i, s := range result.Samples {
		seg := 1
		if i >= c.Split {
			seg = 2
		}
		samples = append(samples, []interface{}{i, s.Name, s.X, s.Y, seg})
	}

	for sheet, rows := range map[string][][]interface{}{sheetSummary: summary, sheetFrames: frames, sheetSamples: samples} {
		if err := setRows(f, sheet, rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ExportWorkbook writes the analysis result to an .xlsx file at path.
func ExportWorkbook(path string, result *analysis.CACResult) error {
	f, err := NewResultWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
