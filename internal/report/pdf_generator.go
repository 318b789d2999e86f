package report

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/cac_analyzer_go/internal/analysis"
)

const (
	pdfPageWidth    = 210.0 // A4 portrait, mm
	pdfPageHeight   = 297.0
	pdfMargin       = 15.0
	pdfContentWidth = pdfPageWidth - (2 * pdfMargin)
)

// Image keys understood by BuildPDFReport.
const (
	ImageCAC          = "cac"
	ImageSplitQuality = "split_quality"
	ImageSegmentR2    = "segment_r2"
	ImageSpectra      = "spectra"
)

// pdfStyler holds reusable styling and the flowing Y position.
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64
	pageBottom  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageBottom:  pdfPageHeight - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["small"] = func() {
		s.pdf.SetFont("Arial", "", 8)
		s.pdf.SetTextColor(90, 90, 90)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellChosen"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(205, 235, 205)
		s.pdf.SetTextColor(0, 90, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
		return
	}
	s.styles["normal"]()
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageBottom {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text, styleName, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitText(text, pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	if s.currentY+height > s.pageBottom {
		s.newPage()
		return
	}
	s.currentY += height
}

// addTable draws a table whose column widths are fractions of the content
// width. Rows for which chosen returns true are highlighted. The header is
// repeated after a page break.
func (s *pdfStyler) addTable(headers []string, widthsRel []float64, rows [][]string, chosen func(int) bool) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}
	drawHeader := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	drawHeader()
	for r, row := range rows {
		if s.currentY+s.lineHeight > s.pageBottom {
			s.newPage()
			drawHeader()
		}
		fill := chosen != nil && chosen(r)
		if fill {
			s.applyStyle("tableCellChosen")
		} else {
			s.applyStyle("tableCell")
		}
		x := pdfMargin
		for i, cell := range row {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, cell, "1", 0, "C", fill, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width, height float64, caption string) {
	s.pdf.RegisterImageOptionsReader(imageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(imageBytes))
	if s.pdf.Err() {
		log.Printf("Warning: could not register image %s: %v", imageName, s.pdf.Error())
		s.pdf.ClearError()
		s.writeParagraph(fmt.Sprintf("Image %s could not be embedded.", imageName), "small", "L")
		return
	}

	if width > pdfContentWidth {
		height *= pdfContentWidth / width
		width = pdfContentWidth
	}
	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.ImageOptions(imageName, x, s.currentY, width, height, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "small", "C")
	}
	s.addSpacer(2)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func writeReport(pdf *gofpdf.Fpdf, result *analysis.CACResult, source string, images map[string][]byte) {
	styler := newPDFStyler(pdf)
	styler.newPage()

	styler.writeParagraph("Critical Aggregation Concentration Report", "h1", "C")
	styler.writeParagraph(fmt.Sprintf("Run %s, generated %s", result.RunID, time.Now().Format("2006-01-02 15:04")), "small", "C")
	if source != "" {
		styler.writeParagraph(fmt.Sprintf("Source: %s", source), "small", "C")
	}
	styler.addSpacer(4)

	chosen := result.Chosen
	styler.writeParagraph("Result", "h2", "L")
	styler.addTable(
		[]string{"Quantity", "Value"},
		[]float64{0.5, 0.5},
		[][]string{
			{"CAC (log C)", formatValue(result.CAC.X)},
			{"CAC (C, mg/ml)", fmt.Sprintf("%.4g", result.CAC.Concentration())},
			{"I1/I3 at CAC", formatValue(result.CAC.Y)},
			{"Selection criterion", string(result.Criterion)},
			{"Split index", fmt.Sprintf("%d", chosen.Split)},
			{"Line 1", fmt.Sprintf("y = %.4f + %.4f x", chosen.Line1.Intercept, chosen.Line1.Slope)},
			{"Line 2", fmt.Sprintf("y = %.4f + %.4f x", chosen.Line2.Intercept, chosen.Line2.Slope)},
			{"Mean R2", formatValue(chosen.MeanR2)},
			{"Mean RMSE", formatValue(chosen.MeanRMSE)},
			{"Best split by R2 / RMSE", fmt.Sprintf("%d / %d", result.Selection.BestR2.Split, result.Selection.BestRMSE.Split)},
		},
		nil,
	)
	styler.addSpacer(4)

	if img, ok := images[ImageCAC]; ok && len(img) > 0 {
		styler.addImage(img, ImageCAC, pdfContentWidth, pdfContentWidth*0.625, result.CAC.Label())
	} else {
		styler.writeParagraph("CAC plot not available.", "normal", "L")
	}

	if len(result.Warnings) > 0 {
		styler.writeParagraph("Warnings", "h2", "L")
		for _, w := range result.Warnings {
			styler.writeParagraph("- "+w, "small", "L")
		}
	}

	styler.newPage()
	styler.writeParagraph("Candidate splits", "h2", "L")
	frameRows := make([][]string, len(result.Frames))
	for i, f := range result.Frames {
		frameRows[i] = []string{
			fmt.Sprintf("%d", f.Split),
			formatValue(f.Line1.R2),
			formatValue(f.Line2.R2),
			formatValue(f.Line1.RMSE),
			formatValue(f.Line2.RMSE),
			formatValue(f.MeanR2),
			formatValue(f.MeanRMSE),
		}
	}
	styler.addTable(
		[]string{"k", "R2 seg 1", "R2 seg 2", "RMSE seg 1", "RMSE seg 2", "Mean R2", "Mean RMSE"},
		[]float64{0.08, 0.14, 0.14, 0.16, 0.16, 0.16, 0.16},
		frameRows,
		func(i int) bool { return result.Frames[i].Split == chosen.Split },
	)
	styler.addSpacer(4)

	for _, key := range []string{ImageSplitQuality, ImageSegmentR2} {
		if img, ok := images[key]; ok && len(img) > 0 {
			styler.addImage(img, key, pdfContentWidth, pdfContentWidth*0.5, "")
		}
	}

	styler.newPage()
	styler.writeParagraph("Regression samples", "h2", "L")
	sampleRows := make([][]string, len(result.Samples))
	for i, smp := range result.Samples {
		seg := "1"
		if i >= chosen.Split {
			seg = "2"
		}
		sampleRows[i] = []string{fmt.Sprintf("%d", i), smp.Name, formatValue(smp.X), fmt.Sprintf("%.4g", math.Pow(10, smp.X)), formatValue(smp.Y), seg}
	}
	styler.addTable(
		[]string{"#", "Measurement", "log C", "C", "I1/I3", "Segment"},
		[]float64{0.07, 0.33, 0.15, 0.15, 0.15, 0.15},
		sampleRows,
		nil,
	)

	if img, ok := images[ImageSpectra]; ok && len(img) > 0 {
		styler.addSpacer(4)
		styler.writeParagraph("Spectra", "h2", "L")
		styler.addImage(img, ImageSpectra, pdfContentWidth, pdfContentWidth*0.625, "")
	}
}

func newReportPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle("CAC Report", true)
	return pdf
}

// WritePDFReport renders the report for result into w.
func WritePDFReport(w io.Writer, result *analysis.CACResult, source string, images map[string][]byte) error {
	if result == nil {
		return fmt.Errorf("no analysis result to report")
	}
	pdf := newReportPDF()
	writeReport(pdf, result, source, images)
	return pdf.Output(w)
}

// BuildPDFReport writes the report for result to filepath.
func BuildPDFReport(filepath string, result *analysis.CACResult, source string, images map[string][]byte) error {
	if result == nil {
		return fmt.Errorf("no analysis result to report")
	}
	pdf := newReportPDF()
	writeReport(pdf, result, source, images)
	return pdf.OutputFileAndClose(filepath)
}
