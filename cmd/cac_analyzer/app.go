package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/user/cac_analyzer_go/internal/analysis"
	"github.com/user/cac_analyzer_go/internal/config"
	"github.com/user/cac_analyzer_go/internal/parser"
	"github.com/user/cac_analyzer_go/internal/report"
)

// App is bound to the front-end. The loaded measurements and the last
// analysis result are shared between calls and guarded by mu.
type App struct {
	ctx     context.Context
	cfgPath string

	mu      sync.Mutex
	cfg     config.Config
	loaded  *parser.LoadedMeasurements
	result  *analysis.CACResult
	watcher *parser.DirWatcher
}

// FileEntry describes one loaded measurement for the file list.
type FileEntry struct {
	Name          string  `json:"name"`
	Filename      string  `json:"filename"`
	Concentration float64 `json:"concentration"`
	Enabled       bool    `json:"enabled"`
	Usable        bool    `json:"usable"`
}

// LoadResponse is returned after a directory or workbook was loaded.
type LoadResponse struct {
	Source   string      `json:"source"`
	Files    []FileEntry `json:"files"`
	Warnings []string    `json:"warnings"`
	Spectra  string      `json:"spectra"` // PNG data URI
}

// AnalysisResponse carries the CAC record and its chart.
type AnalysisResponse struct {
	Result analysis.ResultRecord `json:"result"`
	Chart  string                `json:"chart"` // PNG data URI
}

// NewApp creates the application, reading settings from cfgPath.
func NewApp(cfgPath string) *App {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Using default settings: %v", err)
		cfg = config.Default()
	}
	return &App{cfgPath: cfgPath, cfg: cfg}
}

// Startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	runtime.WindowSetTitle(a.ctx, "CAC Analyzer GO")
}

func (a *App) sendStatus(message string) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, "statusUpdate", message)
	}
	log.Println(message)
}

func (a *App) emit(event string, data ...interface{}) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, event, data...)
	}
}

func dataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func (a *App) plotSize() report.PlotSize {
	return report.NewPlotSize(a.cfg.PlotWidthPt, a.cfg.PlotHeightPt)
}

// Settings returns the current configuration.
func (a *App) Settings() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// UpdateSettings validates, applies and persists cfg.
func (a *App) UpdateSettings(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Criterion, _ = analysis.ParseCriterion(string(cfg.Criterion))
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	return a.saveSettings()
}

func (a *App) saveSettings() error {
	if a.cfgPath == "" {
		return nil
	}
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()
	if err := config.Save(a.cfgPath, cfg); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// SelectDirectory asks for a measurement directory and loads it. A cancelled
// dialog returns a nil response and no error.
func (a *App) SelectDirectory() (*LoadResponse, error) {
	dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title:            "Select Directory",
		DefaultDirectory: a.Settings().LastDirectory,
	})
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}
	return a.LoadDirectory(dir)
}

// SelectWorkbook asks for an Excel workbook of spectra and loads it.
func (a *App) SelectWorkbook() (*LoadResponse, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Select Workbook",
		Filters: []runtime.FileFilter{{DisplayName: "Excel workbooks (*.xlsx)", Pattern: "*.xlsx"}},
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	return a.LoadWorkbook(path)
}

// LoadDirectory loads every measurement file in dir and draws the spectra.
func (a *App) LoadDirectory(dir string) (*LoadResponse, error) {
	a.sendStatus(fmt.Sprintf("Loading: %s", dir))
	loaded, err := parser.LoadMeasurements(dir)
	if err != nil {
		a.sendStatus(fmt.Sprintf("Error loading measurements: %v", err))
		return nil, err
	}

	a.mu.Lock()
	a.cfg.LastDirectory = dir
	a.mu.Unlock()
	if err := a.saveSettings(); err != nil {
		a.sendStatus(err.Error())
	}
	a.watchDirectory(dir)
	return a.setLoaded(loaded)
}

// watchDirectory replaces the current directory watcher. Changes are
// announced with the directoryChanged event carrying the new file names.
func (a *App) watchDirectory(dir string) {
	a.stopWatching()
	w, err := parser.WatchDirectory(dir, parser.DefaultWatchDebounce, func(files []string) {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		a.sendStatus(fmt.Sprintf("Directory changed: %d measurement files, reload to update.", len(names)))
		a.emit("directoryChanged", names)
	})
	if err != nil {
		a.sendStatus(fmt.Sprintf("Not watching %s: %v", dir, err))
		return
	}
	a.mu.Lock()
	old := a.watcher
	a.watcher = w
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (a *App) stopWatching() {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// Shutdown releases the directory watcher.
func (a *App) Shutdown(ctx context.Context) {
	a.stopWatching()
}

// LoadWorkbook loads spectra from an Excel workbook and draws them.
func (a *App) LoadWorkbook(path string) (*LoadResponse, error) {
	a.sendStatus(fmt.Sprintf("Loading workbook: %s", path))
	loaded, err := parser.LoadWorkbook(path)
	if err != nil {
		a.sendStatus(fmt.Sprintf("Error loading workbook: %v", err))
		return nil, err
	}
	a.stopWatching()
	return a.setLoaded(loaded)
}

func (a *App) setLoaded(loaded *parser.LoadedMeasurements) (*LoadResponse, error) {
	a.mu.Lock()
	a.loaded = loaded
	a.result = nil
	a.mu.Unlock()

	a.sendStatus(fmt.Sprintf("Loaded %d measurements.", len(loaded.Measurements)))
	for _, w := range loaded.ParseErrors {
		a.sendStatus(fmt.Sprintf("- %s", w))
	}
	return a.response()
}

func (a *App) response() (*LoadResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded == nil {
		return nil, errors.New("no measurements loaded")
	}

	img, err := report.CreateSpectraPlot(a.loaded.Measurements, a.plotSize())
	if err != nil {
		return nil, fmt.Errorf("drawing spectra: %w", err)
	}
	resp := &LoadResponse{
		Source:   a.loaded.Source,
		Files:    make([]FileEntry, 0, len(a.loaded.Measurements)),
		Warnings: a.loaded.ParseErrors,
		Spectra:  dataURI(img),
	}
	for _, m := range a.loaded.Measurements {
		conc := m.Concentration
		if !m.HasConcentration() {
			conc = 0 // NaN is not valid JSON
		}
		resp.Files = append(resp.Files, FileEntry{
			Name:          m.Name,
			Filename:      m.Filename,
			Concentration: conc,
			Enabled:       m.Enabled(),
			Usable:        m.HasConcentration(),
		})
	}
	return resp, nil
}

// SelectFiles shows only the measurements whose files are in paths, the
// equivalent of dropping a file selection onto the chart.
func (a *App) SelectFiles(paths []string) (*LoadResponse, error) {
	a.mu.Lock()
	if a.loaded == nil {
		a.mu.Unlock()
		return nil, errors.New("no measurements loaded")
	}
	n := parser.MatchSelection(a.loaded.Measurements, paths)
	a.mu.Unlock()

	a.sendStatus(fmt.Sprintf("Showing %d of %d selected files.", n, len(paths)))
	return a.response()
}

// AnalyzeCAC estimates the CAC from every loaded measurement with a known
// concentration and returns the record and chart for the configured
// criterion.
func (a *App) AnalyzeCAC() (*AnalysisResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded == nil {
		return nil, errors.New("no measurements loaded")
	}

	a.sendStatus(fmt.Sprintf("Analyzing %d measurements (criterion: %s)...", len(a.loaded.Measurements), a.cfg.Criterion))
	result, err := analysis.AnalyzeCAC(a.loaded.Measurements, a.cfg.AnalysisOptions())
	if err != nil {
		a.result = nil
		a.sendStatus(fmt.Sprintf("Error analyzing data: %v", err))
		return nil, err
	}
	for _, w := range result.Warnings {
		a.sendStatus(fmt.Sprintf("- %s", w))
	}

	img, err := report.CreateCACPlot(result, a.plotSize())
	if err != nil {
		return nil, fmt.Errorf("drawing CAC chart: %w", err)
	}
	a.result = result
	a.sendStatus(result.CAC.Label())
	return &AnalysisResponse{Result: result.Record(), Chart: dataURI(img)}, nil
}

// SetCriterion switches between "r2" and "rmse" selection and persists it.
func (a *App) SetCriterion(name string) error {
	c, err := analysis.ParseCriterion(name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.cfg.Criterion = c
	a.mu.Unlock()
	return a.saveSettings()
}

// reportJob is the state a report is rendered from, copied out of the App
// so rendering runs without holding mu.
type reportJob struct {
	result *analysis.CACResult
	loaded *parser.LoadedMeasurements
	size   report.PlotSize
}

func (a *App) reportSnapshot() (reportJob, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil || a.loaded == nil {
		return reportJob{}, errors.New("run the CAC analysis before generating a report")
	}
	return reportJob{result: a.result, loaded: a.loaded.Snapshot(), size: a.plotSize()}, nil
}

// reportImages renders every chart the PDF report can include. Failures are
// reported and the chart is left out.
func (a *App) reportImages(job reportJob) map[string][]byte {
	result, size := job.result, job.size
	images := make(map[string][]byte)
	plots := []struct {
		Key    string
		Create func() ([]byte, error)
	}{
		{report.ImageCAC, func() ([]byte, error) { return report.CreateCACPlot(result, size) }},
		{report.ImageSplitQuality, func() ([]byte, error) { return report.CreateSplitQualityPlot(result, size) }},
		{report.ImageSegmentR2, func() ([]byte, error) { return report.CreateSegmentR2Heatmap(result, size) }},
		{report.ImageSpectra, func() ([]byte, error) { return report.CreateSpectraPlot(job.loaded.Measurements, size) }},
	}
	for _, pl := range plots {
		a.sendStatus(fmt.Sprintf("Plot: %s", pl.Key))
		img, err := pl.Create()
		if err != nil {
			a.sendStatus(fmt.Sprintf("Error generating plot %s: %v", pl.Key, err))
			continue
		}
		images[pl.Key] = img
	}
	return images
}

func (a *App) renderReport(job reportJob, pdfPath string) error {
	images := a.reportImages(job)
	a.sendStatus(fmt.Sprintf("Generating PDF: %s...", pdfPath))
	if err := report.BuildPDFReport(pdfPath, job.result, job.loaded.Source, images); err != nil {
		return fmt.Errorf("generating PDF report: %w", err)
	}
	return nil
}

// writeReport builds the PDF synchronously.
func (a *App) writeReport(pdfPath string) error {
	job, err := a.reportSnapshot()
	if err != nil {
		return err
	}
	return a.renderReport(job, pdfPath)
}

// GenerateReport writes the PDF report in the background and signals
// completion with the generationComplete event.
func (a *App) GenerateReport(pdfPath string) (string, error) {
	if filepath.Ext(pdfPath) == "" {
		pdfPath += ".pdf"
	}
	job, err := a.reportSnapshot()
	if err != nil {
		return "", err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errMsg := fmt.Sprintf("PANIC recovered: %v", r)
				a.sendStatus(errMsg)
				a.emit("generationComplete", false, errMsg)
			}
		}()

		a.emit("generationStart")
		if err := a.renderReport(job, pdfPath); err != nil {
			a.sendStatus(err.Error())
			a.emit("generationComplete", false, err.Error())
			return
		}
		successMsg := fmt.Sprintf("PDF report successfully generated: %s", pdfPath)
		a.sendStatus(successMsg)
		a.emit("generationComplete", true, successMsg)
	}()

	return "Report generation started in background.", nil
}

// SaveReport asks for a destination and starts report generation.
func (a *App) SaveReport() (string, error) {
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save PDF Report",
		DefaultFilename: "cac_report.pdf",
		Filters:         []runtime.FileFilter{{DisplayName: "PDF (*.pdf)", Pattern: "*.pdf"}},
	})
	if err != nil || path == "" {
		return "", err
	}
	return a.GenerateReport(path)
}

// ExportWorkbook writes the last result to an .xlsx file.
func (a *App) ExportWorkbook(path string) error {
	a.mu.Lock()
	result := a.result
	a.mu.Unlock()
	if result == nil {
		return errors.New("run the CAC analysis before exporting")
	}
	if filepath.Ext(path) == "" {
		path += ".xlsx"
	}
	if err := report.ExportWorkbook(path, result); err != nil {
		a.sendStatus(fmt.Sprintf("Error exporting workbook: %v", err))
		return err
	}
	a.sendStatus(fmt.Sprintf("Workbook written: %s", path))
	return nil
}

// SaveWorkbook asks for a destination and exports the last result.
func (a *App) SaveWorkbook() error {
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Export Workbook",
		DefaultFilename: "cac_result.xlsx",
		Filters:         []runtime.FileFilter{{DisplayName: "Excel workbooks (*.xlsx)", Pattern: "*.xlsx"}},
	})
	if err != nil || path == "" {
		return err
	}
	return a.ExportWorkbook(path)
}

// Clear forgets the loaded measurements and the last result and stops
// watching the directory.
func (a *App) Clear() {
	a.stopWatching()
	a.mu.Lock()
	a.loaded = nil
	a.result = nil
	a.mu.Unlock()
	a.emit("clearLog")
}
