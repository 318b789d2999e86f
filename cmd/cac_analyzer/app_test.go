package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cac_analyzer_go/internal/analysis"
	"github.com/user/cac_analyzer_go/internal/config"
)

// writeSeries writes pyrene-like spectra whose I1/I3 ratio drops from a
// plateau once the concentration passes 0.05.
func writeSeries(t *testing.T, dir string) {
	t.Helper()
	concs := []string{"0.001", "0.003", "0.01", "0.02", "0.05", "0.1", "0.3", "1"}
	for _, c := range concs {
		var conc float64
		_, err := fmt.Sscanf(c, "%g", &conc)
		require.NoError(t, err)
		x := math.Log10(conc)
		ratio := 1.8 - 0.02*x
		if conc > 0.05 {
			ratio = 1.25 - 0.4*x
		}

		var b strings.Builder
		b.WriteString("Wavelength\tIntensity\n")
		for wl := 360; wl <= 400; wl++ {
			y := 10.0
			switch wl {
			case 373:
				y = 100 * ratio
			case 384:
				y = 100
			}
			fmt.Fprintf(&b, "%d\t%.6f\n", wl, y)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, c+".txt"), []byte(b.String()), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.txt"), []byte("373\t5\n384\t5\n"), 0644))
}

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	writeSeries(t, dir)
	app := NewApp(filepath.Join(t.TempDir(), "config.json"))
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app, dir
}

func TestApp_LoadAndAnalyze(t *testing.T) {
	app, dir := newTestApp(t)

	resp, err := app.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, resp.Files, 9)
	assert.True(t, strings.HasPrefix(resp.Spectra, "data:image/png;base64,"))
	assert.Equal(t, dir, app.Settings().LastDirectory)

	out, err := app.AnalyzeCAC()
	require.NoError(t, err)
	assert.Equal(t, analysis.CriterionRMSE, out.Result.Criterion)
	assert.Equal(t, 5, out.Result.Split)
	assert.InDelta(t, -0.02, out.Result.Line1.Slope, 1e-6)
	assert.InDelta(t, -0.4, out.Result.Line2.Slope, 1e-6)
	assert.True(t, strings.HasPrefix(out.Result.Label, "CAC = ["))
	assert.NotEmpty(t, out.Result.Warnings, "blank.txt has no concentration")
	assert.True(t, strings.HasPrefix(out.Chart, "data:image/png;base64,"))
}

func TestApp_SelectFiles(t *testing.T) {
	app, dir := newTestApp(t)

	_, err := app.SelectFiles([]string{"x.txt"})
	assert.Error(t, err)

	_, err = app.LoadDirectory(dir)
	require.NoError(t, err)

	resp, err := app.SelectFiles([]string{filepath.Join(dir, "0.1.txt"), filepath.Join(dir, "notes.csv")})
	require.NoError(t, err)
	enabled := 0
	for _, f := range resp.Files {
		if f.Enabled {
			enabled++
			assert.Equal(t, "0.1.txt", f.Filename)
		}
	}
	assert.Equal(t, 1, enabled)
}

func TestApp_ReportAndExport(t *testing.T) {
	app, dir := newTestApp(t)
	out := t.TempDir()

	assert.Error(t, app.writeReport(filepath.Join(out, "r.pdf")))
	assert.Error(t, app.ExportWorkbook(filepath.Join(out, "r.xlsx")))
	_, err := app.GenerateReport(filepath.Join(out, "r.pdf"))
	assert.Error(t, err)

	_, err = app.LoadDirectory(dir)
	require.NoError(t, err)
	_, err = app.AnalyzeCAC()
	require.NoError(t, err)

	require.NoError(t, app.writeReport(filepath.Join(out, "r.pdf")))
	assert.FileExists(t, filepath.Join(out, "r.pdf"))

	require.NoError(t, app.ExportWorkbook(filepath.Join(out, "r")))
	assert.FileExists(t, filepath.Join(out, "r.xlsx"))
}

func TestApp_ReportRendersWithoutLock(t *testing.T) {
	app, dir := newTestApp(t)
	_, err := app.LoadDirectory(dir)
	require.NoError(t, err)
	_, err = app.AnalyzeCAC()
	require.NoError(t, err)

	job, err := app.reportSnapshot()
	require.NoError(t, err)
	_, err = app.SelectFiles(nil)
	require.NoError(t, err)
	for _, m := range job.loaded.Measurements {
		assert.True(t, m.Enabled(), "snapshot is unaffected by later selection changes")
	}

	// Bound calls keep the mutex for their whole duration; rendering must
	// not wait on it.
	app.mu.Lock()
	defer app.mu.Unlock()
	path := filepath.Join(t.TempDir(), "locked.pdf")
	done := make(chan error, 1)
	go func() { done <- app.renderReport(job, path) }()
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.FileExists(t, path)
	case <-time.After(60 * time.Second):
		t.Fatal("report rendering blocked on the app mutex")
	}
}

func TestApp_SetCriterionPersists(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	app := NewApp(cfgPath)

	require.NoError(t, app.SetCriterion("R2"))
	assert.Error(t, app.SetCriterion("aic"))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, analysis.CriterionR2, cfg.Criterion)

	bad := cfg
	bad.ParallelTolerance = -1
	assert.Error(t, app.UpdateSettings(bad))
}

func TestApp_Clear(t *testing.T) {
	app, dir := newTestApp(t)
	_, err := app.LoadDirectory(dir)
	require.NoError(t, err)

	app.mu.Lock()
	w := app.watcher
	app.mu.Unlock()
	require.NotNil(t, w)
	assert.Equal(t, dir, w.Dir)

	app.Clear()
	_, err = app.AnalyzeCAC()
	assert.Error(t, err)

	app.mu.Lock()
	w = app.watcher
	app.mu.Unlock()
	assert.Nil(t, w)
}
