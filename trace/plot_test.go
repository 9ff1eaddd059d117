package trace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlotLogLikelihoodRejectsEmptySamples(t *testing.T) {
	if err := PlotLogLikelihood(nil, filepath.Join(t.TempDir(), "trace.png")); err == nil {
		t.Fatal("expected error for empty samples")
	}
}

func TestPlotLogLikelihoodWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.png")
	samples := []float64{-10, -9.5, -9.2, -9.0, -8.9}
	if err := PlotLogLikelihood(samples, path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty PNG output")
	}
}
