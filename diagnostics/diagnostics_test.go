package diagnostics_test

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ezoic/bloomcast/diagnostics"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

const epsilon = 1e-10

func TestProbabilityVsAbundance(t *testing.T) {
	probs := []float64{0.1, 0.9, 0.6}
	counts := []float64{0, 9999, 99}

	s, err := diagnostics.ProbabilityVsAbundance(probs, counts, 5000)
	if err != nil {
		t.Fatalf("ProbabilityVsAbundance failed: %v", err)
	}

	if math.Abs(s.Points[0].X) > epsilon {
		t.Errorf("zero count must map to x=0, got %f", s.Points[0].X)
	}
	if math.Abs(s.Points[1].X-4) > epsilon {
		t.Errorf("count 9999 must map to x=4, got %f", s.Points[1].X)
	}
	if math.Abs(s.Points[2].X-2) > epsilon {
		t.Errorf("count 99 must map to x=2, got %f", s.Points[2].X)
	}
	if s.DecisionLine != 0.5 {
		t.Errorf("expected decision line 0.5, got %f", s.DecisionLine)
	}
	if math.Abs(s.ThresholdLine-math.Log10(5001)) > epsilon {
		t.Errorf("expected threshold line log10(5001), got %f", s.ThresholdLine)
	}
}

func TestProbabilityVsAbundanceMismatch(t *testing.T) {
	_, err := diagnostics.ProbabilityVsAbundance([]float64{0.5}, []float64{1, 2}, 5000)
	var dimErr *bloomErrors.DimensionError
	if !bloomErrors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}

func TestProbabilityTimeline(t *testing.T) {
	start := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}
	probs := []float64{0.2, 0.8, 0.4}

	tl, err := diagnostics.ProbabilityTimeline(dates, probs)
	if err != nil {
		t.Fatalf("ProbabilityTimeline failed: %v", err)
	}
	if len(tl.Dates) != 3 || len(tl.Probs) != 3 {
		t.Fatalf("unexpected lengths: %d dates, %d probs", len(tl.Dates), len(tl.Probs))
	}

	// Returned slices are copies.
	tl.Probs[0] = 99
	if probs[0] != 0.2 {
		t.Error("timeline must copy its inputs")
	}
}

func TestProbabilityTimelineUnordered(t *testing.T) {
	start := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start.AddDate(0, 0, 1), start}

	_, err := diagnostics.ProbabilityTimeline(dates, []float64{0.1, 0.2})
	var valErr *bloomErrors.ValueError
	if !bloomErrors.As(err, &valErr) {
		t.Fatalf("expected ValueError for unordered dates, got %v", err)
	}
}

func TestFitResponseCurve(t *testing.T) {
	// Exact line: p = 0.1 + 0.2 * x.
	values := []float64{0, 1, 2, 3}
	probs := []float64{0.1, 0.3, 0.5, 0.7}

	curve, err := diagnostics.FitResponseCurve("flow", values, probs)
	if err != nil {
		t.Fatalf("FitResponseCurve failed: %v", err)
	}
	if math.Abs(curve.Intercept-0.1) > epsilon {
		t.Errorf("expected intercept 0.1, got %f", curve.Intercept)
	}
	if math.Abs(curve.Slope-0.2) > epsilon {
		t.Errorf("expected slope 0.2, got %f", curve.Slope)
	}
	if got := curve.At(5); math.Abs(got-1.1) > epsilon {
		t.Errorf("expected At(5)=1.1, got %f", got)
	}
}

func TestFitResponseCurveConstantCovariate(t *testing.T) {
	values := []float64{2, 2, 2, 2}
	probs := []float64{0.1, 0.2, 0.3, 0.4}

	_, err := diagnostics.FitResponseCurve("pressure", values, probs)
	if !bloomErrors.Is(err, bloomErrors.ErrSingularMatrix) {
		t.Fatalf("expected singular matrix error, got %v", err)
	}
}

func TestRenderFigures(t *testing.T) {
	dir := t.TempDir()

	probs := []float64{0.1, 0.4, 0.8, 0.6}
	counts := []float64{10, 200, 8000, 4000}
	s, err := diagnostics.ProbabilityVsAbundance(probs, counts, 5000)
	if err != nil {
		t.Fatalf("ProbabilityVsAbundance failed: %v", err)
	}
	if err := s.Render(filepath.Join(dir, "abundance.png")); err != nil {
		t.Errorf("scatter render failed: %v", err)
	}

	start := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, len(probs))
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	tl, err := diagnostics.ProbabilityTimeline(dates, probs)
	if err != nil {
		t.Fatalf("ProbabilityTimeline failed: %v", err)
	}
	if err := tl.Render(filepath.Join(dir, "timeline.png")); err != nil {
		t.Errorf("timeline render failed: %v", err)
	}

	curve, err := diagnostics.FitResponseCurve("flow", []float64{1, 2, 3, 4}, probs)
	if err != nil {
		t.Fatalf("FitResponseCurve failed: %v", err)
	}
	if err := curve.Render(filepath.Join(dir, "response.png")); err != nil {
		t.Errorf("response render failed: %v", err)
	}
}
