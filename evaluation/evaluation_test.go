package evaluation_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/evaluation"
	"github.com/ezoic/bloomcast/metrics"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

const epsilon = 1e-10

// fixedProbaClassifier returns canned probabilities, which pins the expected
// confusion matrix exactly.
type fixedProbaClassifier struct {
	probs []float64
}

func (f *fixedProbaClassifier) Fit(X, y mat.Matrix) error { return nil }

func (f *fixedProbaClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	out := mat.NewDense(len(f.probs), 1, nil)
	for i, p := range f.probs {
		out.Set(i, 0, p)
	}
	return out, nil
}

func (f *fixedProbaClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, _ := f.PredictProba(X)
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if proba.At(i, 0) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

func (f *fixedProbaClassifier) Clone() classifier.Classifier {
	return &fixedProbaClassifier{probs: f.probs}
}

func TestEvaluateCounts(t *testing.T) {
	X := mat.NewDense(6, 1, nil)
	y := mat.NewDense(6, 1, []float64{1, 1, 1, 0, 0, 0})
	model := &fixedProbaClassifier{probs: []float64{0.9, 0.8, 0.3, 0.6, 0.2, 0.1}}

	res, err := evaluation.Evaluate(model, X, y)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// Rows: TP, TP, FN, FP, TN, TN.
	if res.Confusion.TP != 2 || res.Confusion.FN != 1 || res.Confusion.FP != 1 || res.Confusion.TN != 2 {
		t.Fatalf("unexpected confusion counts: %+v", res.Confusion)
	}

	wantLabels := []int{1, 1, 0, 1, 0, 0}
	for i, want := range wantLabels {
		if res.Labels[i] != want {
			t.Errorf("label %d: expected %d, got %d", i, want, res.Labels[i])
		}
	}
	for i, p := range model.probs {
		if math.Abs(res.Probs[i]-p) > epsilon {
			t.Errorf("prob %d: expected %f, got %f", i, p, res.Probs[i])
		}
	}

	if got := res.Metrics[metrics.MetricAccuracy]; math.Abs(got-4.0/6.0) > epsilon {
		t.Errorf("expected accuracy 4/6, got %f", got)
	}
	if res.AUC <= 0.5 || res.AUC > 1 {
		t.Errorf("expected informative AUC in (0.5, 1], got %f", res.AUC)
	}
}

func TestEvaluatePerfectModel(t *testing.T) {
	X := mat.NewDense(4, 1, nil)
	y := mat.NewDense(4, 1, []float64{1, 0, 1, 0})
	model := &fixedProbaClassifier{probs: []float64{0.95, 0.05, 0.85, 0.15}}

	res, err := evaluation.Evaluate(model, X, y)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Metrics[metrics.MetricAccuracy] != 1.0 {
		t.Errorf("expected accuracy 1.0, got %f", res.Metrics[metrics.MetricAccuracy])
	}
	if math.Abs(res.AUC-1.0) > epsilon {
		t.Errorf("expected AUC 1.0, got %f", res.AUC)
	}
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(4, 1, []float64{1, 0, 1, 0})
	xCopy := mat.DenseCopyOf(X)
	yCopy := mat.DenseCopyOf(y)
	model := &fixedProbaClassifier{probs: []float64{0.9, 0.1, 0.9, 0.1}}

	if _, err := evaluation.Evaluate(model, X, y); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !mat.Equal(X, xCopy) {
		t.Error("Evaluate mutated the feature matrix")
	}
	if !mat.Equal(y, yCopy) {
		t.Error("Evaluate mutated the label vector")
	}
}

func TestEvaluateEmptyInput(t *testing.T) {
	X := &mat.Dense{}
	y := &mat.Dense{}
	model := &fixedProbaClassifier{}

	_, err := evaluation.Evaluate(model, X, y)
	var valErr *bloomErrors.ValueError
	if !bloomErrors.As(err, &valErr) {
		t.Fatalf("expected ValueError for empty test set, got %v", err)
	}
}

func TestEvaluateShapeMismatch(t *testing.T) {
	X := mat.NewDense(4, 1, nil)
	y := mat.NewDense(3, 1, []float64{1, 0, 1})
	model := &fixedProbaClassifier{probs: []float64{0.5, 0.5, 0.5, 0.5}}

	_, err := evaluation.Evaluate(model, X, y)
	var dimErr *bloomErrors.DimensionError
	if !bloomErrors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}
