package modelsel_test

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/metrics"
	"github.com/ezoic/bloomcast/modelsel"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

const epsilon = 1e-10

// makeSeparable mirrors the classifier tests: class 1 in [0.6, 1.0] on the
// first feature, class 0 in [0.0, 0.4], with a noise column.
func makeSeparable(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			X.Set(i, 0, 0.6+0.4*rng.Float64())
			y.Set(i, 0, 1)
		} else {
			X.Set(i, 0, 0.4*rng.Float64())
		}
		X.Set(i, 1, rng.Float64())
	}
	return X, y
}

func TestStratifiedKFoldPartition(t *testing.T) {
	_, y := makeSeparable(20, 1)

	folds, err := modelsel.StratifiedKFold(y, 5, 7)
	if err != nil {
		t.Fatalf("StratifiedKFold failed: %v", err)
	}
	if len(folds) != 5 {
		t.Fatalf("expected 5 folds, got %d", len(folds))
	}

	seen := make(map[int]int)
	for _, fold := range folds {
		if len(fold.Test) != 4 {
			t.Errorf("expected 4 test rows per fold, got %d", len(fold.Test))
		}
		if len(fold.Train) != 16 {
			t.Errorf("expected 16 train rows per fold, got %d", len(fold.Train))
		}

		high := 0
		for _, idx := range fold.Test {
			seen[idx]++
			if y.At(idx, 0) == 1 {
				high++
			}
		}
		if high != 2 {
			t.Errorf("expected 2 high rows per test fold, got %d", high)
		}

		inTest := make(map[int]bool, len(fold.Test))
		for _, idx := range fold.Test {
			inTest[idx] = true
		}
		for _, idx := range fold.Train {
			if inTest[idx] {
				t.Fatalf("row %d appears in both train and test", idx)
			}
		}
	}

	for i := 0; i < 20; i++ {
		if seen[i] != 1 {
			t.Errorf("row %d in %d test folds, expected exactly 1", i, seen[i])
		}
	}
}

func TestStratifiedKFoldDeterministic(t *testing.T) {
	_, y := makeSeparable(30, 2)

	f1, err := modelsel.StratifiedKFold(y, 3, 11)
	if err != nil {
		t.Fatalf("StratifiedKFold failed: %v", err)
	}
	f2, err := modelsel.StratifiedKFold(y, 3, 11)
	if err != nil {
		t.Fatalf("StratifiedKFold failed: %v", err)
	}

	for f := range f1 {
		if len(f1[f].Test) != len(f2[f].Test) {
			t.Fatalf("fold %d sizes differ", f)
		}
		for i := range f1[f].Test {
			if f1[f].Test[i] != f2[f].Test[i] {
				t.Fatalf("fold %d differs at position %d", f, i)
			}
		}
	}
}

func TestStratifiedKFoldInsufficientClass(t *testing.T) {
	// 2 high rows cannot populate 5 folds.
	y := mat.NewDense(10, 1, []float64{1, 1, 0, 0, 0, 0, 0, 0, 0, 0})

	_, err := modelsel.StratifiedKFold(y, 5, 1)
	var insErr *bloomErrors.InsufficientDataError
	if !bloomErrors.As(err, &insErr) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestCrossValidateSeparable(t *testing.T) {
	X, y := makeSeparable(100, 5)

	rf := classifier.NewRandomForestClassifier(
		classifier.WithTrees(25),
		classifier.WithForestSeed(3),
	)
	cv, err := modelsel.CrossValidate(rf, X, y, 5, 19)
	if err != nil {
		t.Fatalf("CrossValidate failed: %v", err)
	}

	if len(cv.FoldReports) != 5 {
		t.Fatalf("expected 5 fold reports, got %d", len(cv.FoldReports))
	}
	if acc := cv.Mean[metrics.MetricAccuracy]; acc < 0.95 {
		t.Errorf("expected near-perfect mean accuracy, got %f", acc)
	}
	if cv.Confusion.Total() != 100 {
		t.Errorf("summed confusion matrix must cover every row once, got %d", cv.Confusion.Total())
	}
}

func TestCrossValidateMeanMatchesFolds(t *testing.T) {
	X, y := makeSeparable(60, 9)

	bag := classifier.NewBaggedTreesClassifier(
		classifier.WithBags(10),
		classifier.WithBaggingSeed(3),
	)
	cv, err := modelsel.CrossValidate(bag, X, y, 3, 2)
	if err != nil {
		t.Fatalf("CrossValidate failed: %v", err)
	}

	sum := 0.0
	for _, rep := range cv.FoldReports {
		sum += rep[metrics.MetricFMeasure]
	}
	if got := cv.Mean[metrics.MetricFMeasure]; math.Abs(got-sum/3) > epsilon {
		t.Errorf("mean fmeasure %f does not match fold average %f", got, sum/3)
	}
}

func forestFactory(params map[string]interface{}) (classifier.Classifier, error) {
	return classifier.NewRandomForestClassifier(
		classifier.WithTrees(params["trees"].(int)),
		classifier.WithForestSeed(1),
	), nil
}

func TestGridSearchFindsCandidate(t *testing.T) {
	X, y := makeSeparable(100, 21)

	space := modelsel.SearchSpace{"trees": {5, 15, 25}}
	res, err := modelsel.GridSearch(forestFactory, space, X, y, 5, 31)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if res.Evaluated != 3 {
		t.Errorf("expected full grid of 3 candidates, got %d", res.Evaluated)
	}
	if res.BestScore < 0.95 {
		t.Errorf("expected near-perfect best score, got %f", res.BestScore)
	}
	if _, ok := res.BestParams["trees"]; !ok {
		t.Error("best params missing trees")
	}

	// The returned model is refit on the full matrix and usable directly.
	pred, err := res.Model.Predict(X)
	if err != nil {
		t.Fatalf("best model Predict failed: %v", err)
	}
	if r, _ := pred.Dims(); r != 100 {
		t.Errorf("expected 100 predictions, got %d", r)
	}
}

func TestGridSearchBudget(t *testing.T) {
	X, y := makeSeparable(60, 23)

	space := modelsel.SearchSpace{
		"trees": {5, 10, 15, 20, 25, 30},
	}
	res, err := modelsel.GridSearch(forestFactory, space, X, y, 3, 31,
		modelsel.WithInitialSamples(1),
		modelsel.WithIterations(2),
	)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}
	if res.Evaluated != 3 {
		t.Errorf("expected budget of 3 evaluated candidates, got %d", res.Evaluated)
	}
}

func TestGridSearchDeterministic(t *testing.T) {
	X, y := makeSeparable(60, 27)

	space := modelsel.SearchSpace{"trees": {5, 10, 20}}
	r1, err := modelsel.GridSearch(forestFactory, space, X, y, 3, 41)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}
	r2, err := modelsel.GridSearch(forestFactory, space, X, y, 3, 41)
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if r1.BestParams["trees"] != r2.BestParams["trees"] {
		t.Errorf("same seed must pick the same candidate: %v vs %v", r1.BestParams, r2.BestParams)
	}
	if math.Abs(r1.BestScore-r2.BestScore) > epsilon {
		t.Errorf("same seed must reproduce the score: %f vs %f", r1.BestScore, r2.BestScore)
	}
}

func TestGridSearchEmptySpace(t *testing.T) {
	X, y := makeSeparable(20, 1)

	_, err := modelsel.GridSearch(forestFactory, modelsel.SearchSpace{}, X, y, 3, 1)
	var valErr *bloomErrors.ValueError
	if !bloomErrors.As(err, &valErr) {
		t.Fatalf("expected ValueError for empty space, got %v", err)
	}
}
