package modelsel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/core/parallel"
	"github.com/ezoic/bloomcast/metrics"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// CVResult summarizes a cross-validation run.
type CVResult struct {
	// FoldReports holds the metric report of each fold, indexed by fold.
	FoldReports []map[string]float64

	// Mean averages each metric across folds.
	Mean map[string]float64

	// Confusion sums the per-fold resampled confusion matrices, covering
	// every training row exactly once.
	Confusion *metrics.ConfusionMatrix
}

// CrossValidate fits a fresh clone of c on each stratified fold and evaluates
// it on the held-out rows. Folds are independent, so they run on parallel
// workers; each result lands in its own fold slot and the reduction is a
// commutative average, keeping the outcome identical regardless of
// completion order.
func CrossValidate(c classifier.Classifier, X, y mat.Matrix, k int, seed int64) (*CVResult, error) {
	folds, err := StratifiedKFold(y, k, seed)
	if err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	log.GetLoggerWithName("modelsel").Info("cross-validating",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		"folds", k,
		log.SeedKey, seed,
	)

	reports := make([]map[string]float64, k)
	matrices := make([]*metrics.ConfusionMatrix, k)
	errs := make([]error, k)

	parallel.ParallelizeWithThreshold(k, 2, func(start, end int) {
		for f := start; f < end; f++ {
			reports[f], matrices[f], errs[f] = runFold(c, X, y, folds[f])
		}
	})

	for _, ferr := range errs {
		if ferr != nil {
			return nil, bloomErrors.Wrap(ferr, "cross-validation fold failed")
		}
	}

	total := &metrics.ConfusionMatrix{}
	for _, m := range matrices {
		total.Merge(m)
	}
	return &CVResult{
		FoldReports: reports,
		Mean:        metrics.MeanReports(reports),
		Confusion:   total,
	}, nil
}

func runFold(c classifier.Classifier, X, y mat.Matrix, fold Fold) (map[string]float64, *metrics.ConfusionMatrix, error) {
	model := c.Clone()
	if err := model.Fit(subsetRows(X, fold.Train), subsetRows(y, fold.Train)); err != nil {
		return nil, nil, err
	}

	testX := subsetRows(X, fold.Test)
	pred, err := model.Predict(testX)
	if err != nil {
		return nil, nil, err
	}

	cm := &metrics.ConfusionMatrix{}
	for i, row := range fold.Test {
		cm.Add(y.At(row, 0) >= 0.5, pred.At(i, 0) >= 0.5)
	}
	return cm.Report(), cm, nil
}
