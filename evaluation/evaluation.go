// Package evaluation scores a fitted classifier against a held-out test set.
// Evaluate is a pure function of the model and the test matrices: it mutates
// neither and returns per-row predictions alongside the aggregate metrics.
package evaluation

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/classifier"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
	"github.com/ezoic/bloomcast/metrics"
)

// Result holds the outcome of evaluating a model on a test set.
type Result struct {
	// Labels are the predicted hard labels, 1 = high, one per test row.
	Labels []int

	// Probs are the predicted probabilities of the high class, one per row.
	Probs []float64

	// Confusion counts predictions against truth.
	Confusion *metrics.ConfusionMatrix

	// Metrics maps each metric name to its value on the test set.
	Metrics map[string]float64

	// AUC is the area under the ROC curve of Probs against truth.
	AUC float64
}

// Evaluate predicts the test set and derives the metric report. The model
// must already be fitted; y holds the true 0/1 labels.
func Evaluate(c classifier.Classifier, X, y mat.Matrix) (*Result, error) {
	n, _ := X.Dims()
	yRows, yCols := y.Dims()
	if n == 0 {
		return nil, bloomErrors.NewValueError("Evaluate", "test set cannot be empty")
	}
	if yCols != 1 {
		return nil, bloomErrors.NewDimensionError("Evaluate", 1, yCols, 1)
	}
	if yRows != n {
		return nil, bloomErrors.NewDimensionError("Evaluate", n, yRows, 0)
	}

	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "evaluation predict failed")
	}

	res := &Result{
		Labels:    make([]int, n),
		Probs:     make([]float64, n),
		Confusion: &metrics.ConfusionMatrix{},
	}

	yTrue := mat.NewVecDense(n, nil)
	yProb := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		p := proba.At(i, 0)
		res.Probs[i] = p
		if p >= 0.5 {
			res.Labels[i] = 1
		}

		actual := y.At(i, 0) >= 0.5
		res.Confusion.Add(actual, res.Labels[i] == 1)

		if actual {
			yTrue.SetVec(i, 1)
		}
		yProb.SetVec(i, p)
	}

	res.Metrics = res.Confusion.Report()
	res.AUC, err = metrics.AUC(yTrue, yProb)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "evaluation AUC failed")
	}

	log.GetLoggerWithName("evaluation").Info("test set evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.SamplesKey, n,
		"accuracy", res.Metrics[metrics.MetricAccuracy],
		"auc", res.AUC,
	)
	return res, nil
}
