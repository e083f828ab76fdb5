// Package metrics computes binary classification metrics for the bloom
// pipeline: the 2x2 confusion matrix and the derived metric report
// (accuracy, sensitivity, specificity, precision, recall, F-measure), plus
// AUC over predicted probabilities.
//
// The positive class throughout is "high" encoded as 1; "low" encodes as 0.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// Metric names used as keys of a Report.
const (
	MetricAccuracy    = "accuracy"
	MetricSensitivity = "sensitivity"
	MetricSpecificity = "specificity"
	MetricPrecision   = "precision"
	MetricRecall      = "recall"
	MetricFMeasure    = "fmeasure"
)

// ReportMetricNames lists the report keys in canonical order.
func ReportMetricNames() []string {
	return []string{
		MetricAccuracy, MetricSensitivity, MetricSpecificity,
		MetricPrecision, MetricRecall, MetricFMeasure,
	}
}

// ConfusionMatrix holds 2x2 prediction counts for the high/low classes.
// Rows are predictions, columns are truth.
type ConfusionMatrix struct {
	TP int // predicted high, actually high
	FP int // predicted high, actually low
	FN int // predicted low, actually high
	TN int // predicted low, actually low
}

// NewConfusionMatrix counts predictions against truth. Both vectors hold
// 1 for high and 0 for low.
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (*ConfusionMatrix, error) {
	if yTrue == nil || yPred == nil {
		return nil, bloomErrors.NewValueError("NewConfusionMatrix", "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, bloomErrors.NewValueError("NewConfusionMatrix", "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return nil, bloomErrors.NewDimensionError("NewConfusionMatrix", n, yPred.Len(), 0)
	}

	cm := &ConfusionMatrix{}
	for i := 0; i < n; i++ {
		cm.Add(yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1)
	}
	return cm, nil
}

// Add records a single prediction.
func (cm *ConfusionMatrix) Add(actualHigh, predictedHigh bool) {
	switch {
	case predictedHigh && actualHigh:
		cm.TP++
	case predictedHigh && !actualHigh:
		cm.FP++
	case !predictedHigh && actualHigh:
		cm.FN++
	default:
		cm.TN++
	}
}

// Merge accumulates the counts of other, used to sum resampled confusion
// matrices across cross-validation folds.
func (cm *ConfusionMatrix) Merge(other *ConfusionMatrix) {
	cm.TP += other.TP
	cm.FP += other.FP
	cm.FN += other.FN
	cm.TN += other.TN
}

// Total returns the number of recorded predictions.
func (cm *ConfusionMatrix) Total() int {
	return cm.TP + cm.FP + cm.FN + cm.TN
}

// String renders the matrix with high/low row and column labels.
func (cm *ConfusionMatrix) String() string {
	return fmt.Sprintf(
		"            actual\n"+
			"            high   low\n"+
			"pred high  %5d %5d\n"+
			"pred low   %5d %5d\n",
		cm.TP, cm.FP, cm.FN, cm.TN)
}

// Accuracy is the fraction of correct predictions.
func (cm *ConfusionMatrix) Accuracy() float64 {
	return safeDiv(float64(cm.TP+cm.TN), float64(cm.Total()))
}

// Sensitivity is the true-positive rate: TP / (TP + FN). Also recall.
func (cm *ConfusionMatrix) Sensitivity() float64 {
	return safeDiv(float64(cm.TP), float64(cm.TP+cm.FN))
}

// Specificity is the true-negative rate: TN / (TN + FP).
func (cm *ConfusionMatrix) Specificity() float64 {
	return safeDiv(float64(cm.TN), float64(cm.TN+cm.FP))
}

// Precision is TP / (TP + FP).
func (cm *ConfusionMatrix) Precision() float64 {
	return safeDiv(float64(cm.TP), float64(cm.TP+cm.FP))
}

// FMeasure is the harmonic mean of precision and recall.
func (cm *ConfusionMatrix) FMeasure() float64 {
	p := cm.Precision()
	r := cm.Sensitivity()
	return safeDiv(2*p*r, p+r)
}

// Report maps each metric name to its value for this matrix.
func (cm *ConfusionMatrix) Report() map[string]float64 {
	return map[string]float64{
		MetricAccuracy:    cm.Accuracy(),
		MetricSensitivity: cm.Sensitivity(),
		MetricSpecificity: cm.Specificity(),
		MetricPrecision:   cm.Precision(),
		MetricRecall:      cm.Sensitivity(),
		MetricFMeasure:    cm.FMeasure(),
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// MeanReports averages a slice of metric reports key-wise. Averaging is
// commutative, so fold results may arrive in any order.
func MeanReports(reports []map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	if len(reports) == 0 {
		return out
	}
	for _, rep := range reports {
		for k, v := range rep {
			out[k] += v
		}
	}
	for k := range out {
		out[k] /= float64(len(reports))
	}
	return out
}

// AUC calculates the area under the ROC curve for binary classification.
//
// yTrue holds ground-truth binary labels (0 or 1), yPred predicted
// probabilities or scores. Returns 0.5 when only one class is present.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, bloomErrors.NewValueError("AUC", "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, bloomErrors.NewValueError("AUC", "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return 0, bloomErrors.NewDimensionError("AUC", n, yPred.Len(), 0)
	}
	for i := 0; i < n; i++ {
		v := yTrue.AtVec(i)
		if v != 0.0 && v != 1.0 {
			return 0, bloomErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", v, i), v)
		}
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: yPred.AtVec(i), label: yTrue.AtVec(i)}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	totalPos, totalNeg := 0.0, 0.0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1.0 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		// AUC is undefined with a single class; 0.5 is the random-classifier
		// convention.
		return 0.5, nil
	}

	var tprs, fprs []float64
	tprs = append(tprs, 0)
	fprs = append(fprs, 0)

	tp, fp := 0.0, 0.0
	prevScore := pairs[0].score + 1
	for _, p := range pairs {
		if p.score != prevScore {
			tprs = append(tprs, tp/totalPos)
			fprs = append(fprs, fp/totalNeg)
			prevScore = p.score
		}
		if p.label == 1.0 {
			tp++
		} else {
			fp++
		}
	}
	tprs = append(tprs, 1)
	fprs = append(fprs, 1)

	auc := 0.0
	for i := 1; i < len(fprs); i++ {
		width := fprs[i] - fprs[i-1]
		height := (tprs[i] + tprs[i-1]) / 2
		auc += width * height
	}
	return auc, nil
}
