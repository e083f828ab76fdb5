// Package classifier implements the model families the bloom experiment
// compares: a feed-forward neural network, a random forest, and bagged
// decision trees.
//
// All families satisfy Classifier: Fit on a design matrix and a 0/1 label
// column, Predict hard labels, PredictProba the probability of the positive
// (high) class. Every stochastic element (weight initialization, bootstrap
// draws, feature subsampling) is driven by an explicit seed so a run is
// reproducible.
package classifier

import (
	"gonum.org/v1/gonum/mat"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// Family identifies a supported classifier family.
type Family string

// Supported families.
const (
	FamilyNeuralNet    Family = "nnet"
	FamilyRandomForest Family = "rf"
	FamilyBaggedTrees  Family = "bag"
)

// Classifier is the capability set shared by all model families.
type Classifier interface {
	// Fit trains on X (n x d) and y (n x 1 of 0/1 labels, 1 = high).
	Fit(X, y mat.Matrix) error

	// Predict returns an n x 1 matrix of hard 0/1 labels.
	Predict(X mat.Matrix) (mat.Matrix, error)

	// PredictProba returns an n x 1 matrix of P(high) per row.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Clone returns a fresh unfitted classifier with the same
	// hyperparameters, used for cross-validation refits.
	Clone() Classifier
}

// validateFitInputs checks the common shape constraints for Fit.
func validateFitInputs(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	nSamples, nFeatures = X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, bloomErrors.NewModelError(op, "empty data", bloomErrors.ErrEmptyData)
	}
	if yCols != 1 {
		return 0, 0, bloomErrors.NewDimensionError(op, 1, yCols, 1)
	}
	if yRows != nSamples {
		return 0, 0, bloomErrors.NewDimensionError(op, nSamples, yRows, 0)
	}
	return nSamples, nFeatures, nil
}

// labelsToBinary extracts y as a 0/1 int slice.
func labelsToBinary(y mat.Matrix) []int {
	r, _ := y.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		if y.At(i, 0) >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// probaToLabels thresholds an n x 1 probability matrix at 0.5.
func probaToLabels(proba mat.Matrix) *mat.Dense {
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if proba.At(i, 0) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out
}
