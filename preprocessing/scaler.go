// Package preprocessing implements the transform chain applied between the
// labeled feature table and model fitting.
//
// The chain is an explicit ordered list of transform objects, each exposing
// Fit (learn parameters from the training subset) and Transform (apply those
// parameters to any subset). Parameters are learned exactly once, from train
// only; applying a fitted transform never re-estimates anything, which is
// what keeps the test set leakage-free. The full order is:
//
//  1. signed-log on irradiance
//  2. plain log on flow
//  3. Box-Cox power transform across the numeric predictors
//  4. z-score normalization
//  5. one-hot encoding of wind direction
//  6. minority-class upsampling (training subset only)
//
// Pipeline composes the chain and owns the train-only upsampling rule.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// StandardScaler standardizes each column to zero mean and unit variance
// using statistics learned from the training subset.
type StandardScaler struct {
	model.BaseEstimator

	// Mean is the per-column training mean.
	Mean []float64

	// Scale is the per-column training standard deviation. Columns with
	// near-zero spread scale by 1 to avoid division blow-up.
	Scale []float64

	// NFeatures is the number of columns seen at fit time.
	NFeatures int
}

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and standard deviation from the training data.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer bloomErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return bloomErrors.NewModelError("StandardScaler.Fit", "empty data", bloomErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		s.Mean[j] = sum / float64(r)
	}

	for j := 0; j < c; j++ {
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - s.Mean[j]
			sumSquares += diff * diff
		}
		s.Scale[j] = math.Sqrt(sumSquares / float64(r))
		if math.Abs(s.Scale[j]) < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform standardizes X with the fitted statistics: (x - mean) / scale.
func (s *StandardScaler) Transform(X mat.Matrix) (_ *mat.Dense, err error) {
	defer bloomErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, bloomErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform fits the scaler on X and returns the standardized X.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
