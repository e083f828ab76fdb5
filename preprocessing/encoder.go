package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// OneHotEncoder encodes a single categorical column as 0/1 dummy columns
// using the category set observed in the training subset.
//
// A category seen at apply time that was absent from training encodes as an
// all-zero row. That is deliberate: an unseen wind-direction sector in the
// test window is a warning, not a failure.
type OneHotEncoder struct {
	model.BaseEstimator

	// Column is the name of the encoded column, used in logs and output names.
	Column string

	// Categories holds the training categories, sorted.
	Categories []string

	categoryToIdx map[string]int
	logger        log.Logger
}

// NewOneHotEncoder creates an encoder for the named categorical column.
func NewOneHotEncoder(column string) *OneHotEncoder {
	return &OneHotEncoder{
		Column: column,
		logger: log.GetLoggerWithName("preprocessing").With(log.ColumnKey, column),
	}
}

// Fit learns the category set from the training values.
func (e *OneHotEncoder) Fit(values []string) (err error) {
	defer bloomErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(values) == 0 {
		return bloomErrors.NewModelError("OneHotEncoder.Fit", "empty data", bloomErrors.ErrEmptyData)
	}

	seen := make(map[string]bool)
	for _, v := range values {
		seen[v] = true
	}

	e.Categories = make([]string, 0, len(seen))
	for cat := range seen {
		e.Categories = append(e.Categories, cat)
	}
	sort.Strings(e.Categories)

	e.categoryToIdx = make(map[string]int, len(e.Categories))
	for i, cat := range e.Categories {
		e.categoryToIdx[cat] = i
	}

	e.SetFitted()
	return nil
}

// Transform one-hot encodes values using the fitted categories. Unseen
// categories produce an all-zero row and a warning log.
func (e *OneHotEncoder) Transform(values []string) (_ *mat.Dense, err error) {
	defer bloomErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(values) == 0 {
		return mat.NewDense(0, len(e.Categories), nil), nil
	}

	result := mat.NewDense(len(values), len(e.Categories), nil)
	warned := make(map[string]bool)

	for i, v := range values {
		idx, known := e.categoryToIdx[v]
		if !known {
			// Zero-encode and move on.
			if !warned[v] && e.logger != nil {
				e.logger.Warn("unseen category zero-encoded", "category", v)
				warned[v] = true
			}
			continue
		}
		result.Set(i, idx, 1.0)
	}
	return result, nil
}

// FitTransform fits on values and encodes them in one step.
func (e *OneHotEncoder) FitTransform(values []string) (*mat.Dense, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// FeatureNamesOut returns the dummy column names, e.g. "wind_dir_NE".
func (e *OneHotEncoder) FeatureNamesOut() []string {
	if !e.IsFitted() {
		return nil
	}
	names := make([]string, len(e.Categories))
	for i, cat := range e.Categories {
		names[i] = fmt.Sprintf("%s_%s", e.Column, cat)
	}
	return names
}
