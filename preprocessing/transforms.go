package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// resolveColumns maps column names to indices within names, failing on a
// name that is not present.
func resolveColumns(op string, columns, names []string) ([]int, error) {
	idx := make([]int, 0, len(columns))
	for _, col := range columns {
		found := -1
		for j, name := range names {
			if name == col {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, bloomErrors.NewValueError(op, "unknown column "+col)
		}
		idx = append(idx, found)
	}
	return idx, nil
}

// SignedLogTransform applies sign(x) * log1p(|x|) to the selected columns.
// Unlike a plain log it is defined for zero and negative inputs, which
// irradiance produces at night and under sensor drift.
type SignedLogTransform struct {
	model.BaseEstimator

	// Columns are the column names the transform applies to.
	Columns []string

	idx []int
}

// NewSignedLogTransform creates a signed-log transform over the named columns.
func NewSignedLogTransform(columns ...string) *SignedLogTransform {
	return &SignedLogTransform{Columns: columns}
}

// Fit resolves the target columns against the frame's column names. The
// transform itself is parameter-free.
func (t *SignedLogTransform) Fit(_ mat.Matrix, names []string) error {
	idx, err := resolveColumns("SignedLogTransform.Fit", t.Columns, names)
	if err != nil {
		return err
	}
	t.idx = idx
	t.SetFitted()
	return nil
}

// Transform applies the signed log to the fitted columns.
func (t *SignedLogTransform) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !t.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("SignedLogTransform", "Transform")
	}
	r, c := X.Dims()
	out := mat.DenseCopyOf(X)
	for _, j := range t.idx {
		if j >= c {
			return nil, bloomErrors.NewDimensionError("SignedLogTransform.Transform", j+1, c, 1)
		}
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			out.Set(i, j, signedLog(v))
		}
	}
	return out, nil
}

func signedLog(v float64) float64 {
	switch {
	case v > 0:
		return math.Log1p(v)
	case v < 0:
		return -math.Log1p(-v)
	default:
		return 0
	}
}

// LogTransform applies a plain natural log to the selected columns. Fitting
// fails with a TransformFitError if a training column contains non-positive
// values; the signed log exists for those.
type LogTransform struct {
	model.BaseEstimator

	// Columns are the column names the transform applies to.
	Columns []string

	idx []int
}

// NewLogTransform creates a log transform over the named columns.
func NewLogTransform(columns ...string) *LogTransform {
	return &LogTransform{Columns: columns}
}

// Fit validates that every target column is strictly positive on train.
func (t *LogTransform) Fit(X mat.Matrix, names []string) error {
	idx, err := resolveColumns("LogTransform.Fit", t.Columns, names)
	if err != nil {
		return err
	}
	r, _ := X.Dims()
	for k, j := range idx {
		for i := 0; i < r; i++ {
			if X.At(i, j) <= 0 {
				return bloomErrors.NewTransformFitError("log", t.Columns[k], "non-positive values")
			}
		}
	}
	t.idx = idx
	t.SetFitted()
	return nil
}

// Transform applies the log to the fitted columns.
func (t *LogTransform) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !t.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("LogTransform", "Transform")
	}
	r, _ := X.Dims()
	out := mat.DenseCopyOf(X)
	for _, j := range t.idx {
		for i := 0; i < r; i++ {
			out.Set(i, j, math.Log(X.At(i, j)))
		}
	}
	return out, nil
}

// BoxCoxTransform applies a per-column power transform with a lambda
// estimated from the training subset by profile log-likelihood over a fixed
// grid. Columns that are not strictly positive on train pass through
// unchanged (lambda is undefined there); zero-variance columns and degenerate
// estimates are TransformFitErrors naming the column.
type BoxCoxTransform struct {
	model.BaseEstimator

	// Lambdas holds the estimated lambda per column; NaN marks passthrough.
	Lambdas []float64

	names []string
}

// NewBoxCoxTransform creates an unfitted Box-Cox transform.
func NewBoxCoxTransform() *BoxCoxTransform {
	return &BoxCoxTransform{}
}

// Fit estimates lambda per column from the training data.
func (t *BoxCoxTransform) Fit(X mat.Matrix, names []string) (err error) {
	defer bloomErrors.Recover(&err, "BoxCoxTransform.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return bloomErrors.NewModelError("BoxCoxTransform.Fit", "empty data", bloomErrors.ErrEmptyData)
	}

	t.names = append([]string(nil), names...)
	t.Lambdas = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		positive := true
		minV, maxV := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
			if col[i] <= 0 {
				positive = false
			}
			minV = math.Min(minV, col[i])
			maxV = math.Max(maxV, col[i])
		}

		if maxV-minV < 1e-12 {
			return bloomErrors.NewTransformFitError("boxcox", t.columnName(j), "zero variance")
		}
		if !positive {
			t.Lambdas[j] = math.NaN()
			continue
		}

		lambda, ok := estimateLambda(col)
		if !ok {
			return bloomErrors.NewTransformFitError("boxcox", t.columnName(j), "degenerate lambda estimate")
		}
		t.Lambdas[j] = lambda
	}

	t.SetFitted()
	return nil
}

func (t *BoxCoxTransform) columnName(j int) string {
	if j < len(t.names) {
		return t.names[j]
	}
	return "?"
}

// Transform applies the fitted per-column power transform.
func (t *BoxCoxTransform) Transform(X mat.Matrix) (*mat.Dense, error) {
	if !t.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("BoxCoxTransform", "Transform")
	}
	r, c := X.Dims()
	if c != len(t.Lambdas) {
		return nil, bloomErrors.NewDimensionError("BoxCoxTransform.Transform", len(t.Lambdas), c, 1)
	}

	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		lambda := t.Lambdas[j]
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(lambda) || v <= 0 {
				// Passthrough column, or an apply-time value the power
				// transform is undefined for.
				out.Set(i, j, v)
				continue
			}
			out.Set(i, j, boxCox(v, lambda))
		}
	}
	return out, nil
}

func boxCox(v, lambda float64) float64 {
	if math.Abs(lambda) < 1e-8 {
		return math.Log(v)
	}
	return (math.Pow(v, lambda) - 1) / lambda
}

// estimateLambda maximizes the Box-Cox profile log-likelihood over the grid
// [-2, 2] in steps of 0.1. Reports false when no grid point yields a finite
// likelihood.
func estimateLambda(values []float64) (float64, bool) {
	n := float64(len(values))

	logSum := 0.0
	for _, v := range values {
		logSum += math.Log(v)
	}

	bestLambda := math.NaN()
	bestLL := math.Inf(-1)

	transformed := make([]float64, len(values))
	for lambda := -2.0; lambda <= 2.0+1e-9; lambda += 0.1 {
		for i, v := range values {
			transformed[i] = boxCox(v, lambda)
		}

		mean := 0.0
		for _, v := range transformed {
			mean += v
		}
		mean /= n

		variance := 0.0
		for _, v := range transformed {
			d := v - mean
			variance += d * d
		}
		variance /= n

		if variance <= 0 || math.IsInf(variance, 0) || math.IsNaN(variance) {
			continue
		}

		ll := -n/2*math.Log(variance) + (lambda-1)*logSum
		if !math.IsInf(ll, 0) && !math.IsNaN(ll) && ll > bestLL {
			bestLL = ll
			bestLambda = lambda
		}
	}

	if math.IsNaN(bestLambda) {
		return 0, false
	}
	return bestLambda, true
}
