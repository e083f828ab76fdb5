// Package diagnostics builds the visual checks of a bloom run: predicted
// probability against observed abundance, probability over time, and a
// response curve of probability against a single covariate. Each function
// returns the plot data so callers can inspect it directly; Render saves a
// gonum/plot figure. No pipeline logic depends on this package.
package diagnostics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// Point is one (x, y) pair of a plot data set.
type Point struct {
	X float64
	Y float64
}

// AbundanceScatter holds P(high) against log-scaled observed counts, with
// the two reference values a reader needs to judge the classifier: the 0.5
// decision line and the count threshold that defined the high label.
type AbundanceScatter struct {
	Points        []Point // X = log10(1+count), Y = P(high)
	DecisionLine  float64 // horizontal reference
	ThresholdLine float64 // vertical reference, log10(1+threshold)
}

// ProbabilityVsAbundance pairs each predicted probability with the observed
// raw count on a log10(1+x) scale. counts and probs align row-for-row with
// the test set.
func ProbabilityVsAbundance(probs, counts []float64, threshold float64) (*AbundanceScatter, error) {
	if len(probs) == 0 {
		return nil, bloomErrors.NewValueError("ProbabilityVsAbundance", "no predictions")
	}
	if len(probs) != len(counts) {
		return nil, bloomErrors.NewDimensionError("ProbabilityVsAbundance", len(probs), len(counts), 0)
	}
	if threshold <= 0 {
		return nil, bloomErrors.NewValidationError("threshold", "must be positive", threshold)
	}

	s := &AbundanceScatter{
		Points:        make([]Point, len(probs)),
		DecisionLine:  0.5,
		ThresholdLine: math.Log10(1 + threshold),
	}
	for i := range probs {
		s.Points[i] = Point{X: math.Log10(1 + counts[i]), Y: probs[i]}
	}
	return s, nil
}

// Timeline holds P(high) over the test-set dates.
type Timeline struct {
	Dates []time.Time
	Probs []float64
}

// ProbabilityTimeline pairs predicted probabilities with their dates. Dates
// must be ascending, matching the chronological test set.
func ProbabilityTimeline(dates []time.Time, probs []float64) (*Timeline, error) {
	if len(dates) == 0 {
		return nil, bloomErrors.NewValueError("ProbabilityTimeline", "no predictions")
	}
	if len(dates) != len(probs) {
		return nil, bloomErrors.NewDimensionError("ProbabilityTimeline", len(dates), len(probs), 0)
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, bloomErrors.NewValueError("ProbabilityTimeline", "dates must be strictly ascending")
		}
	}
	return &Timeline{
		Dates: append([]time.Time(nil), dates...),
		Probs: append([]float64(nil), probs...),
	}, nil
}

// ResponseCurve holds a covariate's observed values against P(high) with a
// least-squares line summarizing the trend.
type ResponseCurve struct {
	Covariate string
	Points    []Point // X = covariate value, Y = P(high)
	Intercept float64
	Slope     float64
}

// FitResponseCurve regresses P(high) on one covariate. The covariate must
// vary; a constant column has no usable trend.
func FitResponseCurve(covariate string, values, probs []float64) (*ResponseCurve, error) {
	if len(values) < 2 {
		return nil, bloomErrors.NewInsufficientDataError("FitResponseCurve", 2, len(values))
	}
	if len(values) != len(probs) {
		return nil, bloomErrors.NewDimensionError("FitResponseCurve", len(values), len(probs), 0)
	}

	if stat.Variance(values, nil) == 0 {
		return nil, bloomErrors.NewModelError("FitResponseCurve",
			"covariate "+covariate+" has zero variance", bloomErrors.ErrSingularMatrix)
	}

	alpha, beta := stat.LinearRegression(values, probs, nil, false)
	curve := &ResponseCurve{
		Covariate: covariate,
		Points:    make([]Point, len(values)),
		Intercept: alpha,
		Slope:     beta,
	}
	for i := range values {
		curve.Points[i] = Point{X: values[i], Y: probs[i]}
	}
	return curve, nil
}

// At evaluates the fitted line at x.
func (c *ResponseCurve) At(x float64) float64 {
	return c.Intercept + c.Slope*x
}
