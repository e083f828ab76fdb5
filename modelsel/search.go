package modelsel

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/metrics"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// SearchSpace declares candidate values per hyperparameter name. The grid is
// the cartesian product of all value lists.
type SearchSpace map[string][]interface{}

// Factory builds an unfitted classifier from one parameter assignment.
type Factory func(params map[string]interface{}) (classifier.Classifier, error)

// SearchResult holds the winning candidate of a grid search.
type SearchResult struct {
	// BestParams is the parameter assignment that maximized the primary
	// metric.
	BestParams map[string]interface{}

	// BestScore is the primary-metric mean across folds for BestParams.
	BestScore float64

	// CV is the full cross-validation result of the best candidate.
	CV *CVResult

	// Model is a fresh instance of the best candidate refit on the entire
	// training matrix.
	Model classifier.Classifier

	// Evaluated is the number of candidates actually scored under the
	// budget.
	Evaluated int
}

type searchConfig struct {
	primaryMetric  string
	initialSamples int
	iterations     int
}

// SearchOption is a functional option for GridSearch.
type SearchOption func(*searchConfig)

// WithPrimaryMetric selects the metric that ranks candidates. Default
// accuracy.
func WithPrimaryMetric(name string) SearchOption {
	return func(c *searchConfig) { c.primaryMetric = name }
}

// WithInitialSamples sets how many seeded random candidates are scored before
// the iteration budget applies.
func WithInitialSamples(n int) SearchOption {
	return func(c *searchConfig) { c.initialSamples = n }
}

// WithIterations caps candidates scored after the initial samples. Zero means
// exhaust the grid.
func WithIterations(n int) SearchOption {
	return func(c *searchConfig) { c.iterations = n }
}

// GridSearch scores candidates from the cartesian grid with cross-validation
// and returns the best by the primary metric, refit on the full training
// matrix. Every candidate is evaluated on the same seeded folds so scores are
// comparable.
//
// Candidate order is a seeded shuffle of the grid; the initial-sample count
// plus the iteration budget caps how many are scored. Ties go to the earlier
// candidate, which keeps the winner deterministic for a given seed.
func GridSearch(factory Factory, space SearchSpace, X, y mat.Matrix, k int, seed int64, opts ...SearchOption) (*SearchResult, error) {
	cfg := searchConfig{primaryMetric: metrics.MetricAccuracy}
	for _, opt := range opts {
		opt(&cfg)
	}
	if factory == nil {
		return nil, bloomErrors.NewValueError("GridSearch", "factory cannot be nil")
	}
	if len(space) == 0 {
		return nil, bloomErrors.NewValueError("GridSearch", "search space cannot be empty")
	}

	candidates := enumerate(space)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(candidates), func(a, b int) {
		candidates[a], candidates[b] = candidates[b], candidates[a]
	})

	budget := len(candidates)
	if cfg.iterations > 0 {
		budget = cfg.initialSamples + cfg.iterations
		if budget > len(candidates) {
			budget = len(candidates)
		}
	}

	logger := log.GetLoggerWithName("modelsel")
	logger.Info("grid search",
		"grid_size", len(candidates),
		"budget", budget,
		"primary_metric", cfg.primaryMetric,
		log.SeedKey, seed,
	)

	var best *SearchResult
	for i := 0; i < budget; i++ {
		params := candidates[i]
		cand, err := factory(params)
		if err != nil {
			return nil, bloomErrors.Wrap(err, "grid search candidate construction failed")
		}

		cv, err := CrossValidate(cand, X, y, k, seed)
		if err != nil {
			return nil, bloomErrors.Wrap(err, "grid search candidate evaluation failed")
		}

		score, ok := cv.Mean[cfg.primaryMetric]
		if !ok {
			return nil, bloomErrors.NewValueError("GridSearch", "unknown primary metric "+cfg.primaryMetric)
		}
		logger.Debug("candidate scored",
			"candidate", i,
			"score", score,
		)

		if best == nil || score > best.BestScore {
			best = &SearchResult{
				BestParams: params,
				BestScore:  score,
				CV:         cv,
			}
		}
	}
	best.Evaluated = budget

	// Deployable model: fresh build of the winner fit on all rows.
	final, err := factory(best.BestParams)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "grid search final construction failed")
	}
	if err := final.Fit(X, y); err != nil {
		return nil, bloomErrors.Wrap(err, "grid search final fit failed")
	}
	best.Model = final
	return best, nil
}

// enumerate expands the space into its cartesian product. Parameter names are
// iterated in sorted order so the pre-shuffle grid order is stable.
func enumerate(space SearchSpace) []map[string]interface{} {
	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []map[string]interface{}{{}}
	for _, name := range names {
		values := space[name]
		next := make([]map[string]interface{}, 0, len(out)*len(values))
		for _, partial := range out {
			for _, v := range values {
				assignment := make(map[string]interface{}, len(partial)+1)
				for k, pv := range partial {
					assignment[k] = pv
				}
				assignment[name] = v
				next = append(next, assignment)
			}
		}
		out = next
	}
	return out
}
