package classifier

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	"github.com/ezoic/bloomcast/core/parallel"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// BaggedTreesClassifier is an ensemble of CART trees grown on bootstrap
// samples. Unlike the random forest every split considers the full feature
// set, so diversity comes from the bootstrap alone and variance is tuned
// through the per-tree complexity controls instead.
type BaggedTreesClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nBags               int
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	seed                int64

	// Fitted state
	trees_     []*treeNode
	nFeatures_ int
}

// BaggedTreesOption is a functional option for BaggedTreesClassifier.
type BaggedTreesOption func(*BaggedTreesClassifier)

// WithBags sets the number of bootstrap replicates.
func WithBags(n int) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.nBags = n }
}

// WithBaggingMaxDepth limits tree depth. Zero means unlimited.
func WithBaggingMaxDepth(depth int) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size eligible for splitting.
func WithMinSamplesSplit(n int) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum rows a leaf may hold.
func WithMinSamplesLeaf(n int) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.minSamplesLeaf = n }
}

// WithMinImpurityDecrease sets the smallest impurity gain worth splitting on.
func WithMinImpurityDecrease(d float64) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.minImpurityDecrease = d }
}

// WithBaggingSeed sets the seed driving the bootstrap draws.
func WithBaggingSeed(seed int64) BaggedTreesOption {
	return func(b *BaggedTreesClassifier) { b.seed = seed }
}

// NewBaggedTreesClassifier creates a bagging ensemble with 100 bags and
// unrestricted trees.
func NewBaggedTreesClassifier(opts ...BaggedTreesOption) *BaggedTreesClassifier {
	b := &BaggedTreesClassifier{
		state:           model.NewStateManager(),
		nBags:           100,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		seed:            1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fit grows one tree per bootstrap replicate. Replicates are independent and
// grown in parallel, seeded per bag so the fitted ensemble does not depend on
// worker scheduling.
func (b *BaggedTreesClassifier) Fit(X, y mat.Matrix) (err error) {
	defer bloomErrors.Recover(&err, "BaggedTreesClassifier.Fit")

	nSamples, nFeatures, err := validateFitInputs("BaggedTreesClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if b.nBags < 1 {
		return bloomErrors.NewValidationError("bags", "must be at least 1", b.nBags)
	}
	if b.minSamplesSplit < 2 {
		return bloomErrors.NewValidationError("min_samples_split", "must be at least 2", b.minSamplesSplit)
	}
	if b.minSamplesLeaf < 1 {
		return bloomErrors.NewValidationError("min_samples_leaf", "must be at least 1", b.minSamplesLeaf)
	}

	labels := labelsToBinary(y)
	b.nFeatures_ = nFeatures

	params := treeParams{
		maxDepth:            b.maxDepth,
		minSamplesSplit:     b.minSamplesSplit,
		minSamplesLeaf:      b.minSamplesLeaf,
		minImpurityDecrease: b.minImpurityDecrease,
	}

	log.GetLoggerWithName("classifier").Info("fitting bagged trees",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"bags", b.nBags,
		log.SeedKey, b.seed,
	)

	b.trees_ = make([]*treeNode, b.nBags)
	parallel.ParallelizeWithThreshold(b.nBags, 4, func(start, end int) {
		for t := start; t < end; t++ {
			rng := rand.New(rand.NewSource(b.seed + int64(t)*7919))
			idx := make([]int, nSamples)
			for i := range idx {
				idx[i] = rng.Intn(nSamples)
			}
			b.trees_[t] = growTree(X, labels, idx, params, rng, 0)
		}
	})

	b.state.SetFitted()
	return nil
}

// PredictProba returns the mean high-class leaf frequency across bags.
func (b *BaggedTreesClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !b.state.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("BaggedTreesClassifier", "PredictProba")
	}
	r, c := X.Dims()
	if c != b.nFeatures_ {
		return nil, bloomErrors.NewDimensionError("BaggedTreesClassifier.PredictProba", b.nFeatures_, c, 1)
	}

	proba := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		sum := 0.0
		for _, tree := range b.trees_ {
			sum += tree.probaHigh(X, i)
		}
		proba.Set(i, 0, sum/float64(len(b.trees_)))
	}
	return proba, nil
}

// Predict thresholds PredictProba at 0.5.
func (b *BaggedTreesClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := b.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return probaToLabels(proba), nil
}

// Clone returns an unfitted ensemble with the same hyperparameters.
func (b *BaggedTreesClassifier) Clone() Classifier {
	return NewBaggedTreesClassifier(
		WithBags(b.nBags),
		WithBaggingMaxDepth(b.maxDepth),
		WithMinSamplesSplit(b.minSamplesSplit),
		WithMinSamplesLeaf(b.minSamplesLeaf),
		WithMinImpurityDecrease(b.minImpurityDecrease),
		WithBaggingSeed(b.seed),
	)
}

// GetParams returns the model hyperparameters.
func (b *BaggedTreesClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"bags":                  b.nBags,
		"max_depth":             b.maxDepth,
		"min_samples_split":     b.minSamplesSplit,
		"min_samples_leaf":      b.minSamplesLeaf,
		"min_impurity_decrease": b.minImpurityDecrease,
		"seed":                  b.seed,
	}
}
