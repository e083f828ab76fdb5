package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	"github.com/ezoic/bloomcast/core/parallel"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// RandomForestClassifier is an ensemble of CART trees grown on bootstrap
// samples with per-split feature subsampling. Probability estimates average
// the leaf class frequencies across trees.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nTrees      int
	maxFeatures int // features per split; 0 = floor(sqrt(d))
	maxDepth    int
	seed        int64

	// Fitted state
	trees_     []*treeNode
	nFeatures_ int
}

// RandomForestOption is a functional option for RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

// WithTrees sets the number of trees in the forest.
func WithTrees(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.nTrees = n }
}

// WithMaxFeatures sets the number of features considered per split.
// Zero selects floor(sqrt(n_features)) at fit time.
func WithMaxFeatures(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = n }
}

// WithForestMaxDepth limits tree depth. Zero means unlimited.
func WithForestMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithForestSeed sets the seed driving bootstrap draws and feature
// subsampling.
func WithForestSeed(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.seed = seed }
}

// NewRandomForestClassifier creates a random forest with 500 trees, the
// conventional sqrt feature subsampling and unlimited depth.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:  model.NewStateManager(),
		nTrees: 500,
		seed:   1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows the forest. Trees are independent, so they are grown on parallel
// workers; each tree derives its own generator from the forest seed and the
// tree index, which keeps the result identical regardless of scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer bloomErrors.Recover(&err, "RandomForestClassifier.Fit")

	nSamples, nFeatures, err := validateFitInputs("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nTrees < 1 {
		return bloomErrors.NewValidationError("trees", "must be at least 1", rf.nTrees)
	}

	labels := labelsToBinary(y)
	rf.nFeatures_ = nFeatures

	mtry := rf.maxFeatures
	if mtry <= 0 {
		mtry = int(math.Floor(math.Sqrt(float64(nFeatures))))
		if mtry < 1 {
			mtry = 1
		}
	}
	params := defaultTreeParams()
	params.maxDepth = rf.maxDepth
	params.maxFeatures = mtry

	log.GetLoggerWithName("classifier").Info("fitting random forest",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"trees", rf.nTrees,
		"mtry", mtry,
		log.SeedKey, rf.seed,
	)

	rf.trees_ = make([]*treeNode, rf.nTrees)
	parallel.ParallelizeWithThreshold(rf.nTrees, 4, func(start, end int) {
		for t := start; t < end; t++ {
			rng := rand.New(rand.NewSource(rf.seed + int64(t)*7919))
			idx := make([]int, nSamples)
			for i := range idx {
				idx[i] = rng.Intn(nSamples)
			}
			rf.trees_[t] = growTree(X, labels, idx, params, rng, 0)
		}
	})

	rf.state.SetFitted()
	return nil
}

// PredictProba returns the mean high-class leaf frequency across trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.state.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	r, c := X.Dims()
	if c != rf.nFeatures_ {
		return nil, bloomErrors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures_, c, 1)
	}

	proba := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		sum := 0.0
		for _, tree := range rf.trees_ {
			sum += tree.probaHigh(X, i)
		}
		proba.Set(i, 0, sum/float64(len(rf.trees_)))
	}
	return proba, nil
}

// Predict thresholds PredictProba at 0.5.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return probaToLabels(proba), nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() Classifier {
	return NewRandomForestClassifier(
		WithTrees(rf.nTrees),
		WithMaxFeatures(rf.maxFeatures),
		WithForestMaxDepth(rf.maxDepth),
		WithForestSeed(rf.seed),
	)
}

// GetParams returns the model hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"trees":        rf.nTrees,
		"max_features": rf.maxFeatures,
		"max_depth":    rf.maxDepth,
		"seed":         rf.seed,
	}
}
