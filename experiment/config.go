package experiment

import (
	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/dataset"
	"github.com/ezoic/bloomcast/metrics"
	"github.com/ezoic/bloomcast/modelsel"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// ForestParams are the random-forest hyperparameters.
type ForestParams struct {
	Trees       int
	MaxFeatures int // 0 = floor(sqrt(n_features))
	MaxDepth    int // 0 = unlimited
}

// BaggingParams are the bagged-trees hyperparameters.
type BaggingParams struct {
	Bags                int
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MinImpurityDecrease float64
}

// NeuralNetParams are the feed-forward network hyperparameters.
type NeuralNetParams struct {
	HiddenUnits  int
	Epochs       int
	LearningRate float64
	Dropout      float64
	Activation   string
}

// SearchParams configure the optional hyperparameter grid search.
type SearchParams struct {
	Enabled        bool
	Space          modelsel.SearchSpace
	InitialSamples int
	Iterations     int
	PrimaryMetric  string
}

// Config holds every recognized option of a bloom run.
type Config struct {
	// Feature construction.
	Lags       dataset.LagSpec
	Threshold  float64
	LabelShift int

	// Split and preprocessing.
	TrainFraction float64
	UpsampleRatio float64

	// Cross-validation.
	Folds int

	// Seed is the master seed; each randomized stage derives its own from it.
	Seed int64

	// Model selection.
	Family    classifier.Family
	Forest    ForestParams
	Bagging   BaggingParams
	NeuralNet NeuralNetParams
	Search    SearchParams
}

// DefaultConfig returns the reference configuration: default lags, count
// threshold 5000, one-step label lead, 90/10 chronological split, 0.35
// upsample ratio, 5 folds and a random forest.
func DefaultConfig() Config {
	return Config{
		Lags:          dataset.DefaultLags(),
		Threshold:     5000,
		LabelShift:    1,
		TrainFraction: 0.9,
		UpsampleRatio: 0.35,
		Folds:         5,
		Seed:          73,
		Family:        classifier.FamilyRandomForest,
		Forest:        ForestParams{Trees: 500},
		Bagging:       BaggingParams{Bags: 100, MinSamplesSplit: 2, MinSamplesLeaf: 1},
		NeuralNet: NeuralNetParams{
			HiddenUnits:  16,
			Epochs:       200,
			LearningRate: 0.01,
			Activation:   classifier.ActivationLogistic,
		},
		Search: SearchParams{PrimaryMetric: metrics.MetricAccuracy},
	}
}

// Validate checks the cross-field constraints before a run starts.
func (c *Config) Validate() error {
	if c.Threshold <= 0 {
		return bloomErrors.NewValidationError("threshold", "must be positive", c.Threshold)
	}
	if c.LabelShift < 1 {
		return bloomErrors.NewValidationError("label_shift", "must be at least 1", c.LabelShift)
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return bloomErrors.NewValidationError("train_fraction", "must be in (0, 1)", c.TrainFraction)
	}
	if c.UpsampleRatio < 0 || c.UpsampleRatio > 1 {
		return bloomErrors.NewValidationError("upsample_ratio", "must be in [0, 1]", c.UpsampleRatio)
	}
	if c.Folds < 2 {
		return bloomErrors.NewValidationError("folds", "must be at least 2", c.Folds)
	}
	switch c.Family {
	case classifier.FamilyNeuralNet, classifier.FamilyRandomForest, classifier.FamilyBaggedTrees:
	default:
		return bloomErrors.NewValidationError("family", "must be nnet, rf or bag", string(c.Family))
	}
	if c.Search.Enabled && len(c.Search.Space) == 0 {
		return bloomErrors.NewValidationError("search.space", "cannot be empty when search is enabled", nil)
	}
	return nil
}

// NewClassifier builds the configured family with the given model seed.
func (c *Config) NewClassifier(seed int64) (classifier.Classifier, error) {
	switch c.Family {
	case classifier.FamilyRandomForest:
		return classifier.NewRandomForestClassifier(
			classifier.WithTrees(c.Forest.Trees),
			classifier.WithMaxFeatures(c.Forest.MaxFeatures),
			classifier.WithForestMaxDepth(c.Forest.MaxDepth),
			classifier.WithForestSeed(seed),
		), nil
	case classifier.FamilyBaggedTrees:
		return classifier.NewBaggedTreesClassifier(
			classifier.WithBags(c.Bagging.Bags),
			classifier.WithBaggingMaxDepth(c.Bagging.MaxDepth),
			classifier.WithMinSamplesSplit(c.Bagging.MinSamplesSplit),
			classifier.WithMinSamplesLeaf(c.Bagging.MinSamplesLeaf),
			classifier.WithMinImpurityDecrease(c.Bagging.MinImpurityDecrease),
			classifier.WithBaggingSeed(seed),
		), nil
	case classifier.FamilyNeuralNet:
		return classifier.NewMLPClassifier(
			classifier.WithHiddenUnits(c.NeuralNet.HiddenUnits),
			classifier.WithEpochs(c.NeuralNet.Epochs),
			classifier.WithLearningRate(c.NeuralNet.LearningRate),
			classifier.WithDropout(c.NeuralNet.Dropout),
			classifier.WithActivation(c.NeuralNet.Activation),
			classifier.WithMLPSeed(seed),
		), nil
	}
	return nil, bloomErrors.NewValidationError("family", "unknown family", string(c.Family))
}

// searchFactory produces the grid-search factory: each candidate is the base
// configuration with the assigned hyperparameters applied on a copy.
func (c *Config) searchFactory(seed int64) modelsel.Factory {
	return func(params map[string]interface{}) (classifier.Classifier, error) {
		cand := *c
		for name, value := range params {
			if err := cand.applyParam(name, value); err != nil {
				return nil, err
			}
		}
		return cand.NewClassifier(seed)
	}
}

func (c *Config) applyParam(name string, value interface{}) error {
	switch name {
	case "trees":
		return setInt(&c.Forest.Trees, name, value)
	case "max_features":
		return setInt(&c.Forest.MaxFeatures, name, value)
	case "bags":
		return setInt(&c.Bagging.Bags, name, value)
	case "max_depth":
		switch c.Family {
		case classifier.FamilyBaggedTrees:
			return setInt(&c.Bagging.MaxDepth, name, value)
		default:
			return setInt(&c.Forest.MaxDepth, name, value)
		}
	case "min_samples_split":
		return setInt(&c.Bagging.MinSamplesSplit, name, value)
	case "min_samples_leaf":
		return setInt(&c.Bagging.MinSamplesLeaf, name, value)
	case "min_impurity_decrease":
		return setFloat(&c.Bagging.MinImpurityDecrease, name, value)
	case "hidden_units":
		return setInt(&c.NeuralNet.HiddenUnits, name, value)
	case "epochs":
		return setInt(&c.NeuralNet.Epochs, name, value)
	case "learning_rate":
		return setFloat(&c.NeuralNet.LearningRate, name, value)
	case "dropout":
		return setFloat(&c.NeuralNet.Dropout, name, value)
	case "activation":
		s, ok := value.(string)
		if !ok {
			return bloomErrors.NewValidationError(name, "must be a string", value)
		}
		c.NeuralNet.Activation = s
		return nil
	}
	return bloomErrors.NewValidationError(name, "unknown hyperparameter", value)
}

func setInt(dst *int, name string, value interface{}) error {
	v, ok := value.(int)
	if !ok {
		return bloomErrors.NewValidationError(name, "must be an int", value)
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, name string, value interface{}) error {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	default:
		return bloomErrors.NewValidationError(name, "must be a number", value)
	}
	return nil
}
