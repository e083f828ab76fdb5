// Package experiment orchestrates one bloom prediction run end to end:
// feature construction, chronological split, preprocessing, model selection,
// final fit and held-out evaluation. Every randomized stage derives its own
// seed from the master seed, so two runs with the same configuration produce
// identical confusion matrices.
package experiment

import (
	"time"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/dataset"
	"github.com/ezoic/bloomcast/evaluation"
	"github.com/ezoic/bloomcast/modelsel"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
	"github.com/ezoic/bloomcast/preprocessing"
)

// Seed offsets per randomized stage. Deriving stage seeds from the master
// seed keeps stages independent: changing the fold count does not perturb the
// upsampling draw.
const (
	seedOffsetUpsample = 1
	seedOffsetFolds    = 2
	seedOffsetModel    = 3
	seedOffsetSearch   = 4
)

// Result bundles the artifacts of a completed run.
type Result struct {
	// Model is the final classifier, refit on the full preprocessed
	// training set.
	Model classifier.Classifier

	// CV summarizes cross-validation on the training set. When search is
	// enabled this is the winning candidate's result.
	CV *modelsel.CVResult

	// Search holds the grid-search outcome, nil when search was disabled.
	Search *modelsel.SearchResult

	// Test is the held-out evaluation of Model.
	Test *evaluation.Result

	// TestDates and TestCounts align row-for-row with Test predictions:
	// the prediction date and the observed cell count being predicted.
	TestDates  []time.Time
	TestCounts []float64

	// TestFeatures is the raw (un-preprocessed) test feature table and
	// TestRows maps each prediction row into it, for diagnostics.
	TestFeatures *dataset.FeatureTable
	TestRows     []int
}

// Run executes the full pipeline on tbl under cfg.
func Run(tbl *dataset.Table, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("experiment")
	logger.Info("run started",
		log.StageKey, "features",
		"family", string(cfg.Family),
		"threshold", cfg.Threshold,
		log.SeedKey, cfg.Seed,
	)

	ft, err := dataset.BuildFeatures(tbl, dataset.FeatureConfig{
		Lags:       cfg.Lags,
		Threshold:  cfg.Threshold,
		LabelShift: cfg.LabelShift,
	})
	if err != nil {
		return nil, bloomErrors.Wrap(err, "feature construction failed")
	}

	logger.Info("splitting",
		log.StageKey, "split",
		log.SamplesKey, ft.Len(),
		"train_fraction", cfg.TrainFraction,
	)
	train, test, err := dataset.TemporalSplit(ft, cfg.TrainFraction)
	if err != nil {
		return nil, err
	}

	pipe := preprocessing.NewPipeline(
		preprocessing.WithUpsampleRatio(cfg.UpsampleRatio),
		preprocessing.WithPipelineSeed(cfg.Seed+seedOffsetUpsample),
	)
	trainT, err := pipe.FitTransform(train)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "preprocessing failed")
	}
	trainRows, _ := trainT.X.Dims()
	logger.Info("preprocessing complete",
		log.StageKey, "preprocess",
		log.SamplesKey, trainRows,
		log.FeaturesKey, len(trainT.FeatureNames),
	)

	res := &Result{}
	if cfg.Search.Enabled {
		opts := []modelsel.SearchOption{
			modelsel.WithPrimaryMetric(cfg.Search.PrimaryMetric),
			modelsel.WithInitialSamples(cfg.Search.InitialSamples),
			modelsel.WithIterations(cfg.Search.Iterations),
		}
		search, err := modelsel.GridSearch(
			cfg.searchFactory(cfg.Seed+seedOffsetModel),
			cfg.Search.Space,
			trainT.X, trainT.Y,
			cfg.Folds, cfg.Seed+seedOffsetSearch,
			opts...,
		)
		if err != nil {
			return nil, bloomErrors.Wrap(err, "hyperparameter search failed")
		}
		res.Search = search
		res.CV = search.CV
		res.Model = search.Model
	} else {
		base, err := cfg.NewClassifier(cfg.Seed + seedOffsetModel)
		if err != nil {
			return nil, err
		}
		cv, err := modelsel.CrossValidate(base, trainT.X, trainT.Y, cfg.Folds, cfg.Seed+seedOffsetFolds)
		if err != nil {
			return nil, bloomErrors.Wrap(err, "cross-validation failed")
		}
		res.CV = cv

		// Deployable model: fresh clone refit on the entire training set.
		final := base.Clone()
		if err := final.Fit(trainT.X, trainT.Y); err != nil {
			return nil, bloomErrors.Wrap(err, "final fit failed")
		}
		res.Model = final
	}

	testT, err := pipe.Transform(test)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "test preprocessing failed")
	}
	res.Test, err = evaluation.Evaluate(res.Model, testT.X, testT.Y)
	if err != nil {
		return nil, err
	}

	res.TestFeatures = test
	res.TestRows = testT.RowIndex
	res.TestDates = make([]time.Time, len(testT.RowIndex))
	res.TestCounts = make([]float64, len(testT.RowIndex))
	for i, row := range testT.RowIndex {
		res.TestDates[i] = test.Dates[row]
		res.TestCounts[i] = test.TargetCount[row]
	}

	logger.Info("run complete",
		log.StageKey, "evaluate",
		log.PhaseKey, log.PhaseEvaluation,
		"test_rows", len(res.TestDates),
		"accuracy", res.Test.Metrics["accuracy"],
	)
	return res, nil
}
