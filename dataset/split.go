package dataset

import (
	"math"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// TemporalSplit partitions a feature table into train and test subsets
// preserving chronological order. The cut is at floor(p * n): the earliest
// fraction p becomes train, the remainder test. There is no shuffling;
// reproducibility depends solely on input order.
//
// Returns a SplitError when p leaves either partition empty.
func TemporalSplit(ft *FeatureTable, p float64) (train, test *FeatureTable, err error) {
	n := ft.Len()
	if p <= 0 || p >= 1 {
		return nil, nil, bloomErrors.NewSplitError(p, n)
	}

	cut := int(math.Floor(p * float64(n)))
	if cut < 1 || cut >= n {
		return nil, nil, bloomErrors.NewSplitError(p, n)
	}

	train = ft.Slice(0, cut)
	test = ft.Slice(cut, n)

	log.GetLoggerWithName("dataset").Info("temporal split",
		log.StageKey, "temporal_splitter",
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		"fraction", p,
	)
	return train, test, nil
}
