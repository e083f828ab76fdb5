// Package modelsel provides model selection for the bloom classifiers:
// stratified k-fold cross-validation and grid search over a hyperparameter
// space. Fold assignment and candidate ordering are fully seeded, and fold
// results reduce by commutative averaging, so a run is reproducible no matter
// how the work is scheduled.
package modelsel

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// Fold holds the row indices of one cross-validation fold.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedKFold partitions rows into k folds preserving class proportions.
// Indices of each class are shuffled with the seed, then dealt round-robin
// into folds, so every fold sees close to the global high/low ratio.
//
// Returns InsufficientDataError when n < k or any class has fewer rows than k.
func StratifiedKFold(y mat.Matrix, k int, seed int64) ([]Fold, error) {
	n, _ := y.Dims()
	if k < 2 {
		return nil, bloomErrors.NewValidationError("folds", "must be at least 2", k)
	}
	if n < k {
		return nil, bloomErrors.NewInsufficientDataError("StratifiedKFold", k, n)
	}

	var low, high []int
	for i := 0; i < n; i++ {
		if y.At(i, 0) >= 0.5 {
			high = append(high, i)
		} else {
			low = append(low, i)
		}
	}
	if len(low) < k {
		return nil, bloomErrors.NewInsufficientDataError("StratifiedKFold low class", k, len(low))
	}
	if len(high) < k {
		return nil, bloomErrors.NewInsufficientDataError("StratifiedKFold high class", k, len(high))
	}

	rng := rand.New(rand.NewSource(seed))
	testSets := make([][]int, k)
	for _, class := range [][]int{low, high} {
		rng.Shuffle(len(class), func(a, b int) {
			class[a], class[b] = class[b], class[a]
		})
		for pos, idx := range class {
			f := pos % k
			testSets[f] = append(testSets[f], idx)
		}
	}

	folds := make([]Fold, k)
	inTest := make([]int, n) // fold number + 1, 0 = unassigned
	for f, test := range testSets {
		sort.Ints(test)
		folds[f].Test = test
		for _, idx := range test {
			inTest[idx] = f + 1
		}
	}
	for f := range folds {
		for i := 0; i < n; i++ {
			if inTest[i] != f+1 {
				folds[f].Train = append(folds[f].Train, i)
			}
		}
	}
	return folds, nil
}

// subsetRows copies the given rows of X into a new dense matrix.
func subsetRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}
