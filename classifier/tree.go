package classifier

import (
	"math/rand"
	"sort"
)

// treeNode is a node of a binary classification tree.
type treeNode struct {
	isLeaf    bool
	feature   int       // split feature (internal nodes)
	threshold float64   // split threshold (internal nodes)
	left      *treeNode // values <= threshold
	right     *treeNode // values > threshold
	counts    [2]int    // class counts at this node (leaf prediction)
}

// treeParams are the growth controls shared by the forest and bagging
// ensembles.
type treeParams struct {
	maxDepth            int // 0 = unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	minImpurityDecrease float64
	maxFeatures         int // features considered per split; 0 = all
}

func defaultTreeParams() treeParams {
	return treeParams{
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
}

// matrixLike is the read view the tree needs; satisfied by mat.Matrix.
type matrixLike interface {
	Dims() (int, int)
	At(i, j int) float64
}

// growTree builds a CART tree over the rows in idx. rng drives feature
// subsampling; it may be nil when maxFeatures is 0.
func growTree(X matrixLike, y []int, idx []int, params treeParams, rng *rand.Rand, depth int) *treeNode {
	node := &treeNode{}
	for _, i := range idx {
		node.counts[y[i]]++
	}

	impurity := gini(node.counts)
	if stopGrowth(len(idx), impurity, depth, params) {
		node.isLeaf = true
		return node
	}

	feature, threshold, decrease := bestSplit(X, y, idx, impurity, params, rng)
	if feature < 0 || decrease < params.minImpurityDecrease {
		node.isLeaf = true
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X.At(i, feature) <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < params.minSamplesLeaf || len(rightIdx) < params.minSamplesLeaf {
		node.isLeaf = true
		return node
	}

	node.feature = feature
	node.threshold = threshold
	node.left = growTree(X, y, leftIdx, params, rng, depth+1)
	node.right = growTree(X, y, rightIdx, params, rng, depth+1)
	return node
}

func stopGrowth(nSamples int, impurity float64, depth int, params treeParams) bool {
	if params.maxDepth > 0 && depth >= params.maxDepth {
		return true
	}
	if nSamples < params.minSamplesSplit {
		return true
	}
	return impurity == 0
}

// gini computes the Gini impurity of a binary count pair.
func gini(counts [2]int) float64 {
	total := counts[0] + counts[1]
	if total == 0 {
		return 0
	}
	p0 := float64(counts[0]) / float64(total)
	p1 := float64(counts[1]) / float64(total)
	return 1 - p0*p0 - p1*p1
}

// bestSplit searches candidate features for the threshold with the largest
// impurity decrease. With maxFeatures > 0 a seeded random subset of features
// is considered, which is what differentiates a random-forest tree from a
// bagged tree.
func bestSplit(X matrixLike, y []int, idx []int, parentImpurity float64, params treeParams, rng *rand.Rand) (int, float64, float64) {
	_, nFeatures := X.Dims()

	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	if params.maxFeatures > 0 && params.maxFeatures < nFeatures && rng != nil {
		rng.Shuffle(nFeatures, func(a, b int) {
			features[a], features[b] = features[b], features[a]
		})
		features = features[:params.maxFeatures]
		sort.Ints(features) // deterministic iteration order for a given draw
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := 0.0
	n := len(idx)

	values := make([]float64, n)
	order := make([]int, n)

	for _, feature := range features {
		for k, i := range idx {
			values[k] = X.At(i, feature)
			order[k] = k
		}
		sort.Slice(order, func(a, b int) bool {
			return values[order[a]] < values[order[b]]
		})

		// Sweep sorted rows, maintaining left/right counts incrementally.
		var leftCounts, rightCounts [2]int
		for _, i := range idx {
			rightCounts[y[i]]++
		}

		for k := 0; k < n-1; k++ {
			row := idx[order[k]]
			leftCounts[y[row]]++
			rightCounts[y[row]]--

			v1 := values[order[k]]
			v2 := values[order[k+1]]
			if v1 == v2 {
				continue
			}

			nLeft := k + 1
			nRight := n - nLeft
			if nLeft < params.minSamplesLeaf || nRight < params.minSamplesLeaf {
				continue
			}

			weighted := (float64(nLeft)*gini(leftCounts) + float64(nRight)*gini(rightCounts)) / float64(n)
			decrease := parentImpurity - weighted
			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (v1 + v2) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestDecrease
}

// probaHigh walks a row down the tree and returns the leaf's high-class
// frequency.
func (t *treeNode) probaHigh(X matrixLike, row int) float64 {
	node := t
	for !node.isLeaf {
		if X.At(row, node.feature) <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	total := node.counts[0] + node.counts[1]
	if total == 0 {
		return 0
	}
	return float64(node.counts[1]) / float64(total)
}
