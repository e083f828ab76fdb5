package preprocessing

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// Upsampler rebalances a training set by resampling minority-class rows with
// replacement until minority:majority reaches the target ratio. The sampler
// is seeded so a run is reproducible, and it is only ever applied to the
// training subset; the test distribution stays natural.
type Upsampler struct {
	// Ratio is the target minority:majority row ratio.
	Ratio float64

	// Seed drives the resampling draw.
	Seed int64
}

// NewUpsampler creates an Upsampler with the given target ratio and seed.
func NewUpsampler(ratio float64, seed int64) *Upsampler {
	return &Upsampler{Ratio: ratio, Seed: seed}
}

// Apply returns X and labels extended with resampled minority rows. When the
// set already meets the ratio, or only one class is present, the input is
// returned unchanged.
func (u *Upsampler) Apply(X *mat.Dense, labels []string) (*mat.Dense, []string, error) {
	r, c := X.Dims()
	if r != len(labels) {
		return nil, nil, bloomErrors.NewDimensionError("Upsampler.Apply", r, len(labels), 0)
	}
	if u.Ratio <= 0 {
		return X, labels, nil
	}

	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	if len(counts) < 2 {
		return X, labels, nil
	}

	minority, majority := "", ""
	for l, n := range counts {
		if minority == "" || n < counts[minority] || (n == counts[minority] && l < minority) {
			minority = l
		}
		if majority == "" || n > counts[majority] || (n == counts[majority] && l > majority) {
			majority = l
		}
	}

	need := int(u.Ratio*float64(counts[majority])+0.5) - counts[minority]
	if need <= 0 {
		return X, labels, nil
	}

	var minorityRows []int
	for i, l := range labels {
		if l == minority {
			minorityRows = append(minorityRows, i)
		}
	}

	rng := rand.New(rand.NewSource(u.Seed))
	out := mat.NewDense(r+need, c, nil)
	outLabels := make([]string, r+need)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(i, j))
		}
		outLabels[i] = labels[i]
	}
	for k := 0; k < need; k++ {
		src := minorityRows[rng.Intn(len(minorityRows))]
		for j := 0; j < c; j++ {
			out.Set(r+k, j, X.At(src, j))
		}
		outLabels[r+k] = minority
	}

	log.GetLoggerWithName("preprocessing").Info("minority class upsampled",
		"minority", minority,
		"added", need,
		log.SamplesKey, r+need,
		log.SeedKey, u.Seed,
	)
	return out, outLabels, nil
}
