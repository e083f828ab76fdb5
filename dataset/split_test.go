package dataset_test

import (
	"errors"
	"testing"

	"github.com/ezoic/bloomcast/dataset"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

func TestTemporalSplitNinetyTen(t *testing.T) {
	tbl := makeDailyTable(t, 1004)
	ft, err := dataset.BuildFeatures(tbl, dataset.DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("BuildFeatures failed: %v", err)
	}
	if ft.Len() != 1000 {
		t.Fatalf("expected 1000 feature rows, got %d", ft.Len())
	}

	train, test, err := dataset.TemporalSplit(ft, 0.9)
	if err != nil {
		t.Fatalf("TemporalSplit failed: %v", err)
	}

	// Cut at row 900, not by random sampling.
	if train.Len() != 900 || test.Len() != 100 {
		t.Fatalf("expected 900/100 split, got %d/%d", train.Len(), test.Len())
	}

	// Partition: union preserves every row in order, no overlap.
	for i := 0; i < train.Len(); i++ {
		if !train.Dates[i].Equal(ft.Dates[i]) {
			t.Fatalf("train row %d date mismatch", i)
		}
	}
	for i := 0; i < test.Len(); i++ {
		if !test.Dates[i].Equal(ft.Dates[train.Len()+i]) {
			t.Fatalf("test row %d date mismatch", i)
		}
	}

	// No temporal leakage.
	if !train.Dates[train.Len()-1].Before(test.Dates[0]) {
		t.Error("max(train date) must be before min(test date)")
	}
}

func TestTemporalSplitInvalidFraction(t *testing.T) {
	tbl := makeDailyTable(t, 30)
	ft, err := dataset.BuildFeatures(tbl, dataset.DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("BuildFeatures failed: %v", err)
	}

	for _, p := range []float64{0, 1, -0.5, 1.5, 0.001} {
		_, _, err := dataset.TemporalSplit(ft, p)
		var se *bloomErrors.SplitError
		if !errors.As(err, &se) {
			t.Errorf("fraction %v: expected SplitError, got %v", p, err)
		}
	}
}

func TestTemporalSplitIndependentCopies(t *testing.T) {
	tbl := makeDailyTable(t, 40)
	ft, err := dataset.BuildFeatures(tbl, dataset.DefaultFeatureConfig())
	if err != nil {
		t.Fatalf("BuildFeatures failed: %v", err)
	}

	train, _, err := dataset.TemporalSplit(ft, 0.5)
	if err != nil {
		t.Fatalf("TemporalSplit failed: %v", err)
	}

	orig := ft.Numeric(dataset.ColTemperature)[0]
	train.Numeric(dataset.ColTemperature)[0] = -999
	if ft.Numeric(dataset.ColTemperature)[0] != orig {
		t.Error("mutating a split subset must not touch the source table")
	}
}
