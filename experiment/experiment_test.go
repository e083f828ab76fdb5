package experiment_test

import (
	"math"
	"testing"
	"time"

	"github.com/ezoic/bloomcast/classifier"
	"github.com/ezoic/bloomcast/dataset"
	"github.com/ezoic/bloomcast/experiment"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// makeBloomTable builds n daily rows where the cell count tracks a
// sinusoidal flow signal, so the lagged covariates genuinely predict the
// label.
func makeBloomTable(t *testing.T, n int) *dataset.Table {
	t.Helper()

	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	temp := make([]float64, n)
	sal := make([]float64, n)
	irr := make([]float64, n)
	flow := make([]float64, n)
	wspd := make([]float64, n)
	wdir := make([]float64, n)
	pres := make([]float64, n)
	count := make([]float64, n)

	for i := 0; i < n; i++ {
		dates[i] = start.AddDate(0, 0, i)
		phase := float64(i) / 20
		flow[i] = 50 + 10*math.Sin(phase)
		temp[i] = 15 + 3*math.Sin(phase+0.5)
		sal[i] = 31 + 0.5*math.Cos(phase)
		irr[i] = 150 + 40*math.Sin(phase-0.3)
		wspd[i] = 5 + 2*math.Cos(phase)
		wdir[i] = float64((i * 23) % 360)
		pres[i] = 1012 + 3*math.Sin(phase/2)
		if flow[i] >= 50 {
			count[i] = 9000
		} else {
			count[i] = 200
		}
	}

	tbl, err := dataset.NewTable(dates, map[string][]float64{
		dataset.ColTemperature: temp,
		dataset.ColSalinity:    sal,
		dataset.ColIrradiance:  irr,
		dataset.ColFlow:        flow,
		dataset.ColWindSpeed:   wspd,
		dataset.ColWindDir:     wdir,
		dataset.ColPressure:    pres,
		dataset.ColRawCount:    count,
	}, []string{
		dataset.ColTemperature, dataset.ColSalinity, dataset.ColIrradiance,
		dataset.ColFlow, dataset.ColWindSpeed, dataset.ColWindDir,
		dataset.ColPressure, dataset.ColRawCount,
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return tbl
}

func smallForestConfig() experiment.Config {
	cfg := experiment.DefaultConfig()
	cfg.Forest.Trees = 25
	return cfg
}

func TestRunReproducibleConfusionMatrix(t *testing.T) {
	tbl := makeBloomTable(t, 1004)
	cfg := smallForestConfig()

	r1, err := experiment.Run(tbl, cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	r2, err := experiment.Run(tbl, cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if *r1.Test.Confusion != *r2.Test.Confusion {
		t.Errorf("test confusion matrices differ across seeded runs:\n%v\n%v",
			r1.Test.Confusion, r2.Test.Confusion)
	}
	if *r1.CV.Confusion != *r2.CV.Confusion {
		t.Errorf("CV confusion matrices differ across seeded runs:\n%v\n%v",
			r1.CV.Confusion, r2.CV.Confusion)
	}
}

func TestRunSplitSizes(t *testing.T) {
	// 1004 raw rows, max lag 3 + one-step lead = 1000 feature rows,
	// split 900/100 at row 900.
	tbl := makeBloomTable(t, 1004)

	res, err := experiment.Run(tbl, smallForestConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.TestDates) != 100 {
		t.Fatalf("expected 100 test predictions, got %d", len(res.TestDates))
	}
	if res.Test.Confusion.Total() != 100 {
		t.Errorf("expected confusion over 100 rows, got %d", res.Test.Confusion.Total())
	}
	if res.TestFeatures.Len() != 100 {
		t.Errorf("expected 100-row test feature table, got %d", res.TestFeatures.Len())
	}

	// Predictions stay chronological and aligned with their counts.
	for i := 1; i < len(res.TestDates); i++ {
		if !res.TestDates[i].After(res.TestDates[i-1]) {
			t.Fatal("test dates must be strictly ascending")
		}
	}
	for i, c := range res.TestCounts {
		if c != 9000 && c != 200 {
			t.Fatalf("test count %d has unexpected value %f", i, c)
		}
	}
}

func TestRunLearnsSignal(t *testing.T) {
	tbl := makeBloomTable(t, 1004)

	res, err := experiment.Run(tbl, smallForestConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The label is a deterministic function of lagged covariates, so the
	// forest should beat a coin flip comfortably.
	if acc := res.Test.Metrics["accuracy"]; acc < 0.7 {
		t.Errorf("expected test accuracy above 0.7, got %f", acc)
	}
	if res.Test.AUC < 0.7 {
		t.Errorf("expected AUC above 0.7, got %f", res.Test.AUC)
	}
}

func TestRunWithGridSearch(t *testing.T) {
	tbl := makeBloomTable(t, 504)

	cfg := smallForestConfig()
	cfg.Search.Enabled = true
	cfg.Search.Space = map[string][]interface{}{"trees": {10, 20}}

	res, err := experiment.Run(tbl, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Search == nil {
		t.Fatal("expected a search result")
	}
	if res.Search.Evaluated != 2 {
		t.Errorf("expected 2 evaluated candidates, got %d", res.Search.Evaluated)
	}
	if _, ok := res.Search.BestParams["trees"]; !ok {
		t.Error("best params missing trees")
	}
	if res.Model == nil || res.Test == nil {
		t.Fatal("search run must still produce a final model and evaluation")
	}
}

func TestRunBaggedTrees(t *testing.T) {
	tbl := makeBloomTable(t, 504)

	cfg := experiment.DefaultConfig()
	cfg.Family = classifier.FamilyBaggedTrees
	cfg.Bagging.Bags = 15

	res, err := experiment.Run(tbl, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Test.Confusion.Total() != 50 {
		t.Errorf("expected 50 test rows, got %d", res.Test.Confusion.Total())
	}
}

func TestRunNeuralNet(t *testing.T) {
	tbl := makeBloomTable(t, 504)

	cfg := experiment.DefaultConfig()
	cfg.Family = classifier.FamilyNeuralNet
	cfg.NeuralNet.HiddenUnits = 4
	cfg.NeuralNet.Epochs = 30

	res, err := experiment.Run(tbl, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, p := range res.Test.Probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			t.Fatalf("invalid probability at row %d: %f", i, p)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*experiment.Config)
	}{
		{"zero threshold", func(c *experiment.Config) { c.Threshold = 0 }},
		{"bad fraction", func(c *experiment.Config) { c.TrainFraction = 1 }},
		{"bad ratio", func(c *experiment.Config) { c.UpsampleRatio = 1.5 }},
		{"one fold", func(c *experiment.Config) { c.Folds = 1 }},
		{"unknown family", func(c *experiment.Config) { c.Family = "svm" }},
		{"zero label shift", func(c *experiment.Config) { c.LabelShift = 0 }},
		{"empty search space", func(c *experiment.Config) { c.Search.Enabled = true }},
	}
	for _, tc := range cases {
		cfg := experiment.DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		var valErr *bloomErrors.ValidationError
		if !bloomErrors.As(err, &valErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}
