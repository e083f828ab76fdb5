package preprocessing_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ezoic/bloomcast/dataset"
	"github.com/ezoic/bloomcast/preprocessing"
)

// buildFeatureTable builds a synthetic labeled feature table with n rows
// surviving shifting. Flow and irradiance stay strictly positive so the log
// chain fits.
func buildFeatureTable(t *testing.T, days int) *dataset.FeatureTable {
	t.Helper()

	start := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, days)
	temp := make([]float64, days)
	sal := make([]float64, days)
	irr := make([]float64, days)
	flow := make([]float64, days)
	wspd := make([]float64, days)
	wdir := make([]float64, days)
	pres := make([]float64, days)
	count := make([]float64, days)

	for i := 0; i < days; i++ {
		dates[i] = start.AddDate(0, 0, i)
		temp[i] = 12 + 6*math.Sin(float64(i)/15)
		sal[i] = 28 + 2*math.Cos(float64(i)/11)
		irr[i] = 120 + 80*math.Sin(float64(i)/9)
		flow[i] = 60 + 25*math.Sin(float64(i)/20)
		wspd[i] = 4 + 3*math.Sin(float64(i)/6)
		wdir[i] = float64((i * 23) % 360)
		pres[i] = 1012 + 4*math.Sin(float64(i)/30)
		// High counts cluster where flow is low.
		if flow[i] < 55 {
			count[i] = 9000
		} else {
			count[i] = 400
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
	require.NoError(t, err)

	ft, err := dataset.BuildFeatures(tbl, dataset.DefaultFeatureConfig())
	require.NoError(t, err)
	return ft
}

func TestPipelineZScoreRoundTrip(t *testing.T) {
	ft := buildFeatureTable(t, 300)
	train, _, err := dataset.TemporalSplit(ft, 0.9)
	require.NoError(t, err)

	p := preprocessing.NewPipeline(preprocessing.WithPipelineSeed(11))
	require.NoError(t, p.Fit(train))

	// Transform (no upsampling) of the training subset must reproduce
	// mean 0, std 1 per numeric predictor.
	tr, err := p.Transform(train)
	require.NoError(t, err)

	r, _ := tr.X.Dims()
	for j := 0; j < 4; j++ { // four numeric predictors precede the dummies
		mean := 0.0
		for i := 0; i < r; i++ {
			mean += tr.X.At(i, j)
		}
		mean /= float64(r)

		variance := 0.0
		for i := 0; i < r; i++ {
			d := tr.X.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(r)

		require.InDelta(t, 0.0, mean, 1e-9, "column %d mean", j)
		require.InDelta(t, 1.0, math.Sqrt(variance), 1e-9, "column %d std", j)
	}
}

func TestPipelineApplyIdempotent(t *testing.T) {
	ft := buildFeatureTable(t, 200)
	train, test, err := dataset.TemporalSplit(ft, 0.8)
	require.NoError(t, err)

	p := preprocessing.NewPipeline(preprocessing.WithPipelineSeed(5))
	require.NoError(t, p.Fit(train))

	a, err := p.Transform(test)
	require.NoError(t, err)
	b, err := p.Transform(test)
	require.NoError(t, err)

	require.Equal(t, a.FeatureNames, b.FeatureNames)
	ra, ca := a.X.Dims()
	rb, cb := b.X.Dims()
	require.Equal(t, ra, rb)
	require.Equal(t, ca, cb)
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			require.Equal(t, a.X.At(i, j), b.X.At(i, j), "cell [%d][%d]", i, j)
		}
	}
}

func TestPipelineUpsamplesTrainOnly(t *testing.T) {
	ft := buildFeatureTable(t, 300)
	train, test, err := dataset.TemporalSplit(ft, 0.9)
	require.NoError(t, err)

	p := preprocessing.NewPipeline(
		preprocessing.WithPipelineSeed(3),
		preprocessing.WithUpsampleRatio(0.9),
	)

	tr, err := p.FitTransform(train)
	require.NoError(t, err)
	te, err := p.Transform(test)
	require.NoError(t, err)

	trRows, _ := tr.X.Dims()
	require.Greater(t, trRows, train.Len(), "training subset should gain upsampled rows")

	// Test row count and class balance stay natural.
	teRows, _ := te.X.Dims()
	require.Equal(t, test.Len(), teRows)
	wantHigh := 0
	for _, l := range test.Labels {
		if l == dataset.LabelHigh {
			wantHigh++
		}
	}
	gotHigh := 0
	for _, l := range te.Labels {
		if l == dataset.LabelHigh {
			gotHigh++
		}
	}
	require.Equal(t, wantHigh, gotHigh)
}

func TestPipelineUnseenSectorZeroEncoded(t *testing.T) {
	ft := buildFeatureTable(t, 250)
	train, test, err := dataset.TemporalSplit(ft, 0.85)
	require.NoError(t, err)

	// Force a sector into test that training never saw.
	testSectors := test.Categorical(dataset.ColWindDir)
	trainSectors := train.Categorical(dataset.ColWindDir)
	seen := make(map[string]bool)
	for _, s := range trainSectors {
		seen[s] = true
	}
	// Overwrite every test sector with a token absent from training.
	for i := range testSectors {
		testSectors[i] = "CALM"
	}
	require.False(t, seen["CALM"])

	p := preprocessing.NewPipeline(preprocessing.WithPipelineSeed(9))
	require.NoError(t, p.Fit(train))

	te, err := p.Transform(test)
	require.NoError(t, err, "unseen category must not fail")

	// Dummy block is all zeros.
	_, c := te.X.Dims()
	for i := 0; i < len(te.Labels); i++ {
		sum := 0.0
		for j := 4; j < c; j++ {
			sum += te.X.At(i, j)
		}
		require.Zero(t, sum, "row %d dummy block", i)
	}
}

func TestPipelineNotFitted(t *testing.T) {
	ft := buildFeatureTable(t, 100)
	p := preprocessing.NewPipeline()
	_, err := p.Transform(ft)
	require.Error(t, err)
}
