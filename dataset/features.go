package dataset

import (
	"math"
	"time"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// Class labels for the bloom target.
const (
	LabelHigh = "high"
	LabelLow  = "low"
)

// LagSpec maps a covariate name to an integer shift count. Positive values
// lag (look back), negative values lead (look ahead), zero leaves the column
// in place. Covariates absent from the map are not shifted.
type LagSpec map[string]int

// DefaultLags returns the lag specification used for behavioral parity with
// the reference experiment.
func DefaultLags() LagSpec {
	return LagSpec{
		ColTemperature: 1,
		ColSalinity:    1,
		ColIrradiance:  0,
		ColFlow:        2,
		ColWindSpeed:   3,
		ColWindDir:     3,
		ColPressure:    0,
	}
}

// FeatureConfig controls feature building.
type FeatureConfig struct {
	// Lags is the per-covariate shift specification.
	Lags LagSpec

	// Threshold is the cell-count cutoff separating high from low.
	Threshold float64

	// LabelShift is the lead applied to the class label: the label for row t
	// is derived from the count observed at row t+LabelShift. Week-of-year is
	// led by the same amount so it reflects the target period.
	LabelShift int
}

// DefaultFeatureConfig returns the reference configuration: default lags,
// count threshold 5000, label lead 1.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{Lags: DefaultLags(), Threshold: 5000, LabelShift: 1}
}

// FeatureTable is the labeled feature table produced by BuildFeatures. Every
// row has a fully defined shifted covariate set; boundary rows that lost
// values to shifting have been dropped.
type FeatureTable struct {
	// Dates are the covariate-period timestamps of the surviving rows.
	Dates []time.Time

	// Labels holds the led class label per row (LabelHigh or LabelLow).
	Labels []string

	// TargetCount holds the raw abundance the label was derived from, led by
	// the same shift as the label. Kept for diagnostics.
	TargetCount []float64

	columns []string
	numeric map[string][]float64
	catCols []string
	cats    map[string][]string
}

// Len returns the number of rows.
func (ft *FeatureTable) Len() int { return len(ft.Dates) }

// Columns returns the numeric covariate names in order.
func (ft *FeatureTable) Columns() []string { return ft.columns }

// CategoricalColumns returns the categorical covariate names in order.
func (ft *FeatureTable) CategoricalColumns() []string { return ft.catCols }

// Numeric returns a numeric covariate column by name, or nil if absent.
func (ft *FeatureTable) Numeric(name string) []float64 { return ft.numeric[name] }

// Categorical returns a categorical covariate column by name, or nil if absent.
func (ft *FeatureTable) Categorical(name string) []string { return ft.cats[name] }

// Slice returns a copy of rows [from, to) as a new FeatureTable.
func (ft *FeatureTable) Slice(from, to int) *FeatureTable {
	out := &FeatureTable{
		Dates:       append([]time.Time(nil), ft.Dates[from:to]...),
		Labels:      append([]string(nil), ft.Labels[from:to]...),
		TargetCount: append([]float64(nil), ft.TargetCount[from:to]...),
		columns:     append([]string(nil), ft.columns...),
		numeric:     make(map[string][]float64, len(ft.columns)),
		catCols:     append([]string(nil), ft.catCols...),
		cats:        make(map[string][]string, len(ft.catCols)),
	}
	for _, c := range ft.columns {
		out.numeric[c] = append([]float64(nil), ft.numeric[c][from:to]...)
	}
	for _, c := range ft.catCols {
		out.cats[c] = append([]string(nil), ft.cats[c][from:to]...)
	}
	return out
}

// WindDirSector discretizes a wind direction in degrees into an 8-point
// compass sector. NaN maps to the empty string (missing).
func WindDirSector(degrees float64) string {
	if math.IsNaN(degrees) {
		return ""
	}
	sectors := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Floor((deg+22.5)/45.0)) % 8
	return sectors[idx]
}

// BuildFeatures derives the labeled feature table from a raw observation
// table.
//
// The class label is computed from raw_count against cfg.Threshold before any
// shifting, then led by cfg.LabelShift together with week-of-year and the
// target count. Covariates are shifted per cfg.Lags. Wind direction, if
// present as degrees, is discretized into compass sectors before shifting.
// Rows without a fully defined shifted value set are dropped.
func BuildFeatures(tbl *Table, cfg FeatureConfig) (ft *FeatureTable, err error) {
	defer bloomErrors.Recover(&err, "dataset.BuildFeatures")

	logger := log.GetLoggerWithName("dataset").With(log.StageKey, "feature_builder")

	if cfg.LabelShift < 0 {
		return nil, bloomErrors.NewValidationError("label_shift", "must be non-negative", cfg.LabelShift)
	}
	raw := tbl.Numeric(ColRawCount)
	if raw == nil {
		return nil, bloomErrors.NewValueError("dataset.BuildFeatures", "table has no raw_count column")
	}
	n := tbl.Len()

	// Label before its own shift.
	labels := make([]string, n)
	for i, c := range raw {
		if math.IsNaN(c) {
			labels[i] = ""
		} else if c >= cfg.Threshold {
			labels[i] = LabelHigh
		} else {
			labels[i] = LabelLow
		}
	}

	// Week-of-year gets the same lead as the label: it describes the target
	// period, not the covariate period.
	week := make([]float64, n)
	for i, d := range tbl.Dates() {
		_, w := d.ISOWeek()
		week[i] = float64(w)
	}

	shiftedLabels := shiftCategorical(labels, -cfg.LabelShift)
	shiftedCount := shiftNumeric(raw, -cfg.LabelShift)
	shiftedWeek := shiftNumeric(week, -cfg.LabelShift)

	// Shift covariates per the lag spec. Wind direction is discretized into
	// sectors first so the lag applies to the categorical series.
	numeric := make(map[string][]float64)
	var columns []string
	var windSectors []string

	for _, name := range tbl.Columns() {
		if name == ColRawCount {
			continue
		}
		shift := cfg.Lags[name]
		if name == ColWindDir {
			sectors := make([]string, n)
			for i, deg := range tbl.Numeric(name) {
				sectors[i] = WindDirSector(deg)
			}
			windSectors = shiftCategorical(sectors, shift)
			continue
		}
		columns = append(columns, name)
		numeric[name] = shiftNumeric(tbl.Numeric(name), shift)
	}
	columns = append(columns, ColWeekOfYear)
	numeric[ColWeekOfYear] = shiftedWeek

	// Keep only rows with a complete shifted value set.
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if shiftedLabels[i] == "" || math.IsNaN(shiftedCount[i]) {
			continue
		}
		complete := true
		for _, name := range columns {
			if math.IsNaN(numeric[name][i]) {
				complete = false
				break
			}
		}
		if complete && windSectors != nil && windSectors[i] == "" {
			complete = false
		}
		if complete {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, bloomErrors.NewInsufficientDataError("dataset.BuildFeatures", 1, 0)
	}

	ft = &FeatureTable{
		Dates:       make([]time.Time, len(keep)),
		Labels:      make([]string, len(keep)),
		TargetCount: make([]float64, len(keep)),
		columns:     columns,
		numeric:     make(map[string][]float64, len(columns)),
	}
	for _, name := range columns {
		ft.numeric[name] = make([]float64, len(keep))
	}
	if windSectors != nil {
		ft.catCols = []string{ColWindDir}
		ft.cats = map[string][]string{ColWindDir: make([]string, len(keep))}
	}

	dates := tbl.Dates()
	for out, i := range keep {
		ft.Dates[out] = dates[i]
		ft.Labels[out] = shiftedLabels[i]
		ft.TargetCount[out] = shiftedCount[i]
		for _, name := range columns {
			ft.numeric[name][out] = numeric[name][i]
		}
		if windSectors != nil {
			ft.cats[ColWindDir][out] = windSectors[i]
		}
	}

	logger.Info("feature table built",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, ft.Len(),
		"dropped", n-ft.Len(),
		log.FeaturesKey, len(columns)+len(ft.catCols),
	)
	return ft, nil
}
