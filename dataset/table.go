// Package dataset holds the raw observation table, the lagged feature table
// derived from it, and the chronological train/test split.
//
// An observation table has one row per timestamp: a date, the raw numeric
// environmental covariates, and the organism abundance count. The feature
// builder turns it into a labeled feature table by shifting covariates back
// in time (lags), shifting the class label forward (a lead, so row t predicts
// the class of period t+shift), and dropping the boundary rows that lose
// values to shifting. Rows are never imputed.
package dataset

import (
	"math"
	"time"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// Canonical column names for the monitoring-station table.
const (
	ColTemperature = "temp"
	ColSalinity    = "salinity"
	ColIrradiance  = "irradiance"
	ColFlow        = "flow"
	ColWindSpeed   = "wind_speed"
	ColWindDir     = "wind_dir"
	ColPressure    = "pressure"
	ColRawCount    = "raw_count"
	ColWeekOfYear  = "week_of_year"
)

// Table is a date-indexed observation table. Rows are sorted ascending by
// date with no duplicates; NewTable enforces both.
type Table struct {
	dates   []time.Time
	columns []string
	numeric map[string][]float64
	catCols []string
	cats    map[string][]string
}

// NewTable creates a Table from parallel column slices. All columns must have
// the same length as dates, and dates must be strictly ascending.
func NewTable(dates []time.Time, numeric map[string][]float64, columns []string) (*Table, error) {
	n := len(dates)
	if n == 0 {
		return nil, bloomErrors.NewModelError("dataset.NewTable", "empty table", bloomErrors.ErrEmptyData)
	}
	for i := 1; i < n; i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, bloomErrors.NewValidationError("dates",
				"must be strictly ascending with no duplicates", dates[i])
		}
	}
	for _, name := range columns {
		col, ok := numeric[name]
		if !ok {
			return nil, bloomErrors.NewValidationError("columns", "column missing from data", name)
		}
		if len(col) != n {
			return nil, bloomErrors.NewDimensionError("dataset.NewTable", n, len(col), 0)
		}
	}

	t := &Table{
		dates:   dates,
		columns: append([]string(nil), columns...),
		numeric: make(map[string][]float64, len(columns)),
		cats:    make(map[string][]string),
	}
	for _, name := range columns {
		t.numeric[name] = append([]float64(nil), numeric[name]...)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the row timestamps.
func (t *Table) Dates() []time.Time { return t.dates }

// Columns returns the numeric column names in order.
func (t *Table) Columns() []string { return t.columns }

// CategoricalColumns returns the categorical column names in order.
func (t *Table) CategoricalColumns() []string { return t.catCols }

// Numeric returns a numeric column by name, or nil if absent.
func (t *Table) Numeric(name string) []float64 { return t.numeric[name] }

// Categorical returns a categorical column by name, or nil if absent.
func (t *Table) Categorical(name string) []string { return t.cats[name] }

// HasColumn reports whether name is a numeric or categorical column.
func (t *Table) HasColumn(name string) bool {
	if _, ok := t.numeric[name]; ok {
		return true
	}
	_, ok := t.cats[name]
	return ok
}

// AddNumeric adds or replaces a numeric column.
func (t *Table) AddNumeric(name string, values []float64) error {
	if len(values) != t.Len() {
		return bloomErrors.NewDimensionError("dataset.AddNumeric", t.Len(), len(values), 0)
	}
	if _, exists := t.numeric[name]; !exists {
		t.columns = append(t.columns, name)
	}
	t.numeric[name] = values
	return nil
}

// AddCategorical adds or replaces a categorical column.
func (t *Table) AddCategorical(name string, values []string) error {
	if len(values) != t.Len() {
		return bloomErrors.NewDimensionError("dataset.AddCategorical", t.Len(), len(values), 0)
	}
	if _, exists := t.cats[name]; !exists {
		t.catCols = append(t.catCols, name)
	}
	t.cats[name] = values
	return nil
}

// DropNumeric removes a numeric column if present.
func (t *Table) DropNumeric(name string) {
	if _, ok := t.numeric[name]; !ok {
		return
	}
	delete(t.numeric, name)
	for i, c := range t.columns {
		if c == name {
			t.columns = append(t.columns[:i], t.columns[i+1:]...)
			break
		}
	}
}

// shiftNumeric shifts a column by n positions. n > 0 lags (row t receives the
// value from t-n), n < 0 leads (row t receives the value from t+|n|). Vacated
// positions are NaN.
func shiftNumeric(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		src := i - n
		if src < 0 || src >= len(values) {
			out[i] = math.NaN()
		} else {
			out[i] = values[src]
		}
	}
	return out
}

// shiftCategorical shifts a categorical column; vacated positions are "".
func shiftCategorical(values []string, n int) []string {
	out := make([]string, len(values))
	for i := range out {
		src := i - n
		if src >= 0 && src < len(values) {
			out[i] = values[src]
		}
	}
	return out
}
