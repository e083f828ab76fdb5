package main

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ezoic/bloomcast/dataset"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

// csvColumns is the expected header, in order after the date column.
var csvColumns = []string{
	dataset.ColTemperature, dataset.ColSalinity, dataset.ColIrradiance,
	dataset.ColFlow, dataset.ColWindSpeed, dataset.ColWindDir,
	dataset.ColPressure, dataset.ColRawCount,
}

const dateLayout = "2006-01-02"

// loadTable reads a daily-observation CSV into a dataset.Table. The header
// names columns; order beyond the leading date column does not matter.
// Empty cells become NaN and are dropped downstream by the pipeline.
func loadTable(path string) (*dataset.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, bloomErrors.Wrap(err, "open input")
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, bloomErrors.Wrap(err, "read input")
	}
	if len(records) < 2 {
		return nil, bloomErrors.NewValueError("loadTable", "input has no data rows")
	}

	header := records[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	dateIdx, ok := colIndex["date"]
	if !ok {
		return nil, bloomErrors.NewValueError("loadTable", "input missing date column")
	}
	for _, name := range csvColumns {
		if _, ok := colIndex[name]; !ok {
			return nil, bloomErrors.NewValueError("loadTable", "input missing column "+name)
		}
	}

	rows := records[1:]
	dates := make([]time.Time, len(rows))
	columns := make(map[string][]float64, len(csvColumns))
	for _, name := range csvColumns {
		columns[name] = make([]float64, len(rows))
	}

	for i, row := range rows {
		d, err := time.Parse(dateLayout, strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return nil, bloomErrors.Wrap(err, "parse date at row "+strconv.Itoa(i+2))
		}
		dates[i] = d

		for _, name := range csvColumns {
			cell := strings.TrimSpace(row[colIndex[name]])
			if cell == "" {
				columns[name][i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, bloomErrors.Wrap(err, "parse "+name+" at row "+strconv.Itoa(i+2))
			}
			columns[name][i] = v
		}
	}

	return dataset.NewTable(dates, columns, csvColumns)
}
