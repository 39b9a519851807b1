// Package export writes instrument tables for download.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"CryptoBoard/internal/model"
)

// ErrHeaderMismatch is returned when a CSV header differs from model.Columns.
var ErrHeaderMismatch = errors.New("csv header mismatch")

// Format is an export file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatParquet:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Filename is the default download name for a table in unit.
func Filename(unit model.Unit, f Format) string {
	return fmt.Sprintf("crypto_%s.%s", strings.ToLower(string(unit)), f)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteCSV writes t with a model.Columns header. Floats use the shortest
// representation that parses back to the same value.
func WriteCSV(w io.Writer, t model.InstrumentTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(model.Columns))
	for i, r := range t.Rows {
		rec[0] = r.Name
		rec[1] = r.Symbol
		for j, v := range r.Numbers() {
			rec[j+2] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader, unit model.Unit) (model.InstrumentTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(model.Columns)

	header, err := cr.Read()
	if err != nil {
		return model.Empty(unit), fmt.Errorf("read header: %w", err)
	}
	for i, col := range model.Columns {
		if header[i] != col {
			return model.Empty(unit), fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i, header[i], col)
		}
	}

	rows := []model.InstrumentRow{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Empty(unit), fmt.Errorf("read line %d: %w", line, err)
		}
		var nums [8]float64
		for j := range nums {
			v, err := strconv.ParseFloat(rec[j+2], 64)
			if err != nil {
				return model.Empty(unit), fmt.Errorf("line %d column %s: %w", line, model.Columns[j+2], err)
			}
			nums[j] = v
		}
		rows = append(rows, model.InstrumentRow{
			Name:             rec[0],
			Symbol:           rec[1],
			MarketCap:        nums[0],
			PercentChange1h:  nums[1],
			PercentChange24h: nums[2],
			PercentChange7d:  nums[3],
			PercentChange30d: nums[4],
			PercentChange90d: nums[5],
			Price:            nums[6],
			Volume24h:        nums[7],
		})
	}
	return model.InstrumentTable{Unit: unit, Rows: rows}, nil
}
