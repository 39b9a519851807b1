// Package projector turns a raw positional listing into an instrument table.
package projector

import (
	"encoding/json"
	"errors"
	"fmt"

	"CryptoBoard/internal/model"
)

// ErrSchemaMismatch is matched by every ProjectionError.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ProjectionError reports a record that does not fit the FieldIndexMap.
// Row is the listing index of the record, or -1 when the map itself
// cannot serve the unit.
type ProjectionError struct {
	Row   int
	Field string
	Err   error
}

func (e *ProjectionError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("project field %s: %v: %v", e.Field, ErrSchemaMismatch, e.Err)
	}
	return fmt.Sprintf("project row %d field %s: %v: %v", e.Row, e.Field, ErrSchemaMismatch, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }

func (e *ProjectionError) Is(target error) bool { return target == ErrSchemaMismatch }

func mismatch(row int, field string, err error) *ProjectionError {
	return &ProjectionError{Row: row, Field: field, Err: err}
}

// Project skips the sentinel and projects every remaining record into a
// row denominated in unit. Any record that does not fit fails the whole
// projection; partial tables are never returned.
func Project(listing model.RawListing, unit model.Unit, fields FieldIndexMap) (model.InstrumentTable, error) {
	l, err := fields.resolve(unit)
	if err != nil {
		return model.Empty(unit), err
	}

	records := listing.Instruments()
	rows := make([]model.InstrumentRow, 0, len(records))
	for i, rec := range records {
		row, err := projectRecord(rec, i+1, unit, l)
		if err != nil {
			return model.Empty(unit), err
		}
		rows = append(rows, row)
	}
	return model.InstrumentTable{Unit: unit, Rows: rows}, nil
}

// ProjectUnit is Project for a unit given as a selector string. An
// unsupported unit is a schema mismatch.
func ProjectUnit(listing model.RawListing, unit string, fields FieldIndexMap) (model.InstrumentTable, error) {
	return Project(listing, model.Unit(unit), fields)
}

func projectRecord(rec model.Record, row int, unit model.Unit, l layout) (model.InstrumentRow, error) {
	var (
		out model.InstrumentRow
		err error
	)
	if out.Name, err = stringAt(rec, row, model.FieldSlug, l.slug); err != nil {
		return out, err
	}
	if out.Symbol, err = stringAt(rec, row, model.FieldSymbol, l.symbol); err != nil {
		return out, err
	}

	dst := []*float64{
		&out.MarketCap,
		&out.PercentChange1h,
		&out.PercentChange24h,
		&out.PercentChange7d,
		&out.PercentChange30d,
		&out.PercentChange90d,
		&out.Price,
		&out.Volume24h,
	}
	for j, metric := range model.QuoteMetrics() {
		v, err := numberAt(rec, row, model.QuoteKey(unit, metric), l.quote[j])
		if err != nil {
			return out, err
		}
		*dst[j] = v
	}
	return out, nil
}

func valueAt(rec model.Record, row int, field string, idx int) (any, error) {
	if idx >= len(rec) {
		return nil, mismatch(row, field, fmt.Errorf("index %d out of range for record of length %d", idx, len(rec)))
	}
	return rec[idx], nil
}

func stringAt(rec model.Record, row int, field string, idx int) (string, error) {
	v, err := valueAt(rec, row, field, idx)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(row, field, fmt.Errorf("value at %d is %T, want string", idx, v))
	}
	return s, nil
}

func numberAt(rec model.Record, row int, field string, idx int) (float64, error) {
	v, err := valueAt(rec, row, field, idx)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, mismatch(row, field, err)
		}
		return f, nil
	default:
		return 0, mismatch(row, field, fmt.Errorf("value at %d is %T, want number", idx, v))
	}
}
