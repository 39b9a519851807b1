// Package view derives filtered, sliced and sorted tables for display.
// Every function returns a new table; the input is never modified.
package view

import (
	"errors"
	"fmt"
	"sort"

	"CryptoBoard/internal/model"
)

// ErrTopOutOfRange is returned when N is outside [1, row count].
var ErrTopOutOfRange = errors.New("top n out of range")

// FilterSymbols keeps rows whose symbol is in symbols, in original order.
func FilterSymbols(t model.InstrumentTable, symbols []string) model.InstrumentTable {
	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
	}
	rows := make([]model.InstrumentRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := want[r.Symbol]; ok {
			rows = append(rows, r)
		}
	}
	return t.WithRows(rows)
}

// Top returns the first n rows.
func Top(t model.InstrumentTable, n int) (model.InstrumentTable, error) {
	if n < 1 || n > len(t.Rows) {
		return model.Empty(t.Unit), fmt.Errorf("%w: n=%d, rows=%d", ErrTopOutOfRange, n, len(t.Rows))
	}
	rows := make([]model.InstrumentRow, n)
	copy(rows, t.Rows[:n])
	return t.WithRows(rows), nil
}

// ClampTop bounds n to [1, rows], or 0 for an empty table.
func ClampTop(t model.InstrumentTable, n int) int {
	switch {
	case len(t.Rows) == 0:
		return 0
	case n < 1:
		return 1
	case n > len(t.Rows):
		return len(t.Rows)
	}
	return n
}

// SortByHorizon sorts ascending by the percent change at h. Ties keep
// whatever order sort.Slice leaves them in.
func SortByHorizon(t model.InstrumentTable, h model.Horizon) model.InstrumentTable {
	rows := make([]model.InstrumentRow, len(t.Rows))
	copy(rows, t.Rows)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PercentChange(h) < rows[j].PercentChange(h)
	})
	return t.WithRows(rows)
}

// Symbols returns the sorted, de-duplicated symbols of t.
func Symbols(t model.InstrumentTable) []string {
	seen := make(map[string]struct{}, len(t.Rows))
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	sort.Strings(out)
	return out
}
