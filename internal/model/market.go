package model

import "time"

// Record is one positional entry of the scraped listing array.
type Record []any

// RawListing is the decoded listing array. Index 0 is a header sentinel,
// not an instrument.
type RawListing []Record

// Instruments returns the records after the sentinel.
func (l RawListing) Instruments() []Record {
	if len(l) <= 1 {
		return nil
	}
	return l[1:]
}

// Sentinel returns the header record at index 0, if any.
func (l RawListing) Sentinel() (Record, bool) {
	if len(l) == 0 {
		return nil, false
	}
	return l[0], true
}

// InstrumentRow is one projected instrument, denominated in a single unit.
type InstrumentRow struct {
	Name             string
	Symbol           string
	MarketCap        float64
	PercentChange1h  float64
	PercentChange24h float64
	PercentChange7d  float64
	PercentChange30d float64
	PercentChange90d float64
	Price            float64
	Volume24h        float64
}

// InstrumentTable is the ordered set of rows for one refresh.
type InstrumentTable struct {
	Unit      Unit
	Rows      []InstrumentRow
	FetchedAt time.Time
}

// Len returns the number of rows.
func (t InstrumentTable) Len() int { return len(t.Rows) }

// Empty returns a table with no rows for the given unit.
func Empty(unit Unit) InstrumentTable {
	return InstrumentTable{Unit: unit, Rows: []InstrumentRow{}}
}

// WithRows returns a copy of t holding rows. The receiver is not modified.
func (t InstrumentTable) WithRows(rows []InstrumentRow) InstrumentTable {
	return InstrumentTable{Unit: t.Unit, Rows: rows, FetchedAt: t.FetchedAt}
}

// Columns is the stable column order of every exported table.
var Columns = []string{
	"coin_name",
	"coin_symbol",
	"market_cap",
	"percent_change_1h",
	"percent_change_24h",
	"percent_change_7d",
	"percent_change_30d",
	"percent_change_90d",
	"price",
	"volume_24h",
}

// Numbers returns the eight numeric fields in column order (after name and symbol).
func (r InstrumentRow) Numbers() []float64 {
	return []float64{
		r.MarketCap,
		r.PercentChange1h,
		r.PercentChange24h,
		r.PercentChange7d,
		r.PercentChange30d,
		r.PercentChange90d,
		r.Price,
		r.Volume24h,
	}
}

// PercentChange returns the row's change for horizon h.
func (r InstrumentRow) PercentChange(h Horizon) float64 {
	switch h {
	case Horizon1h:
		return r.PercentChange1h
	case Horizon24h:
		return r.PercentChange24h
	case Horizon7d:
		return r.PercentChange7d
	case Horizon30d:
		return r.PercentChange30d
	case Horizon90d:
		return r.PercentChange90d
	}
	panic("model: unknown horizon " + string(h))
}
