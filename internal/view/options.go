package view

import "CryptoBoard/internal/model"

// Options selects the board shown to the user. Zero values disable a step.
type Options struct {
	Symbols []string
	TopN    int
	SortBy  model.Horizon
	Chart   model.Horizon
}

// Board is the table and chart series ready to render.
type Board struct {
	Table  model.InstrumentTable
	Signs  []SignRow
	Series []Bar
}

// Apply filters by symbol, keeps the first TopN rows (bounded to the
// available rows) and sorts by horizon, in that order.
func (o Options) Apply(t model.InstrumentTable) Board {
	if len(o.Symbols) > 0 {
		t = FilterSymbols(t, o.Symbols)
	}
	if o.TopN > 0 && len(t.Rows) > 0 {
		// ClampTop keeps n inside [1, rows], so Top cannot fail here.
		t, _ = Top(t, ClampTop(t, o.TopN))
	}
	if o.SortBy != "" {
		t = SortByHorizon(t, o.SortBy)
	}
	b := Board{Table: t, Signs: ChangeSigns(t)}
	if o.Chart != "" {
		b.Series = Chart(t, o.Chart)
	}
	return b
}
