package view

import "CryptoBoard/internal/model"

// SignRow carries the "is positive" flag of each horizon for one symbol.
// It only selects a color band when rendering.
type SignRow struct {
	Symbol      string
	Positive1h  bool
	Positive24h bool
	Positive7d  bool
	Positive30d bool
	Positive90d bool
}

// Positive reports the flag for horizon h.
func (s SignRow) Positive(h model.Horizon) bool {
	switch h {
	case model.Horizon1h:
		return s.Positive1h
	case model.Horizon24h:
		return s.Positive24h
	case model.Horizon7d:
		return s.Positive7d
	case model.Horizon30d:
		return s.Positive30d
	case model.Horizon90d:
		return s.Positive90d
	}
	panic("view: unknown horizon " + string(h))
}

// ChangeSigns derives the sign table. Zero is not positive.
func ChangeSigns(t model.InstrumentTable) []SignRow {
	out := make([]SignRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, SignRow{
			Symbol:      r.Symbol,
			Positive1h:  r.PercentChange1h > 0,
			Positive24h: r.PercentChange24h > 0,
			Positive7d:  r.PercentChange7d > 0,
			Positive30d: r.PercentChange30d > 0,
			Positive90d: r.PercentChange90d > 0,
		})
	}
	return out
}

// Bar is one bar of the change chart.
type Bar struct {
	Symbol   string
	Value    float64
	Positive bool
}

// Chart returns the bar series for horizon h in table order.
func Chart(t model.InstrumentTable, h model.Horizon) []Bar {
	out := make([]Bar, 0, len(t.Rows))
	for _, r := range t.Rows {
		v := r.PercentChange(h)
		out = append(out, Bar{Symbol: r.Symbol, Value: v, Positive: v > 0})
	}
	return out
}
