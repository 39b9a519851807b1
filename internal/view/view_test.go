package view_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/view"
)

func sampleTable() model.InstrumentTable {
	return model.InstrumentTable{
		Unit: model.UnitUSD,
		Rows: []model.InstrumentRow{
			{Name: "bitcoin", Symbol: "BTC", PercentChange1h: 0.1, PercentChange24h: -2.5, PercentChange7d: 4, Price: 50000},
			{Name: "ethereum", Symbol: "ETH", PercentChange1h: -0.3, PercentChange24h: 1.2, PercentChange7d: 0, Price: 3000},
			{Name: "tether", Symbol: "USDT", PercentChange1h: 0, PercentChange24h: 0, PercentChange7d: -0.01, Price: 1},
			{Name: "solana", Symbol: "SOL", PercentChange1h: 1.1, PercentChange24h: 5.5, PercentChange7d: -8, Price: 150},
		},
	}
}

func symbols(t model.InstrumentTable) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Symbol)
	}
	return out
}

func TestFilterSymbols(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		symbols []string
		want    []string
	}{
		{"keeps table order", []string{"SOL", "BTC"}, []string{"BTC", "SOL"}},
		{"unknown symbols ignored", []string{"DOGE", "ETH"}, []string{"ETH"}},
		{"empty selection", nil, []string{}},
		{"duplicates in selection", []string{"USDT", "USDT"}, []string{"USDT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := view.FilterSymbols(sampleTable(), tt.symbols)
			require.Equal(t, tt.want, symbols(got))
			require.Equal(t, model.UnitUSD, got.Unit)

			// Filtering twice changes nothing.
			again := view.FilterSymbols(got, tt.symbols)
			require.Equal(t, got.Rows, again.Rows)
		})
	}
}

func TestTop(t *testing.T) {
	t.Parallel()

	in := sampleTable()
	for n := 1; n <= len(in.Rows); n++ {
		got, err := view.Top(in, n)
		require.NoError(t, err)
		require.Len(t, got.Rows, n)
		require.Equal(t, in.Rows[:n], got.Rows)
	}

	for _, n := range []int{0, -1, len(in.Rows) + 1} {
		got, err := view.Top(in, n)
		require.ErrorIs(t, err, view.ErrTopOutOfRange)
		require.Empty(t, got.Rows)
	}

	_, err := view.Top(model.Empty(model.UnitUSD), 1)
	require.ErrorIs(t, err, view.ErrTopOutOfRange)
}

func TestTopDoesNotAlias(t *testing.T) {
	t.Parallel()

	in := sampleTable()
	got, err := view.Top(in, 2)
	require.NoError(t, err)
	got.Rows[0].Symbol = "XXX"
	require.Equal(t, "BTC", in.Rows[0].Symbol)
}

func TestClampTop(t *testing.T) {
	t.Parallel()

	in := sampleTable()
	require.Equal(t, 1, view.ClampTop(in, -5))
	require.Equal(t, 3, view.ClampTop(in, 3))
	require.Equal(t, 4, view.ClampTop(in, 100))
	require.Equal(t, 0, view.ClampTop(model.Empty(model.UnitBTC), 10))
}

func TestSortByHorizon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		h    model.Horizon
		want []string
	}{
		{model.Horizon1h, []string{"ETH", "USDT", "BTC", "SOL"}},
		{model.Horizon24h, []string{"BTC", "USDT", "ETH", "SOL"}},
		{model.Horizon7d, []string{"SOL", "USDT", "ETH", "BTC"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.h), func(t *testing.T) {
			t.Parallel()
			in := sampleTable()
			got := view.SortByHorizon(in, tt.h)
			require.Equal(t, tt.want, symbols(got))
			// The input keeps its order.
			require.Equal(t, []string{"BTC", "ETH", "USDT", "SOL"}, symbols(in))
		})
	}
}

func TestChangeSigns(t *testing.T) {
	t.Parallel()

	signs := view.ChangeSigns(sampleTable())
	require.Len(t, signs, 4)

	require.Equal(t, "BTC", signs[0].Symbol)
	require.True(t, signs[0].Positive1h)
	require.False(t, signs[0].Positive24h)
	require.True(t, signs[0].Positive7d)

	// Exactly zero is not positive.
	require.False(t, signs[1].Positive7d)
	require.False(t, signs[2].Positive1h)
	require.False(t, signs[2].Positive24h)
	require.False(t, signs[2].Positive30d)
	require.False(t, signs[2].Positive90d)

	for i, r := range sampleTable().Rows {
		for _, h := range model.Horizons() {
			require.Equal(t, r.PercentChange(h) > 0, signs[i].Positive(h), "%s %s", r.Symbol, h)
		}
	}
}

func TestSymbols(t *testing.T) {
	t.Parallel()

	in := sampleTable()
	in.Rows = append(in.Rows, model.InstrumentRow{Symbol: "BTC"})
	require.Equal(t, []string{"BTC", "ETH", "SOL", "USDT"}, view.Symbols(in))
	require.Empty(t, view.Symbols(model.Empty(model.UnitUSD)))
}

func TestChart(t *testing.T) {
	t.Parallel()

	bars := view.Chart(sampleTable(), model.Horizon24h)
	require.Equal(t, []view.Bar{
		{Symbol: "BTC", Value: -2.5, Positive: false},
		{Symbol: "ETH", Value: 1.2, Positive: true},
		{Symbol: "USDT", Value: 0, Positive: false},
		{Symbol: "SOL", Value: 5.5, Positive: true},
	}, bars)
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	opts := view.Options{
		Symbols: []string{"BTC", "ETH", "SOL"},
		TopN:    2,
		SortBy:  model.Horizon24h,
		Chart:   model.Horizon7d,
	}
	board := opts.Apply(sampleTable())

	// Filter keeps BTC, ETH, SOL; top 2 keeps BTC, ETH; sort by 24h puts BTC first.
	require.Equal(t, []string{"BTC", "ETH"}, symbols(board.Table))
	require.Len(t, board.Signs, 2)
	require.Len(t, board.Series, 2)
	require.Equal(t, 4.0, board.Series[0].Value)

	// TopN beyond the row count shows everything.
	board = view.Options{TopN: 50}.Apply(sampleTable())
	require.Len(t, board.Table.Rows, 4)
	require.Nil(t, board.Series)

	board = view.Options{TopN: 10, Symbols: []string{"DOGE"}}.Apply(sampleTable())
	require.Empty(t, board.Table.Rows)
}
