package projector_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"CryptoBoard/internal/model"
	"CryptoBoard/internal/projector"
)

// compactMap lays out slug, symbol, then the USD metrics in column order.
func compactMap() projector.FieldIndexMap {
	m := projector.FieldIndexMap{model.FieldSlug: 0, model.FieldSymbol: 1}
	for i, metric := range model.QuoteMetrics() {
		m[model.QuoteKey(model.UnitUSD, metric)] = 2 + i
	}
	return m
}

func compactRecord(slug, symbol string, nums ...any) model.Record {
	return append(model.Record{slug, symbol}, nums...)
}

func TestProjectBTCScenario(t *testing.T) {
	t.Parallel()

	// Arrange: sentinel plus one record, price 50000 and 24h change -2.5.
	listing := model.RawListing{
		{map[string]any{"keysArr": []any{}}},
		compactRecord("bitcoin", "BTC", 1e12, 0.5, -2.5, 3.0, 10.0, 20.0, 50000.0, 3e10),
	}

	// Act
	table, err := projector.Project(listing, model.UnitUSD, compactMap())

	// Assert
	require.NoError(t, err)
	require.Equal(t, model.UnitUSD, table.Unit)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	require.Equal(t, "bitcoin", row.Name)
	require.Equal(t, "BTC", row.Symbol)
	require.Equal(t, 50000.0, row.Price)
	require.Equal(t, -2.5, row.PercentChange24h)
	require.Equal(t, 1e12, row.MarketCap)
	require.Equal(t, 3e10, row.Volume24h)
}

func TestProjectRowCountIsListingMinusSentinel(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5, 100} {
		listing := model.RawListing{{"header"}}
		for i := 1; i < n; i++ {
			listing = append(listing, compactRecord("coin", "C", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0))
		}
		table, err := projector.Project(listing, model.UnitUSD, compactMap())
		require.NoError(t, err)
		require.Len(t, table.Rows, n-1)
		require.NotNil(t, table.Rows)
	}
}

func TestProjectOrderPreserved(t *testing.T) {
	t.Parallel()

	listing := model.RawListing{
		{"header"},
		compactRecord("bitcoin", "BTC", 1.0, 0.0, 0.0, 0.0, 0.0, 0.0, 1.0, 1.0),
		compactRecord("ethereum", "ETH", 1.0, 0.0, 0.0, 0.0, 0.0, 0.0, 1.0, 1.0),
		compactRecord("tether", "USDT", 1.0, 0.0, 0.0, 0.0, 0.0, 0.0, 1.0, 1.0),
	}
	table, err := projector.Project(listing, model.UnitUSD, compactMap())
	require.NoError(t, err)
	require.Equal(t, []string{"BTC", "ETH", "USDT"}, []string{table.Rows[0].Symbol, table.Rows[1].Symbol, table.Rows[2].Symbol})
}

func TestProjectUnsupportedUnit(t *testing.T) {
	t.Parallel()

	listing := model.RawListing{{"header"}, compactRecord("bitcoin", "BTC", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0)}

	table, err := projector.ProjectUnit(listing, "JPY", compactMap())

	require.ErrorIs(t, err, projector.ErrSchemaMismatch)
	require.Empty(t, table.Rows)
	require.Equal(t, model.Unit("JPY"), table.Unit)
}

func TestProjectUnitMissingFromMap(t *testing.T) {
	t.Parallel()

	// compactMap only knows USD.
	listing := model.RawListing{{"header"}, compactRecord("bitcoin", "BTC", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0)}
	_, err := projector.Project(listing, model.UnitETH, compactMap())

	var pe *projector.ProjectionError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, -1, pe.Row)
	require.Equal(t, "quote.ETH.market_cap", pe.Field)
}

func TestProjectFailures(t *testing.T) {
	t.Parallel()

	good := compactRecord("bitcoin", "BTC", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0)
	tests := []struct {
		name  string
		bad   model.Record
		field string
	}{
		{"short record", model.Record{"ethereum", "ETH", 1.0}, "quote.USD.percent_change_1h"},
		{"empty record", model.Record{}, "slug"},
		{"number as string", compactRecord("ethereum", "ETH", 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, "7", 8.0), "quote.USD.price"},
		{"symbol not string", model.Record{"ethereum", 42.0, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0}, "symbol"},
		{"null value", compactRecord("ethereum", "ETH", nil, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0), "quote.USD.market_cap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// The bad record comes second, so any partial result would hold one row.
			listing := model.RawListing{{"header"}, good, tt.bad}
			table, err := projector.Project(listing, model.UnitUSD, compactMap())

			require.ErrorIs(t, err, projector.ErrSchemaMismatch)
			require.Empty(t, table.Rows)
			var pe *projector.ProjectionError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, 2, pe.Row)
			require.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestProjectAcceptsIntegerKinds(t *testing.T) {
	t.Parallel()

	listing := model.RawListing{
		{"header"},
		compactRecord("bitcoin", "BTC", int64(5), 1, json.Number("2.5"), 0.0, 0.0, 0.0, 7, 8.0),
	}
	table, err := projector.Project(listing, model.UnitUSD, compactMap())
	require.NoError(t, err)
	row := table.Rows[0]
	require.Equal(t, 5.0, row.MarketCap)
	require.Equal(t, 1.0, row.PercentChange1h)
	require.Equal(t, 2.5, row.PercentChange24h)
	require.Equal(t, 7.0, row.Price)
}

func TestProjectDefaultMap(t *testing.T) {
	t.Parallel()

	// A record wide enough for the historical positions.
	rec := make(model.Record, 127)
	for i := range rec {
		rec[i] = float64(i)
	}
	rec[125] = "bitcoin"
	rec[126] = "BTC"
	listing := model.RawListing{{"header"}, rec}

	for _, tt := range []struct {
		unit      model.Unit
		marketCap float64
		quote     float64
	}{
		{model.UnitBTC, 19, 22},
		{model.UnitETH, 37, 40},
		{model.UnitUSD, 55, 58},
	} {
		table, err := projector.Project(listing, tt.unit, projector.DefaultFieldIndexMap())
		require.NoError(t, err)
		row := table.Rows[0]
		require.Equal(t, "bitcoin", row.Name)
		require.Equal(t, "BTC", row.Symbol)
		require.Equal(t, tt.marketCap, row.MarketCap)
		require.Equal(t, tt.quote, row.Price)
		require.Equal(t, tt.quote, row.PercentChange90d)
		require.Equal(t, tt.quote, row.Volume24h)
	}
}

func TestDefaultFieldIndexMapKeys(t *testing.T) {
	t.Parallel()

	m := projector.DefaultFieldIndexMap()
	require.Len(t, m, 2+len(model.Units())*len(model.QuoteMetrics()))
	require.Equal(t, 58, m["quote.USD.price"])
	require.Equal(t, 19, m["quote.BTC.market_cap"])

	clone := m.Clone()
	clone["slug"] = 0
	require.Equal(t, 125, m["slug"])
}

func TestFieldIndexMapFromHeader(t *testing.T) {
	t.Parallel()

	keys := []any{"quote.USD.volume_24h", "symbol", "slug"}
	for _, m := range model.QuoteMetrics() {
		if m != model.MetricVolume24h {
			keys = append(keys, model.QuoteKey(model.UnitUSD, m))
		}
	}

	t.Run("object sentinel", func(t *testing.T) {
		t.Parallel()
		m, err := projector.FieldIndexMapFromHeader(model.Record{map[string]any{"keysArr": keys}})
		require.NoError(t, err)
		require.Equal(t, 0, m["quote.USD.volume_24h"])
		require.Equal(t, 2, m["slug"])
	})

	t.Run("array sentinel", func(t *testing.T) {
		t.Parallel()
		m, err := projector.FieldIndexMapFromHeader(model.Record(keys))
		require.NoError(t, err)
		require.Equal(t, 1, m["symbol"])
	})

	t.Run("end to end", func(t *testing.T) {
		t.Parallel()
		// Record values follow the header order.
		rec := model.Record{9e9, "BTC", "bitcoin", 1e12, 0.1, 0.2, 0.3, 0.4, 0.5, 50000.0}
		listing := model.RawListing{{map[string]any{"keysArr": keys}}, rec}
		m, err := projector.FromHeader(listing)
		require.NoError(t, err)
		table, err := projector.Project(listing, model.UnitUSD, m)
		require.NoError(t, err)
		require.Equal(t, 9e9, table.Rows[0].Volume24h)
		require.Equal(t, 50000.0, table.Rows[0].Price)
		require.Equal(t, 0.2, table.Rows[0].PercentChange24h)
	})

	t.Run("bad headers", func(t *testing.T) {
		t.Parallel()
		for _, sentinel := range []model.Record{
			{map[string]any{"other": 1}},
			{},
			{"slug", 3.0},
		} {
			_, err := projector.FieldIndexMapFromHeader(sentinel)
			require.ErrorIs(t, err, projector.ErrSchemaMismatch)
		}
		_, err := projector.FromHeader(nil)
		require.ErrorIs(t, err, projector.ErrSchemaMismatch)
	})
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := projector.ParseMode("header")
	require.NoError(t, err)
	require.Equal(t, projector.ModeHeader, mode)

	_, err = projector.ParseMode("dynamic")
	require.Error(t, err)

	m, err := projector.ResolverFor(projector.ModeStatic)(nil)
	require.NoError(t, err)
	require.Equal(t, projector.DefaultFieldIndexMap(), m)
}
