package model

import "fmt"

// Unit is the currency a table is denominated in.
type Unit string

const (
	UnitUSD Unit = "USD"
	UnitBTC Unit = "BTC"
	UnitETH Unit = "ETH"
)

// Units lists every supported unit in display order.
func Units() []Unit { return []Unit{UnitUSD, UnitBTC, UnitETH} }

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitUSD, UnitBTC, UnitETH:
		return true
	}
	return false
}

// ParseUnit converts a selector string into a Unit.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("unsupported unit %q", s)
	}
	return u, nil
}

// Metric is a quote-denominated field of a listing record.
type Metric string

const (
	MetricMarketCap        Metric = "market_cap"
	MetricPercentChange1h  Metric = "percent_change_1h"
	MetricPercentChange24h Metric = "percent_change_24h"
	MetricPercentChange7d  Metric = "percent_change_7d"
	MetricPercentChange30d Metric = "percent_change_30d"
	MetricPercentChange90d Metric = "percent_change_90d"
	MetricPrice            Metric = "price"
	MetricVolume24h        Metric = "volume_24h"
)

// QuoteMetrics lists the quote metrics in column order.
func QuoteMetrics() []Metric {
	return []Metric{
		MetricMarketCap,
		MetricPercentChange1h,
		MetricPercentChange24h,
		MetricPercentChange7d,
		MetricPercentChange30d,
		MetricPercentChange90d,
		MetricPrice,
		MetricVolume24h,
	}
}

// Unit-independent field keys.
const (
	FieldSlug   = "slug"
	FieldSymbol = "symbol"
)

// QuoteKey builds the FieldIndexMap key for a quote metric in unit u.
func QuoteKey(u Unit, m Metric) string {
	return "quote." + string(u) + "." + string(m)
}

// Horizon is a percent-change timeframe.
type Horizon string

const (
	Horizon1h  Horizon = "1h"
	Horizon24h Horizon = "24h"
	Horizon7d  Horizon = "7d"
	Horizon30d Horizon = "30d"
	Horizon90d Horizon = "90d"
)

// Horizons lists every horizon, shortest first.
func Horizons() []Horizon {
	return []Horizon{Horizon1h, Horizon24h, Horizon7d, Horizon30d, Horizon90d}
}

// ParseHorizon converts a timeframe selector into a Horizon.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(s)
	switch h {
	case Horizon1h, Horizon24h, Horizon7d, Horizon30d, Horizon90d:
		return h, nil
	}
	return "", fmt.Errorf("unsupported horizon %q", s)
}

// Metric returns the percent-change metric for h.
func (h Horizon) Metric() Metric {
	return Metric("percent_change_" + string(h))
}

// Column returns the table column holding h.
func (h Horizon) Column() string { return string(h.Metric()) }
