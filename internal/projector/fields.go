package projector

import (
	"fmt"

	"CryptoBoard/internal/model"
)

// FieldIndexMap maps a semantic field name such as "quote.USD.price" to
// its position in a listing record.
type FieldIndexMap map[string]int

// DefaultFieldIndexMap returns the positions the scraper has always used
// for the upstream payload. They are tied to an undocumented schema.
func DefaultFieldIndexMap() FieldIndexMap {
	m := FieldIndexMap{
		model.FieldSlug:   125,
		model.FieldSymbol: 126,
	}
	quoteBase := map[model.Unit]struct{ marketCap, quote int }{
		model.UnitBTC: {19, 22},
		model.UnitETH: {37, 40},
		model.UnitUSD: {55, 58},
	}
	for unit, base := range quoteBase {
		for _, metric := range model.QuoteMetrics() {
			idx := base.quote
			if metric == model.MetricMarketCap {
				idx = base.marketCap
			}
			m[model.QuoteKey(unit, metric)] = idx
		}
	}
	return m
}

// Clone returns an independent copy of m.
func (m FieldIndexMap) Clone() FieldIndexMap {
	out := make(FieldIndexMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// layout is a FieldIndexMap resolved for one unit.
type layout struct {
	slug   int
	symbol int
	quote  []int // parallel to model.QuoteMetrics()
}

func (m FieldIndexMap) resolve(unit model.Unit) (layout, error) {
	if !unit.Valid() {
		return layout{}, mismatch(-1, model.QuoteKey(unit, model.MetricPrice), fmt.Errorf("unsupported unit %q", unit))
	}
	lookup := func(key string) (int, error) {
		idx, ok := m[key]
		if !ok {
			return 0, mismatch(-1, key, fmt.Errorf("no index for field"))
		}
		if idx < 0 {
			return 0, mismatch(-1, key, fmt.Errorf("negative index %d", idx))
		}
		return idx, nil
	}

	var (
		l   layout
		err error
	)
	if l.slug, err = lookup(model.FieldSlug); err != nil {
		return layout{}, err
	}
	if l.symbol, err = lookup(model.FieldSymbol); err != nil {
		return layout{}, err
	}
	for _, metric := range model.QuoteMetrics() {
		idx, err := lookup(model.QuoteKey(unit, metric))
		if err != nil {
			return layout{}, err
		}
		l.quote = append(l.quote, idx)
	}
	return l, nil
}

// FieldIndexMapFromHeader builds a map from the listing's header sentinel.
// The sentinel is either an object carrying a "keysArr" array or the key
// array itself; position i of that array names position i of every record.
func FieldIndexMapFromHeader(sentinel model.Record) (FieldIndexMap, error) {
	keys := []any(sentinel)
	if len(sentinel) == 1 {
		if obj, ok := sentinel[0].(map[string]any); ok {
			arr, ok := obj["keysArr"].([]any)
			if !ok {
				return nil, mismatch(0, "keysArr", fmt.Errorf("header has no keysArr array"))
			}
			keys = arr
		}
	}
	if len(keys) == 0 {
		return nil, mismatch(0, "keysArr", fmt.Errorf("empty header"))
	}
	m := make(FieldIndexMap, len(keys))
	for i, k := range keys {
		name, ok := k.(string)
		if !ok {
			return nil, mismatch(0, fmt.Sprintf("keysArr[%d]", i), fmt.Errorf("key is %T, want string", k))
		}
		if _, dup := m[name]; !dup {
			m[name] = i
		}
	}
	return m, nil
}

// Resolver picks the FieldIndexMap for a listing.
type Resolver func(listing model.RawListing) (FieldIndexMap, error)

// Static always resolves to m.
func Static(m FieldIndexMap) Resolver {
	return func(model.RawListing) (FieldIndexMap, error) { return m, nil }
}

// FromHeader resolves from the listing's sentinel.
func FromHeader(listing model.RawListing) (FieldIndexMap, error) {
	sentinel, ok := listing.Sentinel()
	if !ok {
		return nil, mismatch(0, "keysArr", fmt.Errorf("listing has no header"))
	}
	return FieldIndexMapFromHeader(sentinel)
}

// Mode selects how the FieldIndexMap is obtained.
type Mode string

const (
	ModeStatic Mode = "static"
	ModeHeader Mode = "header"
)

// ParseMode validates a field-map mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStatic, ModeHeader:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unsupported field map mode %q", s)
}

// ResolverFor returns the resolver for mode.
func ResolverFor(mode Mode) Resolver {
	switch mode {
	case ModeHeader:
		return FromHeader
	case ModeStatic:
		return Static(DefaultFieldIndexMap())
	}
	panic("projector: unknown mode " + string(mode))
}
