package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoBoard/internal/logger"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/projector"
)

// MockFetcher returns a fixed listing or error for development and testing.
type MockFetcher struct {
	Listing model.RawListing
	Err     error

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchListing(_ context.Context) (model.RawListing, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Listing, nil
}

// Calls reports how many times FetchListing ran.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Collector orchestrates fetching the listing and projecting it into a table.
type Collector struct {
	Fetcher Fetcher
	Resolve projector.Resolver
	Now     func() time.Time
}

// NewCollector creates a Collector. A nil resolver uses the default FieldIndexMap.
func NewCollector(fetcher Fetcher, resolve projector.Resolver) *Collector {
	if resolve == nil {
		resolve = projector.Static(projector.DefaultFieldIndexMap())
	}
	return &Collector{Fetcher: fetcher, Resolve: resolve, Now: time.Now}
}

// Collect fetches the listing and projects it in unit. On any error the
// returned table is empty; a partial table is never returned.
func (c *Collector) Collect(ctx context.Context, unit model.Unit) (model.InstrumentTable, error) {
	log := logger.GetLogger().WithComponent("collector").WithFields(logger.Fields{
		"source": c.Fetcher.Name(),
		"unit":   string(unit),
	})
	start := time.Now()

	listing, err := c.Fetcher.FetchListing(ctx)
	if err != nil {
		log.WithError(err).Warn("fetch listing failed")
		return model.Empty(unit), fmt.Errorf("fetch listing: %w", err)
	}
	fields, err := c.Resolve(listing)
	if err != nil {
		log.WithError(err).Warn("resolve field map failed")
		return model.Empty(unit), fmt.Errorf("resolve field map: %w", err)
	}
	table, err := projector.Project(listing, unit, fields)
	if err != nil {
		log.WithError(err).Warn("project listing failed")
		return model.Empty(unit), fmt.Errorf("project listing: %w", err)
	}
	if c.Now != nil {
		table.FetchedAt = c.Now()
	}

	log.WithFields(logger.Fields{
		"rows":        table.Len(),
		"duration_ms": float64(time.Since(start).Nanoseconds()) / 1e6,
	}).Debug("listing collected")
	return table, nil
}
