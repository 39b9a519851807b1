package collector

import (
	"context"

	"CryptoBoard/internal/model"
)

// Fetcher defines the interface for fetching the raw listing.
type Fetcher interface {
	FetchListing(ctx context.Context) (model.RawListing, error)
	Name() string
}
