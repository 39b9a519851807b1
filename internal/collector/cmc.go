package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CryptoBoard/internal/httpx"
	"CryptoBoard/internal/model"
)

const (
	// DefaultURL is the listing page scraped for the embedded payload.
	DefaultURL = "https://coinmarketcap.com"
	// DefaultTimeout bounds one fetch, from dial to the last body byte.
	DefaultTimeout = 5 * time.Second

	markerID   = "__NEXT_DATA__"
	markerType = "application/json"
)

// listingPath is the key path from the payload root to the listing array.
var listingPath = []string{"props", "initialState", "cryptocurrency", "listingLatest", "data"}

// ListingFetcher scrapes the listing page and extracts the embedded listing.
type ListingFetcher struct {
	url        string
	httpClient HTTPClient
	header     http.Header
	timeout    time.Duration
}

// ListingFetcherOption configures a ListingFetcher.
type ListingFetcherOption func(*ListingFetcher)

// WithURL overrides the page URL.
func WithURL(url string) ListingFetcherOption {
	return func(f *ListingFetcher) {
		f.url = url
	}
}

// WithHTTPClient sets the HTTP client used for the page request.
func WithHTTPClient(c HTTPClient) ListingFetcherOption {
	return func(f *ListingFetcher) {
		f.httpClient = c
	}
}

// WithHeader adds headers sent with every request.
func WithHeader(header http.Header) ListingFetcherOption {
	return func(f *ListingFetcher) {
		for key, values := range header {
			for _, value := range values {
				f.header.Add(key, value)
			}
		}
	}
}

// WithTimeout bounds each fetch. Zero disables the per-fetch deadline.
func WithTimeout(d time.Duration) ListingFetcherOption {
	return func(f *ListingFetcher) {
		f.timeout = d
	}
}

// NewListingFetcher creates a fetcher for DefaultURL with a DefaultTimeout client.
func NewListingFetcher(opts ...ListingFetcherOption) *ListingFetcher {
	f := &ListingFetcher{
		url:     DefaultURL,
		header:  http.Header{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = httpx.New(f.timeout)
	}
	return f
}

func (f *ListingFetcher) Name() string { return "coinmarketcap" }

// URL returns the page being scraped.
func (f *ListingFetcher) URL() string { return f.url }

// FetchListing performs one GET and returns the decoded listing.
func (f *ListingFetcher) FetchListing(ctx context.Context) (model.RawListing, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, &FetchError{Kind: NetworkError, Op: "create request", Err: err}
	}
	for key, values := range f.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, transportError("get "+f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Kind: NetworkError,
			Op:   "get " + f.url,
			Err:  fmt.Errorf("status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError("read body", err)
	}
	payload, err := ExtractPayload(page)
	if err != nil {
		return nil, err
	}
	return DecodeListing(payload)
}

// ExtractPayload returns the text of the single marker script in page.
func ExtractPayload(page []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &FetchError{Kind: MalformedPayload, Op: "parse html", Err: err}
	}
	markers := doc.Find("script#" + markerID).FilterFunction(func(_ int, s *goquery.Selection) bool {
		t, _ := s.Attr("type")
		return t == markerType
	})
	switch n := markers.Length(); n {
	case 1:
	case 0:
		return nil, &FetchError{Kind: MarkerNotFound, Op: "find marker", Err: fmt.Errorf("no script#%s[type=%s]", markerID, markerType)}
	default:
		return nil, &FetchError{Kind: MarkerNotFound, Op: "find marker", Err: fmt.Errorf("%d script#%s elements, want 1", n, markerID)}
	}
	text := strings.TrimSpace(markers.Text())
	if text == "" {
		return nil, malformed("marker script is empty")
	}
	return []byte(text), nil
}

// DecodeListing decodes the payload JSON and walks listingPath to the listing array.
func DecodeListing(payload []byte) (model.RawListing, error) {
	var root any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, malformed("invalid json: %w", err)
	}

	node := root
	for i, key := range listingPath {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, malformed("%s is %T, want object", pathString(i), node)
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return nil, malformed("missing key %s", pathString(i+1))
		}
		node = next
	}

	arr, ok := node.([]any)
	if !ok {
		return nil, malformed("%s is %T, want array", pathString(len(listingPath)), node)
	}
	listing := make(model.RawListing, 0, len(arr))
	for i, v := range arr {
		rec, ok := v.([]any)
		if !ok {
			if i == 0 {
				// The header sentinel is usually an object; keep it whole.
				listing = append(listing, model.Record{v})
				continue
			}
			return nil, malformed("listing record %d is %T, want array", i, v)
		}
		listing = append(listing, model.Record(rec))
	}
	return listing, nil
}

func pathString(n int) string {
	if n == 0 {
		return "payload root"
	}
	return strings.Join(listingPath[:n], ".")
}
