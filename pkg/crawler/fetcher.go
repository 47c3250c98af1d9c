package crawler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Sternrassler/growappt-crawler/pkg/client"
)

// listingHeaders are sent on every listing request in addition to the
// session defaults.
var listingHeaders = map[string]string{
	"Accept":           "application/json",
	"X-Requested-With": "XMLHttpRequest",
}

// ListingQuery holds the listing parameters that stay fixed across pages.
type ListingQuery struct {
	Limit      int
	SearchWord string
	SortKey    int
	SortOrder  int
}

// Params returns the query parameters for page.
func (q ListingQuery) Params(page int) map[string]string {
	return map[string]string{
		"limit":       strconv.Itoa(q.Limit),
		"page":        strconv.Itoa(page),
		"search_word": q.SearchWord,
		"sort_key":    strconv.Itoa(q.SortKey),
		"sort_order":  strconv.Itoa(q.SortOrder),
	}
}

// JSONGetter is the part of client.Session the fetcher needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, req client.Request) (any, error)
}

// ListingFetcher requests customer listing pages with a bearer token.
// It implements pagination.PageFetcher.
type ListingFetcher struct {
	getter JSONGetter
	url    string
	token  string
	query  ListingQuery
}

// NewListingFetcher returns a fetcher for the listing endpoint at url.
func NewListingFetcher(getter JSONGetter, url, token string, query ListingQuery) *ListingFetcher {
	return &ListingFetcher{getter: getter, url: url, token: token, query: query}
}

// FetchPage requests one page and returns the decoded body.
func (f *ListingFetcher) FetchPage(ctx context.Context, page int) (any, error) {
	return f.getter.GetJSON(ctx, client.Request{
		Method:      http.MethodGet,
		URL:         f.url,
		Headers:     listingHeaders,
		Query:       f.query.Params(page),
		BearerToken: f.token,
	})
}
