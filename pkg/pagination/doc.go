// Package pagination walks a page-numbered listing endpoint one page at a time.
//
// The walker requests pages in ascending order from a start page until one of:
//   - the end page has been processed (unbounded when End is 0)
//   - a page yields no records
//   - a request fails, returns a non-200 status, or returns invalid JSON
//
// Running out of pages is the normal, successful end. A failure on the first
// page is returned as an error; a failure on a later page only stops the walk,
// and the pages already delivered stay valid.
//
// Example usage:
//
//	w := pagination.NewWalker(fetcher, pagination.Config{Start: 1, Delay: 500 * time.Millisecond})
//	summary, err := w.Walk(ctx, func(page int, records []any) {
//		acc.AddRecords(records)
//	})
//
// Pages are never fetched concurrently. The fixed Delay is slept between
// consecutive requests only.
package pagination
