package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/growappt-crawler/pkg/client"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "growappt_pages_fetched_total",
		Help: "Listing pages fetched successfully",
	})

	walkStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growappt_pagination_stops_total",
		Help: "Completed page walks by stop reason",
	}, []string{"reason"})
)

// StopReason tells why a walk ended.
type StopReason string

const (
	StopRangeExhausted StopReason = "range_exhausted"
	StopEmptyPage      StopReason = "empty_page"
	StopRequestFailed  StopReason = "request_failed"
	StopStatus         StopReason = "status"
	StopParseFailed    StopReason = "parse_failed"
	StopCancelled      StopReason = "cancelled"
)

// Unbounded as Config.End walks until a stop condition.
const Unbounded = 0

// PageFetcher fetches and decodes one listing page.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (any, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page int) (any, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) (any, error) {
	return f(ctx, page)
}

// Config holds walker configuration.
type Config struct {
	// Start is the first page requested (>= 1).
	Start int

	// End is the last page requested, or Unbounded.
	End int

	// Delay is slept between consecutive page requests.
	Delay time.Duration
}

// Handler receives the records of each non-empty page in page order.
type Handler func(page int, records []any)

// Summary describes a finished walk.
type Summary struct {
	PagesFetched int
	Records      int

	// LastPage is the last page that delivered records, 0 if none did.
	LastPage int

	Reason StopReason

	// Err is the failure that stopped the walk after the first page, if any.
	Err error
}

// Walker requests pages sequentially.
type Walker struct {
	fetcher PageFetcher
	config  Config
	sleep   func(ctx context.Context, d time.Duration) error
	logger  zerolog.Logger
}

// NewWalker creates a walker. A Start below 1 is raised to 1.
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	if config.Start < 1 {
		config.Start = 1
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	return &Walker{
		fetcher: fetcher,
		config:  config,
		sleep:   sleepContext,
		logger:  logging.NewLogger(logging.ComponentPagination),
	}
}

// WithSleep replaces the function used for the pacing delay.
func (w *Walker) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Walker {
	w.sleep = sleep
	return w
}

// Walk fetches pages and passes their records to handle. It returns an error
// only when the first page fails or ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, handle Handler) (Summary, error) {
	var summary Summary
	start := time.Now()

	for page := w.config.Start; w.config.End == Unbounded || page <= w.config.End; page++ {
		if page > w.config.Start && w.config.Delay > 0 {
			if err := w.sleep(ctx, w.config.Delay); err != nil {
				summary.Reason = StopCancelled
				return summary, err
			}
		}

		w.logger.Info().Int("page", page).Msg("Fetching page")

		body, err := w.fetcher.FetchPage(ctx, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				summary.Reason = StopCancelled
				return summary, ctxErr
			}
			summary.Reason = reasonFor(err)
			if summary.PagesFetched == 0 {
				return summary, fmt.Errorf("page %d: %w", page, err)
			}
			w.logger.Warn().
				Err(err).
				Int("page", page).
				Str("reason", string(summary.Reason)).
				Msg("Stopping pagination")
			summary.Err = err
			w.finish(summary, start)
			return summary, nil
		}

		summary.PagesFetched++
		pagesFetchedTotal.Inc()

		records := ExtractRecords(body)
		if len(records) == 0 {
			w.logger.Info().Int("page", page).Msg("No data returned; stopping")
			summary.Reason = StopEmptyPage
			w.finish(summary, start)
			return summary, nil
		}

		handle(page, records)
		summary.Records += len(records)
		summary.LastPage = page

		w.logger.Info().
			Int("page", page).
			Int("rows", len(records)).
			Int("total_rows", summary.Records).
			Msg("Page processed")
	}

	summary.Reason = StopRangeExhausted
	w.finish(summary, start)
	return summary, nil
}

func (w *Walker) finish(summary Summary, start time.Time) {
	walkStopsTotal.WithLabelValues(string(summary.Reason)).Inc()
	w.logger.Info().
		Int("pages", summary.PagesFetched).
		Int("records", summary.Records).
		Str("reason", string(summary.Reason)).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")
}

func reasonFor(err error) StopReason {
	switch client.ClassOf(err) {
	case client.ErrorClassStatus:
		return StopStatus
	case client.ErrorClassParse:
		return StopParseFailed
	default:
		return StopRequestFailed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
