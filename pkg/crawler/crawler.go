// Package crawler runs one customer export: sign in, walk the listing pages,
// partition the rows by phone number and write the output files.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/growappt-crawler/pkg/auth"
	"github.com/Sternrassler/growappt-crawler/pkg/client"
	"github.com/Sternrassler/growappt-crawler/pkg/config"
	"github.com/Sternrassler/growappt-crawler/pkg/customer"
	"github.com/Sternrassler/growappt-crawler/pkg/export"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
	"github.com/Sternrassler/growappt-crawler/pkg/pagination"
)

var rowsAccumulatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "growappt_rows_accumulated_total",
	Help: "Customer rows collected from listing pages",
})

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Started time.Time

	// Pagination is the walk summary; Pagination.Err holds a later-page
	// failure that ended the walk early.
	Pagination pagination.Summary

	// Rows is the number of accumulated rows.
	Rows int

	Export export.Result
}

// Crawler holds the settings and HTTP session of one run.
type Crawler struct {
	cfg     config.Config
	session *client.Session
	now     func() time.Time
	logger  zerolog.Logger
	runID   string

	// sleep replaces the pacing delay in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New validates cfg and creates a crawler with a fresh cookie session.
func New(cfg config.Config) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientCfg := client.DefaultConfig()
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.Timeout()

	session, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create http session: %w", err)
	}

	runID := uuid.NewString()
	return &Crawler{
		cfg:     cfg,
		session: session,
		now:     time.Now,
		runID:   runID,
		logger:  logging.NewLogger(logging.ComponentCrawler).With().Str("run_id", runID).Logger(),
	}, nil
}

// WithClock sets the clock used for the output file timestamp.
func (c *Crawler) WithClock(now func() time.Time) *Crawler {
	c.now = now
	return c
}

// RunID returns the identifier attached to this run's log lines.
func (c *Crawler) RunID() string {
	return c.runID
}

// Run signs in with creds, fetches the configured page range and writes
// the dupes and unique files. No file is created when sign-in or the first
// page fails.
func (c *Crawler) Run(ctx context.Context, creds auth.Credentials) (Result, error) {
	res := Result{RunID: c.runID, Started: c.now()}
	start, end := c.cfg.PageRange()

	c.logger.Info().
		Str("login_url", c.cfg.LoginURL).
		Str("customers_url", c.cfg.CustomersURL).
		Int("from_page", start).
		Int("to_page", end).
		Bool("all", c.cfg.All).
		Msg("Starting crawl")

	authenticator, err := auth.NewAuthenticator(c.session, c.cfg.LoginURL)
	if err != nil {
		return res, err
	}
	token, err := authenticator.Authenticate(ctx, creds)
	if err != nil {
		return res, err
	}

	fetcher := NewListingFetcher(c.session, c.cfg.CustomersURL, token, ListingQuery{
		Limit:      c.cfg.Limit,
		SearchWord: c.cfg.SearchWord,
		SortKey:    c.cfg.SortKey,
		SortOrder:  c.cfg.SortOrder,
	})
	walker := pagination.NewWalker(fetcher, pagination.Config{
		Start: start,
		End:   end,
		Delay: c.cfg.Delay(),
	})
	if c.sleep != nil {
		walker = walker.WithSleep(c.sleep)
	}

	acc := customer.NewAccumulator()
	res.Pagination, err = walker.Walk(ctx, func(page int, records []any) {
		added := acc.AddRecords(records)
		rowsAccumulatedTotal.Add(float64(added))
		c.logger.Debug().Int("page", page).Int("rows", added).Int("total_rows", acc.Len()).Msg("Rows accumulated")
	})
	if err != nil {
		return res, fmt.Errorf("fetch customers: %w", err)
	}
	res.Rows = acc.Len()

	res.Export, err = export.NewWriter(c.cfg.Output).Write(acc.Partition(), res.Started)
	if err != nil {
		return res, err
	}

	c.logger.Info().
		Int("pages", res.Pagination.PagesFetched).
		Int("rows", res.Rows).
		Int("groups", res.Export.Groups).
		Int("dupe_rows", res.Export.DupeRows).
		Int("unique_rows", res.Export.UniqueRows).
		Str("stop_reason", string(res.Pagination.Reason)).
		Msg("Crawl complete")

	return res, nil
}
