// Package metrics exports the crawler's Prometheus metrics at the end of a
// run. Metrics are defined with promauto in the packages that record them
// (client, auth, pagination, crawler, export).
//
// A crawl is a short-lived batch job, so nothing is scraped: the collected
// values are written in node-exporter textfile format and/or pushed to a
// Pushgateway once the run finishes.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the registerer every promauto metric in this module uses.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the values written by the exporters.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// PushJob is the Pushgateway job name.
const PushJob = "crawl_customers"

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - growappt_requests_total{endpoint, status} (Counter): requests by endpoint path and HTTP status ("network_error" on transport failure)
//   - growappt_request_duration_seconds{endpoint} (Histogram): request latency
//
// Auth Metrics (pkg/auth):
//   - growappt_login_attempts_total{encoding, result} (Counter): sign-in attempts by body encoding (json, form) and result (success, failure)
//
// Pagination Metrics (pkg/pagination):
//   - growappt_pages_fetched_total (Counter): listing pages fetched successfully
//   - growappt_pagination_stops_total{reason} (Counter): why the page loop ended
//
// Row Metrics (pkg/crawler, pkg/export):
//   - growappt_rows_accumulated_total (Counter): customer rows collected from listing pages
//   - growappt_rows_written_total{file} (Counter): data rows written to the dupes and unique files
//
// Example Prometheus Queries:
//
//   # Rows per run
//   growappt_rows_accumulated_total
//
//   # Share of duplicates
//   growappt_rows_written_total{file="dupes"} / growappt_rows_accumulated_total
//
//   # Failed sign-in encodings
//   sum by (encoding) (growappt_login_attempts_total{result="failure"})

// ExportOptions selects where metrics go; empty fields are skipped.
type ExportOptions struct {
	// Textfile is the path for node-exporter's textfile collector (*.prom).
	Textfile string

	// PushURL is the Pushgateway base URL.
	PushURL string
}

// Enabled reports whether any exporter is configured.
func (o ExportOptions) Enabled() bool {
	return o.Textfile != "" || o.PushURL != ""
}

// Export runs every configured exporter and returns their joined errors.
func Export(ctx context.Context, opts ExportOptions) error {
	var errs []error
	if opts.Textfile != "" {
		if err := WriteTextfile(opts.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if opts.PushURL != "" {
		if err := Push(ctx, opts.PushURL, PushJob); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteTextfile writes the gathered metrics to path atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Push replaces the job's metrics on the Pushgateway at url.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(Gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
