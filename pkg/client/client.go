// Package client provides the HTTP session used against the booking platform:
// a cookie-carrying resty client with the platform's default headers, request
// metrics, and typed request errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/Sternrassler/growappt-crawler/pkg/logging"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growappt_requests_total",
		Help: "Total requests to the booking platform by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "growappt_request_duration_seconds",
		Help:    "Request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})
)

// Config holds the session configuration.
type Config struct {
	// UserAgent is sent on every request.
	UserAgent string

	// Accept is the session-wide Accept header; requests may override it.
	Accept string

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration

	// MaxRedirects caps followed redirects per request.
	MaxRedirects int
}

// DefaultConfig returns the headers and limits the platform expects.
func DefaultConfig() Config {
	return Config{
		UserAgent:    "Mozilla/5.0 (compatible; GrowApptCrawler/1.0)",
		Accept:       "text/html,application/json;q=0.9,*/*;q=0.8",
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
	}
}

// Request describes one HTTP request. At most one of JSON and Form is set.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string

	// JSON is marshalled as an application/json body.
	JSON any

	// Form is sent as an application/x-www-form-urlencoded body.
	Form map[string]string

	// BearerToken, when set, is sent as "Authorization: Bearer <token>".
	BearerToken string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Session is a cookie-carrying client whose cookies live as long as the Session.
type Session struct {
	http   *resty.Client
	config Config
	logger zerolog.Logger
}

// New creates a session with an empty cookie jar.
func New(cfg Config) (*Session, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.MaxRedirects < 0 {
		return nil, fmt.Errorf("max_redirects must be >= 0 (got %d)", cfg.MaxRedirects)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	logger := logging.NewLogger(logging.ComponentHTTP)

	rc := resty.New().
		SetCookieJar(jar).
		SetTimeout(cfg.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetLogger(restyLogger{logger: logger})
	if cfg.Accept != "" {
		rc.SetHeader("Accept", cfg.Accept)
	}

	return &Session{
		http:   rc,
		config: cfg,
		logger: logger,
	}, nil
}

// Do executes req and returns the response whatever its status.
// Only transport failures are returned as errors (class network).
func (s *Session) Do(ctx context.Context, req Request) (*Response, error) {
	endpoint := endpointLabel(req.URL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	r := s.http.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.BearerToken != "" {
		r.SetAuthToken(req.BearerToken)
	}
	switch {
	case req.JSON != nil:
		r.SetHeader("Content-Type", "application/json").SetBody(req.JSON)
	case req.Form != nil:
		r.SetFormData(req.Form)
	}

	s.logger.Debug().
		Str("method", req.Method).
		Str("endpoint", endpoint).
		Interface("query", req.Query).
		Msg("Executing request")

	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &RequestError{
			Method: req.Method,
			URL:    req.URL,
			Class:  ErrorClassNetwork,
			Err:    err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(res.StatusCode())).Inc()
	s.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", res.StatusCode()).
		Int("bytes", len(res.Body())).
		Msg("Request complete")

	return &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
	}, nil
}

// GetJSON executes req, requires status 200 and decodes the body.
// Numbers are kept as json.Number so they render as sent.
func (s *Session) GetJSON(ctx context.Context, req Request) (any, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	res, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, &RequestError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: res.StatusCode,
			Class:      ErrorClassStatus,
		}
	}

	data, err := DecodeJSON(res.Body)
	if err != nil {
		return nil, &RequestError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: res.StatusCode,
			Class:      ErrorClassParse,
			Err:        err,
		}
	}
	return data, nil
}

// Cookies returns the cookies the session would send to rawURL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil || s.http.GetClient().Jar == nil {
		return nil
	}
	return s.http.GetClient().Jar.Cookies(u)
}

// DecodeJSON strictly decodes a single JSON document, keeping numbers as json.Number.
func DecodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level value")
	}
	return out, nil
}

func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}

// restyLogger routes resty's internal messages into zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
