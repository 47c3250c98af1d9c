// Package auth exchanges login credentials for a bearer token at the
// platform's sign-in endpoint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/growappt-crawler/pkg/client"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
)

var loginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "growappt_login_attempts_total",
	Help: "Sign-in attempts by body encoding and result",
}, []string{"encoding", "result"})

// ErrAuthenticationFailed is returned when no attempt yields a token.
var ErrAuthenticationFailed = errors.New("authentication failed: no access_token returned from sign_in API")

// Credentials are the login id and password sent to the sign-in endpoint.
type Credentials struct {
	LoginID  string
	Password string
}

// Doer executes a request. *client.Session implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Strategy builds one sign-in request for a given encoding.
type Strategy struct {
	// Name labels the strategy in logs and metrics.
	Name string

	// Build returns the request for creds against signInURL.
	Build func(signInURL string, creds Credentials) client.Request
}

// JSONStrategy posts {loginid, password} as a JSON body.
var JSONStrategy = Strategy{
	Name: "json",
	Build: func(signInURL string, creds Credentials) client.Request {
		req := baseRequest(signInURL)
		req.JSON = payload(creds)
		return req
	},
}

// FormStrategy posts {loginid, password} as a form-encoded body.
var FormStrategy = Strategy{
	Name: "form",
	Build: func(signInURL string, creds Credentials) client.Request {
		req := baseRequest(signInURL)
		req.Form = payload(creds)
		return req
	},
}

// DefaultStrategies is the fixed attempt order: JSON first, then form.
func DefaultStrategies() []Strategy {
	return []Strategy{JSONStrategy, FormStrategy}
}

// AttemptError records why one strategy produced no token.
type AttemptError struct {
	Strategy string
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s attempt: %v", e.Strategy, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

var errNoToken = errors.New("no token in response")

// Authenticator tries each strategy in order until one yields a token.
type Authenticator struct {
	doer       Doer
	signInURL  string
	strategies []Strategy
	logger     zerolog.Logger
}

// NewAuthenticator creates an authenticator using DefaultStrategies.
func NewAuthenticator(doer Doer, signInURL string) (*Authenticator, error) {
	if doer == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if signInURL == "" {
		return nil, fmt.Errorf("sign-in url is required")
	}
	return &Authenticator{
		doer:       doer,
		signInURL:  signInURL,
		strategies: DefaultStrategies(),
		logger:     logging.NewLogger(logging.ComponentAuth),
	}, nil
}

// WithStrategies replaces the attempt list.
func (a *Authenticator) WithStrategies(strategies ...Strategy) *Authenticator {
	a.strategies = strategies
	return a
}

// Authenticate returns the first token found. Failures of individual attempts
// are swallowed; if every attempt fails the returned error wraps
// ErrAuthenticationFailed together with each AttemptError.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	var failures []error

	for _, strategy := range a.strategies {
		token, err := a.attempt(ctx, strategy, creds)
		if err == nil {
			loginAttemptsTotal.WithLabelValues(strategy.Name, "success").Inc()
			a.logger.Info().
				Str("encoding", strategy.Name).
				Msg("Authenticated")
			a.logger.Debug().Int("token_length", len(token)).Msg("Token received")
			return token, nil
		}

		loginAttemptsTotal.WithLabelValues(strategy.Name, "failure").Inc()
		a.logger.Warn().
			Err(err).
			Str("encoding", strategy.Name).
			Msg("Login attempt yielded no token")
		failures = append(failures, &AttemptError{Strategy: strategy.Name, Err: err})

		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Join(append([]error{ErrAuthenticationFailed}, failures...)...)
}

func (a *Authenticator) attempt(ctx context.Context, strategy Strategy, creds Credentials) (string, error) {
	res, err := a.doer.Do(ctx, strategy.Build(a.signInURL, creds))
	if err != nil {
		return "", err
	}

	a.logger.Debug().
		Str("encoding", strategy.Name).
		Int("status", res.StatusCode).
		Msg("Sign-in response")

	token, ok := ExtractToken(parseLoginBody(res.Body))
	if !ok {
		return "", fmt.Errorf("%w (status %d)", errNoToken, res.StatusCode)
	}
	return token, nil
}

func baseRequest(signInURL string) client.Request {
	return client.Request{
		Method: http.MethodPost,
		URL:    signInURL,
		Headers: map[string]string{
			"Accept":  "application/json, */*",
			"Origin":  originOf(signInURL),
			"Referer": signInURL,
		},
	}
}

func payload(creds Credentials) map[string]string {
	return map[string]string{
		"loginid":  creds.LoginID,
		"password": creds.Password,
	}
}

// originOf returns scheme://host of rawURL.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
