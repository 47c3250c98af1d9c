// Package credentials resolves the sign-in login id and password from an
// ordered list of sources, falling back to an interactive prompt.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/growappt-crawler/pkg/auth"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
)

// Environment variables read by Env.
const (
	EnvLoginID  = "GROWAPPT_LOGIN_ID"
	EnvPassword = "GROWAPPT_PASSWORD"
)

// Field identifies one credential value.
type Field string

const (
	FieldLoginID  Field = "loginid"
	FieldPassword Field = "password"
)

// ErrMissing is returned when no source yields a value for a field.
var ErrMissing = errors.New("credential not provided")

// Source supplies credential values. An empty value with a nil error means
// the source has nothing for that field.
type Source interface {
	Name() string
	Value(field Field) (string, error)
}

// Static returns values given up front, e.g. from flags or a config file.
func Static(name, loginID, password string) Source {
	return staticSource{name: name, values: map[Field]string{
		FieldLoginID:  loginID,
		FieldPassword: password,
	}}
}

type staticSource struct {
	name   string
	values map[Field]string
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Value(field Field) (string, error) {
	return s.values[field], nil
}

// Env reads GROWAPPT_LOGIN_ID and GROWAPPT_PASSWORD. A nil getenv uses os.Getenv.
func Env(getenv func(string) string) Source {
	if getenv == nil {
		getenv = os.Getenv
	}
	return envSource{getenv: getenv}
}

type envSource struct {
	getenv func(string) string
}

func (envSource) Name() string { return "env" }

func (s envSource) Value(field Field) (string, error) {
	switch field {
	case FieldLoginID:
		return s.getenv(EnvLoginID), nil
	case FieldPassword:
		return s.getenv(EnvPassword), nil
	}
	return "", nil
}

// Prompt asks the user; the password is read without echo.
func Prompt(p Prompter) Source {
	return promptSource{prompter: p}
}

type promptSource struct {
	prompter Prompter
}

func (promptSource) Name() string { return "prompt" }

func (s promptSource) Value(field Field) (string, error) {
	switch field {
	case FieldLoginID:
		return s.prompter.Ask("Login ID")
	case FieldPassword:
		return s.prompter.Secret("Password")
	}
	return "", nil
}

// Resolver consults sources in order and keeps the first non-empty value
// per field. Later sources are not consulted once a field is filled.
type Resolver struct {
	sources []Source
	logger  zerolog.Logger
}

// NewResolver returns a resolver over sources, highest priority first.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  logging.NewLogger(logging.ComponentAuth),
	}
}

// Resolve returns both credentials or an error wrapping ErrMissing.
func (r *Resolver) Resolve() (auth.Credentials, error) {
	loginID, err := r.resolve(FieldLoginID)
	if err != nil {
		return auth.Credentials{}, err
	}
	password, err := r.resolve(FieldPassword)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{LoginID: loginID, Password: password}, nil
}

func (r *Resolver) resolve(field Field) (string, error) {
	for _, src := range r.sources {
		v, err := src.Value(field)
		if err != nil {
			return "", fmt.Errorf("read %s from %s: %w", field, src.Name(), err)
		}
		if strings.TrimSpace(v) != "" {
			r.logger.Debug().Str("field", string(field)).Str("source", src.Name()).Msg("Credential resolved")
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissing, field)
}
