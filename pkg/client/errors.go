package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport errors (DNS, refused, timeout).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassStatus represents a response with an unexpected status code.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassParse represents a response body that is not valid JSON.
	ErrorClassParse ErrorClass = "parse"
)

// RequestError describes a failed request to the remote API.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	switch e.Class {
	case ErrorClassStatus:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	case ErrorClassParse:
		return fmt.Sprintf("%s %s: invalid JSON (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Class, e.Err)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of err if it wraps a *RequestError, or "".
func ClassOf(err error) ErrorClass {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Class
	}
	return ""
}
