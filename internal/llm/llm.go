// Package llm talks to hosted text-generation models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Options controls one generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	KindQuota          ErrorKind = "quota"
	KindTimeout        ErrorKind = "timeout"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindServer         ErrorKind = "server"
	KindEmpty          ErrorKind = "empty_response"
	KindUnknown        ErrorKind = "unknown"
)

// APIError is a typed failure from a generation provider.
type APIError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s error (status %d): %s", e.Provider, e.Kind, e.StatusCode, truncate(e.Message, 200))
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, truncate(e.Message, 200))
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the same call may succeed later.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindQuota, KindTimeout, KindServer:
		return true
	}
	return false
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// kindForStatus maps an HTTP status to an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		return KindQuota
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindInvalidRequest
	}
	return KindUnknown
}

// transportError wraps a failed HTTP round trip.
func transportError(provider string, err error) *APIError {
	kind := KindUnknown
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &APIError{Provider: provider, Kind: kind, Message: err.Error(), Err: err}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
