package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"
)

var (
	// ErrNotFound matches upstream 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited matches upstream 403 and 429 responses.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthenticated is returned for calls that need a token when none is configured.
	ErrUnauthenticated = errors.New("GitHub token required")
)

// Error kinds returned by KindOf.
const (
	KindTransport   = "transport"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindUpstream    = "upstream"
	KindOther       = "other"
)

// TransportError is a call that produced no HTTP response: network failure or timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream returned %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrNotFound and ErrRateLimited by status code.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// StatusError builds the error for a non-2xx status seen outside go-github.
func StatusError(op string, statusCode int) error {
	return &UpstreamError{Op: op, StatusCode: statusCode}
}

// RequestError builds the error for a request that got no response.
func RequestError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	var transportErr *TransportError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.As(err, &transportErr):
		return KindTransport
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return KindUpstream
	}
	return KindOther
}

// normalizeError maps a go-github call outcome onto the error taxonomy.
func normalizeError(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return &UpstreamError{Op: op, StatusCode: http.StatusForbidden, Err: err}
	case resp == nil || resp.Response == nil:
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return &TransportError{Op: op, Err: err}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: err}
	default:
		// 2xx with an undecodable body.
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
}
