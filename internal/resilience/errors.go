// Package resilience provides the timeout, retry and circuit-breaker wrapper
// used around every upstream rating source.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Code classifies engine failures. Codes surface in diagnostics and per-agency
// validation results; they never escape the engine as raised errors.
type Code string

const (
	CodeTimeout          Code = "TIMEOUT"
	CodeCircuitOpen      Code = "CIRCUIT_BREAKER_OPEN"
	CodeNotRated         Code = "NOT_RATED"
	CodeFetchError       Code = "FETCH_ERROR"
	CodeInvalidRating    Code = "INVALID_RATING_VALUE"
	CodeInvalidOutlook   Code = "INVALID_OUTLOOK"
	CodeMissingDate      Code = "MISSING_DATE"
	CodeStaleRating      Code = "STALE_RATING"
	CodeFutureDate       Code = "FUTURE_DATE"
	CodeMissingSourceRef Code = "MISSING_SOURCE_REF"
	CodeUnknown          Code = "UNKNOWN"
)

// RatingsError is the tagged error type used across the engine.
type RatingsError struct {
	Code       Code
	Dependency string
	Err        error
}

func (e *RatingsError) Error() string {
	dep := e.Dependency
	if dep == "" {
		dep = "engine"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", dep, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", dep, e.Code)
}

func (e *RatingsError) Unwrap() error {
	return e.Err
}

// NewError builds a RatingsError for a dependency.
func NewError(code Code, dependency string, err error) *RatingsError {
	return &RatingsError{Code: code, Dependency: dependency, Err: err}
}

// Errorf builds a RatingsError from a formatted message.
func Errorf(code Code, dependency, format string, args ...any) *RatingsError {
	return &RatingsError{Code: code, Dependency: dependency, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the Code from an error chain, defaulting to UNKNOWN.
func CodeOf(err error) Code {
	var re *RatingsError
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsTransient reports whether an error looks retryable: an explicit
// TIMEOUT/FETCH_ERROR code, a network timeout, or a connection-level failure.
// NOT_RATED and circuit rejections are definitive and never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch CodeOf(err) {
	case CodeTimeout, CodeFetchError:
		return true
	case CodeCircuitOpen, CodeNotRated:
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
