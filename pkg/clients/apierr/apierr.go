// Package apierr defines the error taxonomy shared by all
// blockchain-intelligence provider adapters. Every provider failure carries
// a machine-readable code and a human-readable message derived from the
// HTTP status of the upstream response.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a provider failure.
type Code string

const (
	CodeBadRequest  Code = "bad_request"
	CodeAuthFailed  Code = "auth_failed"
	CodeNotFound    Code = "not_found"
	CodeTimeout     Code = "timeout"
	CodeDeprecated  Code = "endpoint_deprecated"
	CodeRateLimited Code = "rate_limited"
	CodeUpstream    Code = "upstream_error"
	CodeUnknown     Code = "api_error"

	// CodeConfig marks local misconfiguration (e.g. missing API key),
	// surfaced before any network call is made.
	CodeConfig Code = "config_error"
)

// Error is a classified provider failure.
type Error struct {
	Code     Code
	Status   int
	Provider string
	Message  string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%s, HTTP %d)", e.Provider, e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

// Config builds a configuration error for a provider.
func Config(provider, message string) *Error {
	return &Error{Code: CodeConfig, Provider: provider, Message: message}
}

// FromStatus classifies an HTTP status into a provider error.
// 2xx statuses return nil. Note that 404 is classified as CodeNotFound;
// adapters treat it as a valid empty result, not a failure.
func FromStatus(provider string, status int) *Error {
	if status >= 200 && status < 300 {
		return nil
	}

	var code Code
	var message string

	switch {
	case status == http.StatusBadRequest:
		code, message = CodeBadRequest, "bad request"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code, message = CodeAuthFailed, "authentication failed"
	case status == http.StatusNotFound:
		code, message = CodeNotFound, "not found"
	case status == http.StatusRequestTimeout:
		code, message = CodeTimeout, "request timed out"
	case status == http.StatusGone:
		code, message = CodeDeprecated, "endpoint deprecated"
	case status == http.StatusTooManyRequests:
		code, message = CodeRateLimited, "rate limited"
	case status >= 500:
		code, message = CodeUpstream, "upstream failure"
	default:
		code, message = CodeUnknown, fmt.Sprintf("unexpected status %d", status)
	}

	return &Error{Code: code, Status: status, Provider: provider, Message: message}
}

// IsNotFound reports whether err is a provider not-found error.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeNotFound
}

// IsRateLimited reports whether err is a provider rate-limit error.
func IsRateLimited(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeRateLimited
}
