package trade_exceptions

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is returned for invalid parameters detected before any I/O.
type ConfigurationError struct {
	Message string
	Key     string // Config key or parameter name that was problematic
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ConfigurationError: %s (Key: %s)", e.Message, e.Key)
}

// ProtocolOrderError signals that a login step ran without the field its predecessor
// should have produced.
type ProtocolOrderError struct {
	Step  string
	Field string
}

func (e *ProtocolOrderError) Error() string {
	return fmt.Sprintf("ProtocolOrderError: step '%s' requires '%s' which was not produced by the previous step", e.Step, e.Field)
}

// TransientNetworkError wraps transport failures and timeouts.
type TransientNetworkError struct {
	Message  string
	Method   string
	Endpoint string
	Err      error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("TransientNetworkError: %s %s: %s: %v", e.Method, e.Endpoint, e.Message, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// AuthRejectedError is returned when the broker refuses a credential (OTP, PIN, auth code).
type AuthRejectedError struct {
	Step       string
	StatusCode int
	Message    string
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("AuthRejectedError: %s rejected (Status: %d): %s", e.Step, e.StatusCode, e.Message)
}

// DataUnavailableError means the broker returned no candles for the requested symbol/range.
type DataUnavailableError struct {
	Symbol  string
	From    string
	To      string
	Message string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("DataUnavailableError: no data for %s between %s and %s: %s", e.Symbol, e.From, e.To, e.Message)
}

// ApiRequestException is returned by the request executor for non-2xx/3xx responses.
type ApiRequestException struct {
	Message    string
	Method     string
	Endpoint   string
	StatusCode int
	Response   string // raw response body
}

func (e *ApiRequestException) Error() string {
	resp := e.Response
	if len(resp) > 200 {
		resp = resp[:200] + "..."
	}
	return fmt.Sprintf("ApiRequestException: Failed API request %s %s (Status: %d): %s. Response: %s", e.Method, e.Endpoint, e.StatusCode, e.Message, resp)
}

// ParseError is returned when a response body is neither JSON nor text.
type ParseError struct {
	Message  string
	Endpoint string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ParseError: %s (Endpoint: %s)", e.Message, e.Endpoint)
}

// IsRetryable reports whether err is worth another attempt.
// Configuration, protocol-order, auth rejections, missing data and parse failures are final.
// Errors that classify themselves through a Retryable() method are trusted.
// Request errors are retried only for 5xx and 429. Unknown errors are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var cfgErr *ConfigurationError
	var orderErr *ProtocolOrderError
	var authErr *AuthRejectedError
	var noData *DataUnavailableError
	var parseErr *ParseError
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &orderErr), errors.As(err, &authErr),
		errors.As(err, &noData), errors.As(err, &parseErr):
		return false
	}

	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}

	var netErr *TransientNetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var reqErr *ApiRequestException
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode >= http.StatusInternalServerError || reqErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
