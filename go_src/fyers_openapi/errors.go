package fyers_openapi

import "fmt"

// Codes Fyers uses for throttling and expired sessions.
const (
	codeRateLimited  = 429
	codeInvalidToken = -16
	codeTokenExpired = -8
)

// APIError is a request that reached Fyers and was answered with "s":"error".
type APIError struct {
	Method   string
	Endpoint string
	Code     int
	Message  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if len(msg) > 100 {
		msg = msg[:100] + "..."
	}
	return fmt.Sprintf("Fyers API Error (%s %s, code %d): %s", e.Method, e.Endpoint, e.Code, msg)
}

// Retryable is consulted by trade_exceptions.IsRetryable. Only throttling is worth repeating.
func (e *APIError) Retryable() bool {
	return e.Code == codeRateLimited || e.Code == -codeRateLimited
}

// SessionExpired reports whether the access token needs a fresh login.
func (e *APIError) SessionExpired() bool {
	return e.Code == codeInvalidToken || e.Code == codeTokenExpired
}
