package fyers_authen

import (
	"time"

	"fyersbot/go_src/trade_exceptions"
)

// AuthState tracks how far one login attempt got.
type AuthState int

const (
	StateInit AuthState = iota
	StateOTPSent
	StateTOTPVerified
	StatePINVerified
	StateAuthCodeIssued
	StateTokenIssued
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateOTPSent:
		return "OTPSent"
	case StateTOTPVerified:
		return "TOTPVerified"
	case StatePINVerified:
		return "PINVerified"
	case StateAuthCodeIssued:
		return "AuthCodeIssued"
	case StateTokenIssued:
		return "TokenIssued"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// AuthSession accumulates what each login step hands to the next.
// It belongs to a single attempt and is not safe for concurrent use.
type AuthSession struct {
	State       AuthState
	ClientID    string
	RequestKey  string
	LoginToken  string
	RedirectURL string
	AuthCode    string
	AccessToken string
	IssuedAt    time.Time
}

func newAuthSession(clientID string) *AuthSession {
	return &AuthSession{State: StateInit, ClientID: clientID}
}

// Valid reports whether the session carries a usable access token.
func (s *AuthSession) Valid() bool {
	return s != nil && s.State == StateTokenIssued && s.AccessToken != ""
}

func require(step, field, value string) error {
	if value == "" {
		return &trade_exceptions.ProtocolOrderError{Step: step, Field: field}
	}
	return nil
}
