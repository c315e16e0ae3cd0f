package fyers_authen

import (
	"crypto/sha256"
	"encoding/hex"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/trade_exceptions"
)

const DefaultRedirectURI = "https://trade.fyers.in/api-login/redirect-uri/index.html"

// Credentials are the static inputs of a login. Built once and passed by value.
type Credentials struct {
	AppID       string
	AppType     string
	SecretKey   string
	FyersID     string
	TOTPKey     string
	PIN         string
	RedirectURI string
}

// CredentialsFromConfig copies the fyers section of the configuration.
func CredentialsFromConfig(cfg configuration.Fyers) Credentials {
	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}
	return Credentials{
		AppID:       cfg.AppID,
		AppType:     cfg.AppType,
		SecretKey:   cfg.SecretKey,
		FyersID:     cfg.FyersID,
		TOTPKey:     cfg.TOTPKey,
		PIN:         cfg.UserPin,
		RedirectURI: redirect,
	}
}

// ClientID is the "<app id>-<app type>" identifier used in data call headers.
func (c Credentials) ClientID() string {
	return c.AppID + "-" + c.AppType
}

// AppIDHash is sha256("<client id>:<secret>") in hex, as the auth code exchange expects.
func (c Credentials) AppIDHash() string {
	sum := sha256.Sum256([]byte(c.ClientID() + ":" + c.SecretKey))
	return hex.EncodeToString(sum[:])
}

// Validate reports the first missing credential.
func (c Credentials) Validate() error {
	required := []struct {
		key, value string
	}{
		{"fyers.app_id", c.AppID},
		{"fyers.app_type", c.AppType},
		{"fyers.secret_key", c.SecretKey},
		{"fyers.fyers_id", c.FyersID},
		{"fyers.totp_key", c.TOTPKey},
		{"fyers.userpin", c.PIN},
		{"fyers.redirect_uri", c.RedirectURI},
	}
	for _, r := range required {
		if r.value == "" {
			return &trade_exceptions.ConfigurationError{Message: "missing fyers credential", Key: r.key}
		}
	}
	return nil
}
