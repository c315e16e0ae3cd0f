package fyers_authen

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// totpCode produces the 6-digit code for the seed at t. Tests replace it.
var totpCode = func(seed string, t time.Time) (string, error) {
	code, err := totp.GenerateCode(strings.ToUpper(strings.ReplaceAll(seed, " ", "")), t)
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP: %w", err)
	}
	return code, nil
}
