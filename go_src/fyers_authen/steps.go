package fyers_authen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

const (
	StepSendLoginOTP        = "Send login OTP"
	StepVerifyTOTP          = "Verify TOTP"
	StepVerifyPIN           = "Verify PIN"
	StepGenerateAuthCode    = "Generate Auth Code"
	StepGenerateAccessToken = "Generate Access Token"

	pathSendLoginOTP     = "/send_login_otp"
	pathVerifyOTP        = "/verify_otp"
	pathVerifyPIN        = "/verify_pin"
	pathToken            = "/token"
	pathValidateAuthCode = "/validate-authcode"
)

// stepResponse covers the fields any login endpoint may answer with.
type stepResponse struct {
	S           string `json:"s"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	RequestKey  string `json:"request_key"`
	URL         string `json:"Url"`
	AccessToken string `json:"access_token"`
	Data        struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// loginStep builds one request from the session and stores what the answer adds to it.
type loginStep struct {
	name  string
	next  AuthState
	build func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error)
	apply func(s *AuthSession, r *stepResponse) error
}

var loginSteps = []loginStep{
	{
		name: StepSendLoginOTP,
		next: StateOTPSent,
		build: func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error) {
			return a.SendLoginOTPRequest(), nil
		},
		apply: func(s *AuthSession, r *stepResponse) error {
			s.RequestKey = r.RequestKey
			return nil
		},
	},
	{
		name:  StepVerifyTOTP,
		next:  StateTOTPVerified,
		build: func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error) { return a.VerifyTOTPRequest(s) },
		apply: func(s *AuthSession, r *stepResponse) error {
			s.RequestKey = r.RequestKey
			return nil
		},
	},
	{
		name:  StepVerifyPIN,
		next:  StatePINVerified,
		build: func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error) { return a.VerifyPINRequest(s) },
		apply: func(s *AuthSession, r *stepResponse) error {
			s.LoginToken = r.Data.AccessToken
			return nil
		},
	},
	{
		name:  StepGenerateAuthCode,
		next:  StateAuthCodeIssued,
		build: func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error) { return a.GenerateAuthCodeRequest(s) },
		apply: func(s *AuthSession, r *stepResponse) error {
			s.RedirectURL = r.URL
			if r.URL == "" {
				return nil
			}
			u, err := url.Parse(r.URL)
			if err != nil {
				return &trade_exceptions.ParseError{Message: fmt.Sprintf("invalid redirect url: %v", err), Endpoint: pathToken}
			}
			s.AuthCode = u.Query().Get("auth_code")
			return nil
		},
	},
	{
		name:  StepGenerateAccessToken,
		next:  StateTokenIssued,
		build: func(a *FyersAuth, s *AuthSession) (*rest_client.Request, error) { return a.GenerateAccessTokenRequest(s) },
		apply: func(s *AuthSession, r *stepResponse) error {
			if r.AccessToken == "" {
				return &trade_exceptions.ParseError{Message: "access_token missing from response", Endpoint: pathValidateAuthCode}
			}
			s.AccessToken = r.AccessToken
			return nil
		},
	},
}

// SendLoginOTPRequest builds step 1.
func (a *FyersAuth) SendLoginOTPRequest() *rest_client.Request {
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    a.loginBaseURL + pathSendLoginOTP,
		JSON:   map[string]string{"fy_id": a.creds.FyersID, "app_id": a.creds.AppID},
	}
}

// VerifyTOTPRequest builds step 2 with a code generated now.
func (a *FyersAuth) VerifyTOTPRequest(s *AuthSession) (*rest_client.Request, error) {
	if err := require(StepVerifyTOTP, "request_key", s.RequestKey); err != nil {
		return nil, err
	}
	code, err := totpCode(a.creds.TOTPKey, a.now())
	if err != nil {
		return nil, &trade_exceptions.ConfigurationError{Message: err.Error(), Key: "fyers.totp_key"}
	}
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    a.loginBaseURL + pathVerifyOTP,
		JSON:   map[string]string{"request_key": s.RequestKey, "otp": code},
	}, nil
}

// VerifyPINRequest builds step 3.
func (a *FyersAuth) VerifyPINRequest(s *AuthSession) (*rest_client.Request, error) {
	if err := require(StepVerifyPIN, "request_key", s.RequestKey); err != nil {
		return nil, err
	}
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    a.loginBaseURL + pathVerifyPIN,
		JSON: map[string]string{
			"request_key":     s.RequestKey,
			"identity_type":   "pin",
			"identifier":      a.creds.PIN,
			"recaptcha_token": "",
		},
	}, nil
}

// GenerateAuthCodeRequest builds step 4, authorised by the PIN step's login token.
func (a *FyersAuth) GenerateAuthCodeRequest(s *AuthSession) (*rest_client.Request, error) {
	if err := require(StepGenerateAuthCode, "login_token", s.LoginToken); err != nil {
		return nil, err
	}
	return &rest_client.Request{
		Method:  http.MethodPost,
		URL:     a.apiBaseURL + pathToken,
		Headers: map[string]string{"Authorization": "Bearer " + s.LoginToken},
		JSON: map[string]interface{}{
			"fyers_id":       a.creds.FyersID,
			"app_id":         a.creds.AppID,
			"redirect_uri":   a.creds.RedirectURI,
			"appType":        a.creds.AppType,
			"code_challenge": "",
			"state":          "None",
			"scope":          "",
			"nonce":          "",
			"response_type":  "code",
			"create_cookie":  true,
		},
	}, nil
}

// GenerateAccessTokenRequest builds step 5, exchanging the auth code.
func (a *FyersAuth) GenerateAccessTokenRequest(s *AuthSession) (*rest_client.Request, error) {
	if err := require(StepGenerateAccessToken, "auth_code", s.AuthCode); err != nil {
		return nil, err
	}
	return &rest_client.Request{
		Method: http.MethodPost,
		URL:    a.apiBaseURL + pathValidateAuthCode,
		JSON: map[string]string{
			"grant_type": "authorization_code",
			"appIdHash":  a.creds.AppIDHash(),
			"code":       s.AuthCode,
		},
	}, nil
}

// runStep executes one step and records its output in s. It returns the broker's message.
func (a *FyersAuth) runStep(ctx context.Context, step loginStep, s *AuthSession) (string, error) {
	req, err := step.build(a, s)
	if err != nil {
		return "", err
	}
	resp, err := a.executor.Execute(ctx, req)
	if err != nil {
		return "", classifyStepError(step.name, err)
	}

	var body stepResponse
	if err := resp.Decode(&body); err != nil {
		return "", &trade_exceptions.ParseError{Message: fmt.Sprintf("%s: %v", step.name, err), Endpoint: endpointOf(req.URL)}
	}
	if body.S == "error" {
		return "", &trade_exceptions.AuthRejectedError{Step: step.name, StatusCode: body.Code, Message: body.Message}
	}
	if err := step.apply(s, &body); err != nil {
		return "", err
	}
	s.State = step.next
	return body.Message, nil
}

// classifyStepError turns a 4xx refusal into an AuthRejectedError. Throttling, server and
// network failures are returned unchanged so the login policy can retry them.
func classifyStepError(step string, err error) error {
	var reqErr *trade_exceptions.ApiRequestException
	if errors.As(err, &reqErr) && reqErr.StatusCode >= 400 && reqErr.StatusCode < 500 && reqErr.StatusCode != http.StatusTooManyRequests {
		return &trade_exceptions.AuthRejectedError{Step: step, StatusCode: reqErr.StatusCode, Message: reqErr.Message}
	}
	return err
}

func endpointOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	return rawURL
}
