package rest_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"fyersbot/go_src/trade_exceptions"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 5 * time.Second

// Executor turns a Request into a parsed Response or a typed failure.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// HTTPExecutor is the net/http backed Executor.
type HTTPExecutor struct {
	httpClient     *http.Client
	rateLimiter    *RateLimiter
	defaultTimeout time.Duration
}

// NewHTTPExecutor builds an executor with the given default per-request timeout.
// A nil limiter disables rate limiting.
func NewHTTPExecutor(timeout time.Duration, limiter *RateLimiter) *HTTPExecutor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPExecutor{
		httpClient: &http.Client{
			// 3xx answers are handed back as-is; the Fyers token step replies with a 308 and a JSON body.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		rateLimiter:    limiter,
		defaultTimeout: timeout,
	}
}

// Execute validates the method, dispatches the request and decodes the body.
// A 429 is retried once after the rate limiter has absorbed Retry-After.
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if err := ValidateMethod(method); err != nil {
		return nil, &trade_exceptions.ConfigurationError{Message: err.Error(), Key: "method"}
	}

	fullURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("invalid url: %v", err), Key: "url"}
	}
	if len(req.Params) > 0 {
		q := fullURL.Query()
		for k, vs := range req.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		fullURL.RawQuery = q.Encode()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	var httpResp *http.Response
	var body []byte
	for attempt := 0; attempt < 2; attempt++ {
		if e.rateLimiter != nil {
			if err := e.rateLimiter.Wait(ctx); err != nil {
				return nil, &trade_exceptions.TransientNetworkError{Message: "rate limiter wait interrupted", Method: method, Endpoint: fullURL.Path, Err: err}
			}
		}

		httpResp, body, err = e.roundTrip(ctx, method, fullURL.String(), req.Headers, payload, contentType, timeout)
		if err != nil {
			return nil, &trade_exceptions.TransientNetworkError{Message: "request failed", Method: method, Endpoint: fullURL.Path, Err: err}
		}
		if httpResp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			logrus.Warnf("Rate limit hit (429). Waiting as per rate limiter and retrying once for %s %s.", method, fullURL.Path)
			if e.rateLimiter != nil {
				e.rateLimiter.UpdateLimits(httpResp.Header)
			}
			continue
		}
		break
	}

	if httpResp.StatusCode >= 400 || httpResp.StatusCode < 200 {
		return nil, &trade_exceptions.ApiRequestException{
			Message:    errorMessage(httpResp, body),
			Method:     method,
			Endpoint:   fullURL.Path,
			StatusCode: httpResp.StatusCode,
			Response:   string(body),
		}
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	var parsed interface{}
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		resp.Data = parsed
		resp.IsJSON = true
	} else if utf8.Valid(body) {
		resp.Data = string(body)
	} else {
		return nil, &trade_exceptions.ParseError{Message: "response body is neither JSON nor text", Endpoint: fullURL.Path}
	}
	return resp, nil
}

func (e *HTTPExecutor) roundTrip(ctx context.Context, method, target string, headers map[string]string, payload []byte, contentType string, timeout time.Duration) (*http.Response, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create HTTP request for %s %s: %w", method, target, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	logrus.Debugf("API Request: %s %s", method, httpReq.URL.Redacted())

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return httpResp, body, nil
}

// encodeBody builds the request body. Files switch to multipart and carry Form as extra fields.
func encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case len(req.Files) > 0:
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for k, vs := range req.Form {
			for _, v := range vs {
				if err := mw.WriteField(k, v); err != nil {
					return nil, "", err
				}
			}
		}
		for field, path := range req.Files {
			if err := attachFile(mw, field, path); err != nil {
				return nil, "", err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), mw.FormDataContentType(), nil
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal JSON body: %w", err)
		}
		return b, "application/json", nil
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	}
	return nil, "", nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for field '%s': %w", field, err)
	}
	defer f.Close()
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// errorMessage pulls the broker's "message" out of an error body, falling back to the status text.
func errorMessage(resp *http.Response, body []byte) string {
	var envelope struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Description != "" {
			return envelope.Description
		}
	}
	return resp.Status
}
