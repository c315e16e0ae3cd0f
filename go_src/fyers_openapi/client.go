package fyers_openapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"

	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIBaseURL  = "https://api-t1.fyers.in/api/v3"
	DefaultDataBaseURL = "https://api-t1.fyers.in/data"

	apiVersion = "3"

	StatusOK     = "ok"
	StatusError  = "error"
	StatusNoData = "no_data"
)

// Client is an authenticated handle on the Fyers account, order and data endpoints.
// Every operation has a pure XxxRequest builder; the executing method runs it through the executor.
type Client struct {
	executor    rest_client.Executor
	clientID    string
	accessToken string
	apiBaseURL  string
	dataBaseURL string
}

func NewClient(executor rest_client.Executor, clientID, accessToken string) (*Client, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if clientID == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "client id is required", Key: "fyers.app_id"}
	}
	if accessToken == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "access token is required", Key: "access_token"}
	}
	return &Client{
		executor:    executor,
		clientID:    clientID,
		accessToken: accessToken,
		apiBaseURL:  DefaultAPIBaseURL,
		dataBaseURL: DefaultDataBaseURL,
	}, nil
}

func (c *Client) SetAPIBaseURL(baseURL string) {
	c.apiBaseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) SetDataBaseURL(baseURL string) {
	c.dataBaseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": c.clientID + ":" + c.accessToken,
		"version":       apiVersion,
	}
}

func (c *Client) newRequest(method, baseURL, path string, params url.Values, body interface{}) *rest_client.Request {
	return &rest_client.Request{
		Method:  method,
		URL:     baseURL + path,
		Headers: c.headers(),
		Params:  params,
		JSON:    body,
	}
}

// envelope is implemented by every response type through the embedded BaseResponse.
type envelope interface {
	base() *BaseResponse
}

// do executes req and decodes the body into out. A broker-level "s":"error" becomes an *APIError.
func (c *Client) do(ctx context.Context, req *rest_client.Request, out envelope) error {
	endpoint := endpointOf(req.URL)
	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return &trade_exceptions.ParseError{Message: fmt.Sprintf("failed to decode response: %v", err), Endpoint: endpoint}
	}
	b := out.base()
	if b.S == StatusError {
		logrus.Debugf("Fyers API %s %s returned error code %d: %s", req.Method, endpoint, b.Code, b.Message)
		return &APIError{Method: req.Method, Endpoint: endpoint, Code: b.Code, Message: b.Message}
	}
	return nil
}

func endpointOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
