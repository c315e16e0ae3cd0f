package fyers_openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

const testClientID = "XY1234-100"

// newTestClient points both base URLs at one httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(rest_client.NewHTTPExecutor(2*time.Second, nil), testClientID, "access-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	client.SetAPIBaseURL(server.URL + "/api/v3")
	client.SetDataBaseURL(server.URL + "/data/")
	return client
}

func TestNewClient(t *testing.T) {
	exec := rest_client.NewHTTPExecutor(0, nil)

	t.Run("Defaults", func(t *testing.T) {
		client, err := NewClient(exec, testClientID, "tok")
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.apiBaseURL != DefaultAPIBaseURL || client.dataBaseURL != DefaultDataBaseURL {
			t.Errorf("Unexpected base URLs: %s, %s", client.apiBaseURL, client.dataBaseURL)
		}
		if client.ClientID() != testClientID {
			t.Errorf("Expected client id %s, got %s", testClientID, client.ClientID())
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		_, err := NewClient(exec, testClientID, "")
		var cfgErr *trade_exceptions.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Expected ConfigurationError, got %v", err)
		}
	})

	t.Run("NilExecutor", func(t *testing.T) {
		if _, err := NewClient(nil, testClientID, "tok"); err == nil {
			t.Error("NewClient should fail for nil executor")
		}
	})
}

func TestRequestsCarryAuthorizationAndVersion(t *testing.T) {
	client, _ := NewClient(rest_client.NewHTTPExecutor(0, nil), testClientID, "tok")
	req, err := client.ProfileRequest()
	if err != nil {
		t.Fatalf("ProfileRequest failed: %v", err)
	}
	if req.Headers["Authorization"] != testClientID+":tok" {
		t.Errorf("Unexpected Authorization header: %s", req.Headers["Authorization"])
	}
	if req.Headers["version"] != "3" {
		t.Errorf("Expected version 3, got %s", req.Headers["version"])
	}
	if req.URL != DefaultAPIBaseURL+"/profile" || req.Method != http.MethodGet {
		t.Errorf("Unexpected request %s %s", req.Method, req.URL)
	}
}

func TestProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/profile" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != testClientID+":access-token" {
			t.Errorf("Unexpected Authorization header: %s", r.Header.Get("Authorization"))
		}
		fmt.Fprint(w, `{"s":"ok","code":200,"message":"","data":{"fy_id":"XY1234","name":"TEST USER","email_id":"t@example.com","totp":true}}`)
	})

	resp, err := client.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if resp.Data.FyID != "XY1234" || !resp.Data.TOTP {
		t.Errorf("Unexpected profile: %+v", resp.Data)
	}
}

func TestBrokerErrorBecomesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"error","code":-16,"message":"Could not authenticate the user"}`)
	})

	_, err := client.Funds(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != -16 || apiErr.Endpoint != "/api/v3/funds" {
		t.Errorf("Unexpected APIError: %+v", apiErr)
	}
	if !apiErr.SessionExpired() {
		t.Error("Code -16 should report an expired session")
	}
	if trade_exceptions.IsRetryable(err) {
		t.Error("Broker rejections should not be retried")
	}
}

func TestRateLimitedAPIErrorIsRetryable(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &APIError{Code: -429, Message: "request limit reached"})
	if !trade_exceptions.IsRetryable(err) {
		t.Error("Throttled API error should be retryable")
	}
}

func TestNonJSONBodyIsParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	})
	_, err := client.Holdings(context.Background())
	var parseErr *trade_exceptions.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestGetOrdersFiltersOrderbook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/orders" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"s":"ok","orderBook":[{"id":"A1","symbol":"NSE:SBIN-EQ"},{"id":"B2","symbol":"NSE:TCS-EQ"},{"id":"C3","symbol":"NSE:INFY-EQ"}]}`)
	})

	resp, err := client.GetOrders(context.Background(), "A1,C3", "Z9")
	if err != nil {
		t.Fatalf("GetOrders failed: %v", err)
	}
	if len(resp.OrderBook) != 2 || resp.OrderBook[0].ID != "A1" || resp.OrderBook[1].ID != "C3" {
		t.Errorf("Unexpected filtered orderbook: %+v", resp.OrderBook)
	}
}

func TestAccountEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/positions":
			fmt.Fprint(w, `{"s":"ok","netPositions":[{"id":"NSE:SBIN-EQ-INTRADAY","symbol":"NSE:SBIN-EQ","netQty":10,"pl":12.5}],"overall":{"count_total":1,"pl_total":12.5}}`)
		case "/api/v3/tradebook":
			fmt.Fprint(w, `{"s":"ok","tradeBook":[{"orderNumber":"O1","symbol":"NSE:SBIN-EQ","tradedQty":10,"tradePrice":600.5}]}`)
		case "/api/v3/holdings":
			fmt.Fprint(w, `{"s":"ok","holdings":[{"symbol":"NSE:TCS-EQ","quantity":3,"isin":"INE467B01029"}],"overall":{"count_total":1}}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	positions, err := client.Positions(ctx)
	if err != nil || len(positions.NetPositions) != 1 || positions.NetPositions[0].NetQty != 10 {
		t.Errorf("Positions: %v, %+v", err, positions)
	}
	trades, err := client.Tradebook(ctx)
	if err != nil || len(trades.TradeBook) != 1 || trades.TradeBook[0].TradePrice != 600.5 {
		t.Errorf("Tradebook: %v, %+v", err, trades)
	}
	holdings, err := client.Holdings(ctx)
	if err != nil || len(holdings.Holdings) != 1 || holdings.Holdings[0].ISIN != "INE467B01029" {
		t.Errorf("Holdings: %v, %+v", err, holdings)
	}
}

func decodeBody(t *testing.T, r *http.Request) interface{} {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Body is not JSON: %s", raw)
	}
	return v
}

func TestClientReturnsExecutorErrorsUnchanged(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.MarketStatus(context.Background())
	var reqErr *trade_exceptions.ApiRequestException
	if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("Expected 502 ApiRequestException, got %v", err)
	}
	if !strings.HasPrefix(reqErr.Endpoint, "/data/") {
		t.Errorf("Expected data endpoint, got %s", reqErr.Endpoint)
	}
}
