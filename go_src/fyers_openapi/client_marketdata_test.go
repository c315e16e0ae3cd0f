package fyers_openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

func TestHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/history" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"symbol": "NSE:SBIN-EQ", "resolution": "D", "date_format": "1",
			"range_from": "2024-01-01", "range_to": "2024-01-31", "cont_flag": "1",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("Query %s: expected %q, got %q", k, v, q.Get(k))
			}
		}
		fmt.Fprint(w, `{"s":"ok","candles":[[1704067200,640.5,650,638,648.2,1200345],[1704153600,648,652,641,645,998877]]}`)
	})

	resp, err := client.History(context.Background(), HistoryParams{
		Symbol: "NSE:SBIN-EQ", Resolution: "D", DateFormat: DateFormatYMD,
		RangeFrom: "2024-01-01", RangeTo: "2024-01-31", Continuous: true,
	})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(resp.Candles) != 2 || resp.Candles[0][0] != 1704067200 || resp.Candles[1][5] != 998877 {
		t.Errorf("Unexpected candles: %v", resp.Candles)
	}
}

func TestHistoryNoDataIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"no_data","candles":[]}`)
	})
	resp, err := client.History(context.Background(), HistoryParams{Symbol: "NSE:SBIN-EQ", Resolution: "D", DateFormat: 1, RangeFrom: "2024-01-06", RangeTo: "2024-01-07"})
	if err != nil {
		t.Fatalf("no_data should not fail, got %v", err)
	}
	if len(resp.Candles) != 0 {
		t.Errorf("Expected no candles, got %v", resp.Candles)
	}
}

func TestHistoryBrokerErrorIsDataUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"error","code":-300,"message":"Please provide a valid symbol"}`)
	})
	_, err := client.History(context.Background(), HistoryParams{Symbol: "NSE:NOPE-EQ", Resolution: "D", DateFormat: 1, RangeFrom: "2024-01-01", RangeTo: "2024-01-31"})
	var noData *trade_exceptions.DataUnavailableError
	if !errors.As(err, &noData) {
		t.Fatalf("Expected DataUnavailableError, got %T: %v", err, err)
	}
	if noData.Symbol != "NSE:NOPE-EQ" || noData.From != "2024-01-01" {
		t.Errorf("Unexpected error fields: %+v", noData)
	}
}

func TestHistoryExpiredSessionStaysAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"error","code":-8,"message":"Your token has expired"}`)
	})
	_, err := client.History(context.Background(), HistoryParams{Symbol: "NSE:SBIN-EQ", Resolution: "D", DateFormat: 1, RangeFrom: "2024-01-01", RangeTo: "2024-01-31"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.SessionExpired() {
		t.Fatalf("Expected expired-session APIError, got %v", err)
	}
}

func TestHistoryRequestValidation(t *testing.T) {
	client, _ := NewClient(rest_client.NewHTTPExecutor(0, nil), testClientID, "tok")
	cases := []HistoryParams{
		{Resolution: "D", DateFormat: 1, RangeFrom: "a", RangeTo: "b"},
		{Symbol: "NSE:SBIN-EQ", DateFormat: 1, RangeFrom: "a", RangeTo: "b"},
		{Symbol: "NSE:SBIN-EQ", Resolution: "D", DateFormat: 1},
		{Symbol: "NSE:SBIN-EQ", Resolution: "D", DateFormat: 7, RangeFrom: "a", RangeTo: "b"},
	}
	for i, p := range cases {
		if _, err := client.HistoryRequest(p); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestQuotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbols") != "NSE:SBIN-EQ,NSE:TCS-EQ" {
			t.Errorf("Unexpected symbols param %q", r.URL.Query().Get("symbols"))
		}
		fmt.Fprint(w, `{"s":"ok","d":[{"n":"NSE:SBIN-EQ","s":"ok","v":{"lp":645.2,"ch":1.2}},{"n":"NSE:TCS-EQ","s":"ok","v":{"lp":3900}}]}`)
	})
	resp, err := client.Quotes(context.Background(), []string{"NSE:SBIN-EQ", "NSE:TCS-EQ"})
	if err != nil {
		t.Fatalf("Quotes failed: %v", err)
	}
	if len(resp.D) != 2 || resp.D[0].V.LP != 645.2 {
		t.Errorf("Unexpected quotes: %+v", resp.D)
	}

	symbols := strings.Split(strings.Repeat("NSE:X-EQ,", MaxQuoteSymbols+1), ",")[:MaxQuoteSymbols+1]
	if _, err := client.QuotesRequest(symbols); err == nil {
		t.Error("Expected error above the symbol limit")
	}
	if _, err := client.QuotesRequest(nil); err == nil {
		t.Error("Expected error for no symbols")
	}
}

func TestDepthAndMarketStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/depth":
			if r.URL.Query().Get("ohlcv_flag") != "1" {
				t.Errorf("Expected ohlcv_flag=1, got %s", r.URL.Query().Get("ohlcv_flag"))
			}
			fmt.Fprint(w, `{"s":"ok","d":{"NSE:SBIN-EQ":{"totalbuyqty":100,"bids":[{"price":645,"volume":10,"ord":2}],"ltp":645.1}}}`)
		case "/data/marketStatus":
			fmt.Fprint(w, `{"s":"ok","marketStatus":[{"exchange":10,"segment":10,"market_type":"NORMAL","status":"OPEN"}]}`)
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	depth, err := client.Depth(ctx, "NSE:SBIN-EQ", true)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if d := depth.D["NSE:SBIN-EQ"]; d.TotalBuyQty != 100 || len(d.Bids) != 1 || d.Bids[0].Ord != 2 {
		t.Errorf("Unexpected depth: %+v", depth.D)
	}

	status, err := client.MarketStatus(ctx)
	if err != nil {
		t.Fatalf("MarketStatus failed: %v", err)
	}
	if len(status.MarketStatus) != 1 || status.MarketStatus[0].Status != "OPEN" {
		t.Errorf("Unexpected market status: %+v", status.MarketStatus)
	}
}
