package fyers_openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

const (
	pathHistory      = "/history"
	pathQuotes       = "/quotes"
	pathDepth        = "/depth"
	pathMarketStatus = "/marketStatus"

	MaxQuoteSymbols = 50

	// DateFormatEpoch and DateFormatYMD select how range_from/range_to are read.
	DateFormatEpoch = 0
	DateFormatYMD   = 1
)

// HistoryParams are the query parameters of the history endpoint.
type HistoryParams struct {
	Symbol     string
	Resolution string
	DateFormat int
	RangeFrom  string
	RangeTo    string
	Continuous bool
}

func (p HistoryParams) values() url.Values {
	cont := "0"
	if p.Continuous {
		cont = "1"
	}
	return url.Values{
		"symbol":      {p.Symbol},
		"resolution":  {p.Resolution},
		"date_format": {strconv.Itoa(p.DateFormat)},
		"range_from":  {p.RangeFrom},
		"range_to":    {p.RangeTo},
		"cont_flag":   {cont},
	}
}

// HistoryRequest builds GET {data}/history.
func (c *Client) HistoryRequest(p HistoryParams) (*rest_client.Request, error) {
	if p.Symbol == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "history symbol is required", Key: "symbol"}
	}
	if p.Resolution == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "history resolution is required", Key: "resolution"}
	}
	if p.RangeFrom == "" || p.RangeTo == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "history range is required", Key: "range_from"}
	}
	if p.DateFormat != DateFormatEpoch && p.DateFormat != DateFormatYMD {
		return nil, &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("unknown date_format %d", p.DateFormat), Key: "date_format"}
	}
	return c.newRequest(http.MethodGet, c.dataBaseURL, pathHistory, p.values(), nil), nil
}

// History fetches candles for one range. "no_data" is an empty result; a broker error for
// the range is reported as *trade_exceptions.DataUnavailableError unless it is a throttle
// or an expired session.
func (c *Client) History(ctx context.Context, p HistoryParams) (*HistoryResponse, error) {
	req, err := c.HistoryRequest(p)
	if err != nil {
		return nil, err
	}
	out := &HistoryResponse{}
	if err := c.do(ctx, req, out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() && !apiErr.SessionExpired() {
			return nil, &trade_exceptions.DataUnavailableError{Symbol: p.Symbol, From: p.RangeFrom, To: p.RangeTo, Message: apiErr.Message}
		}
		return nil, err
	}
	return out, nil
}

// QuotesRequest builds GET {data}/quotes for up to MaxQuoteSymbols symbols.
func (c *Client) QuotesRequest(symbols []string) (*rest_client.Request, error) {
	if len(symbols) == 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: "at least one symbol is required", Key: "symbols"}
	}
	if len(symbols) > MaxQuoteSymbols {
		return nil, &trade_exceptions.ConfigurationError{
			Message: fmt.Sprintf("quotes accept at most %d symbols, got %d", MaxQuoteSymbols, len(symbols)),
			Key:     "symbols",
		}
	}
	params := url.Values{"symbols": {strings.Join(symbols, ",")}}
	return c.newRequest(http.MethodGet, c.dataBaseURL, pathQuotes, params, nil), nil
}

func (c *Client) Quotes(ctx context.Context, symbols []string) (*QuotesResponse, error) {
	req, err := c.QuotesRequest(symbols)
	if err != nil {
		return nil, err
	}
	out := &QuotesResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DepthRequest builds GET {data}/depth.
func (c *Client) DepthRequest(symbol string, withOHLCV bool) (*rest_client.Request, error) {
	if symbol == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "depth symbol is required", Key: "symbol"}
	}
	flag := "0"
	if withOHLCV {
		flag = "1"
	}
	params := url.Values{"symbol": {symbol}, "ohlcv_flag": {flag}}
	return c.newRequest(http.MethodGet, c.dataBaseURL, pathDepth, params, nil), nil
}

func (c *Client) Depth(ctx context.Context, symbol string, withOHLCV bool) (*DepthResponse, error) {
	req, err := c.DepthRequest(symbol, withOHLCV)
	if err != nil {
		return nil, err
	}
	out := &DepthResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketStatusRequest builds GET {data}/marketStatus.
func (c *Client) MarketStatusRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.dataBaseURL, pathMarketStatus, nil, nil), nil
}

func (c *Client) MarketStatus(ctx context.Context) (*MarketStatusResponse, error) {
	req, err := c.MarketStatusRequest()
	if err != nil {
		return nil, err
	}
	out := &MarketStatusResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
