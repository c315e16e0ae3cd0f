package fyers_openapi

import (
	"context"
	"net/http"
	"strings"

	"fyersbot/go_src/rest_client"
)

const (
	pathProfile   = "/profile"
	pathFunds     = "/funds"
	pathHoldings  = "/holdings"
	pathPositions = "/positions"
	pathTradebook = "/tradebook"
	pathOrderbook = "/orders"
)

// ProfileRequest builds GET /profile.
func (c *Client) ProfileRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathProfile, nil, nil), nil
}

func (c *Client) Profile(ctx context.Context) (*ProfileResponse, error) {
	req, err := c.ProfileRequest()
	if err != nil {
		return nil, err
	}
	out := &ProfileResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FundsRequest builds GET /funds.
func (c *Client) FundsRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathFunds, nil, nil), nil
}

func (c *Client) Funds(ctx context.Context) (*FundsResponse, error) {
	req, err := c.FundsRequest()
	if err != nil {
		return nil, err
	}
	out := &FundsResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HoldingsRequest builds GET /holdings.
func (c *Client) HoldingsRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathHoldings, nil, nil), nil
}

func (c *Client) Holdings(ctx context.Context) (*HoldingsResponse, error) {
	req, err := c.HoldingsRequest()
	if err != nil {
		return nil, err
	}
	out := &HoldingsResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PositionsRequest builds GET /positions.
func (c *Client) PositionsRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathPositions, nil, nil), nil
}

func (c *Client) Positions(ctx context.Context) (*PositionsResponse, error) {
	req, err := c.PositionsRequest()
	if err != nil {
		return nil, err
	}
	out := &PositionsResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// TradebookRequest builds GET /tradebook.
func (c *Client) TradebookRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathTradebook, nil, nil), nil
}

func (c *Client) Tradebook(ctx context.Context) (*TradebookResponse, error) {
	req, err := c.TradebookRequest()
	if err != nil {
		return nil, err
	}
	out := &TradebookResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderbookRequest builds GET /orders.
func (c *Client) OrderbookRequest() (*rest_client.Request, error) {
	return c.newRequest(http.MethodGet, c.apiBaseURL, pathOrderbook, nil, nil), nil
}

func (c *Client) Orderbook(ctx context.Context) (*OrderbookResponse, error) {
	req, err := c.OrderbookRequest()
	if err != nil {
		return nil, err
	}
	out := &OrderbookResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrders returns the orderbook narrowed to the given ids. Each entry may itself be a
// comma separated list.
func (c *Client) GetOrders(ctx context.Context, ids ...string) (*OrderbookResponse, error) {
	book, err := c.Orderbook(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{})
	for _, id := range ids {
		for _, part := range strings.Split(id, ",") {
			if part = strings.TrimSpace(part); part != "" {
				wanted[part] = struct{}{}
			}
		}
	}
	filtered := make([]Order, 0, len(wanted))
	for _, o := range book.OrderBook {
		if _, ok := wanted[o.ID]; ok {
			filtered = append(filtered, o)
		}
	}
	book.OrderBook = filtered
	return book, nil
}
