package fyers_openapi

import (
	"context"
	"fmt"
	"net/http"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

const (
	pathOrdersSync     = "/orders/sync"
	pathMultiOrderSync = "/multi-order/sync"

	// MaxBasketOrders is the largest basket the multi-order endpoint accepts.
	MaxBasketOrders = 10
)

func validateOrder(o PlaceOrderRequest) error {
	if o.Symbol == "" {
		return &trade_exceptions.ConfigurationError{Message: "order symbol is required", Key: "symbol"}
	}
	if o.Qty <= 0 {
		return &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("order quantity must be positive, got %d", o.Qty), Key: "qty"}
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("order side must be 1 or -1, got %d", o.Side), Key: "side"}
	}
	if o.Type < OrderTypeLimit || o.Type > OrderTypeStopLimit {
		return &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("unknown order type %d", o.Type), Key: "type"}
	}
	return nil
}

func validateBasketSize(n int) error {
	if n == 0 || n > MaxBasketOrders {
		return &trade_exceptions.ConfigurationError{
			Message: fmt.Sprintf("basket must hold between 1 and %d orders, got %d", MaxBasketOrders, n),
			Key:     "orders",
		}
	}
	return nil
}

// PlaceOrderRequest builds POST /orders/sync.
func (c *Client) PlaceOrderRequest(order PlaceOrderRequest) (*rest_client.Request, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	return c.newRequest(http.MethodPost, c.apiBaseURL, pathOrdersSync, nil, order), nil
}

func (c *Client) PlaceOrder(ctx context.Context, order PlaceOrderRequest) (*OrderResponse, error) {
	req, err := c.PlaceOrderRequest(order)
	if err != nil {
		return nil, err
	}
	out := &OrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ModifyOrderRequest builds PATCH /orders/sync.
func (c *Client) ModifyOrderRequest(change ModifyOrderRequest) (*rest_client.Request, error) {
	if change.ID == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "order id is required", Key: "id"}
	}
	return c.newRequest(http.MethodPatch, c.apiBaseURL, pathOrdersSync, nil, change), nil
}

func (c *Client) ModifyOrder(ctx context.Context, change ModifyOrderRequest) (*OrderResponse, error) {
	req, err := c.ModifyOrderRequest(change)
	if err != nil {
		return nil, err
	}
	out := &OrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrderRequest builds DELETE /orders/sync.
func (c *Client) CancelOrderRequest(id string) (*rest_client.Request, error) {
	if id == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "order id is required", Key: "id"}
	}
	return c.newRequest(http.MethodDelete, c.apiBaseURL, pathOrdersSync, nil, map[string]string{"id": id}), nil
}

func (c *Client) CancelOrder(ctx context.Context, id string) (*OrderResponse, error) {
	req, err := c.CancelOrderRequest(id)
	if err != nil {
		return nil, err
	}
	out := &OrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceBasketOrdersRequest builds POST /multi-order/sync.
func (c *Client) PlaceBasketOrdersRequest(orders []PlaceOrderRequest) (*rest_client.Request, error) {
	if err := validateBasketSize(len(orders)); err != nil {
		return nil, err
	}
	for i, o := range orders {
		if err := validateOrder(o); err != nil {
			return nil, fmt.Errorf("basket order %d: %w", i, err)
		}
	}
	return c.newRequest(http.MethodPost, c.apiBaseURL, pathMultiOrderSync, nil, orders), nil
}

func (c *Client) PlaceBasketOrders(ctx context.Context, orders []PlaceOrderRequest) (*BasketOrderResponse, error) {
	req, err := c.PlaceBasketOrdersRequest(orders)
	if err != nil {
		return nil, err
	}
	out := &BasketOrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ModifyBasketOrdersRequest builds PATCH /multi-order/sync.
func (c *Client) ModifyBasketOrdersRequest(changes []ModifyOrderRequest) (*rest_client.Request, error) {
	if err := validateBasketSize(len(changes)); err != nil {
		return nil, err
	}
	for i, ch := range changes {
		if ch.ID == "" {
			return nil, &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("basket change %d has no order id", i), Key: "id"}
		}
	}
	return c.newRequest(http.MethodPatch, c.apiBaseURL, pathMultiOrderSync, nil, changes), nil
}

func (c *Client) ModifyBasketOrders(ctx context.Context, changes []ModifyOrderRequest) (*BasketOrderResponse, error) {
	req, err := c.ModifyBasketOrdersRequest(changes)
	if err != nil {
		return nil, err
	}
	out := &BasketOrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelBasketOrdersRequest builds DELETE /multi-order/sync.
func (c *Client) CancelBasketOrdersRequest(ids []string) (*rest_client.Request, error) {
	if err := validateBasketSize(len(ids)); err != nil {
		return nil, err
	}
	body := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, &trade_exceptions.ConfigurationError{Message: "empty order id in basket", Key: "id"}
		}
		body = append(body, map[string]string{"id": id})
	}
	return c.newRequest(http.MethodDelete, c.apiBaseURL, pathMultiOrderSync, nil, body), nil
}

func (c *Client) CancelBasketOrders(ctx context.Context, ids []string) (*BasketOrderResponse, error) {
	req, err := c.CancelBasketOrdersRequest(ids)
	if err != nil {
		return nil, err
	}
	out := &BasketOrderResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExitPositionsRequest builds DELETE /positions. With no id every open position is closed.
func (c *Client) ExitPositionsRequest(id string) (*rest_client.Request, error) {
	var body interface{} = map[string]int{"exit_all": 1}
	if id != "" {
		body = map[string]string{"id": id}
	}
	return c.newRequest(http.MethodDelete, c.apiBaseURL, pathPositions, nil, body), nil
}

func (c *Client) ExitPositions(ctx context.Context, id string) (*BaseResponse, error) {
	req, err := c.ExitPositionsRequest(id)
	if err != nil {
		return nil, err
	}
	out := &BaseResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertPositionRequest builds PUT /positions.
func (c *Client) ConvertPositionRequest(conv ConvertPositionRequest) (*rest_client.Request, error) {
	if conv.Symbol == "" || conv.ConvertFrom == "" || conv.ConvertTo == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "symbol, convertFrom and convertTo are required", Key: "convert_position"}
	}
	if conv.ConvertQty <= 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: "convert quantity must be positive", Key: "convertQty"}
	}
	if conv.ConvertFrom == ProductCNC {
		return nil, &trade_exceptions.ConfigurationError{Message: "CNC positions cannot be converted", Key: "convertFrom"}
	}
	return c.newRequest(http.MethodPut, c.apiBaseURL, pathPositions, nil, conv), nil
}

func (c *Client) ConvertPosition(ctx context.Context, conv ConvertPositionRequest) (*BaseResponse, error) {
	req, err := c.ConvertPositionRequest(conv)
	if err != nil {
		return nil, err
	}
	out := &BaseResponse{}
	if err := c.do(ctx, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
