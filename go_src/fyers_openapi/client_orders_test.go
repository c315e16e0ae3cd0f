package fyers_openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/trade_exceptions"
)

func floatPtr(f float64) *float64 { return &f }

func sampleOrder() PlaceOrderRequest {
	return PlaceOrderRequest{
		Symbol:      "NSE:SBIN-EQ",
		Qty:         1,
		Type:        OrderTypeLimit,
		Side:        SideBuy,
		ProductType: ProductIntraday,
		LimitPrice:  600,
		Validity:    ValidityDay,
	}
}

func TestPlaceOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/orders/sync" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, ok := decodeBody(t, r).(map[string]interface{})
		if !ok || body["symbol"] != "NSE:SBIN-EQ" || body["productType"] != "INTRADAY" || body["limitPrice"] != 600.0 {
			t.Errorf("Unexpected order body: %v", body)
		}
		fmt.Fprint(w, `{"s":"ok","code":1101,"message":"Order Submitted Successfully","id":"52104097616"}`)
	})

	resp, err := client.PlaceOrder(context.Background(), sampleOrder())
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if resp.ID != "52104097616" || resp.Message != "Order Submitted Successfully" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestOrderValidation(t *testing.T) {
	client, _ := NewClient(rest_client.NewHTTPExecutor(0, nil), testClientID, "tok")

	tests := []struct {
		name   string
		mutate func(o *PlaceOrderRequest)
	}{
		{"MissingSymbol", func(o *PlaceOrderRequest) { o.Symbol = "" }},
		{"ZeroQty", func(o *PlaceOrderRequest) { o.Qty = 0 }},
		{"BadSide", func(o *PlaceOrderRequest) { o.Side = 2 }},
		{"BadType", func(o *PlaceOrderRequest) { o.Type = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOrder()
			tt.mutate(&o)
			_, err := client.PlaceOrderRequest(o)
			var cfgErr *trade_exceptions.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestModifyAndCancelOrderRequests(t *testing.T) {
	client, _ := NewClient(rest_client.NewHTTPExecutor(0, nil), testClientID, "tok")

	req, err := client.ModifyOrderRequest(ModifyOrderRequest{ID: "1", Type: OrderTypeLimit, LimitPrice: floatPtr(601.5)})
	if err != nil {
		t.Fatalf("ModifyOrderRequest failed: %v", err)
	}
	if req.Method != http.MethodPatch || req.URL != DefaultAPIBaseURL+"/orders/sync" {
		t.Errorf("Unexpected modify request %s %s", req.Method, req.URL)
	}

	if _, err := client.ModifyOrderRequest(ModifyOrderRequest{}); err == nil {
		t.Error("Expected error for modify without id")
	}

	req, err = client.CancelOrderRequest("1")
	if err != nil {
		t.Fatalf("CancelOrderRequest failed: %v", err)
	}
	if req.Method != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", req.Method)
	}
	if body, ok := req.JSON.(map[string]string); !ok || body["id"] != "1" {
		t.Errorf("Unexpected cancel body: %#v", req.JSON)
	}
}

func TestBasketOrders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/multi-order/sync" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body, ok := decodeBody(t, r).([]interface{})
		if !ok || len(body) != 2 {
			t.Errorf("Expected a list of 2 orders, got %v", body)
		}
		fmt.Fprint(w, `{"s":"ok","data":[{"statusCode":200,"body":{"s":"ok","id":"1"}},{"statusCode":400,"statusDescription":"Bad Request","body":{"s":"error","message":"Invalid qty"}}]}`)
	})

	resp, err := client.PlaceBasketOrders(context.Background(), []PlaceOrderRequest{sampleOrder(), sampleOrder()})
	if err != nil {
		t.Fatalf("PlaceBasketOrders failed: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Body.ID != "1" || resp.Data[1].Body.Message != "Invalid qty" {
		t.Errorf("Unexpected basket response: %+v", resp.Data)
	}

	tooMany := make([]PlaceOrderRequest, MaxBasketOrders+1)
	for i := range tooMany {
		tooMany[i] = sampleOrder()
	}
	if _, err := client.PlaceBasketOrdersRequest(tooMany); err == nil {
		t.Error("Expected error for oversize basket")
	}
	if _, err := client.CancelBasketOrdersRequest(nil); err == nil {
		t.Error("Expected error for empty basket")
	}
	if _, err := client.ModifyBasketOrdersRequest([]ModifyOrderRequest{{ID: ""}}); err == nil {
		t.Error("Expected error for basket change without id")
	}
}

func TestExitPositionsDefaultsToExitAll(t *testing.T) {
	var bodies []interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v3/positions" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		bodies = append(bodies, decodeBody(t, r))
		fmt.Fprint(w, `{"s":"ok","message":"All positions are closed"}`)
	})

	if _, err := client.ExitPositions(context.Background(), ""); err != nil {
		t.Fatalf("ExitPositions failed: %v", err)
	}
	if _, err := client.ExitPositions(context.Background(), "NSE:SBIN-EQ-INTRADAY"); err != nil {
		t.Fatalf("ExitPositions failed: %v", err)
	}
	if all, ok := bodies[0].(map[string]interface{}); !ok || all["exit_all"] != 1.0 {
		t.Errorf("Expected exit_all body, got %v", bodies[0])
	}
	if one, ok := bodies[1].(map[string]interface{}); !ok || one["id"] != "NSE:SBIN-EQ-INTRADAY" {
		t.Errorf("Expected id body, got %v", bodies[1])
	}
}

func TestConvertPositionRequest(t *testing.T) {
	client, _ := NewClient(rest_client.NewHTTPExecutor(0, nil), testClientID, "tok")

	conv := ConvertPositionRequest{Symbol: "NSE:SBIN-EQ", PositionSide: 1, ConvertQty: 5, ConvertFrom: ProductIntraday, ConvertTo: ProductCNC}
	req, err := client.ConvertPositionRequest(conv)
	if err != nil {
		t.Fatalf("ConvertPositionRequest failed: %v", err)
	}
	if req.Method != http.MethodPut {
		t.Errorf("Expected PUT, got %s", req.Method)
	}

	conv.ConvertFrom = ProductCNC
	if _, err := client.ConvertPositionRequest(conv); err == nil {
		t.Error("CNC positions should not convert")
	}
}
