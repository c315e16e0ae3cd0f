package fyers_openapi

// BaseResponse is the status envelope shared by every Fyers response.
type BaseResponse struct {
	S       string `json:"s"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (b *BaseResponse) base() *BaseResponse { return b }

// --- Account ---

type Profile struct {
	FyID          string `json:"fy_id"`
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	EmailID       string `json:"email_id"`
	MobileNumber  string `json:"mobile_number"`
	PAN           string `json:"PAN"`
	Image         string `json:"image,omitempty"`
	TOTP          bool   `json:"totp"`
	PwdToExpire   int    `json:"pwd_to_expire"`
	DDPIEnabled   bool   `json:"ddpi_enabled"`
	MTFEnabled    bool   `json:"mtf_enabled"`
	PinChangeDate string `json:"pin_change_date,omitempty"`
}

type ProfileResponse struct {
	BaseResponse
	Data Profile `json:"data"`
}

type FundLimit struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	EquityAmount    float64 `json:"equityAmount"`
	CommodityAmount float64 `json:"commodityAmount"`
}

type FundsResponse struct {
	BaseResponse
	FundLimit []FundLimit `json:"fund_limit"`
}

type Holding struct {
	ID                int     `json:"id"`
	Symbol            string  `json:"symbol"`
	HoldingType       string  `json:"holdingType"`
	Quantity          int     `json:"quantity"`
	RemainingQuantity int     `json:"remainingQuantity"`
	CostPrice         float64 `json:"costPrice"`
	LTP               float64 `json:"ltp"`
	PL                float64 `json:"pl"`
	MarketVal         float64 `json:"marketVal"`
	ISIN              string  `json:"isin"`
	FyToken           string  `json:"fytoken"`
}

type HoldingsOverall struct {
	CountTotal        int     `json:"count_total"`
	TotalInvestment   float64 `json:"total_investment"`
	TotalCurrentValue float64 `json:"total_current_value"`
	TotalPL           float64 `json:"total_pl"`
	PnLPercentage     float64 `json:"pnl_perc"`
}

type HoldingsResponse struct {
	BaseResponse
	Overall  HoldingsOverall `json:"overall"`
	Holdings []Holding       `json:"holdings"`
}

type Position struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Side             int     `json:"side"`
	ProductType      string  `json:"productType"`
	NetQty           int     `json:"netQty"`
	Qty              int     `json:"qty"`
	AvgPrice         float64 `json:"avgPrice"`
	NetAvg           float64 `json:"netAvg"`
	LTP              float64 `json:"ltp"`
	PL               float64 `json:"pl"`
	RealizedProfit   float64 `json:"realized_profit"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
}

type PositionsOverall struct {
	CountTotal   int     `json:"count_total"`
	CountOpen    int     `json:"count_open"`
	PLTotal      float64 `json:"pl_total"`
	PLRealized   float64 `json:"pl_realized"`
	PLUnrealized float64 `json:"pl_unrealized"`
}

type PositionsResponse struct {
	BaseResponse
	NetPositions []Position       `json:"netPositions"`
	Overall      PositionsOverall `json:"overall"`
}

type Trade struct {
	ClientID        string  `json:"clientId"`
	OrderNumber     string  `json:"orderNumber"`
	ExchangeOrderNo string  `json:"exchangeOrderNo"`
	TradeNumber     string  `json:"tradeNumber"`
	Symbol          string  `json:"symbol"`
	Side            int     `json:"side"`
	ProductType     string  `json:"productType"`
	OrderType       int     `json:"orderType"`
	TradedQty       int     `json:"tradedQty"`
	TradePrice      float64 `json:"tradePrice"`
	TradeValue      float64 `json:"tradeValue"`
	OrderDateTime   string  `json:"orderDateTime"`
}

type TradebookResponse struct {
	BaseResponse
	TradeBook []Trade `json:"tradeBook"`
}

// --- Orders ---

// Order statuses as reported in the orderbook.
const (
	OrderStatusCancelled = 1
	OrderStatusFilled    = 2
	OrderStatusTransit   = 4
	OrderStatusRejected  = 5
	OrderStatusPending   = 6
)

type Order struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	Qty               int     `json:"qty"`
	FilledQty         int     `json:"filledQty"`
	RemainingQuantity int     `json:"remainingQuantity"`
	Status            int     `json:"status"`
	Side              int     `json:"side"`
	Type              int     `json:"type"`
	ProductType       string  `json:"productType"`
	LimitPrice        float64 `json:"limitPrice"`
	StopPrice         float64 `json:"stopPrice"`
	TradedPrice       float64 `json:"tradedPrice"`
	OrderDateTime     string  `json:"orderDateTime"`
	OrderTag          string  `json:"orderTag,omitempty"`
	Message           string  `json:"message"`
}

type OrderbookResponse struct {
	BaseResponse
	OrderBook []Order `json:"orderBook"`
}

// Order types, sides and product types accepted by the order endpoints.
const (
	OrderTypeLimit     = 1
	OrderTypeMarket    = 2
	OrderTypeStop      = 3
	OrderTypeStopLimit = 4

	SideBuy  = 1
	SideSell = -1

	ProductCNC      = "CNC"
	ProductIntraday = "INTRADAY"
	ProductMargin   = "MARGIN"
	ProductCO       = "CO"
	ProductBO       = "BO"

	ValidityDay = "DAY"
	ValidityIOC = "IOC"
)

// PlaceOrderRequest is the body of a single order placement.
type PlaceOrderRequest struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"`
	Side         int     `json:"side"`
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	DisclosedQty int     `json:"disclosedQty"`
	Validity     string  `json:"validity"`
	OfflineOrder bool    `json:"offlineOrder"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	OrderTag     string  `json:"orderTag,omitempty"`
}

// ModifyOrderRequest changes a pending order. Zero fields are left untouched by the broker.
type ModifyOrderRequest struct {
	ID         string   `json:"id"`
	Type       int      `json:"type,omitempty"`
	Qty        int      `json:"qty,omitempty"`
	LimitPrice *float64 `json:"limitPrice,omitempty"`
	StopPrice  *float64 `json:"stopPrice,omitempty"`
}

type OrderResponse struct {
	BaseResponse
	ID string `json:"id"`
}

type BasketOrderResult struct {
	StatusCode        int           `json:"statusCode"`
	StatusDescription string        `json:"statusDescription"`
	Body              OrderResponse `json:"body"`
}

type BasketOrderResponse struct {
	BaseResponse
	Data []BasketOrderResult `json:"data"`
}

type ConvertPositionRequest struct {
	Symbol       string `json:"symbol"`
	PositionSide int    `json:"positionSide"`
	ConvertQty   int    `json:"convertQty"`
	ConvertFrom  string `json:"convertFrom"`
	ConvertTo    string `json:"convertTo"`
}

// --- Market data ---

type MarketStatus struct {
	Exchange   int    `json:"exchange"`
	Segment    int    `json:"segment"`
	MarketType string `json:"market_type"`
	Status     string `json:"status"`
}

type MarketStatusResponse struct {
	BaseResponse
	MarketStatus []MarketStatus `json:"marketStatus"`
}

type QuoteValues struct {
	Symbol         string  `json:"symbol"`
	ShortName      string  `json:"short_name"`
	Exchange       string  `json:"exchange"`
	Description    string  `json:"description"`
	OriginalName   string  `json:"original_name"`
	FyToken        string  `json:"fyToken"`
	LP             float64 `json:"lp"`
	Ch             float64 `json:"ch"`
	Chp            float64 `json:"chp"`
	Ask            float64 `json:"ask"`
	Bid            float64 `json:"bid"`
	Spread         float64 `json:"spread"`
	OpenPrice      float64 `json:"open_price"`
	HighPrice      float64 `json:"high_price"`
	LowPrice       float64 `json:"low_price"`
	PrevClosePrice float64 `json:"prev_close_price"`
	Volume         float64 `json:"volume"`
}

type Quote struct {
	N string      `json:"n"`
	S string      `json:"s"`
	V QuoteValues `json:"v"`
}

type QuotesResponse struct {
	BaseResponse
	D []Quote `json:"d"`
}

type DepthLevel struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
	Ord    int     `json:"ord"`
}

type Depth struct {
	TotalBuyQty  int64        `json:"totalbuyqty"`
	TotalSellQty int64        `json:"totalsellqty"`
	Bids         []DepthLevel `json:"bids"`
	Ask          []DepthLevel `json:"ask"`
	O            float64      `json:"o"`
	H            float64      `json:"h"`
	L            float64      `json:"l"`
	C            float64      `json:"c"`
	Ch           float64      `json:"ch"`
	Chp          float64      `json:"chp"`
	LTP          float64      `json:"ltp"`
	LTQ          int64        `json:"ltq"`
	LTT          int64        `json:"ltt"`
	V            int64        `json:"v"`
	ATP          float64      `json:"atp"`
	OI           int64        `json:"oi"`
}

type DepthResponse struct {
	BaseResponse
	D map[string]Depth `json:"d"`
}

// Candle is one history row: epoch seconds, open, high, low, close, volume.
type Candle []float64

type HistoryResponse struct {
	BaseResponse
	Candles []Candle `json:"candles"`
}
