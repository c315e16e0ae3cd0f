package market_history

import (
	"fmt"
	"time"

	"fyersbot/go_src/fyers_openapi"
	"fyersbot/go_src/trade_exceptions"
)

const timeLayout = "15:04:05"

// Bar is one OHLCV row in exchange time. Filled marks a day copied forward from the previous bar.
type Bar struct {
	Symbol string
	Date   time.Time // midnight IST
	Time   string    // HH:MM:SS IST
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Filled bool
}

// DateString is the bar's date as YYYY-MM-DD.
func (b Bar) DateString() string { return b.Date.Format(dateLayout) }

// barsFromCandles converts [epoch, o, h, l, c, v] rows for symbol.
func barsFromCandles(symbol string, candles []fyers_openapi.Candle) ([]Bar, error) {
	bars := make([]Bar, 0, len(candles))
	for i, c := range candles {
		if len(c) < 6 {
			return nil, &trade_exceptions.ParseError{
				Message:  fmt.Sprintf("candle %d for %s has %d fields, want 6", i, symbol, len(c)),
				Endpoint: "/history",
			}
		}
		ts := time.Unix(int64(c[0]), 0).In(IST)
		bars = append(bars, Bar{
			Symbol: symbol,
			Date:   Day(ts),
			Time:   ts.Format(timeLayout),
			Open:   c[1],
			High:   c[2],
			Low:    c[3],
			Close:  c[4],
			Volume: c[5],
		})
	}
	return bars, nil
}
