package market_history

import (
	"fmt"
	"time"

	"fyersbot/go_src/fyers_openapi"
	"fyersbot/go_src/trade_exceptions"
)

const dateLayout = "2006-01-02"

// IST is the exchange's fixed UTC+05:30 offset.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Day returns the IST calendar date of t as midnight IST.
func Day(t time.Time) time.Time {
	y, m, d := t.In(IST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, IST)
}

// ParseDay reads a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, IST)
}

// HistoryRequest asks for one symbol's candles over the inclusive calendar range [From, To].
type HistoryRequest struct {
	Symbol     string
	Resolution string
	From       time.Time
	To         time.Time
	Continuous bool
}

// RequestKey identifies a HistoryRequest by value. It is comparable and used as the cache key.
type RequestKey struct {
	Symbol     string
	Resolution string
	From       string
	To         string
	Continuous bool
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%t", k.Symbol, k.Resolution, k.From, k.To, k.Continuous)
}

// NewHistoryRequest normalizes the resolution and truncates the range to calendar days.
func NewHistoryRequest(symbol, resolution string, from, to time.Time, continuous bool) (HistoryRequest, error) {
	req := HistoryRequest{Symbol: symbol, Resolution: resolution, From: Day(from), To: Day(to), Continuous: continuous}
	if err := req.normalize(); err != nil {
		return HistoryRequest{}, err
	}
	return req, nil
}

func (r *HistoryRequest) normalize() error {
	if r.Symbol == "" {
		return &trade_exceptions.ConfigurationError{Message: "symbol is required", Key: "symbol"}
	}
	res, err := NormalizeResolution(r.Resolution)
	if err != nil {
		return err
	}
	r.Resolution = res
	r.From, r.To = Day(r.From), Day(r.To)
	if r.To.Before(r.From) {
		return &trade_exceptions.ConfigurationError{
			Message: fmt.Sprintf("range is inverted: %s > %s", r.From.Format(dateLayout), r.To.Format(dateLayout)),
			Key:     "range",
		}
	}
	return nil
}

func (r HistoryRequest) Key() RequestKey {
	return RequestKey{
		Symbol:     r.Symbol,
		Resolution: r.Resolution,
		From:       r.From.Format(dateLayout),
		To:         r.To.Format(dateLayout),
		Continuous: r.Continuous,
	}
}

// Days is the number of calendar days covered, both ends included.
func (r HistoryRequest) Days() int {
	return daysBetween(r.From, r.To) + 1
}

func (r HistoryRequest) params() fyers_openapi.HistoryParams {
	return fyers_openapi.HistoryParams{
		Symbol:     r.Symbol,
		Resolution: r.Resolution,
		DateFormat: fyers_openapi.DateFormatYMD,
		RangeFrom:  r.From.Format(dateLayout),
		RangeTo:    r.To.Format(dateLayout),
		Continuous: r.Continuous,
	}
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
