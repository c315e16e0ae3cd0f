package market_history

import (
	"fmt"
	"strings"

	"fyersbot/go_src/trade_exceptions"
)

const (
	ResolutionDaily = "D"

	DefaultDailyMaxSpanDays    = 365
	DefaultIntradayMaxSpanDays = 100
)

// intradayMinutes are the minute buckets the history endpoint accepts.
var intradayMinutes = map[string]bool{
	"1": true, "2": true, "3": true, "5": true, "10": true, "15": true,
	"20": true, "30": true, "60": true, "120": true, "240": true,
}

// NormalizeResolution maps "1D" onto "D" and rejects anything the broker does not serve.
func NormalizeResolution(resolution string) (string, error) {
	r := strings.ToUpper(strings.TrimSpace(resolution))
	switch {
	case r == "D" || r == "1D":
		return ResolutionDaily, nil
	case intradayMinutes[r]:
		return r, nil
	}
	return "", &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("unknown resolution %q", resolution), Key: "resolution"}
}

// SpanLimits caps how many calendar days one history call may cover.
type SpanLimits struct {
	Daily    int
	Intraday int
}

var DefaultSpanLimits = SpanLimits{Daily: DefaultDailyMaxSpanDays, Intraday: DefaultIntradayMaxSpanDays}

// MaxSpanDays returns the window size for resolution.
func (l SpanLimits) MaxSpanDays(resolution string) (int, error) {
	r, err := NormalizeResolution(resolution)
	if err != nil {
		return 0, err
	}
	if r == ResolutionDaily {
		return l.Daily, nil
	}
	return l.Intraday, nil
}
