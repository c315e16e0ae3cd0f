package market_history

import (
	"fmt"

	"fyersbot/go_src/trade_exceptions"
)

// Partition splits req into consecutive windows of at most maxSpan days.
// The windows are ordered, never empty, and together cover [From, To] exactly once.
func Partition(req HistoryRequest, maxSpan int) ([]HistoryRequest, error) {
	if maxSpan <= 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: fmt.Sprintf("max span must be positive, got %d", maxSpan), Key: "max_span_days"}
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	windows := make([]HistoryRequest, 0, (req.Days()+maxSpan-1)/maxSpan)
	for cur := req.From; !cur.After(req.To); {
		end := cur.AddDate(0, 0, maxSpan-1)
		if end.After(req.To) {
			end = req.To
		}
		w := req
		w.From, w.To = cur, end
		windows = append(windows, w)
		cur = end.AddDate(0, 0, 1)
	}
	return windows, nil
}
