package market_history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fyersbot/go_src/trade_exceptions"

	"github.com/sirupsen/logrus"
)

// BarStore persists daily bars per symbol.
type BarStore interface {
	// LastDate returns the most recent stored date for symbol; ok is false when nothing is stored.
	LastDate(ctx context.Context, symbol string) (last time.Time, ok bool, err error)
	// SaveBars upserts bars keyed by (symbol, date).
	SaveBars(ctx context.Context, bars []Bar) error
	// AllBars returns every stored bar ordered by symbol and date.
	AllBars(ctx context.Context) ([]Bar, error)
}

// Notifier receives operator-facing messages.
type Notifier interface {
	Notify(text string)
}

// UpdateSummary reports the outcome of one Update run.
type UpdateSummary struct {
	Updated []string
	Skipped []string // no new candles
	Failed  map[string]error
	Bars    int
}

// Updater keeps a BarStore current with the broker's daily history.
type Updater struct {
	pipeline   *Pipeline
	store      BarStore
	notifier   Notifier
	startDate  time.Time
	continuous bool
	now        func() time.Time
}

// NewUpdater seeds symbols with nothing stored from startDate. A nil notifier is allowed.
func NewUpdater(pipeline *Pipeline, store BarStore, notifier Notifier, startDate time.Time, continuous bool) (*Updater, error) {
	if pipeline == nil || store == nil {
		return nil, errors.New("pipeline and store are required")
	}
	if startDate.IsZero() {
		return nil, &trade_exceptions.ConfigurationError{Message: "start date is required", Key: "history.start_date"}
	}
	return &Updater{
		pipeline:   pipeline,
		store:      store,
		notifier:   notifier,
		startDate:  Day(startDate),
		continuous: continuous,
		now:        time.Now,
	}, nil
}

// UpdateSymbol fetches from the last stored date (or the start date) through today and
// stores the daily rollup. Refetching the last stored day lets the gap after it be
// forward-filled. It returns the number of bars written.
func (u *Updater) UpdateSymbol(ctx context.Context, symbol string) (int, error) {
	today := Day(u.now().In(IST))
	from := u.startDate
	last, ok, err := u.store.LastDate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to read last stored date for %s: %w", symbol, err)
	}
	if ok {
		from = Day(last)
	}
	if from.After(today) {
		from = today
	}

	req, err := NewHistoryRequest(symbol, ResolutionDaily, from, today, u.continuous)
	if err != nil {
		return 0, err
	}
	bars, err := u.pipeline.DailyRollup(ctx, req)
	if err != nil {
		return 0, err
	}
	if err := u.store.SaveBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("failed to store bars for %s: %w", symbol, err)
	}
	return len(bars), nil
}

// Update runs UpdateSymbol for each symbol. One symbol's failure is reported and the
// run moves on to the next symbol. Each run starts with an empty memo so a repeat run on
// the same day sees the broker's latest bars.
func (u *Updater) Update(ctx context.Context, symbols []string) UpdateSummary {
	u.pipeline.Purge()
	summary := UpdateSummary{Failed: map[string]error{}}
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			summary.Failed[symbol] = ctx.Err()
			continue
		}
		n, err := u.UpdateSymbol(ctx, symbol)
		var noData *trade_exceptions.DataUnavailableError
		switch {
		case errors.As(err, &noData):
			logrus.Infof("No new bars for %s: %s", symbol, noData.Message)
			summary.Skipped = append(summary.Skipped, symbol)
		case err != nil:
			logrus.Errorf("History update failed for %s: %v", symbol, err)
			summary.Failed[symbol] = err
			u.notify(fmt.Sprintf("History update failed for %s: %v", symbol, err))
		default:
			logrus.Debugf("Stored %d bars for %s", n, symbol)
			summary.Updated = append(summary.Updated, symbol)
			summary.Bars += n
		}
	}
	logrus.Infof("History update finished: %d updated, %d skipped, %d failed, %d bars",
		len(summary.Updated), len(summary.Skipped), len(summary.Failed), summary.Bars)
	return summary
}

// ExportParquet writes the whole store to path.
func (u *Updater) ExportParquet(ctx context.Context, path string) error {
	bars, err := u.store.AllBars(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bars for export: %w", err)
	}
	return WriteParquet(path, bars)
}

func (u *Updater) notify(text string) {
	if u.notifier != nil {
		u.notifier.Notify(text)
	}
}
