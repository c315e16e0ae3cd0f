package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/fyers_authen"
	"fyersbot/go_src/market_history"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const (
	JobSessionRefreshName = "JobSessionRefresh"
	JobHistoryUpdateName  = "JobHistoryUpdate"

	sessionRefreshTimeout = 5 * time.Minute
	historyUpdateTimeout  = 2 * time.Hour
)

type SessionEstablisher interface {
	EstablishSession(ctx context.Context, cache *fyers_authen.SessionCache) (string, error)
}

type HistoryUpdater interface {
	Update(ctx context.Context, symbols []string) market_history.UpdateSummary
	ExportParquet(ctx context.Context, path string) error
}

type Notifier interface {
	Notify(text string)
}

// SymbolSource lists the symbols to update, e.g. the configured list or a resolved index.
type SymbolSource func(ctx context.Context) ([]string, error)

// Jobs holds what the daily jobs run against. Cache and Notifier may be nil.
type Jobs struct {
	Auth        SessionEstablisher
	Cache       *fyers_authen.SessionCache
	Updater     HistoryUpdater
	Symbols     SymbolSource
	ParquetPath string
	Notifier    Notifier
}

func (j *Jobs) notify(text string) {
	if j.Notifier != nil {
		j.Notifier.Notify(text)
	}
}

// SessionRefresh makes sure today's access token exists, logging in when the cache is stale.
func (j *Jobs) SessionRefresh() {
	logrus.Info("Scheduler: Running JobSessionRefresh")
	ctx, cancel := context.WithTimeout(context.Background(), sessionRefreshTimeout)
	defer cancel()
	if _, err := j.Auth.EstablishSession(ctx, j.Cache); err != nil {
		logrus.Errorf("JobSessionRefresh: %v", err)
		return
	}
	logrus.Info("JobSessionRefresh: session ready")
}

// HistoryUpdate refreshes stored bars for every symbol, then exports parquet when a path is set.
func (j *Jobs) HistoryUpdate() {
	logrus.Info("Scheduler: Running JobHistoryUpdate")
	ctx, cancel := context.WithTimeout(context.Background(), historyUpdateTimeout)
	defer cancel()

	if j.Auth != nil {
		if _, err := j.Auth.EstablishSession(ctx, j.Cache); err != nil {
			logrus.Errorf("JobHistoryUpdate: no session: %v", err)
			j.notify(fmt.Sprintf("History update skipped, no session: %v", err))
			return
		}
	}
	symbols, err := j.Symbols(ctx)
	if err != nil {
		logrus.Errorf("JobHistoryUpdate: failed to list symbols: %v", err)
		j.notify(fmt.Sprintf("History update skipped, symbol list unavailable: %v", err))
		return
	}
	summary := j.Updater.Update(ctx, symbols)
	if j.ParquetPath != "" && summary.Bars > 0 {
		if err := j.Updater.ExportParquet(ctx, j.ParquetPath); err != nil {
			logrus.Errorf("JobHistoryUpdate: parquet export failed: %v", err)
		}
	}
	j.notify(SummaryText(summary))
}

// SummaryText renders an update summary for the operator channel.
func SummaryText(s market_history.UpdateSummary) string {
	text := fmt.Sprintf("History update: %d updated, %d unchanged, %d failed, %d bars saved",
		len(s.Updated), len(s.Skipped), len(s.Failed), s.Bars)
	if len(s.Failed) > 0 {
		failed := make([]string, 0, len(s.Failed))
		for symbol := range s.Failed {
			failed = append(failed, symbol)
		}
		sort.Strings(failed)
		text += " (" + strings.Join(failed, ", ") + ")"
	}
	return text
}

// ParseClock reads "HH:MM".
func ParseClock(value string) (hour, minute uint, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time '%s' (expected HH:MM): %w", value, err)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}

// NewScheduler creates a gocron scheduler in the configured timezone (Asia/Kolkata when unset).
func NewScheduler(settings configuration.SchedulerSettings) (gocron.Scheduler, error) {
	tz := settings.Timezone
	if tz == "" {
		tz = configuration.DefaultTimezone
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduler timezone '%s': %w", tz, err)
	}
	return gocron.NewScheduler(gocron.WithLocation(location))
}

// Register adds the daily session refresh and history update jobs.
func Register(s gocron.Scheduler, settings configuration.SchedulerSettings, jobs *Jobs) error {
	if jobs == nil || jobs.Auth == nil || jobs.Updater == nil || jobs.Symbols == nil {
		return fmt.Errorf("jobs need an authenticator, an updater and a symbol source")
	}
	daily := []struct {
		name string
		at   string
		task func()
	}{
		{JobSessionRefreshName, settings.SessionRefreshTime, jobs.SessionRefresh},
		{JobHistoryUpdateName, settings.HistoryUpdateTime, jobs.HistoryUpdate},
	}
	for _, d := range daily {
		hour, minute, err := ParseClock(d.at)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		_, err = s.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
			gocron.NewTask(d.task),
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule %s at %s: %w", d.name, d.at, err)
		}
		logrus.Infof("%s scheduled daily at %s (in scheduler's timezone).", d.name, d.at)
	}
	return nil
}
