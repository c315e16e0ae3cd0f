package fyers_app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/database"
	"fyersbot/go_src/fyers_authen"
	"fyersbot/go_src/fyers_openapi"
	"fyersbot/go_src/market_history"
	"fyersbot/go_src/mq_telegram"
	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/symbol_master"
	"fyersbot/go_src/trade_exceptions"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// App wires the configured components for the binaries.
type App struct {
	Config   *configuration.Config
	Executor rest_client.Executor
	Notifier mq_telegram.Notifier
	Auth     *fyers_authen.FyersAuth
	Cache    *fyers_authen.SessionCache

	closers []func() error

	mu        sync.Mutex
	client    *fyers_openapi.Client
	clientDay time.Time
	now       func() time.Time
}

var dialMQ = mq_telegram.Dial

// New builds the executor, notifier and authenticator. The session cache is optional:
// without fyers.session_dir every run logs in.
func New(cfg *configuration.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	limiter := rest_client.NewRateLimiter(cfg.Fyers.RateLimitPerSecond, cfg.Fyers.RateLimitPerMinute)
	timeout := time.Duration(cfg.Fyers.RequestTimeoutSeconds) * time.Second
	a := &App{Config: cfg, Executor: rest_client.NewHTTPExecutor(timeout, limiter), now: time.Now}

	notifier, err := a.newNotifier()
	if err != nil {
		return nil, err
	}
	a.Notifier = notifier

	auth, err := fyers_authen.NewFyersAuth(fyers_authen.CredentialsFromConfig(cfg.Fyers), a.Executor, notifier, fyers_authen.WithConfig(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Auth = auth

	if cfg.Fyers.SessionDir != "" {
		cache, err := fyers_authen.NewSessionCache(cfg.Fyers.SessionDir, cfg.Fyers.SecretKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open session cache: %w", err)
		}
		a.Cache = cache
	}
	return a, nil
}

// newNotifier prefers the MQ relay when telegram.use_mq is set, then the Bot API,
// and falls back to logging when no bot is configured.
func (a *App) newNotifier() (mq_telegram.Notifier, error) {
	tg := a.Config.Telegram
	if tg.UseMQ {
		conn, err := dialMQ(a.Config)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { return closeConn(conn) })
		return mq_telegram.NewMQNotifier(conn, mq_telegram.TelegramQueueName), nil
	}
	if tg.BotToken == "" || tg.ChatID == "" {
		logrus.Warn("Telegram bot not configured, notifications are only logged")
		return mq_telegram.LogNotifier{}, nil
	}
	bot, err := mq_telegram.NewTelegramBot(a.Executor, tg.BotToken, tg.ChatID, tg.BaseURL)
	if err != nil {
		return nil, err
	}
	return mq_telegram.NewTelegramNotifier(bot), nil
}

func closeConn(conn *amqp.Connection) error {
	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases everything opened through the app, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Client returns a broker client on today's session. The client is kept for the
// IST trading day, so the session is established at most once per day.
func (a *App) Client(ctx context.Context) (*fyers_openapi.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := market_history.Day(a.now())
	if a.client != nil && a.clientDay.Equal(today) {
		return a.client, nil
	}
	token, err := a.Auth.EstablishSession(ctx, a.Cache)
	if err != nil {
		return nil, err
	}
	client, err := fyers_openapi.NewClient(a.Executor, a.Auth.ClientID(), token)
	if err != nil {
		return nil, err
	}
	if a.Config.Fyers.APIBaseURL != "" {
		client.SetAPIBaseURL(a.Config.Fyers.APIBaseURL)
	}
	if a.Config.Fyers.DataBaseURL != "" {
		client.SetDataBaseURL(a.Config.Fyers.DataBaseURL)
	}
	a.client, a.clientDay = client, today
	return client, nil
}

// ResetSession drops the kept client so the next call establishes the session again.
func (a *App) ResetSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
}

// History implements market_history.HistoryFetcher on the day's client, so a long-running
// process picks up a new session after the daily token rollover.
func (a *App) History(ctx context.Context, p fyers_openapi.HistoryParams) (*fyers_openapi.HistoryResponse, error) {
	client, err := a.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.History(ctx, p)
}

// Pipeline builds the fetch pipeline from the history and retry.fetch sections.
func (a *App) Pipeline() (*market_history.Pipeline, error) {
	opts, err := market_history.OptionsFromConfig(a.Config)
	if err != nil {
		return nil, err
	}
	return market_history.NewPipeline(a, opts...)
}

// OpenStore opens the DuckDB bar store and creates its schema.
func (a *App) OpenStore(inMemory bool) (*database.BarStore, error) {
	mdb, err := database.NewMarketDB(a.Config, inMemory)
	if err != nil {
		return nil, err
	}
	a.onClose(mdb.Close)
	store, err := database.NewBarStore(mdb)
	if err != nil {
		return nil, err
	}
	if err := store.CreateSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

// Updater wires a pipeline and store into an incremental updater.
func (a *App) Updater(pipeline *market_history.Pipeline, store market_history.BarStore) (*market_history.Updater, error) {
	start, err := market_history.ParseDay(a.Config.History.StartDate)
	if err != nil {
		return nil, fmt.Errorf("history.start_date: %w", err)
	}
	return market_history.NewUpdater(pipeline, store, a.Notifier, start, a.Config.History.Continuous)
}

// Resolver returns the symbol master resolver for history.symbol_master_url.
func (a *App) Resolver() (*symbol_master.Resolver, error) {
	return symbol_master.ResolverFromConfig(a.Config, a.Executor)
}

// Symbols returns history.symbols when configured, otherwise the members of history.index_url.
func (a *App) Symbols(ctx context.Context) ([]string, error) {
	if len(a.Config.History.Symbols) > 0 {
		return a.Config.History.Symbols, nil
	}
	if a.Config.History.IndexURL == "" {
		return nil, &trade_exceptions.ConfigurationError{Message: "neither history.symbols nor history.index_url is configured", Key: "history.symbols"}
	}
	resolver, err := a.Resolver()
	if err != nil {
		return nil, err
	}
	return resolver.ResolveIndex(ctx, a.Config.History.IndexURL)
}
