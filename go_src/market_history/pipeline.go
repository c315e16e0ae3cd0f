package market_history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/fyers_openapi"
	"fyersbot/go_src/retry_helper"
	"fyersbot/go_src/trade_exceptions"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 5

// HistoryFetcher is the one broker call the pipeline needs. *fyers_openapi.Client implements it.
type HistoryFetcher interface {
	History(ctx context.Context, p fyers_openapi.HistoryParams) (*fyers_openapi.HistoryResponse, error)
}

// Pipeline fetches partitioned history concurrently and memoizes the joined series.
type Pipeline struct {
	fetcher HistoryFetcher
	limits  SpanLimits
	workers int
	policy  *retry_helper.Policy

	raw   *seriesCache
	daily *seriesCache
}

type Option func(*pipelineOptions)

type pipelineOptions struct {
	limits    SpanLimits
	workers   int
	cacheSize int
	policy    *retry_helper.Policy
}

func WithSpanLimits(l SpanLimits) Option { return func(o *pipelineOptions) { o.limits = l } }

func WithWorkers(n int) Option { return func(o *pipelineOptions) { o.workers = n } }

func WithCacheSize(n int) Option { return func(o *pipelineOptions) { o.cacheSize = n } }

// WithFetchPolicy replaces the retry policy wrapped around every window fetch.
func WithFetchPolicy(p *retry_helper.Policy) Option { return func(o *pipelineOptions) { o.policy = p } }

// OptionsFromConfig maps the history and retry.fetch sections onto pipeline options.
func OptionsFromConfig(cfg *configuration.Config) ([]Option, error) {
	h := cfg.History
	r := cfg.Retry.Fetch
	policy, err := retry_helper.NewPolicy(r.MaxAttempts, r.InitialDelay(), r.BackoffFactor)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithSpanLimits(SpanLimits{Daily: h.DailyMaxSpanDays, Intraday: h.IntradayMaxSpanDays}),
		WithWorkers(h.Workers),
		WithCacheSize(h.CacheSize),
		WithFetchPolicy(policy),
	}, nil
}

func NewPipeline(fetcher HistoryFetcher, opts ...Option) (*Pipeline, error) {
	if fetcher == nil {
		return nil, errors.New("history fetcher cannot be nil")
	}
	o := pipelineOptions{limits: DefaultSpanLimits, workers: DefaultWorkers, cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limits.Daily <= 0 || o.limits.Intraday <= 0 {
		return nil, &trade_exceptions.ConfigurationError{Message: "span limits must be positive", Key: "max_span_days"}
	}
	if o.workers <= 0 {
		o.workers = DefaultWorkers
	}
	if o.policy == nil {
		o.policy = retry_helper.FetchPolicy()
	}

	raw, err := newSeriesCache(o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	daily, err := newSeriesCache(o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rollup cache: %w", err)
	}
	return &Pipeline{fetcher: fetcher, limits: o.limits, workers: o.workers, policy: o.policy, raw: raw, daily: daily}, nil
}

// Fetch returns req's candles joined in range order. Any window that still fails after its
// retries fails the whole call with that window's error. A request with no candles at all
// reports *trade_exceptions.DataUnavailableError.
func (p *Pipeline) Fetch(ctx context.Context, req HistoryRequest) ([]Bar, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	bars, _, err := p.raw.get(ctx, req.Key(), func(ctx context.Context) ([]Bar, error) { return p.fetch(ctx, req) })
	return bars, err
}

// DailyRollup is Fetch reindexed onto calendar days with forward fill. See Rollup.
func (p *Pipeline) DailyRollup(ctx context.Context, req HistoryRequest) ([]Bar, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	bars, _, err := p.daily.get(ctx, req.Key(), func(ctx context.Context) ([]Bar, error) {
		bars, err := p.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		return Rollup(bars, req.From, req.To), nil
	})
	return bars, err
}

// Purge drops every memoized series.
func (p *Pipeline) Purge() {
	p.raw.purge()
	p.daily.purge()
}

func (p *Pipeline) fetch(ctx context.Context, req HistoryRequest) ([]Bar, error) {
	maxSpan, err := p.limits.MaxSpanDays(req.Resolution)
	if err != nil {
		return nil, err
	}
	windows, err := Partition(req, maxSpan)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"symbol":  req.Symbol,
		"from":    req.Key().From,
		"to":      req.Key().To,
		"windows": len(windows),
	})
	log.Debug("Fetching history")
	start := time.Now()

	results := make([][]Bar, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			bars, err := p.fetchWindow(gctx, w)
			if err != nil {
				return err
			}
			results[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("History fetch failed: %v", err)
		return nil, err
	}

	var joined []Bar
	for _, part := range results {
		joined = append(joined, part...)
	}
	if len(joined) == 0 {
		return nil, &trade_exceptions.DataUnavailableError{
			Symbol:  req.Symbol,
			From:    req.Key().From,
			To:      req.Key().To,
			Message: "broker returned no candles",
		}
	}
	log.WithField("bars", len(joined)).Debugf("History fetched in %v", time.Since(start))
	return joined, nil
}

func (p *Pipeline) fetchWindow(ctx context.Context, w HistoryRequest) ([]Bar, error) {
	name := fmt.Sprintf("history %s %s..%s", w.Symbol, w.Key().From, w.Key().To)
	resp, err := retry_helper.DoValue(ctx, p.policy, name, func(ctx context.Context) (*fyers_openapi.HistoryResponse, error) {
		return p.fetcher.History(ctx, w.params())
	})
	if err != nil {
		return nil, err
	}
	return barsFromCandles(w.Symbol, resp.Candles)
}
