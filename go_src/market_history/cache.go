package market_history

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheSize = 100

// seriesCache memoizes series by request key. Concurrent misses for one key share a single load.
type seriesCache struct {
	entries *lru.Cache[RequestKey, []Bar]
	group   singleflight.Group
}

func newSeriesCache(size int) (*seriesCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[RequestKey, []Bar](size)
	if err != nil {
		return nil, err
	}
	return &seriesCache{entries: entries}, nil
}

// get returns a copy of the cached series, calling load on a miss. Failures are not cached.
// A caller that joined a load cancelled by another caller's context tries once more on its own ctx.
func (c *seriesCache) get(ctx context.Context, key RequestKey, load func(ctx context.Context) ([]Bar, error)) ([]Bar, bool, error) {
	for attempt := 1; ; attempt++ {
		if bars, ok := c.entries.Get(key); ok {
			return cloneBars(bars), true, nil
		}
		v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
			if bars, ok := c.entries.Get(key); ok {
				return bars, nil
			}
			bars, err := load(ctx)
			if err != nil {
				return nil, err
			}
			c.entries.Add(key, bars)
			return bars, nil
		})
		if err != nil {
			if attempt == 1 && shared && ctx.Err() == nil && isCancellation(err) {
				continue
			}
			return nil, false, err
		}
		return cloneBars(v.([]Bar)), false, nil
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *seriesCache) len() int { return c.entries.Len() }

func (c *seriesCache) purge() { c.entries.Purge() }

func cloneBars(bars []Bar) []Bar {
	return append([]Bar(nil), bars...)
}
