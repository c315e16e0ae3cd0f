package symbol_master

import (
	"context"
	"fmt"
	"net/http"

	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/retry_helper"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is how many URLs the downloader keeps.
const DefaultCacheSize = 10

var browserHeaders = map[string]string{"User-Agent": "Mozilla/5.0"}

// Downloader GETs CSV files through the executor and memoizes bodies by URL.
type Downloader struct {
	executor rest_client.Executor
	policy   *retry_helper.Policy
	cache    *lru.Cache[string, []byte]
	group    singleflight.Group
}

func NewDownloader(executor rest_client.Executor, policy *retry_helper.Policy, cacheSize int) (*Downloader, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if policy == nil {
		policy = retry_helper.ScrapePolicy()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Downloader{executor: executor, policy: policy, cache: cache}, nil
}

// Get returns the body at url. Failed downloads are not cached.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	if body, ok := d.cache.Get(url); ok {
		return body, nil
	}
	v, err, _ := d.group.Do(url, func() (interface{}, error) {
		if body, ok := d.cache.Get(url); ok {
			return body, nil
		}
		body, err := retry_helper.DoValue(ctx, d.policy, "download "+url, func(ctx context.Context) ([]byte, error) {
			resp, err := d.executor.Execute(ctx, &rest_client.Request{Method: http.MethodGet, URL: url, Headers: browserHeaders})
			if err != nil {
				return nil, err
			}
			return resp.Body, nil
		})
		if err != nil {
			return nil, err
		}
		d.cache.Add(url, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Forget drops every cached body.
func (d *Downloader) Forget() {
	d.cache.Purge()
}
