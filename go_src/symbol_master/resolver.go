package symbol_master

import (
	"context"
	"fmt"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/retry_helper"

	"github.com/sirupsen/logrus"
)

const DefaultSymbolMasterURL = "https://public.fyers.in/sym_details/NSE_CM.csv"

// Resolver maps index constituents to Fyers symbols by ISIN.
type Resolver struct {
	downloader *Downloader
	masterURL  string
}

func NewResolver(downloader *Downloader, masterURL string) *Resolver {
	if masterURL == "" {
		masterURL = DefaultSymbolMasterURL
	}
	return &Resolver{downloader: downloader, masterURL: masterURL}
}

// ResolverFromConfig wires the history URLs and retry.scrape policy.
func ResolverFromConfig(cfg *configuration.Config, executor rest_client.Executor) (*Resolver, error) {
	r := cfg.Retry.Scrape
	policy, err := retry_helper.NewPolicy(r.MaxAttempts, r.InitialDelay(), r.BackoffFactor)
	if err != nil {
		return nil, fmt.Errorf("retry.scrape: %w", err)
	}
	d, err := NewDownloader(executor, policy, DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return NewResolver(d, cfg.History.SymbolMasterURL), nil
}

// Master downloads and parses the symbol master.
func (r *Resolver) Master(ctx context.Context) ([]SymbolDetail, error) {
	body, err := r.downloader.Get(ctx, r.masterURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download symbol master: %w", err)
	}
	return ParseSymbolMaster(body)
}

// Constituents downloads and parses the index list at indexURL.
func (r *Resolver) Constituents(ctx context.Context, indexURL string) ([]IndexConstituent, error) {
	body, err := r.downloader.Get(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download index constituents: %w", err)
	}
	return ParseIndexConstituents(body)
}

// ResolveIndex returns the Fyers symbols of every master row whose ISIN is in the index,
// in symbol master order.
func (r *Resolver) ResolveIndex(ctx context.Context, indexURL string) ([]string, error) {
	members, err := r.Constituents(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	master, err := r.Master(ctx)
	if err != nil {
		return nil, err
	}
	symbols := MatchByISIN(master, members)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbol master rows match the %d index members", len(members))
	}
	if len(symbols) < len(members) {
		logrus.Warnf("Resolved %d of %d index members", len(symbols), len(members))
	}
	return symbols, nil
}

// MatchByISIN filters master to the rows whose ISIN appears in members.
func MatchByISIN(master []SymbolDetail, members []IndexConstituent) []string {
	isins := make(map[string]struct{}, len(members))
	for _, m := range members {
		isins[m.ISIN] = struct{}{}
	}
	var symbols []string
	for _, d := range master {
		if _, ok := isins[d.ISIN]; ok {
			symbols = append(symbols, d.Symbol)
		}
	}
	return symbols
}
