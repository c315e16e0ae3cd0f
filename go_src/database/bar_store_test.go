package database

import (
	"context"
	"testing"
	"time"

	"fyersbot/go_src/fyers_openapi"
	"fyersbot/go_src/market_history"
)

// stubFetcher answers each window with a single candle on its first day.
type stubFetcher struct{}

func (stubFetcher) History(_ context.Context, p fyers_openapi.HistoryParams) (*fyers_openapi.HistoryResponse, error) {
	day, err := market_history.ParseDay(p.RangeFrom)
	if err != nil {
		return nil, err
	}
	return &fyers_openapi.HistoryResponse{Candles: []fyers_openapi.Candle{{float64(day.Unix()), 1, 2, 0.5, 1.5, 100}}}, nil
}

func newTestBarStore(t *testing.T) *BarStore {
	t.Helper()
	mdb, err := NewMarketDB(nil, true)
	if err != nil {
		t.Fatalf("NewMarketDB failed: %v", err)
	}
	t.Cleanup(func() { mdb.Close() })
	store, err := NewBarStore(mdb)
	if err != nil {
		t.Fatalf("NewBarStore failed: %v", err)
	}
	return store
}

func testBar(t *testing.T, symbol, day string, close float64, filled bool) market_history.Bar {
	t.Helper()
	d, err := market_history.ParseDay(day)
	if err != nil {
		t.Fatalf("ParseDay failed: %v", err)
	}
	return market_history.Bar{Symbol: symbol, Date: d, Time: "00:00:00", Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 500, Filled: filled}
}

func TestBarStore_SaveAndLoad(t *testing.T) {
	store := newTestBarStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastDate(ctx, "NSE:SBIN-EQ"); err != nil || ok {
		t.Fatalf("Empty store LastDate = %v, %v", ok, err)
	}

	bars := []market_history.Bar{
		testBar(t, "NSE:SBIN-EQ", "2024-01-05", 10, false),
		testBar(t, "NSE:SBIN-EQ", "2024-01-06", 10, true),
		testBar(t, "NSE:SBIN-EQ", "2024-01-08", 11, false),
		testBar(t, "NSE:TCS-EQ", "2024-01-05", 20, false),
	}
	if err := store.SaveBars(ctx, bars); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	last, ok, err := store.LastDate(ctx, "NSE:SBIN-EQ")
	if err != nil || !ok {
		t.Fatalf("LastDate = %v, %v", ok, err)
	}
	if last.Format("2006-01-02") != "2024-01-08" {
		t.Errorf("Expected last date 2024-01-08, got %s", last.Format("2006-01-02"))
	}

	from, _ := market_history.ParseDay("2024-01-06")
	to, _ := market_history.ParseDay("2024-01-31")
	loaded, err := store.LoadBars(ctx, "NSE:SBIN-EQ", from, to)
	if err != nil {
		t.Fatalf("LoadBars failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(loaded))
	}
	if !loaded[0].Filled || loaded[0].DateString() != "2024-01-06" || loaded[1].Close != 11 {
		t.Errorf("Unexpected bars %+v", loaded)
	}
	if loaded[0].Time != "00:00:00" || loaded[0].Volume != 500 {
		t.Errorf("Fields not round-tripped: %+v", loaded[0])
	}

	symbols, err := store.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "NSE:SBIN-EQ" || symbols[1] != "NSE:TCS-EQ" {
		t.Errorf("Unexpected symbols %v", symbols)
	}
}

func TestBarStore_UpsertReplaces(t *testing.T) {
	store := newTestBarStore(t)
	ctx := context.Background()

	if err := store.SaveBars(ctx, []market_history.Bar{testBar(t, "NSE:SBIN-EQ", "2024-01-06", 10, true)}); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}
	if err := store.SaveBars(ctx, []market_history.Bar{testBar(t, "NSE:SBIN-EQ", "2024-01-06", 12, false)}); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}
	all, err := store.AllBars(ctx)
	if err != nil {
		t.Fatalf("AllBars failed: %v", err)
	}
	if len(all) != 1 || all[0].Close != 12 || all[0].Filled {
		t.Errorf("Expected the later bar to replace the earlier one, got %+v", all)
	}
	if err := store.SaveBars(ctx, nil); err != nil {
		t.Errorf("Saving nothing should succeed, got %v", err)
	}
}

func TestBarStore_WithUpdater(t *testing.T) {
	store := newTestBarStore(t)
	ctx := context.Background()
	fetcher := stubFetcher{}
	pipeline, err := market_history.NewPipeline(fetcher)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	start, _ := market_history.ParseDay("2024-01-01")
	updater, err := market_history.NewUpdater(pipeline, store, nil, start, false)
	if err != nil {
		t.Fatalf("NewUpdater failed: %v", err)
	}
	if _, err := updater.UpdateSymbol(ctx, "NSE:SBIN-EQ"); err != nil {
		t.Fatalf("UpdateSymbol failed: %v", err)
	}
	last, ok, err := store.LastDate(ctx, "NSE:SBIN-EQ")
	if err != nil || !ok {
		t.Fatalf("LastDate = %v, %v", ok, err)
	}
	today := market_history.Day(time.Now().In(market_history.IST))
	if !last.Equal(today) {
		t.Errorf("Expected rollup to reach today %s, got %s", today.Format("2006-01-02"), last.Format("2006-01-02"))
	}
}
