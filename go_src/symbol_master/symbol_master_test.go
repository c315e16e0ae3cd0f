package symbol_master

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/retry_helper"
	"fyersbot/go_src/trade_exceptions"
)

const masterCSV = `10100000003045,STATE BANK OF INDIA,0,1,0.05,INE062A01020,0915-1530|1815-1915:,1712345678,,NSE:SBIN-EQ,10,10,3045,SBIN,3045,-1.0,XX,10100000003045,None,
10100000002885,RELIANCE INDUSTRIES LTD,0,1,0.05,INE002A01018,0915-1530|1815-1915:,1712345678,,NSE:RELIANCE-EQ,10,10,2885,RELIANCE,2885,-1.0,XX,10100000002885,None,
10100000001594,INFOSYS LIMITED,0,1,0.05,INE009A01021,0915-1530|1815-1915:,1712345678,,NSE:INFY-EQ,10,10,1594,INFY,1594,-1.0,XX,10100000001594,None,
short,row
`

const indexCSV = `Company Name,Industry,Symbol,Series,ISIN Code
Infosys Ltd.,Information Technology,INFY,EQ,INE009A01021
State Bank of India,Financial Services,SBIN,EQ,INE062A01020
Unlisted Ltd.,Services,UNL,EQ,INE000000000
`

func TestParseSymbolMaster(t *testing.T) {
	details, err := ParseSymbolMaster([]byte(masterCSV))
	if err != nil {
		t.Fatalf("ParseSymbolMaster failed: %v", err)
	}
	if len(details) != 3 {
		t.Fatalf("Expected 3 rows (short row skipped), got %d", len(details))
	}
	sbin := details[0]
	if sbin.Symbol != "NSE:SBIN-EQ" || sbin.ISIN != "INE062A01020" || sbin.LotSize != 1 || sbin.TickSize != 0.05 {
		t.Errorf("Unexpected first row %+v", sbin)
	}
	if sbin.ScripCode != "3045" || sbin.UnderlyingScripCode != "SBIN" || sbin.Exchange != "10" {
		t.Errorf("Columns misaligned: %+v", sbin)
	}

	empty, err := ParseSymbolMaster(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Empty master = %v, %v", empty, err)
	}
}

func TestParseIndexConstituents(t *testing.T) {
	members, err := ParseIndexConstituents([]byte(indexCSV))
	if err != nil {
		t.Fatalf("ParseIndexConstituents failed: %v", err)
	}
	if len(members) != 3 || members[0].ISIN != "INE009A01021" || members[1].Symbol != "SBIN" {
		t.Errorf("Unexpected members %+v", members)
	}

	_, err = ParseIndexConstituents([]byte("Company Name,Symbol\nInfosys,INFY\n"))
	var parseErr *trade_exceptions.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Expected ParseError for a list without ISIN Code, got %v", err)
	}
}

func TestMatchByISIN(t *testing.T) {
	master, _ := ParseSymbolMaster([]byte(masterCSV))
	members, _ := ParseIndexConstituents([]byte(indexCSV))
	got := MatchByISIN(master, members)
	want := []string{"NSE:SBIN-EQ", "NSE:INFY-EQ"}
	if len(got) != len(want) {
		t.Fatalf("MatchByISIN = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MatchByISIN[%d] = %s, want %s (master order)", i, got[i], want[i])
		}
	}
}

type csvServer struct {
	*httptest.Server
	hits     map[string]*int32
	failures int32
}

func newCSVServer(t *testing.T, failFirst int32) *csvServer {
	t.Helper()
	s := &csvServer{hits: map[string]*int32{"/master.csv": new(int32), "/index.csv": new(int32)}, failures: failFirst}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, ok := s.hits[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(counter, 1)
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			t.Errorf("Missing browser User-Agent on %s", r.URL.Path)
		}
		if atomic.AddInt32(&s.failures, -1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		if r.URL.Path == "/master.csv" {
			w.Write([]byte(masterCSV))
		} else {
			w.Write([]byte(indexCSV))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestResolver(t *testing.T, s *csvServer) *Resolver {
	t.Helper()
	policy, err := retry_helper.NewPolicy(2, time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}
	d, err := NewDownloader(rest_client.NewHTTPExecutor(time.Second, nil), policy, 0)
	if err != nil {
		t.Fatalf("NewDownloader failed: %v", err)
	}
	return NewResolver(d, s.URL+"/master.csv")
}

func TestResolveIndex(t *testing.T) {
	s := newCSVServer(t, 0)
	r := newTestResolver(t, s)

	symbols, err := r.ResolveIndex(context.Background(), s.URL+"/index.csv")
	if err != nil {
		t.Fatalf("ResolveIndex failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "NSE:SBIN-EQ" {
		t.Errorf("Unexpected symbols %v", symbols)
	}

	t.Run("downloads are memoized by URL", func(t *testing.T) {
		if _, err := r.ResolveIndex(context.Background(), s.URL+"/index.csv"); err != nil {
			t.Fatalf("second ResolveIndex failed: %v", err)
		}
		if *s.hits["/master.csv"] != 1 || *s.hits["/index.csv"] != 1 {
			t.Errorf("Expected one download per URL, got master=%d index=%d", *s.hits["/master.csv"], *s.hits["/index.csv"])
		}
		r.downloader.Forget()
		if _, err := r.Master(context.Background()); err != nil {
			t.Fatalf("Master failed: %v", err)
		}
		if *s.hits["/master.csv"] != 2 {
			t.Errorf("Forget should force a download, got %d", *s.hits["/master.csv"])
		}
	})
}

func TestDownloaderRetriesAndDoesNotCacheFailures(t *testing.T) {
	s := newCSVServer(t, 2)
	r := newTestResolver(t, s)
	if _, err := r.Master(context.Background()); err != nil {
		t.Fatalf("Master should succeed on the third attempt: %v", err)
	}
	if *s.hits["/master.csv"] != 3 {
		t.Errorf("Expected 3 attempts, got %d", *s.hits["/master.csv"])
	}

	s404 := newCSVServer(t, 0)
	r404 := newTestResolver(t, s404)
	if _, err := r404.Constituents(context.Background(), s404.URL+"/missing.csv"); err == nil {
		t.Error("Expected error for a missing index file")
	}
	if r404.downloader.cache.Len() != 0 {
		t.Error("Failed downloads must not be cached")
	}
}

func TestResolveIndex_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.csv" {
			w.Write([]byte("Company Name,Industry,Symbol,Series,ISIN Code\nX,Y,Z,EQ,INE999Z99999\n"))
			return
		}
		w.Write([]byte(masterCSV))
	}))
	defer server.Close()
	d, _ := NewDownloader(rest_client.NewHTTPExecutor(time.Second, nil), nil, 0)
	r := NewResolver(d, server.URL+"/master.csv")
	if _, err := r.ResolveIndex(context.Background(), server.URL+"/index.csv"); err == nil {
		t.Error("Expected error when nothing matches")
	}
}

func TestResolverFromConfig(t *testing.T) {
	cfg := &configuration.Config{}
	cfg.Retry.Scrape = configuration.RetrySettings{MaxAttempts: 5, InitialDelaySeconds: 2, BackoffFactor: 3}
	r, err := ResolverFromConfig(cfg, rest_client.NewHTTPExecutor(time.Second, nil))
	if err != nil {
		t.Fatalf("ResolverFromConfig failed: %v", err)
	}
	if r.masterURL != DefaultSymbolMasterURL || r.downloader.policy.MaxAttempts() != 5 {
		t.Errorf("Unexpected resolver %+v", r)
	}

	cfg.Retry.Scrape.BackoffFactor = 0.5
	if _, err := ResolverFromConfig(cfg, rest_client.NewHTTPExecutor(time.Second, nil)); err == nil {
		t.Error("Expected error for an invalid scrape policy")
	}
	if _, err := NewDownloader(nil, nil, 0); err == nil {
		t.Error("Expected error for a nil executor")
	}
}
