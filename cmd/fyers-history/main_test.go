package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fyersbot/go_src/fyers_authen"
	"fyersbot/go_src/market_history"
)

// writeTestConfig writes a config pointing the data API at server and seeds today's session.
func writeTestConfig(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := map[string]interface{}{
		"fyers": map[string]interface{}{
			"app_id": "XY1234", "app_type": "100", "secret_key": "s3cret", "fyers_id": "AB12345",
			"totp_key": "JBSWY3DPEHPK3PXP", "userpin": "1234",
			"api_base_url": serverURL, "data_base_url": serverURL,
			"session_dir": filepath.Join(dir, "session"),
		},
		"history": map[string]interface{}{
			"workers":      2,
			"start_date":   "2024-01-01",
			"symbols":      []string{"NSE:SBIN-EQ"},
			"parquet_path": filepath.Join(dir, "ohlc.parquet.gzip"),
		},
		"retry": map[string]interface{}{
			"fetch": map[string]interface{}{"max_attempts": 1, "initial_delay_seconds": 0.001, "backoff_factor": 2},
		},
		"database": map[string]interface{}{"path": filepath.Join(dir, "market.duckdb")},
		"logging":  map[string]interface{}{"file_path": filepath.Join(dir, "log"), "console_output": false},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cache, err := fyers_authen.NewSessionCache(filepath.Join(dir, "session"), "s3cret")
	if err != nil {
		t.Fatalf("NewSessionCache failed: %v", err)
	}
	session := &fyers_authen.AuthSession{State: fyers_authen.StateTokenIssued, ClientID: "XY1234-100", AccessToken: "tok", IssuedAt: time.Now()}
	if err := cache.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func newDataServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/history":
			// Tue 2024-01-02 and Thu 2024-01-04 at 09:15 IST; Wednesday is missing.
			w.Write([]byte(`{"s":"ok","candles":[[1704167100,600,610,595,605,1000],[1704339900,606,620,604,618,1500]]}`))
		case "/profile":
			w.Write([]byte(`{"s":"ok","code":200,"data":{"fy_id":"AB12345","name":"TEST USER"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, &out)
	return out.String(), err
}

func TestFetchCommand(t *testing.T) {
	server := newDataServer(t)
	config := writeTestConfig(t, server.URL)

	out, err := run(t, "--config", config, "fetch", "NSE:SBIN-EQ", "--from", "2024-01-02", "--to", "2024-01-04")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "NSE:SBIN-EQ,2024-01-02,600,") {
		t.Errorf("Unexpected raw output:\n%s", out)
	}

	parquetPath := filepath.Join(t.TempDir(), "sbin.parquet")
	out, err = run(t, "--config", config, "fetch", "NSE:SBIN-EQ", "--from", "2024-01-02", "--to", "2024-01-04", "--rollup", "--parquet", parquetPath)
	if err != nil {
		t.Fatalf("fetch --rollup failed: %v", err)
	}
	if !strings.Contains(out, "NSE:SBIN-EQ,2024-01-03,600,610,595,605,1000,true") {
		t.Errorf("Rollup should forward-fill Wednesday:\n%s", out)
	}
	bars, err := market_history.ReadParquet(parquetPath)
	if err != nil || len(bars) != 3 {
		t.Errorf("Parquet rows = %d, %v", len(bars), err)
	}
}

func TestFetchCommand_Validation(t *testing.T) {
	config := writeTestConfig(t, "http://127.0.0.1:1")
	if _, err := run(t, "--config", config, "fetch", "NSE:SBIN-EQ"); err == nil {
		t.Error("Expected error without --from")
	}
	if _, err := run(t, "--config", config, "fetch", "NSE:SBIN-EQ", "--from", "02-01-2024"); err == nil || !strings.Contains(err.Error(), "--from") {
		t.Errorf("Expected --from parse error, got %v", err)
	}
	if _, err := run(t, "--config", config, "fetch", "NSE:SBIN-EQ", "--from", "2024-02-01", "--to", "2024-01-01"); err == nil {
		t.Error("Expected error for an inverted range")
	}
}

func TestUpdateAndProfileCommands(t *testing.T) {
	server := newDataServer(t)
	config := writeTestConfig(t, server.URL)

	out, err := run(t, "--config", config, "--in-memory", "update", "--symbols", "NSE:SBIN-EQ", "--parquet")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "updated=1 unchanged=0 failed=0") {
		t.Errorf("Unexpected summary %q", out)
	}

	out, err = run(t, "--config", config, "profile")
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if !strings.Contains(out, "TEST USER") {
		t.Errorf("Unexpected profile output %q", out)
	}
}

func TestConfigGetCommand(t *testing.T) {
	config := writeTestConfig(t, "http://127.0.0.1:1")
	out, err := run(t, "--config", config, "config", "get", "history.workers")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Errorf("history.workers = %q", out)
	}
	if _, err := run(t, "--config", config, "config", "get", "history.nope"); err == nil {
		t.Error("Expected error for an unknown key")
	}
}

func TestLoginCommandUsesCachedSession(t *testing.T) {
	config := writeTestConfig(t, "http://127.0.0.1:1")
	out, err := run(t, "--config", config, "login")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Session ready for XY1234-100") {
		t.Errorf("Unexpected output %q", out)
	}
}
