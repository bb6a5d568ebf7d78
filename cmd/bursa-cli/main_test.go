package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bursa/internal/config"
)

func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "ok"}`)
	})
	mux.HandleFunc("GET /api/market-data", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"GGAL": {"price": 120.5, "change_percent": -1.2, "sector": "Financiero", "volatility": 0.012}}`)
	})
	mux.HandleFunc("GET /api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"legajo": "7", "total": 101000, "roi": 1}, {"legajo": "42", "total": 100000, "roi": 0}]`)
	})
	mux.HandleFunc("GET /api/db/42", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"balance": 100000, "portfolio": {}}`)
	})
	mux.HandleFunc("POST /api/trade", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "success", "userData": {"balance": 98795, "portfolio": {"GGAL": 10}}}`)
	})
	mux.HandleFunc("POST /api/auth/request-code", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message": "Código enviado"}`)
	})
	mux.HandleFunc("POST /api/auth/verify-code", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"userId": "42", "userData": {"balance": 100000, "portfolio": {"GGAL": 3}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, url string) *config.Config {
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func runCmd(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cfg, slog.New(slog.DiscardHandler), args[0], args[1:], strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestHealthAndMarket(t *testing.T) {
	cfg := testConfig(t, testBackend(t).URL)

	out, err := runCmd(t, cfg, "", "health")
	if err != nil || !strings.Contains(out, ": ok") {
		t.Fatalf("health: %q, %v", out, err)
	}

	out, err = runCmd(t, cfg, "", "market")
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	for _, want := range []string{"GGAL", "Grupo Galicia", "$120.50", "-1.20%", "1.2%"} {
		if !strings.Contains(out, want) {
			t.Errorf("market output missing %q:\n%s", want, out)
		}
	}
}

func TestLeaderboardHighlight(t *testing.T) {
	cfg := testConfig(t, testBackend(t).URL)
	out, err := runCmd(t, cfg, "", "leaderboard", "-legajo", "42")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !strings.Contains(out, "♛") || !strings.Contains(out, "42 *") {
		t.Errorf("leaderboard output:\n%s", out)
	}
}

func TestLoginReadsCodeFromStdin(t *testing.T) {
	cfg := testConfig(t, testBackend(t).URL)
	out, err := runCmd(t, cfg, "123456\n", "login", "-usuario", "42")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Código de verificación") || !strings.Contains(out, "Legajo 42  saldo $100,000.00") {
		t.Errorf("login output:\n%s", out)
	}
	if !strings.Contains(out, "GGAL") {
		t.Errorf("holdings missing:\n%s", out)
	}
}

func TestTradeThenExport(t *testing.T) {
	cfg := testConfig(t, testBackend(t).URL)

	out, err := runCmd(t, cfg, "", "trade", "-legajo", "42", "-asset", "ggal", "-qty", "10")
	if err != nil {
		t.Fatalf("trade: %v", err)
	}
	if !strings.Contains(out, "#42 compró GGAL — 10 un.") || !strings.Contains(out, "$98,795.00") {
		t.Errorf("trade output:\n%s", out)
	}

	if _, err := runCmd(t, cfg, "", "trade", "-legajo", "42", "-qty", "abc"); err == nil {
		t.Error("invalid quantity should fail")
	}

	dir := filepath.Join(t.TempDir(), "out")
	out, err = runCmd(t, cfg, "", "export", "-out", dir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "1 trades") {
		t.Errorf("export output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "trades.parquet")); err != nil {
		t.Errorf("trades.parquet not written: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	if _, err := runCmd(t, cfg, "", "bogus"); err == nil {
		t.Error("expected error")
	}
}
