package util

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "symbol", "GGAL")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"symbol":"GGAL"`) {
		t.Errorf("expected JSON attribute in output: %s", out)
	}
}

func TestRateLimiterNil(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	if rl != nil {
		t.Fatal("NewRateLimiter(0) should disable limiting")
	}
	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Fatal("nil limiter should always allow")
		}
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
}

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 2) // one per minute, burst of two
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst tokens should be available immediately")
	}
	if rl.Allow() {
		t.Fatal("third call should be limited")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("Wait should give up when the context expires")
	}
}

func TestNewFileLoggerWritesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	logger, closer := NewFileLogger("info", path)

	logger.Debug("hidden")
	logger.Info("poll done", "seq", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "msg=\"poll done\"") || !strings.Contains(got, "seq=7") {
		t.Errorf("log file = %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Error("debug record written at info level")
	}
}
