package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"bursa/internal/app"
	"bursa/internal/config"
	"bursa/internal/util"
)

func main() {
	cfgPath := flag.String("config", envOr("BURSA_CONFIG", "config/bursa.yaml"), "path to config file")
	flag.Parse()

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logFile := util.NewFileLogger(cfg.Logging.Level, cfg.Logging.File)
	defer logFile.Close()
	util.SetDefault(logger)
	logger.Info("starting bursa-client", "backend", cfg.Backend.URL, "poll", cfg.Market.PollInterval)

	st, closer, err := app.Build(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		initialModel(ctx, cancel, st, cfg.Market.PollInterval, cfg.UI.TimerInterval, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		logger.Error("program exited", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
