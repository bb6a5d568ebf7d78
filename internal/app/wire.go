package app

import (
	"fmt"
	"io"
	"log/slog"

	"bursa/internal/auth"
	"bursa/internal/chat"
	"bursa/internal/config"
	"bursa/internal/feed"
	"bursa/internal/journal"
	"bursa/internal/market"
	"bursa/internal/roster"
	"bursa/internal/session"
	"bursa/internal/trade"
	"bursa/internal/util"
	"bursa/pkg/bursa"
)

// Build wires a State from configuration. The returned closer releases the
// journal, if one was opened; it is never nil.
func Build(cfg *config.Config, log *slog.Logger) (*State, io.Closer, error) {
	endsAt, err := cfg.EndsAt()
	if err != nil {
		return nil, nil, err
	}

	client := bursa.NewClient(cfg.Backend.URL, bursa.WithTimeout(cfg.Backend.Timeout))
	cache := market.NewCache(client, cfg.Market.Catalog, log)
	sessions := session.NewStore()
	f := feed.New(cfg.UI.FeedSize)

	var (
		closer    io.Closer = nopCloser{}
		tradeOpts           = []trade.Option{trade.WithPrices(func(sym string) float64 { return cache.Snapshot().Price(sym) })}
		chatOpts            = []chat.Option{chat.WithRateLimiter(util.NewRateLimiter(cfg.Chat.RateLimitPerMin, 3))}
	)
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening journal: %w", err)
		}
		closer = j
		tradeOpts = append(tradeOpts, trade.WithJournal(j))
		chatOpts = append(chatOpts, chat.WithJournal(j))
		log.Info("journal enabled", "path", cfg.Journal.Path)
	}

	gen := chat.NewGenerator(cfg.Chat.BaseURL, cfg.Chat.Model, cfg.Chat.APIKey, cfg.Chat.Timeout)
	if _, ok := gen.(chat.Unconfigured); ok {
		log.Warn("chat disabled: no GEMINI_API_KEY configured")
	}

	st := New(Deps{
		Market:          cache,
		Sessions:        sessions,
		Login:           auth.NewController(client, log),
		Trades:          trade.NewController(client, sessions, f, log, tradeOpts...),
		Roster:          roster.NewManager(client, cache, sessions, cfg.Market.DefaultAsset, log),
		Chat:            chat.NewController(gen, log, chatOpts...),
		Feed:            f,
		Users:           client,
		Catalog:         cfg.Market.Catalog,
		DefaultAsset:    cfg.Market.DefaultAsset,
		EndsAt:          endsAt,
		LeaderboardSize: cfg.UI.LeaderboardSize,
		Log:             log,
	})
	return st, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
