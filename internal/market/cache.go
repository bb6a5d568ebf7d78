// Package market holds the client-side market cache: the latest prices of
// every monitored symbol together with the leaderboard, replaced as one
// immutable snapshot per successful poll.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bursa/internal/domain"
	"bursa/pkg/bursa"
)

// Source is the subset of the backend client the cache polls.
type Source interface {
	MarketData(ctx context.Context) (map[string]bursa.Quote, error)
	Leaderboard(ctx context.Context) ([]bursa.Ranking, error)
}

// Snapshot is one consistent view of the market. It is never mutated after
// being published; readers may hold on to it freely.
type Snapshot struct {
	Seq         uint64
	FetchedAt   time.Time
	Assets      map[string]domain.Asset
	Leaderboard []domain.LeaderboardEntry
}

// Empty reports whether the snapshot carries no assets (nothing fetched
// yet, or the backend monitors nothing).
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Assets) == 0
}

// Asset looks up a symbol.
func (s *Snapshot) Asset(symbol string) (domain.Asset, bool) {
	if s == nil {
		return domain.Asset{}, false
	}
	a, ok := s.Assets[symbol]
	return a, ok
}

// Price returns the symbol's price, or 0 when it is not listed.
func (s *Snapshot) Price(symbol string) float64 {
	a, _ := s.Asset(symbol)
	return a.Price
}

// Symbols returns the listed symbols sorted alphabetically.
func (s *Snapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Assets))
	for sym := range s.Assets {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Cache polls a Source and publishes snapshots atomically.
type Cache struct {
	src     Source
	catalog map[string]domain.CatalogEntry
	log     *slog.Logger
	now     func() time.Time

	current atomic.Pointer[Snapshot]
	issued  atomic.Uint64
}

// NewCache creates a cache that starts with an empty snapshot. catalog
// supplies fallback names and sectors for symbols the backend describes
// incompletely.
func NewCache(src Source, catalog map[string]domain.CatalogEntry, log *slog.Logger) *Cache {
	c := &Cache{
		src:     src,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
	c.current.Store(&Snapshot{Assets: map[string]domain.Asset{}})
	return c
}

// Snapshot returns the latest published snapshot. It is never nil.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Refresh fetches market data and the leaderboard concurrently. The cache
// is replaced only when both calls succeed; on error the previous snapshot
// stays in place and the error is returned. A refresh that finishes after a
// later-issued one has already been published is dropped, and the newer
// snapshot is returned instead.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	seq := c.issued.Add(1)

	var (
		quotes   map[string]bursa.Quote
		rankings []bursa.Ranking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = c.src.MarketData(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rankings, err = c.src.Leaderboard(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return c.Snapshot(), fmt.Errorf("refreshing market: %w", err)
	}

	next := c.build(seq, quotes, rankings)
	for {
		cur := c.current.Load()
		if cur.Seq > seq {
			c.log.Debug("dropping superseded market refresh", "seq", seq, "current", cur.Seq)
			return cur, nil
		}
		if c.current.CompareAndSwap(cur, next) {
			c.log.Debug("market snapshot published", "seq", seq, "assets", len(next.Assets))
			return next, nil
		}
	}
}

func (c *Cache) build(seq uint64, quotes map[string]bursa.Quote, rankings []bursa.Ranking) *Snapshot {
	assets := make(map[string]domain.Asset, len(quotes))
	for sym, q := range quotes {
		meta := c.catalog[sym]
		a := domain.Asset{
			Symbol:        sym,
			Name:          q.Name,
			Sector:        q.Sector,
			Price:         q.Price,
			ChangePercent: q.ChangePercent,
			Volatility:    q.Volatility,
		}
		if a.Name == "" {
			a.Name = meta.Name
		}
		if a.Name == "" {
			a.Name = sym + " Asset"
		}
		if a.Sector == "" {
			a.Sector = meta.Sector
		}
		if a.Sector == "" {
			a.Sector = "General"
		}
		assets[sym] = a
	}

	board := make([]domain.LeaderboardEntry, 0, len(rankings))
	for _, r := range rankings {
		board = append(board, domain.LeaderboardEntry{
			Identifier: r.Identifier,
			Total:      r.Total,
			ROI:        r.ROI,
		})
	}

	return &Snapshot{
		Seq:         seq,
		FetchedAt:   c.now(),
		Assets:      assets,
		Leaderboard: board,
	}
}
