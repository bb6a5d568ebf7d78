// Package domain defines the core types shared across the client: assets,
// user snapshots, leaderboard rows, chat messages, and trade feed entries.
package domain

import (
	"maps"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known order sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Asset is one monitored symbol as reported by the latest market poll.
type Asset struct {
	Symbol        string
	Name          string
	Sector        string
	Price         float64
	ChangePercent float64
	Volatility    float64 // beta-derived, 0.012 means 1.2%
}

// CatalogEntry is static display metadata for a known symbol.
type CatalogEntry struct {
	Name        string `yaml:"name"`
	Sector      string `yaml:"sector"`
	ChartSymbol string `yaml:"chart_symbol"`
}

// UserSnapshot is the backend's view of one participant. It is replaced
// wholesale on every round-trip and must not be mutated after creation.
type UserSnapshot struct {
	Balance   float64
	Portfolio map[string]float64
	Initial   float64
}

// Holding returns the quantity held of symbol (0 when absent).
func (u *UserSnapshot) Holding(symbol string) float64 {
	if u == nil {
		return 0
	}
	return u.Portfolio[symbol]
}

// Clone returns a deep copy of u.
func (u *UserSnapshot) Clone() *UserSnapshot {
	if u == nil {
		return nil
	}
	return &UserSnapshot{
		Balance:   u.Balance,
		Portfolio: maps.Clone(u.Portfolio),
		Initial:   u.Initial,
	}
}

// LeaderboardEntry is one ranked participant. ROI is computed by the
// backend and only ever displayed here.
type LeaderboardEntry struct {
	Identifier string
	Total      float64
	ROI        float64
}

// Role identifies who authored a chat message.
type Role string

const (
	RoleOutgoing Role = "outgoing" // the user
	RoleIncoming Role = "incoming" // the assistant
)

// ChatMessage is one entry of a per-symbol conversation log.
type ChatMessage struct {
	ID      string
	Role    Role
	Text    string
	Pending bool
	At      time.Time
}

// FeedEntry is one executed trade shown in the activity feed.
type FeedEntry struct {
	Identity string
	Symbol   string
	Side     Side
	Quantity int
	At       time.Time
}

// Level classifies a user-visible notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message surfaced to the user.
type Notification struct {
	Level Level
	Text  string
	At    time.Time
}
