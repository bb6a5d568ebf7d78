// Package roster adds and removes the symbols the backend monitors.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bursa/internal/market"
	"bursa/internal/session"
)

var (
	ErrEmptySymbol   = errors.New("symbol is required")
	ErrAlreadyListed = errors.New("symbol is already listed")
)

// HoldingsError rejects removing a symbol the participant still holds.
type HoldingsError struct {
	Symbol   string
	Quantity float64
}

func (e *HoldingsError) Error() string {
	return fmt.Sprintf("Debes vender las %s acciones de %s primero.", formatQty(e.Quantity), e.Symbol)
}

// ErrHoldingsRemain matches any *HoldingsError with errors.Is.
var ErrHoldingsRemain = errors.New("holdings remain")

func (e *HoldingsError) Is(target error) bool { return target == ErrHoldingsRemain }

// Backend is the roster half of the REST client.
type Backend interface {
	AddAsset(ctx context.Context, symbol string) error
	RemoveAsset(ctx context.Context, symbol string) error
}

// Snapshotter exposes the latest market snapshot.
type Snapshotter interface {
	Snapshot() *market.Snapshot
}

// Manager applies roster changes.
type Manager struct {
	api          Backend
	market       Snapshotter
	sessions     *session.Store
	defaultAsset string
	log          *slog.Logger
}

// NewManager creates a roster manager. defaultAsset is selected when the
// selected symbol is removed and nothing else is listed.
func NewManager(api Backend, m Snapshotter, sessions *session.Store, defaultAsset string, log *slog.Logger) *Manager {
	return &Manager{api: api, market: m, sessions: sessions, defaultAsset: defaultAsset, log: log}
}

// Normalize trims and upper-cases a user-entered symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Add asks the backend to start monitoring symbol and returns the
// normalized symbol, which callers select.
func (m *Manager) Add(ctx context.Context, symbol string) (string, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return "", ErrEmptySymbol
	}
	if _, ok := m.market.Snapshot().Asset(sym); ok {
		return "", fmt.Errorf("%s: %w", sym, ErrAlreadyListed)
	}
	if err := m.api.AddAsset(ctx, sym); err != nil {
		m.log.Warn("add asset failed", "symbol", sym, "error", err)
		return "", err
	}
	m.log.Info("asset added", "symbol", sym)
	return sym, nil
}

// Remove asks the backend to stop monitoring symbol. It is rejected
// locally while the logged-in participant holds any of it. The returned
// string is the symbol to select next: selected itself when another symbol
// was selected, otherwise the first remaining listed symbol or the
// default.
func (m *Manager) Remove(ctx context.Context, symbol, selected string) (string, error) {
	sym := Normalize(symbol)
	if sym == "" {
		return selected, ErrEmptySymbol
	}
	if sess := m.sessions.Current(); sess != nil {
		if qty := sess.User.Holding(sym); qty != 0 {
			return selected, &HoldingsError{Symbol: sym, Quantity: qty}
		}
	}
	if err := m.api.RemoveAsset(ctx, sym); err != nil {
		m.log.Warn("remove asset failed", "symbol", sym, "error", err)
		return selected, err
	}
	m.log.Info("asset removed", "symbol", sym)

	if selected != sym {
		return selected, nil
	}
	return m.fallback(sym), nil
}

func (m *Manager) fallback(removed string) string {
	for _, s := range m.market.Snapshot().Symbols() {
		if s != removed {
			return s
		}
	}
	return m.defaultAsset
}

func formatQty(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%g", q)
}
