// Package app is the coordinator: it owns every store and controller of
// the client, the selected asset and the notification queue, and is the
// only place where they are combined. All methods are safe for concurrent
// use by background commands.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bursa/internal/auth"
	"bursa/internal/chat"
	"bursa/internal/domain"
	"bursa/internal/feed"
	"bursa/internal/market"
	"bursa/internal/roster"
	"bursa/internal/session"
	"bursa/internal/trade"
	"bursa/pkg/bursa"
)

// NoticeTTL is how long a notification stays visible.
const NoticeTTL = 3 * time.Second

const maxNotices = 32

// UserLoader fetches a participant snapshot when login did not include
// one.
type UserLoader interface {
	User(ctx context.Context, identifier string) (*bursa.UserData, error)
}

// Deps are the collaborators the coordinator wires together.
type Deps struct {
	Market   *market.Cache
	Sessions *session.Store
	Login    *auth.Controller
	Trades   *trade.Controller
	Roster   *roster.Manager
	Chat     *chat.Controller
	Feed     *feed.Feed
	Users    UserLoader

	Catalog         map[string]domain.CatalogEntry
	DefaultAsset    string
	EndsAt          time.Time
	LeaderboardSize int
	Log             *slog.Logger
}

// State is the application state.
type State struct {
	Deps
	now func() time.Time

	mu       sync.Mutex
	selected string
	notices  []domain.Notification
}

// New creates the coordinator with DefaultAsset selected.
func New(d Deps) *State {
	return &State{Deps: d, now: time.Now, selected: d.DefaultAsset}
}

// ---------------------------------------------------------------------------
// Selection and notifications
// ---------------------------------------------------------------------------

// Selected returns the selected asset symbol.
func (s *State) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select changes the selected asset. The chat view follows the selection.
func (s *State) Select(symbol string) {
	if symbol == "" {
		return
	}
	s.mu.Lock()
	s.selected = symbol
	s.mu.Unlock()
}

// Notify queues a notification.
func (s *State) Notify(level domain.Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, domain.Notification{Level: level, Text: text, At: s.now()})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// Notice returns the latest notification if it is still within NoticeTTL
// at now.
func (s *State) Notice(now time.Time) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notices) == 0 {
		return domain.Notification{}, false
	}
	n := s.notices[len(s.notices)-1]
	if now.Sub(n.At) >= NoticeTTL {
		return domain.Notification{}, false
	}
	return n, true
}

// Notices returns every queued notification, oldest first.
func (s *State) Notices() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notices...)
}

// ---------------------------------------------------------------------------
// Market
// ---------------------------------------------------------------------------

// RefreshMarket polls prices and the leaderboard. A failure keeps the
// previous snapshot and queues a warning.
func (s *State) RefreshMarket(ctx context.Context) (*market.Snapshot, error) {
	snap, err := s.Market.Refresh(ctx)
	if err != nil {
		s.Log.Warn("market refresh failed", "error", err)
		s.Notify(domain.LevelError, msgMarketUnavailable)
	}
	return snap, err
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

// SubmitLogin feeds the login form. When the code is verified the session
// begins; if the backend did not include the participant snapshot it is
// loaded separately.
func (s *State) SubmitLogin(ctx context.Context, input string) (*auth.Outcome, error) {
	out, err := s.Login.Submit(ctx, input)
	if err != nil {
		if !errors.Is(err, auth.ErrSuperseded) {
			s.Notify(domain.LevelError, userMessage(err, msgLoginFailed))
		}
		return nil, err
	}
	if out.Login == nil {
		if out.Message != "" {
			s.Notify(domain.LevelInfo, out.Message)
		}
		return out, nil
	}

	user := session.FromUserData(out.Login.User)
	if user == nil {
		data, err := s.Users.User(ctx, out.Login.Identity)
		if err != nil {
			s.Log.Warn("loading participant failed", "legajo", out.Login.Identity, "error", err)
			s.Notify(domain.LevelError, msgUserUnavailable)
		}
		user = session.FromUserData(data)
	}
	s.Sessions.Begin(out.Login.Identity, user)
	s.Log.Info("session started", "legajo", out.Login.Identity)
	s.Notify(domain.LevelSuccess, "✅ Bienvenido, #"+out.Login.Identity)
	return out, nil
}

// CancelLogin abandons a pending verification code.
func (s *State) CancelLogin() {
	s.Login.Cancel()
}

// Logout ends the session. Login state and chat logs are reset and any
// session-bound result still in flight is dropped. The trade feed is
// market activity and survives.
func (s *State) Logout() {
	sess := s.Sessions.Current()
	s.Sessions.End()
	s.Login.Reset()
	s.Chat.Reset()
	if sess != nil {
		s.Log.Info("session ended", "legajo", sess.Identity)
	}
}

// ---------------------------------------------------------------------------
// Trading
// ---------------------------------------------------------------------------

// Trade submits an order for the selected asset and refreshes the market
// when it executes.
func (s *State) Trade(ctx context.Context, side domain.Side, quantityInput string) (*trade.Result, error) {
	res, err := s.Trades.Submit(ctx, s.Selected(), side, quantityInput)
	if err != nil {
		generic := msgTradeFailed
		var apiErr *bursa.APIError
		if !errors.As(err, &apiErr) && !isLocal(err) {
			generic = msgTradeUnreachable
		}
		s.Notify(domain.LevelError, userMessage(err, generic))
		return nil, err
	}
	s.Notify(domain.LevelSuccess, tradeSuccess(side))
	s.RefreshMarket(ctx)
	return res, nil
}

func isLocal(err error) bool {
	return errors.Is(err, trade.ErrInvalidQuantity) ||
		errors.Is(err, trade.ErrNotLoggedIn) ||
		errors.Is(err, trade.ErrNoAsset) ||
		errors.Is(err, trade.ErrInvalidOrder)
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

// AddAsset starts monitoring symbol and selects it.
func (s *State) AddAsset(ctx context.Context, symbol string) (string, error) {
	sym, err := s.Roster.Add(ctx, symbol)
	if err != nil {
		s.Notify(domain.LevelError, userMessage(err, msgAddFailed))
		return "", err
	}
	s.Select(sym)
	s.Notify(domain.LevelSuccess, "✅ "+sym+" agregado al mercado.")
	s.RefreshMarket(ctx)
	return sym, nil
}

// RemoveAsset stops monitoring symbol, moving the selection away from it
// when needed.
func (s *State) RemoveAsset(ctx context.Context, symbol string) error {
	next, err := s.Roster.Remove(ctx, symbol, s.Selected())
	if err != nil {
		s.Notify(domain.LevelError, userMessage(err, msgRemoveFailed))
		return err
	}
	s.Select(next)
	s.Notify(domain.LevelSuccess, "🗑️ "+roster.Normalize(symbol)+" eliminado de la pila de mercado.")
	s.RefreshMarket(ctx)
	return nil
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

// BeginChat posts text to the selected asset's conversation.
func (s *State) BeginChat(text string) (*chat.Pending, bool) {
	sym := s.Selected()
	ac := chat.AssetContext{Symbol: sym}
	if a, ok := s.Market.Snapshot().Asset(sym); ok {
		ac.Price = a.Price
		ac.Sector = a.Sector
	} else if meta, ok := s.Catalog[sym]; ok {
		ac.Sector = meta.Sector
	}
	return s.Chat.Begin(ac, text)
}

// CompleteChat resolves a pending chat reply.
func (s *State) CompleteChat(ctx context.Context, p *chat.Pending) (domain.ChatMessage, error) {
	return s.Chat.Complete(ctx, p)
}
