package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"bursa/internal/auth"
	"bursa/internal/chat"
	"bursa/internal/config"
	"bursa/internal/domain"
	"bursa/internal/feed"
	"bursa/internal/journal"
	"bursa/internal/market"
	"bursa/internal/roster"
	"bursa/internal/session"
	"bursa/internal/trade"
	"bursa/pkg/bursa"
)

// fakeBackend is an in-memory game server speaking the REST API.
type fakeBackend struct {
	mu        sync.Mutex
	quotes    map[string]map[string]any
	users     map[string]map[string]any
	marketErr bool
	omitUser  bool
	trades    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		quotes: map[string]map[string]any{
			"GGAL": {"price": 120.5, "change_percent": -1.2, "sector": "Financiero", "volatility": 0.012},
			"MELI": {"price": 1500.0, "change_percent": 0.5, "sector": "E-Commerce"},
		},
		users: map[string]map[string]any{
			"42": {"balance": 100000.0, "portfolio": map[string]any{}, "initial": 100000.0},
		},
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeJSON := func(status int, v any) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	var body map[string]any
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	switch {
	case r.URL.Path == "/api/market-data":
		if f.marketErr {
			writeJSON(http.StatusInternalServerError, map[string]any{"detail": "yfinance down"})
			return
		}
		writeJSON(http.StatusOK, f.quotes)
	case r.URL.Path == "/api/leaderboard":
		writeJSON(http.StatusOK, []map[string]any{
			{"legajo": "999", "total": 120000, "roi": 20},
			{"legajo": "42", "total": 100000, "roi": 0},
		})
	case r.URL.Path == "/api/auth/request-code":
		if body["usuario"] != "42" {
			writeJSON(http.StatusNotFound, map[string]any{"detail": "Usuario no registrado"})
			return
		}
		writeJSON(http.StatusOK, map[string]any{"message": "Código enviado"})
	case r.URL.Path == "/api/auth/verify-code":
		if body["code"] != "123456" {
			writeJSON(http.StatusUnauthorized, map[string]any{"detail": "Código inválido"})
			return
		}
		resp := map[string]any{"userId": "42"}
		if !f.omitUser {
			resp["userData"] = f.users["42"]
		}
		writeJSON(http.StatusOK, resp)
	case strings.HasPrefix(r.URL.Path, "/api/db/"):
		writeJSON(http.StatusOK, f.users[strings.TrimPrefix(r.URL.Path, "/api/db/")])
	case r.URL.Path == "/api/trade":
		f.trades++
		qty := body["quantity"].(float64)
		price := f.quotes[body["asset"].(string)]["price"].(float64)
		u := f.users[body["legajo"].(string)]
		if body["type"] == "buy" {
			if qty*price > u["balance"].(float64) {
				writeJSON(http.StatusBadRequest, map[string]any{"detail": "Saldo insuficiente."})
				return
			}
			u["balance"] = u["balance"].(float64) - qty*price
			u["portfolio"] = map[string]any{body["asset"].(string): qty}
		}
		writeJSON(http.StatusOK, map[string]any{"status": "success", "userData": u})
	case r.URL.Path == "/api/market/add":
		f.quotes[body["symbol"].(string)] = map[string]any{"price": 60.0}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/market/"):
		delete(f.quotes, strings.TrimPrefix(r.URL.Path, "/api/market/"))
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type echoGen struct{}

func (echoGen) Generate(ctx context.Context, prompt string) (string, error) {
	return "respuesta", nil
}

func newState(t *testing.T, backend *fakeBackend) *State {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	log := slog.New(slog.DiscardHandler)
	client := bursa.NewClient(srv.URL)
	catalog := map[string]domain.CatalogEntry{"GGAL": {Name: "Grupo Galicia", Sector: "Financiero"}}
	cache := market.NewCache(client, catalog, log)
	sessions := session.NewStore()
	f := feed.New(8)

	return New(Deps{
		Market:          cache,
		Sessions:        sessions,
		Login:           auth.NewController(client, log),
		Trades:          trade.NewController(client, sessions, f, log),
		Roster:          roster.NewManager(client, cache, sessions, "GGAL", log),
		Chat:            chat.NewController(echoGen{}, log),
		Feed:            f,
		Users:           client,
		Catalog:         catalog,
		DefaultAsset:    "GGAL",
		EndsAt:          time.Date(2026, 1, 27, 3, 0, 0, 0, time.UTC),
		LeaderboardSize: 8,
		Log:             log,
	})
}

func login(t *testing.T, s *State) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.SubmitLogin(ctx, "42"); err != nil {
		t.Fatalf("request code: %v", err)
	}
	out, err := s.SubmitLogin(ctx, "123456")
	if err != nil {
		t.Fatalf("verify code: %v", err)
	}
	if out.Login == nil {
		t.Fatal("expected login")
	}
}

func TestLoginTradeScenario(t *testing.T) {
	s := newState(t, newFakeBackend())
	ctx := context.Background()
	now := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

	if _, err := s.RefreshMarket(ctx); err != nil {
		t.Fatalf("RefreshMarket: %v", err)
	}
	login(t, s)

	v := s.View(now)
	if !v.LoggedIn || v.Identity != "42" || v.Balance != "$100,000.00" {
		t.Fatalf("view after login = %+v", v)
	}
	if v.Holdings != nil {
		t.Errorf("fresh participant should hold nothing, got %+v", v.Holdings)
	}
	if !v.Leaderboard[1].Current || v.Leaderboard[0].Current {
		t.Error("leaderboard should highlight the participant")
	}

	if _, err := s.Trade(ctx, domain.SideBuy, "10"); err != nil {
		t.Fatalf("Trade: %v", err)
	}
	v = s.View(now)
	if v.Balance != "$98,795.00" {
		t.Errorf("Balance = %q", v.Balance)
	}
	if len(v.Holdings) != 1 || v.Holdings[0].Value != "$1,205.00" {
		t.Errorf("Holdings = %+v", v.Holdings)
	}
	if len(v.Feed) != 1 || v.Feed[0] != "#42 compró GGAL — 10 un." {
		t.Errorf("Feed = %v", v.Feed)
	}
	if v.Notice == nil || v.Notice.Text != "✅ Compra Exitosa" {
		t.Errorf("Notice = %+v", v.Notice)
	}
}

func TestTradeRejections(t *testing.T) {
	backend := newFakeBackend()
	s := newState(t, backend)
	ctx := context.Background()
	s.RefreshMarket(ctx)
	login(t, s)

	if _, err := s.Trade(ctx, domain.SideBuy, "abc"); !errors.Is(err, trade.ErrInvalidQuantity) {
		t.Fatalf("err = %v", err)
	}
	n, _ := s.Notice(time.Now())
	if n.Text != "⚠️ Cantidad inválida" {
		t.Errorf("notice = %q", n.Text)
	}
	if backend.trades != 0 {
		t.Error("invalid quantity reached the backend")
	}

	s.Select("MELI")
	if _, err := s.Trade(ctx, domain.SideBuy, "1000"); err == nil {
		t.Fatal("expected insufficient balance")
	}
	n, _ = s.Notice(time.Now())
	if n.Text != "❌ Saldo insuficiente." {
		t.Errorf("notice = %q", n.Text)
	}
	if s.View(time.Now()).Balance != "$100,000.00" {
		t.Error("rejected trade changed the balance")
	}
}

func TestLoginLoadsMissingSnapshot(t *testing.T) {
	backend := newFakeBackend()
	backend.omitUser = true
	s := newState(t, backend)
	login(t, s)
	if sess := s.Sessions.Current(); sess == nil || sess.User.Balance != 100000 {
		t.Fatalf("session = %+v", sess)
	}
}

func TestInvalidCodeStaysInCodeEntry(t *testing.T) {
	s := newState(t, newFakeBackend())
	ctx := context.Background()
	s.SubmitLogin(ctx, "42")
	if _, err := s.SubmitLogin(ctx, "000000"); err == nil {
		t.Fatal("expected error")
	}
	v := s.View(time.Now())
	if v.LoggedIn || v.LoginState != auth.AwaitingCode || v.Pending != "42" {
		t.Errorf("view = %+v", v)
	}
	if v.Notice == nil || v.Notice.Text != "❌ Código inválido" {
		t.Errorf("notice = %+v", v.Notice)
	}

	s.CancelLogin()
	if v := s.View(time.Now()); v.LoginState != auth.AwaitingUsername || v.Pending != "" {
		t.Errorf("after cancel: %+v", v)
	}
}

func TestLogoutResetsSessionButKeepsFeed(t *testing.T) {
	s := newState(t, newFakeBackend())
	ctx := context.Background()
	s.RefreshMarket(ctx)
	login(t, s)
	s.Trade(ctx, domain.SideBuy, "1")
	s.BeginChat("hola")

	s.Logout()
	v := s.View(time.Now())
	if v.LoggedIn || v.Holdings != nil {
		t.Errorf("view after logout = %+v", v)
	}
	if len(v.Feed) != 1 {
		t.Error("feed should survive logout")
	}
	if len(v.Chat) != 1 {
		t.Errorf("chat should restart with the greeting, got %d lines", len(v.Chat))
	}
}

func TestMarketFailureKeepsSnapshotAndWarns(t *testing.T) {
	backend := newFakeBackend()
	s := newState(t, backend)
	ctx := context.Background()
	first, _ := s.RefreshMarket(ctx)

	backend.mu.Lock()
	backend.marketErr = true
	backend.mu.Unlock()

	if _, err := s.RefreshMarket(ctx); err == nil {
		t.Fatal("expected error")
	}
	if s.Market.Snapshot() != first {
		t.Error("failed refresh replaced the snapshot")
	}
	n, ok := s.Notice(time.Now())
	if !ok || n.Text != "⚠️ No se pudieron cargar los precios en tiempo real." {
		t.Errorf("notice = %+v", n)
	}
}

func TestRosterFlow(t *testing.T) {
	s := newState(t, newFakeBackend())
	ctx := context.Background()
	s.RefreshMarket(ctx)
	login(t, s)

	sym, err := s.AddAsset(ctx, " ko ")
	if err != nil {
		t.Fatalf("AddAsset: %v", err)
	}
	if sym != "KO" || s.Selected() != "KO" {
		t.Errorf("selected = %q", s.Selected())
	}
	if _, ok := s.Market.Snapshot().Asset("KO"); !ok {
		t.Error("refresh after add should list KO")
	}

	if err := s.RemoveAsset(ctx, "KO"); err != nil {
		t.Fatalf("RemoveAsset: %v", err)
	}
	if s.Selected() != "GGAL" {
		t.Errorf("selection after removing KO = %q, want GGAL", s.Selected())
	}

	s.Trade(ctx, domain.SideBuy, "2")
	err = s.RemoveAsset(ctx, "GGAL")
	if !errors.Is(err, roster.ErrHoldingsRemain) {
		t.Fatalf("err = %v", err)
	}
	n, _ := s.Notice(time.Now())
	if n.Text != "❌ Error: Debes vender las 2 acciones de GGAL primero." {
		t.Errorf("notice = %q", n.Text)
	}
}

func TestChatUsesSelectedAssetContext(t *testing.T) {
	s := newState(t, newFakeBackend())
	ctx := context.Background()
	s.RefreshMarket(ctx)

	p, ok := s.BeginChat("¿Conviene?")
	if !ok {
		t.Fatal("BeginChat returned false")
	}
	if !strings.Contains(p.Prompt, "Activo: GGAL, Precio: 120.5, Sector: Financiero") {
		t.Errorf("prompt = %q", p.Prompt)
	}
	if _, err := s.CompleteChat(ctx, p); err != nil {
		t.Fatalf("CompleteChat: %v", err)
	}
	lines := s.View(time.Now()).Chat
	if last := lines[len(lines)-1]; last.Text != "🤖 respuesta" || last.Pending {
		t.Errorf("last chat line = %+v", last)
	}
}

func TestNoticeExpires(t *testing.T) {
	s := newState(t, newFakeBackend())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.Notify(domain.LevelInfo, "hola")

	if _, ok := s.Notice(base.Add(2 * time.Second)); !ok {
		t.Error("notice should be visible within 3s")
	}
	if _, ok := s.Notice(base.Add(NoticeTTL)); ok {
		t.Error("notice should expire after 3s")
	}
}

func TestCountdownInView(t *testing.T) {
	s := newState(t, newFakeBackend())
	v := s.View(time.Date(2026, 1, 26, 3, 0, 0, 0, time.UTC))
	if v.Countdown != "01d 00h 00m 00s" {
		t.Errorf("Countdown = %q", v.Countdown)
	}
	if v.Loading != true || v.Assets != nil {
		t.Error("view before the first poll should be loading")
	}
}

func TestBuildFromConfig(t *testing.T) {
	srv := httptest.NewServer(newFakeBackend())
	defer srv.Close()

	cfg := config.Default()
	cfg.Backend.URL = srv.URL
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	st, closer, err := Build(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	if _, err := st.RefreshMarket(ctx); err != nil {
		t.Fatalf("RefreshMarket: %v", err)
	}
	login(t, st)
	if _, err := st.Trade(ctx, domain.SideBuy, "1"); err != nil {
		t.Fatalf("Trade: %v", err)
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		t.Fatalf("reopening journal: %v", err)
	}
	defer j.Close()
	trades, err := j.Trades(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != 1 || trades[0].Price != 120.5 || trades[0].Legajo != "42" {
		t.Errorf("journalled trades = %+v", trades)
	}

	p, _ := st.BeginChat("hola")
	reply, _ := st.CompleteChat(ctx, p)
	if reply.Text != chat.UnconfiguredReply {
		t.Errorf("reply without API key = %q", reply.Text)
	}
}
