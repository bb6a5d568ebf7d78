package app

import (
	"time"

	"bursa/internal/auth"
	"bursa/internal/domain"
	"bursa/internal/render"
)

// View is everything the terminal UI draws for one frame.
type View struct {
	LoggedIn       bool
	Identity       string
	Balance        string
	PortfolioValue string
	OrderPrice     string

	Loading     bool
	Assets      []render.AssetRow
	Detail      render.AssetDetail
	Holdings    []render.HoldingRow
	Leaderboard []render.LeaderboardRow
	Feed        []string
	Chat        []render.ChatLine

	LoginState  auth.State
	LoginPrompt auth.Prompt
	Pending     string

	Countdown string
	Notice    *domain.Notification
}

// View projects the current state at now.
func (s *State) View(now time.Time) View {
	snap := s.Market.Snapshot()
	sel := s.Selected()

	v := View{
		Loading:     snap.Empty(),
		Assets:      render.AssetRows(snap, sel),
		Detail:      render.Detail(snap, s.Catalog, sel),
		OrderPrice:  render.FormatMoney(snap.Price(sel)),
		Leaderboard: render.LeaderboardRows(snap.Leaderboard, "", s.LeaderboardSize),
		Feed:        render.FeedLines(s.Feed.Entries()),
		Chat:        render.ChatLines(s.Chat.Log(sel)),
		LoginState:  s.Login.State(),
		LoginPrompt: s.Login.Prompt(),
		Pending:     s.Login.Pending(),
		Countdown:   render.Countdown(now, s.EndsAt),
	}

	if sess := s.Sessions.Current(); sess != nil {
		v.LoggedIn = true
		v.Identity = sess.Identity
		v.Balance = render.FormatMoney(sess.User.Balance)
		v.PortfolioValue = render.FormatMoney(render.PortfolioValue(sess.User, snap))
		v.Holdings = render.HoldingRows(sess.User, snap)
		v.Leaderboard = render.LeaderboardRows(snap.Leaderboard, sess.Identity, s.LeaderboardSize)
	}

	if n, ok := s.Notice(now); ok {
		v.Notice = &n
	}
	return v
}
