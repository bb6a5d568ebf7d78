package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"bursa/internal/app"
	"bursa/internal/auth"
	"bursa/internal/chat"
	"bursa/internal/domain"
)

// mode is what the keyboard currently drives.
type mode int

const (
	modeBrowse mode = iota
	modeLogin
	modeQuantity
	modeChat
	modeAdd
)

// Messages.
type pollMsg time.Time
type timerMsg time.Time
type marketMsg struct{ err error }
type loginMsg struct {
	out *auth.Outcome
	err error
}
type actionMsg struct{ err error }
type chatDoneMsg struct{}

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func timerCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return timerMsg(t)
	})
}

// Model.
type model struct {
	state  *app.State
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	pollEvery  time.Duration
	timerEvery time.Duration

	mode  mode
	side  domain.Side
	input textinput.Model

	chatView      viewport.Model
	ready         bool
	width, height int
	now           time.Time
	busy          bool
}

func initialModel(ctx context.Context, cancel context.CancelFunc, st *app.State, pollEvery, timerEvery time.Duration, logger *slog.Logger) model {
	ti := textinput.New()
	ti.CharLimit = 280
	m := model{
		state:      st,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		pollEvery:  pollEvery,
		timerEvery: timerEvery,
		input:      ti,
		now:        time.Now(),
	}
	m.enterMode(modeLogin)
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.refreshCmd(),
		pollCmd(m.pollEvery),
		timerCmd(m.timerEvery),
	)
}

// enterMode focuses the input with the prompt of the new mode.
func (m *model) enterMode(md mode) {
	m.mode = md
	m.input.Reset()
	switch md {
	case modeLogin:
		p := m.state.Login.Prompt()
		m.input.Prompt = p.Label + ": "
		m.input.Placeholder = p.Placeholder
	case modeQuantity:
		verb := "Comprar"
		if m.side == domain.SideSell {
			verb = "Vender"
		}
		m.input.Prompt = verb + " " + m.state.Selected() + " cantidad: "
		m.input.Placeholder = "10"
	case modeChat:
		m.input.Prompt = "Pregunta sobre " + m.state.Selected() + ": "
		m.input.Placeholder = "Escribe un mensaje..."
	case modeAdd:
		m.input.Prompt = "Agregar símbolo: "
		m.input.Placeholder = "Ej: KO"
	default:
		m.input.Blur()
		return
	}
	m.input.Focus()
}

func (m model) refreshCmd() tea.Cmd {
	st, ctx := m.state, m.ctx
	return func() tea.Msg {
		_, err := st.RefreshMarket(ctx)
		return marketMsg{err: err}
	}
}

func (m *model) submit() tea.Cmd {
	st, ctx := m.state, m.ctx
	value := m.input.Value()

	switch m.mode {
	case modeLogin:
		m.busy = true
		return func() tea.Msg {
			out, err := st.SubmitLogin(ctx, value)
			return loginMsg{out: out, err: err}
		}
	case modeQuantity:
		side := m.side
		m.enterMode(modeBrowse)
		m.busy = true
		return func() tea.Msg {
			_, err := st.Trade(ctx, side, value)
			return actionMsg{err: err}
		}
	case modeChat:
		p, ok := st.BeginChat(value)
		m.input.Reset()
		m.refreshChat()
		if !ok {
			return nil
		}
		return m.completeChatCmd(p)
	case modeAdd:
		m.enterMode(modeBrowse)
		m.busy = true
		return func() tea.Msg {
			_, err := st.AddAsset(ctx, value)
			return actionMsg{err: err}
		}
	}
	return nil
}

func (m model) completeChatCmd(p *chat.Pending) tea.Cmd {
	st, ctx, logger := m.state, m.ctx, m.logger
	return func() tea.Msg {
		if _, err := st.CompleteChat(ctx, p); err != nil {
			logger.Debug("chat reply not applied", "symbol", p.Symbol, "error", err)
		}
		return chatDoneMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := chatHeight(m.height)
		if !m.ready {
			m.chatView = viewport.New(m.width, h)
			m.chatView.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.chatView.Width = m.width
			m.chatView.Height = h
		}
		m.input.Width = m.width - len(m.input.Prompt) - 2
		m.refreshChat()
		return m, nil

	case pollMsg:
		return m, tea.Batch(m.refreshCmd(), pollCmd(m.pollEvery))

	case timerMsg:
		m.now = time.Time(msg)
		return m, timerCmd(m.timerEvery)

	case marketMsg:
		if msg.err != nil {
			m.logger.Debug("poll failed", "error", msg.err)
		}
		m.refreshChat()
		return m, nil

	case loginMsg:
		m.busy = false
		if msg.err == nil && msg.out.Login != nil {
			m.enterMode(modeBrowse)
		} else {
			// Stay in login mode; the prompt may have changed step.
			m.enterMode(modeLogin)
		}
		return m, nil

	case actionMsg:
		m.busy = false
		m.refreshChat()
		return m, nil

	case chatDoneMsg:
		m.refreshChat()
		return m, nil
	}

	if m.ready {
		m.chatView, cmd = m.chatView.Update(msg)
	}
	return m, cmd
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeLogin && m.state.Login.State() == auth.AwaitingCode {
			m.state.CancelLogin()
			m.enterMode(modeLogin)
			return m, nil
		}
		m.enterMode(modeBrowse)
		return m, nil
	case "enter":
		if m.busy && m.mode == modeLogin {
			return m, nil
		}
		cmd := m.submit()
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	loggedIn := m.state.Sessions.Current() != nil

	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "up", "k", "down", "j":
		m.moveSelection(msg.String() == "up" || msg.String() == "k")
		m.refreshChat()
		return m, nil
	case "b", "s":
		if !loggedIn {
			m.enterMode(modeLogin)
			return m, nil
		}
		m.side = domain.SideBuy
		if msg.String() == "s" {
			m.side = domain.SideSell
		}
		m.enterMode(modeQuantity)
		return m, nil
	case "c", "enter":
		m.enterMode(modeChat)
		return m, nil
	case "a":
		m.enterMode(modeAdd)
		return m, nil
	case "x", "delete":
		st, ctx, sym := m.state, m.ctx, m.state.Selected()
		m.busy = true
		return m, func() tea.Msg {
			return actionMsg{err: st.RemoveAsset(ctx, sym)}
		}
	case "r":
		return m, m.refreshCmd()
	case "l":
		if !loggedIn {
			m.enterMode(modeLogin)
		}
		return m, nil
	case "o":
		if loggedIn {
			m.state.Logout()
			m.state.Notify(domain.LevelInfo, "Sesión cerrada")
			m.refreshChat()
			m.enterMode(modeLogin)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.ready {
		m.chatView, cmd = m.chatView.Update(msg)
	}
	return m, cmd
}

// moveSelection steps through the listed symbols in display order.
func (m *model) moveSelection(up bool) {
	syms := m.state.Market.Snapshot().Symbols()
	if len(syms) == 0 {
		return
	}
	cur := -1
	sel := m.state.Selected()
	for i, s := range syms {
		if s == sel {
			cur = i
			break
		}
	}
	switch {
	case cur < 0:
		cur = 0
	case up && cur > 0:
		cur--
	case !up && cur < len(syms)-1:
		cur++
	}
	m.state.Select(syms[cur])
}

func (m *model) refreshChat() {
	if !m.ready {
		return
	}
	m.chatView.SetContent(renderChat(m.state.View(m.now).Chat, m.width))
	m.chatView.GotoBottom()
}
