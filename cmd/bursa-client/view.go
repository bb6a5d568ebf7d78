package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bursa/internal/app"
	"bursa/internal/domain"
	"bursa/internal/render"
)

// Styles.
var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	rank1Style    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	rank2Style    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	rank3Style    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("172"))
	outgoingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	pendingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	highlightBG   = lipgloss.Color("236")

	noticeStyles = map[domain.Level]lipgloss.Style{
		domain.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24")),
		domain.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")),
		domain.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
	}
)

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

func classStyle(class string) lipgloss.Style {
	switch class {
	case render.ClassPositive:
		return gainStyle
	case render.ClassNegative:
		return lossStyle
	case render.ClassRank1:
		return rank1Style
	case render.ClassRank2:
		return rank2Style
	case render.ClassRank3:
		return rank3Style
	default:
		return dimStyle
	}
}

const (
	headerH    = 1
	footerH    = 2 // input line + key help
	minChatH   = 4
	panelsMaxH = 14
)

func chatHeight(total int) int {
	h := total - headerH - footerH - panelsMaxH - 2
	if h < minChatH {
		h = minChatH
	}
	return h
}

func (m model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	v := m.state.View(m.now)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(v),
		m.renderPanels(v),
		titleStyle.Render("Chat "+v.Detail.Symbol),
		m.chatView.View(),
		m.renderFooter(v),
	)
}

func (m model) renderHeader(v app.View) string {
	user := "sin sesión"
	if v.LoggedIn {
		user = fmt.Sprintf("#%s  saldo %s  total %s", v.Identity, v.Balance, v.PortfolioValue)
	}
	text := fmt.Sprintf(" BURSA  %s    cierre: %s ", user, v.Countdown)
	return headerStyle.Render(padOrTrunc(text, m.width))
}

func (m model) renderPanels(v app.View) string {
	col := m.width/3 - 2
	if col < 24 {
		col = 24
	}
	left := boxStyle.Width(col).Height(panelsMaxH - 2).Render(renderAssets(v))
	mid := boxStyle.Width(col).Height(panelsMaxH - 2).Render(renderDetail(v))
	right := boxStyle.Width(col).Height(panelsMaxH - 2).Render(renderBoard(v))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, mid, right)
}

func renderAssets(v app.View) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mercado"))
	b.WriteString("\n")
	if v.Loading {
		b.WriteString(dimStyle.Render(render.LoadingMarket))
		return b.String()
	}
	for _, r := range v.Assets {
		marker := "  "
		if r.Selected {
			marker = "▸ "
		}
		b.WriteString(hlStyle(symbolStyle, r.Selected).Render(fmt.Sprintf("%s%-6s", marker, r.Symbol)))
		b.WriteString(hlStyle(classStyle(r.Class), r.Selected).Render(fmt.Sprintf(" %12s %8s", r.Price, r.Change)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderDetail(v app.View) string {
	var b strings.Builder
	d := v.Detail
	b.WriteString(titleStyle.Render(d.Symbol + "  " + d.Name))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s · vol %s · %s", d.Sector, d.Volatility, d.ChartSymbol)))
	b.WriteString("\n")
	b.WriteString(symbolStyle.Render("Precio " + v.OrderPrice))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Portafolio"))
	b.WriteString("\n")
	switch {
	case !v.LoggedIn:
		b.WriteString(dimStyle.Render("Inicia sesión para operar"))
	case len(v.Holdings) == 0:
		b.WriteString(dimStyle.Render(render.NoHoldings))
	default:
		for _, h := range v.Holdings {
			b.WriteString(fmt.Sprintf("%-6s %8s  %s\n", h.Symbol, h.Quantity, h.Value))
		}
	}
	return b.String()
}

func renderBoard(v app.View) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ranking"))
	b.WriteString("\n")
	for _, r := range v.Leaderboard {
		b.WriteString(hlStyle(classStyle(r.Class), r.Current).Render(fmt.Sprintf("%2s ", r.Badge)))
		b.WriteString(hlStyle(symbolStyle, r.Current).Render(fmt.Sprintf("%-8s", r.Identifier)))
		b.WriteString(hlStyle(classStyle(r.ROIClass), r.Current).Render(fmt.Sprintf(" %8s", r.ROI)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Actividad"))
	b.WriteString("\n")
	for _, line := range v.Feed {
		style := gainStyle
		if strings.Contains(line, " vendió ") {
			style = lossStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderChat(lines []render.ChatLine, width int) string {
	var b strings.Builder
	for _, l := range lines {
		switch {
		case l.Pending:
			b.WriteString(pendingStyle.Render(l.Text))
		case l.Outgoing:
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, outgoingStyle.Render(l.Text)))
		default:
			b.WriteString(l.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderFooter(v app.View) string {
	var top string
	switch {
	case m.mode != modeBrowse:
		top = m.input.View()
	case v.Notice != nil:
		top = noticeStyles[v.Notice.Level].Render(padOrTrunc(" "+v.Notice.Text, m.width))
	}
	if m.mode != modeBrowse && v.Notice != nil {
		top += "  " + noticeStyles[v.Notice.Level].Render(" "+v.Notice.Text+" ")
	}

	help := " q salir  ↑/↓ activo  b comprar  s vender  c chat  a agregar  x quitar  r actualizar  o salir de sesión"
	if m.mode != modeBrowse {
		help = " enter confirmar  esc cancelar"
	}
	if m.busy {
		help += "  …"
	}
	return top + "\n" + footerStyle.Render(padOrTrunc(help, m.width))
}

// padOrTrunc pads s with spaces to width, or truncates if longer.
func padOrTrunc(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, width int) string {
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > width {
		r = r[:len(r)-1]
	}
	return string(r)
}
