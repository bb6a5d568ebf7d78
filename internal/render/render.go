// Package render projects the market snapshot, the session and the UI
// selection into display rows. Nothing here mutates state or does I/O;
// cmd/bursa-client styles the rows.
package render

import (
	"fmt"
	"sort"

	"bursa/internal/domain"
	"bursa/internal/market"
)

const (
	LoadingMarket = "Cargando mercado..."
	NoHoldings    = "Sin activos"
)

// CSS-like classes carried over to the terminal styles.
const (
	ClassPositive = "positive"
	ClassNegative = "negative"
	ClassRank1    = "rank-1"
	ClassRank2    = "rank-2"
	ClassRank3    = "rank-3"
	ClassRankRest = "rank-other"
)

// ---------------------------------------------------------------------------
// Asset list
// ---------------------------------------------------------------------------

// AssetRow is one entry of the asset list.
type AssetRow struct {
	Symbol   string
	Name     string
	Price    string
	Change   string
	Class    string
	Selected bool
}

// AssetRows lists every symbol in snap, sorted. It returns nil for an
// empty snapshot; callers show LoadingMarket instead.
func AssetRows(snap *market.Snapshot, selected string) []AssetRow {
	if snap.Empty() {
		return nil
	}
	syms := snap.Symbols()
	rows := make([]AssetRow, 0, len(syms))
	for _, sym := range syms {
		a, _ := snap.Asset(sym)
		rows = append(rows, AssetRow{
			Symbol:   sym,
			Name:     a.Name,
			Price:    FormatMoney(a.Price),
			Change:   FormatPercent(a.ChangePercent),
			Class:    changeClass(a.ChangePercent),
			Selected: sym == selected,
		})
	}
	return rows
}

func changeClass(v float64) string {
	if v >= 0 {
		return ClassPositive
	}
	return ClassNegative
}

// AssetDetail is the header of the selected asset.
type AssetDetail struct {
	Symbol      string
	Name        string
	Sector      string
	Price       string
	Volatility  string
	ChartSymbol string
}

// Detail describes symbol from the snapshot, falling back to the catalog
// when the symbol is not (yet) listed.
func Detail(snap *market.Snapshot, catalog map[string]domain.CatalogEntry, symbol string) AssetDetail {
	meta := catalog[symbol]
	d := AssetDetail{
		Symbol:      symbol,
		Name:        meta.Name,
		Sector:      meta.Sector,
		Price:       FormatMoney(0),
		Volatility:  FormatVolatility(0),
		ChartSymbol: meta.ChartSymbol,
	}
	if a, ok := snap.Asset(symbol); ok {
		d.Name = a.Name
		d.Sector = a.Sector
		d.Price = FormatMoney(a.Price)
		d.Volatility = FormatVolatility(a.Volatility)
	}
	if d.Name == "" {
		d.Name = symbol + " Asset"
	}
	if d.Sector == "" {
		d.Sector = "General"
	}
	return d
}

// ---------------------------------------------------------------------------
// Portfolio
// ---------------------------------------------------------------------------

// HoldingRow is one position of the participant.
type HoldingRow struct {
	Symbol   string
	Quantity string
	Value    string
}

// HoldingRows lists positive positions sorted by symbol, valued at the
// snapshot price (0 when the symbol is not listed). It returns nil when
// there is nothing to show; callers display NoHoldings.
func HoldingRows(user *domain.UserSnapshot, snap *market.Snapshot) []HoldingRow {
	if user == nil {
		return nil
	}
	syms := make([]string, 0, len(user.Portfolio))
	for sym, qty := range user.Portfolio {
		if qty > 0 {
			syms = append(syms, sym)
		}
	}
	sort.Strings(syms)

	var rows []HoldingRow
	for _, sym := range syms {
		qty := user.Portfolio[sym]
		rows = append(rows, HoldingRow{
			Symbol:   sym,
			Quantity: FormatQuantity(qty),
			Value:    FormatMoney(qty * snap.Price(sym)),
		})
	}
	return rows
}

// PortfolioValue is the balance plus every position at snapshot prices.
func PortfolioValue(user *domain.UserSnapshot, snap *market.Snapshot) float64 {
	if user == nil {
		return 0
	}
	total := user.Balance
	for sym, qty := range user.Portfolio {
		total += qty * snap.Price(sym)
	}
	return total
}

// ---------------------------------------------------------------------------
// Leaderboard
// ---------------------------------------------------------------------------

// LeaderboardRow is one ranked participant.
type LeaderboardRow struct {
	Badge      string
	Class      string
	Identifier string
	Total      string
	ROI        string
	ROIClass   string
	Current    bool
}

// LeaderboardRows renders at most limit entries in backend order. The
// first three ranks get distinct classes and rank 1 a crown.
func LeaderboardRows(entries []domain.LeaderboardEntry, currentID string, limit int) []LeaderboardRow {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	rows := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		row := LeaderboardRow{
			Badge:      fmt.Sprintf("%d", i+1),
			Class:      ClassRankRest,
			Identifier: e.Identifier,
			Total:      FormatMoney(e.Total),
			ROI:        FormatPercent(e.ROI),
			ROIClass:   changeClass(e.ROI),
			Current:    currentID != "" && e.Identifier == currentID,
		}
		switch i {
		case 0:
			row.Badge, row.Class = "♛", ClassRank1
		case 1:
			row.Class = ClassRank2
		case 2:
			row.Class = ClassRank3
		}
		rows = append(rows, row)
	}
	return rows
}

// ---------------------------------------------------------------------------
// Feed and chat
// ---------------------------------------------------------------------------

// FeedLine renders one trade, e.g. "#42 compró GGAL — 10 un.".
func FeedLine(e domain.FeedEntry) string {
	verb := "compró"
	if e.Side == domain.SideSell {
		verb = "vendió"
	}
	return fmt.Sprintf("#%s %s %s — %d un.", e.Identity, verb, e.Symbol, e.Quantity)
}

// FeedLines renders entries in the order given (newest first from the
// feed).
func FeedLines(entries []domain.FeedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = FeedLine(e)
	}
	return out
}

// ChatLine is one rendered chat bubble.
type ChatLine struct {
	Outgoing bool
	Pending  bool
	Text     string
}

// ChatLines renders a conversation. Assistant lines carry the robot
// marker.
func ChatLines(msgs []domain.ChatMessage) []ChatLine {
	out := make([]ChatLine, len(msgs))
	for i, m := range msgs {
		line := ChatLine{Outgoing: m.Role == domain.RoleOutgoing, Pending: m.Pending, Text: m.Text}
		if !line.Outgoing {
			line.Text = "🤖 " + m.Text
		}
		out[i] = line
	}
	return out
}
