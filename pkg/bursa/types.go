package bursa

import (
	"strings"

	"github.com/spf13/cast"
)

// Quote is one entry of the market-data payload. Missing or malformed
// numeric fields decode as zero and missing strings as "".
type Quote struct {
	Symbol        string
	Name          string
	Sector        string
	Price         float64
	ChangePercent float64
	Volatility    float64
}

// Ranking is one leaderboard row as sent by the backend.
type Ranking struct {
	Identifier string
	Total      float64
	ROI        float64
}

// UserData is a participant snapshot.
type UserData struct {
	Balance   float64
	Portfolio map[string]float64
	Initial   float64
}

// VerifyResult is returned by a successful verify-code call. User is nil
// when the backend omitted userData.
type VerifyResult struct {
	UserID string
	User   *UserData
}

// TradeRequest is the POST /api/trade body.
type TradeRequest struct {
	Legajo   string `json:"legajo" validate:"required"`
	Asset    string `json:"asset" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Type     string `json:"type" validate:"oneof=buy sell"`
}

// identifierKeys lists the field names the backend has used for the
// participant identity, in lookup order.
var identifierKeys = []string{"legajo", "usuario", "identifier", "userId"}

func quoteFromFields(symbol string, f map[string]any) Quote {
	return Quote{
		Symbol:        symbol,
		Name:          stringField(f["name"]),
		Sector:        stringField(f["sector"]),
		Price:         cast.ToFloat64(f["price"]),
		ChangePercent: cast.ToFloat64(f["change_percent"]),
		Volatility:    cast.ToFloat64(f["volatility"]),
	}
}

func rankingFromFields(f map[string]any) Ranking {
	r := Ranking{
		Total: cast.ToFloat64(f["total"]),
		ROI:   cast.ToFloat64(f["roi"]),
	}
	for _, k := range identifierKeys {
		if v := stringField(f[k]); v != "" {
			r.Identifier = v
			break
		}
	}
	return r
}

func userFromFields(f map[string]any) *UserData {
	u := &UserData{
		Balance:   cast.ToFloat64(f["balance"]),
		Initial:   cast.ToFloat64(f["initial"]),
		Portfolio: make(map[string]float64),
	}
	for sym, qty := range cast.ToStringMap(f["portfolio"]) {
		u.Portfolio[sym] = cast.ToFloat64(qty)
	}
	return u
}

// stringField converts scalar JSON values to a trimmed string. Numbers
// arrive as float64 and integral ones are rendered without a fraction.
func stringField(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return cast.ToString(int64(f))
	}
	return strings.TrimSpace(cast.ToString(v))
}
