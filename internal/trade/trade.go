// Package trade validates and submits buy/sell orders for the logged-in
// participant.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"bursa/internal/domain"
	"bursa/internal/feed"
	"bursa/internal/journal"
	"bursa/internal/session"
	"bursa/pkg/bursa"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrNoAsset         = errors.New("no asset selected")
	ErrInvalidOrder    = errors.New("invalid order")
)

// Executor sends orders to the backend.
type Executor interface {
	Trade(ctx context.Context, req bursa.TradeRequest) (*bursa.UserData, error)
}

// Result describes an executed trade.
type Result struct {
	Entry domain.FeedEntry
	User  *domain.UserSnapshot
	// Applied is false when the session that issued the order ended while
	// it was in flight; the returned snapshot was then discarded.
	Applied bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records every executed trade.
func WithJournal(r journal.TradeRecorder) Option {
	return func(c *Controller) { c.journal = r }
}

// WithPrices supplies the quote recorded alongside journalled trades.
func WithPrices(priceOf func(symbol string) float64) Option {
	return func(c *Controller) { c.priceOf = priceOf }
}

// Controller submits orders on behalf of the current session.
type Controller struct {
	api      Executor
	sessions *session.Store
	feed     *feed.Feed
	log      *slog.Logger
	validate *validator.Validate
	journal  journal.TradeRecorder
	priceOf  func(string) float64
	now      func() time.Time
}

// NewController creates a trade controller.
func NewController(api Executor, sessions *session.Store, f *feed.Feed, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		sessions: sessions,
		feed:     f,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseQuantity parses a whole number of shares. Anything that is not a
// positive base-10 integer is ErrInvalidQuantity.
func ParseQuantity(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n <= 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}

// Submit sends a side order of quantityInput shares of symbol. Local
// validation failures never reach the backend. On success the session
// snapshot is replaced (if the issuing session is still current), the feed
// gains one entry, and the trade is journalled when a journal is set.
func (c *Controller) Submit(ctx context.Context, symbol string, side domain.Side, quantityInput string) (*Result, error) {
	sess := c.sessions.Current()
	if sess == nil {
		return nil, ErrNotLoggedIn
	}
	if symbol == "" {
		return nil, ErrNoAsset
	}
	qty, err := ParseQuantity(quantityInput)
	if err != nil {
		return nil, err
	}

	req := bursa.TradeRequest{
		Legajo:   sess.Identity,
		Asset:    symbol,
		Quantity: qty,
		Type:     string(side),
	}
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	userData, err := c.api.Trade(ctx, req)
	if err != nil {
		c.log.Warn("trade rejected", "legajo", sess.Identity, "symbol", symbol, "side", side, "quantity", qty, "error", err)
		return nil, err
	}

	user := session.FromUserData(userData)
	res := &Result{
		Entry: domain.FeedEntry{
			Identity: sess.Identity,
			Symbol:   symbol,
			Side:     side,
			Quantity: qty,
			At:       c.now(),
		},
		User:    user,
		Applied: c.sessions.Replace(sess.Generation, user),
	}
	c.feed.Push(res.Entry)
	c.log.Info("trade executed", "legajo", sess.Identity, "symbol", symbol, "side", side, "quantity", qty, "applied", res.Applied)

	if c.journal != nil {
		c.record(ctx, res)
	}
	return res, nil
}

func (c *Controller) record(ctx context.Context, res *Result) {
	var price float64
	if c.priceOf != nil {
		price = c.priceOf(res.Entry.Symbol)
	}
	rec := journal.TradeRecord{
		ID:       uuid.NewString(),
		At:       res.Entry.At,
		Legajo:   res.Entry.Identity,
		Symbol:   res.Entry.Symbol,
		Side:     string(res.Entry.Side),
		Quantity: res.Entry.Quantity,
		Price:    price,
		Balance:  res.User.Balance,
	}
	if err := c.journal.RecordTrade(ctx, rec); err != nil {
		c.log.Warn("journal trade failed", "error", err)
	}
}
