// Package chat keeps one conversation log per asset and relays user
// questions, with the asset's context, to a text-generation endpoint.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"bursa/internal/domain"
	"bursa/internal/journal"
	"bursa/internal/util"
)

const (
	PlaceholderText = "Pensando..."
	ErrorText       = "Error de conexión con AI."
)

// ErrDiscarded is returned by Complete when the controller was reset while
// the reply was being generated.
var ErrDiscarded = errors.New("chat reply discarded")

// Greeting is the first message of every asset log.
func Greeting(symbol string) string {
	return fmt.Sprintf("Hola. Estoy analizando el gráfico de %s. ¿En qué te puedo ayudar?", symbol)
}

// AssetContext describes the asset a question is about. A zero Price
// means the price is unknown.
type AssetContext struct {
	Symbol string
	Price  float64
	Sector string
}

// Prompt builds the text sent to the generator.
func Prompt(ac AssetContext, text string) string {
	price := "N/A"
	if ac.Price != 0 {
		price = cast.ToString(ac.Price)
	}
	sector := ac.Sector
	if sector == "" {
		sector = "N/A"
	}
	assetInfo := fmt.Sprintf("Activo: %s, Precio: %s, Sector: %s. Eres un experto financiero. Responde brevemente.",
		ac.Symbol, price, sector)
	return fmt.Sprintf("Contexto: %s. User says: %s", assetInfo, text)
}

// Pending is a question whose reply placeholder awaits Complete.
type Pending struct {
	Symbol     string
	Question   domain.ChatMessage
	ReplyID    string
	Prompt     string
	generation uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records resolved exchanges.
func WithJournal(r journal.ChatRecorder) Option {
	return func(c *Controller) { c.journal = r }
}

// WithRateLimiter throttles generator calls. A nil limiter disables it.
func WithRateLimiter(rl *util.RateLimiter) Option {
	return func(c *Controller) { c.limiter = rl }
}

// Controller owns the per-asset logs.
type Controller struct {
	gen     Generator
	limiter *util.RateLimiter
	journal journal.ChatRecorder
	log     *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	logs       map[string][]domain.ChatMessage
	generation uint64
}

// NewController creates a chat controller backed by gen.
func NewController(gen Generator, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		gen:  gen,
		log:  log,
		now:  time.Now,
		logs: make(map[string][]domain.ChatMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log returns a copy of symbol's conversation, creating it with the
// greeting on first access.
func (c *Controller) Log(symbol string) []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.logLocked(symbol)...)
}

func (c *Controller) logLocked(symbol string) []domain.ChatMessage {
	msgs, ok := c.logs[symbol]
	if !ok {
		msgs = []domain.ChatMessage{{
			ID:   uuid.NewString(),
			Role: domain.RoleIncoming,
			Text: Greeting(symbol),
			At:   c.now(),
		}}
		c.logs[symbol] = msgs
	}
	return msgs
}

// Begin appends the user's question and a pending reply placeholder to the
// asset's log. Blank text is ignored and reports false.
func (c *Controller) Begin(ac AssetContext, text string) (*Pending, bool) {
	text = strings.TrimSpace(text)
	if text == "" || ac.Symbol == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	question := domain.ChatMessage{ID: uuid.NewString(), Role: domain.RoleOutgoing, Text: text, At: now}
	reply := domain.ChatMessage{ID: uuid.NewString(), Role: domain.RoleIncoming, Text: PlaceholderText, Pending: true, At: now}
	c.logs[ac.Symbol] = append(c.logLocked(ac.Symbol), question, reply)

	return &Pending{
		Symbol:     ac.Symbol,
		Question:   question,
		ReplyID:    reply.ID,
		Prompt:     Prompt(ac, text),
		generation: c.generation,
	}, true
}

// Complete generates the reply for p and writes it over the placeholder.
// A generator failure resolves the placeholder to ErrorText and returns
// the error. When the controller was reset meanwhile, nothing is written
// and ErrDiscarded is returned.
func (c *Controller) Complete(ctx context.Context, p *Pending) (domain.ChatMessage, error) {
	var (
		text string
		err  error
	)
	if err = c.limiter.Wait(ctx); err == nil {
		text, err = c.gen.Generate(ctx, p.Prompt)
	}
	if err != nil {
		c.log.Warn("chat generation failed", "symbol", p.Symbol, "error", err)
		text = ErrorText
	}

	c.mu.Lock()
	if c.generation != p.generation {
		c.mu.Unlock()
		c.log.Debug("dropping chat reply from previous session", "symbol", p.Symbol)
		return domain.ChatMessage{}, ErrDiscarded
	}
	reply, found := c.resolveLocked(p.Symbol, p.ReplyID, text)
	c.mu.Unlock()

	if !found {
		return domain.ChatMessage{}, ErrDiscarded
	}
	if c.journal != nil && err == nil {
		c.record(ctx, p.Symbol, p.Question, reply)
	}
	return reply, err
}

func (c *Controller) resolveLocked(symbol, id, text string) (domain.ChatMessage, bool) {
	msgs := c.logs[symbol]
	for i := range msgs {
		if msgs[i].ID == id {
			msgs[i].Text = text
			msgs[i].Pending = false
			msgs[i].At = c.now()
			return msgs[i], true
		}
	}
	return domain.ChatMessage{}, false
}

// Reset drops every log and invalidates replies still being generated.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.logs = make(map[string][]domain.ChatMessage)
}

func (c *Controller) record(ctx context.Context, symbol string, msgs ...domain.ChatMessage) {
	for _, m := range msgs {
		rec := journal.ChatRecord{ID: m.ID, At: m.At, Symbol: symbol, Role: string(m.Role), Text: m.Text}
		if err := c.journal.RecordChat(ctx, rec); err != nil {
			c.log.Warn("journal chat failed", "error", err)
			return
		}
	}
}
