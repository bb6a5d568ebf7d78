// Package auth drives the two-step OTP login: request a code for an
// identifier, then verify the code the participant received.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"bursa/pkg/bursa"
)

var (
	ErrEmptyIdentifier = errors.New("identifier is required")
	ErrEmptyCode       = errors.New("verification code is required")
	ErrNoPendingCode   = errors.New("no verification code has been requested")
	// ErrSuperseded means the handshake was cancelled or reset while the
	// call was in flight; its result was discarded.
	ErrSuperseded = errors.New("login step superseded")
)

// State is the handshake step.
type State int

const (
	AwaitingUsername State = iota
	AwaitingCode
)

func (s State) String() string {
	switch s {
	case AwaitingUsername:
		return "awaiting-username"
	case AwaitingCode:
		return "awaiting-code"
	default:
		return "unknown"
	}
}

// Authenticator is the backend half of the handshake.
type Authenticator interface {
	RequestCode(ctx context.Context, usuario string) (string, error)
	VerifyCode(ctx context.Context, usuario, code string) (*bursa.VerifyResult, error)
}

// Prompt describes the login form for the current step.
type Prompt struct {
	Label       string
	Placeholder string
	Action      string
}

var prompts = map[State]Prompt{
	AwaitingUsername: {Label: "Legajo o usuario", Placeholder: "Ej: 999001", Action: "Enviar código"},
	AwaitingCode:     {Label: "Código de verificación", Placeholder: "Código de 6 dígitos", Action: "Verificar"},
}

// Outcome is the result of a successful step. Login is set only when the
// code was verified.
type Outcome struct {
	State   State
	Message string
	Login   *Login
}

// Login is an authenticated identity. User is nil when the backend did not
// include a snapshot in the verification response.
type Login struct {
	Identity string
	User     *bursa.UserData
}

// Controller holds the handshake state. Cancel and Reset invalidate calls
// still in flight.
type Controller struct {
	api Authenticator
	log *slog.Logger

	mu      sync.Mutex
	state   State
	pending string
	epoch   uint64
}

// NewController creates a controller awaiting an identifier.
func NewController(api Authenticator, log *slog.Logger) *Controller {
	return &Controller{api: api, log: log}
}

// State returns the current step.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the identifier awaiting verification, or "".
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Prompt returns the form labels for the current step.
func (c *Controller) Prompt() Prompt {
	return prompts[c.State()]
}

// Submit feeds form input to whichever step is active.
func (c *Controller) Submit(ctx context.Context, input string) (*Outcome, error) {
	if c.State() == AwaitingCode {
		return c.VerifyCode(ctx, input)
	}
	return c.RequestCode(ctx, input)
}

// RequestCode asks the backend to issue a code for identifier. On success
// the controller moves to AwaitingCode; on failure it stays put.
func (c *Controller) RequestCode(ctx context.Context, identifier string) (*Outcome, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrEmptyIdentifier
	}
	epoch := c.currentEpoch()

	msg, err := c.api.RequestCode(ctx, identifier)
	if err != nil {
		c.log.Warn("request code failed", "usuario", identifier, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, ErrSuperseded
	}
	c.state = AwaitingCode
	c.pending = identifier
	c.log.Info("verification code requested", "usuario", identifier)
	return &Outcome{State: c.state, Message: msg}, nil
}

// VerifyCode checks code for the pending identifier. On success the
// pending fields are cleared and the controller returns to
// AwaitingUsername, ready for a later login. On failure it stays in
// AwaitingCode with the identifier kept so the user can retry.
func (c *Controller) VerifyCode(ctx context.Context, code string) (*Outcome, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	c.mu.Lock()
	if c.state != AwaitingCode {
		c.mu.Unlock()
		return nil, ErrNoPendingCode
	}
	identifier, epoch := c.pending, c.epoch
	c.mu.Unlock()

	res, err := c.api.VerifyCode(ctx, identifier, code)
	if err != nil {
		c.log.Warn("verify code failed", "usuario", identifier, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, ErrSuperseded
	}
	c.resetLocked()

	identity := res.UserID
	if identity == "" {
		identity = identifier
	}
	c.log.Info("login verified", "legajo", identity)
	return &Outcome{
		State: c.state,
		Login: &Login{Identity: identity, User: res.User},
	}, nil
}

// Cancel abandons a pending code and returns to AwaitingUsername.
func (c *Controller) Cancel() {
	c.Reset()
}

// Reset clears all handshake state. Called on cancel and logout.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = AwaitingUsername
	c.pending = ""
	c.epoch++
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}
