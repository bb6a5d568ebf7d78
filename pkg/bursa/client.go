// Package bursa is a Go client for the trading game backend REST API:
// market data, leaderboard, user snapshots, trades, the OTP login
// handshake, and roster management.
package bursa

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request UUID so backend logs can be matched
// to client logs.
const RequestIDHeader = "X-Request-ID"

// Client talks to the game backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a new backend client. A trailing slash on baseURL is
// ignored.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MarketData fetches GET /api/market-data.
func (c *Client) MarketData(ctx context.Context) (map[string]Quote, error) {
	var raw map[string]map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/market-data", nil, &raw); err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	quotes := make(map[string]Quote, len(raw))
	for sym, fields := range raw {
		quotes[sym] = quoteFromFields(sym, fields)
	}
	return quotes, nil
}

// Leaderboard fetches GET /api/leaderboard. Order is preserved as sent.
func (c *Client) Leaderboard(ctx context.Context) ([]Ranking, error) {
	var raw []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &raw); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	out := make([]Ranking, 0, len(raw))
	for _, fields := range raw {
		out = append(out, rankingFromFields(fields))
	}
	return out, nil
}

// User fetches GET /api/db/{identifier}.
func (c *Client) User(ctx context.Context, identifier string) (*UserData, error) {
	var raw map[string]any
	path := "/api/db/" + url.PathEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("user %s: %w", identifier, err)
	}
	return userFromFields(raw), nil
}

// Trade submits POST /api/trade and returns the updated user snapshot.
func (c *Client) Trade(ctx context.Context, req TradeRequest) (*UserData, error) {
	var resp struct {
		Status   string         `json:"status"`
		UserData map[string]any `json:"userData"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/trade", req, &resp); err != nil {
		return nil, fmt.Errorf("trade %s %s: %w", req.Type, req.Asset, err)
	}
	if resp.UserData == nil {
		return nil, fmt.Errorf("trade %s %s: response without userData", req.Type, req.Asset)
	}
	return userFromFields(resp.UserData), nil
}

// RequestCode starts the OTP handshake with POST /api/auth/request-code.
// The returned string is the backend's informational message.
func (c *Client) RequestCode(ctx context.Context, usuario string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	body := map[string]string{"usuario": usuario}
	if err := c.do(ctx, http.MethodPost, "/api/auth/request-code", body, &resp); err != nil {
		return "", fmt.Errorf("request code: %w", err)
	}
	return resp.Message, nil
}

// VerifyCode completes the OTP handshake with POST /api/auth/verify-code.
func (c *Client) VerifyCode(ctx context.Context, usuario, code string) (*VerifyResult, error) {
	var resp struct {
		UserID   any            `json:"userId"`
		UserData map[string]any `json:"userData"`
	}
	body := map[string]string{"usuario": usuario, "code": code}
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify-code", body, &resp); err != nil {
		return nil, fmt.Errorf("verify code: %w", err)
	}
	res := &VerifyResult{UserID: stringField(resp.UserID)}
	if res.UserID == "" {
		res.UserID = usuario
	}
	if resp.UserData != nil {
		res.User = userFromFields(resp.UserData)
	}
	return res, nil
}

// AddAsset registers a symbol for monitoring with POST /api/market/add.
func (c *Client) AddAsset(ctx context.Context, symbol string) error {
	body := map[string]string{"symbol": symbol}
	if err := c.do(ctx, http.MethodPost, "/api/market/add", body, nil); err != nil {
		return fmt.Errorf("add asset %s: %w", symbol, err)
	}
	return nil
}

// RemoveAsset stops monitoring a symbol with DELETE /api/market/{symbol}.
func (c *Client) RemoveAsset(ctx context.Context, symbol string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/market/"+url.PathEscape(symbol), nil, nil); err != nil {
		return fmt.Errorf("remove asset %s: %w", symbol, err)
	}
	return nil
}

// Health calls GET /api/health and returns the reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return "", fmt.Errorf("health: %w", err)
	}
	return resp.Status, nil
}

// do sends one request. body, when non-nil, is JSON encoded; result, when
// non-nil, receives the decoded 2xx response. Non-2xx responses become
// *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
