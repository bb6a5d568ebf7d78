package chat

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
)

// Generator produces a reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UnconfiguredReply is returned by Unconfigured.
const UnconfiguredReply = "El chat no está configurado. Definí GEMINI_API_KEY para habilitarlo."

// Unconfigured answers every prompt with UnconfiguredReply. It stands in
// when no API key is available.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) (string, error) {
	return UnconfiguredReply, nil
}

// UpstreamError is a non-2xx response from the generation endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini returned %d: %s", e.Status, trimForLog(e.Body, 200))
}

// Gemini calls the Gemini generateContent REST endpoint.
type Gemini struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewGemini creates a Gemini generator. baseURL is the API root, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewGemini(baseURL, model, apiKey string, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Gemini{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewGenerator returns a Gemini generator, or Unconfigured when apiKey is
// empty.
func NewGenerator(baseURL, model, apiKey string, timeout time.Duration) Generator {
	if strings.TrimSpace(apiKey) == "" {
		return Unconfigured{}
	}
	return NewGemini(baseURL, model, apiKey, timeout)
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback map[string]any `json:"promptFeedback"`
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	rawBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(rawBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Errors from net/http quote the URL, which carries the key.
		return "", fmt.Errorf("gemini request failed: %w", redact(err, g.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}
	return parseGeminiContent(body)
}

func parseGeminiContent(raw []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			return "", fmt.Errorf("gemini returned no candidates: %v", resp.PromptFeedback)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}

	first := resp.Candidates[0]
	var builder strings.Builder
	for _, part := range first.Content.Parts {
		builder.WriteString(part.Text)
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("gemini content is empty (finishReason=%s)", first.FinishReason)
	}
	return output, nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "REDACTED"), err: err}
}

func trimForLog(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
