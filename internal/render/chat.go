package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// SystemPrompt constrains a chat model to non-interpretive rendering.
const SystemPrompt = `You are MindTrace, a reflective system that renders observations
derived from verified user-authored records.

Rules:
- Do NOT use absolute or definitive language (e.g., "this means", "you are").
- Do NOT introduce new interpretations.
- Do NOT diagnose or label mental states.
- Do NOT speculate beyond provided data.
- Do NOT give advice unless explicitly instructed.
- Use calm, grounded, non-authoritative language.
- Frame outputs as observations, not conclusions.`

// ChatOptions configures a ChatRenderer.
type ChatOptions struct {
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float64
	RatePerSecond float64
	Timeout       time.Duration
}

// ChatRenderer renders through an OpenAI-compatible chat completions API.
type ChatRenderer struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter
}

// NewChatRenderer applies defaults for any unset option.
func NewChatRenderer(o ChatOptions) *ChatRenderer {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.groq.com/openai/v1"
	}
	if o.Model == "" {
		o.Model = "llama-3.1-8b-instant"
	}
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	limit := rate.Limit(1)
	if o.RatePerSecond > 0 {
		limit = rate.Limit(o.RatePerSecond)
	}
	return &ChatRenderer{
		baseURL:     strings.TrimRight(o.BaseURL, "/"),
		apiKey:      o.APIKey,
		model:       o.Model,
		temperature: o.Temperature,
		client:      &http.Client{Timeout: o.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatRenderer) Render(ctx context.Context, req Request) (string, error) {
	return c.Complete(ctx, SystemPrompt, FormatPayload(req.Payload))
}

// Complete sends one system and one user message and returns the trimmed reply.
func (c *ChatRenderer) Complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat status %d: %s", resp.StatusCode, string(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
