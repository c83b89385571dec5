// Package agent wraps the Gemini API behind the two calls the backend
// needs: a free-text judgment and a structured amala-spot finder. Both are
// blocking calls with a fixed upper bound; callers decide whether a failure
// degrades the result or triggers the verification fail-open policy.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// ErrTimeout reports that the agent call exceeded its deadline.
var ErrTimeout = errors.New("agent call timed out")

const finderInstruction = `You are the "Amala Spot Finder" - a specialized assistant that helps users
discover the best Amala joints near them.

Return results as an ARRAY OF JSON OBJECTS with this schema:
  {
    "id": string,
    "name": string,
    "description": string,
    "rating": float,
    "address": string,
    "price_range": string,
    "photos": [string],
    "location": { "lng": float, "lat": float },
    "hours": string
  }

Ensure each object corresponds to a real Amala spot. Keep descriptions short.
Assume the user is in Nigeria; all results must be locally relevant.
Return ONLY a valid JSON array. Do not include markdown, code fences, or
extra text. The first character must be [ and the last character must be ].`

type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	c := &Client{
		client:  client,
		model:   defaultModel,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Evaluate sends a free-text prompt and returns the model's verdict text.
func (c *Client) Evaluate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// Chat answers a conversational message without the finder schema attached.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.generate(ctx, message, nil)
}

// Find runs the amala-finder instruction against a location-aware query.
// The response is expected to be a JSON array but is returned as raw text;
// the aggregation pipeline owns the parsing and its fallbacks.
func (c *Client) Find(ctx context.Context, query string) (string, error) {
	system := genai.NewContentFromText(finderInstruction, genai.RoleUser)
	return c.generate(ctx, query, &genai.GenerateContentConfig{
		SystemInstruction: system,
	})
}

func (c *Client) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
