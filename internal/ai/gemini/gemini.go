// Package gemini relays prompts to the Gemini models of the Generative
// Language API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	genai "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"

	"lifedash/internal/ai"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

type Config struct {
	APIKey string
	Model  string
}

type Client struct {
	svc   *genai.Service
	model string
}

var _ ai.Generator = (*Client)(nil)

// New creates a client authenticated with cfg.APIKey. Extra options are
// applied after the key, e.g. a test endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	svc, err := genai.NewService(ctx, append([]goption.ClientOption{goption.WithAPIKey(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}
	slog.InfoContext(ctx, "Gemini client ready", "model", model)
	return &Client{svc: svc, model: model}, nil
}

// Generate sends contents with an optional system instruction and returns
// the concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, system string, contents []ai.Message) (string, error) {
	req := &genai.GenerateContentRequest{
		Contents: make([]*genai.Content, 0, len(contents)),
	}
	for _, m := range contents {
		req.Contents = append(req.Contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	if system != "" {
		req.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.svc.Models.GenerateContent("models/"+c.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", c.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
