// Package ai builds prompts from LifeData and relays them to a generative
// text backend. Upstream failures never surface to callers: each operation
// answers with a fixed fallback text instead.
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"lifedash/internal/analytics"
	"lifedash/internal/cache"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
)

const (
	FallbackSummary     = "I'm having trouble reflecting on your day right now. Please try again later."
	FallbackReport      = "I'm having trouble analyzing your data right now. Please try again later."
	FallbackChatInit    = "Sorry, I'm having trouble connecting right now."
	FallbackChatMessage = "Sorry, I'm having trouble with that request. Please try again."
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces text for a conversation under a system instruction.
// An empty system means none.
type Generator interface {
	Generate(ctx context.Context, system string, contents []Message) (string, error)
}

type Option func(*Service)

// WithCache memoizes summary and report answers by prompt hash.
func WithCache(c cache.Cache[string]) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	gen   Generator
	cache cache.Cache[string]
	now   func() time.Time
	loc   *time.Location
}

// NewService returns a service relaying to gen. A nil gen disables the
// backend and every call answers with its fallback.
func NewService(gen Generator, loc *time.Location, opts ...Option) *Service {
	s := &Service{gen: gen, now: time.Now, loc: loc}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enabled reports whether a backend is configured.
func (s *Service) Enabled() bool { return s.gen != nil }

// Summary reflects on today's data.
func (s *Service) Summary(ctx context.Context, ld *lifedata.LifeData) string {
	prompt, err := SummaryPrompt(ld, s.now(), s.loc)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build summary prompt", "error", err)
		return FallbackSummary
	}
	return s.relay(ctx, "summary", FallbackSummary, "", []Message{{Role: RoleUser, Content: prompt}}, true)
}

// Report analyzes [start, end].
func (s *Service) Report(ctx context.Context, ld *lifedata.LifeData, start, end time.Time) string {
	prompt, err := ReportPrompt(analytics.Summarize(ld, start, end, s.loc), s.loc)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build report prompt", "error", err)
		return FallbackReport
	}
	return s.relay(ctx, "report", FallbackReport, "", []Message{{Role: RoleUser, Content: prompt}}, true)
}

// ChatInit asks the model to introduce itself over the sanitized data.
func (s *Service) ChatInit(ctx context.Context, ld *lifedata.LifeData) string {
	system, err := ChatSystemInstruction(ld, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build chat context", "error", err)
		return FallbackChatInit
	}
	return s.relay(ctx, "chat_init", FallbackChatInit, system, []Message{{Role: RoleUser, Content: ChatInitPrompt}}, false)
}

// ChatMessage continues a conversation. Only a malformed history is an error.
func (s *Service) ChatMessage(ctx context.Context, ld *lifedata.LifeData, history []Message) (string, error) {
	if err := ValidateHistory(history); err != nil {
		return "", err
	}
	system, err := ChatSystemInstruction(ld, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build chat context", "error", err)
		return FallbackChatMessage, nil
	}
	return s.relay(ctx, "chat_message", FallbackChatMessage, system, history, false), nil
}

// ValidateHistory requires a non-empty history of user and model turns.
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return core.NewValidationError("history", "is required")
	}
	verr := &core.ValidationError{}
	for i, m := range history {
		if m.Role != RoleUser && m.Role != RoleModel {
			verr.Add(fmt.Sprintf("history[%d].role", i), "must be user or model")
		}
		if m.Content == "" {
			verr.Add(fmt.Sprintf("history[%d].content", i), "is required")
		}
	}
	return verr.OrNil()
}

func (s *Service) relay(ctx context.Context, kind, fallback, system string, contents []Message, cacheable bool) string {
	if s.gen == nil {
		slog.DebugContext(ctx, "AI backend disabled, answering with fallback", "kind", kind)
		return fallback
	}

	var key string
	if cacheable && s.cache != nil {
		key = promptKey(system, contents)
		if text, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "AI response served from cache", "kind", kind)
			return text
		}
	}

	start := s.now()
	text, err := s.gen.Generate(ctx, system, contents)
	if err != nil {
		slog.ErrorContext(ctx, "AI relay failed",
			"kind", kind,
			"error", fmt.Errorf("%w: %w", core.ErrUpstream, err))
		return fallback
	}
	slog.InfoContext(ctx, "AI response generated",
		"kind", kind,
		"chars", len(text),
		"duration", s.now().Sub(start))

	if key != "" {
		s.cache.Set(key, text)
	}
	return text
}

func promptKey(system string, contents []Message) string {
	h := sha256.New()
	h.Write([]byte(system))
	for _, m := range contents {
		h.Write([]byte{0})
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
