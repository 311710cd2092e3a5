// Package auth guards the dashboard with a single password and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

// Session is returned by Setup and Login.
type Session struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Gate owns the single user account.
type Gate struct {
	store     storage.Store
	secret    []byte
	ttl       time.Duration
	cost      int
	now       func() time.Time
	publisher amqp.Publisher
}

type Option func(*Gate)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(g *Gate) { g.cost = cost }
}

// WithClock replaces time.Now for token issue and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithPublisher reports account wipes on the event bus.
func WithPublisher(p amqp.Publisher) Option {
	return func(g *Gate) { g.publisher = p }
}

func NewGate(store storage.Store, secret string, ttl time.Duration, opts ...Option) *Gate {
	g := &Gate{
		store:     store,
		secret:    []byte(secret),
		ttl:       ttl,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
		publisher: amqp.NopPublisher{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Status reports whether the account has been created.
func (g *Gate) Status(ctx context.Context) (bool, error) {
	_, err := g.store.GetUser(ctx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// Setup creates the account. It fails with core.ErrAlreadySetup once a user exists.
func (g *Gate) Setup(ctx context.Context, password string) (Session, error) {
	if strings.TrimSpace(password) == "" {
		return Session{}, core.NewValidationError("password", "is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := g.now()
	user := core.User{ID: uuid.NewString(), PasswordHash: string(hash), CreatedAt: now, UpdatedAt: now}

	err = g.store.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.GetUser(ctx)
		if err == nil {
			return core.ErrAlreadySetup
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return Session{}, err
	}

	slog.InfoContext(ctx, "Account created", "user_id", user.ID)
	return g.session(user.ID)
}

// Login checks password against the stored hash.
func (g *Gate) Login(ctx context.Context, password string) (Session, error) {
	if password == "" {
		return Session{}, core.NewValidationError("password", "is required")
	}
	user, err := g.store.GetUser(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, core.ErrInvalidCredentials
	}
	return g.session(user.ID)
}

// ChangePassword re-hashes the password of userID after checking current.
func (g *Gate) ChangePassword(ctx context.Context, userID, current, next string) error {
	verr := &core.ValidationError{}
	if current == "" {
		verr.Add("currentPassword", "is required")
	}
	if strings.TrimSpace(next) == "" {
		verr.Add("newPassword", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	user, err := g.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return core.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), g.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := g.store.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Password changed", "user_id", userID)
	return nil
}

// DeleteAccount empties every collection, the routine and the user. The
// steps are not atomic; a failure part way leaves the earlier deletions done.
func (g *Gate) DeleteAccount(ctx context.Context) error {
	for _, c := range schema.Collections() {
		if err := g.store.DeleteAll(ctx, c); err != nil {
			return fmt.Errorf("wipe %s: %w", c, err)
		}
	}
	if err := g.store.DeleteUsers(ctx); err != nil {
		return fmt.Errorf("wipe user: %w", err)
	}

	if err := g.publisher.PublishEntityEvent(ctx, amqp.NewEntityEvent("*", "", amqp.OpWipe)); err != nil {
		slog.WarnContext(ctx, "Failed to publish wipe event", "error", err)
	}
	slog.InfoContext(ctx, "Account deleted")
	return nil
}

// Verify resolves a bearer token to the user id it was issued for. Every
// failure, including a user that no longer exists, is core.ErrUnauthorized.
func (g *Gate) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", core.ErrUnauthorized
	}
	claims, err := parseToken(g.secret, token, g.now)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if _, err := g.store.GetUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.ErrUnauthorized
		}
		return "", err
	}
	return claims.UserID, nil
}

func (g *Gate) session(userID string) (Session, error) {
	token, err := generateToken(g.secret, userID, g.now(), g.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: userID, Token: token}, nil
}
