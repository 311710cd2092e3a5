// Package client is a typed HTTP client for the lifedash API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lifedash/internal/ai"
	"lifedash/internal/auth"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Is lets callers match API errors against the core sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.Status == http.StatusNotFound
	case core.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case core.ErrInvalidCredentials:
		return e.Status == http.StatusUnauthorized && e.Message == "Invalid password"
	case core.ErrAlreadySetup:
		return e.Status == http.StatusBadRequest && strings.Contains(e.Message, "already been set up")
	}
	return false
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL, e.g. "http://localhost:8081".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// do sends in as JSON (when non-nil) and decodes the answer into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		if raw, ok := in.([]byte); ok {
			body = bytes.NewReader(raw)
		} else {
			b, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			body = bytes.NewReader(b)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		}
		if raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); json.Unmarshal(raw, &eb) == nil {
			apiErr.Message, apiErr.Fields = eb.Message, eb.Fields
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (bool, error) {
	var out struct {
		IsSetup bool `json:"isSetup"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/status", nil, &out)
	return out.IsSetup, err
}

// Setup creates the account and keeps the returned token.
func (c *Client) Setup(ctx context.Context, password string) (auth.Session, error) {
	return c.session(ctx, "/api/auth/setup", password)
}

// Login keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, password string) (auth.Session, error) {
	return c.session(ctx, "/api/auth/login", password)
}

func (c *Client) session(ctx context.Context, path, password string) (auth.Session, error) {
	var sess auth.Session
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"password": password}, &sess); err != nil {
		return auth.Session{}, err
	}
	c.token = sess.Token
	return sess, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/change-password",
		map[string]string{"currentPassword": current, "newPassword": next}, nil)
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/auth/delete-account", nil, nil)
}

// List fetches every document of a collection decoded as T.
func List[T any](ctx context.Context, c *Client, collection string) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, "/api/"+collection, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create stores v and returns the server's copy, carrying its id.
func Create[T any](ctx context.Context, c *Client, collection string, v T) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, "/api/"+collection, v, &out)
	return out, err
}

// Update sends partial fields for id and returns the merged document.
func Update[T any](ctx context.Context, c *Client, collection, id string, partial any) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPut, "/api/"+collection+"/"+url.PathEscape(id), partial, &out)
	return out, err
}

func Get[T any](ctx context.Context, c *Client, collection, id string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, "/api/"+collection+"/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+collection+"/"+url.PathEscape(id), nil, nil)
}

type routineBody struct {
	WeeklyRoutine core.WeeklyRoutine `json:"weeklyRoutine"`
}

func (c *Client) Routine(ctx context.Context) (core.WeeklyRoutine, error) {
	var out routineBody
	if err := c.do(ctx, http.MethodGet, "/api/routine", nil, &out); err != nil {
		return nil, err
	}
	return out.WeeklyRoutine, nil
}

// SaveRoutine replaces the routine and returns it with ids filled in.
func (c *Client) SaveRoutine(ctx context.Context, r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
	var out routineBody
	if err := c.do(ctx, http.MethodPost, "/api/routine", routineBody{WeeklyRoutine: r}, &out); err != nil {
		return nil, err
	}
	return out.WeeklyRoutine, nil
}

// Import replaces all server data with raw, a LifeData JSON document, and
// returns the per-collection counts.
func (c *Client) Import(ctx context.Context, raw []byte) (map[string]int, error) {
	var out struct {
		Imported map[string]int `json:"imported"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/import", raw, &out); err != nil {
		return nil, err
	}
	return out.Imported, nil
}

func (c *Client) Export(ctx context.Context) (*lifedata.LifeData, error) {
	ld := lifedata.New()
	if err := c.do(ctx, http.MethodGet, "/api/export", nil, ld); err != nil {
		return nil, err
	}
	return ld, nil
}

func (c *Client) Summary(ctx context.Context) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/summary", struct{}{}, &out)
	return out.Summary, err
}

// ReportRange selects a report period or explicit dates. Dates win when set.
type ReportRange struct {
	Period    string `json:"period,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func (c *Client) Report(ctx context.Context, rng ReportRange) (string, error) {
	var out struct {
		Report string `json:"report"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/report", rng, &out)
	return out.Report, err
}

func (c *Client) ChatInit(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/chat/init", struct{}{}, &out)
	return out.Message, err
}

func (c *Client) ChatMessage(ctx context.Context, history []ai.Message) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/chat/message", map[string]any{"history": history}, &out)
	return out.Message, err
}
