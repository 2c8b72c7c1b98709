// Package remote is the editor's client for the Remote Diagram Service.
//
// Every failure is a domain error whose code places it in one class of the
// error taxonomy: VALIDATION, UNAUTHORIZED or INVALID_CREDENTIALS, CONFLICT,
// NOT_FOUND, or NETWORK for transport failures and 5xx responses.
package remote

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 15 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
	userAgent    = "mindmap-cli/1.0"
)

// Options configures New.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client. Its timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the diagram service. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	// stream has no timeout; the change stream is long-lived.
	stream *http.Client
	logger *slog.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func(ctx context.Context)
}

// New creates a client for the service at opts.BaseURL.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		stream:  &http.Client{Transport: httpClient.Transport},
		logger:  logger,
	}, nil
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run whenever an authenticated request is
// rejected with 401. The session uses it to discard its expired token.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginBody{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, nombre, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := registerBody{Nombre: nombre, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the service the token is being discarded.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the display name and/or password. Nil fields are left alone.
func (c *Client) UpdateProfile(ctx context.Context, nombre, password *string) (*User, error) {
	var out profileResponse
	if err := c.do(ctx, http.MethodPut, "/users/me", profileBody{Nombre: nombre, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GetDiagram fetches one diagram. A missing or foreign id yields a NOT_FOUND error.
func (c *Client) GetDiagram(ctx context.Context, id int64) (*Diagram, error) {
	var out Diagram
	if err := c.do(ctx, http.MethodGet, "/mindmaps/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDiagrams returns the caller's diagrams, newest first.
func (c *Client) ListDiagrams(ctx context.Context) ([]Diagram, error) {
	var out diagramList
	if err := c.do(ctx, http.MethodGet, "/mindmaps/all", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Mapas), nil
}

// SearchDiagrams runs a full-text search over the caller's diagrams.
func (c *Client) SearchDiagrams(ctx context.Context, query string) ([]Diagram, error) {
	var out diagramList
	path := "/mindmaps/search?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Mapas), nil
}

// CreateDiagram stores a new diagram and returns its assigned id.
func (c *Client) CreateDiagram(ctx context.Context, titulo, datosJSON string) (*SavedDiagram, error) {
	var out SavedDiagram
	if err := c.do(ctx, http.MethodPost, "/mindmaps", diagramBody{Titulo: titulo, DatosJSON: datosJSON}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDiagram overwrites an existing diagram.
func (c *Client) UpdateDiagram(ctx context.Context, id int64, titulo, datosJSON string) (*SavedDiagram, error) {
	var out SavedDiagram
	body := diagramBody{ID: id, Titulo: titulo, DatosJSON: datosJSON}
	if err := c.do(ctx, http.MethodPut, "/mindmaps", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDiagram removes a diagram.
func (c *Client) DeleteDiagram(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/mindmaps/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes a request and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	c.logger.Debug("remote request",
		"method", method,
		"path", path,
		"request_id", req.Header.Get("X-Request-ID"),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return networkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(ctx, req, resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.UnmarshalRead(resp.Body, out); err != nil {
		return networkError(method+" "+path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// fail builds the error for a non-2xx response and fires the unauthorized
// hook for rejected tokens.
func (c *Client) fail(ctx context.Context, req *http.Request, status int, body []byte) error {
	err := statusError(status, body)

	c.logger.Debug("remote request failed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"error", err,
	)

	if status == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(ctx)
		}
	}
	return err
}

func nonNil(d []Diagram) []Diagram {
	if d == nil {
		return []Diagram{}
	}
	return d
}
