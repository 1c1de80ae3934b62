// Package serverclient is the agent's HTTP client for the central server.
// It dispatches queued offline operations and probes server health.
package serverclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from the server (10MB)
const maxResponseSize = 10 * 1024 * 1024

// IdempotencyHeader carries the queued operation's ID on every replayed write
const IdempotencyHeader = "Idempotency-Key"

// ErrLoginFailed indicates the configured credentials were rejected
var ErrLoginFailed = errors.New("serverclient: login failed")

// Config holds the client settings
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the server API with a cached access token
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// New creates a new Client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("serverclient: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    base,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// envelope is the server's response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Meta    *pageMeta       `json:"meta,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// pageMeta is the pagination block of list responses
type pageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// Probe checks GET /health
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

// Login exchanges the configured credentials for an access token
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" {
		return fmt.Errorf("%w: no credentials configured", ErrLoginFailed)
	}
	body, err := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	if err != nil {
		return err
	}
	env, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, nil)
	if err != nil {
		var remote *appoffline.RemoteError
		if errors.As(err, &remote) && remote.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
		return err
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil || tokens.AccessToken == "" {
		return fmt.Errorf("%w: no access token in response", ErrLoginFailed)
	}
	c.mu.Lock()
	c.token = tokens.AccessToken
	c.mu.Unlock()
	c.logger.Info("logged in to server", zap.String("username", c.username))
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// authorized sends an authenticated request, logging in first when there is
// no token and once more when the server answers 401
func (c *Client) authorized(ctx context.Context, method, path string, body []byte, header http.Header) (*envelope, error) {
	if c.currentToken() == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}
	env, err := c.do(ctx, method, path, body, c.withToken(header))
	var remote *appoffline.RemoteError
	if errors.As(err, &remote) && remote.StatusCode == http.StatusUnauthorized {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, method, path, body, c.withToken(header))
	}
	return env, err
}

func (c *Client) withToken(header http.Header) http.Header {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Authorization", "Bearer "+c.currentToken())
	return h
}

// do performs one request and decodes the response envelope. Non-2xx
// answers come back as *appoffline.RemoteError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, header http.Header) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("serverclient: failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serverclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("serverclient: failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		remote := &appoffline.RemoteError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			remote.Code = env.Error.Code
			remote.Message = env.Error.Message
		}
		return nil, remote
	}
	if decodeErr != nil || env.Data == nil {
		// health answers plain JSON without the envelope
		return &envelope{Success: true, Data: raw}, nil
	}
	return &env, nil
}
