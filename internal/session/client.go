// Package session authenticates against the ingestion backend and submits
// telemetry records with the resulting bearer token.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"fuelsensor-sim/internal/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Default endpoint paths relative to the base URL.
const (
	DefaultLoginPath  = "/auth/login"
	DefaultIngestPath = "/sensor/ingest"
)

// Credentials are exchanged for a bearer token.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Config locates the backend.
type Config struct {
	BaseURL    string
	LoginPath  string
	IngestPath string
	Timeout    time.Duration
}

// Session pairs a bearer token with the HTTP client that obtained it.
type Session struct {
	Token     string
	ExpiresAt time.Time

	http *http.Client
}

// Expired reports whether the token carried an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Close releases idle connections held by the session's transport.
func (s *Session) Close() {
	if s != nil && s.http != nil {
		s.http.CloseIdleConnections()
	}
}

// Response is the ingest reply, kept for logging only.
type Response struct {
	Status int
	Body   any
}

// Client performs login and ingest calls.
type Client struct {
	cfg     Config
	newHTTP func() *http.Client
}

// NewClient creates a client. Each login gets a fresh http.Client so a broken
// session never shares connections with its replacement.
func NewClient(cfg Config) *Client {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.IngestPath == "" {
		cfg.IngestPath = DefaultIngestPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{cfg: cfg}
	c.newHTTP = func() *http.Client {
		return &http.Client{Timeout: c.cfg.Timeout, Transport: &http.Transport{Proxy: http.ProxyFromEnvironment}}
	}
	return c
}

// Login exchanges credentials for a session. A response without a token is an
// *AuthError whatever its status code.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	hc := c.newHTTP()
	status, raw, err := c.post(ctx, hc, c.cfg.LoginPath, creds, "")
	if err != nil {
		hc.CloseIdleConnections()
		return nil, &TransportError{Op: "login", Err: err}
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		hc.CloseIdleConnections()
		return nil, fmt.Errorf("decode login response (status %d): %w", status, err)
	}
	token, _ := body["token"].(string)
	if token == "" {
		hc.CloseIdleConnections()
		return nil, &AuthError{Status: status, Body: body}
	}
	return &Session{Token: token, ExpiresAt: tokenExpiry(token), http: hc}, nil
}

// Submit posts one record with the session's bearer token.
func (c *Client) Submit(ctx context.Context, sess *Session, rec telemetry.Record) (Response, error) {
	if sess == nil || sess.http == nil {
		return Response{}, fmt.Errorf("submit %s: no active session", rec.SensorID)
	}
	status, raw, err := c.post(ctx, sess.http, c.cfg.IngestPath, rec, sess.Token)
	if err != nil {
		return Response{}, &TransportError{Op: "ingest", Err: err}
	}
	resp := Response{Status: status}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return resp, &TransportError{Op: "ingest", Err: fmt.Errorf("%w: status %d", ErrUnauthorized, status)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp.Body); err != nil {
		return resp, fmt.Errorf("decode ingest response (status %d): %w", status, err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, payload any, token string) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}
