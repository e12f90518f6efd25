package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Doer is the subset of *http.Client the bootstrap needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials are the admin email and password sent to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Bootstrapper performs the once-per-module login.
type Bootstrapper struct {
	client    Doer
	baseURL   string
	loginPath string
	logger    *slog.Logger
}

// NewBootstrapper creates a bootstrapper posting to baseURL+loginPath.
func NewBootstrapper(client Doer, baseURL, loginPath string, logger *slog.Logger) *Bootstrapper {
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &Bootstrapper{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		loginPath: loginPath,
		logger:    logger,
	}
}

// Login posts the credentials once. It never returns an error: a failed login
// yields a session without a token so the endpoints still run, and the cause
// is kept in Session.Err.
func (b *Bootstrapper) Login(ctx context.Context, creds Credentials) *Session {
	s := &Session{ObtainedAt: time.Now()}

	status, body, err := b.post(ctx, creds)
	s.Status = status
	if err != nil {
		s.Err = err
		b.logger.Warn("authentication failed, continuing without token", "error", err)
		return s
	}

	if status != http.StatusOK && status != http.StatusCreated {
		s.Err = fmt.Errorf("login returned status %d", status)
		b.logger.Warn("authentication failed, continuing without token", "status", status)
		return s
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		s.Err = fmt.Errorf("failed to parse login response: %w", err)
		b.logger.Warn("login response is not a JSON object", "status", status, "error", err)
		return s
	}

	s.Token, s.Source = ExtractToken(decoded)
	if s.Token == "" {
		b.logger.Warn("login succeeded but no token was found", "status", status)
		return s
	}

	b.logger.Info("authenticated", "status", status, "source", s.Source)
	return s
}

func (b *Bootstrapper) post(ctx context.Context, creds Credentials) (int, []byte, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+b.loginPath, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read login response: %w", err)
	}
	return resp.StatusCode, body, nil
}
