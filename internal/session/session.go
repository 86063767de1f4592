// Package session implements the authentication gate: one optional bearer
// token for a single authenticated admin.
//
// The token is opaque. No expiry or signature check happens here; any
// non-empty stored value counts as "logged in" until the backend rejects a
// protected request, at which point the token is invalidated.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/storage"
)

// Gate stores and reads the admin bearer token, persisted in the token slot.
type Gate struct {
	loginURL string
	client   *http.Client
	slots    storage.Store
	logger   *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewGate restores the token from its slot. A missing or unreadable slot
// means no session.
func NewGate(ctx context.Context, apiURL string, timeout time.Duration, slots storage.Store, logger *slog.Logger) *Gate {
	g := &Gate{
		loginURL: strings.TrimSuffix(apiURL, "/") + "/auth/login",
		client:   &http.Client{Timeout: timeout},
		slots:    slots,
		logger:   logger.With("component", "session"),
	}
	data, err := slots.Load(ctx, storage.SlotToken)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSlotNotFound) {
			g.logger.WarnContext(ctx, "Failed to load token slot", "error", err)
		}
		return g
	}
	if err := json.Unmarshal(data, &g.token); err != nil {
		g.logger.WarnContext(ctx, "Malformed token slot, starting unauthenticated", "error", err)
		g.token = ""
	}
	return g
}

// Login sends the credentials to the backend auth endpoint and stores the
// returned bearer token. On failure the stored token is left untouched and
// the error carries the server-provided message when one is given.
func (g *Gate) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.loginURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %v: %w", err, apperrors.ErrBackendUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("auth backend returned %d: %w", resp.StatusCode, apperrors.ErrBackendUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Message string `json:"message"`
		}
		message := "invalid email or password"
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
			message = payload.Message
		}
		return fmt.Errorf("%s: %w", message, apperrors.ErrUnauthorized)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Token == "" {
		return fmt.Errorf("auth backend returned no token: %w", apperrors.ErrBackendUnavailable)
	}

	g.setToken(ctx, result.Token)
	g.logger.InfoContext(ctx, "Admin session established")
	return nil
}

// Logout clears the token unconditionally and always succeeds.
func (g *Gate) Logout(ctx context.Context) {
	g.setToken(ctx, "")
	g.logger.InfoContext(ctx, "Admin session cleared")
}

// Invalidate drops the stored token after the backend rejected it, forcing a
// fresh login before the next protected operation.
func (g *Gate) Invalidate(ctx context.Context) {
	g.setToken(ctx, "")
	g.logger.WarnContext(ctx, "Stored token rejected by backend, session invalidated")
}

// IsAuthenticated is a synchronous presence check: no expiry or signature
// validation is performed on the stored token.
func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != ""
}

// Token returns the current bearer token, empty when unauthenticated.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// setToken replaces the in-memory token and synchronously re-persists the slot.
func (g *Gate) setToken(ctx context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	if token == "" {
		if err := g.slots.Delete(ctx, storage.SlotToken); err != nil {
			g.logger.WarnContext(ctx, "Failed to clear token slot", "error", err)
		}
		return
	}
	data, _ := json.Marshal(token)
	if err := g.slots.Save(ctx, storage.SlotToken, data); err != nil {
		g.logger.WarnContext(ctx, "Failed to persist token", "error", err)
	}
}
