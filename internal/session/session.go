// Package session owns the bearer-token lifecycle: storing the token,
// answering "is anyone logged in", stamping outbound requests, and tearing
// the whole user-scoped state down when the backend rejects the token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wodscan/internal/kv"
)

var (
	// ErrNoSession means an authenticated call was attempted with no
	// stored token. No network request was made; the caller should route
	// to login.
	ErrNoSession = errors.New("session: no authentication token")
	// ErrAuthExpired means the backend answered 401 or 403. The session
	// and all user-scoped data have already been cleared; the caller must
	// not retry with the old token.
	ErrAuthExpired = errors.New("session: authentication expired")
)

// Manager is the single owner of the token key. It is also the only
// component that clears session, cache, and local keys together.
type Manager struct {
	store      kv.Store
	httpClient *http.Client
	log        *slog.Logger
}

func NewManager(store kv.Store, log *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// SaveToken stores the bearer token, overwriting any previous one.
func (m *Manager) SaveToken(ctx context.Context, token string) error {
	if err := m.store.Set(ctx, kv.KeyToken, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// Token reports the stored token. Read errors are treated as "no session":
// absence is a valid outcome here and must never fail the caller.
func (m *Manager) Token(ctx context.Context) (string, bool) {
	token, ok, err := m.store.Get(ctx, kv.KeyToken)
	if err != nil {
		m.log.Warn("token read failed, treating as logged out", "error", err)
		return "", false
	}
	return token, ok && token != ""
}

// Active reports whether a session exists. Token presence is the sole
// definition of "logged in".
func (m *Manager) Active(ctx context.Context) bool {
	_, ok := m.Token(ctx)
	return ok
}

// Clear removes the token and every user-scoped key: local profile and
// workouts, the profile cache, and all workout cache pages (found by
// listing keys and filtering on the cache prefix). Safe to call with no
// session present.
func (m *Manager) Clear(ctx context.Context) error {
	for _, key := range []string{kv.KeyToken, kv.KeyUserProfile, kv.KeyWorkouts, kv.KeyProfileCache} {
		if err := m.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}

	keys, err := m.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("listing keys for teardown: %w", err)
	}
	var cacheKeys []string
	for _, k := range keys {
		if strings.HasPrefix(k, kv.WorkoutCachePrefix) {
			cacheKeys = append(cacheKeys, k)
		}
	}
	if len(cacheKeys) > 0 {
		if err := m.store.MultiRemove(ctx, cacheKeys); err != nil {
			return fmt.Errorf("clearing workout cache: %w", err)
		}
		m.log.Info("cleared workout cache", "keys", len(cacheKeys))
	}
	return nil
}

// Do sends req with the session's Authorization header. Caller headers are
// kept, except Authorization, which is always the session's. A 401 or 403
// tears the session down before the error is returned; every other status,
// 4xx and 5xx included, is handed back unmodified for the caller to judge.
func (m *Manager) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, ok := m.Token(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session: request %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		m.log.Info("token rejected, clearing session", "status", resp.StatusCode)
		if err := m.Clear(ctx); err != nil {
			m.log.Error("session teardown failed", "error", err)
		}
		return nil, ErrAuthExpired
	}

	return resp, nil
}
