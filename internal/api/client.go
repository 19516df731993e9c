// Package api is the REST client for the WODScan backend. Response-shape
// ambiguity (the workouts endpoint has returned both a bare array and a
// wrapped object across backend versions) is normalized here so it never
// leaks into the sync layer.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wodscan/internal/cache"
	"wodscan/internal/models"
	"wodscan/internal/session"
)

// ErrMalformedResponse means the backend answered 2xx but the body did not
// decode into the expected shape. For fallback purposes callers treat it
// like a network failure.
var ErrMalformedResponse = errors.New("api: malformed response")

// Client calls the WODScan backend. Authenticated endpoints go through the
// session manager so token stamping and expiry teardown stay in one place.
type Client struct {
	baseURL      string
	session      *session.Manager
	profileCache *cache.Cache[models.UserProfile]
	httpClient   *http.Client
	log          *slog.Logger
}

func NewClient(baseURL string, sess *session.Manager, profileCache *cache.Cache[models.UserProfile], log *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		session:      sess,
		profileCache: profileCache,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		log:          log,
	}
}

// Signup registers a new account. If the response carries a token the
// backend auto-logged the user in: the token is stored and any cached
// profile from a previous account is dropped.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (models.AuthResponse, error) {
	return c.authCall(ctx, "/signup", req)
}

// Login authenticates and stores the returned token, dropping any stale
// cached profile so the next read is fresh for this user.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	return c.authCall(ctx, "/login", req)
}

func (c *Client) authCall(ctx context.Context, path string, body any) (models.AuthResponse, error) {
	var auth models.AuthResponse

	data, err := json.Marshal(body)
	if err != nil {
		return auth, fmt.Errorf("api: encoding %s body: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return auth, fmt.Errorf("api: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return auth, fmt.Errorf("api: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return auth, fmt.Errorf("api: %s read body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return auth, statusError(path, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, &auth); err != nil {
		return auth, fmt.Errorf("api: %s: %w: %v", path, ErrMalformedResponse, err)
	}

	if token := auth.BearerToken(); token != "" {
		if err := c.session.SaveToken(ctx, token); err != nil {
			return auth, err
		}
		if err := c.profileCache.Invalidate(ctx, ""); err != nil {
			c.log.Warn("clearing profile cache after login failed", "error", err)
		}
		c.log.Info("session established", "endpoint", path)
	} else {
		c.log.Info("auth response carried no token", "endpoint", path)
	}

	return auth, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (models.UserProfile, error) {
	var profile models.UserProfile

	raw, err := c.authedGet(ctx, "/profile")
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return profile, fmt.Errorf("api: /profile: %w: %v", ErrMalformedResponse, err)
	}
	return profile, nil
}

// Workouts fetches one history page. Both response shapes — a bare array
// and {"workouts": [...]} — decode to the same ordered sequence.
func (c *Client) Workouts(ctx context.Context, page, pageSize int) ([]models.Workout, error) {
	path := "/workouts?page=" + strconv.Itoa(page) + "&page_size=" + strconv.Itoa(pageSize)
	raw, err := c.authedGet(ctx, path)
	if err != nil {
		return nil, err
	}

	var workouts []models.Workout
	if err := json.Unmarshal(raw, &workouts); err == nil {
		return workouts, nil
	}

	var wrapped struct {
		Workouts []models.Workout `json:"workouts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Workouts == nil {
		return nil, fmt.Errorf("api: /workouts: %w", ErrMalformedResponse)
	}
	return wrapped.Workouts, nil
}

// suggestResponse is the backend's photo-analysis wire shape.
type suggestResponse struct {
	WorkoutID          string            `json:"workout_id"`
	ParsedWorkout      string            `json:"parsedWorkout"`
	Goal               string            `json:"goal"`
	RecommendedWeights map[string]string `json:"recommendedWeights"`
	Strategy           string            `json:"strategy"`
}

// SuggestScale submits a JPEG of the posted workout for analysis. The body
// is the base64 image as a single JSON string.
func (c *Client) SuggestScale(ctx context.Context, jpeg []byte) (models.WorkoutSuggestion, error) {
	var suggestion models.WorkoutSuggestion

	body, err := json.Marshal(base64.StdEncoding.EncodeToString(jpeg))
	if err != nil {
		return suggestion, fmt.Errorf("api: encoding image: %w", err)
	}

	raw, err := c.authedPost(ctx, "/suggest-scale", body)
	if err != nil {
		return suggestion, err
	}

	var sr suggestResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return suggestion, fmt.Errorf("api: /suggest-scale: %w: %v", ErrMalformedResponse, err)
	}

	return models.WorkoutSuggestion{
		Workout:          sr.ParsedWorkout,
		Goal:             sr.Goal,
		SuggestedWeights: sr.RecommendedWeights,
		Strategy:         sr.Strategy,
		WorkoutID:        sr.WorkoutID,
	}, nil
}

// SubmitResult reports a finished workout back to the backend, which
// updates the athlete's capacity profile server-side. Callers treat this
// as best-effort: a failure here never blocks the local save.
func (c *Client) SubmitResult(ctx context.Context, workoutID, result, userFeedback string) error {
	body, err := json.Marshal(map[string]string{
		"workout_id":   workoutID,
		"result":       result,
		"userFeedback": userFeedback,
	})
	if err != nil {
		return fmt.Errorf("api: encoding result: %w", err)
	}
	_, err = c.authedPost(ctx, "/submit-result", body)
	return err
}

func (c *Client) authedGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	return c.authedDo(req, path)
}

func (c *Client) authedPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	return c.authedDo(req, path)
}

func (c *Client) authedDo(req *http.Request, path string) ([]byte, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: %s read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(path, resp.StatusCode, raw)
	}
	return raw, nil
}

// statusError surfaces the backend's message field when it sent one.
func statusError(path string, status int, body []byte) error {
	var errBody struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &errBody)
	msg := errBody.Message
	if msg == "" {
		msg = errBody.Error
	}
	if msg != "" {
		return fmt.Errorf("api: %s failed (status %d): %s", path, status, msg)
	}
	return fmt.Errorf("api: %s failed (status %d)", path, status)
}
