package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wodscan/internal/cache"
	"wodscan/internal/kv"
	"wodscan/internal/models"
	"wodscan/internal/session"
)

type testEnv struct {
	client *Client
	store  *kv.MemoryStore
	sess   *session.Manager
}

func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kv.NewMemoryStore()
	sess := session.NewManager(store, log)
	profileCache := cache.New[models.UserProfile](store, kv.KeyProfileCache, cache.ProfileTTL)
	return &testEnv{
		client: NewClient(srv.URL, sess, profileCache, log),
		store:  store,
		sess:   sess,
	}
}

// TestLoginStoresTokenAndDropsProfileCache verifies a successful login
// stores the bearer token from whatever field the backend chose and
// removes a previous account's cached profile.
func TestLoginStoresTokenAndDropsProfileCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"access_token":"tok-xyz"}`)
	}))

	if err := env.store.Set(ctx, kv.KeyProfileCache, `{"payload":{},"timestamp":1}`); err != nil {
		t.Fatal(err)
	}

	if _, err := env.client.Login(ctx, models.LoginRequest{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	if tok, ok := env.sess.Token(ctx); !ok || tok != "tok-xyz" {
		t.Errorf("token = %q ok=%v, want tok-xyz", tok, ok)
	}
	if _, ok, _ := env.store.Get(ctx, kv.KeyProfileCache); ok {
		t.Error("stale profile cache survived login")
	}
}

// TestLoginFailureSurfacesBackendMessage verifies the backend's error
// message reaches the caller and no token is stored.
func TestLoginFailureSurfacesBackendMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"invalid email or password"}`)
	}))

	_, err := env.client.Login(ctx, models.LoginRequest{Email: "a@b.c", Password: "bad"})
	if err == nil || !strings.Contains(err.Error(), "invalid email or password") {
		t.Errorf("err = %v, want backend message surfaced", err)
	}
	if env.sess.Active(ctx) {
		t.Error("token stored despite failed login")
	}
}

// TestWorkoutsBothShapes verifies the bare-array and wrapped response
// shapes decode identically.
func TestWorkoutsBothShapes(t *testing.T) {
	ctx := context.Background()
	bodies := map[string]string{
		"bare":    `[{"id":"w1","description":"amrap"},{"id":"w2","description":"emom"}]`,
		"wrapped": `{"workouts":[{"id":"w1","description":"amrap"},{"id":"w2","description":"emom"}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("page"); got != "2" {
					t.Errorf("page = %q, want 2", got)
				}
				if got := r.URL.Query().Get("page_size"); got != "10" {
					t.Errorf("page_size = %q, want 10", got)
				}
				io.WriteString(w, body)
			}))
			if err := env.sess.SaveToken(ctx, "tok"); err != nil {
				t.Fatal(err)
			}

			got, err := env.client.Workouts(ctx, 2, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].ID != "w1" || got[1].ID != "w2" {
				t.Errorf("decoded %v", got)
			}
		})
	}
}

// TestWorkoutsMalformedResponse verifies a 200 with an unrecognized body
// shape reports ErrMalformedResponse.
func TestWorkoutsMalformedResponse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[]}`)
	}))
	if err := env.sess.SaveToken(ctx, "tok"); err != nil {
		t.Fatal(err)
	}

	_, err := env.client.Workouts(ctx, 1, 10)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

// TestSuggestScaleEncodesImage verifies the request body is the image
// base64-encoded as a single JSON string and the response maps onto the
// suggestion.
func TestSuggestScaleEncodesImage(t *testing.T) {
	ctx := context.Background()
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}

	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var encoded string
		if err := json.NewDecoder(r.Body).Decode(&encoded); err != nil {
			t.Errorf("body is not a JSON string: %v", err)
		}
		if encoded != base64.StdEncoding.EncodeToString(jpeg) {
			t.Errorf("image bytes did not round-trip: %q", encoded)
		}
		io.WriteString(w, `{
			"workout_id": "w9",
			"parsedWorkout": "21-15-9 thrusters and pull-ups",
			"goal": "sub 8 minutes",
			"recommendedWeights": {"thruster": "42.5kg"},
			"strategy": "break the 21s early"
		}`)
	}))
	if err := env.sess.SaveToken(ctx, "tok"); err != nil {
		t.Fatal(err)
	}

	got, err := env.client.SuggestScale(ctx, jpeg)
	if err != nil {
		t.Fatal(err)
	}
	if got.WorkoutID != "w9" || got.Workout != "21-15-9 thrusters and pull-ups" {
		t.Errorf("suggestion = %+v", got)
	}
	if got.SuggestedWeights["thruster"] != "42.5kg" {
		t.Errorf("weights = %v", got.SuggestedWeights)
	}
}

// TestSubmitResultPayload verifies the submitted field names.
func TestSubmitResultPayload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["workout_id"] != "w3" || body["result"] != "7:42" || body["userFeedback"] != "felt heavy" {
			t.Errorf("payload = %v", body)
		}
		io.WriteString(w, `{}`)
	}))
	if err := env.sess.SaveToken(ctx, "tok"); err != nil {
		t.Fatal(err)
	}

	if err := env.client.SubmitResult(ctx, "w3", "7:42", "felt heavy"); err != nil {
		t.Fatal(err)
	}
}

// TestAuthedCallWithoutSession verifies authenticated endpoints fail fast
// with ErrNoSession.
func TestAuthedCallWithoutSession(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be reached")
	}))
	if _, err := env.client.Profile(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}
