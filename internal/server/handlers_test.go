package server

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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"wodscan/internal/models"
	"wodscan/internal/storage"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	users    map[uuid.UUID]storage.UserRow
	workouts map[uuid.UUID]storage.WorkoutRow
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uuid.UUID]storage.UserRow{},
		workouts: map[uuid.UUID]storage.WorkoutRow{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, row storage.UserRow) error {
	for _, u := range f.users {
		if u.Email == row.Email {
			return storage.ErrEmailTaken
		}
	}
	f.users[row.ID] = row
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (storage.UserRow, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return storage.UserRow{}, storage.ErrNotFound
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (storage.UserRow, error) {
	u, ok := f.users[id]
	if !ok {
		return storage.UserRow{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpdateCapacities(_ context.Context, id uuid.UUID, c models.Capacities) error {
	u, ok := f.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Capacities = c
	f.users[id] = u
	return nil
}

func (f *fakeStore) InsertWorkout(_ context.Context, row storage.WorkoutRow) error {
	f.workouts[row.ID] = row
	return nil
}

func (f *fakeStore) ListWorkouts(_ context.Context, userID uuid.UUID, page, pageSize int) ([]models.Workout, error) {
	var out []models.Workout
	for _, w := range f.workouts {
		if w.UserID == userID {
			out = append(out, models.Workout{
				ID:          w.ID.String(),
				Date:        w.Date,
				Description: w.Description,
				Weights:     w.Weights,
				Result:      w.Result,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) SetResult(_ context.Context, userID, workoutID uuid.UUID, result, userFeedback string) error {
	w, ok := f.workouts[workoutID]
	if !ok || w.UserID != userID {
		return storage.ErrNotFound
	}
	w.Result = result
	w.UserFeedback = userFeedback
	f.workouts[workoutID] = w
	return nil
}

// fakeAnalyzer returns a canned suggestion or error.
type fakeAnalyzer struct {
	suggestion models.WorkoutSuggestion
	err        error
	gotJPEG    []byte
	gotAthlete AthleteContext
}

func (f *fakeAnalyzer) Analyze(_ context.Context, jpeg []byte, athlete AthleteContext) (models.WorkoutSuggestion, error) {
	f.gotJPEG = jpeg
	f.gotAthlete = athlete
	return f.suggestion, f.err
}

func newTestServer(db Store, analyzer Analyzer) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, analyzer, NewTokens("test-secret", time.Hour), log)
}

func signupBody(email string) string {
	return fmt.Sprintf(`{
		"email": %q, "password": "hunter22", "name": "Ada",
		"sex": "female", "birthday": "1991-06-14", "weight": 61.5
	}`, email)
}

func doJSON(t *testing.T, srv http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// TestSignupIssuesToken verifies a valid signup creates the account with
// default capacities and responds with a usable bearer token.
func TestSignupIssuesToken(t *testing.T) {
	db := newFakeStore()
	srv := newTestServer(db, &fakeAnalyzer{})

	rec, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	token, _ := body["idToken"].(string)
	if token == "" {
		t.Fatal("no idToken in response")
	}

	// The token authenticates follow-up requests.
	rec, profile := doJSON(t, srv, http.MethodGet, "/profile", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	if profile["email"] != "ada@example.com" {
		t.Errorf("profile email = %v", profile["email"])
	}
	caps, _ := profile["capacities"].(map[string]any)
	if caps["strength"] != 5.0 {
		t.Errorf("default strength = %v, want 5", caps["strength"])
	}
}

// TestSignupValidation verifies malformed signups are rejected with 400.
func TestSignupValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing fields", `{"email":"a@b.c"}`},
		{"bad sex", `{"email":"a@b.c","password":"p","name":"A","sex":"other","birthday":"1991-06-14","weight":60}`},
		{"bad birthday", `{"email":"a@b.c","password":"p","name":"A","sex":"male","birthday":"June 14","weight":60}`},
		{"zero weight", `{"email":"a@b.c","password":"p","name":"A","sex":"male","birthday":"1991-06-14","weight":0}`},
	}
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doJSON(t, srv, http.MethodPost, "/signup", "", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// TestSignupDuplicateEmail verifies a taken email is a 409.
func TestSignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{})

	if rec, _ := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com")); rec.Code != http.StatusOK {
		t.Fatalf("first signup: %d", rec.Code)
	}
	rec, _ := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}
}

// TestLogin verifies correct credentials yield a token and wrong ones a
// 401 with no credential detail leaked.
func TestLogin(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{})
	if rec, _ := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com")); rec.Code != http.StatusOK {
		t.Fatalf("signup: %d", rec.Code)
	}

	rec, body := doJSON(t, srv, http.MethodPost, "/login", "", `{"email":"ada@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	if tok, _ := body["idToken"].(string); tok == "" {
		t.Error("no idToken after login")
	}

	rec, body = doJSON(t, srv, http.MethodPost, "/login", "", `{"email":"ada@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
	if msg, _ := body["message"].(string); msg != "invalid email or password" {
		t.Errorf("message = %q", msg)
	}

	rec, _ = doJSON(t, srv, http.MethodPost, "/login", "", `{"email":"nobody@example.com","password":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d, want 401", rec.Code)
	}
}

// TestSuggestScale verifies the image round-trips to the analyzer with the
// athlete context and the suggestion is recorded as a workout.
func TestSuggestScale(t *testing.T) {
	db := newFakeStore()
	analyzer := &fakeAnalyzer{suggestion: models.WorkoutSuggestion{
		Workout:          "5 rounds: 400m run, 15 wall balls",
		SuggestedWeights: map[string]string{"wall ball": "6kg"},
		Goal:             "under 20 minutes",
		Strategy:         "steady runs",
	}}
	srv := newTestServer(db, analyzer)

	_, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	token := body["idToken"].(string)

	jpeg := []byte{0xff, 0xd8, 0x10, 0x20}
	payload, _ := json.Marshal(base64.StdEncoding.EncodeToString(jpeg))
	rec, resp := doJSON(t, srv, http.MethodPost, "/suggest-scale", token, string(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if !bytes.Equal(analyzer.gotJPEG, jpeg) {
		t.Error("image bytes did not reach the analyzer intact")
	}
	if analyzer.gotAthlete.Sex != "female" || analyzer.gotAthlete.BodyWeight != 61.5 {
		t.Errorf("athlete context = %+v", analyzer.gotAthlete)
	}

	if resp["parsedWorkout"] != analyzer.suggestion.Workout {
		t.Errorf("parsedWorkout = %v", resp["parsedWorkout"])
	}
	workoutID, _ := resp["workout_id"].(string)
	id, err := uuid.Parse(workoutID)
	if err != nil {
		t.Fatalf("workout_id %q is not a UUID", workoutID)
	}
	if _, ok := db.workouts[id]; !ok {
		t.Error("suggested workout was not persisted")
	}
}

// TestSuggestScaleAnalyzerFailure verifies an upstream failure is a 502,
// not a 500, so clients can tell "try another photo" from a server bug.
func TestSuggestScaleAnalyzerFailure(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{err: errors.New("vision upstream down")})
	_, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	token := body["idToken"].(string)

	payload, _ := json.Marshal(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	rec, _ := doJSON(t, srv, http.MethodPost, "/suggest-scale", token, string(payload))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

// TestSubmitResultNudgesCapacities verifies a result lands on the workout
// and hard feedback steps every capacity score down.
func TestSubmitResultNudgesCapacities(t *testing.T) {
	db := newFakeStore()
	srv := newTestServer(db, &fakeAnalyzer{})
	_, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	token := body["idToken"].(string)

	var userID uuid.UUID
	for id := range db.users {
		userID = id
	}
	workoutID := uuid.New()
	db.workouts[workoutID] = storage.WorkoutRow{ID: workoutID, UserID: userID, Date: time.Now()}

	payload := fmt.Sprintf(`{"workout_id":%q,"result":"12:34","userFeedback":"really heavy today"}`, workoutID)
	rec, _ := doJSON(t, srv, http.MethodPost, "/submit-result", token, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if got := db.workouts[workoutID].Result; got != "12:34" {
		t.Errorf("result = %q", got)
	}
	if got := db.users[userID].Capacities.Strength; got != 4.9 {
		t.Errorf("strength after hard feedback = %v, want 4.9", got)
	}
}

// TestSubmitResultUnknownWorkout verifies an unknown workout is a 404.
func TestSubmitResultUnknownWorkout(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{})
	_, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	token := body["idToken"].(string)

	payload := fmt.Sprintf(`{"workout_id":%q,"result":"12:34"}`, uuid.New())
	rec, _ := doJSON(t, srv, http.MethodPost, "/submit-result", token, payload)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestWorkoutsRequiresAuth verifies the history endpoint rejects
// unauthenticated requests.
func TestWorkoutsRequiresAuth(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakeAnalyzer{})
	rec, _ := doJSON(t, srv, http.MethodGet, "/workouts", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestWorkoutsWrappedShape verifies the history response wraps the list in
// a workouts field.
func TestWorkoutsWrappedShape(t *testing.T) {
	db := newFakeStore()
	srv := newTestServer(db, &fakeAnalyzer{})
	_, body := doJSON(t, srv, http.MethodPost, "/signup", "", signupBody("ada@example.com"))
	token := body["idToken"].(string)

	var userID uuid.UUID
	for id := range db.users {
		userID = id
	}
	wid := uuid.New()
	db.workouts[wid] = storage.WorkoutRow{ID: wid, UserID: userID, Date: time.Now(), Description: "Cindy"}

	rec, resp := doJSON(t, srv, http.MethodGet, "/workouts?page=1&page_size=10", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list, ok := resp["workouts"].([]any)
	if !ok || len(list) != 1 {
		t.Errorf("workouts = %v", resp["workouts"])
	}
}

// TestAdjustCapacities covers the feedback keywords and the scale clamp.
func TestAdjustCapacities(t *testing.T) {
	base := models.Capacities{Strength: 5, Power: 5, MuscularEndurance: 5, AerobicCapacity: 5, AnaerobicCapacity: 5, GymnasticsSkill: 5}

	up := adjustCapacities(base, "felt easy today")
	if up.Power != 5.1 {
		t.Errorf("easy feedback: power = %v, want 5.1", up.Power)
	}
	down := adjustCapacities(base, "absolutely brutal")
	if down.Power != 4.9 {
		t.Errorf("brutal feedback: power = %v, want 4.9", down.Power)
	}
	same := adjustCapacities(base, "fine")
	if same != base {
		t.Errorf("neutral feedback changed capacities: %+v", same)
	}

	ceiling := models.Capacities{Strength: 10, Power: 9.95, MuscularEndurance: 10, AerobicCapacity: 10, AnaerobicCapacity: 10, GymnasticsSkill: 10}
	clamped := adjustCapacities(ceiling, "too light")
	if clamped.Strength != 10 || clamped.Power != 10 {
		t.Errorf("clamp failed: %+v", clamped)
	}
}

// TestAgeFromBirthday covers the anniversary boundary.
func TestAgeFromBirthday(t *testing.T) {
	now := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	birthday := time.Date(1991, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := ageFromBirthday(birthday, now); got != 35 {
		t.Errorf("on the birthday: age = %d, want 35", got)
	}
	if got := ageFromBirthday(birthday, now.AddDate(0, 0, -1)); got != 34 {
		t.Errorf("day before: age = %d, want 34", got)
	}
}
