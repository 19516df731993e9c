package local

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"wodscan/internal/kv"
	"wodscan/internal/models"
)

func newTestStore() (*Store, *kv.MemoryStore) {
	mem := kv.NewMemoryStore()
	return NewStore(mem, slog.New(slog.NewTextHandler(io.Discard, nil))), mem
}

// failingStore returns an error on every read, to exercise the
// failure-versus-absence distinction.
type failingStore struct {
	kv.Store
}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

// TestProfileRoundTrip verifies optional fields survive a save and load and
// that absent optionals stay absent.
func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	profile := models.UserProfile{
		Email:    "ada@example.com",
		Name:     "Ada",
		Sex:      "female",
		Age:      34,
		Weight:   61.5,
		Birthday: "1991-06-14",
	}
	if err := s.SaveProfile(ctx, profile); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.Profile(ctx)
	if err != nil || !ok {
		t.Fatalf("Profile: ok=%v err=%v", ok, err)
	}
	if got != profile {
		t.Errorf("round trip changed profile: got %+v", got)
	}
}

// TestProfileAbsentIsNotError verifies no saved profile reports ok=false
// with a nil error.
func TestProfileAbsentIsNotError(t *testing.T) {
	s, _ := newTestStore()
	_, ok, err := s.Profile(context.Background())
	if ok || err != nil {
		t.Errorf("ok=%v err=%v, want absent without error", ok, err)
	}
}

// TestProfileReadFailureIsError verifies a store failure surfaces as an
// error instead of masquerading as absence.
func TestProfileReadFailureIsError(t *testing.T) {
	s := NewStore(failingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, _, err := s.Profile(context.Background()); err == nil {
		t.Error("store failure reported as clean absence")
	}
	if _, err := s.Workouts(context.Background()); err == nil {
		t.Error("store failure reported as empty workout list")
	}
}

// TestProfileStoredNumerically verifies string-typed age and weight from
// the wire land in storage as plain JSON numbers.
func TestProfileStoredNumerically(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore()

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(`{"email":"a@b.c","age":"34","weight":"81.5"}`), &profile); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveProfile(ctx, profile); err != nil {
		t.Fatal(err)
	}

	raw, _, _ := mem.Get(ctx, kv.KeyUserProfile)
	if strings.Contains(raw, `"34"`) || strings.Contains(raw, `"81.5"`) {
		t.Errorf("numeric fields stored as strings: %s", raw)
	}
	if !strings.Contains(raw, `"age":34`) {
		t.Errorf("age not stored as a number: %s", raw)
	}
}

// TestSaveWorkoutAppends verifies saves accumulate in insertion order and
// optional fields round-trip.
func TestSaveWorkoutAppends(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	first := models.Workout{
		ID:          "w1",
		Date:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "5x5 back squat",
		Weights:     map[string]string{"back squat": "80kg"},
		Result:      "done",
	}
	second := models.Workout{
		ID:          "w2",
		Date:        time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Description: "EMOM 12 burpees",
		Result:      "11 rounds",
		Goal:        "pacing",
	}
	for _, w := range []models.Workout{first, second} {
		if err := s.SaveWorkout(ctx, w); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Workouts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d workouts, want 2", len(got))
	}
	if got[0].ID != "w1" || got[1].ID != "w2" {
		t.Errorf("insertion order lost: %v, %v", got[0].ID, got[1].ID)
	}
	if got[1].Goal != "pacing" {
		t.Errorf("optional field lost: goal = %q", got[1].Goal)
	}
	if got[0].Weights["back squat"] != "80kg" {
		t.Errorf("weights lost: %v", got[0].Weights)
	}
}

// TestWorkoutsEmptyWhenUnset verifies a fresh store yields an empty list,
// not nil and not an error.
func TestWorkoutsEmptyWhenUnset(t *testing.T) {
	s, _ := newTestStore()
	got, err := s.Workouts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil list", got)
	}
}
