// Package local is the durable on-device copy of the athlete's data. It is
// written independently of the TTL caches and survives cache eviction and
// offline periods, which makes it the fallback source when the network
// layer cannot deliver.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"wodscan/internal/kv"
	"wodscan/internal/models"
)

// Store owns the user_profile and workouts keys.
type Store struct {
	kv  kv.Store
	log *slog.Logger
}

func NewStore(store kv.Store, log *slog.Logger) *Store {
	return &Store{kv: store, log: log}
}

// SaveProfile overwrites the stored profile whole. Age and weight are
// models.Number, so whatever representation they arrived in, what hits the
// store is a plain JSON number.
func (s *Store) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeyUserProfile, string(data)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// Profile reports the stored profile, or ok=false when none is saved.
// A read or decode failure is an error, distinct from absence.
func (s *Store) Profile(ctx context.Context) (models.UserProfile, bool, error) {
	var profile models.UserProfile

	raw, ok, err := s.kv.Get(ctx, kv.KeyUserProfile)
	if err != nil {
		return profile, false, fmt.Errorf("reading profile: %w", err)
	}
	if !ok {
		return profile, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return profile, false, fmt.Errorf("decoding profile: %w", err)
	}
	return profile, true, nil
}

// SaveWorkout appends one workout to the stored sequence via
// read-modify-write. Two concurrent saves can lose an update; the store
// assumes a single writer, which holds for one user on one device.
func (s *Store) SaveWorkout(ctx context.Context, workout models.Workout) error {
	workouts, err := s.Workouts(ctx)
	if err != nil {
		return fmt.Errorf("loading workouts for append: %w", err)
	}

	workouts = append(workouts, workout)
	data, err := json.Marshal(workouts)
	if err != nil {
		return fmt.Errorf("encoding workouts: %w", err)
	}
	if err := s.kv.Set(ctx, kv.KeyWorkouts, string(data)); err != nil {
		return fmt.Errorf("saving workouts: %w", err)
	}
	return nil
}

// Workouts returns the stored sequence in insertion order. An unset key is
// an empty list; a failed read or decode is an error. Callers must keep
// that distinction rather than collapsing both to empty.
func (s *Store) Workouts(ctx context.Context) ([]models.Workout, error) {
	raw, ok, err := s.kv.Get(ctx, kv.KeyWorkouts)
	if err != nil {
		return nil, fmt.Errorf("reading workouts: %w", err)
	}
	if !ok {
		return []models.Workout{}, nil
	}

	var workouts []models.Workout
	if err := json.Unmarshal([]byte(raw), &workouts); err != nil {
		return nil, fmt.Errorf("decoding workouts: %w", err)
	}
	return workouts, nil
}
