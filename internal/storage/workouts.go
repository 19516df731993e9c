package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wodscan/internal/models"
)

// WorkoutRow is one workout as stored server-side. A row is created when
// photo analysis produces a suggestion and completed when the athlete
// submits a result.
type WorkoutRow struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Date         time.Time
	Description  string
	Weights      map[string]string
	Goal         string
	Strategy     string
	Result       string
	UserFeedback string
}

// InsertWorkout records a new workout row.
func (db *DB) InsertWorkout(ctx context.Context, row WorkoutRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, user_id, date, description, weights, goal, strategy, result, user_feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.UserID, row.Date, row.Description, row.Weights,
		row.Goal, row.Strategy, row.Result, row.UserFeedback)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

// ListWorkouts returns one page of a user's workouts, newest first.
// Pages are 1-based.
func (db *DB) ListWorkouts(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Workout, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := db.Pool.Query(ctx,
		`SELECT id, date, description, weights, goal, strategy, result, user_feedback
		 FROM workouts WHERE user_id = $1
		 ORDER BY date DESC
		 LIMIT $2 OFFSET $3`, userID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	defer rows.Close()

	workouts := []models.Workout{}
	for rows.Next() {
		var (
			id                            uuid.UUID
			w                             models.Workout
			goal, strategy, result, notes *string
		)
		if err := rows.Scan(&id, &w.Date, &w.Description, &w.Weights, &goal, &strategy, &result, &notes); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		w.ID = id.String()
		if goal != nil {
			w.Goal = *goal
		}
		if strategy != nil {
			w.Strategy = *strategy
		}
		if result != nil {
			w.Result = *result
		}
		if notes != nil {
			w.UserFeedback = *notes
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	return workouts, nil
}

// SetResult records the athlete's result and feedback for a workout.
// The row must belong to the given user.
func (db *DB) SetResult(ctx context.Context, userID, workoutID uuid.UUID, result, userFeedback string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workouts SET result = $3, user_feedback = $4
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID, result, userFeedback)
	if err != nil {
		return fmt.Errorf("setting result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
