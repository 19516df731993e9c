package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wodscan/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrEmailTaken is returned when signup hits an existing email.
	ErrEmailTaken = errors.New("storage: email already registered")
)

// UserRow is one account as stored.
type UserRow struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Sex          string
	Birthday     time.Time
	Weight       float64
	Capacities   models.Capacities
}

// CreateUser inserts a new account.
func (db *DB) CreateUser(ctx context.Context, row UserRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, sex, birthday, weight, capacities)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.Email, row.PasswordHash, row.Name, row.Sex, row.Birthday, row.Weight, row.Capacities)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUserByEmail looks an account up for login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash, name, sex, birthday, weight, capacities
		FROM users WHERE email = $1`, email)
}

// GetUserByID looks an account up by primary key.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (UserRow, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash, name, sex, birthday, weight, capacities
		FROM users WHERE id = $1`, id)
}

func (db *DB) getUser(ctx context.Context, query string, arg any) (UserRow, error) {
	var row UserRow
	err := db.Pool.QueryRow(ctx, query, arg).Scan(
		&row.ID, &row.Email, &row.PasswordHash, &row.Name, &row.Sex,
		&row.Birthday, &row.Weight, &row.Capacities)
	if errors.Is(err, pgx.ErrNoRows) {
		return row, ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("querying user: %w", err)
	}
	return row, nil
}

// UpdateCapacities overwrites the stored capacity scores for a user.
func (db *DB) UpdateCapacities(ctx context.Context, id uuid.UUID, c models.Capacities) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE users SET capacities = $2 WHERE id = $1`, id, c)
	if err != nil {
		return fmt.Errorf("updating capacities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports a Postgres 23505 error.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
