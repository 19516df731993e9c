package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wodscan/internal/models"
	"wodscan/internal/storage"
)

// Store is the slice of the storage layer the handlers use. *storage.DB
// satisfies it; tests substitute a fake.
type Store interface {
	CreateUser(ctx context.Context, row storage.UserRow) error
	GetUserByEmail(ctx context.Context, email string) (storage.UserRow, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (storage.UserRow, error)
	UpdateCapacities(ctx context.Context, id uuid.UUID, c models.Capacities) error
	InsertWorkout(ctx context.Context, row storage.WorkoutRow) error
	ListWorkouts(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Workout, error)
	SetResult(ctx context.Context, userID, workoutID uuid.UUID, result, userFeedback string) error
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	analyzer Analyzer
	tokens   *Tokens
	log      *slog.Logger
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, analyzer Analyzer, tokens *Tokens, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		analyzer: analyzer,
		tokens:   tokens,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	s.router.Post("/signup", s.handleSignup)
	s.router.Post("/login", s.handleLogin)

	// Bearer-authenticated endpoints
	s.router.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.tokens))
		r.Get("/profile", s.handleProfile)
		r.Get("/workouts", s.handleWorkouts)
		r.Post("/suggest-scale", s.handleSuggestScale)
		r.Post("/submit-result", s.handleSubmitResult)
	})
}
