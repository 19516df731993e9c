package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"wodscan/internal/models"
	"wodscan/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// defaultCapacities is the starting profile for a new athlete: mid-scale
// on every score until results move it.
var defaultCapacities = models.Capacities{
	Strength:          5,
	Power:             5,
	MuscularEndurance: 5,
	AerobicCapacity:   5,
	AnaerobicCapacity: 5,
	GymnasticsSkill:   5,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON: " + err.Error()})
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email, password, and name are required"})
		return
	}
	if req.Sex != "male" && req.Sex != "female" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "sex must be male or female"})
		return
	}
	birthday, err := time.Parse("2006-01-02", req.Birthday)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "birthday must be YYYY-MM-DD"})
		return
	}
	if req.Weight <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "weight must be positive"})
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.log.Error("hashing password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	user := storage.UserRow{
		ID:           uuid.New(),
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Name:         req.Name,
		Sex:          req.Sex,
		Birthday:     birthday,
		Weight:       req.Weight,
		Capacities:   defaultCapacities,
	}
	if err := s.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "email already registered"})
			return
		}
		s.log.Error("creating user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("issuing token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	s.log.Info("user signed up", "user", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"idToken": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON: " + err.Error()})
		return
	}

	user, err := s.db.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
			return
		}
		s.log.Error("looking up user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("issuing token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"idToken": token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no user"})
		return
	}

	user, err := s.db.GetUserByID(r.Context(), userID)
	if err != nil {
		s.log.Error("loading profile", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	caps := user.Capacities
	writeJSON(w, http.StatusOK, models.UserProfile{
		Name:       user.Name,
		Email:      user.Email,
		Sex:        user.Sex,
		Age:        models.Number(ageFromBirthday(user.Birthday, time.Now())),
		Weight:     models.Number(user.Weight),
		Birthday:   user.Birthday.Format("2006-01-02"),
		Capacities: &caps,
	})
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no user"})
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	workouts, err := s.db.ListWorkouts(r.Context(), userID, page, pageSize)
	if err != nil {
		s.log.Error("listing workouts", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"workouts": workouts})
}

func (s *Server) handleSuggestScale(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no user"})
		return
	}

	// The body is the base64 JPEG as a single JSON string.
	var b64 string
	if err := json.NewDecoder(r.Body).Decode(&b64); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "body must be a JSON-encoded base64 string"})
		return
	}
	jpeg, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid base64 image"})
		return
	}

	user, err := s.db.GetUserByID(r.Context(), userID)
	if err != nil {
		s.log.Error("loading user for analysis", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	suggestion, err := s.analyzer.Analyze(r.Context(), jpeg, AthleteContext{
		Sex:        user.Sex,
		Age:        ageFromBirthday(user.Birthday, time.Now()),
		BodyWeight: user.Weight,
		Capacities: user.Capacities,
	})
	if err != nil {
		s.log.Error("photo analysis failed", "user", userID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"message": "workout analysis failed, try another photo"})
		return
	}

	workout := storage.WorkoutRow{
		ID:          uuid.New(),
		UserID:      userID,
		Date:        time.Now().UTC(),
		Description: suggestion.Workout,
		Weights:     suggestion.SuggestedWeights,
		Goal:        suggestion.Goal,
		Strategy:    suggestion.Strategy,
	}
	if err := s.db.InsertWorkout(r.Context(), workout); err != nil {
		s.log.Error("recording suggested workout", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workout_id":         workout.ID.String(),
		"parsedWorkout":      suggestion.Workout,
		"goal":               suggestion.Goal,
		"recommendedWeights": suggestion.SuggestedWeights,
		"strategy":           suggestion.Strategy,
	})
}

func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "no user"})
		return
	}

	var req struct {
		WorkoutID    string `json:"workout_id"`
		Result       string `json:"result"`
		UserFeedback string `json:"userFeedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON: " + err.Error()})
		return
	}
	workoutID, err := uuid.Parse(req.WorkoutID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid workout_id"})
		return
	}

	if err := s.db.SetResult(r.Context(), userID, workoutID, req.Result, req.UserFeedback); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "workout not found"})
			return
		}
		s.log.Error("recording result", "user", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	// Nudge the capacity profile from the athlete's own read of the
	// workout. Lookup failures here don't fail the submission: the result
	// is already durable.
	user, err := s.db.GetUserByID(r.Context(), userID)
	if err == nil {
		updated := adjustCapacities(user.Capacities, req.UserFeedback)
		if updated != user.Capacities {
			if err := s.db.UpdateCapacities(r.Context(), userID, updated); err != nil {
				s.log.Warn("capacity update failed", "user", userID, "error", err)
			}
		}
	} else {
		s.log.Warn("capacity update skipped", "user", userID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adjustCapacities moves every score a small step in the direction the
// feedback implies: a workout that felt easy means the profile
// underestimates the athlete, one that felt brutal means it overestimates.
// Scores stay clamped to the 1-10 scale.
func adjustCapacities(c models.Capacities, feedback string) models.Capacities {
	f := strings.ToLower(feedback)

	var delta float64
	switch {
	case strings.Contains(f, "easy") || strings.Contains(f, "light"):
		delta = 0.1
	case strings.Contains(f, "hard") || strings.Contains(f, "heavy") || strings.Contains(f, "brutal"):
		delta = -0.1
	default:
		return c
	}

	for _, score := range []*float64{
		&c.Strength, &c.Power, &c.MuscularEndurance,
		&c.AerobicCapacity, &c.AnaerobicCapacity, &c.GymnasticsSkill,
	} {
		*score += delta
		if *score < 1 {
			*score = 1
		}
		if *score > 10 {
			*score = 10
		}
	}
	return c
}

// ageFromBirthday computes whole years between birthday and now.
func ageFromBirthday(birthday, now time.Time) int {
	years := now.Year() - birthday.Year()
	anniversary := birthday.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
