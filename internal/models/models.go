package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Number is a JSON number that also accepts quoted numeric strings.
// Backend responses and older persisted payloads are inconsistent about
// whether age and weight arrive as numbers or strings; Number always
// marshals back out as a plain number.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing %q as number: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Capacities are the six athlete capacity scores, each on a 1-10 scale.
type Capacities struct {
	Strength          float64 `json:"strength"`
	Power             float64 `json:"power"`
	MuscularEndurance float64 `json:"muscularEndurance"`
	AerobicCapacity   float64 `json:"aerobicCapacity"`
	AnaerobicCapacity float64 `json:"anaerobicCapacity"`
	GymnasticsSkill   float64 `json:"gymnasticsSkill"`
}

// UserProfile is the single per-device athlete profile. It is always
// overwritten whole on save; there is no partial update.
type UserProfile struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Sex        string      `json:"sex"`
	Age        Number      `json:"age"`
	Weight     Number      `json:"weight"`
	Birthday   string      `json:"birthday,omitempty"`
	Capacities *Capacities `json:"capacities,omitempty"`
}

// Workout is a durable record of one completed workout. Records are
// append-only: never mutated after creation and never deleted.
type Workout struct {
	ID           string            `json:"id"`
	Date         time.Time         `json:"date"`
	Description  string            `json:"description"`
	Weights      map[string]string `json:"weights"`
	Result       string            `json:"result"`
	Goal         string            `json:"goal,omitempty"`
	Strategy     string            `json:"strategy,omitempty"`
	UserFeedback string            `json:"userFeedback,omitempty"`
}

// WorkoutSuggestion is the parsed photo-analysis result. It is ephemeral:
// the screen consumes it and turns it into a Workout plus a result
// submission when the athlete finishes.
type WorkoutSuggestion struct {
	Workout          string            `json:"workout"`
	Goal             string            `json:"goal"`
	SuggestedWeights map[string]string `json:"suggestedWeights"`
	Strategy         string            `json:"strategy"`
	WorkoutID        string            `json:"workoutId,omitempty"`
}

// ParseWeights turns "thruster=42.5kg,pull-up=bw" style input into the
// movement-to-weight mapping a Workout stores. Malformed pairs are
// skipped; empty input yields an empty map.
func ParseWeights(s string) map[string]string {
	weights := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		name, weight, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || weight == "" {
			continue
		}
		weights[strings.TrimSpace(name)] = strings.TrimSpace(weight)
	}
	return weights
}

// SortWorkoutsByDateDesc orders workouts newest first, the display order
// for history. The stored sequence itself is insertion-ordered and not
// guaranteed sorted.
func SortWorkoutsByDateDesc(ws []Workout) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Date.After(ws[j].Date)
	})
}
