package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wodscan/internal/models"
)

// AthleteContext is the profile slice the analyzer personalizes against.
type AthleteContext struct {
	Sex        string            `json:"sex"`
	Age        int               `json:"age"`
	BodyWeight float64           `json:"bodyWeight"`
	Capacities models.Capacities `json:"capacities"`
}

// Analyzer turns a photo of a posted workout into a structured suggestion
// with personalized weights, goal, and pacing strategy.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte, athlete AthleteContext) (models.WorkoutSuggestion, error)
}

// HTTPAnalyzer calls the upstream AI vision service. The prompt lives on
// that side; this server only moves the image and the athlete context.
type HTTPAnalyzer struct {
	upstreamURL string
	apiKey      string
	httpClient  *http.Client
}

var _ Analyzer = (*HTTPAnalyzer)(nil)

func NewHTTPAnalyzer(upstreamURL, apiKey string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		upstreamURL: upstreamURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, jpeg []byte, athlete AthleteContext) (models.WorkoutSuggestion, error) {
	var suggestion models.WorkoutSuggestion

	body, err := json.Marshal(map[string]any{
		"image":   base64.StdEncoding.EncodeToString(jpeg),
		"athlete": athlete,
	})
	if err != nil {
		return suggestion, fmt.Errorf("analyzer: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.upstreamURL, bytes.NewReader(body))
	if err != nil {
		return suggestion, fmt.Errorf("analyzer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return suggestion, fmt.Errorf("analyzer: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return suggestion, fmt.Errorf("analyzer: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return suggestion, fmt.Errorf("analyzer: upstream returned %d: %s", resp.StatusCode, raw)
	}

	var parsed struct {
		ParsedWorkout      string            `json:"parsedWorkout"`
		RecommendedWeights map[string]string `json:"recommendedWeights"`
		Goal               string            `json:"goal"`
		Strategy           string            `json:"strategy"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return suggestion, fmt.Errorf("analyzer: decode response: %w", err)
	}

	return models.WorkoutSuggestion{
		Workout:          parsed.ParsedWorkout,
		SuggestedWeights: parsed.RecommendedWeights,
		Goal:             parsed.Goal,
		Strategy:         parsed.Strategy,
	}, nil
}
