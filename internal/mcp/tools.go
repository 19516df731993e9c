package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"wodscan/internal/models"
)

// --- Tool definitions ---

var toolGetProfile = mcp.NewTool("get_profile",
	mcp.WithDescription("Get the athlete's profile: name, sex, age, body weight, and the six capacity scores (1-10 scale)."),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("Get the athlete's workout history, newest first. Includes description, prescribed weights, goal, strategy, result, and feedback."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts to return (default 20)")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a finished workout in the athlete's local history."),
	mcp.WithString("description", mcp.Required(), mcp.Description("One-line workout description")),
	mcp.WithString("result", mcp.Required(), mcp.Description("The athlete's result (time, rounds, or reps)")),
	mcp.WithString("weights", mcp.Description("Weights used, as movement=weight pairs separated by commas")),
	mcp.WithString("goal", mcp.Description("Performance target, if one was set")),
	mcp.WithString("strategy", mcp.Description("Pacing plan, if one was set")),
	mcp.WithString("feedback", mcp.Description("How the workout felt")),
)

// --- Tool handlers ---

func (h *handlers) getProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := h.ds.LoadProfile(ctx)
	if err != nil {
		h.log.Error("mcp get_profile", "error", err)
		return mcp.NewToolResultError("profile unavailable: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(profile)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 20))
	if limit < 1 {
		limit = 20
	}

	history, err := h.ds.Load(ctx)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("history unavailable: " + err.Error()), nil
	}

	workouts := history.Workouts
	if len(workouts) > limit {
		workouts = workouts[:limit]
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"workouts": workouts,
		"offline":  history.Offline,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("description parameter is required"), nil
	}
	resultStr, err := req.RequireString("result")
	if err != nil {
		return mcp.NewToolResultError("result parameter is required"), nil
	}

	workout := models.Workout{
		ID:           uuid.NewString(),
		Date:         time.Now().UTC(),
		Description:  description,
		Weights:      models.ParseWeights(req.GetString("weights", "")),
		Result:       resultStr,
		Goal:         req.GetString("goal", ""),
		Strategy:     req.GetString("strategy", ""),
		UserFeedback: req.GetString("feedback", ""),
	}

	if err := h.ds.LogWorkout(ctx, workout); err != nil {
		h.log.Error("mcp log_workout", "error", err)
		return mcp.NewToolResultError("saving workout failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workout)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
