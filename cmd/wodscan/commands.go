package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"wodscan/internal/mcp"
	"wodscan/internal/models"
)

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "display name")
	sex := fs.String("sex", "", "male or female")
	birthday := fs.String("birthday", "", "birthday (YYYY-MM-DD)")
	weight := fs.Float64("weight", 0, "body weight in kg")
	fs.Parse(args)

	if *email == "" || *password == "" || *name == "" {
		return fmt.Errorf("signup: -email, -password, and -name are required")
	}

	_, err := a.client.Signup(ctx, models.SignupRequest{
		Email:    *email,
		Password: *password,
		Name:     *name,
		Sex:      *sex,
		Birthday: *birthday,
		Weight:   *weight,
	})
	if err != nil {
		return err
	}

	if a.session.Active(ctx) {
		fmt.Println("Account created, logged in.")
	} else {
		fmt.Println("Account created. Run: wodscan login")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		return fmt.Errorf("login: -email and -password are required")
	}

	_, err := a.client.Login(ctx, models.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if !a.session.Active(ctx) {
		return fmt.Errorf("login: backend accepted credentials but returned no token")
	}

	fmt.Println("Logged in.")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out, local user data cleared.")
	return nil
}

func (a *app) status(ctx context.Context) error {
	if a.session.Active(ctx) {
		fmt.Println("Logged in.")
	} else {
		fmt.Println("Not logged in.")
	}
	return nil
}

func (a *app) profile(ctx context.Context) error {
	profile, err := a.coord.LoadProfile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
	fmt.Printf("  Sex: %s  Age: %.0f  Weight: %.1f kg\n", profile.Sex, profile.Age, profile.Weight)
	if profile.Capacities != nil {
		c := profile.Capacities
		fmt.Println("  Capacities (1-10):")
		fmt.Printf("    Strength: %.1f  Power: %.1f  Muscular endurance: %.1f\n",
			c.Strength, c.Power, c.MuscularEndurance)
		fmt.Printf("    Aerobic: %.1f  Anaerobic: %.1f  Gymnastics: %.1f\n",
			c.AerobicCapacity, c.AnaerobicCapacity, c.GymnasticsSkill)
	}
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "bypass the cache and refetch")
	all := fs.Bool("all", false, "keep loading pages until the end")
	fs.Parse(args)

	load := a.coord.Load
	if *refresh {
		load = a.coord.Refresh
	}
	history, err := load(ctx)
	if err != nil {
		return err
	}

	if *all {
		for a.coord.HasMore() {
			history, err = a.coord.LoadMore(ctx)
			if err != nil {
				return err
			}
		}
	}

	if history.Offline {
		fmt.Println("(offline — showing locally saved workouts)")
	}
	if len(history.Workouts) == 0 {
		fmt.Println("No workouts yet.")
		return nil
	}
	for _, w := range history.Workouts {
		fmt.Printf("%s  %s\n", w.Date.Local().Format("2006-01-02"), w.Description)
		if w.Result != "" {
			fmt.Printf("    Result: %s\n", w.Result)
		}
		if w.Goal != "" {
			fmt.Printf("    Goal:   %s\n", w.Goal)
		}
	}
	if history.HasMore {
		fmt.Println("(more pages available — use -all)")
	}
	return nil
}

func (a *app) scan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	image := fs.String("image", "", "path to a JPEG of the posted workout")
	fs.Parse(args)

	if *image == "" {
		return fmt.Errorf("scan: -image is required")
	}
	jpeg, err := os.ReadFile(*image)
	if err != nil {
		return fmt.Errorf("scan: reading image: %w", err)
	}

	suggestion, err := a.client.SuggestScale(ctx, jpeg)
	if err != nil {
		return fmt.Errorf("analysis failed (try another photo): %w", err)
	}

	fmt.Printf("Workout:  %s\n", suggestion.Workout)
	fmt.Printf("Goal:     %s\n", suggestion.Goal)
	fmt.Printf("Strategy: %s\n", suggestion.Strategy)
	if len(suggestion.SuggestedWeights) > 0 {
		fmt.Println("Weights:")
		for movement, weight := range suggestion.SuggestedWeights {
			fmt.Printf("  %-20s %s\n", movement, weight)
		}
	}
	if suggestion.WorkoutID != "" {
		fmt.Printf("\nWhen done: wodscan log -workout-id %s -result ...\n", suggestion.WorkoutID)
	}
	return nil
}

func (a *app) logWorkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	description := fs.String("description", "", "one-line workout description")
	result := fs.String("result", "", "your result (time, rounds, or reps)")
	weights := fs.String("weights", "", "weights used, movement=weight pairs separated by commas")
	goal := fs.String("goal", "", "the goal that was set")
	strategy := fs.String("strategy", "", "the pacing strategy used")
	feedback := fs.String("feedback", "", "how it felt")
	workoutID := fs.String("workout-id", "", "workout id from a scan, for backend submission")
	fs.Parse(args)

	if *description == "" || *result == "" {
		return fmt.Errorf("log: -description and -result are required")
	}

	workout := models.Workout{
		ID:           uuid.NewString(),
		Date:         time.Now().UTC(),
		Description:  *description,
		Weights:      models.ParseWeights(*weights),
		Result:       *result,
		Goal:         *goal,
		Strategy:     *strategy,
		UserFeedback: *feedback,
	}
	if err := a.coord.LogWorkout(ctx, workout); err != nil {
		return err
	}
	fmt.Println("Workout saved.")

	// Backend submission is best-effort: the workout is already durable
	// locally, so a failure here is only worth a warning.
	if *workoutID != "" {
		if err := a.client.SubmitResult(ctx, *workoutID, *result, *feedback); err != nil {
			a.log.Warn("result submission failed", "workoutID", *workoutID, "error", err)
			fmt.Println("(could not submit result to backend — saved locally)")
		} else {
			fmt.Println("Result submitted.")
		}
	}
	return nil
}

func (a *app) serveMCP(ctx context.Context) error {
	srv := mcp.New(a.coord, Version, a.log)
	return mcpserver.ServeStdio(srv)
}
