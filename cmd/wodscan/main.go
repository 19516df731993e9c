package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"wodscan/internal/api"
	"wodscan/internal/cache"
	"wodscan/internal/kv"
	"wodscan/internal/local"
	"wodscan/internal/models"
	"wodscan/internal/session"
	"wodscan/internal/syncer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usage = `Usage: wodscan [-server URL] [-data-dir DIR] <command> [args]

Commands:
  signup     create an account (-email -password -name -sex -birthday -weight)
  login      log in (-email -password)
  logout     log out and clear all local user data
  status     show whether a session is active
  profile    show the athlete profile
  history    show workout history (-refresh, -all)
  scan       analyze a workout photo (-image FILE)
  log        record a finished workout (-description -result [-weights -goal -strategy -feedback -workout-id])
  mcp        serve athlete data to an MCP client over stdio
`

func main() {
	serverURL := flag.String("server", "https://yorx-backend.onrender.com", "WODScan backend URL")
	dataDir := flag.String("data-dir", "", "data directory (default ~/.wodscan)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("wodscan", Version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dir := *dataDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot resolve home directory: %v\n", err)
			os.Exit(1)
		}
		dir = filepath.Join(homeDir, ".wodscan")
	}

	store, err := kv.OpenSQLite(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening local store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sess := session.NewManager(store, log)
	profileCache := cache.New[models.UserProfile](store, kv.KeyProfileCache, cache.ProfileTTL)
	pageCache := cache.New[[]models.Workout](store, kv.KeyWorkoutCachePage, cache.WorkoutPageTTL)
	localStore := local.NewStore(store, log)
	client := api.NewClient(strings.TrimRight(*serverURL, "/"), sess, profileCache, log)
	coord := syncer.New(client, profileCache, pageCache, localStore, syncer.DefaultPageSize, log)

	app := &app{
		session: sess,
		client:  client,
		coord:   coord,
		log:     log,
	}

	ctx := context.Background()
	if err := app.run(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrAuthExpired) {
			fmt.Fprintln(os.Stderr, "Error: not logged in. Run: wodscan login -email ... -password ...")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type app struct {
	session *session.Manager
	client  *api.Client
	coord   *syncer.Coordinator
	log     *slog.Logger
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "status":
		return a.status(ctx)
	case "profile":
		return a.profile(ctx)
	case "history":
		return a.history(ctx, args)
	case "scan":
		return a.scan(ctx, args)
	case "log":
		return a.logWorkout(ctx, args)
	case "mcp":
		return a.serveMCP(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
