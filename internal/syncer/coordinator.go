// Package syncer orchestrates fetch-with-fallback for the two logical
// resources the app shows: the athlete profile and the paginated workout
// history. Fresh cache wins; otherwise the backend is asked through the
// session manager; for history only, a dead network falls back to the
// durable local copy, flagged offline.
package syncer

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"wodscan/internal/cache"
	"wodscan/internal/local"
	"wodscan/internal/models"
)

// DefaultPageSize matches the backend's page_size default.
const DefaultPageSize = 10

// Remote is the slice of the backend client the coordinator needs.
type Remote interface {
	Profile(ctx context.Context) (models.UserProfile, error)
	Workouts(ctx context.Context, page, pageSize int) ([]models.Workout, error)
}

// History is one observable snapshot of the workout-history resource.
type History struct {
	Workouts []models.Workout
	// Offline is set when the snapshot came from the local store because
	// the remote fetch failed.
	Offline bool
	// HasMore reports the "a full page probably means more pages"
	// heuristic. It can misreport when the last page is exactly full;
	// the next LoadMore then just returns an empty page.
	HasMore bool
}

// Coordinator holds the accumulated history list and its pagination
// cursor. One coordinator serves one screenful of state; methods are safe
// for concurrent use but the interesting guarantee is narrower: LoadMore
// refuses to start while another load is in flight, so a page is never
// appended twice.
type Coordinator struct {
	remote       Remote
	profileCache *cache.Cache[models.UserProfile]
	pageCache    *cache.Cache[[]models.Workout]
	local        *local.Store
	log          *slog.Logger
	pageSize     int

	mu       sync.Mutex
	workouts []models.Workout
	page     int
	hasMore  bool
	loading  bool
	offline  bool
}

func New(remote Remote, profileCache *cache.Cache[models.UserProfile], pageCache *cache.Cache[[]models.Workout], localStore *local.Store, pageSize int, log *slog.Logger) *Coordinator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Coordinator{
		remote:       remote,
		profileCache: profileCache,
		pageCache:    pageCache,
		local:        localStore,
		log:          log,
		pageSize:     pageSize,
	}
}

// LoadProfile returns the profile, preferring a fresh cache entry. There
// is deliberately no local fallback here: showing a stale profile as
// authoritative is worse than an explicit error, so remote failures
// propagate, and an expired session propagates for the caller to route to
// login.
func (c *Coordinator) LoadProfile(ctx context.Context) (models.UserProfile, error) {
	if profile, ok := c.profileCache.Get(ctx, ""); ok {
		return profile, nil
	}

	profile, err := c.remote.Profile(ctx)
	if err != nil {
		return models.UserProfile{}, err
	}

	if err := c.profileCache.Put(ctx, "", profile); err != nil {
		c.log.Warn("caching profile failed", "error", err)
	}
	return profile, nil
}

// Load fetches page 1, cache-first, and resets the accumulated list. When
// the remote fetch fails the durable local copy is served sorted newest
// first and the snapshot is flagged offline.
func (c *Coordinator) Load(ctx context.Context) (History, error) {
	return c.loadFirstPage(ctx, true)
}

// Refresh always goes to the network for page 1, skipping the cache read
// but still writing the cache on success. Failure falls back exactly like
// Load, with the offline flag doubling as the "showing stale data" notice.
func (c *Coordinator) Refresh(ctx context.Context) (History, error) {
	return c.loadFirstPage(ctx, false)
}

func (c *Coordinator) loadFirstPage(ctx context.Context, useCache bool) (History, error) {
	c.mu.Lock()
	if c.loading {
		defer c.mu.Unlock()
		return c.snapshotLocked(), nil
	}
	c.loading = true
	c.mu.Unlock()
	defer c.clearLoading()

	workouts, err := c.fetchPage(ctx, 1, useCache)
	if err != nil {
		fallback, localErr := c.local.Workouts(ctx)
		if localErr != nil {
			c.log.Error("history fetch failed and local fallback unavailable",
				"fetchError", err, "localError", localErr)
			return History{}, err
		}
		models.SortWorkoutsByDateDesc(fallback)
		c.log.Info("serving local history", "workouts", len(fallback), "cause", err)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.workouts = fallback
		c.page = 1
		c.hasMore = false
		c.offline = true
		return c.snapshotLocked(), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.workouts = workouts
	c.page = 1
	c.hasMore = len(workouts) == c.pageSize
	c.offline = false
	return c.snapshotLocked(), nil
}

// LoadMore appends the next page to the accumulated list. It is a no-op
// when no more pages are expected or another load is already in flight.
// On failure the accumulated list is left untouched.
func (c *Coordinator) LoadMore(ctx context.Context) (History, error) {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		defer c.mu.Unlock()
		return c.snapshotLocked(), nil
	}
	c.loading = true
	nextPage := c.page + 1
	c.mu.Unlock()
	defer c.clearLoading()

	workouts, err := c.fetchPage(ctx, nextPage, true)
	if err != nil {
		return History{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.workouts = append(c.workouts, workouts...)
	c.page = nextPage
	c.hasMore = len(workouts) == c.pageSize
	return c.snapshotLocked(), nil
}

// HasMore reports whether another page is expected.
func (c *Coordinator) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// fetchPage reads one page, consulting the cache only for the first few
// pages (deeper pages always hit the network so cache keys stay bounded).
func (c *Coordinator) fetchPage(ctx context.Context, page int, useCache bool) ([]models.Workout, error) {
	cacheable := page <= cache.MaxCachedPages
	sub := strconv.Itoa(page)

	if useCache && cacheable {
		if workouts, ok := c.pageCache.Get(ctx, sub); ok {
			return workouts, nil
		}
	}

	workouts, err := c.remote.Workouts(ctx, page, c.pageSize)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := c.pageCache.Put(ctx, sub, workouts); err != nil {
			c.log.Warn("caching workout page failed", "page", page, "error", err)
		}
	}
	return workouts, nil
}

func (c *Coordinator) clearLoading() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

func (c *Coordinator) snapshotLocked() History {
	workouts := make([]models.Workout, len(c.workouts))
	copy(workouts, c.workouts)
	return History{Workouts: workouts, Offline: c.offline, HasMore: c.hasMore}
}

// LogWorkout persists a finished workout to the durable local store. Used
// by the CLI and the MCP surface; backend submission is a separate,
// best-effort step.
func (c *Coordinator) LogWorkout(ctx context.Context, w models.Workout) error {
	return c.local.SaveWorkout(ctx, w)
}
