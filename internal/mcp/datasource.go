package mcp

import (
	"context"

	"wodscan/internal/models"
	"wodscan/internal/syncer"
)

// DataSource abstracts the client data layer for MCP tools. The sync
// coordinator satisfies it, which means tools keep working offline: a dead
// network serves the durable local copy flagged offline.
type DataSource interface {
	LoadProfile(ctx context.Context) (models.UserProfile, error)
	Load(ctx context.Context) (syncer.History, error)
	LogWorkout(ctx context.Context, w models.Workout) error
}

// Compile-time check: *syncer.Coordinator satisfies DataSource.
var _ DataSource = (*syncer.Coordinator)(nil)
