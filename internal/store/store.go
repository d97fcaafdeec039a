// Package store persists classification runs, their per-candidate
// outcomes and the semantic refinement cache. Two backends ship:
// SQLite for single-operator use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/semantic"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Seed   string          `json:"seed,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// CacheRow is one persisted semantic-cache entry.
type CacheRow struct {
	Seed string
	Tail string
	semantic.Entry
}

// Store defines the persistence interface for the classification
// pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, seed, language, country string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats *model.BatchStats) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outcomes
	InsertOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error
	ListOutcomes(ctx context.Context, runID string) ([]model.Outcome, error)

	// Semantic cache. Entries have no TTL; ClearSemanticCache is the
	// only way they leave.
	GetSemanticCache(ctx context.Context, seed, tail string) (*CacheRow, error)
	UpsertSemanticCache(ctx context.Context, rows []CacheRow) error
	ClearSemanticCache(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
