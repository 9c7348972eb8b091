// Package store persists turf-building runs and their outputs. Two
// implementations exist: SQLite for local single-county work and Postgres
// for shared deployments.
package store

import (
	"context"
	"time"

	"github.com/johnpfay/WakeVoter/internal/turf"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one execution of the turf pipeline for a county.
type Run struct {
	ID         string     `json:"id"`
	County     string     `json:"county"`
	StateFIPS  string     `json:"state_fips"`
	CountyFIPS string     `json:"county_fips"`
	Seed       int64      `json:"seed"`
	Status     RunStatus  `json:"status"`
	Summary    RunSummary `json:"summary"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RunSummary holds the headline counts for a completed run.
type RunSummary struct {
	Blocks          int `json:"blocks"`
	EligibleBlocks  int `json:"eligible_blocks"`
	Turfs           int `json:"turfs"`
	Standalone      int `json:"standalone"`
	Aggregates      int `json:"aggregates"`
	SplitAggregates int `json:"split_aggregates"`
	DiscardedBlocks int `json:"discarded_blocks"`
	Voters          int `json:"voters"`
	AssignedVoters  int `json:"assigned_voters"`
	Warnings        int `json:"warnings"`
}

// Store is the persistence interface for turf runs.
type Store interface {
	CreateRun(ctx context.Context, county, stateFIPS, countyFIPS string, seed int64) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	SaveTurfs(ctx context.Context, runID string, turfs []turf.Turf) error
	ListTurfs(ctx context.Context, runID string) ([]turf.Turf, error)

	SaveAssignments(ctx context.Context, runID string, assignments []turf.Assignment) error
	ListAssignments(ctx context.Context, runID string) ([]turf.Assignment, error)

	SaveWarnings(ctx context.Context, runID string, warnings []turf.Warning) error
	ListWarnings(ctx context.Context, runID string) ([]turf.Warning, error)

	Migrate(ctx context.Context) error
	Close() error
}
