// Package store persists consolidated prediction records keyed by
// (date, matchup) and maintains pre-merge snapshots.
package store

import (
	"context"
	"time"

	"github.com/pennant-analytics/consensus-cli/internal/model"
)

// PutResult labels the outcome of a single put.
type PutResult string

const (
	PutAdded             PutResult = "added"
	PutUpgraded          PutResult = "upgraded"
	PutUnchanged         PutResult = "unchanged"
	PutRejectedLowerTier PutResult = "rejected_lower_tier"
	PutDowngraded        PutResult = "downgraded"
)

// PutOptions controls merge behavior for a put.
type PutOptions struct {
	// AllowDowngrade permits replacing a record with a lower-tier one.
	// Reserved for explicitly-invoked administrative correction; automated
	// reconciliation never sets it.
	AllowDowngrade bool
}

// SnapshotInfo describes one immutable pre-merge copy of the store.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Label       string    `json:"label,omitempty"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Metadata is the store's sidecar bookkeeping.
type Metadata struct {
	RecordCount    int        `json:"record_count"`
	DateCount      int        `json:"date_count"`
	LastMergeAt    *time.Time `json:"last_merge_at,omitempty"`
	LastSnapshotID string     `json:"last_snapshot_id,omitempty"`
}

// Store is the persistence contract for the reconciliation pipeline.
// Put is the sole mutation path and the single authority for duplicate
// prevention and tier precedence.
type Store interface {
	// Get returns the record for (date, matchup), or nil when absent.
	Get(ctx context.Context, date, matchup string) (*model.Record, error)

	// Put merges a record into the store. An existing higher-tier record is
	// preserved unless opts.AllowDowngrade is set; an existing lower-tier
	// record is merged field-by-field with the incoming winner.
	Put(ctx context.Context, rec model.Record, opts PutOptions) (PutResult, error)

	// ListDate returns all surviving records for a date.
	ListDate(ctx context.Context, date string) ([]model.Record, error)

	// Dates returns every date holding at least one record.
	Dates(ctx context.Context) ([]string, error)

	// Snapshot takes a full, timestamped copy of every record.
	Snapshot(ctx context.Context, label string) (*SnapshotInfo, error)

	// ListSnapshots returns snapshot descriptors, newest first.
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)

	// Metadata returns the sidecar counters.
	Metadata(ctx context.Context) (*Metadata, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// resolvePut computes the merge decision for an incoming record against the
// existing one. Shared by both backends so precedence semantics cannot
// drift between drivers. The returned record is only meaningful when the
// result mutates the store.
func resolvePut(existing *model.Record, incoming model.Record, opts PutOptions) (model.Record, PutResult) {
	if existing == nil {
		incoming.Version = 1
		return incoming, PutAdded
	}

	if incoming.Tier.Rank() < existing.Tier.Rank() {
		if !opts.AllowDowngrade {
			return *existing, PutRejectedLowerTier
		}
		incoming.Version = existing.Version + 1
		return incoming, PutDowngraded
	}

	merged := model.MergeRecords(incoming, *existing)
	if merged.EquivalentTo(existing) {
		return *existing, PutUnchanged
	}
	merged.Version = existing.Version + 1
	return merged, PutUpgraded
}
