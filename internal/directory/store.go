// Package directory defines the local directory cache consumed by the search
// orchestrator, backed by SQLite for persistence and Bleve for scored text
// search.
package directory

import (
	"context"

	"github.com/hyperjump/meibo/internal/models"
)

// Hit is a single local search hit with its index score. Score is 0 when the
// hit came from the SQL fallback path (no text index configured).
type Hit struct {
	Entry *models.DirectoryEntry
	Score float64
}

// Store defines the local directory cache operations.
type Store interface {
	// SearchLocally runs a bounded search over the cached entries.
	SearchLocally(ctx context.Context, query string, limit int) ([]*Hit, error)
	// HasGoodCoverage reports whether the cache already covers the query well
	// enough that remote escalation is unlikely to add anything.
	HasGoodCoverage(ctx context.Context, query string) (bool, error)
	// AddItemsFromSearch writes entries returned by a remote search through to
	// the cache. Existing rows are backfilled, never clobbered: non-empty
	// optional fields keep their local value.
	AddItemsFromSearch(ctx context.Context, query string, items []*models.DirectoryEntry) error
	// ImportantChats returns the pinned and recently-interacted entries.
	ImportantChats(ctx context.Context) ([]*models.DirectoryEntry, error)
	// Chat returns an entry by id, or nil when absent.
	Chat(ctx context.Context, id string) (*models.DirectoryEntry, error)
	// ChatByChannelURL returns an entry by its channel URL, or nil when absent.
	ChatByChannelURL(ctx context.Context, url string) (*models.DirectoryEntry, error)
	// RecordSearchMatch records that an entry matched a query, with the source
	// stage and its confidence.
	RecordSearchMatch(ctx context.Context, entryID, query, source string, confidence float64) error
	// CountEntries returns the total number of cached entries.
	CountEntries(ctx context.Context) (int64, error)

	Close() error
}
