package orchestrator

import (
	"time"

	"github.com/hyperjump/meibo/internal/models"
)

// Annotate tags results with presentation-facing metadata: the derived result
// type, the query, the zero-based position, whether this session escalated,
// and a timestamp. It never touches ranking-relevant fields.
func Annotate(results []*models.SearchResult, query string, usedRemote bool, now time.Time) {
	for i, r := range results {
		r.ResultType = resultTypeFor(r.Entry)
		r.SearchQuery = query
		r.Position = i
		r.UsedRemote = usedRemote
		r.Timestamp = now
	}
}

// resultTypeFor derives the result type by priority: pinned > recent >
// remote-sourced > local-cache-sourced.
func resultTypeFor(e *models.DirectoryEntry) models.ResultType {
	switch {
	case e == nil:
		return models.ResultLocal
	case e.IsPinned:
		return models.ResultPinned
	case e.IsRecent:
		return models.ResultRecent
	case e.Provenance == models.ProvenanceRemote,
		e.Provenance == models.ProvenanceRemoteFiltered,
		e.Provenance == models.ProvenanceSharedConnection:
		return models.ResultRemote
	default:
		return models.ResultLocal
	}
}
