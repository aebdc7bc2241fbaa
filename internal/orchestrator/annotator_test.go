package orchestrator

import (
	"testing"
	"time"

	"github.com/hyperjump/meibo/internal/models"
)

func TestAnnotate(t *testing.T) {
	now := time.Now()
	results := []*models.SearchResult{
		{Entry: &models.DirectoryEntry{ID: "u1", IsPinned: true, Provenance: models.ProvenanceRemote}, Score: 9},
		{Entry: &models.DirectoryEntry{ID: "u2", IsRecent: true}},
		{Entry: &models.DirectoryEntry{ID: "u3", Provenance: models.ProvenanceSharedConnection}},
		{Entry: &models.DirectoryEntry{ID: "u4", Provenance: models.ProvenanceRemoteFiltered}},
		{Entry: &models.DirectoryEntry{ID: "u5", Provenance: models.ProvenanceLocal}},
	}
	Annotate(results, "ana", true, now)

	wantTypes := []models.ResultType{
		models.ResultPinned, // pinned wins over remote provenance
		models.ResultRecent,
		models.ResultRemote,
		models.ResultRemote,
		models.ResultLocal,
	}
	for i, r := range results {
		if r.ResultType != wantTypes[i] {
			t.Errorf("results[%d].ResultType = %q, want %q", i, r.ResultType, wantTypes[i])
		}
		if r.Position != i {
			t.Errorf("results[%d].Position = %d", i, r.Position)
		}
		if r.SearchQuery != "ana" || !r.UsedRemote || !r.Timestamp.Equal(now) {
			t.Errorf("results[%d] metadata = %+v", i, r)
		}
	}
	// ranking-relevant fields untouched
	if results[0].Score != 9 {
		t.Errorf("score changed: %v", results[0].Score)
	}
}

func TestAnnotate_Empty(t *testing.T) {
	Annotate(nil, "ana", false, time.Now())
	Annotate([]*models.SearchResult{}, "", false, time.Now())
}
