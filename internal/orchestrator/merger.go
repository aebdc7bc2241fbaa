package orchestrator

import (
	"github.com/hyperjump/meibo/internal/models"
)

// Merge fuses local and remote result sets by entry id. Local results seed the
// map and keep their order; remote entries are appended in response order.
//
// A remote entry whose id is not yet present is included only when it
// textually matches the query, or when it carries a pre-filtered provenance
// marker (the response-level filtered flag or a per-entry match-location
// marker); otherwise it is dropped as noise. A remote entry whose id is
// already present only backfills empty optional fields; non-empty local
// values always win. Merging the same inputs twice yields the same output.
func Merge(query string, local []*models.SearchResult, remoteEntries []*models.DirectoryEntry, preFiltered bool) []*models.SearchResult {
	byID := make(map[string]*models.SearchResult, len(local))
	merged := make([]*models.SearchResult, 0, len(local)+len(remoteEntries))
	for _, r := range local {
		if r.Entry == nil {
			continue
		}
		if _, exists := byID[r.Entry.ID]; exists {
			continue
		}
		byID[r.Entry.ID] = r
		merged = append(merged, r)
	}

	for _, e := range remoteEntries {
		if existing, ok := byID[e.ID]; ok {
			backfillEntry(existing.Entry, e)
			continue
		}
		if !preFiltered && e.MatchedField == "" && !e.MatchesQuery(query) {
			continue
		}
		if e.Provenance == "" {
			e.Provenance = models.ProvenanceRemote
		}
		r := &models.SearchResult{Entry: e, BaseRank: e.InteractionCount}
		byID[e.ID] = r
		merged = append(merged, r)
	}
	return merged
}

// backfillEntry fills empty optional fields of dst from src. sharedChannels
// may only be upgraded: missing channel ids are added and the distinct-channel
// pointer is set when unset, but the list is never cleared or replaced.
func backfillEntry(dst, src *models.DirectoryEntry) {
	if dst == nil || src == nil {
		return
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Bio == "" {
		dst.Bio = src.Bio
	}
	if dst.Department == "" {
		dst.Department = src.Department
	}
	if dst.Nickname == "" {
		dst.Nickname = src.Nickname
	}
	if dst.AvatarURL == "" {
		dst.AvatarURL = src.AvatarURL
	}
	for _, c := range src.SharedChannels {
		if !dst.HasSharedChannel(c) {
			dst.SharedChannels = append(dst.SharedChannels, c)
		}
	}
	if dst.DirectChannelID == "" {
		dst.DirectChannelID = src.DirectChannelID
	}
}
