// Package models defines core data structures for directory entries, sessions, and search results.
package models

import (
	"strings"
	"time"
)

// EntryKind distinguishes people from channels in the directory.
type EntryKind string

const (
	KindPerson  EntryKind = "person"
	KindChannel EntryKind = "channel"
)

// Provenance values record which source or stage last produced an entry.
const (
	// ProvenanceLocal marks an entry read from the local cache.
	ProvenanceLocal = "local_cache"
	// ProvenanceRemote marks an entry returned by the remote directory service.
	ProvenanceRemote = "remote"
	// ProvenanceRemoteFiltered marks a remote entry the service already
	// pre-filtered by query relevance; the merger trusts it without its own
	// textual match check.
	ProvenanceRemoteFiltered = "remote_filtered"
	// ProvenanceSharedConnection marks an entry upgraded by the secondary
	// enhancer after it was found in a shared channel membership.
	ProvenanceSharedConnection = "shared_connection"
)

// DirectoryEntry is the unified representation of a person or a channel.
// ID is the dedup key across local and remote sources: merging never creates
// two entries for the same id.
type DirectoryEntry struct {
	ID               string    `json:"id"`
	Kind             EntryKind `json:"kind"`
	Name             string    `json:"name"`
	Nickname         string    `json:"nickname,omitempty"`
	Email            string    `json:"email,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	Department       string    `json:"department,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	Provenance       string    `json:"provenance,omitempty"`
	IsPinned         bool      `json:"is_pinned,omitempty"`
	IsRecent         bool      `json:"is_recent,omitempty"`
	InteractionCount int       `json:"interaction_count,omitempty"`
	SharedChannels   []string  `json:"shared_channels,omitempty"`
	// DirectChannelID references a 1:1 channel with this entry, set by the
	// secondary enhancer when a distinct channel is discovered.
	DirectChannelID string `json:"direct_channel_id,omitempty"`
	ChannelURL      string `json:"channel_url,omitempty"`
	// MatchedField is set by the remote service when it knows which field the
	// query matched ("name", "bio", ...). A non-empty value counts as a
	// pre-filtered provenance marker during merging.
	MatchedField string    `json:"matched_field,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// MatchesQuery reports whether the lowercased query is a substring of any
// searchable field (name, nickname, email, bio, department).
func (e *DirectoryEntry) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, field := range []string{e.Name, e.Nickname, e.Email, e.Bio, e.Department} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// NameTokens returns the lowercase whitespace-separated tokens of the name.
func (e *DirectoryEntry) NameTokens() []string {
	return strings.Fields(strings.ToLower(e.Name))
}

// HasSharedChannel reports whether id is already in SharedChannels.
func (e *DirectoryEntry) HasSharedChannel(id string) bool {
	for _, c := range e.SharedChannels {
		if c == id {
			return true
		}
	}
	return false
}
