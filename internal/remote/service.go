// Package remote defines the remote directory service consumed by the search
// orchestrator, and an HTTP client implementation.
package remote

import (
	"context"

	"github.com/hyperjump/meibo/internal/models"
)

// SearchStats summarizes a comprehensive search response.
type SearchStats struct {
	TotalPeople   int  `json:"total_people"`
	TotalChannels int  `json:"total_channels"`
	// Filtered is set when the service already filtered the collections by
	// query relevance; the merger then includes unmatched items instead of
	// dropping them as noise.
	Filtered bool  `json:"filtered"`
	TookMs   int64 `json:"took_ms"`
}

// ComprehensiveResult is the categorized result of a comprehensive search.
type ComprehensiveResult struct {
	People   []*models.DirectoryEntry `json:"people"`
	Channels []*models.DirectoryEntry `json:"channels"`
	Stats    SearchStats              `json:"stats"`
}

// Member is a channel member reference in a membership response.
type Member struct {
	UserID string `json:"user_id"`
}

// MembershipChannel is one channel in a membership-by-term response.
type MembershipChannel struct {
	ChannelID   string   `json:"channel_id"`
	Name        string   `json:"name"`
	IsDistinct  bool     `json:"is_distinct"`
	MemberCount int      `json:"member_count"`
	Members     []Member `json:"members"`
}

// MembershipResult is the response of a channel-membership-by-term lookup.
type MembershipResult struct {
	Channels []*MembershipChannel `json:"channels"`
}

// DirectoryService defines the remote directory operations. Timeouts and
// retries are the transport's concern; the orchestrator treats any error as a
// degraded (local-only) outcome.
type DirectoryService interface {
	// ComprehensiveSearch runs the rich remote query. Requests are tagged with
	// the session id so a superseded session's in-flight work can be
	// best-effort cancelled.
	ComprehensiveSearch(ctx context.Context, query, sessionID string) (*ComprehensiveResult, error)
	// GetChannelMembers looks up channels whose name matches term, with their
	// member lists.
	GetChannelMembers(ctx context.Context, term string) (*MembershipResult, error)
	// CancelRequestGroup asks the service to cancel requests tagged with the
	// given session id. Best effort.
	CancelRequestGroup(ctx context.Context, sessionID, reason string) error
}
