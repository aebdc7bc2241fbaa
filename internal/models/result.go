package models

import "time"

// ResultType is the presentation-facing classification of a search result.
// It is derived from flags on the entry, never stored authoritatively.
type ResultType string

const (
	ResultPinned ResultType = "pinned"
	ResultRecent ResultType = "recent"
	ResultRemote ResultType = "remote"
	ResultLocal  ResultType = "local"
)

// SearchResult is a directory entry plus search-scoped scoring and provenance
// metadata.
type SearchResult struct {
	Entry *DirectoryEntry `json:"entry"`
	Score float64         `json:"score"`
	// BaseRank is seeded from the entry's interaction count and used for
	// downstream ranking.
	BaseRank    int        `json:"base_rank"`
	ResultType  ResultType `json:"result_type,omitempty"`
	SearchQuery string     `json:"search_query,omitempty"`
	Position    int        `json:"position"`
	UsedRemote  bool       `json:"used_remote"`
	Timestamp   time.Time  `json:"timestamp,omitempty"`
}

// SearchResponse is the caller-facing response for a search request.
type SearchResponse struct {
	Results     []*SearchResult `json:"results"`
	Total       int             `json:"total"`
	Query       string          `json:"query"`
	UsedRemote  bool            `json:"used_remote"`
	QueryTimeMs int64           `json:"query_time_ms"`
}
