package models

// ChannelMembershipRecord is a transient record produced while processing a
// remote channel-membership response. It is used to detect shared connections
// and to surface a direct (1:1) channel reference for fast navigation.
type ChannelMembershipRecord struct {
	ChannelID   string `json:"channel_id"`
	Name        string `json:"name"`
	IsDistinct  bool   `json:"is_distinct"`
	MemberCount int    `json:"member_count"`
}

// BioMatchCandidate marks a remote result whose query match occurred in free
// bio text rather than in any token of the name. Candidates are fed to the
// secondary enhancer for follow-up membership lookups.
type BioMatchCandidate struct {
	EntryID      string `json:"entry_id"`
	Name         string `json:"name"`
	MatchedQuery string `json:"matched_query"`
}
