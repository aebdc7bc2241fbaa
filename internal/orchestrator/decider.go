package orchestrator

import (
	"regexp"
	"strings"

	"github.com/hyperjump/meibo/internal/config"
	"github.com/hyperjump/meibo/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ShouldEscalate decides whether a remote lookup is warranted for the query
// given the local results. It is a pure function of its inputs, evaluated in
// strict priority order with short-circuiting:
//
//  1. email-like queries and role/department keywords always escalate
//  2. a pinned or recent local result suppresses escalation
//  3. too few local results escalates
//  4. no strong-scoring local result on a long enough query escalates
//  5. otherwise stay local
func ShouldEscalate(query string, local []*models.SearchResult, cfg *config.SearchConfig) bool {
	if matchesSearchPattern(query, cfg) {
		return true
	}
	for _, r := range local {
		if r.Entry != nil && (r.Entry.IsPinned || r.Entry.IsRecent) {
			return false
		}
	}
	if len(local) < cfg.MinLocalResults {
		return true
	}
	if len([]rune(query)) >= cfg.MinQueryLength && !hasStrongScore(local, cfg.StrongScore) {
		return true
	}
	return false
}

// matchesSearchPattern reports whether the query has an email-like shape or
// contains a role or department keyword.
func matchesSearchPattern(query string, cfg *config.SearchConfig) bool {
	trimmed := strings.TrimSpace(query)
	if emailPattern.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range cfg.RoleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range cfg.DepartmentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasStrongScore(local []*models.SearchResult, threshold float64) bool {
	for _, r := range local {
		if r.Score >= threshold {
			return true
		}
	}
	return false
}
