package models

import (
	"sync/atomic"
	"time"
)

// SearchSession is one logical query execution. At most one session is
// authoritative per orchestrator at any instant; starting a new session
// aborts the previous one, and results from an aborted session must never
// reach the caller.
type SearchSession struct {
	ID        string
	Query     string
	StartedAt time.Time

	aborted atomic.Bool
}

// NewSearchSession creates a session for the given token id and query.
func NewSearchSession(id, query string) *SearchSession {
	return &SearchSession{ID: id, Query: query, StartedAt: time.Now()}
}

// Abort marks the session as superseded or cancelled. Abort is cooperative:
// in-flight work is not interrupted, but its results are discarded.
func (s *SearchSession) Abort() {
	s.aborted.Store(true)
}

// Aborted reports whether the session has been aborted.
func (s *SearchSession) Aborted() bool {
	return s.aborted.Load()
}
