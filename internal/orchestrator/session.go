// Package orchestrator implements the hierarchical directory search pipeline:
// local cache lookup, escalation to the remote directory, identity-keyed
// merging, and secondary shared-connection enhancement, under a single
// authoritative search session.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/internal/remote"
)

const cancelNotifyTimeout = 5 * time.Second

// Controller owns the single active search session. Starting a session aborts
// the previous one before activating the new one; long-running stages consult
// ShouldContinue before and after each round trip and discard results when the
// session has gone stale. The current session is written only by Start and
// Cancel and read everywhere else.
type Controller struct {
	mu      sync.Mutex
	current *models.SearchSession
	remote  remote.DirectoryService
	logger  *zap.Logger
}

// NewController creates a controller. svc is notified (best effort) when a
// session with in-flight remote requests is superseded; it may be nil.
func NewController(svc remote.DirectoryService, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{remote: svc, logger: logger}
}

// Start supersedes any active session and activates a new one for query. When
// id is empty a fresh token id is generated.
func (c *Controller) Start(query, id string) *models.SearchSession {
	if id == "" {
		id = uuid.NewString()
	}
	sess := models.NewSearchSession(id, query)

	c.mu.Lock()
	prev := c.current
	c.current = sess
	c.mu.Unlock()

	if prev != nil && !prev.Aborted() {
		c.abortAndNotify(prev, "superseded")
	}
	return sess
}

// ShouldContinue reports whether sess is still the active session and has not
// been aborted. Cancellation is cooperative: a false return means the caller
// must discard its results, not that in-flight work was interrupted.
func (c *Controller) ShouldContinue(sess *models.SearchSession) bool {
	if sess == nil || sess.Aborted() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == sess
}

// Cancel aborts the current session without starting a new one.
func (c *Controller) Cancel(reason string) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()

	if sess == nil || sess.Aborted() {
		return
	}
	c.abortAndNotify(sess, reason)
}

// abortAndNotify marks the session aborted and asks the remote transport to
// drop any requests tagged with its id. The notification is fire-and-forget:
// the stale session must not delay the new one.
func (c *Controller) abortAndNotify(sess *models.SearchSession, reason string) {
	sess.Abort()
	c.logger.Info("search session aborted",
		zap.String("session_id", sess.ID),
		zap.String("query", sess.Query),
		zap.String("reason", reason),
	)
	if c.remote == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cancelNotifyTimeout)
		defer cancel()
		if err := c.remote.CancelRequestGroup(ctx, sess.ID, reason); err != nil {
			c.logger.Debug("remote cancel notification failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	}()
}
