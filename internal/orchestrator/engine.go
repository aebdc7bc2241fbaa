package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/config"
	"github.com/hyperjump/meibo/internal/directory"
	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/internal/remote"
)

// Orchestrator answers directory queries by combining the local cache with
// the remote directory service. Collaborators are injected; the orchestrator
// holds no ambient state beyond the single current session.
//
// No stage failure propagates to the caller: a broken local store degrades to
// zero local results, a broken remote stage degrades to local-only output,
// and a superseded session resolves to an empty result with an informational
// log entry.
type Orchestrator struct {
	store    directory.Store
	remote   remote.DirectoryService
	sessions *Controller
	cfg      atomic.Pointer[config.SearchConfig]
	logger   *zap.Logger
}

// New creates an orchestrator over the given local store and remote service.
func New(store directory.Store, svc remote.DirectoryService, cfg *config.SearchConfig, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		store:    store,
		remote:   svc,
		sessions: NewController(svc, logger),
		logger:   logger,
	}
	o.cfg.Store(cfg)
	return o
}

// Config returns the current heuristic configuration.
func (o *Orchestrator) Config() *config.SearchConfig {
	return o.cfg.Load()
}

// UpdateConfig swaps the heuristic configuration. Safe to call while searches
// are running; in-flight searches keep the snapshot they started with.
func (o *Orchestrator) UpdateConfig(cfg *config.SearchConfig) {
	o.cfg.Store(cfg)
}

// Search runs the full pipeline for query. sessionID tags the session (empty
// generates a token); forceEscalate bypasses the escalation decider. The
// returned slice is empty when the session was cancelled or superseded.
func (o *Orchestrator) Search(ctx context.Context, query, sessionID string, forceEscalate bool) []*models.SearchResult {
	cfg := o.Config()
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return o.importantFastPath(ctx)
	}

	sess := o.sessions.Start(trimmed, sessionID)
	o.logger.Debug("search session started",
		zap.String("session_id", sess.ID), zap.String("query", trimmed),
		zap.Bool("force_escalate", forceEscalate))

	local := o.searchLocal(ctx, trimmed, cfg)
	if !o.sessions.ShouldContinue(sess) {
		return o.cancelled(sess)
	}

	escalate := forceEscalate || ShouldEscalate(trimmed, local, cfg)
	results := local
	if escalate {
		var ok bool
		results, ok = o.escalateStage(ctx, sess, trimmed, local, cfg)
		if !ok {
			return o.cancelled(sess)
		}
	}

	if !o.sessions.ShouldContinue(sess) {
		return o.cancelled(sess)
	}
	Annotate(results, trimmed, escalate, time.Now())
	return results
}

// SearchForMore is the explicit "search for more" action: a search with
// escalation forced, bypassing the decider.
func (o *Orchestrator) SearchForMore(ctx context.Context, query string) []*models.SearchResult {
	return o.Search(ctx, query, "", true)
}

// Cancel cancels the current session without starting a new one.
func (o *Orchestrator) Cancel(reason string) {
	o.sessions.Cancel(reason)
}

// importantFastPath handles the empty query: return the pinned and recent
// entries from the local store, annotated but otherwise untouched. No
// session, no escalation, no merge.
func (o *Orchestrator) importantFastPath(ctx context.Context) []*models.SearchResult {
	entries, err := o.store.ImportantChats(ctx)
	if err != nil {
		o.logger.Warn("important chats lookup failed", zap.Error(err))
		return []*models.SearchResult{}
	}
	results := make([]*models.SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, &models.SearchResult{Entry: e, BaseRank: e.InteractionCount})
	}
	Annotate(results, "", false, time.Now())
	return results
}

// searchLocal queries the local store and normalizes rows into the canonical
// result shape. A local-store error is not fatal: it is logged and treated as
// zero local results.
func (o *Orchestrator) searchLocal(ctx context.Context, query string, cfg *config.SearchConfig) []*models.SearchResult {
	hits, err := o.store.SearchLocally(ctx, query, cfg.LocalLimit)
	if err != nil {
		o.logger.Warn("local search failed, continuing with no local results",
			zap.String("query", query), zap.Error(err))
		return nil
	}
	return resultsFromHits(hits)
}

// resultsFromHits maps local store hits to search results. A missing score
// stays 0 and the base rank is seeded from the interaction count.
func resultsFromHits(hits []*directory.Hit) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Entry == nil {
			continue
		}
		if h.Entry.Provenance == "" {
			h.Entry.Provenance = models.ProvenanceLocal
		}
		results = append(results, &models.SearchResult{
			Entry:    h.Entry,
			Score:    h.Score,
			BaseRank: h.Entry.InteractionCount,
		})
	}
	return results
}

// escalateStage runs the remote lookup, writes results through to the local
// store, re-reads the store for a consistent view, merges, and enhances. The
// second return is false when the session went stale at a checkpoint. A
// remote failure degrades to the local-only results.
func (o *Orchestrator) escalateStage(ctx context.Context, sess *models.SearchSession, query string, local []*models.SearchResult, cfg *config.SearchConfig) ([]*models.SearchResult, bool) {
	// checkpoint before dispatching the remote call
	if !o.sessions.ShouldContinue(sess) {
		return nil, false
	}
	res, err := o.remote.ComprehensiveSearch(ctx, query, sess.ID)
	if err != nil {
		o.logger.Warn("remote search failed, degrading to local results",
			zap.String("session_id", sess.ID), zap.Error(err))
		return local, true
	}
	// checkpoint after the round trip: a response for a stale session is
	// discarded, never merged
	if !o.sessions.ShouldContinue(sess) {
		return nil, false
	}

	remoteEntries := make([]*models.DirectoryEntry, 0, len(res.People)+len(res.Channels))
	remoteEntries = append(remoteEntries, res.People...)
	remoteEntries = append(remoteEntries, res.Channels...)
	o.logger.Debug("remote search resolved",
		zap.String("session_id", sess.ID),
		zap.Int("people", len(res.People)),
		zap.Int("channels", len(res.Channels)),
		zap.Bool("pre_filtered", res.Stats.Filtered))

	if err := o.store.AddItemsFromSearch(ctx, query, remoteEntries); err != nil {
		o.logger.Warn("write-through to local store failed",
			zap.String("session_id", sess.ID), zap.Error(err))
	}

	// Re-read the store so the merge sees the freshly indexed view rather
	// than the pre-escalation snapshot.
	refreshed := local
	if hits, err := o.store.SearchLocally(ctx, query, cfg.LocalLimit); err != nil {
		o.logger.Warn("local re-read after write-through failed, merging against snapshot",
			zap.String("session_id", sess.ID), zap.Error(err))
	} else {
		refreshed = resultsFromHits(hits)
	}

	merged := Merge(query, refreshed, remoteEntries, res.Stats.Filtered)

	if candidates := BioMatchCandidates(query, remoteEntries); len(candidates) > 0 {
		o.logger.Debug("bio-match candidates found",
			zap.String("session_id", sess.ID), zap.Int("count", len(candidates)))
		o.enhance(ctx, sess, query, merged, candidates, cfg)
	}
	return merged, true
}

// cancelled resolves a superseded or cancelled session: an empty result and
// an informational log entry, never an error.
func (o *Orchestrator) cancelled(sess *models.SearchSession) []*models.SearchResult {
	o.logger.Info("search cancelled before completion",
		zap.String("session_id", sess.ID), zap.String("query", sess.Query))
	return []*models.SearchResult{}
}
