package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/config"
	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/internal/remote"
)

// BioMatchCandidates classifies remote results by where the query matched.
// A bio match is one where the query substring appears in the bio text but in
// no token of the name. Known limitation: substring containment can
// misclassify partial-name matches inside longer words (a query "ann" hits
// the bio word "annual" the same way it hits a name), which is accepted here
// rather than corrected.
func BioMatchCandidates(query string, entries []*models.DirectoryEntry) []*models.BioMatchCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var candidates []*models.BioMatchCandidate
	for _, e := range entries {
		if e.Bio == "" || !strings.Contains(strings.ToLower(e.Bio), q) {
			continue
		}
		if nameTokenContains(e, q) {
			continue
		}
		candidates = append(candidates, &models.BioMatchCandidate{
			EntryID:      e.ID,
			Name:         e.Name,
			MatchedQuery: query,
		})
	}
	return candidates
}

func nameTokenContains(e *models.DirectoryEntry, q string) bool {
	for _, tok := range e.NameTokens() {
		if strings.Contains(tok, q) {
			return true
		}
	}
	return false
}

// nameFragments derives up to cfg.MaxFragments searchable fragments from a
// display name: individual tokens at least cfg.MinFragmentLength long, then
// the full name.
func nameFragments(name string, cfg *config.SearchConfig) []string {
	full := strings.TrimSpace(strings.ToLower(name))
	var fragments []string
	for _, tok := range strings.Fields(full) {
		if len([]rune(tok)) >= cfg.MinFragmentLength && tok != full {
			fragments = append(fragments, tok)
		}
	}
	if full != "" {
		fragments = append(fragments, full)
	}
	if len(fragments) > cfg.MaxFragments {
		fragments = fragments[:cfg.MaxFragments]
	}
	return fragments
}

// enhance upgrades bio-match candidates to shared connections via sequential
// channel-membership lookups. Lookups run one at a time with a fixed delay
// between attempts to bound load on the remote service; the first fragment
// that yields any channels settles the candidate. A failed lookup for one
// candidate never aborts the remaining candidates.
func (o *Orchestrator) enhance(ctx context.Context, sess *models.SearchSession, query string, results []*models.SearchResult, candidates []*models.BioMatchCandidate, cfg *config.SearchConfig) {
	if len(candidates) == 0 {
		return
	}
	byID := make(map[string]*models.SearchResult, len(results))
	for _, r := range results {
		if r.Entry != nil {
			byID[r.Entry.ID] = r
		}
	}

	delay := time.Duration(cfg.EnhanceDelayMs) * time.Millisecond
	for _, cand := range candidates {
		if !o.sessions.ShouldContinue(sess) {
			return
		}
		target, ok := byID[cand.EntryID]
		if !ok {
			continue
		}
		records := o.lookupMembership(ctx, sess, cand, cfg, delay)
		if len(records) == 0 {
			continue
		}
		o.applySharedConnection(ctx, query, target.Entry, records, cfg)
	}
}

// lookupMembership tries each name fragment in turn and returns the
// membership records of channels that actually contain the candidate, from
// the first fragment whose response has any channels.
func (o *Orchestrator) lookupMembership(ctx context.Context, sess *models.SearchSession, cand *models.BioMatchCandidate, cfg *config.SearchConfig, delay time.Duration) []*models.ChannelMembershipRecord {
	for i, frag := range nameFragments(cand.Name, cfg) {
		if i > 0 && !sleepCtx(ctx, delay) {
			return nil
		}
		if !o.sessions.ShouldContinue(sess) {
			return nil
		}
		resp, err := o.remote.GetChannelMembers(ctx, frag)
		if err != nil {
			o.logger.Debug("membership lookup failed",
				zap.String("entry_id", cand.EntryID),
				zap.String("fragment", frag),
				zap.Error(err),
			)
			continue
		}
		if len(resp.Channels) == 0 {
			continue
		}
		return membershipRecords(resp, cand.EntryID)
	}
	return nil
}

// membershipRecords filters the response down to channels containing userID.
func membershipRecords(resp *remote.MembershipResult, userID string) []*models.ChannelMembershipRecord {
	var records []*models.ChannelMembershipRecord
	for _, ch := range resp.Channels {
		for _, m := range ch.Members {
			if m.UserID == userID {
				records = append(records, &models.ChannelMembershipRecord{
					ChannelID:   ch.ChannelID,
					Name:        ch.Name,
					IsDistinct:  ch.IsDistinct,
					MemberCount: ch.MemberCount,
				})
				break
			}
		}
	}
	return records
}

// applySharedConnection attaches the discovered channels to the entry, points
// it at a direct (1:1) channel when one exists, and records the upgrade.
func (o *Orchestrator) applySharedConnection(ctx context.Context, query string, entry *models.DirectoryEntry, records []*models.ChannelMembershipRecord, cfg *config.SearchConfig) {
	for _, rec := range records {
		if !entry.HasSharedChannel(rec.ChannelID) {
			entry.SharedChannels = append(entry.SharedChannels, rec.ChannelID)
		}
		if rec.IsDistinct && entry.DirectChannelID == "" {
			entry.DirectChannelID = rec.ChannelID
		}
	}
	entry.Provenance = models.ProvenanceSharedConnection

	if err := o.store.RecordSearchMatch(ctx, entry.ID, query, models.ProvenanceSharedConnection, cfg.EnhanceConfidence); err != nil {
		o.logger.Warn("failed to record shared connection",
			zap.String("entry_id", entry.ID), zap.Error(err))
	}
	o.logger.Debug("entry upgraded to shared connection",
		zap.String("entry_id", entry.ID),
		zap.Int("channels", len(records)),
		zap.String("direct_channel", entry.DirectChannelID),
	)
}

// sleepCtx sleeps for d, returning false when ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
