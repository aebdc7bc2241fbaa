package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/meibo/internal/models"
	"github.com/hyperjump/meibo/internal/remote"
)

func TestBioMatchCandidates(t *testing.T) {
	entries := []*models.DirectoryEntry{
		{ID: "u1", Name: "Sam Lee", Bio: "works on search infra"},
		{ID: "u2", Name: "Searcy Jones", Bio: "search tooling"}, // name token contains the query
		{ID: "u3", Name: "Pat Kim", Bio: ""},
		{ID: "u4", Name: "Researcher Ann", Bio: "annual reports"}, // "search" inside "Researcher"
	}
	cands := BioMatchCandidates("search", entries)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(cands), cands)
	}
	if cands[0].EntryID != "u1" || cands[0].Name != "Sam Lee" || cands[0].MatchedQuery != "search" {
		t.Errorf("candidate = %+v", cands[0])
	}
}

func TestBioMatchCandidates_EmptyQuery(t *testing.T) {
	entries := []*models.DirectoryEntry{{ID: "u1", Name: "Sam Lee", Bio: "bio"}}
	if cands := BioMatchCandidates("   ", entries); cands != nil {
		t.Errorf("blank query should yield no candidates, got %+v", cands)
	}
}

func TestNameFragments(t *testing.T) {
	cfg := testSearchConfig()

	cases := []struct {
		name string
		want []string
	}{
		{"Sam Lee", []string{"sam", "lee", "sam lee"}},
		{"Al B", []string{"al b"}},                                // tokens too short, full name survives
		{"Anastasia Maria Ivanova", []string{"anastasia", "maria", "ivanova"}}, // capped before the full name
		{"Cher", []string{"cher"}},                                // single token equals full name, not doubled
		{"", nil},
	}
	for _, tc := range cases {
		got := nameFragments(tc.name, cfg)
		if len(got) != len(tc.want) {
			t.Errorf("nameFragments(%q) = %v, want %v", tc.name, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("nameFragments(%q)[%d] = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func membershipFor(channels ...*remote.MembershipChannel) *remote.MembershipResult {
	return &remote.MembershipResult{Channels: channels}
}

func TestEnhance_UpgradesToSharedConnection(t *testing.T) {
	store := &fakeStore{}
	svc := &fakeRemote{
		membership: map[string]*remote.MembershipResult{
			"sam": membershipFor(
				&remote.MembershipChannel{
					ChannelID: "c1", Name: "search-infra", MemberCount: 12,
					Members: []remote.Member{{UserID: "u1"}, {UserID: "u2"}},
				},
				&remote.MembershipChannel{
					ChannelID: "d1", Name: "dm", IsDistinct: true, MemberCount: 2,
					Members: []remote.Member{{UserID: "u1"}},
				},
			),
		},
	}
	cfg := testSearchConfig()
	o := New(store, svc, cfg, nil)
	sess := o.sessions.Start("search", "")

	entry := &models.DirectoryEntry{ID: "u1", Name: "Sam Lee", Bio: "works on search infra", Provenance: models.ProvenanceRemote}
	results := []*models.SearchResult{{Entry: entry}}
	cands := []*models.BioMatchCandidate{{EntryID: "u1", Name: "Sam Lee", MatchedQuery: "search"}}

	o.enhance(context.Background(), sess, "search", results, cands, cfg)

	if entry.Provenance != models.ProvenanceSharedConnection {
		t.Errorf("provenance = %q, want shared connection", entry.Provenance)
	}
	if len(entry.SharedChannels) != 2 {
		t.Errorf("shared channels = %v", entry.SharedChannels)
	}
	if entry.DirectChannelID != "d1" {
		t.Errorf("direct channel = %q, want d1", entry.DirectChannelID)
	}
	if len(store.matches) != 1 {
		t.Fatalf("expected 1 recorded match, got %d", len(store.matches))
	}
	m := store.matches[0]
	if m.entryID != "u1" || m.source != models.ProvenanceSharedConnection || m.confidence != cfg.EnhanceConfidence {
		t.Errorf("recorded match = %+v", m)
	}
}

func TestEnhance_FirstFragmentWithChannelsSettles(t *testing.T) {
	store := &fakeStore{}
	svc := &fakeRemote{
		membership: map[string]*remote.MembershipResult{
			// "sam" yields nothing; "lee" yields a channel without the user
			"lee": membershipFor(&remote.MembershipChannel{
				ChannelID: "c9", Name: "lee-fan-club",
				Members: []remote.Member{{UserID: "someone-else"}},
			}),
		},
	}
	cfg := testSearchConfig()
	o := New(store, svc, cfg, nil)
	sess := o.sessions.Start("search", "")

	entry := &models.DirectoryEntry{ID: "u1", Name: "Sam Lee", Provenance: models.ProvenanceRemote}
	results := []*models.SearchResult{{Entry: entry}}
	cands := []*models.BioMatchCandidate{{EntryID: "u1", Name: "Sam Lee", MatchedQuery: "search"}}

	o.enhance(context.Background(), sess, "search", results, cands, cfg)

	// "lee" settled the candidate even though the user was not a member:
	// later fragments are not tried and nothing is upgraded
	if len(svc.memberCalls) != 2 {
		t.Errorf("member calls = %v, want sam then lee only", svc.memberCalls)
	}
	if entry.Provenance != models.ProvenanceRemote {
		t.Errorf("entry should not be upgraded, provenance = %q", entry.Provenance)
	}
}

func TestEnhance_FailureIsolation(t *testing.T) {
	store := &fakeStore{}
	svc := &fakeRemote{
		membership: map[string]*remote.MembershipResult{
			"pat": membershipFor(&remote.MembershipChannel{
				ChannelID: "c1", Name: "infra",
				Members: []remote.Member{{UserID: "u2"}},
			}),
		},
	}
	cfg := testSearchConfig()
	o := New(store, svc, cfg, nil)
	sess := o.sessions.Start("infra", "")

	e1 := &models.DirectoryEntry{ID: "u1", Name: "Sam Lee", Provenance: models.ProvenanceRemote}
	e2 := &models.DirectoryEntry{ID: "u2", Name: "Pat Kim", Provenance: models.ProvenanceRemote}
	results := []*models.SearchResult{{Entry: e1}, {Entry: e2}}
	cands := []*models.BioMatchCandidate{
		{EntryID: "u1", Name: "Sam Lee", MatchedQuery: "infra"},
		{EntryID: "u2", Name: "Pat Kim", MatchedQuery: "infra"},
	}

	// all lookups for the first candidate fail; the second must still run
	svc.memberErr = errors.New("boom")
	origMembership := svc.membership
	svc.membership = nil
	done := false
	svc.beforeMember = func(term string) {
		if term == "pat" && !done {
			done = true
			svc.memberErr = nil
			svc.membership = origMembership
		}
	}

	o.enhance(context.Background(), sess, "infra", results, cands, cfg)

	if e1.Provenance != models.ProvenanceRemote {
		t.Errorf("failed candidate should stay untouched, provenance = %q", e1.Provenance)
	}
	if e2.Provenance != models.ProvenanceSharedConnection {
		t.Errorf("second candidate should still be upgraded, provenance = %q", e2.Provenance)
	}
}

func TestEnhance_StaleSessionStops(t *testing.T) {
	store := &fakeStore{}
	svc := &fakeRemote{}
	cfg := testSearchConfig()
	o := New(store, svc, cfg, nil)

	sess := o.sessions.Start("search", "")
	o.sessions.Cancel("user dismissed")

	entry := &models.DirectoryEntry{ID: "u1", Name: "Sam Lee", Provenance: models.ProvenanceRemote}
	o.enhance(context.Background(), sess, "search",
		[]*models.SearchResult{{Entry: entry}},
		[]*models.BioMatchCandidate{{EntryID: "u1", Name: "Sam Lee", MatchedQuery: "search"}},
		cfg)

	if len(svc.memberCalls) != 0 {
		t.Errorf("stale session should not reach the remote service: %v", svc.memberCalls)
	}
}
