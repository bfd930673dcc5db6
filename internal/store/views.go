package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/types"
)

// ------------------------------
// Search
// ------------------------------

// Search schedules a query run after the debounce settle window. Rapid
// keystrokes keep pushing the timer; only the final query executes. An empty
// query leaves search mode immediately.
func (s *Store) Search(query string) {
	s.mu.Lock()
	s.query = query
	if s.debounce != nil {
		s.debounce.Stop()
	}
	if strings.TrimSpace(query) == "" {
		s.searchMode = false
		s.searchResults = nil
		s.flags.SearchLoading = false
		s.mu.Unlock()
		return
	}
	s.flags.SearchLoading = true
	s.debounce = time.AfterFunc(s.cfg.SearchDebounce, func() {
		s.RunSearch(context.Background(), query)
	})
	s.mu.Unlock()
}

// RunSearch executes a query immediately against the bulk set (cached or
// fetched). Stale completions (a run issued before a newer query) are
// discarded rather than overwriting fresher results.
func (s *Store) RunSearch(ctx context.Context, query string) {
	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	all, err := s.fetchBulk(ctx, false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.searchApplied || query != s.query {
		staleDiscardsTotal.Inc()
		return
	}
	s.searchApplied = seq
	s.flags.SearchLoading = false
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("search fetch failed")
		s.searchMode = true
		s.searchResults = []types.Attendee{}
		return
	}
	s.searchMode = true
	s.all = all
	s.searchResults = deriveSearch(all, query)
	s.reconcileLocked()
}

// SearchMode reports whether a query is active; roster pagination is
// suspended while it is.
func (s *Store) SearchMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchMode
}

// deriveSearch filters the bulk set by free text and orders by relevance:
// exact name match, then name prefix, then everything else, with checked-in
// guests first inside each band.
func deriveSearch(all []types.Attendee, query string) []types.Attendee {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]types.Attendee, 0)
	for _, a := range all {
		if matchesQuery(a, q) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := relevance(out[i], q), relevance(out[j], q)
		if ri != rj {
			return ri < rj
		}
		if out[i].ScannedIn != out[j].ScannedIn {
			return out[i].ScannedIn
		}
		return false
	})
	return out
}

// matchesQuery defers to the resolver's shared search predicate over the raw
// record, so the cached derivation and the gateway's derived listing agree on
// membership. Attendees without raw data (locally constructed ones) fall back
// to the resolved fields.
func matchesQuery(a types.Attendee, q string) bool {
	if q == "" {
		return true
	}
	if a.RawData != nil {
		return resolver.MatchesQuery(a.RawData, q)
	}
	for _, f := range []string{a.Name, a.Email, a.TicketType, a.TicketIdentifier, a.Mobile} {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func relevance(a types.Attendee, q string) int {
	name := strings.ToLower(a.Name)
	switch {
	case name == q:
		return 0
	case strings.HasPrefix(name, q):
		return 1
	default:
		return 2
	}
}

// ------------------------------
// Filter + snapshot
// ------------------------------

// SetFilter selects the view filter; a pure derivation, no fetching.
func (s *Store) SetFilter(f types.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Snapshot copies the current state for the UI. The checked-in filter reads
// from the authoritative subset rather than filtering the roster flag, so it
// is immune to roster pagination lag.
func (s *Store) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.roster.Attendees
	if s.searchMode {
		base = s.searchResults
	}

	var visible []types.Attendee
	switch s.filter {
	case types.FilterCheckedIn:
		visible = copyList(s.checkedIn)
	case types.FilterNotArrived:
		visible = make([]types.Attendee, 0, len(base))
		for _, a := range base {
			if !a.ScannedIn {
				visible = append(visible, a)
			}
		}
	default:
		visible = copyList(base)
	}

	snap := types.Snapshot{
		Roster: types.PagedRoster{
			Attendees:   visible,
			CurrentPage: s.roster.CurrentPage,
			HasMore:     s.roster.HasMore && !s.searchMode,
			TotalCount:  s.roster.TotalCount,
		},
		CheckedIn:     copyList(s.checkedIn),
		SearchResults: copyList(s.searchResults),
		Query:         s.query,
		SearchMode:    s.searchMode,
		Filter:        s.filter,
		Flags:         s.flags,
	}
	return snap
}

func copyList(in []types.Attendee) []types.Attendee {
	out := make([]types.Attendee, len(in))
	copy(out, in)
	return out
}
