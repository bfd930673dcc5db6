package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekit/checkin/internal/types"
)

func searchFixture() []types.RawRecord {
	anna := rawGuest("Anna", "T1", false, "2024-01-01T00:00:00Z")
	smith := rawGuest("Anna Smith", "T2", true, "2024-01-02T00:00:00Z")
	smith["checkedin_date"] = "2024-03-01T10:00:00Z"
	belle := rawGuest("Annabelle", "T3", false, "2024-01-03T00:00:00Z")
	joanna := rawGuest("Joanna", "T4", false, "2024-01-04T00:00:00Z")
	other := rawGuest("Bob", "T5", false, "2024-01-05T00:00:00Z")
	return []types.RawRecord{anna, smith, belle, joanna, other}
}

func TestRunSearch_RelevanceOrdering(t *testing.T) {
	gw := &fakeGW{}
	gw.setGuests(searchFixture())
	s := newTestStore(Config{PageSize: 10}, gw)

	s.RunSearch(context.Background(), "anna")

	names := []string{}
	for _, a := range s.Snapshot().SearchResults {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Anna", "Anna Smith", "Annabelle", "Joanna"}, names,
		"exact name, then prefix with checked-in first, then substring matches")
}

func TestRunSearch_MatchesBeyondName(t *testing.T) {
	gw := &fakeGW{}
	vip := rawGuest("Carol", "T9", false, "2024-01-01T00:00:00Z")
	vip["ticket_type"] = "VIP"
	gw.setGuests([]types.RawRecord{vip, rawGuest("Dan", "T8", false, "2024-01-02T00:00:00Z")})
	s := newTestStore(Config{PageSize: 10}, gw)

	s.RunSearch(context.Background(), "vip")

	results := s.Snapshot().SearchResults
	require.Len(t, results, 1)
	assert.Equal(t, "Carol", results[0].Name)
}

func TestRunSearch_MatchesReferenceNum(t *testing.T) {
	gw := &fakeGW{}
	// The booking reference is a separate field from the ticket identifier;
	// operators paste either one into the search box.
	withRef := rawGuest("Eve", "T7", false, "2024-01-01T00:00:00Z")
	withRef["reference_num"] = "REF-77"
	gw.setGuests([]types.RawRecord{withRef, rawGuest("Frank", "T6", false, "2024-01-02T00:00:00Z")})
	s := newTestStore(Config{PageSize: 10}, gw)

	s.RunSearch(context.Background(), "ref-77")

	results := s.Snapshot().SearchResults
	require.Len(t, results, 1)
	assert.Equal(t, "Eve", results[0].Name)
}

func TestSearch_DebounceCoalescesKeystrokes(t *testing.T) {
	gw := &fakeGW{}
	gw.setGuests(searchFixture())
	s := newTestStore(Config{PageSize: 10, SearchDebounce: 20 * time.Millisecond}, gw)

	s.Search("an")
	s.Search("ann")
	s.Search("anna")

	require.Eventually(t, func() bool { return len(s.Snapshot().SearchResults) > 0 },
		time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, "anna", snap.Query)
	assert.True(t, snap.SearchMode)
	assert.Equal(t, 1, gw.calls(), "only the settled query hits the network")
	for _, a := range snap.SearchResults {
		assert.Contains(t, []string{"Anna", "Anna Smith", "Annabelle", "Joanna"}, a.Name)
	}
}

func TestSearch_EmptyQueryExitsImmediately(t *testing.T) {
	gw := &fakeGW{}
	gw.setGuests(searchFixture())
	s := newTestStore(Config{PageSize: 10}, gw)
	s.RunSearch(context.Background(), "anna")
	require.True(t, s.SearchMode())

	s.Search("")

	snap := s.Snapshot()
	assert.False(t, snap.SearchMode, "clearing the query must not wait for the debounce")
	assert.Empty(t, snap.SearchResults)
	assert.False(t, snap.Flags.SearchLoading)
}

func TestRunSearch_StaleQueryDiscarded(t *testing.T) {
	gw := &fakeGW{}
	gw.setGuests(searchFixture())
	s := newTestStore(Config{PageSize: 10}, gw)

	s.mu.Lock()
	s.query = "bob" // a newer keystroke superseded the run below
	s.mu.Unlock()
	s.RunSearch(context.Background(), "anna")

	assert.False(t, s.SearchMode(), "a run for an outdated query must not apply")
	assert.Empty(t, s.Snapshot().SearchResults)
}

func TestLoadMore_SuspendedInSearchMode(t *testing.T) {
	gw := &fakeGW{}
	guests := searchFixture()
	gw.setGuests(guests)
	s := newTestStore(Config{PageSize: 2}, gw)
	require.NoError(t, s.FetchPage(context.Background(), 1, false))
	require.True(t, s.Snapshot().Roster.HasMore)

	s.RunSearch(context.Background(), "anna")
	calls := gw.calls()

	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, calls, gw.calls(), "pagination is a no-op while searching")
	assert.False(t, s.Snapshot().Roster.HasMore, "the search view never advertises more pages")
}

func TestSnapshot_CheckedInFilterReadsSubset(t *testing.T) {
	gw := &fakeGW{}
	in1 := rawGuest("In One", "T1", true, "2024-01-01T00:00:00Z")
	in1["checkedin_date"] = "2024-03-01T10:00:00Z"
	in2 := rawGuest("In Two", "T2", true, "2024-01-02T00:00:00Z")
	in2["checkedin_date"] = "2024-03-01T11:00:00Z"
	out := rawGuest("Still Out", "T3", false, "2024-01-03T00:00:00Z")
	gw.setGuests([]types.RawRecord{in1, in2, out})

	// One-entry pages: the roster lags far behind the full guest set.
	s := newTestStore(Config{PageSize: 1}, gw)
	require.NoError(t, s.FetchPage(context.Background(), 1, false))
	require.NoError(t, s.FetchCheckedIn(context.Background()))
	require.Len(t, s.Snapshot().Roster.Attendees, 1)

	s.SetFilter(types.FilterCheckedIn)
	visible := s.Snapshot().Roster.Attendees
	assert.Len(t, visible, 2, "checked-in view reads the authoritative subset, not the paged roster")
	for _, a := range visible {
		assert.True(t, a.ScannedIn)
	}
}

func TestSnapshot_NotArrivedFilter(t *testing.T) {
	gw := &fakeGW{}
	in := rawGuest("Arrived", "T1", true, "2024-01-01T00:00:00Z")
	in["checkedin_date"] = "2024-03-01T10:00:00Z"
	gw.setGuests([]types.RawRecord{in, rawGuest("Waiting", "T2", false, "2024-01-02T00:00:00Z")})
	s := newTestStore(Config{PageSize: 10}, gw)
	require.NoError(t, s.FetchPage(context.Background(), 1, false))

	s.SetFilter(types.FilterNotArrived)
	visible := s.Snapshot().Roster.Attendees
	require.Len(t, visible, 1)
	assert.Equal(t, "Waiting", visible[0].Name)
}
