package store

import (
	"sort"

	"github.com/gatekit/checkin/internal/types"
)

// Roster order: checked-in guests first, most recently checked in at the
// top, then not-yet-arrived guests by purchase recency. Pagination is a
// slice over this pre-sorted list, so the order must be stable across page
// boundaries.
func sortAttendees(list []types.Attendee) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.ScannedIn != b.ScannedIn {
			return a.ScannedIn
		}
		if a.ScannedIn {
			return a.ScanInTime.After(b.ScanInTime)
		}
		return a.PurchasedAt.After(b.PurchasedAt)
	})
}

// slicePages returns pages 1..page of the sorted set as one roster. Slicing
// from the top rather than appending a single page window makes duplicate or
// skipped entries impossible when pages land out of order.
func slicePages(all []types.Attendee, page, pageSize int) types.PagedRoster {
	if page < 1 {
		page = 1
	}
	end := page * pageSize
	if end > len(all) {
		end = len(all)
	}
	entries := make([]types.Attendee, end)
	copy(entries, all[:end])
	return types.PagedRoster{
		Attendees:   entries,
		CurrentPage: page,
		HasMore:     end < len(all),
		TotalCount:  len(all),
	}
}

func filterScanned(list []types.Attendee) []types.Attendee {
	out := make([]types.Attendee, 0, len(list))
	for _, a := range list {
		if a.ScannedIn {
			out = append(out, a)
		}
	}
	return out
}
