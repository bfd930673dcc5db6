package store

import (
	"time"

	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/types"
)

// reconcileLocked aligns the scanned-in flag of every roster and search
// entry with the checked-in subset. This is a full two-way sync:
//
//   - an entry the subset confirms but the view shows as absent flips to
//     present and adopts the subset's server time and scan code;
//   - an entry the view shows as present but the subset no longer contains
//     flips back to absent and loses its provisional time/code.
//
// The second direction is what cleans up optimistic updates that never got
// server confirmation.
func (s *Store) reconcileLocked() {
	s.syncList(s.roster.Attendees)
	s.syncList(s.searchResults)
	s.syncList(s.all)
}

func (s *Store) syncList(list []types.Attendee) {
	for i := range list {
		j := resolver.FindMatch(list[i], s.checkedIn)
		switch {
		case j >= 0 && !list[i].ScannedIn:
			list[i].ScannedIn = true
			list[i].ScanInTime = s.checkedIn[j].ScanInTime
			list[i].ScanCode = s.checkedIn[j].ScanCode
			reconcileFlips.WithLabelValues("to_checked_in").Inc()
		case j >= 0 && list[i].ScannedIn:
			// Already in sync on the flag; still adopt the server-confirmed
			// time over any provisional device-clock stamp.
			if !s.checkedIn[j].ScanInTime.IsZero() {
				list[i].ScanInTime = s.checkedIn[j].ScanInTime
			}
			if s.checkedIn[j].ScanCode != "" {
				list[i].ScanCode = s.checkedIn[j].ScanCode
			}
		case j < 0 && list[i].ScannedIn:
			list[i].ScannedIn = false
			list[i].ScanInTime = time.Time{}
			list[i].ScanCode = ""
			reconcileFlips.WithLabelValues("to_not_arrived").Inc()
		}
	}
}
