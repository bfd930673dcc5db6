package resolver

import (
	"strings"

	"github.com/gatekit/checkin/internal/types"
)

// SameTicket reports whether two Attendees represent the same physical
// ticket. Match tiers, in priority order:
//
//  1. non-empty TicketIdentifier equal (case-insensitive)
//  2. non-empty ID equal
//  3. name AND email both equal case-insensitively (email non-empty)
//
// The tier order matters: looser matching causes false merges, stricter
// matching leaves duplicate ghosts in the roster.
//
// Tier 1 is deliberately terminal: when both sides carry an identifier and
// they differ, the records are two physical tickets even if their ids happen
// to agree (ids are not unique across the upstream's endpoints). Do not relax
// this to fall through to the lower tiers.
func SameTicket(a, b types.Attendee) bool {
	if a.TicketIdentifier != "" && b.TicketIdentifier != "" {
		return strings.EqualFold(a.TicketIdentifier, b.TicketIdentifier)
	}
	if a.ID != "" && b.ID != "" && a.ID == b.ID {
		return true
	}
	return a.Email != "" && b.Email != "" &&
		strings.EqualFold(a.Email, b.Email) &&
		strings.EqualFold(a.Name, b.Name)
}

// FindMatch returns the index of the first entry in list matching a, or -1.
func FindMatch(a types.Attendee, list []types.Attendee) int {
	for i := range list {
		if SameTicket(a, list[i]) {
			return i
		}
	}
	return -1
}

// IsCheckedIn reads the scanned-in flag through the alias chain. Every
// component that decides membership of the checked-in subset goes through
// this one predicate.
func IsCheckedIn(raw types.RawRecord) bool {
	return Bool(raw, checkedInKeys...)
}

// MatchesQuery reports whether a raw record matches a free-text query across
// the name, email, ticket type, identifier, reference and mobile chains. An
// empty query matches everything. Like IsCheckedIn, this is the single
// membership predicate for search, shared by the gateway's derived listing
// and the store's cached derivation.
func MatchesQuery(raw types.RawRecord, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{
		Str(raw, nameKeys...),
		Str(raw, emailKeys...),
		Str(raw, typeKeys...),
		Str(raw, ticketKeys...),
		Str(raw, refKeys...),
		Str(raw, mobileKeys...),
	} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
