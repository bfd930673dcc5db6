// Package resolver normalizes the upstream API's loosely-typed guest records
// into the canonical Attendee shape. Field names for the same concept differ
// between endpoints (and between event organizers), so every read goes
// through the alias chains defined here.
package resolver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gatekit/checkin/internal/types"
)

// Alias chains, in priority order. Order is load-bearing: the first present,
// non-empty key wins.
var (
	nameKeys      = []string{"purchaser_name", "purchaserName", "admit_name", "admitName", "fullname", "full_name", "name"}
	emailKeys     = []string{"email", "purchaser_email", "purchaserEmail", "admit_email"}
	ticketKeys    = []string{"ticket_identifier", "ticketIdentifier", "qrCode", "qr_code", "reference_num"}
	typeKeys      = []string{"ticket_type", "ticketType", "tickettype", "ticket_name", "type"}
	mobileKeys    = []string{"mobile", "phone", "phone_number", "contact_number"}
	addressKeys   = []string{"address", "billing_address"}
	notesKeys     = []string{"notes", "note", "comments"}
	priceKeys     = []string{"price", "ticket_price", "amount", "total"}
	purchasedKeys = []string{"purchased_date", "purchasedDate", "purchase_date", "created_at", "created"}
	idKeys        = []string{"id", "guest_id", "guestId", "ticket_id", "ticketId"}
	refKeys       = []string{"reference_num", "referenceNum", "reference"}
	bookingKeys   = []string{"booking_id", "bookingId", "order_id", "orderId"}
	scanTimeKeys  = []string{"checkedin_date", "checkin_date", "checked_in_at", "scan_time", "scanin_time"}
	scanCodeKeys  = []string{"scan_code", "scanCode", "checkin_code"}
	checkedInKeys = []string{"checkedin", "checked_in", "scanned_in", "scannedIn"}
)

// Resolver converts raw records to Attendees. It is stateless except for the
// generated-ID memo: a record with no usable identifier gets a random ID on
// first sight, and the same raw record must keep that ID for the rest of the
// session so memoized re-renders and cache keys stay stable.
type Resolver struct {
	mu     sync.Mutex
	idMemo map[string]string
}

func New() *Resolver {
	return &Resolver{idMemo: make(map[string]string)}
}

// Resolve is total: any raw record, including nil, yields a usable Attendee.
func (r *Resolver) Resolve(raw types.RawRecord) types.Attendee {
	a := types.Attendee{
		Email:            Str(raw, emailKeys...),
		TicketType:       Str(raw, typeKeys...),
		Mobile:           Str(raw, mobileKeys...),
		Address:          Str(raw, addressKeys...),
		Notes:            Str(raw, notesKeys...),
		Price:            Price(raw, priceKeys...),
		PurchasedDate:    Str(raw, purchasedKeys...),
		TicketIdentifier: Str(raw, ticketKeys...),
		ReferenceNum:     Str(raw, refKeys...),
		BookingID:        Str(raw, bookingKeys...),
		ScannedIn:        IsCheckedIn(raw),
		ScanInTime:       Time(raw, scanTimeKeys...),
		ScanCode:         Str(raw, scanCodeKeys...),
		RawData:          raw,
	}
	a.PurchasedAt = Time(raw, purchasedKeys...)
	a.ID = r.resolveID(raw, a.TicketIdentifier)
	a.Name = resolveName(raw, a)
	return a
}

// ResolveAll maps a bulk listing; nil input yields an empty, non-nil slice so
// a malformed envelope degrades to "no guests".
func (r *Resolver) ResolveAll(raws []types.RawRecord) []types.Attendee {
	out := make([]types.Attendee, 0, len(raws))
	for _, raw := range raws {
		out = append(out, r.Resolve(raw))
	}
	return out
}

func (r *Resolver) resolveID(raw types.RawRecord, ticketID string) string {
	if id := Str(raw, idKeys...); id != "" {
		return id
	}
	if ticketID != "" {
		return ticketID
	}
	// No identifier at all. Generate one and pin it for the session, keyed by
	// a fingerprint of the record, so repeated resolution stays stable.
	fp := fingerprint(raw)
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.idMemo[fp]; ok {
		return id
	}
	id := uuid.NewString()
	r.idMemo[fp] = id
	return id
}

// resolveName applies the display-name priority chain: purchaser/admit/plain
// name, then email, then first+last, then a label from the ticket code tail,
// then "Guest".
func resolveName(raw types.RawRecord, a types.Attendee) string {
	if n := Str(raw, nameKeys...); n != "" {
		return n
	}
	if a.Email != "" {
		return a.Email
	}
	first := Str(raw, "first_name", "firstname", "firstName")
	last := Str(raw, "last_name", "lastname", "lastName")
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	if a.TicketIdentifier != "" {
		tail := a.TicketIdentifier
		if len(tail) > 6 {
			tail = tail[len(tail)-6:]
		}
		return "Ticket " + tail
	}
	return "Guest"
}

func fingerprint(raw types.RawRecord) string {
	if len(raw) == 0 {
		return "<empty>"
	}
	// Deterministic over map ordering.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, raw[k])
	}
	return b.String()
}
