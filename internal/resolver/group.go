package resolver

import (
	"github.com/gatekit/checkin/internal/types"
)

// AvailableTickets extracts the grouped-booking ticket list from a
// validation info block. Absent or malformed lists come back empty; a
// single-entry (or empty) list means the scanned code is a single admit.
func AvailableTickets(info types.RawRecord) []types.RawRecord {
	if info == nil {
		return nil
	}
	v, ok := info["availabletickets"]
	if !ok {
		v, ok = info["available_tickets"]
	}
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]types.RawRecord, 0, len(items))
	for _, it := range items {
		if rec, ok := it.(types.RawRecord); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Group normalizes a multi-admit validation info block into the hand-off
// shape for the external ticket selection flow.
func (r *Resolver) Group(info types.RawRecord, tickets []types.RawRecord) *types.GroupHandoff {
	h := &types.GroupHandoff{
		Tickets: make([]types.GroupTicket, 0, len(tickets)),
		Purchaser: types.Purchaser{
			Email:     Str(info, "purchaser_email", "purchaserEmail", "email"),
			Name:      Str(info, "purchaser_name", "purchaserName", "fullname", "name"),
			BookingID: Str(info, "booking_id", "bookingId", "order_id"),
		},
	}
	for _, raw := range tickets {
		a := r.Resolve(raw)
		h.Tickets = append(h.Tickets, types.GroupTicket{
			ID:               a.ID,
			Name:             a.Name,
			Email:            a.Email,
			TicketType:       a.TicketType,
			TicketIdentifier: a.TicketIdentifier,
			IsCheckedIn:      a.ScannedIn,
			QRCode:           Str(raw, "qrCode", "qr_code", "ticket_identifier"),
		})
	}
	return h
}

// GuestDetail pulls operator-facing fields out of a validation info block,
// used when a rejection still carries the guest (already-checked-in case).
func GuestDetail(info types.RawRecord) (name, ticketType string) {
	return Str(info, "fullname", "full_name", "name", "purchaser_name"),
		Str(info, typeKeys...)
}
