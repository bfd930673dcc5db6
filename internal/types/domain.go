package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ------------------------------
// Core Domain Entities
// ------------------------------

// RawRecord is an untyped guest or ticket record exactly as the upstream
// ticketing API returned it. Field names vary per endpoint and per event
// organizer, so the engine never reads one directly outside the resolver.
type RawRecord = map[string]any

// Attendee is the canonical client-side view of one ticket holder.
type Attendee struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	TicketType       string          `json:"ticketType,omitempty"`
	Mobile           string          `json:"mobile,omitempty"`
	Address          string          `json:"address,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Price            decimal.Decimal `json:"price"`
	PurchasedDate    string          `json:"purchasedDate,omitempty"`
	PurchasedAt      time.Time       `json:"-"`
	TicketIdentifier string          `json:"ticketIdentifier,omitempty"`
	ReferenceNum     string          `json:"referenceNum,omitempty"`
	BookingID        string          `json:"bookingId,omitempty"`

	ScannedIn  bool      `json:"scannedIn"`
	ScanInTime time.Time `json:"scanInTime,omitzero"`
	ScanCode   string    `json:"scanCode,omitempty"`

	// RawData keeps the original record for detail views. The engine never
	// interprets it after resolution.
	RawData RawRecord `json:"rawData,omitempty"`
}

// HasScanTime reports whether a server- or device-stamped check-in time is set.
func (a *Attendee) HasScanTime() bool { return !a.ScanInTime.IsZero() }

// ------------------------------
// Remote operation outcomes
// ------------------------------

// ValidationResult is the normalized outcome of a validate/scan call.
// Info may be populated even when Error is true (e.g. an already-checked-in
// rejection still carries the guest detail), so callers must read it
// regardless of the flag.
type ValidationResult struct {
	Error   bool      `json:"error"`
	Message string    `json:"msg"`
	Status  int       `json:"status"`
	Info    RawRecord `json:"info,omitempty"`
}

// ErrorKind classifies a rejected validation for operator display.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindAlreadyScanned ErrorKind = "already-scanned"
	KindNotCheckedIn   ErrorKind = "not-checked-in"
	KindInvalidTicket  ErrorKind = "invalid-ticket"
	KindGeneral        ErrorKind = "general"
)

// ------------------------------
// Scan state machine surface
// ------------------------------

// ScanMode selects the direction of a scan pass.
type ScanMode int

const (
	ModeScanIn ScanMode = iota
	ModeScanOut
)

func (m ScanMode) String() string {
	if m == ModeScanOut {
		return "scan-out"
	}
	return "scan-in"
}

// ScanState is the state machine position; terminal states are surfaced in
// ScanOutcome, intermediate ones only observable through Machine.State().
type ScanState int

const (
	StateIdle ScanState = iota
	StateValidating
	StateDeciding
	StateScanningIn
	StateScanningOut
	StateShowingError
	StateShowingSuccess
)

func (s ScanState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateDeciding:
		return "deciding"
	case StateScanningIn:
		return "scanning-in"
	case StateScanningOut:
		return "scanning-out"
	case StateShowingError:
		return "showing-error"
	case StateShowingSuccess:
		return "showing-success"
	}
	return "unknown"
}

// ScanOutcome is the terminal result of one scan pass.
type ScanOutcome struct {
	State ScanState
	Kind  ErrorKind

	// Operator-actionable detail, filled when the upstream response carried it.
	GuestName   string
	TicketType  string
	CheckedInAt time.Time
	Message     string

	// Attendee is set on success for store reconciliation and UI detail.
	Attendee *Attendee

	// Group is set instead of Attendee when the code maps to a group booking;
	// the caller hands it to the multi-ticket selection flow.
	Group *GroupHandoff
}

// Duplicate reports whether the scan was silently dropped by the
// same-payload suppression window (no outcome to show).
func (o *ScanOutcome) Duplicate() bool { return o == nil }

// GroupTicket is one selectable admit inside a group booking.
type GroupTicket struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	TicketType       string `json:"ticketType"`
	TicketIdentifier string `json:"ticketIdentifier"`
	IsCheckedIn      bool   `json:"isCheckedIn"`
	QRCode           string `json:"qrCode"`
}

// Purchaser summarizes who bought a group booking.
type Purchaser struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	BookingID string `json:"bookingId"`
}

// GroupHandoff is what the engine produces for the external multi-ticket
// selection screen. The engine does not scan any of these itself.
type GroupHandoff struct {
	Tickets   []GroupTicket `json:"tickets"`
	Purchaser Purchaser     `json:"purchaser"`
}

// GroupTicketResult is the per-code outcome of a group fan-out.
type GroupTicketResult struct {
	Code string
	Err  error
}

// GroupResult aggregates a settle-all group scan; a partial failure is
// reported here, never retried automatically.
type GroupResult struct {
	Successful int
	Failed     int
	Results    []GroupTicketResult
}

// ------------------------------
// Store views
// ------------------------------

// Filter selects which guests a derived view shows.
type Filter int

const (
	FilterAll Filter = iota
	FilterCheckedIn
	FilterNotArrived
)

// PagedRoster is the paginated full guest list for an event. Pagination is a
// slice over one pre-sorted bulk fetch; the upstream API has no native pages.
type PagedRoster struct {
	Attendees   []Attendee
	CurrentPage int
	HasMore     bool
	TotalCount  int
}

// ViewFlags mirrors the loading indicators the UI binds to.
type ViewFlags struct {
	Loading       bool
	Refreshing    bool
	LoadingMore   bool
	SearchLoading bool
}

// Snapshot is a copy of the store state handed to the UI; mutating it has no
// effect on the store.
type Snapshot struct {
	Roster        PagedRoster
	CheckedIn     []Attendee
	SearchResults []Attendee
	Query         string
	SearchMode    bool
	Filter        Filter
	Flags         ViewFlags
}
