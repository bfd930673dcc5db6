package checkin

import (
	"github.com/gatekit/checkin/internal/gateway"
	"github.com/gatekit/checkin/internal/store"
	"github.com/gatekit/checkin/internal/types"
)

// Public type aliases so consumers can import only the checkin package.
type (
	// Domain entities
	Attendee    = types.Attendee
	RawRecord   = types.RawRecord
	PagedRoster = types.PagedRoster
	Snapshot    = types.Snapshot
	ViewFlags   = types.ViewFlags

	// Scan surface
	ScanOutcome       = types.ScanOutcome
	ScanMode          = types.ScanMode
	ScanState         = types.ScanState
	ErrorKind         = types.ErrorKind
	ValidationResult  = types.ValidationResult
	GroupHandoff      = types.GroupHandoff
	GroupTicket       = types.GroupTicket
	Purchaser         = types.Purchaser
	GroupResult       = types.GroupResult
	GroupTicketResult = types.GroupTicketResult

	// View filtering
	Filter = types.Filter

	// Collaborators and configuration
	Notifier = store.Notifier
	Rule     = gateway.Rule
)

// Re-exported constants.
const (
	ModeScanIn  = types.ModeScanIn
	ModeScanOut = types.ModeScanOut

	StateIdle           = types.StateIdle
	StateValidating     = types.StateValidating
	StateDeciding       = types.StateDeciding
	StateScanningIn     = types.StateScanningIn
	StateScanningOut    = types.StateScanningOut
	StateShowingError   = types.StateShowingError
	StateShowingSuccess = types.StateShowingSuccess

	KindAlreadyScanned = types.KindAlreadyScanned
	KindNotCheckedIn   = types.KindNotCheckedIn
	KindInvalidTicket  = types.KindInvalidTicket
	KindGeneral        = types.KindGeneral

	FilterAll        = types.FilterAll
	FilterCheckedIn  = types.FilterCheckedIn
	FilterNotArrived = types.FilterNotArrived
)

// DefaultErrorRules returns the built-in classification table, handy as a
// base when composing WithErrorRules overrides.
func DefaultErrorRules() []Rule { return gateway.DefaultRules() }
