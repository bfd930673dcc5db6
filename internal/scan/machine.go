// Package scan sequences validate, decide, then scan-in/scan-out for a single
// scanner. It absorbs camera-driven duplicate triggers, serializes scan
// processing with an in-flight guard, and carries a watchdog so no code path
// can leave the scanner stuck outside idle.
package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/types"
)

// ErrScanInFlight is returned when a scan trigger arrives while a previous
// validation has not resolved. The trigger is ignored, not queued.
var ErrScanInFlight = errors.New("scan already in flight")

// Config carries the machine's timing knobs. Zero values get the production
// defaults.
type Config struct {
	DuplicateWindow   time.Duration // same-payload suppression, default 3s
	ValidationTimeout time.Duration // bound on the validate call, default 5s
	Watchdog          time.Duration // force-reset to idle, default 8s
	SuccessDismiss    time.Duration // success auto-dismiss, default 2s
	GroupBatchSize    int           // concurrent group fan-out cap, default 5
}

func (c *Config) applyDefaults() {
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = 3 * time.Second
	}
	if c.ValidationTimeout <= 0 {
		c.ValidationTimeout = 5 * time.Second
	}
	if c.Watchdog <= 0 {
		c.Watchdog = 8 * time.Second
	}
	if c.SuccessDismiss <= 0 {
		c.SuccessDismiss = 2 * time.Second
	}
	if c.GroupBatchSize <= 0 {
		c.GroupBatchSize = 5
	}
}

// Gateway is the slice of the remote gateway the machine uses.
type Gateway interface {
	Validate(ctx context.Context, eventID, code string, mode types.ScanMode) (types.ValidationResult, error)
	ScanIn(ctx context.Context, eventID, code string) (types.ValidationResult, error)
	ScanOut(ctx context.Context, eventID, code string) (types.ValidationResult, error)
	Classify(res types.ValidationResult) types.ErrorKind
}

// Machine is safe for concurrent use; all scan processing is serialized by
// the in-flight guard.
type Machine struct {
	cfg     Config
	gw      Gateway
	res     *resolver.Resolver
	eventID string
	log     zerolog.Logger

	mu            sync.Mutex
	state         types.ScanState
	mode          types.ScanMode
	inFlight      bool
	abandoned     bool
	lastPayload   string
	lastPayloadAt time.Time
	watchdog      *time.Timer
	dismiss       *time.Timer

	now func() time.Time
}

func NewMachine(cfg Config, gw Gateway, res *resolver.Resolver, eventID string, log zerolog.Logger) *Machine {
	cfg.applyDefaults()
	return &Machine{
		cfg:     cfg,
		gw:      gw,
		res:     res,
		eventID: eventID,
		log:     log,
		state:   types.StateIdle,
		now:     time.Now,
	}
}

// State returns the current machine position.
func (m *Machine) State() types.ScanState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetMode switches between scan-in and scan-out for subsequent scans.
func (m *Machine) SetMode(mode types.ScanMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Mode returns the active scan direction.
func (m *Machine) Mode() types.ScanMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Dismiss acknowledges a terminal showing-error/showing-success state and
// returns the machine to idle so scanning can resume.
func (m *Machine) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == types.StateShowingError || m.state == types.StateShowingSuccess {
		m.toIdleLocked()
	}
}

// HandleScan runs one full scan pass for a detected payload.
//
// A nil outcome with nil error means the payload was suppressed as a
// duplicate of the immediately preceding scan within the duplicate window.
// ErrScanInFlight means a previous pass has not resolved yet.
func (m *Machine) HandleScan(ctx context.Context, code string) (*types.ScanOutcome, error) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return nil, ErrScanInFlight
	}
	now := m.now()
	if code == m.lastPayload && now.Sub(m.lastPayloadAt) <= m.cfg.DuplicateWindow {
		// Camera re-trigger of the same physical code; drop silently.
		m.mu.Unlock()
		duplicatesTotal.Inc()
		return nil, nil
	}
	m.lastPayload = code
	m.lastPayloadAt = now
	m.inFlight = true
	m.abandoned = false
	m.state = types.StateValidating
	mode := m.mode
	m.armWatchdogLocked()
	m.mu.Unlock()

	outcome := m.runScan(ctx, code, mode)
	m.settle(outcome)
	return outcome, nil
}

// runScan performs the validate/decide/scan sequence without holding the lock.
// Unexpected failures never escape: they become a general error outcome.
func (m *Machine) runScan(ctx context.Context, code string, mode types.ScanMode) *types.ScanOutcome {
	vctx, cancel := context.WithTimeout(ctx, m.cfg.ValidationTimeout)
	defer cancel()

	res, err := m.gw.Validate(vctx, m.eventID, code, mode)
	if err != nil {
		m.log.Warn().Err(err).Str("code", code).Msg("validate failed")
		return errorOutcome(types.KindGeneral, "could not reach the ticket service", nil)
	}
	if res.Error {
		return m.rejectedOutcome(res, mode)
	}
	return m.decide(ctx, code, mode, res)
}

// rejectedOutcome maps a validation rejection onto the operator-facing
// error taxonomy. Guest detail rides along when the upstream attached info
// despite the error flag.
func (m *Machine) rejectedOutcome(res types.ValidationResult, mode types.ScanMode) *types.ScanOutcome {
	kind := m.gw.Classify(res)
	switch {
	case kind == types.KindAlreadyScanned && mode == types.ModeScanIn:
		return errorOutcomeFromInfo(types.KindAlreadyScanned, res)
	case kind == types.KindInvalidTicket:
		return errorOutcomeFromInfo(types.KindInvalidTicket, res)
	case kind == types.KindNotCheckedIn && mode == types.ModeScanOut:
		return errorOutcomeFromInfo(types.KindNotCheckedIn, res)
	default:
		return errorOutcomeFromInfo(types.KindGeneral, res)
	}
}

// decide branches on single vs. group booking and issues the scan call.
func (m *Machine) decide(ctx context.Context, code string, mode types.ScanMode, res types.ValidationResult) *types.ScanOutcome {
	m.setState(types.StateDeciding)

	tickets := resolver.AvailableTickets(res.Info)
	if len(tickets) > 1 {
		// Group booking: produce the hand-off and stop. Individual admits go
		// through the external selection screen, then ScanGroup/UnscanGroup.
		groupHandoffsTotal.Inc()
		return &types.ScanOutcome{
			State: types.StateIdle,
			Group: m.res.Group(res.Info, tickets),
		}
	}

	// Single admit. Scanning out a ticket the server does not consider
	// checked in is always rejected client-side, whatever the server would
	// say: silently succeeding would confuse the operator at the door.
	checkedIn := resolver.IsCheckedIn(res.Info)
	if len(tickets) == 1 && !checkedIn {
		checkedIn = resolver.IsCheckedIn(tickets[0])
	}
	if mode == types.ModeScanOut && !checkedIn {
		return errorOutcomeFromInfo(types.KindNotCheckedIn, res)
	}

	var (
		scanRes types.ValidationResult
		err     error
	)
	if mode == types.ModeScanOut {
		m.setState(types.StateScanningOut)
		scanRes, err = m.gw.ScanOut(ctx, m.eventID, code)
	} else {
		m.setState(types.StateScanningIn)
		scanRes, err = m.gw.ScanIn(ctx, m.eventID, code)
	}
	if err != nil {
		m.log.Warn().Err(err).Str("code", code).Str("mode", mode.String()).Msg("scan call failed")
		return errorOutcome(types.KindGeneral, "could not reach the ticket service", nil)
	}
	if scanRes.Error {
		return errorOutcomeFromInfo(types.KindGeneral, scanRes)
	}

	info := scanRes.Info
	if info == nil {
		info = res.Info
	}
	attendee := m.res.Resolve(info)
	attendee.ScannedIn = mode == types.ModeScanIn
	if attendee.ScannedIn && !attendee.HasScanTime() {
		// Provisional only; the next checked-in refresh replaces it with the
		// server-confirmed time.
		attendee.ScanInTime = m.now()
	}
	if !attendee.ScannedIn {
		attendee.ScanInTime = time.Time{}
		attendee.ScanCode = ""
	} else if attendee.ScanCode == "" {
		attendee.ScanCode = code
	}
	return &types.ScanOutcome{
		State:      types.StateShowingSuccess,
		GuestName:  attendee.Name,
		TicketType: attendee.TicketType,
		Attendee:   &attendee,
	}
}

// ------------------------------
// Terminal handling
// ------------------------------

// settle moves the machine into the outcome's terminal state and releases
// the in-flight guard.
func (m *Machine) settle(outcome *types.ScanOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	m.stopWatchdogLocked()

	if m.abandoned {
		// The watchdog already returned the machine to idle; this completion
		// belongs to a pass the UI has moved on from.
		m.abandoned = false
		m.state = types.StateIdle
		return
	}
	if outcome == nil || outcome.Group != nil {
		// Duplicate drop or group hand-off: nothing to show here.
		m.state = types.StateIdle
		return
	}
	m.state = outcome.State
	scansTotal.WithLabelValues(outcomeLabel(outcome)).Inc()

	switch outcome.State {
	case types.StateShowingSuccess:
		m.armDismissLocked(m.cfg.SuccessDismiss)
	case types.StateShowingError:
		// Stays visible until Dismiss(); the watchdog no longer applies
		// because the pass reached a terminal state.
	default:
		m.state = types.StateIdle
	}
}

func (m *Machine) setState(s types.ScanState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Machine) toIdleLocked() {
	m.state = types.StateIdle
	m.stopWatchdogLocked()
	if m.dismiss != nil {
		m.dismiss.Stop()
		m.dismiss = nil
	}
}

// armWatchdogLocked starts the force-reset timer for a scan pass. If no
// terminal state is reached in time (hung call, unhandled path) the machine
// returns to idle so the camera can resume.
func (m *Machine) armWatchdogLocked() {
	m.stopWatchdogLocked()
	m.watchdog = time.AfterFunc(m.cfg.Watchdog, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.inFlight && m.state == types.StateIdle {
			return
		}
		m.log.Warn().Str("state", m.state.String()).Msg("scan watchdog fired, forcing idle")
		watchdogTotal.Inc()
		m.abandoned = m.inFlight
		m.inFlight = false
		m.toIdleLocked()
	})
}

func (m *Machine) stopWatchdogLocked() {
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
}

func (m *Machine) armDismissLocked(after time.Duration) {
	if m.dismiss != nil {
		m.dismiss.Stop()
	}
	m.dismiss = time.AfterFunc(after, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == types.StateShowingSuccess {
			m.toIdleLocked()
		}
	})
}

// Close stops outstanding timers.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toIdleLocked()
}

// ------------------------------
// Outcome constructors
// ------------------------------

func errorOutcome(kind types.ErrorKind, msg string, attendee *types.Attendee) *types.ScanOutcome {
	return &types.ScanOutcome{
		State:    types.StateShowingError,
		Kind:     kind,
		Message:  msg,
		Attendee: attendee,
	}
}

func errorOutcomeFromInfo(kind types.ErrorKind, v types.ValidationResult) *types.ScanOutcome {
	out := &types.ScanOutcome{
		State:   types.StateShowingError,
		Kind:    kind,
		Message: v.Message,
	}
	if v.Info != nil {
		name, ticketType := resolver.GuestDetail(v.Info)
		out.GuestName = name
		out.TicketType = ticketType
		out.CheckedInAt = resolver.Time(v.Info, "checkedin_date", "checkin_date", "checked_in_at")
	}
	return out
}

func outcomeLabel(o *types.ScanOutcome) string {
	if o.State == types.StateShowingSuccess {
		return "success"
	}
	if o.Kind != types.KindNone {
		return string(o.Kind)
	}
	return "error"
}
