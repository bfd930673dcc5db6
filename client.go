// Package checkin is the guest attendance engine behind the event check-in
// app: scan and manual check-in/out against a remote ticketing service, plus
// a paginated, searchable, filterable roster kept consistent with the
// server-confirmed checked-in subset. It renders nothing; screens consume
// Snapshot and ScanOutcome values.
package checkin

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gatekit/checkin/internal/cache"
	"github.com/gatekit/checkin/internal/gateway"
	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/scan"
	"github.com/gatekit/checkin/internal/store"
)

// Client binds the engine to one event for the lifetime of a check-in
// session. All state is memory-resident; nothing survives process restart.
type Client struct {
	cfg      Config
	http     *http.Client
	log      zerolog.Logger
	eventID  string
	session  Session
	notifier Notifier
	rules    []Rule

	gw      *gateway.Gateway
	cache   *cache.Cache
	res     *resolver.Resolver
	store   *store.Store
	machine *scan.Machine

	closedOnce uint32 // ensures Close is idempotent
}

// New constructs a Client for one event. Session supplies auth tokens; the
// gateway asks it to log in when no token is present and retries once after
// a 401. Additional options via functional arguments.
func New(baseURL, eventID string, session Session, opts ...Option) *Client {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}
	if eventID == "" {
		panic("eventID cannot be empty")
	}
	if session == nil {
		panic("session cannot be nil")
	}

	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	c := &Client{
		cfg:      cfg,
		eventID:  eventID,
		session:  session,
		notifier: store.NopNotifier{},
		log:      zerolog.Nop(),
	}
	c.http = &http.Client{Timeout: cfg.HTTPTimeout}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}

	c.res = resolver.New()
	c.cache = cache.New()
	c.gw = gateway.New(c.http, baseURL, session, c.cache, gateway.Config{
		Rules:         c.rules,
		ListRetries:   c.cfg.ListRetries,
		ValidationTTL: c.cfg.ValidationCacheTTL,
	}, c.log)
	c.store = store.New(store.Config{
		PageSize:       c.cfg.PageSize,
		SearchDebounce: c.cfg.SearchDebounce,
		ListTTL:        c.cfg.ListCacheTTL,
	}, c.gw, c.cache, c.res, c.notifier, eventID, c.log)
	c.machine = scan.NewMachine(scan.Config{
		DuplicateWindow:   c.cfg.DuplicateScanWindow,
		ValidationTimeout: c.cfg.ValidationTimeout,
		Watchdog:          c.cfg.ScanWatchdog,
		SuccessDismiss:    c.cfg.SuccessDismiss,
		GroupBatchSize:    c.cfg.GroupBatchSize,
	}, c.gw, c.res, eventID, c.log)
	return c
}

// Close releases timers. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.machine.Close()
	c.store.Close()
	return nil
}

// --------------------------------------------------------------------
// Scanning - delegated to internal/scan
// --------------------------------------------------------------------

// HandleScan runs one scan pass for a camera-detected payload. A nil outcome
// with nil error means the payload was a duplicate re-trigger and was
// dropped; ErrScanInFlight means a previous pass has not resolved.
//
// A confirmed scan is folded into the roster views before returning.
func (c *Client) HandleScan(ctx context.Context, code string) (*ScanOutcome, error) {
	operationsTotal.WithLabelValues("handle_scan").Inc()
	outcome, err := c.machine.HandleScan(ctx, code)
	if err != nil || outcome == nil {
		return outcome, err
	}
	if outcome.State == StateShowingSuccess && outcome.Attendee != nil {
		c.store.ApplyScan(*outcome.Attendee)
	}
	return outcome, nil
}

// SetMode switches between scan-in and scan-out.
func (c *Client) SetMode(mode ScanMode) { c.machine.SetMode(mode) }

// Mode returns the active scan direction.
func (c *Client) Mode() ScanMode { return c.machine.Mode() }

// ScanState exposes the machine position (idle/validating/...).
func (c *Client) ScanState() ScanState { return c.machine.State() }

// DismissScan acknowledges a terminal scan result so the camera can resume.
func (c *Client) DismissScan() { c.machine.Dismiss() }

// ScanGroupTickets checks in the selected admits of a group booking with
// capped concurrency, settle-all. Partial failures are reported in the
// result, not retried.
func (c *Client) ScanGroupTickets(ctx context.Context, codes []string) (GroupResult, error) {
	operationsTotal.WithLabelValues("scan_group").Inc()
	result := c.machine.ScanGroup(ctx, codes)
	var err error
	if result.Successful > 0 {
		err = c.store.AfterConfirmedScan(ctx)
	}
	return result, err
}

// UnscanGroupTickets reverses check-in for the selected admits.
func (c *Client) UnscanGroupTickets(ctx context.Context, codes []string) (GroupResult, error) {
	operationsTotal.WithLabelValues("unscan_group").Inc()
	result := c.machine.UnscanGroup(ctx, codes)
	var err error
	if result.Successful > 0 {
		err = c.store.AfterConfirmedScan(ctx)
	}
	return result, err
}

// --------------------------------------------------------------------
// Roster - delegated to internal/store
// --------------------------------------------------------------------

// FetchPage loads the roster up to page; reset replaces it and bypasses the
// listing cache.
func (c *Client) FetchPage(ctx context.Context, page int, reset bool) error {
	operationsTotal.WithLabelValues("fetch_page").Inc()
	return c.store.FetchPage(ctx, page, reset)
}

// LoadMore appends the next page; suspended during search mode.
func (c *Client) LoadMore(ctx context.Context) error {
	return c.store.LoadMore(ctx)
}

// Refresh is the pull-to-refresh path: fresh roster plus a fresh checked-in
// subset, reconciled.
func (c *Client) Refresh(ctx context.Context) error {
	operationsTotal.WithLabelValues("refresh").Inc()
	return c.store.Refresh(ctx)
}

// FetchCheckedIn re-pulls the authoritative checked-in subset and reconciles
// every view against it.
func (c *Client) FetchCheckedIn(ctx context.Context) error {
	operationsTotal.WithLabelValues("fetch_checked_in").Inc()
	return c.store.FetchCheckedIn(ctx)
}

// CheckInGuest marks a guest present from the list (non-QR path),
// optimistically; a confirmed upstream failure rolls the flip back.
func (c *Client) CheckInGuest(ctx context.Context, guest Attendee) error {
	operationsTotal.WithLabelValues("check_in_guest").Inc()
	return c.store.CheckInGuest(ctx, guest)
}

// CheckOutGuest marks a guest absent from the list, optimistically. An
// upstream failure keeps the local flip (the operator's intent wins) and is
// only logged.
func (c *Client) CheckOutGuest(ctx context.Context, guest Attendee) error {
	operationsTotal.WithLabelValues("check_out_guest").Inc()
	return c.store.CheckOutGuest(ctx, guest)
}

// Search debounces the query and derives results from the bulk guest set.
func (c *Client) Search(query string) { c.store.Search(query) }

// SetFilter selects the all / checked-in / not-arrived view filter.
func (c *Client) SetFilter(f Filter) { c.store.SetFilter(f) }

// Snapshot copies the current view state for rendering.
func (c *Client) Snapshot() Snapshot { return c.store.Snapshot() }

// ClearCache drops every memoized listing/validation result.
func (c *Client) ClearCache() { c.store.ClearCache() }
