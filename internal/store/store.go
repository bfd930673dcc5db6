// Package store owns the three overlapping views of the guest set: the
// paged roster, the server-confirmed checked-in subset, and the live search
// results. It applies optimistic local mutations and reconciles all views
// whenever a fresh checked-in snapshot or scan result arrives.
//
// The upstream API has no native pagination or search; one bulk listing is
// the single source of truth and every view is a pure derivation over it, so
// the views can disagree only on currency, never on membership.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gatekit/checkin/internal/cache"
	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/types"
)

// Gateway is the slice of the remote gateway the store uses.
type Gateway interface {
	ListGuests(ctx context.Context, eventID string) ([]types.RawRecord, error)
	ManualCheckIn(ctx context.Context, eventID, ref string) (types.ValidationResult, error)
	ManualCheckOut(ctx context.Context, eventID, ref string) (types.ValidationResult, error)
}

// Notifier is the fire-and-forget refresh bus; other screens (attendance
// counts, analytics) refresh when poked. No acknowledgment is expected.
type Notifier interface {
	AttendanceChanged(eventID string)
}

// NopNotifier is the default when no bus is wired.
type NopNotifier struct{}

func (NopNotifier) AttendanceChanged(string) {}

// Config carries the store's tuning knobs; zero values get defaults.
type Config struct {
	PageSize       int           // roster page length, default 50
	SearchDebounce time.Duration // query settle window, default 500ms
	ListTTL        time.Duration // bulk listing cache TTL, default 30s
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = 500 * time.Millisecond
	}
	if c.ListTTL <= 0 {
		c.ListTTL = 30 * time.Second
	}
}

// Store is safe for concurrent use.
type Store struct {
	cfg      Config
	gw       Gateway
	cache    *cache.Cache
	res      *resolver.Resolver
	notifier Notifier
	eventID  string
	log      zerolog.Logger

	mu            sync.Mutex
	all           []types.Attendee // sorted bulk set
	roster        types.PagedRoster
	checkedIn     []types.Attendee
	searchResults []types.Attendee
	query         string
	searchMode    bool
	filter        types.Filter
	flags         types.ViewFlags

	// Overlap guards. fetchInFlight stops two full-roster fetches from both
	// appending; the sequence counters make stale completions discardable
	// regardless of completion order.
	fetchInFlight bool
	fetchSeq      uint64
	fetchApplied  uint64
	searchSeq     uint64
	searchApplied uint64

	debounce *time.Timer
	now      func() time.Time
}

func New(cfg Config, gw Gateway, c *cache.Cache, res *resolver.Resolver, notifier Notifier, eventID string, log zerolog.Logger) *Store {
	cfg.applyDefaults()
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Store{
		cfg:      cfg,
		gw:       gw,
		cache:    c,
		res:      res,
		notifier: notifier,
		eventID:  eventID,
		log:      log,
		now:      time.Now,
	}
}

func (s *Store) listKey() string { return cache.Key(s.eventID, "guests", "list") }

// ------------------------------
// Roster fetching
// ------------------------------

// FetchPage loads the roster up to and including page. reset (or page 1)
// replaces the roster and bypasses the cache; otherwise the page is appended
// by re-slicing the sorted bulk set, which cannot duplicate or skip entries.
// A completion older than the latest issued fetch is discarded wholesale.
func (s *Store) FetchPage(ctx context.Context, page int, reset bool) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	if s.fetchInFlight {
		s.mu.Unlock()
		return nil
	}
	s.fetchInFlight = true
	s.fetchSeq++
	seq := s.fetchSeq
	if reset {
		s.flags.Refreshing = true
	} else if page == 1 {
		s.flags.Loading = true
	} else {
		s.flags.LoadingMore = true
	}
	s.mu.Unlock()

	all, err := s.fetchBulk(ctx, reset)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchInFlight = false
	s.flags.Loading, s.flags.Refreshing, s.flags.LoadingMore = false, false, false
	if seq < s.fetchApplied {
		// A newer fetch already landed; applying this one would regress
		// currentPage/hasMore.
		s.log.Debug().Uint64("seq", seq).Msg("discarding stale roster fetch")
		staleDiscardsTotal.Inc()
		return nil
	}
	if err != nil {
		return err
	}
	s.fetchApplied = seq

	s.all = all
	if reset {
		page = 1
	}
	s.roster = slicePages(s.all, page, s.cfg.PageSize)
	s.reconcileLocked()
	return nil
}

// LoadMore appends the next roster page. Suspended while search mode is
// active and when a fetch is already running.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.searchMode || s.fetchInFlight || !s.roster.HasMore {
		s.mu.Unlock()
		return nil
	}
	next := s.roster.CurrentPage + 1
	s.mu.Unlock()
	return s.FetchPage(ctx, next, false)
}

// Refresh replaces the roster from the network and re-pulls the checked-in
// subset (pull-to-refresh path).
func (s *Store) Refresh(ctx context.Context) error {
	if err := s.FetchPage(ctx, 1, true); err != nil {
		return err
	}
	return s.FetchCheckedIn(ctx)
}

// FetchCheckedIn replaces the checked-in subset wholesale from the
// authoritative listing and immediately reconciles every view against it.
func (s *Store) FetchCheckedIn(ctx context.Context) error {
	raws, err := s.gw.ListGuests(ctx, s.eventID)
	if err != nil {
		return err
	}
	resolved := s.res.ResolveAll(raws)
	sortAttendees(resolved)
	s.cache.Set(s.listKey(), resolved, s.cfg.ListTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = resolved
	s.checkedIn = filterScanned(resolved)
	s.reconcileLocked()
	return nil
}

// fetchBulk returns the sorted bulk set, consulting the result cache first
// unless force is set. Cache hits skip the network but callers still run
// reconciliation afterwards.
func (s *Store) fetchBulk(ctx context.Context, force bool) ([]types.Attendee, error) {
	if !force {
		if v, ok := s.cache.Get(s.listKey()); ok {
			if list, ok := v.([]types.Attendee); ok {
				return list, nil
			}
		}
	}
	raws, err := s.gw.ListGuests(ctx, s.eventID)
	if err != nil {
		return nil, err
	}
	resolved := s.res.ResolveAll(raws)
	sortAttendees(resolved)
	s.cache.Set(s.listKey(), resolved, s.cfg.ListTTL)
	return resolved, nil
}

// ------------------------------
// Manual (non-QR) check-in / check-out
// ------------------------------

// CheckInGuest optimistically marks the guest present, then confirms with
// the backend. A confirmed failure rolls the optimistic flip back.
func (s *Store) CheckInGuest(ctx context.Context, guest types.Attendee) error {
	placeholder := "manual-" + uuid.NewString()[:8]
	s.applyLocal(guest, true, s.now(), placeholder)

	res, err := s.gw.ManualCheckIn(ctx, s.eventID, manualRef(guest))
	if err == nil && !res.Error {
		s.invalidateListings()
		s.notifier.AttendanceChanged(s.eventID)
		// Refresh replaces the provisional device-clock time with the
		// server's.
		return s.FetchCheckedIn(ctx)
	}

	s.applyLocal(guest, false, time.Time{}, "")
	optimisticRollbacks.Inc()
	if err != nil {
		return err
	}
	return fmt.Errorf("manual check-in rejected: %s", res.Message)
}

// CheckOutGuest optimistically marks the guest absent, then informs the
// backend. A failure is deliberately NOT rolled back: the operator passed
// the guest out, and silently reverting that would be worse than a missed
// server update. The failure is logged only.
func (s *Store) CheckOutGuest(ctx context.Context, guest types.Attendee) error {
	s.applyLocal(guest, false, time.Time{}, "")

	res, err := s.gw.ManualCheckOut(ctx, s.eventID, manualRef(guest))
	if err != nil || res.Error {
		msg := ""
		if res.Error {
			msg = res.Message
		}
		s.log.Warn().Err(err).Str("msg", msg).Str("guest", guest.Name).
			Msg("manual check-out not confirmed upstream, keeping local state")
		return nil
	}
	s.invalidateListings()
	s.notifier.AttendanceChanged(s.eventID)
	return s.FetchCheckedIn(ctx)
}

// AfterConfirmedScan invalidates the listing cache, pokes the refresh bus,
// and re-pulls the checked-in subset. Used after group fan-outs where the
// individual attendees are not locally known.
func (s *Store) AfterConfirmedScan(ctx context.Context) error {
	s.invalidateListings()
	s.notifier.AttendanceChanged(s.eventID)
	return s.FetchCheckedIn(ctx)
}

// ApplyScan folds a confirmed QR scan outcome into every view and
// invalidates the listing cache so the next fetch reflects it.
func (s *Store) ApplyScan(a types.Attendee) {
	s.applyLocal(a, a.ScannedIn, a.ScanInTime, a.ScanCode)
	s.invalidateListings()
	s.notifier.AttendanceChanged(s.eventID)
}

// invalidateListings drops only the memoized bulk listings for this event.
// Validation memos are left alone: those expire by TTL or an explicit
// ClearCache, never as a side effect of a scan landing.
func (s *Store) invalidateListings() {
	s.cache.Invalidate(cache.Key(s.eventID, "guests"))
}

// applyLocal flips the matching entry in every view, maintaining checked-in
// subset membership to match.
func (s *Store) applyLocal(guest types.Attendee, scannedIn bool, at time.Time, scanCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply := func(list []types.Attendee) {
		if i := resolver.FindMatch(guest, list); i >= 0 {
			list[i].ScannedIn = scannedIn
			list[i].ScanInTime = at
			list[i].ScanCode = scanCode
		}
	}
	apply(s.all)
	apply(s.roster.Attendees)
	apply(s.searchResults)

	if scannedIn {
		if resolver.FindMatch(guest, s.checkedIn) < 0 {
			g := guest
			g.ScannedIn = true
			g.ScanInTime = at
			g.ScanCode = scanCode
			s.checkedIn = append([]types.Attendee{g}, s.checkedIn...)
		}
	} else if i := resolver.FindMatch(guest, s.checkedIn); i >= 0 {
		s.checkedIn = append(s.checkedIn[:i], s.checkedIn[i+1:]...)
	}
}

// manualRef picks the strongest available key for the manual endpoints.
func manualRef(g types.Attendee) string {
	switch {
	case g.TicketIdentifier != "":
		return g.TicketIdentifier
	case g.ReferenceNum != "":
		return g.ReferenceNum
	default:
		return g.ID
	}
}

// ------------------------------
// Lifecycle
// ------------------------------

// ClearCache drops all memoized listing/validation results.
func (s *Store) ClearCache() { s.cache.Clear() }

// Close stops the pending search debounce, if any.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}
