// Package gateway is the only component that talks to the remote ticketing
// API. It attaches auth, normalizes the API's inconsistent response
// envelopes, classifies free-text rejections, and applies the single
// 401-refresh-retry rule. Expected failures never escape as Go errors; they
// come back as normalized ValidationResults.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/gatekit/checkin/internal/cache"
	"github.com/gatekit/checkin/internal/resolver"
	"github.com/gatekit/checkin/internal/types"
)

// ErrNotAuthenticated wraps a failed login attempt: the session could not
// produce a usable token, so no request went out.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session is the external auth collaborator. The gateway requests a login
// when no token is present and discards-then-retries exactly once on a 401;
// a second 401 surfaces to the caller.
type Session interface {
	// Token returns the current auth token, or "" when not authenticated.
	Token(ctx context.Context) (string, error)
	// Login (re-)authenticates and returns a fresh token.
	Login(ctx context.Context) (string, error)
	// Invalidate discards the cached token after a 401.
	Invalidate()
}

// Config carries the gateway's tuning knobs; zero values get defaults.
type Config struct {
	Rules         []Rule        // error classification table, nil means DefaultRules
	ListRetries   int           // additional attempts for the bulk listing GET
	ValidationTTL time.Duration // validate memo lifetime, default 30s
}

func (c *Config) applyDefaults() {
	if c.Rules == nil {
		c.Rules = DefaultRules()
	}
	if c.ListRetries < 0 {
		c.ListRetries = 0
	}
	if c.ValidationTTL <= 0 {
		c.ValidationTTL = 30 * time.Second
	}
}

// Gateway issues all remote calls for one ticketing backend.
type Gateway struct {
	http          *http.Client
	baseURL       string
	session       Session
	results       *cache.Cache
	rules         []Rule
	listRetries   uint64
	validationTTL time.Duration
	log           zerolog.Logger
}

// New constructs a Gateway. results is the shared result cache (a private
// one is created when nil); mutating calls are never retried beyond the 401
// pass.
func New(httpClient *http.Client, baseURL string, session Session, results *cache.Cache, cfg Config, log zerolog.Logger) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if results == nil {
		results = cache.New()
	}
	cfg.applyDefaults()
	return &Gateway{
		http:          httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		session:       session,
		results:       results,
		rules:         cfg.Rules,
		listRetries:   uint64(cfg.ListRetries),
		validationTTL: cfg.ValidationTTL,
		log:           log,
	}
}

// Classify maps a rejected validation to its operator-facing kind.
func (g *Gateway) Classify(res types.ValidationResult) types.ErrorKind {
	if !res.Error {
		return types.KindNone
	}
	return Classify(g.rules, res.Status, res.Message)
}

// ------------------------------
// Remote capabilities
// ------------------------------

// Validate checks a scanned code without mutating anything. In scan-out mode
// the upstream is told so it validates against the checked-in set.
//
// Results are memoized per (event, code, mode) for the validation TTL, so a
// rapid re-scan of the same code does not hit the network again. Entries
// expire by TTL or an explicit cache clear, never eagerly.
func (g *Gateway) Validate(ctx context.Context, eventID, code string, mode types.ScanMode) (types.ValidationResult, error) {
	key := cache.Key(eventID, "validate", code, mode.String())
	if v, ok := g.results.Get(key); ok {
		if res, ok := v.(types.ValidationResult); ok {
			return res, nil
		}
	}
	q := url.Values{"code": {code}}
	if mode == types.ModeScanOut {
		q.Set("mode", "unscan")
	}
	res, err := g.validationCall(ctx, "validate", http.MethodGet, g.eventPath(eventID, "tickets/validate"), q, nil)
	if err == nil {
		g.results.Set(key, res, g.validationTTL)
	}
	return res, err
}

// ScanIn checks the ticket in.
func (g *Gateway) ScanIn(ctx context.Context, eventID, code string) (types.ValidationResult, error) {
	body := map[string]any{"code": code}
	return g.validationCall(ctx, "scan_in", http.MethodPost, g.eventPath(eventID, "tickets/scan"), nil, body)
}

// ScanOut reverses a check-in via the unscan flag on the scan endpoint.
func (g *Gateway) ScanOut(ctx context.Context, eventID, code string) (types.ValidationResult, error) {
	body := map[string]any{"code": code, "unscan": true}
	return g.validationCall(ctx, "scan_out", http.MethodPost, g.eventPath(eventID, "tickets/scan"), nil, body)
}

// ManualCheckIn records attendance without a QR code (list tap).
func (g *Gateway) ManualCheckIn(ctx context.Context, eventID, ref string) (types.ValidationResult, error) {
	body := map[string]any{"reference": ref}
	return g.validationCall(ctx, "manual_checkin", http.MethodPost, g.eventPath(eventID, "guests/checkin"), nil, body)
}

// ManualCheckOut reverses a manual check-in.
func (g *Gateway) ManualCheckOut(ctx context.Context, eventID, ref string) (types.ValidationResult, error) {
	body := map[string]any{"reference": ref}
	return g.validationCall(ctx, "manual_checkout", http.MethodPost, g.eventPath(eventID, "guests/checkout"), nil, body)
}

// ListGuests fetches the full guest set for the event. This is the only bulk
// source of truth; the checked-in subset and search results are derived from
// it client-side so the three views can never diverge on membership.
// Idempotent, so transient failures retry with exponential backoff.
func (g *Gateway) ListGuests(ctx context.Context, eventID string) ([]types.RawRecord, error) {
	var records []types.RawRecord
	op := func() error {
		status, body, err := g.do(ctx, http.MethodGet, g.eventPath(eventID, "guests"), nil, nil)
		if err != nil {
			return networkError("list guests", err)
		}
		if status != http.StatusOK {
			herr := httpError("list guests", status)
			if !isRecoverable(herr) {
				return backoff.Permanent(herr)
			}
			return herr
		}
		records = decodeRecords(body)
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.listRetries), ctx)
	if err := backoff.RetryNotify(op, bo, func(err error, wait time.Duration) {
		g.log.Warn().Err(err).Dur("wait", wait).Msg("list guests retrying")
	}); err != nil {
		requestsTotal.WithLabelValues("list_guests", "error").Inc()
		return nil, err
	}
	requestsTotal.WithLabelValues("list_guests", "ok").Inc()
	return records, nil
}

// ListCheckedIn returns the server-confirmed checked-in subset, derived from
// the bulk listing through the resolver's shared membership predicate.
func (g *Gateway) ListCheckedIn(ctx context.Context, eventID string) ([]types.RawRecord, error) {
	all, err := g.ListGuests(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]types.RawRecord, 0, len(all))
	for _, rec := range all {
		if resolver.IsCheckedIn(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Search returns guests matching a free-text query, derived from the bulk
// listing through the resolver's shared membership predicate. Relevance
// ordering is the store's concern.
func (g *Gateway) Search(ctx context.Context, eventID, query string) ([]types.RawRecord, error) {
	all, err := g.ListGuests(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]types.RawRecord, 0, len(all))
	for _, rec := range all {
		if resolver.MatchesQuery(rec, query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ------------------------------
// Transport plumbing
// ------------------------------

func (g *Gateway) eventPath(eventID, suffix string) string {
	return fmt.Sprintf("/api/events/%s/%s", url.PathEscape(eventID), suffix)
}

// validationCall runs a request whose body normalizes to a ValidationResult.
// Expected rejections (4xx with a message) are NOT errors: they come back in
// the result for classification. Only transport failures return err.
func (g *Gateway) validationCall(ctx context.Context, op, method, path string, q url.Values, body any) (types.ValidationResult, error) {
	status, respBody, err := g.do(ctx, method, path, q, body)
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		return types.ValidationResult{}, networkError(op, err)
	}
	res := decodeValidation(status, respBody)
	outcome := "ok"
	if res.Error {
		outcome = "rejected"
	}
	requestsTotal.WithLabelValues(op, outcome).Inc()
	return res, nil
}

// do issues one HTTP request with the auth token attached, refreshing the
// token and retrying exactly once on 401. A second 401 is surfaced as-is.
func (g *Gateway) do(ctx context.Context, method, path string, q url.Values, body any) (int, []byte, error) {
	token, err := g.token(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := g.doOnce(ctx, method, path, q, body, token)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, respBody, nil
	}

	g.log.Info().Str("path", path).Msg("401 from upstream, refreshing token")
	authRefreshTotal.Inc()
	g.session.Invalidate()
	token, err = g.session.Login(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: re-login after 401: %v", ErrNotAuthenticated, err)
	}
	return g.doOnce(ctx, method, path, q, body, token)
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	if g.session == nil {
		return "", fmt.Errorf("no session configured")
	}
	token, err := g.session.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		// Not logged in yet; attempt one login before failing.
		token, err = g.session.Login(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
	}
	return token, nil
}

func (g *Gateway) doOnce(ctx context.Context, method, path string, q url.Values, body any, token string) (int, []byte, error) {
	u := g.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
