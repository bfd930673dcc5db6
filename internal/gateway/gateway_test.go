package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatekit/checkin/internal/cache"
	"github.com/gatekit/checkin/internal/types"
)

type fakeSession struct {
	token       string
	loginToken  string
	logins      int32
	invalidates int32
	loginErr    error
}

func (s *fakeSession) Token(ctx context.Context) (string, error) { return s.token, nil }

func (s *fakeSession) Login(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.logins, 1)
	if s.loginErr != nil {
		return "", s.loginErr
	}
	s.token = s.loginToken
	return s.loginToken, nil
}

func (s *fakeSession) Invalidate() {
	atomic.AddInt32(&s.invalidates, 1)
	s.token = ""
}

func newTestGateway(t *testing.T, handler http.Handler, sess Session) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.Client(), srv.URL, sess, cache.New(), Config{ListRetries: 1}, zerolog.Nop()), srv
}

func TestValidate_SendsCodeAndMode(t *testing.T) {
	t.Parallel()
	var gotQuery, gotAuth string
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{"error": false, "msg": "ok"})
	}), &fakeSession{token: "tok"})

	res, err := gw.Validate(context.Background(), "ev1", "ABC", types.ModeScanOut)
	if err != nil || res.Error {
		t.Fatalf("unexpected: %+v err=%v", res, err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("missing auth header: %q", gotAuth)
	}
	if gotQuery != "code=ABC&mode=unscan" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
}

func TestValidate_MemoizesPerCodeAndMode(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": false, "msg": "ok", "info": map[string]any{"fullname": "Jane"}})
	}))
	t.Cleanup(srv.Close)

	const ttl = 30 * time.Second
	now := time.Now()
	clock := func() time.Time { return now }
	gw := New(srv.Client(), srv.URL, &fakeSession{token: "tok"}, cache.NewWithClock(clock), Config{ValidationTTL: ttl}, zerolog.Nop())

	first, err := gw.Validate(context.Background(), "ev1", "T1", types.ModeScanIn)
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("first validate must hit the network once, got %d", hits)
	}

	// A different code is a different memo entry.
	if _, err := gw.Validate(context.Background(), "ev1", "T2", types.ModeScanIn); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("distinct code must not share the memo, got %d hits", hits)
	}

	// Re-validate T1 just inside the TTL: served from the memo, no network.
	now = now.Add(ttl - time.Millisecond)
	cached, err := gw.Validate(context.Background(), "ev1", "T1", types.ModeScanIn)
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("validate inside the TTL must not hit the network, got %d hits", hits)
	}
	if cached.Info["fullname"] != first.Info["fullname"] {
		t.Fatalf("memoized result must match the original: %+v vs %+v", cached, first)
	}

	// Mode is part of the memo key.
	if _, err := gw.Validate(context.Background(), "ev1", "T1", types.ModeScanOut); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("scan-out must not reuse the scan-in memo, got %d hits", hits)
	}

	// Past the TTL the entry expires and the network is consulted again.
	now = now.Add(2 * time.Millisecond)
	if _, err := gw.Validate(context.Background(), "ev1", "T1", types.ModeScanIn); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != 4 {
		t.Fatalf("expired memo must refetch, got %d hits", hits)
	}
}

func TestScanOut_SetsUnscanFlag(t *testing.T) {
	t.Parallel()
	var body map[string]any
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": false})
	}), &fakeSession{token: "tok"})

	if _, err := gw.ScanOut(context.Background(), "ev1", "ABC"); err != nil {
		t.Fatal(err)
	}
	if body["unscan"] != true || body["code"] != "ABC" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDo_LoginWhenNoToken(t *testing.T) {
	t.Parallel()
	sess := &fakeSession{token: "", loginToken: "fresh"}
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": false})
	}), sess)

	res, err := gw.Validate(context.Background(), "ev1", "X", types.ModeScanIn)
	if err != nil || res.Error {
		t.Fatalf("unexpected: %+v err=%v", res, err)
	}
	if got := atomic.LoadInt32(&sess.logins); got != 1 {
		t.Fatalf("expected exactly one login, got %d", got)
	}
}

func TestDo_401RefreshRetriesOnce(t *testing.T) {
	t.Parallel()
	var calls int32
	sess := &fakeSession{token: "stale", loginToken: "fresh"}
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": false, "msg": "ok"})
	}), sess)

	res, err := gw.Validate(context.Background(), "ev1", "X", types.ModeScanIn)
	if err != nil || res.Error {
		t.Fatalf("unexpected: %+v err=%v", res, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls)
	}
	if atomic.LoadInt32(&sess.invalidates) != 1 {
		t.Fatalf("expected the stale token to be invalidated once")
	}
}

func TestDo_SecondUnauthorizedSurfaces(t *testing.T) {
	t.Parallel()
	sess := &fakeSession{token: "bad", loginToken: "still-bad"}
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), sess)

	res, err := gw.Validate(context.Background(), "ev1", "X", types.ModeScanIn)
	if err != nil {
		t.Fatalf("a second 401 is an expected failure, not a transport error: %v", err)
	}
	if !res.Error || res.Status != http.StatusUnauthorized {
		t.Fatalf("expected normalized 401 result, got %+v", res)
	}
	if got := atomic.LoadInt32(&sess.logins); got != 1 {
		t.Fatalf("the 401 retry is bounded to one re-auth, got %d logins", got)
	}
}

func TestListGuests_RetriesTransientFailure(t *testing.T) {
	t.Parallel()
	var calls int32
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"guests": []map[string]any{{"name": "A"}, {"name": "B"}}})
	}), &fakeSession{token: "tok"})

	recs, err := gw.ListGuests(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 records, got %d", len(recs))
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one retry after 500, got %d calls", calls)
	}
}

func TestListGuests_MalformedDegradesToEmpty(t *testing.T) {
	t.Parallel()
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"totally unexpected"`))
	}), &fakeSession{token: "tok"})

	recs, err := gw.ListGuests(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if recs == nil || len(recs) != 0 {
		t.Fatalf("shape mismatch must degrade to empty, got %v", recs)
	}
}

func TestListCheckedIn_FiltersBulkSet(t *testing.T) {
	t.Parallel()
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "In", "checkedin": 1},
			{"name": "Out", "checkedin": 0},
		})
	}), &fakeSession{token: "tok"})

	recs, err := gw.ListCheckedIn(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0]["name"] != "In" {
		t.Fatalf("unexpected subset: %v", recs)
	}
}

func TestSearch_MatchesAcrossFields(t *testing.T) {
	t.Parallel()
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "Jane Doe", "email": "jane@x.y"},
			{"name": "Bob", "ticket_identifier": "JANE-99"},
			{"name": "Carol", "email": "c@x.y"},
		})
	}), &fakeSession{token: "tok"})

	recs, err := gw.Search(context.Background(), "ev1", "jane")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 matches, got %d", len(recs))
	}
}
