package checkin

import (
	"context"

	"github.com/gatekit/checkin/internal/gateway"
)

// Session is the external auth collaborator: it holds the login state the
// app bootstrapped outside this engine. The gateway calls Login when no
// token is present and Invalidate+Login exactly once after a 401.
type Session = gateway.Session

// StaticSession is a Session with a fixed token, for tests and tooling
// against backends that accept long-lived keys. Login re-returns the same
// token, so a backend that genuinely rejects it fails fast instead of
// looping.
type StaticSession struct {
	APIToken string
}

func (s StaticSession) Token(ctx context.Context) (string, error) { return s.APIToken, nil }
func (s StaticSession) Login(ctx context.Context) (string, error) { return s.APIToken, nil }
func (s StaticSession) Invalidate()                               {}
