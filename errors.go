package checkin

import (
	"errors"

	"github.com/gatekit/checkin/internal/gateway"
	"github.com/gatekit/checkin/internal/scan"
)

// ErrScanInFlight is returned by HandleScan while a previous scan pass has
// not resolved; the new trigger is ignored, not queued.
var ErrScanInFlight = scan.ErrScanInFlight

// ErrNotAuthenticated wraps operations that failed because the Session could
// not produce a usable token.
var ErrNotAuthenticated = gateway.ErrNotAuthenticated

// IsScanInFlight reports whether err is the in-flight rejection.
func IsScanInFlight(err error) bool { return errors.Is(err, ErrScanInFlight) }
