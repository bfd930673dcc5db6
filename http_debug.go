package checkin

import (
	"net/http"
	"net/http/httputil"
	"os"

	"github.com/rs/zerolog/log"
)

// debugTransport dumps each HTTP request/response for troubleshooting the
// upstream ticketing API: envelope-shape surprises, auth failures, and
// latency at the door are all easier to diagnose with full traffic in hand.
//
// Dumps include the Authorization header and guest data, so only enable this
// in development or short-lived production debugging sessions.
type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := dt.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

// debugLoggingRequested checks CHECKIN_DEBUG=true (engine-specific) or
// DEBUG=true (general development flag).
func debugLoggingRequested() bool {
	return os.Getenv("CHECKIN_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
