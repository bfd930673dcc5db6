package checkin

// This file defines functional options that configure the Client during
// construction. Keeping them in a standalone file avoids cluttering
// client.go and makes it easy to discover all available knobs at a glance.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction in New. Options run before
// the internal components are built, so they may replace the Config, the
// error-classification rules, or the transport wholesale.
type Option func(*Client) error

// WithConfig replaces the environment-loaded Config.
func WithConfig(cfg Config) Option {
	return func(c *Client) error {
		c.cfg = cfg
		c.http.Timeout = cfg.HTTPTimeout
		return nil
	}
}

// WithHTTPTimeout sets the underlying http.Client Timeout.
//
// Prefer per-request context deadlines where possible; this timeout is a
// coarse safety net bounding the total time of a single HTTP request. The
// value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithLogger routes engine logs through the given logger instead of
// discarding them.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithNotifier wires the refresh/notification bus poked after confirmed
// scans and manual operations. Fire-and-forget; the engine never waits on it.
func WithNotifier(n Notifier) Option {
	return func(c *Client) error {
		if n == nil {
			return fmt.Errorf("notifier cannot be nil")
		}
		c.notifier = n
		return nil
	}
}

// WithErrorRules replaces the (status, substring) to kind table used to
// classify the upstream's free-text rejections. Useful when an upstream
// deployment rewords its messages.
func WithErrorRules(rules []Rule) Option {
	return func(c *Client) error {
		if len(rules) == 0 {
			return fmt.Errorf("error rules cannot be empty")
		}
		c.rules = rules
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request/response is
// dumped when enabled is true.
//
// Do not enable this option in production environments: dumps include auth
// headers and guest data.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.Transport = &debugTransport{base: c.http.Transport}
		}
		return nil
	}
}
