package gateway

import "fmt"

// errCategory decides whether the bounded retry loop on the bulk listing may
// try again. Mutating calls never retry, so they never consult this.
type errCategory int

const (
	recoverable errCategory = iota
	irrecoverable
)

func (c errCategory) String() string {
	if c == irrecoverable {
		return "irrecoverable"
	}
	return "recoverable"
}

// classifiedError carries retry metadata alongside the underlying failure.
type classifiedError struct {
	category   errCategory
	statusCode int
	underlying error
}

func (e *classifiedError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.category, e.statusCode, e.underlying)
	}
	return fmt.Sprintf("[%s] %v", e.category, e.underlying)
}

func (e *classifiedError) Unwrap() error { return e.underlying }

// httpError classifies an unexpected status: 408 and 429 and all 5xx are
// transient, every other 4xx is permanent.
func httpError(op string, status int) *classifiedError {
	cat := recoverable
	if status >= 400 && status < 500 && status != 408 && status != 429 {
		cat = irrecoverable
	}
	return &classifiedError{
		category:   cat,
		statusCode: status,
		underlying: fmt.Errorf("%s: status %d", op, status),
	}
}

// networkError wraps a transport-level failure; always retryable.
func networkError(op string, err error) *classifiedError {
	return &classifiedError{
		category:   recoverable,
		underlying: fmt.Errorf("%s: %w", op, err),
	}
}

func isRecoverable(err error) bool {
	if ce, ok := err.(*classifiedError); ok {
		return ce.category == recoverable
	}
	// Unknown errors (ctx cancellation aside) are treated as transient.
	return true
}
