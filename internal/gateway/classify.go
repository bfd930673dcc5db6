package gateway

import (
	"strings"

	"github.com/gatekit/checkin/internal/types"
)

// The upstream has no machine-readable error codes; rejections are
// classified from free-form message text. The rules live in a table injected
// at construction so they can be updated without touching control flow when
// the upstream rewords a message.

// Rule maps a response to an ErrorKind. Status 0 matches any status; the
// substring match is case-insensitive.
type Rule struct {
	Status    int
	Substring string
	Kind      types.ErrorKind
}

// DefaultRules covers the message phrasings observed from the upstream API.
// First match wins, so the more specific phrases come first.
func DefaultRules() []Rule {
	return []Rule{
		{Substring: "already checked", Kind: types.KindAlreadyScanned},
		{Substring: "already scanned", Kind: types.KindAlreadyScanned},
		{Substring: "already", Kind: types.KindAlreadyScanned},
		{Substring: "not checked in", Kind: types.KindNotCheckedIn},
		{Substring: "not scanned", Kind: types.KindNotCheckedIn},
		{Substring: "not found", Kind: types.KindInvalidTicket},
		{Substring: "invalid", Kind: types.KindInvalidTicket},
		{Substring: "expired", Kind: types.KindInvalidTicket},
		{Status: 404, Kind: types.KindInvalidTicket},
	}
}

// Classify returns the kind for a rejected validation, or KindGeneral when
// no rule matches.
func Classify(rules []Rule, status int, msg string) types.ErrorKind {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		if r.Status != 0 && r.Status != status {
			continue
		}
		if r.Substring != "" && !strings.Contains(lower, r.Substring) {
			continue
		}
		return r.Kind
	}
	return types.KindGeneral
}
