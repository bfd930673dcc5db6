package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatekit/checkin/internal/types"
)

func TestSameTicket_TicketIdentifierTier(t *testing.T) {
	a := types.Attendee{ID: "1", TicketIdentifier: "tkt-ABC"}
	b := types.Attendee{ID: "2", TicketIdentifier: "TKT-abc"}
	assert.True(t, SameTicket(a, b), "identifier match is case-insensitive and beats differing ids")
	assert.True(t, SameTicket(b, a), "match is order-independent")

	c := types.Attendee{ID: "1", TicketIdentifier: "TKT-XYZ"}
	assert.False(t, SameTicket(a, c), "identifier mismatch is terminal even when ids agree")
}

func TestSameTicket_IDTier(t *testing.T) {
	a := types.Attendee{ID: "g-7"}
	b := types.Attendee{ID: "g-7", Email: "other@x.y"}
	assert.True(t, SameTicket(a, b))

	assert.False(t, SameTicket(types.Attendee{ID: ""}, types.Attendee{ID: ""}), "empty ids never match")
}

func TestSameTicket_NameEmailTier(t *testing.T) {
	a := types.Attendee{Name: "Jane Doe", Email: "JANE@example.com"}
	b := types.Attendee{Name: "jane doe", Email: "jane@example.com"}
	assert.True(t, SameTicket(a, b))

	assert.False(t, SameTicket(
		types.Attendee{Name: "Jane Doe", Email: ""},
		types.Attendee{Name: "Jane Doe", Email: ""},
	), "name alone is too loose, email must be non-empty")
}

func TestFindMatch(t *testing.T) {
	list := []types.Attendee{
		{ID: "a", TicketIdentifier: "T1"},
		{ID: "b", TicketIdentifier: "T2"},
	}
	assert.Equal(t, 1, FindMatch(types.Attendee{TicketIdentifier: "t2"}, list))
	assert.Equal(t, -1, FindMatch(types.Attendee{TicketIdentifier: "t9"}, list))
}
