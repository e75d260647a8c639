package flight

import (
	"fmt"

	"github.com/hugr-lab/framebind/internal/msgpack"
	"github.com/hugr-lab/framebind/value"
)

// TicketData represents the decoded content of a Flight ticket: a lazy-frame
// token and the session that issued it.
type TicketData struct {
	// Session is the issuing session id; empty means the default session.
	Session string `msgpack:"session"`

	// Handle is the lazy-frame token id.
	Handle uint64 `msgpack:"handle"`
}

// EncodeTicket creates a ticket for the lazy frame behind token.
func EncodeTicket(session string, token value.Value) ([]byte, error) {
	kind, id, err := token.Token()
	if err != nil {
		return nil, fmt.Errorf("ticket: %w", err)
	}
	if kind != "lazy" {
		return nil, fmt.Errorf("ticket: token is %q, want lazy", kind)
	}

	data, err := msgpack.Encode(TicketData{Session: session, Handle: id})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a ticket created by EncodeTicket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	var ticket TicketData
	if err := msgpack.Decode(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if ticket.Handle == 0 {
		return nil, fmt.Errorf("decoded ticket has no handle")
	}
	return &ticket, nil
}
