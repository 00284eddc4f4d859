package connection

import "time"

// --------------------------------------------------------------------------
// Message
// --------------------------------------------------------------------------

// Message bundles one logical unit of received payload with a reference to
// the connection it arrived on. A message is created per read event and is
// immutable once constructed.
//
// The meaning of Data depends on the sender's framing mode: a complete
// logical message in text mode, one chunk in stream mode, one record in
// persistent mode.
type Message struct {
	// Data is the raw payload
	Data []byte

	// Sender is a non-owning reference to the originating connection. It may
	// be used for replies and session-state inspection but never to manage
	// the connection's lifetime.
	Sender *Connection

	// ReceivedAt is the time the message was framed
	ReceivedAt time.Time
}

// NewMessage creates a message for a read event
func NewMessage(data []byte, sender *Connection) *Message {
	return &Message{
		Data:       data,
		Sender:     sender,
		ReceivedAt: time.Now(),
	}
}
