package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Connection Modes
// --------------------------------------------------------------------------

// ConnectionMode selects how the payload bytes of a session are framed
// into messages.
type ConnectionMode uint8

const (
	// ModeTextData frames all bytes until end-of-stream as a single message.
	ModeTextData ConnectionMode = iota
	// ModeStreamData frames every read of up to ChunkSize bytes as one message.
	ModeStreamData
	// ModePersistent frames newline-delimited records as messages and keeps
	// the connection open between records.
	ModePersistent
)

// String returns the textual name of the mode as used in configuration
func (m ConnectionMode) String() string {
	switch m {
	case ModeTextData:
		return "text"
	case ModeStreamData:
		return "stream"
	case ModePersistent:
		return "persistent"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseConnectionMode converts a textual mode name to a ConnectionMode
func ParseConnectionMode(s string) (ConnectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "data":
		return ModeTextData, nil
	case "stream":
		return ModeStreamData, nil
	case "persistent":
		return ModePersistent, nil
	default:
		return ModeTextData, fmt.Errorf("invalid connection mode: %s. must be one of text, stream, persistent", s)
	}
}
