package common

// --------------------------------------------------------------------------
// Command Sub-Protocol Wire Format
// --------------------------------------------------------------------------

// A command frame is a constant-width 8 byte header that may precede the
// payload of a session:
//
//	'!' 'C' 'M' 'D' <digit> <digit> <digit> '\n'
//
// The parse is advisory: bytes that do not form a valid header in their
// entirety are ordinary payload and must be handed to the framing loop
// untouched. A payload that genuinely starts with a valid 8 byte header is
// indistinguishable from a command and will be consumed as one; callers that
// need such payloads must escape them at a higher layer.

const (
	// CommandHeaderSize is the fixed width of a command frame in bytes
	CommandHeaderSize = 8

	commandMagic = "!CMD"
)

// Command is one of the enumerated in-band session commands
type Command uint16

const (
	// CmdPing requests a CmdPong reply. It does not terminate the session.
	CmdPing Command = 100
	// CmdPong acknowledges a CmdPing. No reply is sent.
	CmdPong Command = 101
	// CmdSetStream switches the connection to ModeStreamData for all
	// subsequent payload framing.
	CmdSetStream Command = 110
	// CmdSetData switches the connection to ModeTextData for all
	// subsequent payload framing.
	CmdSetData Command = 111
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdPing:
		return "PING"
	case CmdPong:
		return "PONG"
	case CmdSetStream:
		return "SET_STREAM"
	case CmdSetData:
		return "SET_DATA"
	default:
		return "UNKNOWN"
	}
}

// Supported reports whether the code maps to a known command
func (c Command) Supported() bool {
	switch c {
	case CmdPing, CmdPong, CmdSetStream, CmdSetData:
		return true
	default:
		return false
	}
}

// EncodeCommand renders the 8 byte wire header for a command
func EncodeCommand(cmd Command) []byte {
	buf := make([]byte, CommandHeaderSize)
	copy(buf, commandMagic)
	buf[4] = '0' + byte(cmd/100%10)
	buf[5] = '0' + byte(cmd/10%10)
	buf[6] = '0' + byte(cmd%10)
	buf[7] = '\n'
	return buf
}

// IsCommandPrefix reports whether buf is a prefix (or the entirety) of a
// well-formed command header. The sniff in the session engine uses this to
// wait for further bytes only while the buffered prefix can still complete
// a header; any diverging byte releases the data to the framing loop.
func IsCommandPrefix(buf []byte) bool {
	if len(buf) > CommandHeaderSize {
		return false
	}
	for i, b := range buf {
		switch {
		case i < len(commandMagic):
			if b != commandMagic[i] {
				return false
			}
		case i < CommandHeaderSize-1:
			if b < '0' || b > '9' {
				return false
			}
		default:
			if b != '\n' {
				return false
			}
		}
	}
	return true
}

// ParseCommand attempts to decode a command header from buf. It returns
// (command, true) only if buf holds a complete, well-formed header for a
// supported command. Any other input returns false and must be treated as
// payload bytes.
func ParseCommand(buf []byte) (Command, bool) {
	if len(buf) != CommandHeaderSize {
		return 0, false
	}
	if string(buf[:4]) != commandMagic || buf[7] != '\n' {
		return 0, false
	}
	code := Command(0)
	for _, b := range buf[4:7] {
		if b < '0' || b > '9' {
			return 0, false
		}
		code = code*10 + Command(b-'0')
	}
	if !code.Supported() {
		return 0, false
	}
	return code, true
}
