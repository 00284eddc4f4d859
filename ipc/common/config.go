package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport tuning structs
// --------------------------------------------------------------------------

// SocketConf holds kernel socket buffer tuning shared by all transports
type SocketConf struct {
	// WriteBufferSize is the kernel write buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the kernel read buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds tuning options that only apply to TCP connections
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive probes with the given period (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets the linger timeout (<0 = OS default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// IPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport-facing part of a server configuration
type ServerTransportConfig struct {
	// Endpoint is the bind target: a socket path for unix, host:port for tcp
	Endpoint string

	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters for an IPC server.
type ServerConfig struct {
	Transport ServerTransportConfig

	// ReadLimit is the maximum number of payload bytes accepted for one
	// discrete (text mode) message. 0 means unlimited.
	ReadLimit uint64

	// ChunkSize is the maximum number of bytes delivered per message in
	// stream mode. 0 selects the default chunk size.
	ChunkSize uint64

	// MaxConnections bounds the number of concurrently running sessions.
	// 0 means unbounded.
	MaxConnections int

	// DefaultMode is the framing mode new connections start in. A session
	// may change its own mode via the command sub-protocol.
	DefaultMode ConnectionMode

	// TimeoutSecond is the per-operation I/O deadline in seconds (0 = none)
	TimeoutSecond int64

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("IPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Default Mode", c.DefaultMode.String())
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Limits")
	if c.ReadLimit > 0 {
		addField("Read Limit", fmt.Sprintf("%d bytes", c.ReadLimit))
	} else {
		addField("Read Limit", "unlimited")
	}
	if c.ChunkSize > 0 {
		addField("Chunk Size", fmt.Sprintf("%d bytes", c.ChunkSize))
	} else {
		addField("Chunk Size", "default")
	}
	if c.MaxConnections > 0 {
		addField("Max Connections", fmt.Sprintf("%d", c.MaxConnections))
	} else {
		addField("Max Connections", "unbounded")
	}

	addSection("Socket Tuning")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// IPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport-facing part of a client configuration
type ClientTransportConfig struct {
	// Endpoint is the dial target: a socket path for unix, host:port for tcp
	Endpoint string
	// RetryCount is how many times a failed request is retried
	RetryCount int

	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters for an IPC client.
type ClientConfig struct {
	Transport ClientTransportConfig

	// Mode is the framing mode the client negotiates for its sessions
	Mode ConnectionMode

	// TimeoutSecond is the per-operation I/O deadline in seconds (0 = none)
	TimeoutSecond int64
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Mode", c.Mode.String())
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", fmt.Sprintf("%d", c.Transport.RetryCount))

	return sb.String()
}
