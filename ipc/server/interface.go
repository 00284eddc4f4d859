package server

import (
	"context"
	"net"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
)

// --------------------------------------------------------------------------
// Callback Hooks
// --------------------------------------------------------------------------

// AuthenticateFunc decides whether an accepted connection may start a
// session. It runs before any payload is read and may block (e.g. for an
// external credential check). Returning false drops the connection without
// ever invoking the message handler.
type AuthenticateFunc func(ctx context.Context, conn *connection.Connection) bool

// MessageHandleFunc consumes one framed message. It is invoked sequentially
// per connection, in arrival order.
type MessageHandleFunc func(ctx context.Context, msg *connection.Message)

// SessionObserverFunc is notified when a session finishes. err is nil for a
// clean end-of-stream, or one of the taxonomy errors (common.ErrAuthRejected,
// common.ErrMessageLimit, ...) respectively a context error for cancelled
// sessions.
type SessionObserverFunc func(conn *connection.Connection, err error)

// --------------------------------------------------------------------------
// Server Connector (dependency injection for transports)
// --------------------------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener for the configured endpoint and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// ExtractIdentity derives the peer identity of an accepted connection
	ExtractIdentity(conn net.Conn) (connection.Identity, error)

	// Teardown releases transport resources after the listener is closed
	// (e.g. removal of the filesystem socket node)
	Teardown(config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// IIPCServer is the interface of the IPC server core. Hooks must be
// registered before Serve is called.
type IIPCServer interface {
	// RegisterAuthenticator sets the authentication hook (default: accept all)
	RegisterAuthenticator(auth AuthenticateFunc)

	// RegisterMessageHandler sets the message consumer (default: log echo)
	RegisterMessageHandler(handler MessageHandleFunc)

	// RegisterSessionObserver sets an optional session outcome observer
	RegisterSessionObserver(observer SessionObserverFunc)

	// Serve listens on the configured endpoint and runs the accept loop. It
	// blocks until Close is called (returning common.ErrServerClosed) or the
	// listener fails. A bind failure is reported as common.ErrListenerSetup.
	Serve(config common.ServerConfig) error

	// SendMessage writes a payload to one or more connections. Stale targets
	// are reported via the joined error, healthy targets are still served.
	SendMessage(payload []byte, conns ...*connection.Connection) error

	// Pool exposes the connection pool for observability
	Pool() *connection.Pool

	// Close cancels all sessions, stops the listener, waits for the session
	// goroutines to finish and tears down transport resources.
	Close() error
}
