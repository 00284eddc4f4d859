package common

import "errors"

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrListenerSetup is returned when the server cannot bind or listen on
	// its endpoint. It is fatal to server startup and is never retried.
	ErrListenerSetup = errors.New("ipc: failed to set up listener")

	// ErrAuthRejected is the session outcome when the authentication hook
	// returns false. The session closes without any handler invocation.
	ErrAuthRejected = errors.New("ipc: connection authentication rejected")

	// ErrMessageLimit is the session outcome when a discrete-mode message
	// exceeds the configured read limit before end-of-stream.
	ErrMessageLimit = errors.New("ipc: message length exceeds configured limit")

	// ErrStaleConnection is returned by the send path when the target
	// connection is already closing or closed.
	ErrStaleConnection = errors.New("ipc: connection is closing or closed")

	// ErrServerClosed is returned by Serve after a clean shutdown via Close.
	ErrServerClosed = errors.New("ipc: server closed")
)
