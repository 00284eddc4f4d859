// Package server implements the core of the IPC server: the accept loop,
// capacity enforcement via the connection pool, and the per-connection
// session state machine with its framing modes. It is independent of the
// specific network protocol (Unix sockets, TCP) and is extended with
// protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic server core with pluggable transport connectors
//   - One goroutine per session with structured, cooperative cancellation
//   - The in-band command sub-protocol (PING/PONG, mode switching)
//   - Three payload framing disciplines (text, stream, persistent)
//
// Key Components:
//
//   - IIPCServer: The server facade. Hooks for authentication, message
//     handling and session outcome observation are registered before Serve;
//     Close cancels all sessions and tears the transport down.
//
//   - IServerConnector: Interface for protocol-specific operations (listen,
//     connection upgrade, peer identity extraction, teardown) that allows
//     extending the core with different transports.
//
//   - Session engine: Drives each connection through
//     authenticating -> framing -> closing -> closed. Text mode assembles
//     all bytes until end-of-stream into one message (bounded by the read
//     limit), stream mode delivers every read as its own message, and
//     persistent mode delivers newline-delimited records while keeping the
//     connection open. Command frames may precede the payload and can switch
//     the framing mode mid-session.
//
// Failure Semantics:
//
//	Authentication rejections, limit overruns and read errors terminate only
//	the offending session. The accept loop survives transient accept errors;
//	only listener setup failures are fatal to server startup.
//
// Thread Safety:
//
//	Each connection's inbound stream is owned by exactly one session
//	goroutine. The pool membership set is the only state mutated from
//	multiple goroutines and is protected by its own synchronization.
package server
