// Package ipc provides a session-oriented inter-process communication
// framework for processes on the same host or a trusted network. It covers
// the full connection lifecycle: acceptance, authentication, in-band command
// negotiation, payload framing and teardown.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the IPC system,
//     including the command wire format, connection modes, configuration
//     structures, the error taxonomy and logging.
//
//   - connection: The per-client state: Connection, Message and the bounded
//     connection Pool that tracks running sessions.
//
//   - server: The server core (accept loop, capacity enforcement, session
//     state machine and framing engine) with pluggable transport connectors
//     in the unix and tcp subpackages.
//
//   - client: IPC client implementations speaking the same session protocol,
//     with Unix socket and TCP connectors.
package ipc
