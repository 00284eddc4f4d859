// Package common provides core data structures and utilities shared across
// the IPC system. It defines fundamental types, configuration structures,
// and protocol elements used by other packages.
//
// The package focuses on:
//   - The in-band command sub-protocol wire format
//   - Configuration structures for client and server components
//   - The shared error taxonomy for session and transport failures
//   - A custom logging implementation with per-package loggers
//
// Key Components:
//
//   - Command: Enumeration of the advisory in-band session commands
//     (PING, PONG, SET_STREAM, SET_DATA) together with the constant-width
//     header codec used to encode them on the wire.
//
//   - ConnectionMode: Enumeration of the payload framing disciplines a
//     session can run under (text, stream, persistent).
//
//   - ServerConfig: Comprehensive configuration for IPC servers, including
//     the bind endpoint, framing limits, pool capacity, socket tuning and
//     operation timeouts.
//
//   - ClientConfig: Configuration for client components, controlling
//     connection parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation providing consistent formatting
//     across the application via a pluggable logger factory.
package common
