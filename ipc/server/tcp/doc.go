// Package tcp implements the IPC server transport for TCP sockets, allowing
// clients on trusted networks to use the same session protocol as local
// Unix socket clients.
//
// This package extends the base server with a TCP-specific connector while
// inheriting all core functionality like connection pooling, session framing,
// and error handling from the server package.
//
// Key Components:
//
//   - serverConnector: Creates TCP listeners, derives the remote/local
//     address identity of accepted connections and applies socket tuning
//     (NoDelay, keep-alive, linger, buffer sizes) from the configuration.
package tcp
