// Package unix implements the IPC server transport for Unix domain sockets.
// It provides optimized communication for processes running on the same
// machine.
//
// This package extends the base server with a Unix socket-specific connector
// while inheriting all core functionality like connection pooling, session
// framing, and error handling from the server package.
//
// Key Components:
//
//   - serverConnector: Creates Unix socket listeners, extracts the kernel
//     peer credentials (pid, uid, gid) of connecting processes and manages
//     the filesystem socket node (removed before bind, removed again on
//     teardown).
//
// Performance Characteristics:
//
//   - Default buffer size: 64 KB, optimized for local communication patterns
//   - Reduced overhead: Eliminates TCP/IP stack processing for better performance
//   - Lower latency: Direct kernel-mediated IPC avoids network subsystem overhead
package unix
