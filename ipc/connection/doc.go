// Package connection defines the per-client state of the IPC system: the
// Connection value that represents one accepted peer, the Message value that
// carries received payloads, and the Pool that bounds and tracks concurrently
// running sessions.
//
// The package focuses on:
//   - Exclusive ownership of the inbound stream by one session goroutine
//   - A thread-safe, mode-aware send path for replies and broadcasts
//   - Race-free admission control with a fixed capacity
//
// Key Components:
//
//   - Connection: Transport identity (peer credentials or addresses),
//     buffered I/O over the accepted stream, and the mutable session state
//     (framing mode, lifecycle state, timestamps). The lifecycle state only
//     ever advances, which keeps concurrent teardown paths idempotent.
//
//   - Message: An immutable payload/sender pair created per read event and
//     discarded after the message handler returns.
//
//   - Pool: A mapping from session handles to cancellation functions plus a
//     counting semaphore for capacity. Admission reserves a slot before the
//     session task exists; deregistration is idempotent and releases the
//     slot exactly once. CancelAll requests cooperative cancellation of all
//     tracked sessions without waiting for their completion.
package connection
