// Package client implements IPC clients for the session protocol served by
// the server package. Clients speak the same framing disciplines and the
// same in-band command sub-protocol.
//
// The package focuses on:
//   - Connection-scoped sessions matching the server's framing modes
//   - Transparent retries with exponential backoff and jitter
//   - Pluggable transport connectors (Unix sockets, TCP)
//
// Key Components:
//
//   - IIPCClient: Send (one discrete message, returns the reply), SendStream
//     (negotiates stream mode and delivers chunks individually) and Ping
//     (PING/PONG round trip measurement).
//
//   - IClientConnector: Interface for protocol-specific dialing and
//     connection tuning, with Unix socket and TCP implementations.
//
// Usage Example:
//
//	c := client.NewUnixClient(common.ClientConfig{
//		Transport: common.ClientTransportConfig{
//			Endpoint:   "/tmp/ipcd.sock",
//			RetryCount: 3,
//		},
//		TimeoutSecond: 5,
//	})
//
//	resp, err := c.Send([]byte("hello"))
package client
