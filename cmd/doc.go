// Package cmd implements the command-line interface for the ipcd IPC server.
// It provides a hierarchical command structure with operations for running
// the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the ipcd server
//   - msg: Commands for exchanging messages with a running server (send, stream, ping, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ipcd -help for a list of all commands.
package cmd
