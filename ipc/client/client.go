package client

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("ipc/client")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// IIPCClient is the interface for IPC clients. Sessions are connection
// scoped: Send and SendStream each dial a fresh connection, matching the
// one-message-per-connection shape of text mode framing.
type IIPCClient interface {
	// Send delivers one discrete message and returns the server's reply
	// (empty if the server closed without replying). Failed attempts are
	// retried with exponential backoff.
	Send(payload []byte) (resp []byte, err error)

	// SendStream negotiates stream mode and delivers the chunks in order,
	// each flushed individually for low-latency consumption.
	SendStream(chunks [][]byte) error

	// Ping measures the round trip of a PING/PONG command exchange
	Ping() (time.Duration, error)
}

// closeWriter allows signalling end-of-output without closing the read side
type closeWriter interface {
	CloseWrite() error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// ipcClient implements the core client functionality independent of the
// specific transport medium (unix, tcp)
type ipcClient struct {
	connector IClientConnector
	config    common.ClientConfig
}

// -----------------------------------------------------------
// Client Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClient creates a new IPC client with the specified connector
func NewBaseClient(connector IClientConnector, config common.ClientConfig) IIPCClient {
	return &ipcClient{
		connector: connector,
		config:    config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IIPCClient)
// --------------------------------------------------------------------------

func (c *ipcClient) Send(payload []byte) ([]byte, error) {
	var resp []byte
	err := c.withRetry("send", func() error {
		conn, err := c.dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := c.armDeadline(conn); err != nil {
			return err
		}
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("failed to write payload: %v", err)
		}
		if err := signalEOF(conn); err != nil {
			return err
		}

		// The reply is everything until the server half-closes.
		resp, err = io.ReadAll(conn)
		if err != nil {
			return fmt.Errorf("failed to read reply: %v", err)
		}
		return nil
	})
	return resp, err
}

func (c *ipcClient) SendStream(chunks [][]byte) error {
	return c.withRetry("stream", func() error {
		conn, err := c.dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := c.armDeadline(conn); err != nil {
			return err
		}
		if _, err := conn.Write(common.EncodeCommand(common.CmdSetStream)); err != nil {
			return fmt.Errorf("failed to negotiate stream mode: %v", err)
		}

		for i, chunk := range chunks {
			if err := c.armDeadline(conn); err != nil {
				return err
			}
			if _, err := conn.Write(chunk); err != nil {
				return fmt.Errorf("failed to write chunk %d/%d: %v", i+1, len(chunks), err)
			}
		}

		return signalEOF(conn)
	})
}

func (c *ipcClient) Ping() (time.Duration, error) {
	var rtt time.Duration
	err := c.withRetry("ping", func() error {
		conn, err := c.dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		start := time.Now()
		if err := c.armDeadline(conn); err != nil {
			return err
		}
		if _, err := conn.Write(common.EncodeCommand(common.CmdPing)); err != nil {
			return fmt.Errorf("failed to write ping: %v", err)
		}
		if err := signalEOF(conn); err != nil {
			return err
		}

		hdr := make([]byte, common.CommandHeaderSize)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return fmt.Errorf("failed to read pong: %v", err)
		}
		cmd, ok := common.ParseCommand(hdr)
		if !ok || cmd != common.CmdPong {
			return fmt.Errorf("unexpected reply to ping: %q", hdr)
		}
		rtt = time.Since(start)
		return nil
	})
	return rtt, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial establishes and upgrades one connection to the configured endpoint
func (c *ipcClient) dial() (net.Conn, error) {
	conn, err := c.connector.Connect(c.config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", c.config.Transport.Endpoint, err)
	}
	if err := c.connector.UpgradeConnection(conn, c.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection: %v", err)
	}
	return conn, nil
}

// armDeadline applies the configured I/O deadline, if any
func (c *ipcClient) armDeadline(conn net.Conn) error {
	if c.config.TimeoutSecond <= 0 {
		return nil
	}
	return conn.SetDeadline(time.Now().Add(time.Duration(c.config.TimeoutSecond) * time.Second))
}

// signalEOF half-closes the connection so the server observes end-of-stream
func signalEOF(conn net.Conn) error {
	cw, ok := conn.(closeWriter)
	if !ok {
		return fmt.Errorf("transport does not support half-close")
	}
	if err := cw.CloseWrite(); err != nil {
		return fmt.Errorf("failed to signal end-of-output: %v", err)
	}
	return nil
}

// withRetry runs op with exponential backoff and a small random jitter
func (c *ipcClient) withRetry(name string, op func() error) error {
	maxRetries := c.config.Transport.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		Logger.Debugf("%s attempt %d/%d failed: %v", name, i+1, maxRetries, lastErr)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %v", name, maxRetries, lastErr)
}
