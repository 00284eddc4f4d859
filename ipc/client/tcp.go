package client

import (
	"net"
	"time"

	"github.com/freedm/ipcd/ipc/common"
)

// tcpConnector implements the IClientConnector interface for TCP sockets
type tcpConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IClientConnector)
// --------------------------------------------------------------------------

func (c *tcpConnector) GetName() string {
	return "tcp"
}

func (c *tcpConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *tcpConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(config.Transport.TCPNoDelay); err != nil {
		return err
	}

	if config.Transport.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.Transport.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.Transport.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.Transport.ReadBufferSize); err != nil {
			return err
		}
	}

	if config.Transport.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.Transport.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if config.Transport.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(config.Transport.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Client Factory Method
// --------------------------------------------------------------------------

// NewTCPClient creates a new TCP IPC client
func NewTCPClient(config common.ClientConfig) IIPCClient {
	return NewBaseClient(&tcpConnector{}, config)
}
