package client

import (
	"net"

	"github.com/freedm/ipcd/ipc/common"
)

// unixConnector implements the IClientConnector interface for Unix sockets
type unixConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IClientConnector)
// --------------------------------------------------------------------------

func (c *unixConnector) GetName() string {
	return "unix"
}

func (c *unixConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (c *unixConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}
	if config.Transport.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(config.Transport.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.Transport.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(config.Transport.ReadBufferSize); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Client Factory Method
// --------------------------------------------------------------------------

// NewUnixClient creates a new Unix socket IPC client
func NewUnixClient(config common.ClientConfig) IIPCClient {
	return NewBaseClient(&unixConnector{}, config)
}
