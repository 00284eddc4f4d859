package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
	"github.com/freedm/ipcd/ipc/server"
)

const (
	defaultBufferSize = 64 * 1024 // 64 KB
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.Transport.Endpoint
	if socketPath == "" {
		return nil, fmt.Errorf("no socket path provided")
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %v", err)
	}

	// Create Unix socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %v", err)
	}

	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil // Not a Unix socket connection, nothing to upgrade
	}

	// Set socket write buffer size if configured
	if config.Transport.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(config.Transport.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if config.Transport.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(config.Transport.ReadBufferSize); err != nil {
			return err
		}
	}

	return nil
}

func (c *serverConnector) ExtractIdentity(conn net.Conn) (connection.Identity, error) {
	identity := connection.Identity{Transport: c.GetName()}

	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return identity, fmt.Errorf("not a unix socket connection")
	}

	pid, uid, gid, err := peerCredentials(unixConn)
	if err != nil {
		return identity, fmt.Errorf("failed to read peer credentials: %v", err)
	}

	identity.PID = pid
	identity.UID = uid
	identity.GID = gid
	return identity, nil
}

func (c *serverConnector) Teardown(config common.ServerConfig) error {
	if config.Transport.Endpoint == "" {
		return nil
	}
	if err := os.Remove(config.Transport.Endpoint); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove socket file %q: %v", config.Transport.Endpoint, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Server Factory Method
// --------------------------------------------------------------------------

// NewUnixDefaultServer creates a new Unix IPC server with default buffer size
func NewUnixDefaultServer() server.IIPCServer {
	return NewUnixServer(defaultBufferSize)
}

// NewUnixServer creates a new Unix IPC server with specified buffer size
func NewUnixServer(bufferSize int) server.IIPCServer {
	return server.NewBaseServer(&serverConnector{}, bufferSize)
}
