package connection

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freedm/ipcd/ipc/common"
)

// --------------------------------------------------------------------------
// Lifecycle State
// --------------------------------------------------------------------------

// State is the lifecycle state of a connection. It only ever advances.
type State int32

const (
	// StateAuthenticating is the initial state after accept
	StateAuthenticating State = iota
	// StateFraming is active while the session reads payload frames
	StateFraming
	// StateClosing is entered when teardown has begun; no new messages
	StateClosing
	// StateClosed is terminal; no reads or writes are permitted
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateFraming:
		return "framing"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Peer Identity
// --------------------------------------------------------------------------

// Identity is the transport-specific peer identity of a connection. It is
// assigned once at acceptance and never changes.
type Identity struct {
	// Transport is the name of the transport the peer connected over
	Transport string

	// Peer credentials (unix sockets only, 0 if unavailable)
	PID int32
	UID uint32
	GID uint32

	// Addresses (tcp sockets only, nil for unix sockets)
	RemoteAddr net.Addr
	LocalAddr  net.Addr
}

// String returns a log-friendly description of the identity
func (i Identity) String() string {
	if i.RemoteAddr != nil {
		return fmt.Sprintf("%s peer %s", i.Transport, i.RemoteAddr)
	}
	return fmt.Sprintf("%s peer pid=%d uid=%d gid=%d", i.Transport, i.PID, i.UID, i.GID)
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// closeWriter is implemented by net.TCPConn and net.UnixConn and allows
// signalling end-of-output without closing the read side.
type closeWriter interface {
	CloseWrite() error
}

// Connection represents one accepted client. The inbound stream is owned
// exclusively by the session goroutine; the send path may be used from other
// goroutines and is serialized by an internal mutex.
type Connection struct {
	id       uint64
	identity Identity
	conn     net.Conn
	reader   *bufio.Reader
	writer   *bufio.Writer
	timeout  time.Duration

	// writeMu protects writer and the half-close flag
	writeMu    sync.Mutex
	wroteEOF   bool
	mode       atomic.Int32
	state      atomic.Int32
	createdAt  time.Time
	updatedAtN atomic.Int64
}

// New creates a connection over an accepted net.Conn. The buffer size applies
// to both the buffered reader and writer; timeout (0 = none) is applied as an
// I/O deadline per read and write operation.
func New(id uint64, conn net.Conn, identity Identity, mode common.ConnectionMode, bufferSize int, timeout time.Duration) *Connection {
	now := time.Now()
	c := &Connection{
		id:        id,
		identity:  identity,
		conn:      conn,
		reader:    bufio.NewReaderSize(conn, bufferSize),
		writer:    bufio.NewWriterSize(conn, bufferSize),
		timeout:   timeout,
		createdAt: now,
	}
	c.mode.Store(int32(mode))
	c.updatedAtN.Store(now.UnixNano())
	return c
}

// ID returns the pool handle of the connection
func (c *Connection) ID() uint64 { return c.id }

// Identity returns the immutable peer identity
func (c *Connection) Identity() Identity { return c.identity }

// Mode returns the current framing mode
func (c *Connection) Mode() common.ConnectionMode {
	return common.ConnectionMode(c.mode.Load())
}

// SetMode changes the framing mode for subsequent payload framing
func (c *Connection) SetMode(mode common.ConnectionMode) {
	c.mode.Store(int32(mode))
	c.Touch()
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	return State(c.state.Load())
}

// advance moves the lifecycle state forward. Regressions are ignored so that
// concurrent teardown paths stay idempotent.
func (c *Connection) advance(next State) {
	for {
		cur := c.state.Load()
		if cur >= int32(next) {
			return
		}
		if c.state.CompareAndSwap(cur, int32(next)) {
			c.Touch()
			return
		}
	}
}

// MarkFraming records that the session passed authentication
func (c *Connection) MarkFraming() { c.advance(StateFraming) }

// BeginClose marks the connection as closing. Sends are rejected from now on.
func (c *Connection) BeginClose() { c.advance(StateClosing) }

// CreatedAt returns the accept timestamp
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the timestamp of the last state-affecting event
func (c *Connection) UpdatedAt() time.Time {
	return time.Unix(0, c.updatedAtN.Load())
}

// Touch records a state-affecting event
func (c *Connection) Touch() {
	c.updatedAtN.Store(time.Now().UnixNano())
}

// Reader exposes the buffered inbound stream. It must only be used by the
// session goroutine that owns the connection.
func (c *Connection) Reader() *bufio.Reader { return c.reader }

// SetReadDeadline arms the configured read deadline, if any
func (c *Connection) SetReadDeadline() error {
	if c.timeout <= 0 {
		return nil
	}
	return c.conn.SetReadDeadline(time.Now().Add(c.timeout))
}

// ClearReadDeadline removes any pending read deadline
func (c *Connection) ClearReadDeadline() error {
	return c.conn.SetReadDeadline(time.Time{})
}

// Send writes a payload to the peer. For text and stream mode connections the
// outbound stream is flushed and end-of-output is signalled afterwards; in
// persistent mode a record delimiter is appended instead so the connection
// stays usable. Sending on a closing or closed connection returns
// ErrStaleConnection.
func (c *Connection) Send(payload []byte) error {
	if c.State() >= StateClosing {
		return common.ErrStaleConnection
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.wroteEOF {
		return common.ErrStaleConnection
	}

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %v", err)
		}
	}

	if _, err := c.writer.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %v", err)
	}

	if c.Mode() == common.ModePersistent {
		if err := c.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write record delimiter: %v", err)
		}
		if err := c.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush payload: %v", err)
		}
		c.Touch()
		return nil
	}

	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush payload: %v", err)
	}
	if err := c.closeWriteLocked(); err != nil {
		return err
	}
	c.Touch()
	return nil
}

// WriteCommand writes a command frame and flushes it without signalling
// end-of-output, keeping the session alive.
func (c *Connection) WriteCommand(cmd common.Command) error {
	if c.State() >= StateClosing {
		return common.ErrStaleConnection
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.wroteEOF {
		return common.ErrStaleConnection
	}

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %v", err)
		}
	}

	if _, err := c.writer.Write(common.EncodeCommand(cmd)); err != nil {
		return fmt.Errorf("failed to write command: %v", err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush command: %v", err)
	}
	c.Touch()
	return nil
}

// CloseWrite flushes pending output and signals end-of-output to the peer.
// It is idempotent.
func (c *Connection) CloseWrite() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closeWriteLocked()
}

func (c *Connection) closeWriteLocked() error {
	if c.wroteEOF {
		return nil
	}
	// Flush whatever is buffered before half-closing; the peer observes the
	// EOF only after all payload bytes.
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush before close-write: %v", err)
	}
	c.wroteEOF = true
	if cw, ok := c.conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Abort poisons the I/O deadlines so that a session blocked mid-read or
// mid-write returns immediately. Used by cooperative cancellation.
func (c *Connection) Abort() {
	_ = c.conn.SetDeadline(time.Now())
}

// Close releases the underlying stream. The connection is unusable afterwards.
func (c *Connection) Close() error {
	c.advance(StateClosed)
	return c.conn.Close()
}
