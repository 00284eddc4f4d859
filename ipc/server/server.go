package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("ipc/server")

const (
	// defaultChunkSize is used for stream mode reads when the config leaves
	// ChunkSize unset
	defaultChunkSize = 64 * 1024

	// closeGrace is the pause between signalling end-of-output and releasing
	// the stream, so the peer can observe the final flush
	closeGrace = 100 * time.Millisecond
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// ipcServer implements the core server functionality independent of the
// specific transport medium (unix, tcp)
type ipcServer struct {
	connector  IServerConnector
	bufferSize int

	handler      MessageHandleFunc
	authenticate AuthenticateFunc
	observer     SessionObserverFunc

	// mu guards config and pool, which Serve assigns while a concurrent
	// Close may already be reading them
	mu     sync.Mutex
	config common.ServerConfig
	pool   *connection.Pool

	listener  net.Listener
	chunkPool *sync.Pool

	rootCtx    context.Context
	rootCancel context.CancelFunc
	closing    atomic.Bool
	closeOnce  sync.Once
	sessions   sync.WaitGroup
	nextConnID atomic.Uint64
}

// -----------------------------------------------------------
// Server Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServer creates a new IPC server core around a transport connector.
// The buffer size applies to the buffered reader/writer of each connection.
func NewBaseServer(connector IServerConnector, bufferSize int) IIPCServer {
	ctx, cancel := context.WithCancel(context.Background())

	s := &ipcServer{
		connector:  connector,
		bufferSize: bufferSize,
		rootCtx:    ctx,
		rootCancel: cancel,
	}
	s.handler = s.defaultHandler
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IIPCServer)
// --------------------------------------------------------------------------

func (s *ipcServer) RegisterAuthenticator(auth AuthenticateFunc) {
	s.authenticate = auth
}

func (s *ipcServer) RegisterMessageHandler(handler MessageHandleFunc) {
	s.handler = handler
}

func (s *ipcServer) RegisterSessionObserver(observer SessionObserverFunc) {
	s.observer = observer
}

func (s *ipcServer) Serve(config common.ServerConfig) error {
	s.mu.Lock()
	s.config = config
	s.pool = connection.NewPool(config.MaxConnections)
	s.mu.Unlock()
	s.chunkPool = &sync.Pool{
		New: func() interface{} {
			return make([]byte, s.chunkSize())
		},
	}
	registerSessionGauge(s.connector.GetName(), s.pool)

	// Create listener using the connector
	listener, err := s.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrListenerSetup, err)
	}
	s.listener = listener

	// Shut the listener down when the server is closed. This unblocks Accept.
	go func() {
		<-s.rootCtx.Done()
		_ = listener.Close()
	}()

	Logger.Infof("Starting %s IPC server on %s (default mode %s)",
		s.connector.GetName(), config.Transport.Endpoint, config.DefaultMode)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return common.ErrServerClosed
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		s.onAccept(conn)
	}
}

func (s *ipcServer) SendMessage(payload []byte, conns ...*connection.Connection) error {
	var errs []error
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			errs = append(errs, fmt.Errorf("session %d: %w", c.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *ipcServer) Pool() *connection.Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

func (s *ipcServer) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)

		s.mu.Lock()
		pool := s.pool
		config := s.config
		s.mu.Unlock()

		// Request cooperative cancellation of every tracked session, then
		// cancel the root context (stops the listener and is the parent of
		// all session contexts).
		if pool != nil {
			pool.CancelAll()
		}
		s.rootCancel()

		// Wait for the session goroutines to release their streams before
		// tearing the transport down.
		s.sessions.Wait()

		if err := s.connector.Teardown(config); err != nil {
			Logger.Errorf("Transport teardown failed: %v", err)
		}

		Logger.Infof("Stopped %s IPC server", s.connector.GetName())
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// onAccept builds the connection for a raw accepted stream, enforces pool
// capacity and launches the session task. A connection that does not get a
// slot is closed immediately without any handshake.
func (s *ipcServer) onAccept(raw net.Conn) {
	if err := s.connector.UpgradeConnection(raw, s.config); err != nil {
		Logger.Warningf("Failed to upgrade connection: %v", err)
	}

	identity, err := s.connector.ExtractIdentity(raw)
	if err != nil {
		// A missing identity is not fatal; the connection proceeds with a
		// zero identity and the authenticator decides.
		identity = connection.Identity{Transport: s.connector.GetName()}
		Logger.Warningf("Failed to extract peer identity: %v", err)
	}

	id := s.nextConnID.Add(1)
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	c := connection.New(id, raw, identity, s.config.DefaultMode, s.bufferSize, timeout)

	if !s.pool.Admit() {
		metricConnRejected.Inc()
		Logger.Warningf("Connection pool full (%d), rejecting %s", s.pool.Capacity(), identity)
		_ = raw.Close()
		return
	}

	metricConnAccepted.Inc()
	Logger.Debugf("Accepted session %d from %s", id, identity)

	sctx, cancel := context.WithCancel(s.rootCtx)
	s.pool.Register(id, cancel)

	s.sessions.Add(1)
	go func() {
		defer s.sessions.Done()
		defer cancel()

		err := s.runSession(sctx, c)

		s.pool.Deregister(id)
		if err != nil && !errors.Is(err, context.Canceled) {
			Logger.Debugf("Session %d ended: %v", id, err)
		}
		if s.observer != nil {
			s.observer(c, err)
		}
	}()
}

// chunkSize resolves the configured stream chunk size
func (s *ipcServer) chunkSize() int {
	if s.config.ChunkSize > 0 {
		return int(s.config.ChunkSize)
	}
	return defaultChunkSize
}

// defaultHandler is the message consumer used when none is registered
func (s *ipcServer) defaultHandler(_ context.Context, msg *connection.Message) {
	Logger.Infof("Session %d: received %d bytes: %s", msg.Sender.ID(), len(msg.Data), msg.Data)
}
