package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
	"github.com/freedm/ipcd/ipc/server/tcp"
)

// freeEndpoint reserves a loopback port and releases it for the server to bind
func freeEndpoint(t *testing.T) string {
	t.Helper()
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to probe for a free port: %v", err)
	}
	endpoint := probe.Addr().String()
	_ = probe.Close()
	return endpoint
}

// dialRetry dials the endpoint until the server is accepting
func dialRetry(t *testing.T, endpoint string) *net.TCPConn {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", endpoint)
		if err == nil {
			t.Cleanup(func() { _ = conn.Close() })
			return conn.(*net.TCPConn)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out dialing the server")
	return nil
}

// TestTCPRoundTrip tests discrete message delivery and peer identity over the
// tcp transport
func TestTCPRoundTrip(t *testing.T) {
	config := common.ServerConfig{DefaultMode: common.ModeTextData}
	config.Transport.Endpoint = freeEndpoint(t)
	config.Transport.TCPNoDelay = true
	config.Transport.TCPLingerSec = -1

	srv := tcp.NewTCPServer(8 * 1024)
	msgs := make(chan *connection.Message, 1)
	srv.RegisterMessageHandler(func(_ context.Context, msg *connection.Message) {
		msgs <- msg
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(config) }()
	t.Cleanup(func() {
		_ = srv.Close()
		select {
		case err := <-serveErr:
			if !errors.Is(err, common.ErrServerClosed) {
				t.Errorf("serve returned %v, want ErrServerClosed", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("timed out waiting for serve to return")
		}
	})

	conn := dialRetry(t, config.Transport.Endpoint)
	if _, err := conn.Write([]byte("over tcp")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := conn.CloseWrite(); err != nil {
		t.Fatalf("failed to close write side: %v", err)
	}

	select {
	case msg := <-msgs:
		if string(msg.Data) != "over tcp" {
			t.Errorf("received %q, want %q", msg.Data, "over tcp")
		}
		identity := msg.Sender.Identity()
		if identity.Transport != "tcp" {
			t.Errorf("identity transport is %q, want %q", identity.Transport, "tcp")
		}
		if identity.RemoteAddr == nil || identity.LocalAddr == nil {
			t.Error("tcp identity should carry remote and local addresses")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the message")
	}

	// The server half-closes back once the session ends
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err := io.ReadAll(conn); err != nil {
		t.Errorf("expected clean end-of-stream, got %v", err)
	}
}
