package connection

import (
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/freedm/ipcd/ipc/common"
)

// unixPair returns the two ends of a connected unix socket pair
func unixPair(t *testing.T) (server net.Conn, client net.Conn) {
	t.Helper()

	endpoint := filepath.Join(t.TempDir(), "pair.sock")
	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			t.Errorf("failed to accept: %v", err)
			return
		}
		accepted <- conn
	}()

	client, err = net.Dial("unix", endpoint)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	t.Cleanup(func() { _ = server.Close() })
	return server, client
}

// TestConnectionSendHalfClose tests that a discrete send flushes the payload
// and signals end-of-output, which the peer observes as EOF after the bytes
func TestConnectionSendHalfClose(t *testing.T) {
	serverSide, clientSide := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModeTextData, 4*1024, 0)
	c.MarkFraming()

	if err := c.Send([]byte("reply payload")); err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	// ReadAll only returns once the write side was half-closed
	got, err := io.ReadAll(clientSide)
	if err != nil {
		t.Fatalf("failed to read reply: %v", err)
	}
	if string(got) != "reply payload" {
		t.Errorf("received %q, want %q", got, "reply payload")
	}

	// The send path is single-shot in this mode
	if err := c.Send([]byte("again")); !errors.Is(err, common.ErrStaleConnection) {
		t.Errorf("second send returned %v, want ErrStaleConnection", err)
	}
}

// TestConnectionSendPersistent tests that persistent mode delimits records
// with a newline and keeps the outbound stream open for further sends
func TestConnectionSendPersistent(t *testing.T) {
	serverSide, clientSide := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModePersistent, 4*1024, 0)
	c.MarkFraming()

	if err := c.Send([]byte("first")); err != nil {
		t.Fatalf("failed to send first record: %v", err)
	}
	if err := c.Send([]byte("second")); err != nil {
		t.Fatalf("failed to send second record: %v", err)
	}
	if err := c.CloseWrite(); err != nil {
		t.Fatalf("failed to close write side: %v", err)
	}

	got, err := io.ReadAll(clientSide)
	if err != nil {
		t.Fatalf("failed to read records: %v", err)
	}
	if string(got) != "first\nsecond\n" {
		t.Errorf("received %q, want %q", got, "first\nsecond\n")
	}
}

// TestConnectionWriteCommand tests that command frames do not half-close the
// outbound stream, so a payload send can still follow
func TestConnectionWriteCommand(t *testing.T) {
	serverSide, clientSide := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModeTextData, 4*1024, 0)
	c.MarkFraming()

	if err := c.WriteCommand(common.CmdPong); err != nil {
		t.Fatalf("failed to write command: %v", err)
	}
	if err := c.Send([]byte("payload")); err != nil {
		t.Fatalf("failed to send after command: %v", err)
	}

	got, err := io.ReadAll(clientSide)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	want := string(common.EncodeCommand(common.CmdPong)) + "payload"
	if string(got) != want {
		t.Errorf("received %q, want %q", got, want)
	}
}

// TestConnectionSendStale tests that sends are rejected once teardown began
func TestConnectionSendStale(t *testing.T) {
	serverSide, _ := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModeTextData, 4*1024, 0)
	c.MarkFraming()
	c.BeginClose()

	if err := c.Send([]byte("late")); !errors.Is(err, common.ErrStaleConnection) {
		t.Errorf("send returned %v, want ErrStaleConnection", err)
	}
	if err := c.WriteCommand(common.CmdPing); !errors.Is(err, common.ErrStaleConnection) {
		t.Errorf("command write returned %v, want ErrStaleConnection", err)
	}
}

// TestConnectionStateAdvanceOnly tests that the lifecycle state never
// regresses, even when transitions arrive out of order
func TestConnectionStateAdvanceOnly(t *testing.T) {
	serverSide, _ := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModeTextData, 4*1024, 0)
	if c.State() != StateAuthenticating {
		t.Fatalf("initial state is %s, want %s", c.State(), StateAuthenticating)
	}

	c.MarkFraming()
	if c.State() != StateFraming {
		t.Fatalf("state is %s, want %s", c.State(), StateFraming)
	}

	c.BeginClose()
	c.MarkFraming() // late transition must not regress
	if c.State() != StateClosing {
		t.Errorf("state is %s, want %s", c.State(), StateClosing)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	c.BeginClose()
	if c.State() != StateClosed {
		t.Errorf("state is %s, want %s", c.State(), StateClosed)
	}
}

// TestConnectionModeSwitch tests that the framing mode can be changed at
// runtime, as done by the SET_STREAM and SET_DATA commands
func TestConnectionModeSwitch(t *testing.T) {
	serverSide, _ := unixPair(t)

	c := New(1, serverSide, Identity{Transport: "unix"}, common.ModeTextData, 4*1024, 0)
	if c.Mode() != common.ModeTextData {
		t.Fatalf("initial mode is %s, want %s", c.Mode(), common.ModeTextData)
	}

	c.SetMode(common.ModeStreamData)
	if c.Mode() != common.ModeStreamData {
		t.Errorf("mode is %s, want %s", c.Mode(), common.ModeStreamData)
	}
}
