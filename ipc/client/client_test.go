package client_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/freedm/ipcd/ipc/client"
	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
	"github.com/freedm/ipcd/ipc/server"
	"github.com/freedm/ipcd/ipc/server/unix"
)

// startEchoServer runs a unix IPC server that answers every discrete message
// with an "ack:" prefixed copy and records all received payloads
func startEchoServer(t *testing.T) (endpoint string, received chan []byte) {
	t.Helper()

	endpoint = filepath.Join(t.TempDir(), "ipcd.sock")
	received = make(chan []byte, 64)

	config := common.ServerConfig{DefaultMode: common.ModeTextData}
	config.Transport.Endpoint = endpoint

	srv := unix.NewUnixServer(8 * 1024)
	srv.RegisterMessageHandler(func(_ context.Context, msg *connection.Message) {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		received <- data
		if msg.Sender.Mode() == common.ModeTextData {
			if err := srv.SendMessage(append([]byte("ack:"), data...), msg.Sender); err != nil {
				t.Errorf("failed to reply: %v", err)
			}
		}
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(config) }()
	waitForServer(t, srv, endpoint)

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
	return endpoint, received
}

func waitForServer(t *testing.T, srv server.IIPCServer, endpoint string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.NewUnixClient(clientConfig(endpoint)).Ping(); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the server to accept connections")
}

func clientConfig(endpoint string) common.ClientConfig {
	config := common.ClientConfig{Mode: common.ModeTextData, TimeoutSecond: 3}
	config.Transport.Endpoint = endpoint
	config.Transport.RetryCount = 1
	return config
}

// TestClientSend tests the discrete request/response round trip
func TestClientSend(t *testing.T) {
	endpoint, received := startEchoServer(t)
	c := client.NewUnixClient(clientConfig(endpoint))

	resp, err := c.Send([]byte("hello server"))
	if err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	if string(resp) != "ack:hello server" {
		t.Errorf("received reply %q, want %q", resp, "ack:hello server")
	}

	select {
	case data := <-received:
		if string(data) != "hello server" {
			t.Errorf("server received %q, want %q", data, "hello server")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for the server to receive the message")
	}
}

// TestClientSendStream tests that streamed chunks arrive complete and in order
func TestClientSendStream(t *testing.T) {
	endpoint, received := startEchoServer(t)
	c := client.NewUnixClient(clientConfig(endpoint))

	chunks := [][]byte{
		[]byte("stream-chunk-one"),
		[]byte("stream-chunk-two"),
		[]byte("stream-chunk-three"),
	}
	if err := c.SendStream(chunks); err != nil {
		t.Fatalf("failed to stream: %v", err)
	}

	// Chunk boundaries may coalesce in transit; the byte sequence must not.
	want := bytes.Join(chunks, nil)
	var got []byte
	deadline := time.After(3 * time.Second)
	for len(got) < len(want) {
		select {
		case data := <-received:
			got = append(got, data...)
		case <-deadline:
			t.Fatalf("timed out, received %q so far, want %q", got, want)
		}
	}
	if !bytes.Equal(got, want) {
		t.Errorf("received %q, want %q", got, want)
	}
}

// TestClientPing tests the PING/PONG round trip measurement
func TestClientPing(t *testing.T) {
	endpoint, _ := startEchoServer(t)
	c := client.NewUnixClient(clientConfig(endpoint))

	rtt, err := c.Ping()
	if err != nil {
		t.Fatalf("failed to ping: %v", err)
	}
	if rtt <= 0 {
		t.Errorf("round trip time is %s, want > 0", rtt)
	}
}

// TestClientRetryExhausted tests that a dead endpoint fails after the
// configured number of attempts
func TestClientRetryExhausted(t *testing.T) {
	config := clientConfig(filepath.Join(t.TempDir(), "nobody-home.sock"))
	config.Transport.RetryCount = 2
	c := client.NewUnixClient(config)

	start := time.Now()
	if _, err := c.Send([]byte("anyone there?")); err == nil {
		t.Fatal("expected an error for a dead endpoint")
	}
	// One backoff pause of ~50ms between the two attempts
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("retries finished after %s, expected at least one backoff pause", elapsed)
	}
}
