package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/freedm/ipcd/ipc/common"
	"github.com/freedm/ipcd/ipc/connection"
)

// --------------------------------------------------------------------------
// Session / Framing Engine
// --------------------------------------------------------------------------

// runSession drives one connection through its full lifecycle:
// authenticating -> framing -> closing -> closed. The returned error is the
// session outcome handed to the observer; per-session failures never escape
// the session goroutine.
func (s *ipcServer) runSession(ctx context.Context, c *connection.Connection) error {
	defer c.Close()

	// Cancellation may arrive while the session is blocked mid-read or
	// mid-write. Poisoning the deadlines unblocks the pending operation so
	// the loop can observe ctx at its next suspension point.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Abort()
		case <-stop:
		}
	}()

	err := s.sessionLoop(ctx, c)

	// CLOSING: flush pending output, signal end-of-output, give the peer a
	// moment to observe the final flush, then release the stream.
	c.BeginClose()
	_ = c.CloseWrite()
	if ctx.Err() == nil {
		select {
		case <-time.After(closeGrace):
		case <-ctx.Done():
		}
	}
	return err
}

// sessionLoop implements the authenticated part of the state machine
func (s *ipcServer) sessionLoop(ctx context.Context, c *connection.Connection) error {
	// AUTHENTICATING
	if auth := s.authenticate; auth != nil {
		if !auth(ctx, c) {
			metricAuthRejected.Inc()
			return common.ErrAuthRejected
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.MarkFraming()
	Logger.Debugf("Session %d (%s) authenticated", c.ID(), c.Identity())

	// Command sub-protocol, interleaved before payload framing
	if err := s.handleCommands(ctx, c); err != nil {
		return err
	}

	// FRAMING
	switch c.Mode() {
	case common.ModeStreamData:
		return s.readChunked(ctx, c)
	case common.ModePersistent:
		return s.readRecords(ctx, c)
	default:
		return s.readDiscrete(ctx, c)
	}
}

// handleCommands consumes any command frames preceding the payload. The
// parse is advisory: bytes that do not form a valid header are left untouched
// for the framing loop. The sniff is incremental so a short payload is never
// held back waiting for a full header width; it only waits for further bytes
// while everything buffered so far is still a proper header prefix. Multiple
// commands may arrive back to back, e.g. a PING followed by a SET_STREAM.
func (s *ipcServer) handleCommands(ctx context.Context, c *connection.Connection) error {
	for {
		hdr, err := s.sniffCommand(ctx, c)
		if err != nil {
			return err
		}
		if hdr == nil {
			// The buffered bytes diverged from a header (or the stream
			// ended); whatever remains is payload for the framing loop.
			return nil
		}

		cmd, ok := common.ParseCommand(hdr)
		if !ok {
			return nil
		}

		if _, err := c.Reader().Discard(common.CommandHeaderSize); err != nil {
			return fmt.Errorf("failed to consume command header: %v", err)
		}
		c.Touch()
		metricCommands.Inc()
		Logger.Debugf("Session %d: command %s", c.ID(), cmd)

		switch cmd {
		case common.CmdPing:
			if err := c.WriteCommand(common.CmdPong); err != nil {
				return fmt.Errorf("failed to reply pong: %w", err)
			}
		case common.CmdPong:
			// acknowledged, no reply
		case common.CmdSetStream:
			c.SetMode(common.ModeStreamData)
		case common.CmdSetData:
			c.SetMode(common.ModeTextData)
		}
	}
}

// sniffCommand waits for one complete command header and returns it without
// consuming it. It returns nil as soon as the buffered bytes stop being a
// header prefix, so the framing loop gets payload shorter than a header
// immediately, without waiting for end-of-stream.
func (s *ipcServer) sniffCommand(ctx context.Context, c *connection.Connection) ([]byte, error) {
	need := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.SetReadDeadline(); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %v", err)
		}

		prefix, err := c.Reader().Peek(need)
		if err != nil {
			// End-of-stream or a stream error before the prefix completed;
			// the framing loop observes the condition on its own read.
			return nil, nil
		}

		// Inspect everything already buffered, not just the minimum asked
		// for, so a diverging payload is released in one step.
		if avail := c.Reader().Buffered(); avail > need {
			if avail > common.CommandHeaderSize {
				avail = common.CommandHeaderSize
			}
			if prefix, err = c.Reader().Peek(avail); err != nil {
				return nil, nil
			}
			need = avail
		}

		if !common.IsCommandPrefix(prefix) {
			return nil, nil
		}
		if need == common.CommandHeaderSize {
			return prefix, nil
		}
		need++
	}
}

// readDiscrete implements text mode framing: all bytes until end-of-stream
// form exactly one message, bounded by the configured read limit.
func (s *ipcServer) readDiscrete(ctx context.Context, c *connection.Connection) error {
	limit := s.config.ReadLimit

	chunk := s.chunkPool.Get().([]byte)
	defer s.chunkPool.Put(chunk)

	var buf bytes.Buffer
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.SetReadDeadline(); err != nil {
			return fmt.Errorf("failed to set read deadline: %v", err)
		}

		n, err := c.Reader().Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if limit > 0 && uint64(buf.Len()) > limit {
				metricLimitExceeded.Inc()
				return fmt.Errorf("%w: received %d bytes, limit %d", common.ErrMessageLimit, buf.Len(), limit)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return fmt.Errorf("read error: %v", err)
		}
	}

	// The inbound side is fully consumed at this point; an empty stream
	// (e.g. a pure command exchange) produces no message.
	if buf.Len() == 0 {
		return nil
	}
	s.dispatch(ctx, connection.NewMessage(buf.Bytes(), c))
	return nil
}

// readChunked implements stream mode framing: every non-empty read of up to
// the chunk size is delivered immediately as one message, until end-of-stream.
func (s *ipcServer) readChunked(ctx context.Context, c *connection.Connection) error {
	chunk := s.chunkPool.Get().([]byte)
	defer s.chunkPool.Put(chunk)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.SetReadDeadline(); err != nil {
			return fmt.Errorf("failed to set read deadline: %v", err)
		}

		n, err := c.Reader().Read(chunk)
		if n > 0 {
			// The chunk buffer is reused; each message gets its own copy.
			data := make([]byte, n)
			copy(data, chunk[:n])
			s.dispatch(ctx, connection.NewMessage(data, c))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return fmt.Errorf("read error: %v", err)
		}
	}
}

// readRecords implements persistent mode framing: one message per non-empty
// newline-delimited record, with the connection held open between records.
func (s *ipcServer) readRecords(ctx context.Context, c *connection.Connection) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.SetReadDeadline(); err != nil {
			return fmt.Errorf("failed to set read deadline: %v", err)
		}

		line, err := c.Reader().ReadBytes('\n')
		if record := bytes.TrimRight(line, "\r\n"); len(record) > 0 {
			s.dispatch(ctx, connection.NewMessage(record, c))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return fmt.Errorf("read error: %v", err)
		}
	}
}

// dispatch hands one framed message to the registered handler. Nothing is
// delivered once the session is cancelled.
func (s *ipcServer) dispatch(ctx context.Context, msg *connection.Message) {
	if ctx.Err() != nil {
		return
	}
	msg.Sender.Touch()
	metricMessages.Inc()
	metricMessageBytes.Add(len(msg.Data))
	s.handler(ctx, msg)
}
