package nextion

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/frame"
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

// sleepFn allows tests to intercept idle and backoff sleeps.
var sleepFn = sleepCtx

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// readLoop owns the port's read side. Read faults are logged and backed off;
// only ctx cancellation ends the loop.
func (c *Client) readLoop(ctx context.Context) {
	defer c.wg.Done()
	defer c.active.Store(false)
	defer c.logger.Info("reader_end")
	buf := make([]byte, c.readBufSize)
	probe, _ := c.port.(transport.Buffered)
	backoff := rxBackoffMin
	for {
		if ctx.Err() != nil {
			return
		}
		want := len(buf)
		if probe != nil {
			avail, err := probe.Buffered()
			if err != nil {
				backoff = c.readFault(ctx, err, backoff)
				continue
			}
			if avail == 0 {
				sleepFn(ctx, c.poll)
				continue
			}
			if avail < want {
				want = avail
			}
		}
		n, err := c.port.Read(buf[:want])
		if n > 0 {
			metrics.AddRxBytes(n)
			c.demux.Feed(buf[:n], c.route)
			backoff = rxBackoffMin
		}
		switch {
		case err == nil:
			if n == 0 {
				sleepFn(ctx, c.poll)
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
			// read timeout with nothing pending
			if n == 0 {
				sleepFn(ctx, c.poll)
			}
		default:
			backoff = c.readFault(ctx, err, backoff)
		}
	}
}

func (c *Client) readFault(ctx context.Context, err error, backoff time.Duration) time.Duration {
	metrics.IncError(metrics.ErrSerialRead)
	c.logger.Warn("reader_read_error", "error", &TransportError{Op: "read", Err: err}, "backoff", backoff)
	sleepFn(ctx, backoff)
	backoff *= 2
	if backoff > rxBackoffMax {
		backoff = rxBackoffMax
	}
	return backoff
}

// route decodes fr inline and hands it to every resolved listener.
func (c *Client) route(fr frame.Frame) {
	msg, err := protocol.Decode(fr)
	if err != nil {
		var de *protocol.DeviceError
		if errors.As(err, &de) {
			metrics.IncDeviceError(de.Code.Hex())
			c.logger.Debug("device_error", "code", de.Code.Hex(), "text", de.Text)
		} else {
			metrics.IncDecodeError()
			c.logger.Warn("decode_error", "code", msg.Code.Hex(), "error", err)
		}
	}
	for _, l := range c.reg.Dispatch(msg.Code) {
		// Drops are reported by the pool hooks.
		_ = c.pool.Submit(l, msg, err)
	}
}
