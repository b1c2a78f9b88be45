package serial

import (
	"context"
	"errors"

	"github.com/kstaniek/go-nextion-bridge/internal/logging"
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

var ErrTxOverflow = errors.New("serial tx overflow")

// TXWriter funnels all serial writes through one goroutine.
type TXWriter struct{ base *transport.AsyncTx }

// NewTXWriter creates a serial TXWriter with a buffered channel of size buf.
// Payloads must already be wire encoded (see frame.EncodeCommand).
func NewTXWriter(parent context.Context, sp transport.Port, buf int) *TXWriter {
	write := func(b []byte) error {
		_, err := sp.Write(b)
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSerialWrite)
			logging.L().Error("serial_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncCommandsTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSerialOverflow)
			return ErrTxOverflow
		},
	}
	return &TXWriter{base: transport.NewAsyncTx(parent, buf, write, hooks)}
}

// Send queues a wire payload for asynchronous write (drops with ErrTxOverflow if buffer full).
func (w *TXWriter) Send(b []byte) error { return w.base.Send(b) }

// Close stops the writer and waits for pending goroutine exit.
func (w *TXWriter) Close() { w.base.Close() }

var _ transport.Sink = (*TXWriter)(nil)
