package bridge

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/hub"
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
)

// startWriter launches the goroutine pushing hub lines to a single client connection.
func (s *Server) startWriter(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
			s.forget(cl)
			s.totalDisconnected.Add(1)
			logger.Info("client_disconnected")
		}()
		// a kicked client may be stuck in Write; closing the conn unblocks it
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-cl.Closed:
				_ = conn.Close()
			case <-stop:
			}
		}()
		t := time.NewTicker(s.flushInterval)
		defer t.Stop()
		buf := make([]byte, 0, 128*s.batchSize)
		pending := 0
		flush := func() error {
			if pending == 0 {
				return nil
			}
			n := pending
			_, err := conn.Write(buf)
			buf = buf[:0]
			pending = 0
			if err != nil {
				wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
				metrics.IncError(mapErrToMetric(wrap))
				s.setError(wrap)
				return wrap
			}
			metrics.AddTCPTx(n)
			return nil
		}
		for {
			select {
			case line := <-cl.Out:
				buf = append(buf, line...)
				pending++
				if pending >= s.batchSize {
					if err := flush(); err != nil {
						return
					}
				}
			case <-t.C:
				if err := flush(); err != nil {
					return
				}
			case <-cl.Closed:
				_ = flush()
				return
			case <-ctxDone:
				_ = flush()
				return
			}
		}
	}()
}
