package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/hub"
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/serial"
)

// startReader launches the goroutine forwarding command lines from one client.
func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close(); cl.Close() }()
		r := bufio.NewReaderSize(conn, s.maxLine)
		var partial []byte
		for {
			select {
			case <-ctxDone:
				return
			case <-cl.Closed:
				return
			default:
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			chunk, err := r.ReadSlice('\n')
			if len(chunk) > 0 {
				partial = append(partial, chunk...)
			}
			if len(partial) > s.maxLine {
				logger.Warn("client_line_too_long", "max", s.maxLine)
				metrics.IncError(mapErrToMetric(ErrConnRead))
				return
			}
			if err != nil {
				if errors.Is(err, bufio.ErrBufferFull) {
					continue
				}
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
				metrics.IncError(mapErrToMetric(wrap))
				s.setError(wrap)
				return
			}
			line := partial
			partial = partial[:0]
			cmd := strings.TrimRight(string(line), "\r\n")
			if strings.TrimSpace(cmd) == "" {
				continue
			}
			metrics.IncTCPRx()
			s.forward(cmd, logger)
		}
	}()
}

func (s *Server) forward(cmd string, logger *slog.Logger) {
	s.totalCommands.Add(1)
	if s.Send == nil {
		return
	}
	if err := s.Send(cmd); err != nil {
		s.totalCommandErrors.Add(1)
		if errors.Is(err, serial.ErrTxOverflow) {
			logger.Debug("backend_overflow_drop", "cmd", cmd)
			return
		}
		wrap := fmt.Errorf("%w: %v", ErrCommand, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		logger.Error("command_error", "error", wrap, "cmd", cmd)
	}
}
