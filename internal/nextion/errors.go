package nextion

import (
	"errors"
	"fmt"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrNotPermitted = errors.New("nextion: reader not running")
	ErrTimeout      = errors.New("nextion: timeout")
	ErrClosed       = errors.New("nextion: client closed")
	ErrNotStarted   = errors.New("nextion: client not started")
	ErrTransport    = errors.New("nextion: transport")
)

// TransportError wraps an I/O fault reported by the port or writer.
type TransportError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("nextion transport %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// callOutcome maps a Call result to its metrics label.
func callOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.CallOK
	case errors.Is(err, ErrTimeout):
		return metrics.CallTimeout
	case errors.Is(err, protocol.ErrDevice):
		return metrics.CallDeviceError
	default:
		return metrics.CallError
	}
}
