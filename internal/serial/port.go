package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"

	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

// Nextion modules ship at 9600 baud, 8N1.
const DefaultBaud = 9600

// Open opens the display's serial device. readTimeout bounds each Read so the
// engine's reader loop can poll without blocking forever (tarm/serial returns
// 0 bytes / io.EOF on timeout).
func Open(name string, baud int, readTimeout time.Duration) (transport.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	cfg := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	// Drop whatever the display sent before we attached.
	_ = p.Flush()
	return p, nil
}
