package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kstaniek/go-nextion-bridge/internal/bridge"
	"github.com/kstaniek/go-nextion-bridge/internal/hub"
	"github.com/kstaniek/go-nextion-bridge/internal/nextion"
	"github.com/kstaniek/go-nextion-bridge/internal/serial"
)

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// initDisplay opens the serial link, starts the engine and publishes every
// inbound message to h. The returned client is the command sink for TCP clients.
func initDisplay(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger) (*nextion.Client, error) {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return nil, fmt.Errorf("open serial: %w", err)
	}
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud)
	c := nextion.New(sp,
		nextion.WithLogger(l.With("component", "nextion")),
		nextion.WithTimeout(cfg.callTimeout),
		nextion.WithWorkers(cfg.workers),
		nextion.WithQueue(cfg.queue),
		nextion.WithCommandPrefix(cfg.commandPrefix),
		nextion.WithInitCommands(cfg.initCommandList()...),
	)
	c.Listen(bridge.Publisher(h))
	if err := c.Start(ctx); err != nil {
		// the reader is already running; Close stops it and closes sp
		_ = c.Close()
		return nil, fmt.Errorf("start display: %w", err)
	}
	return c, nil
}
