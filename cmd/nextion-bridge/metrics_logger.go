package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"serial_rx_bytes", snap.RxBytes,
					"frames_rx", snap.FramesRx,
					"commands_tx", snap.CommandsTx,
					"device_errors", snap.DeviceErrors,
					"decode_errors", snap.DecodeErrors,
					"dispatch_dropped", snap.Dropped,
					"calls_ok", snap.CallsOK,
					"call_timeouts", snap.CallTimeouts,
					"tcp_rx", snap.TCPRx,
					"tcp_tx", snap.TCPTx,
					"hub_drops", snap.HubDrops,
					"hub_clients", snap.HubClients,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
