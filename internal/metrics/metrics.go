package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-nextion-bridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	SerialRxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_serial_rx_bytes_total",
		Help: "Total bytes read from the display serial link.",
	})
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_frames_rx_total",
		Help: "Total frames demultiplexed from the display byte stream.",
	})
	CommandsTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_commands_tx_total",
		Help: "Total commands written to the display.",
	})
	DeviceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextion_device_errors_total",
		Help: "Device error replies by status code.",
	}, []string{"code"})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_decode_errors_total",
		Help: "Frames whose status code or payload could not be decoded.",
	})
	DispatchDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_dispatch_dropped_total",
		Help: "Listener deliveries dropped because a worker queue was full.",
	})
	ListenerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_listener_panics_total",
		Help: "Listener callbacks that panicked during delivery.",
	})
	Calls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextion_calls_total",
		Help: "Synchronous calls by outcome.",
	}, []string{"result"})
	TCPRxLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_tcp_rx_lines_total",
		Help: "Total command lines received from TCP clients.",
	})
	TCPTxLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_tcp_tx_lines_total",
		Help: "Total event lines sent to TCP clients.",
	})
	HubDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_hub_dropped_lines_total",
		Help: "Total event lines dropped by hub due to slow clients.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_hub_kicked_clients_total",
		Help: "Total clients disconnected due to backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_hub_rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g., max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_hub_active_clients",
		Help: "Current number of active connected clients.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextion_malformed_frames_total",
		Help: "Total frames discarded by the demultiplexer (payload overflow).",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrSerialRead     = "serial_read"
	ErrSerialWrite    = "serial_write"
	ErrSerialOverflow = "serial_tx_overflow"
	ErrDispatch       = "dispatch"
	ErrTCPRead        = "tcp_read"
	ErrTCPWrite       = "tcp_write"
	ErrCommand        = "command"
)

// Call outcome labels.
const (
	CallOK          = "ok"
	CallTimeout     = "timeout"
	CallDeviceError = "device_error"
	CallError       = "error"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localRxBytes      uint64
	localFramesRx     uint64
	localCommandsTx   uint64
	localDeviceErrors uint64
	localDecodeErrors uint64
	localDropped      uint64
	localPanics       uint64
	localCallsOK      uint64
	localCallTimeouts uint64
	localTCPRx        uint64
	localTCPTx        uint64
	localHubDrop      uint64
	localHubKick      uint64
	localHubReject    uint64
	localHubClients   uint64
	localErrors       uint64
	localMalformed    uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	RxBytes      uint64
	FramesRx     uint64
	CommandsTx   uint64
	DeviceErrors uint64
	DecodeErrors uint64
	Dropped      uint64
	Panics       uint64
	CallsOK      uint64
	CallTimeouts uint64
	TCPRx        uint64
	TCPTx        uint64
	HubDrops     uint64
	HubKicks     uint64
	HubRejects   uint64
	HubClients   uint64
	Errors       uint64 // sum across error labels
	Malformed    uint64
}

func Snap() Snapshot {
	return Snapshot{
		RxBytes:      atomic.LoadUint64(&localRxBytes),
		FramesRx:     atomic.LoadUint64(&localFramesRx),
		CommandsTx:   atomic.LoadUint64(&localCommandsTx),
		DeviceErrors: atomic.LoadUint64(&localDeviceErrors),
		DecodeErrors: atomic.LoadUint64(&localDecodeErrors),
		Dropped:      atomic.LoadUint64(&localDropped),
		Panics:       atomic.LoadUint64(&localPanics),
		CallsOK:      atomic.LoadUint64(&localCallsOK),
		CallTimeouts: atomic.LoadUint64(&localCallTimeouts),
		TCPRx:        atomic.LoadUint64(&localTCPRx),
		TCPTx:        atomic.LoadUint64(&localTCPTx),
		HubDrops:     atomic.LoadUint64(&localHubDrop),
		HubKicks:     atomic.LoadUint64(&localHubKick),
		HubRejects:   atomic.LoadUint64(&localHubReject),
		HubClients:   atomic.LoadUint64(&localHubClients),
		Errors:       atomic.LoadUint64(&localErrors),
		Malformed:    atomic.LoadUint64(&localMalformed),
	}
}

// Wrapper helpers to keep call sites simple.
func AddRxBytes(n int) {
	SerialRxBytes.Add(float64(n))
	atomic.AddUint64(&localRxBytes, uint64(n))
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncCommandsTx() {
	CommandsTx.Inc()
	atomic.AddUint64(&localCommandsTx, 1)
}

// IncDeviceError counts a device error reply; code is formatted by the caller (e.g. "0x1a").
func IncDeviceError(code string) {
	DeviceErrors.WithLabelValues(code).Inc()
	atomic.AddUint64(&localDeviceErrors, 1)
}

func IncDecodeError() {
	DecodeErrors.Inc()
	atomic.AddUint64(&localDecodeErrors, 1)
}

func IncDispatchDropped() {
	DispatchDropped.Inc()
	atomic.AddUint64(&localDropped, 1)
}

func IncListenerPanic() {
	ListenerPanics.Inc()
	atomic.AddUint64(&localPanics, 1)
}

// IncCall records the outcome of one synchronous call.
func IncCall(result string) {
	Calls.WithLabelValues(result).Inc()
	switch result {
	case CallOK:
		atomic.AddUint64(&localCallsOK, 1)
	case CallTimeout:
		atomic.AddUint64(&localCallTimeouts, 1)
	}
}

func IncTCPRx() {
	TCPRxLines.Inc()
	atomic.AddUint64(&localTCPRx, 1)
}

func AddTCPTx(n int) {
	TCPTxLines.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncHubDrop() {
	HubDropped.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncHubKick() {
	HubKickedClients.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func IncHubReject() {
	HubRejectedClients.Inc()
	atomic.AddUint64(&localHubReject, 1)
}

func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register common error label series so first error does not log a registration latency.
	for _, lbl := range []string{
		ErrSerialRead, ErrSerialWrite, ErrSerialOverflow,
		ErrDispatch, ErrTCPRead, ErrTCPWrite, ErrCommand,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
	for _, lbl := range []string{CallOK, CallTimeout, CallDeviceError, CallError} {
		Calls.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
