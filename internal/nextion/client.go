package nextion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-nextion-bridge/internal/dispatch"
	"github.com/kstaniek/go-nextion-bridge/internal/frame"
	"github.com/kstaniek/go-nextion-bridge/internal/logging"
	"github.com/kstaniek/go-nextion-bridge/internal/metrics"
	"github.com/kstaniek/go-nextion-bridge/internal/protocol"
	"github.com/kstaniek/go-nextion-bridge/internal/registry"
	"github.com/kstaniek/go-nextion-bridge/internal/serial"
	"github.com/kstaniek/go-nextion-bridge/internal/transport"
)

// Client owns one display connection: the reader goroutine, the listener
// registry, the dispatch pool and the serial writer.
type Client struct {
	port   transport.Port
	reg    *registry.Registry
	demux  *frame.Demux
	logger *slog.Logger

	timeout     time.Duration
	workers     int
	queue       int
	txBuf       int
	readBufSize int
	maxPayload  int
	poll        time.Duration
	prefix      bool
	initCmds    []string

	mu        sync.Mutex
	started   bool
	active    atomic.Bool
	rctx      context.Context
	cancel    context.CancelFunc
	callSem   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	pool      *dispatch.Pool
	tx        *serial.TXWriter
	wg        sync.WaitGroup
}

// New wraps port. Nothing is read or written until Start.
func New(port transport.Port, opts ...Option) *Client {
	c := &Client{
		port:        port,
		reg:         registry.New(),
		logger:      logging.L(),
		timeout:     defaultTimeout,
		workers:     defaultWorkers,
		queue:       defaultQueue,
		txBuf:       defaultTxBuffer,
		readBufSize: defaultReadBufSize,
		poll:        defaultPoll,
		initCmds:    defaultInitCommands,
		done:        make(chan struct{}),
		callSem:     make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	c.demux = frame.NewDemux(c.maxPayload)
	return c
}

// Start launches the reader and dispatch workers and sends the init commands.
// A Client can be started once.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return ErrClosed
	default:
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("nextion: already started")
	}
	c.started = true
	rctx, cancel := context.WithCancel(ctx)
	c.rctx, c.cancel = rctx, cancel
	c.pool = dispatch.New(rctx, dispatch.Config{Workers: c.workers, Queue: c.queue}, dispatch.Hooks{
		OnDrop: func(l *registry.Listener, msg protocol.Message) {
			metrics.IncDispatchDropped()
			c.logger.Warn("dispatch_drop", "listener", l.ID(), "code", msg.Code.Hex())
		},
		OnPanic: func(l *registry.Listener, msg protocol.Message, v any) {
			metrics.IncListenerPanic()
			metrics.IncError(metrics.ErrDispatch)
			c.logger.Error("listener_panic", "listener", l.ID(), "code", msg.Code.Hex(), "panic", fmt.Sprint(v))
		},
	})
	c.tx = serial.NewTXWriter(rctx, c.port, c.txBuf)
	// set before the reader runs so a reader that exits at once leaves it cleared
	c.active.Store(true)
	c.wg.Add(1)
	go c.readLoop(rctx)
	c.mu.Unlock()

	c.logger.Info("nextion_started", "workers", c.pool.Workers(), "timeout", c.timeout)
	for _, cmd := range c.initCmds {
		if err := c.Write(cmd); err != nil {
			return fmt.Errorf("init command %q: %w", cmd, err)
		}
	}
	return nil
}

// Active reports whether the reader and dispatch workers are running. It turns
// false on Close or when the context given to Start is cancelled.
func (c *Client) Active() bool { return c.active.Load() }

// Done is closed when the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the reader, discards in-flight dispatch, fails pending calls
// with ErrClosed and closes the port. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.active.Store(false)
		close(c.done)
		cancel, pool, tx := c.cancel, c.pool, c.tx
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		err = c.port.Close()
		c.wg.Wait()
		if pool != nil {
			pool.Close()
		}
		if tx != nil {
			tx.Close()
		}
		c.logger.Info("nextion_closed")
	})
	return err
}

// Write queues cmd (without terminator) for transmission.
func (c *Client) Write(cmd string) error {
	c.mu.Lock()
	tx, rctx := c.tx, c.rctx
	c.mu.Unlock()
	if tx == nil {
		return ErrNotStarted
	}
	select {
	case <-c.done:
		return ErrClosed
	case <-rctx.Done():
		return ErrClosed
	default:
	}
	if err := tx.Send(frame.EncodeCommand(cmd, c.prefix)); err != nil {
		metrics.IncError(metrics.ErrCommand)
		return &TransportError{Op: "write", Err: err}
	}
	c.logger.Debug("command_queued", "cmd", cmd)
	return nil
}

// Subscribe registers l for codes (protocol.Any when none are given).
func (c *Client) Subscribe(l *registry.Listener, permanent bool, codes ...protocol.Code) {
	c.reg.Subscribe(l, permanent, codes...)
}

// Unsubscribe removes l from codes, or from every code when none are given.
func (c *Client) Unsubscribe(l *registry.Listener, codes ...protocol.Code) bool {
	return c.reg.Unsubscribe(l, codes...)
}

// Listen registers fn permanently for codes and returns its listener for later removal.
func (c *Client) Listen(fn registry.Func, codes ...protocol.Code) *registry.Listener {
	l := registry.NewListener(fn)
	c.reg.Subscribe(l, true, codes...)
	return l
}
